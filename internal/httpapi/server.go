// Package httpapi serves the published snapshot to readers. Handlers only read
// the snapshot store and never trigger upstream fetches.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samvad-hq/samvad-news-snapshot/internal/domain"
	"github.com/samvad-hq/samvad-news-snapshot/internal/logger"
)

const msgNotReady = "snapshot not yet available"

// SnapshotReader exposes the current snapshot.
type SnapshotReader interface {
	Current() (*domain.Snapshot, bool)
}

// ThemeChecker reports whether a theme id is known.
type ThemeChecker interface {
	Exists(ctx context.Context, id int) (bool, error)
}

// Server holds the read API handlers.
type Server struct {
	store    SnapshotReader
	themes   ThemeChecker
	gatherer prometheus.Gatherer
	log      logger.Logger
}

// New constructs the read API. A nil gatherer leaves /metrics unmounted.
func New(store SnapshotReader, themes ThemeChecker, gatherer prometheus.Gatherer, log logger.Logger) *Server {
	return &Server{store: store, themes: themes, gatherer: gatherer, log: logger.Ensure(log)}
}

// Handler returns the routed mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /articles", s.getArticles)
	mux.HandleFunc("GET /articles/{themeID}", s.getThemeArticles)
	mux.HandleFunc("GET /healthz", s.healthz)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

func (s *Server) getArticles(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.store.Current()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, msgNotReady)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) getThemeArticles(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("themeID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "theme not found")
		return
	}

	exists, err := s.themes.Exists(r.Context(), id)
	if err != nil {
		s.log.ErrorObj("theme lookup failed", "theme_lookup_error", map[string]any{
			"theme_id": id,
			"error":    err.Error(),
		})
		writeError(w, http.StatusInternalServerError, "theme lookup failed")
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "theme not found")
		return
	}

	snap, ok := s.store.Current()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, msgNotReady)
		return
	}
	writeJSON(w, http.StatusOK, domain.ThemeArticles{ThemeID: id, Articles: snap.ArticlesFor(id)})
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	_, ready := s.store.Current()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "snapshot_ready": ready})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
