// Package themes provides read access to the externally managed theme registry.
package themes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samvad-hq/samvad-news-snapshot/internal/config"
	"github.com/samvad-hq/samvad-news-snapshot/internal/domain"
)

// Source lists the current themes. Implementations must return themes in a
// stable order; that order is the order of a snapshot's related list.
type Source interface {
	All(ctx context.Context) ([]domain.Theme, error)
	Exists(ctx context.Context, id int) (bool, error)
	Close() error
}

// ErrDuplicateTheme is returned when a registry declares the same id twice.
var ErrDuplicateTheme = errors.New("duplicate theme id")

// NewSource creates the theme source selected by cfg.
func NewSource(cfg *config.Config) (Source, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	switch cfg.ThemeSource {
	case config.ThemeSourceFile, "":
		return NewFileSource(cfg.ThemesFile)
	case config.ThemeSourceBBolt:
		return OpenBolt(cfg.ThemesBBoltPath)
	case config.ThemeSourceSQL:
		return OpenSQL(cfg.ThemesSQLDriver, cfg.ThemesSQLDSN)
	default:
		return nil, fmt.Errorf("unsupported theme source %q", cfg.ThemeSource)
	}
}

// existsIn is the Exists implementation shared by sources that list everything.
func existsIn(ctx context.Context, src Source, id int) (bool, error) {
	all, err := src.All(ctx)
	if err != nil {
		return false, err
	}
	for _, t := range all {
		if t.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// sanitizeKeywords trims keywords and drops blank ones.
func sanitizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// validate rejects duplicate ids and normalizes keywords in place.
func validate(list []domain.Theme) error {
	seen := make(map[int]struct{}, len(list))
	for i := range list {
		if _, ok := seen[list[i].ID]; ok {
			return fmt.Errorf("%w %d", ErrDuplicateTheme, list[i].ID)
		}
		seen[list[i].ID] = struct{}{}
		list[i].Keywords = sanitizeKeywords(list[i].Keywords)
	}
	return nil
}
