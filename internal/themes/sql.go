package themes

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/samvad-hq/samvad-news-snapshot/internal/domain"
)

// The registry is read from two tables:
//
//	themes(theme_id INTEGER PRIMARY KEY, position INTEGER NOT NULL)
//	theme_keywords(theme_id INTEGER, position INTEGER, keyword TEXT)
const (
	listThemesQuery = `
SELECT t.theme_id, k.keyword
FROM themes t
LEFT JOIN theme_keywords k ON k.theme_id = t.theme_id
ORDER BY t.position, t.theme_id, k.position`

	existsThemeQuery = `SELECT COUNT(1) FROM themes WHERE theme_id = %s`
)

// SQLSource reads themes from a relational database.
type SQLSource struct {
	db          *sql.DB
	existsQuery string
}

// OpenSQL opens a database/sql handle for driver "postgres" (pgx) or "sqlite".
func OpenSQL(driver, dsn string) (*SQLSource, error) {
	name, err := driverName(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	src := NewSQLSource(db)
	if name == "sqlite" {
		src.existsQuery = fmt.Sprintf(existsThemeQuery, "?")
	}
	return src, nil
}

// NewSQLSource wraps an existing handle using postgres-style placeholders.
func NewSQLSource(db *sql.DB) *SQLSource {
	return &SQLSource{db: db, existsQuery: fmt.Sprintf(existsThemeQuery, "$1")}
}

func driverName(driver string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pgx":
		return "pgx", nil
	case "sqlite", "sqlite3":
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported themes sql driver %q", driver)
	}
}

// All returns themes ordered by their registry position.
func (s *SQLSource) All(ctx context.Context) ([]domain.Theme, error) {
	rows, err := s.db.QueryContext(ctx, listThemesQuery)
	if err != nil {
		return nil, fmt.Errorf("query themes: %w", err)
	}
	defer rows.Close()

	var (
		out   []domain.Theme
		index = make(map[int]int)
	)
	for rows.Next() {
		var (
			id      int
			keyword sql.NullString
		)
		if err := rows.Scan(&id, &keyword); err != nil {
			return nil, fmt.Errorf("scan theme: %w", err)
		}
		pos, ok := index[id]
		if !ok {
			pos = len(out)
			index[id] = pos
			out = append(out, domain.Theme{ID: id, Keywords: []string{}})
		}
		if keyword.Valid {
			if kw := strings.TrimSpace(keyword.String); kw != "" {
				out[pos].Keywords = append(out[pos].Keywords, kw)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate themes: %w", err)
	}
	return out, nil
}

// Exists checks the themes table for id.
func (s *SQLSource) Exists(ctx context.Context, id int) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, s.existsQuery, id).Scan(&n); err != nil {
		return false, fmt.Errorf("query theme %d: %w", id, err)
	}
	return n > 0, nil
}

// Close closes the handle.
func (s *SQLSource) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
