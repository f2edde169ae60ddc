package domain

import "time"

// Theme is a topic definition supplied by the theme source.
type Theme struct {
	ID       int      `json:"themeID" yaml:"id"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// HasKeywords reports whether the theme takes part in aggregation.
func (t Theme) HasKeywords() bool { return len(t.Keywords) > 0 }

// ThemeArticles holds the merged, ordered articles for one theme.
type ThemeArticles struct {
	ThemeID  int       `json:"themeID"`
	Articles []Article `json:"articles"`
}

// Snapshot is the complete result of one aggregation cycle.
// It must not be modified once handed to the snapshot store.
type Snapshot struct {
	Latest  []Article       `json:"latest"`
	Related []ThemeArticles `json:"related"`

	CycleID     string    `json:"-"`
	GeneratedAt time.Time `json:"-"`
}

// ArticlesFor returns the articles of the given theme, or an empty slice when
// the snapshot carries no entry for it.
func (s *Snapshot) ArticlesFor(themeID int) []Article {
	if s == nil {
		return []Article{}
	}
	for _, ta := range s.Related {
		if ta.ThemeID == themeID {
			return ta.Articles
		}
	}
	return []Article{}
}

// RelatedCount returns the number of articles across all themes.
func (s *Snapshot) RelatedCount() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, ta := range s.Related {
		n += len(ta.Articles)
	}
	return n
}
