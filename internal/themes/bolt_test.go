package themes

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/samvad-hq/samvad-news-snapshot/internal/domain"
)

func TestBoltSourcePutAllExists(t *testing.T) {
	src, err := OpenBolt(filepath.Join(t.TempDir(), "nested", "themes.db"))
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	defer src.Close()

	if err := src.Put(domain.Theme{ID: 9, Keywords: []string{"spring"}}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := src.Put(domain.Theme{ID: 3, Keywords: nil}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	list, err := src.All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(list) != 2 || list[0].ID != 3 || list[1].ID != 9 {
		t.Fatalf("expected ascending id order, got %#v", list)
	}
	if list[0].HasKeywords() || list[1].Keywords[0] != "spring" {
		t.Fatalf("unexpected keywords %#v", list)
	}

	ok, err := src.Exists(context.Background(), 9)
	if err != nil || !ok {
		t.Fatalf("Exists(9) = %v, %v", ok, err)
	}
	ok, err = src.Exists(context.Background(), 4)
	if err != nil || ok {
		t.Fatalf("Exists(4) = %v, %v", ok, err)
	}
}

func TestBoltSourceReplaceClears(t *testing.T) {
	src, err := OpenBolt(filepath.Join(t.TempDir(), "themes.db"))
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	defer src.Close()

	if err := src.Replace([]domain.Theme{{ID: 1, Keywords: []string{"a"}}, {ID: 2, Keywords: []string{"b"}}}, false); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := src.Replace([]domain.Theme{{ID: 5, Keywords: []string{"c"}}}, true); err != nil {
		t.Fatalf("Replace clear: %v", err)
	}
	list, err := src.All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(list) != 1 || list[0].ID != 5 {
		t.Fatalf("expected only theme 5, got %#v", list)
	}

	if err := src.Replace([]domain.Theme{{ID: 1}, {ID: 1}}, false); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if err := src.Put(domain.Theme{ID: -1}); err == nil {
		t.Fatalf("expected negative id error")
	}
}

func TestBoltSourceReplaceListsByID(t *testing.T) {
	src, err := OpenBolt(filepath.Join(t.TempDir(), "themes.db"))
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	defer src.Close()

	list := []domain.Theme{
		{ID: 300, Keywords: []string{"c"}},
		{ID: 2, Keywords: []string{"a"}},
		{ID: 40, Keywords: []string{"b"}},
	}
	if err := src.Replace(list, true); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	got, err := src.All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(got) != 3 || got[0].ID != 2 || got[1].ID != 40 || got[2].ID != 300 {
		t.Fatalf("expected ascending id order regardless of import order, got %#v", got)
	}
}
