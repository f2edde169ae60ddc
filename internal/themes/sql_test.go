package themes

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestSQLSourceAllGroupsKeywordsInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(listThemesQuery)).WillReturnRows(
		sqlmock.NewRows([]string{"theme_id", "keyword"}).
			AddRow(4, "sakura").
			AddRow(4, "spring").
			AddRow(1, nil).
			AddRow(2, "  "),
	)

	list, err := NewSQLSource(db).All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 themes, got %#v", list)
	}
	if list[0].ID != 4 || len(list[0].Keywords) != 2 || list[0].Keywords[1] != "spring" {
		t.Fatalf("unexpected first theme %#v", list[0])
	}
	if list[1].ID != 1 || list[1].HasKeywords() {
		t.Fatalf("unexpected second theme %#v", list[1])
	}
	if list[2].ID != 2 || list[2].HasKeywords() {
		t.Fatalf("blank keyword should be dropped: %#v", list[2])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSQLSourceAllSurfacesQueryErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	boom := errors.New("connection reset")
	mock.ExpectQuery(regexp.QuoteMeta(listThemesQuery)).WillReturnError(boom)

	if _, err := NewSQLSource(db).All(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped query error, got %v", err)
	}
}

func TestSQLSourceExists(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(1) FROM themes WHERE theme_id = $1")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	ok, err := NewSQLSource(db).Exists(context.Background(), 3)
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
}

func TestSQLSourceSQLite(t *testing.T) {
	src, err := OpenSQL("sqlite", filepath.Join(t.TempDir(), "themes.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQL: %v", err)
	}
	defer src.Close()

	_, err = src.db.Exec(`
CREATE TABLE themes (theme_id INTEGER PRIMARY KEY, position INTEGER NOT NULL);
CREATE TABLE theme_keywords (theme_id INTEGER NOT NULL, position INTEGER NOT NULL, keyword TEXT NOT NULL);
INSERT INTO themes VALUES (10, 2), (20, 1);
INSERT INTO theme_keywords VALUES (10, 2, 'spring'), (10, 1, 'sakura'), (20, 1, 'election');
`)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	list, err := src.All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(list) != 2 || list[0].ID != 20 || list[1].ID != 10 {
		t.Fatalf("expected position order, got %#v", list)
	}
	if list[1].Keywords[0] != "sakura" || list[1].Keywords[1] != "spring" {
		t.Fatalf("expected keyword position order, got %#v", list[1].Keywords)
	}

	ok, err := src.Exists(context.Background(), 10)
	if err != nil || !ok {
		t.Fatalf("Exists(10) = %v, %v", ok, err)
	}
	ok, err = src.Exists(context.Background(), 11)
	if err != nil || ok {
		t.Fatalf("Exists(11) = %v, %v", ok, err)
	}
}

func TestOpenSQLRejectsUnknownDriver(t *testing.T) {
	if _, err := OpenSQL("oracle", "dsn"); err == nil {
		t.Fatalf("expected driver error")
	}
}
