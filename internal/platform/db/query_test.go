package db

import (
	"reflect"
	"testing"
)

func TestSearchQuery_Postgres(t *testing.T) {
	q := NewSearchQuery(Postgres, "concept", "id, code")
	q.Eq("codesystem_id", "cs-1")
	q.Contains("fev", "code", "display")
	q.OrderBy("created_at, id")

	wantCount := `SELECT COUNT(*) FROM concept WHERE 1=1 AND codesystem_id = $1 AND (code ILIKE $2 ESCAPE '\' OR display ILIKE $2 ESCAPE '\')`
	if got := q.CountSQL(); got != wantCount {
		t.Errorf("CountSQL:\n got %s\nwant %s", got, wantCount)
	}
	wantData := `SELECT id, code FROM concept WHERE 1=1 AND codesystem_id = $1 AND (code ILIKE $2 ESCAPE '\' OR display ILIKE $2 ESCAPE '\') ORDER BY created_at, id LIMIT $3 OFFSET $4`
	if got := q.DataSQL(10, 20); got != wantData {
		t.Errorf("DataSQL:\n got %s\nwant %s", got, wantData)
	}
	if got := q.DataArgs(10, 20); !reflect.DeepEqual(got, []interface{}{"cs-1", "%fev%", 10, 20}) {
		t.Errorf("unexpected args: %v", got)
	}
}

func TestSearchQuery_SQLite(t *testing.T) {
	q := NewSearchQuery(SQLite, "codesystem", "id")
	q.Contains("icd", "name", "title", "url")

	want := `SELECT id FROM codesystem WHERE 1=1 AND (name LIKE ? ESCAPE '\' OR title LIKE ? ESCAPE '\' OR url LIKE ? ESCAPE '\') LIMIT ? OFFSET ?`
	if got := q.DataSQL(5, 0); got != want {
		t.Errorf("DataSQL:\n got %s\nwant %s", got, want)
	}
	if got := len(q.CountArgs()); got != 3 {
		t.Errorf("expected one pattern arg per column, got %d", got)
	}
}

func TestSearchQuery_EmptyTerm(t *testing.T) {
	q := NewSearchQuery(Postgres, "conceptmap", "id")
	q.Contains("", "equivalence")
	if got := q.CountSQL(); got != "SELECT COUNT(*) FROM conceptmap WHERE 1=1" {
		t.Errorf("unexpected SQL: %s", got)
	}
	if len(q.CountArgs()) != 0 {
		t.Errorf("expected no args, got %v", q.CountArgs())
	}
}
