package storage

import (
	"testing"
	"time"
)

// TestSaveNoteAndSearch round-trips a note and finds it by keyword.
func TestSaveNoteAndSearch(t *testing.T) {
	s := openTestStore(t)

	n := Note{
		ID:       "note-001",
		UserID:   42,
		Content:  "Go generics land in 1.18",
		Tags:     []string{"golang", "release"},
		Metadata: map[string]any{"source": "chat"},
	}
	if err := s.SaveNote(n); err != nil {
		t.Fatalf("SaveNote: %v", err)
	}

	got, err := s.SearchArchive(42, "generics", time.Time{}, 10)
	if err != nil {
		t.Fatalf("SearchArchive: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d notes, want 1", len(got))
	}
	if got[0].Content != n.Content {
		t.Errorf("Content = %q, want %q", got[0].Content, n.Content)
	}
	if len(got[0].Tags) != 2 || got[0].Tags[0] != "golang" {
		t.Errorf("Tags = %v, want %v", got[0].Tags, n.Tags)
	}
	if got[0].Metadata["source"] != "chat" {
		t.Errorf("Metadata[source] = %v, want %q", got[0].Metadata["source"], "chat")
	}
}

// TestSearchArchive_MatchesTags verifies a query word hits tags as well as
// content.
func TestSearchArchive_MatchesTags(t *testing.T) {
	s := openTestStore(t)

	n := Note{ID: "note-tag", UserID: 42, Content: "some saved link", Tags: []string{"kubernetes"}}
	if err := s.SaveNote(n); err != nil {
		t.Fatalf("SaveNote: %v", err)
	}

	got, err := s.SearchArchive(42, "kubernetes", time.Time{}, 10)
	if err != nil {
		t.Fatalf("SearchArchive: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d notes, want 1", len(got))
	}
}

// TestSearchArchive_SinceWindow verifies the since filter excludes older notes.
func TestSearchArchive_SinceWindow(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	old := Note{ID: "note-old", UserID: 42, Content: "project kickoff notes", CreatedAt: base}
	recent := Note{ID: "note-new", UserID: 42, Content: "project status notes", CreatedAt: base.AddDate(0, 0, 10)}
	for _, n := range []Note{old, recent} {
		if err := s.SaveNote(n); err != nil {
			t.Fatalf("SaveNote %s: %v", n.ID, err)
		}
	}

	got, err := s.SearchArchive(42, "project", base.AddDate(0, 0, 5), 10)
	if err != nil {
		t.Fatalf("SearchArchive: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d notes, want 1", len(got))
	}
	if got[0].ID != "note-new" {
		t.Errorf("ID = %q, want %q", got[0].ID, "note-new")
	}
}

// TestSearchArchive_ShortWordsIgnored verifies single-letter query words do
// not match everything.
func TestSearchArchive_ShortWordsIgnored(t *testing.T) {
	s := openTestStore(t)

	n := Note{ID: "note-x", UserID: 42, Content: "unrelated content"}
	if err := s.SaveNote(n); err != nil {
		t.Fatalf("SaveNote: %v", err)
	}

	// Only discarded words remain: the query degrades to a recency scan,
	// so the note still comes back.
	got, err := s.SearchArchive(42, "a I", time.Time{}, 10)
	if err != nil {
		t.Fatalf("SearchArchive: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d notes, want 1", len(got))
	}
}

// TestRecentNotes verifies ordering and limit.
func TestRecentNotes(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for j := 0; j < 3; j++ {
		n := Note{
			ID:        string(rune('a'+j)) + "-note",
			UserID:    42,
			Content:   "entry",
			CreatedAt: base.Add(time.Duration(j) * time.Hour),
		}
		if err := s.SaveNote(n); err != nil {
			t.Fatalf("SaveNote %d: %v", j, err)
		}
	}

	got, err := s.RecentNotes(42, 2)
	if err != nil {
		t.Fatalf("RecentNotes: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d notes, want 2", len(got))
	}
	if got[0].ID != "c-note" {
		t.Errorf("first note ID = %q, want %q", got[0].ID, "c-note")
	}
}
