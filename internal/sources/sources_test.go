package sources

import (
	"testing"
	"time"
)

func TestFetchers_NamesAndOrder(t *testing.T) {
	r := &Registry{}
	q := Query{Sources: []string{"tasks", "web", "news"}}

	fetchers := r.Fetchers(q)
	if len(fetchers) != 3 {
		t.Fatalf("expected 3 fetchers, got %d", len(fetchers))
	}
	for i, want := range []string{"tasks", "web", "news"} {
		if fetchers[i].Name != want {
			t.Errorf("fetcher %d: expected %q, got %q", i, want, fetchers[i].Name)
		}
	}
}

func TestFetchers_NotesAlias(t *testing.T) {
	r := &Registry{}
	fetchers := r.Fetchers(Query{Sources: []string{"notes"}})
	if len(fetchers) != 1 || fetchers[0].Name != "archive" {
		t.Fatalf("expected single archive fetcher, got %+v", fetchers)
	}
}

func TestFetchers_DedupAndUnknown(t *testing.T) {
	r := &Registry{}
	fetchers := r.Fetchers(Query{Sources: []string{"tasks", "tasks", "notes", "archive", "bogus"}})
	if len(fetchers) != 2 {
		t.Fatalf("expected 2 fetchers, got %d", len(fetchers))
	}
	if fetchers[0].Name != "tasks" || fetchers[1].Name != "archive" {
		t.Errorf("unexpected fetchers: %q, %q", fetchers[0].Name, fetchers[1].Name)
	}
}

func TestSinceTime(t *testing.T) {
	base := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)
	r := &Registry{loc: time.UTC, now: func() time.Time { return base }}

	tests := []struct {
		since string
		want  time.Time
	}{
		{"today", time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)},
		{"week", base.AddDate(0, 0, -7)},
		{"month", base.AddDate(0, 0, -30)},
		{"year", base.AddDate(-1, 0, 0)},
		{"", time.Time{}},
		{"always", time.Time{}},
	}

	for _, tt := range tests {
		if got := r.sinceTime(tt.since); !got.Equal(tt.want) {
			t.Errorf("sinceTime(%q): expected %v, got %v", tt.since, tt.want, got)
		}
	}
}
