package links

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/naborsk/adjutant/internal/llm"
	"github.com/naborsk/adjutant/internal/storage"
)

func TestExtractURLs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"single", "check this out https://example.com/article", []string{"https://example.com/article"}},
		{"http", "see http://old.example.com", []string{"http://old.example.com"}},
		{"multiple", "https://a.com and https://b.com", []string{"https://a.com", "https://b.com"}},
		{"none", "buy milk tomorrow", nil},
		{"stops at space", "https://a.com/path?x=1 trailing words", []string{"https://a.com/path?x=1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractURLs(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

const articleHTML = `<html>
<head><title>  Go Generics Explained  </title><script>track();</script></head>
<body>
<nav><p>Home | About</p></nav>
<article>
<p>Generics landed in Go 1.18.</p>
<p>They enable type-parameterized functions.</p>
</article>
<footer><p>Copyright text</p></footer>
</body></html>`

type savedNotes struct {
	notes []storage.Note
}

func (a *savedNotes) SaveNote(n storage.Note) error {
	a.notes = append(a.notes, n)
	return nil
}

type stubCompleter struct {
	content string
	err     error
}

func (c *stubCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	return c.content, c.err
}

func TestFetch_ExtractsReadableText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	s := NewService(&stubCompleter{}, &savedNotes{})
	page, err := s.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if page.Title != "Go Generics Explained" {
		t.Errorf("unexpected title: %q", page.Title)
	}
	if !strings.Contains(page.Content, "Generics landed in Go 1.18.") {
		t.Errorf("missing article text: %q", page.Content)
	}
	if strings.Contains(page.Content, "Home | About") || strings.Contains(page.Content, "Copyright") {
		t.Errorf("chrome text leaked into content: %q", page.Content)
	}
}

func TestProcess_SummarizesAndArchives(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	archive := &savedNotes{}
	chain := &stubCompleter{content: `{"summary":"Generics arrived in Go 1.18.","tags":["go","generics"],"key_points":["Type parameters","Backwards compatible"]}`}
	s := NewService(chain, archive)
	s.newID = func() string { return "note-1" }

	reply := s.Process(context.Background(), 7, srv.URL)

	if len(archive.notes) != 1 {
		t.Fatalf("expected 1 archived note, got %d", len(archive.notes))
	}
	n := archive.notes[0]
	if n.Content != "Generics arrived in Go 1.18." {
		t.Errorf("unexpected note content: %q", n.Content)
	}
	if n.Metadata["type"] != "url" || n.Metadata["title"] != "Go Generics Explained" {
		t.Errorf("unexpected metadata: %+v", n.Metadata)
	}
	if !strings.Contains(reply, "Saved: Go Generics Explained") {
		t.Errorf("unexpected reply: %q", reply)
	}
	if !strings.Contains(reply, "#go #generics") {
		t.Errorf("missing tags in reply: %q", reply)
	}
	if !strings.Contains(reply, "- Type parameters") {
		t.Errorf("missing key points in reply: %q", reply)
	}
}

func TestProcess_FetchFailureSavesBareLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	archive := &savedNotes{}
	s := NewService(&stubCompleter{}, archive)
	s.newID = func() string { return "note-1" }

	reply := s.Process(context.Background(), 7, srv.URL)

	if len(archive.notes) != 1 {
		t.Fatalf("expected 1 archived note, got %d", len(archive.notes))
	}
	if !strings.HasPrefix(archive.notes[0].Content, "Saved link: ") {
		t.Errorf("unexpected content: %q", archive.notes[0].Content)
	}
	if !strings.Contains(reply, "saved the URL instead") {
		t.Errorf("unexpected reply: %q", reply)
	}
}

func TestProcess_BadSummaryJSONFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	archive := &savedNotes{}
	s := NewService(&stubCompleter{content: "not json"}, archive)
	s.newID = func() string { return "note-1" }

	s.Process(context.Background(), 7, srv.URL)

	if len(archive.notes) != 1 {
		t.Fatalf("expected 1 archived note, got %d", len(archive.notes))
	}
	if archive.notes[0].Content != "Saved the link: Go Generics Explained" {
		t.Errorf("unexpected fallback content: %q", archive.notes[0].Content)
	}
}
