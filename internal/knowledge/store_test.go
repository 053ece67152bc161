package knowledge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ShayCichocki/taskgenie/internal/state"
)

// newTestStore creates a Store on a temporary database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := state.Open(filepath.Join(t.TempDir(), "kb.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

func seed(t *testing.T, s *Store, docs ...Document) {
	t.Helper()
	for _, d := range docs {
		if _, err := s.Add(context.Background(), d); err != nil {
			t.Fatalf("Add(%s) failed: %v", d.SourceURI, err)
		}
	}
}

func TestStore_AddGetDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Add(ctx, Document{
		SourceURI: "s3://kb/guide.md",
		Content:   "Stories state the user, the need and the value.",
		Metadata:  map[string]string{KeyWorkItemType: "User Story"},
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if id != DocumentID("s3://kb/guide.md") {
		t.Errorf("id = %q, want id derived from source", id)
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Metadata[KeyWorkItemType] != "User Story" {
		t.Errorf("Metadata = %v", got.Metadata)
	}

	n, err := s.Count(ctx)
	if err != nil || n != 1 {
		t.Errorf("Count() = %d, %v; want 1", n, err)
	}

	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(ctx, id); !errors.Is(err, state.ErrNotFound) {
		t.Errorf("second Delete() = %v, want ErrNotFound", err)
	}
	if _, err := s.Get(ctx, id); !errors.Is(err, state.ErrNotFound) {
		t.Errorf("Get() after delete = %v, want ErrNotFound", err)
	}
}

func TestStore_AddReplacesSameSource(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seed(t, s,
		Document{SourceURI: "s3://kb/a.md", Content: "original kafka notes"},
		Document{SourceURI: "s3://kb/a.md", Content: "rewritten postgres notes"},
	)

	n, _ := s.Count(ctx)
	if n != 1 {
		t.Fatalf("Count() = %d, want 1", n)
	}

	res, err := s.Search(ctx, "kafka", nil, 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(res) != 0 {
		t.Errorf("stale content still indexed: %+v", res)
	}
	res, _ = s.Search(ctx, "postgres", nil, 3)
	if len(res) != 1 {
		t.Errorf("new content not indexed: %+v", res)
	}
}

func TestStore_AddRejectsEmpty(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Add(context.Background(), Document{Content: "  "}); err == nil {
		t.Error("expected error for empty content")
	}
}

func TestStore_SearchRanksAndFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seed(t, s,
		Document{
			SourceURI: "s3://kb/checkout.md",
			Content:   "The checkout service publishes payment events to the payment queue. Payment retries are idempotent.",
			Metadata:  map[string]string{KeySystem: "Checkout", KeyBusinessUnit: "Retail"},
		},
		Document{
			SourceURI: "s3://kb/catalog.md",
			Content:   "The catalog service exposes product search. Payment is not handled here.",
			Metadata:  map[string]string{KeySystem: "Catalog", KeyBusinessUnit: "Retail"},
		},
		Document{
			SourceURI: "s3://kb/hr.md",
			Content:   "Vacation requests are approved by managers.",
			Metadata:  map[string]string{KeySystem: "HR", KeyBusinessUnit: "Corporate"},
		},
	)

	res, err := s.Search(ctx, "payment retries for the checkout", nil, 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(res))
	}
	if res[0].SourceURI != "s3://kb/checkout.md" {
		t.Errorf("top result = %s, want checkout", res[0].SourceURI)
	}
	if res[0].Score < res[1].Score {
		t.Errorf("scores not descending: %v then %v", res[0].Score, res[1].Score)
	}

	filtered, err := s.Search(ctx, "payment", &Filter{AndAll: []Filter{
		Eq(KeyBusinessUnit, "Retail"),
		Eq(KeySystem, "Catalog"),
	}}, 3)
	if err != nil {
		t.Fatalf("filtered Search failed: %v", err)
	}
	if len(filtered) != 1 || filtered[0].SourceURI != "s3://kb/catalog.md" {
		t.Errorf("filtered results = %+v", filtered)
	}

	limited, _ := s.Search(ctx, "payment service", nil, 1)
	if len(limited) != 1 {
		t.Errorf("topK not applied: %d results", len(limited))
	}
}

func TestStore_SearchWithoutKeywords(t *testing.T) {
	s := newTestStore(t)
	seed(t, s,
		Document{SourceURI: "a", Content: "alpha", Metadata: map[string]string{KeyAreaPath: "agile-process"}},
		Document{SourceURI: "b", Content: "beta"},
	)

	res, err := s.Search(context.Background(), "a an the", eqFilter(KeyAreaPath, "agile-process"), 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(res) != 1 || res[0].SourceURI != "a" || res[0].Score != 0 {
		t.Errorf("results = %+v", res)
	}
}

// eqFilter returns a pointer to a single-condition filter.
func eqFilter(key, value string) *Filter {
	f := Eq(key, value)
	return &f
}

func TestExtractKeywords(t *testing.T) {
	got := extractKeywords("<p>The Checkout service</p> and the checkout API, a v2 of it")
	want := []string{"checkout", "service", "api"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("extractKeywords() = %v, want %v", got, want)
	}
	if extractKeywords("") != nil {
		t.Error("extractKeywords(\"\") should be nil")
	}
}

func TestParseDocument(t *testing.T) {
	data := []byte(`---
source: s3://kb/guides/story.md
metadata:
  workItemType: User Story
  areaPath: agile-process
---

# Writing stories

State the user, the need and the value.
`)

	doc, err := ParseDocument(data, "file:///fallback", map[string]string{KeyAreaPath: "default", KeySystem: "Sys"})
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	if doc.SourceURI != "s3://kb/guides/story.md" {
		t.Errorf("SourceURI = %q", doc.SourceURI)
	}
	wantMeta := map[string]string{KeyWorkItemType: "User Story", KeyAreaPath: "agile-process", KeySystem: "Sys"}
	if !reflect.DeepEqual(doc.Metadata, wantMeta) {
		t.Errorf("Metadata = %v, want %v", doc.Metadata, wantMeta)
	}
	if doc.Content != "# Writing stories\n\nState the user, the need and the value." {
		t.Errorf("Content = %q", doc.Content)
	}
}

func TestParseDocument_NoFrontMatter(t *testing.T) {
	doc, err := ParseDocument([]byte("plain text\n"), "file:///x.txt", nil)
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	if doc.SourceURI != "file:///x.txt" || doc.Content != "plain text" {
		t.Errorf("doc = %+v", doc)
	}
}

func TestParseDocument_Unterminated(t *testing.T) {
	if _, err := ParseDocument([]byte("---\nsource: x\nno end"), "f", nil); err == nil {
		t.Error("expected error for unterminated front matter")
	}
}

func TestStore_ImportDir(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()

	files := map[string]string{
		"guide.md":         "---\nmetadata:\n  workItemType: Epic\n---\nEpics describe strategic goals.",
		"nested/notes.txt": "Feature flags live in the config service.",
		"image.png":        "not imported",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.ImportDir(context.Background(), dir, map[string]string{KeyAreaPath: "agile-process"})
	if err != nil {
		t.Fatalf("ImportDir failed: %v", err)
	}
	if n != 2 {
		t.Errorf("imported %d documents, want 2", n)
	}

	res, err := s.Search(context.Background(), "strategic goals", eqFilter(KeyWorkItemType, "Epic"), 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(res) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(res))
	}
	if filepath.Base(res[0].SourceURI) != "guide.md" {
		t.Errorf("SourceURI = %q", res[0].SourceURI)
	}
}
