package index

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/minddojo/sales-assistant/internal/record"
	"github.com/minddojo/sales-assistant/internal/testutil"
)

type fakeSource struct {
	courses      []record.Course
	facilitators []record.Facilitator
	err          error
	listCalls    int
}

func (f *fakeSource) ListCourses(ctx context.Context) ([]record.Course, error) {
	f.listCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.courses, nil
}

func (f *fakeSource) ListFacilitators(ctx context.Context) ([]record.Facilitator, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.facilitators, nil
}

// keywordEmbedding maps text to keyword occurrence counts so that texts
// sharing vocabulary land close together under cosine similarity. The
// trailing constant keeps every vector non-zero.
func keywordEmbedding(ctx context.Context, text string) ([]float32, error) {
	keywords := []string{"leadership", "design", "conflict", "innovation", "facilitator"}
	vec := make([]float32, len(keywords)+1)
	lower := strings.ToLower(text)
	for i, kw := range keywords {
		vec[i] = float32(strings.Count(lower, kw))
	}
	vec[len(keywords)] = 0.1
	return vec, nil
}

func catalogSource() *fakeSource {
	return &fakeSource{
		courses: []record.Course{
			{
				ID:          "design-thinking",
				Title:       "Design Thinking",
				Description: "design design design workshop",
				Price:       "5000 THB",
			},
			{
				ID:          "leading-teams",
				Title:       "Leading Teams",
				Description: "leadership leadership for managers",
				Price:       "7000 THB",
			},
		},
		facilitators: []record.Facilitator{
			{
				ID:        "nok",
				Name:      "Nok",
				Expertise: []string{"conflict resolution"},
			},
		},
	}
}

func newTestBuilder(t *testing.T, path string, source RecordSource) *Builder {
	t.Helper()
	b, err := NewBuilder(BuilderConfig{
		Source:       source,
		Embedding:    keywordEmbedding,
		Path:         path,
		ChunkSize:    1200,
		ChunkOverlap: 200,
	})
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	return b
}

func TestNewBuilderValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  BuilderConfig
	}{
		{"missing source", BuilderConfig{Embedding: keywordEmbedding, Path: "x"}},
		{"missing embedding", BuilderConfig{Source: &fakeSource{}, Path: "x"}},
		{"missing path", BuilderConfig{Source: &fakeSource{}, Embedding: keywordEmbedding}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewBuilder(tt.cfg); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestBuildOrLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("builds from catalog", func(t *testing.T) {
		source := catalogSource()
		b := newTestBuilder(t, t.TempDir(), source)

		retriever, err := b.BuildOrLoad(ctx)
		if err != nil {
			t.Fatalf("BuildOrLoad: %v", err)
		}
		if got := retriever.Count(); got != 3 {
			t.Errorf("Count = %d, want 3", got)
		}
	})

	t.Run("loads without rebuilding", func(t *testing.T) {
		path := t.TempDir()
		source := catalogSource()
		b := newTestBuilder(t, path, source)

		if _, err := b.BuildOrLoad(ctx); err != nil {
			t.Fatalf("first BuildOrLoad: %v", err)
		}
		if source.listCalls != 1 {
			t.Fatalf("listCalls after build = %d, want 1", source.listCalls)
		}

		// A fresh builder over the same artifact must not touch the catalog.
		b2 := newTestBuilder(t, path, source)
		retriever, err := b2.BuildOrLoad(ctx)
		if err != nil {
			t.Fatalf("second BuildOrLoad: %v", err)
		}
		if source.listCalls != 1 {
			t.Errorf("listCalls after reload = %d, want 1", source.listCalls)
		}
		if got := retriever.Count(); got != 3 {
			t.Errorf("Count = %d, want 3", got)
		}
	})

	t.Run("empty catalog fails", func(t *testing.T) {
		b := newTestBuilder(t, t.TempDir(), &fakeSource{})
		if _, err := b.BuildOrLoad(ctx); !errors.Is(err, ErrEmptyCatalog) {
			t.Errorf("err = %v, want ErrEmptyCatalog", err)
		}
	})

	t.Run("source failure propagates", func(t *testing.T) {
		boom := errors.New("connection refused")
		b := newTestBuilder(t, t.TempDir(), &fakeSource{err: boom})
		if _, err := b.BuildOrLoad(ctx); !errors.Is(err, boom) {
			t.Errorf("err = %v, want wrapped %v", err, boom)
		}
	})
}

func TestRetrieverSearch(t *testing.T) {
	ctx := context.Background()
	b := newTestBuilder(t, t.TempDir(), catalogSource())
	retriever, err := b.BuildOrLoad(ctx)
	if err != nil {
		t.Fatalf("BuildOrLoad: %v", err)
	}

	t.Run("most similar chunk first", func(t *testing.T) {
		chunks, err := retriever.Search(ctx, "leadership training", 2)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(chunks) != 2 {
			t.Fatalf("got %d chunks, want 2", len(chunks))
		}
		if chunks[0].Metadata[MetaTitle] != "Leading Teams" {
			t.Errorf("top chunk = %q, want Leading Teams", chunks[0].Metadata[MetaTitle])
		}
		if chunks[0].Similarity < chunks[1].Similarity {
			t.Errorf("results not ordered by similarity: %v then %v",
				chunks[0].Similarity, chunks[1].Similarity)
		}
	})

	t.Run("k clamped to index size", func(t *testing.T) {
		chunks, err := retriever.Search(ctx, "design", 50)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(chunks) != 3 {
			t.Errorf("got %d chunks, want 3", len(chunks))
		}
	})

	t.Run("metadata survives the round trip", func(t *testing.T) {
		chunks, err := retriever.Search(ctx, "conflict", 1)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(chunks) != 1 {
			t.Fatalf("got %d chunks, want 1", len(chunks))
		}
		if chunks[0].Type() != TypeFacilitator {
			t.Errorf("Type = %q, want %q", chunks[0].Type(), TypeFacilitator)
		}
		if chunks[0].Metadata[MetaRecordID] != "nok" {
			t.Errorf("record_id = %q, want nok", chunks[0].Metadata[MetaRecordID])
		}
	})

	t.Run("empty query returns nothing", func(t *testing.T) {
		chunks, err := retriever.Search(ctx, "", 4)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(chunks) != 0 {
			t.Errorf("got %d chunks, want 0", len(chunks))
		}
	})

	t.Run("non-positive k returns nothing", func(t *testing.T) {
		chunks, err := retriever.Search(ctx, "design", 0)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(chunks) != 0 {
			t.Errorf("got %d chunks, want 0", len(chunks))
		}
	})
}

func TestBuilderReloadReturnsSameResults(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir()

	build := func() *Retriever {
		t.Helper()
		builder, err := NewBuilder(BuilderConfig{
			Source:    catalogSource(),
			Embedding: testutil.HashEmbedding,
			Path:      path,
		})
		if err != nil {
			t.Fatalf("NewBuilder: %v", err)
		}
		retriever, err := builder.BuildOrLoad(ctx)
		if err != nil {
			t.Fatalf("BuildOrLoad: %v", err)
		}
		return retriever
	}

	first := mustSearch(t, ctx, build(), "leadership for managers")
	reloaded := mustSearch(t, ctx, build(), "leadership for managers")

	if len(first) == 0 || len(reloaded) == 0 {
		t.Fatalf("got %d then %d chunks, want results from both", len(first), len(reloaded))
	}
	if first[0].ID != reloaded[0].ID {
		t.Errorf("top chunk changed across reload: %q then %q", first[0].ID, reloaded[0].ID)
	}
}

func mustSearch(t *testing.T, ctx context.Context, r *Retriever, query string) []Chunk {
	t.Helper()
	chunks, err := r.Search(ctx, query, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	return chunks
}
