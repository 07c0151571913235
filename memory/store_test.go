package memory

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

// stubEmbedder returns canned vectors keyed by text, with a tracked call
// count so caching behavior is observable.
type stubEmbedder struct {
	vectors map[string][]float32
	calls   int
	err     error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if vec, ok := s.vectors[text]; ok {
		return vec, nil
	}
	return []float32{1, 0, 0}, nil
}

func (s *stubEmbedder) Name() string { return "stub" }

func openTestStore(t *testing.T, embedder *stubEmbedder) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "memory.db"), embedder, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordThenQueryTopRank(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"deploy redis with password 123456": {1, 0, 0},
		"deploy another redis":              {0.9, 0.1, 0},
		"configure nginx logging":           {0, 0, 1},
	}}
	store := openTestStore(t, embedder)
	ctx := context.Background()

	store.Record(ctx, "configure nginx logging", Metadata{Outcome: "success"})
	store.Record(ctx, "deploy redis with password 123456", Metadata{Outcome: "success", Tags: []string{"deploy_service"}})

	results := store.Query(ctx, "deploy another redis", 5, 0.35)
	if len(results) == 0 {
		t.Fatal("no results")
	}
	if results[0].Text != "deploy redis with password 123456" {
		t.Errorf("top result = %q", results[0].Text)
	}
	if results[0].Similarity <= 0.35 {
		t.Errorf("top similarity = %v", results[0].Similarity)
	}

	// Querying with the identical text scores the maximum similarity.
	exact := store.Query(ctx, "deploy redis with password 123456", 1, 0.35)
	if len(exact) != 1 || exact[0].Similarity < 0.999 {
		t.Errorf("exact-match query = %+v", exact)
	}
}

func TestQueryThresholdAndTopK(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"q":        {1, 0, 0},
		"close":    {0.95, 0.05, 0},
		"closer":   {0.99, 0.01, 0},
		"far away": {0, 1, 0},
	}}
	store := openTestStore(t, embedder)
	ctx := context.Background()

	for _, text := range []string{"close", "closer", "far away"} {
		store.Record(ctx, text, Metadata{})
	}

	results := store.Query(ctx, "q", 5, 0.5)
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2 (orthogonal record filtered)", len(results))
	}
	if results[0].Text != "closer" {
		t.Errorf("order wrong: first = %q", results[0].Text)
	}

	// k caps the result set.
	if got := store.Query(ctx, "q", 1, 0.5); len(got) != 1 {
		t.Errorf("top-1 query returned %d records", len(got))
	}
}

func TestQueryEmptyStore(t *testing.T) {
	store := openTestStore(t, &stubEmbedder{})

	if results := store.Query(context.Background(), "anything", 5, 0.1); len(results) != 0 {
		t.Errorf("empty store returned %d records", len(results))
	}
}

func TestRecordEmbedFailureDegrades(t *testing.T) {
	embedder := &stubEmbedder{err: errors.New("embedding service down")}
	store := openTestStore(t, embedder)
	ctx := context.Background()

	// Must not panic or error; the record is simply skipped.
	store.Record(ctx, "deploy redis", Metadata{Outcome: "success"})

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0 after failed embedding", count)
	}

	// Query degrades to empty, not error.
	if results := store.Query(ctx, "deploy redis", 5, 0.1); results != nil {
		t.Errorf("query after embed failure = %v, want nil", results)
	}
}

func TestEmbedCache(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{}}
	store := openTestStore(t, embedder)
	ctx := context.Background()

	store.Record(ctx, "same text", Metadata{})
	callsAfterFirst := embedder.calls
	store.Record(ctx, "same text", Metadata{})

	if embedder.calls != callsAfterFirst {
		t.Errorf("identical text re-embedded: calls went %d -> %d", callsAfterFirst, embedder.calls)
	}

	count, _ := store.Count()
	if count != 2 {
		t.Errorf("count = %d, want 2 (cache dedupes embeddings, not records)", count)
	}
}

func TestPurge(t *testing.T) {
	store := openTestStore(t, &stubEmbedder{})
	ctx := context.Background()

	store.Record(ctx, "one", Metadata{})
	store.Record(ctx, "two", Metadata{})

	if err := store.Purge(); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	count, _ := store.Count()
	if count != 0 {
		t.Errorf("count after purge = %d", count)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"mismatched length", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("cosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}
