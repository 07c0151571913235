package memory

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"dockhand/logging"
	"dockhand/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Record is one stored interaction. Records are append-only: never edited,
// individually deleted, or re-embedded.
type Record struct {
	ID         string
	Text       string
	Outcome    string
	Tags       []string
	CreatedAt  time.Time
	Similarity float64
}

// Metadata accompanies a recorded interaction.
type Metadata struct {
	Outcome string
	Tags    []string
}

// Options tune retrieval and embedding behavior. Zero values fall back to
// the defaults in config.DefaultSettings.
type Options struct {
	ChunkRunes   int
	EmbedTimeout time.Duration
}

// Store is the sqlite-backed vector memory.
type Store struct {
	db       *sql.DB
	embedder model.Embedder
	opts     Options
}

const schema = `
CREATE TABLE IF NOT EXISTS memories (
	id         TEXT PRIMARY KEY,
	text       TEXT NOT NULL,
	embedding  TEXT NOT NULL,
	outcome    TEXT NOT NULL DEFAULT '',
	tags       TEXT NOT NULL DEFAULT '[]',
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS embed_cache (
	hash      TEXT PRIMARY KEY,
	embedding TEXT NOT NULL
);
`

// Open opens (or creates) the memory database at path.
func Open(path string, embedder model.Embedder, opts Options) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize memory schema: %w", err)
	}

	if opts.ChunkRunes <= 0 {
		opts.ChunkRunes = 2000
	}
	if opts.EmbedTimeout <= 0 {
		opts.EmbedTimeout = 10 * time.Second
	}

	return &Store{db: db, embedder: embedder, opts: opts}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record embeds text and appends an immutable record. Embedding failure is
// a non-fatal degradation: it is logged and the record is skipped, but no
// error reaches the caller.
func (s *Store) Record(ctx context.Context, text string, meta Metadata) {
	vec, err := s.embed(ctx, text)
	if err != nil {
		logging.Named("memory").Warn("embedding failed, interaction not recorded",
			zap.Error(err))
		return
	}

	vecJSON, _ := json.Marshal(vec)
	tagsJSON, _ := json.Marshal(meta.Tags)

	_, err = s.db.Exec(
		"INSERT INTO memories (id, text, embedding, outcome, tags, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		uuid.New().String(), text, string(vecJSON), meta.Outcome, string(tagsJSON),
		time.Now().UnixNano(),
	)
	if err != nil {
		logging.Named("memory").Warn("failed to persist memory record", zap.Error(err))
	}
}

// Query returns up to k records with similarity ≥ threshold, most similar
// first, ties broken by recency. An empty store or a failing embedder both
// yield an empty result, never an error.
func (s *Store) Query(ctx context.Context, text string, k int, threshold float64) []Record {
	if k <= 0 {
		return nil
	}

	queryVec, err := s.embed(ctx, text)
	if err != nil {
		logging.Named("memory").Warn("embedding failed, retrieval skipped",
			zap.Error(err))
		return nil
	}

	rows, err := s.db.Query("SELECT id, text, embedding, outcome, tags, created_at FROM memories")
	if err != nil {
		logging.Named("memory").Warn("memory scan failed", zap.Error(err))
		return nil
	}
	defer rows.Close()

	var results []Record
	for rows.Next() {
		var rec Record
		var vecJSON, tagsJSON string
		var createdNanos int64
		if err := rows.Scan(&rec.ID, &rec.Text, &vecJSON, &rec.Outcome, &tagsJSON, &createdNanos); err != nil {
			continue
		}

		var vec []float32
		if err := json.Unmarshal([]byte(vecJSON), &vec); err != nil {
			continue
		}
		json.Unmarshal([]byte(tagsJSON), &rec.Tags)
		rec.CreatedAt = time.Unix(0, createdNanos)

		rec.Similarity = cosineSimilarity(queryVec, vec)
		if rec.Similarity >= threshold {
			results = append(results, rec)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

// Count returns the number of stored records.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM memories").Scan(&n)
	return n, err
}

// Purge drops all records and the embedding cache. This is the only
// deletion path; individual records are never removed.
func (s *Store) Purge() error {
	if _, err := s.db.Exec("DELETE FROM memories"); err != nil {
		return fmt.Errorf("failed to purge memories: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM embed_cache"); err != nil {
		return fmt.Errorf("failed to purge embedding cache: %w", err)
	}
	return nil
}

// embed produces a single vector for text: chunk at the fixed boundary,
// embed each chunk (cache by content hash), average. Identical text is
// never re-embedded.
func (s *Store) embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.EmbedTimeout)
	defer cancel()

	chunks := ChunkText(text, s.opts.ChunkRunes)

	var sum []float32
	for _, chunk := range chunks {
		vec, err := s.embedCached(ctx, chunk)
		if err != nil {
			return nil, err
		}

		if sum == nil {
			sum = make([]float32, len(vec))
		}
		if len(vec) != len(sum) {
			return nil, fmt.Errorf("embedding dimension mismatch: %d != %d", len(vec), len(sum))
		}
		for i, v := range vec {
			sum[i] += v
		}
	}

	if len(chunks) > 1 {
		n := float32(len(chunks))
		for i := range sum {
			sum[i] /= n
		}
	}
	return sum, nil
}

func (s *Store) embedCached(ctx context.Context, text string) ([]float32, error) {
	h := sha256.Sum256([]byte(text))
	key := hex.EncodeToString(h[:])

	var cached string
	err := s.db.QueryRow("SELECT embedding FROM embed_cache WHERE hash = ?", key).Scan(&cached)
	if err == nil {
		var vec []float32
		if err := json.Unmarshal([]byte(cached), &vec); err == nil {
			return vec, nil
		}
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	vecJSON, _ := json.Marshal(vec)
	if _, err := s.db.Exec(
		"INSERT OR REPLACE INTO embed_cache (hash, embedding) VALUES (?, ?)",
		key, string(vecJSON),
	); err != nil {
		logging.Named("memory").Warn("failed to cache embedding", zap.Error(err))
	}

	return vec, nil
}

// cosineSimilarity returns a value in [-1, 1]; zero-magnitude or mismatched
// vectors score zero.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, aMag, bMag float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		aMag += float64(a[i]) * float64(a[i])
		bMag += float64(b[i]) * float64(b[i])
	}

	if aMag == 0 || bMag == 0 {
		return 0
	}
	return dot / (math.Sqrt(aMag) * math.Sqrt(bMag))
}
