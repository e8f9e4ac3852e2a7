// Package retrieval is a partitioned knowledge store with two
// interchangeable strategies: embedding-backed nearest-neighbor search and a
// lexical token-overlap fallback. The strategy is chosen by probing the
// embedding provider at construction time, and every individual call
// degrades to lexical scoring when the provider fails, so retrieval never
// hard-fails on an embedding outage.
package retrieval

import (
	"context"
	"errors"
	"math"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Reserved owner keys. Documents in these partitions are shared across
// principals but are still only returned when the partition is queried
// explicitly.
const (
	SystemLearningKey   = "SYSTEM_LEARNING"
	GlobalGuidelinesKey = "GLOBAL_GUIDELINES"
)

// DefaultDimensions matches text-embedding-004 output.
const DefaultDimensions = 768

const (
	defaultQueryLimit = 3
	probeTimeout      = 5 * time.Second
)

const (
	TaskDocument = "retrieval_document"
	TaskQuery    = "retrieval_query"
)

// Embedder turns text into fixed-dimension vectors. task is one of
// TaskDocument or TaskQuery.
type Embedder interface {
	Embed(ctx context.Context, text string, task string) ([]float32, error)
	Dimensions() int
}

// Mode is the active retrieval strategy.
type Mode string

const (
	ModeVector  Mode = "vector"
	ModeLexical Mode = "lexical"
)

var (
	ErrEmptyOwnerKey = errors.New("owner key is empty")
	ErrEmptyText     = errors.New("document text is empty")
)

type Config struct {
	Dir        string `envconfig:"DIR" split_words:"true" default:"data/vectors"`
	Zone       string `envconfig:"ZONE" split_words:"true" default:"clinical"`
	Dimensions int    `envconfig:"DIMENSIONS" split_words:"true" default:"768"`
}

type document struct {
	ID       int64          `json:"id"`
	OwnerKey string         `json:"owner_key"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
	SourceID string         `json:"source_id,omitempty"`

	// nil for lexical-only documents
	vector []float32
}

// Store is safe for concurrent use. Readers proceed in parallel; writers
// (Add, persistence) are mutually exclusive. No lock is held across a call
// to the embedding provider.
type Store struct {
	zone     string
	dir      string
	ndim     int
	embedder Embedder
	mode     Mode
	logger   zerolog.Logger

	mu     sync.RWMutex
	docs   map[int64]*document
	order  []int64
	seen   map[string]int64
	nextID int64
}

func New(cfg Config, embedder Embedder) (*Store, error) {
	zone := strings.ToLower(strings.TrimSpace(cfg.Zone))
	if zone == "" {
		zone = "clinical"
	}
	dir := strings.TrimSpace(cfg.Dir)
	if dir == "" {
		dir = "data/vectors"
	}
	ndim := cfg.Dimensions
	if ndim <= 0 {
		ndim = DefaultDimensions
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	s := &Store{
		zone:     zone,
		dir:      dir,
		ndim:     ndim,
		embedder: embedder,
		logger:   log.With().Str("component", "retrieval").Str("zone", zone).Logger(),
		docs:     make(map[int64]*document),
		seen:     make(map[string]int64),
	}

	s.mode = s.probeMode()
	if err := s.load(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to load persisted index, starting empty")
	}

	return s, nil
}

// probeMode verifies the provider actually answers with vectors of the
// configured dimension before committing to vector mode.
func (s *Store) probeMode() Mode {
	if s.embedder == nil {
		s.logger.Info().Msg("no embedding provider configured, using lexical retrieval")
		return ModeLexical
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	vec, err := s.embedder.Embed(ctx, "dimension probe", TaskDocument)
	if err != nil {
		s.logger.Warn().Err(err).Msg("embedding probe failed, using lexical retrieval")
		return ModeLexical
	}
	if len(vec) != s.ndim {
		s.logger.Warn().
			Int("got", len(vec)).
			Int("want", s.ndim).
			Msg("embedding probe returned wrong dimension, using lexical retrieval")
		return ModeLexical
	}
	return ModeVector
}

func (s *Store) Mode() Mode {
	return s.mode
}

// Add indexes a document under ownerKey. Adding an identical
// (ownerKey, text) pair twice is a no-op. An embedding failure degrades the
// document to lexical-only scoring; it never fails the add. A persistence
// failure is logged and retried on the next mutation.
func (s *Store) Add(ctx context.Context, ownerKey, text string, metadata map[string]any) error {
	ownerKey = strings.TrimSpace(ownerKey)
	if ownerKey == "" {
		return ErrEmptyOwnerKey
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}

	key := dedupeKey(ownerKey, text)

	s.mu.RLock()
	_, dup := s.seen[key]
	s.mu.RUnlock()
	if dup {
		return nil
	}

	var vector []float32
	if s.mode == ModeVector {
		vec, err := s.embedder.Embed(ctx, text, TaskDocument)
		switch {
		case err != nil:
			s.logger.Warn().Err(err).Msg("embedding failed, indexing document lexical-only")
		case len(vec) != s.ndim:
			s.logger.Warn().
				Int("got", len(vec)).
				Int("want", s.ndim).
				Msg("rejecting wrong-dimension vector, indexing document lexical-only")
		default:
			vector = vec
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.seen[key]; dup {
		return nil
	}

	s.nextID++
	doc := &document{
		ID:       s.nextID,
		OwnerKey: ownerKey,
		Text:     text,
		Metadata: metadata,
		vector:   vector,
	}
	s.docs[doc.ID] = doc
	s.order = append(s.order, doc.ID)
	s.seen[key] = doc.ID

	// saveLocked snapshots the full state, so a failed save is retried
	// implicitly by the next mutation
	if err := s.saveLocked(); err != nil {
		s.logger.Error().Err(err).Msg("index persistence failed, serving from memory")
	}

	return nil
}

// Query returns at most limit document texts ranked by relevance, scoped
// strictly to ownerKey. Global partitions are reachable only by naming them
// as the ownerKey.
func (s *Store) Query(ctx context.Context, ownerKey, text string, limit int) ([]string, error) {
	ownerKey = strings.TrimSpace(ownerKey)
	if ownerKey == "" {
		return nil, ErrEmptyOwnerKey
	}
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	var queryVec []float32
	if s.mode == ModeVector {
		vec, err := s.embedder.Embed(ctx, text, TaskQuery)
		if err != nil {
			s.logger.Debug().Err(err).Msg("query embedding failed, falling back to lexical scoring")
		} else if len(vec) == s.ndim {
			queryVec = vec
		}
	}

	queryTokens := tokenize(text)

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		id    int64
		score float64
	}

	candidates := make([]scored, 0, 16)
	for _, id := range s.order {
		doc := s.docs[id]
		if doc.OwnerKey != ownerKey {
			continue
		}

		var score float64
		if queryVec != nil && doc.vector != nil {
			score = cosine(queryVec, doc.vector)
		} else {
			score = overlapScore(queryTokens, tokenize(doc.Text))
		}
		if score <= 0 {
			continue
		}
		candidates = append(candidates, scored{id: id, score: score})
	}

	// ties break toward the earlier insertion for determinism
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].id < candidates[j].id
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]string, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, s.docs[c.id].Text)
	}
	return results, nil
}

// Pinned returns the texts of ownerKey documents flagged pinned=true in
// their metadata, in insertion order.
func (s *Store) Pinned(ownerKey string) []string {
	ownerKey = strings.TrimSpace(ownerKey)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var pinned []string
	for _, id := range s.order {
		doc := s.docs[id]
		if doc.OwnerKey != ownerKey {
			continue
		}
		if flag, ok := doc.Metadata["pinned"].(bool); ok && flag {
			pinned = append(pinned, doc.Text)
		}
	}
	return pinned
}

// Len reports the number of indexed documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func dedupeKey(ownerKey, text string) string {
	return ownerKey + "\x00" + text
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
