// Package app holds the career recommendation pipeline orchestrator.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"careercompass/internal/cache"
	"careercompass/internal/index"
	"careercompass/internal/kb"
	"careercompass/internal/logger"
	"careercompass/internal/model"
)

// Embedding APIs commonly limit batch size.
const embeddingBatchSize = 10

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrMissingCredential    = errors.New("generation credential missing")
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
)

// State is the index lifecycle phase of the orchestrator.
type State string

const (
	StateUninitialized State = "UNINITIALIZED"
	StateBuilding      State = "BUILDING"
	StateReady         State = "READY"
	StateRebuilding    State = "REBUILDING"
)

// Embedder maps text to fixed-dimension vectors. The implementation must be
// deterministic for a fixed model identifier.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces free text from a prompt using a caller-supplied credential.
type Generator interface {
	Complete(ctx context.Context, credential, prompt string) (string, error)
}

// RecordPublisher hands finished recommendations to the async persistence path.
type RecordPublisher interface {
	Publish(ctx context.Context, record model.RecommendationRecord) error
}

// Config fixes the orchestrator's index location and retrieval depth.
type Config struct {
	IndexDir       string
	Collection     string
	EmbeddingModel string
	TopK           int
}

// CareerService owns the pipeline lifecycle and exposes the composite
// operations: retrieve similar careers and recommend. One READY index serves
// unlimited concurrent readers; rebuilds hold the write lock for the whole
// staged build and swap, so in-flight readers finish against the old index
// and new readers wait for the swap.
type CareerService struct {
	cfg       Config
	loader    *kb.Loader
	chunker   *kb.Chunker
	embedder  Embedder
	generator Generator
	retCache  *cache.RetrievalCache // optional
	publisher RecordPublisher       // optional

	mu        sync.RWMutex
	state     State
	idx       *index.Index
	lastErr   error
	attempted bool
}

func NewCareerService(
	cfg Config,
	loader *kb.Loader,
	chunker *kb.Chunker,
	embedder Embedder,
	generator Generator,
	retCache *cache.RetrievalCache,
	publisher RecordPublisher,
) *CareerService {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	return &CareerService{
		cfg:       cfg,
		loader:    loader,
		chunker:   chunker,
		embedder:  embedder,
		generator: generator,
		retCache:  retCache,
		publisher: publisher,
		state:     StateUninitialized,
	}
}

// Init opens the persisted index or, failing that, builds it from the
// knowledge base. The load-or-build fallback runs at most once per process;
// repeated Init calls after a failure return the original error instead of
// retrying against a persistently broken store.
func (s *CareerService) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateReady {
		return nil
	}
	if s.attempted {
		return s.lastErr
	}
	s.attempted = true

	ix, err := index.Open(s.cfg.IndexDir, s.cfg.Collection)
	if err == nil && ix.EmbeddingModel() != s.cfg.EmbeddingModel {
		logger.L().Warn("persisted index built with different embedding model, rebuilding",
			zap.String("persisted", ix.EmbeddingModel()),
			zap.String("configured", s.cfg.EmbeddingModel))
		err = index.ErrNotFound
	}
	if err == nil {
		s.idx = ix
		s.state = StateReady
		logger.L().Info("vector index loaded",
			zap.String("collection", ix.Collection()),
			zap.Int("entries", ix.Size()))
		return nil
	}

	logger.L().Info("no usable persisted index, building from knowledge base", zap.Error(err))
	s.state = StateBuilding
	ix, buildErr := s.build(ctx)
	if buildErr != nil {
		s.state = StateUninitialized
		s.lastErr = buildErr
		return buildErr
	}
	s.idx = ix
	s.state = StateReady
	s.lastErr = nil
	return nil
}

// Rebuild re-runs the full load-chunk-embed-build pipeline and replaces the
// active index. A failed rebuild leaves the service UNINITIALIZED so callers
// fail explicitly instead of reading stale results.
func (s *CareerService) Rebuild(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateReady {
		s.state = StateRebuilding
	} else {
		s.state = StateBuilding
	}

	ix, err := s.build(ctx)
	if err != nil {
		s.state = StateUninitialized
		s.idx = nil
		s.lastErr = err
		return err
	}
	s.idx = ix
	s.state = StateReady
	s.lastErr = nil
	return nil
}

// build runs Loader -> Chunker -> Embedder -> index.Build. Callers hold the
// write lock.
func (s *CareerService) build(ctx context.Context) (*index.Index, error) {
	sections, err := s.loader.Load()
	if err != nil {
		return nil, err
	}

	chunks := s.chunker.Split(sections)
	if len(chunks) == 0 {
		return nil, kb.ErrEmptyKnowledgeBase
	}
	logger.L().Info("knowledge base chunked",
		zap.Int("sections", len(sections)), zap.Int("chunks", len(chunks)))

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}

	var vectors [][]float32
	for start := 0; start < len(texts); start += embeddingBatchSize {
		end := start + embeddingBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := s.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed chunk batch failed: %w", err)
		}
		vectors = append(vectors, batch...)
	}

	meta := index.Metadata{
		Collection:     s.cfg.Collection,
		EmbeddingModel: s.cfg.EmbeddingModel,
	}
	ix, err := index.Build(s.cfg.IndexDir, meta, chunks, vectors)
	if err != nil {
		return nil, fmt.Errorf("build vector index failed: %w", err)
	}
	logger.L().Info("vector index built",
		zap.String("collection", meta.Collection), zap.Int("entries", ix.Size()))
	return ix, nil
}

// RetrieveSimilar embeds the query and returns the top-k nearest chunks with
// similarity scores, best first.
func (s *CareerService) RetrieveSimilar(ctx context.Context, query string, k int) ([]model.RetrievalResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidInput
	}
	if k <= 0 {
		k = s.cfg.TopK
	}

	s.mu.RLock()
	state, ix := s.state, s.idx
	s.mu.RUnlock()
	if state != StateReady || ix == nil {
		return nil, index.ErrUninitialized
	}

	if s.retCache != nil {
		if results, ok := s.retCache.Get(ctx, ix.Collection(), ix.CreatedAt(), query, k); ok {
			return results, nil
		}
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}
	results, err := ix.Search(vec, k)
	if err != nil {
		return nil, err
	}

	if s.retCache != nil {
		s.retCache.Set(ctx, ix.Collection(), ix.CreatedAt(), query, k, results)
	}
	return results, nil
}

// Recommend retrieves context for the user profile and asks the generation
// service for personalized advice. Generation failures are swallowed into a
// degraded result with confidence 0 so the retrieval work is never lost;
// retrieval failures propagate.
func (s *CareerService) Recommend(ctx context.Context, query, credential string) (*model.Recommendation, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidInput
	}

	results, err := s.RetrieveSimilar(ctx, query, s.cfg.TopK)
	if err != nil {
		if errors.Is(err, index.ErrUninitialized) {
			return nil, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
		}
		return nil, err
	}

	if credential == "" {
		return nil, ErrMissingCredential
	}

	contexts := make([]string, len(results))
	for i, r := range results {
		contexts[i] = r.Chunk.Text
	}
	prompt := buildPrompt(query, strings.Join(contexts, "\n\n"))

	rec := &model.Recommendation{Similar: results}
	text, genErr := s.generator.Complete(ctx, credential, prompt)
	if genErr != nil {
		logger.L().Warn("generation service failed, returning degraded recommendation", zap.Error(genErr))
		rec.Text = fmt.Sprintf("Error in recommendation generation: %v", genErr)
		rec.Confidence = 0.0
		rec.Degraded = true
	} else {
		rec.Text = strings.TrimSpace(text)
		rec.Confidence = confidenceFromResults(results)
	}

	s.publishRecord(ctx, query, rec)
	return rec, nil
}

// Status is an operational snapshot of the lifecycle state and active index.
type Status struct {
	State          State     `json:"state"`
	Detail         string    `json:"detail,omitempty"`
	IndexSize      int       `json:"index_size"`
	Collection     string    `json:"collection,omitempty"`
	EmbeddingModel string    `json:"embedding_model,omitempty"`
	BuiltAt        time.Time `json:"built_at,omitempty"`
}

func (s *CareerService) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{State: s.state}
	if s.lastErr != nil {
		st.Detail = s.lastErr.Error()
	}
	if s.idx != nil {
		st.IndexSize = s.idx.Size()
		st.Collection = s.idx.Collection()
		st.EmbeddingModel = s.idx.EmbeddingModel()
		st.BuiltAt = s.idx.CreatedAt()
	}
	return st
}

// confidenceFromResults is the mean retrieval similarity clamped to [0, 1].
// Zero results fall back to 0.5; this is a documented default, not a
// calibrated probability.
func confidenceFromResults(results []model.RetrievalResult) float64 {
	if len(results) == 0 {
		return 0.5
	}
	sum := 0.0
	for _, r := range results {
		sum += r.Score
	}
	mean := sum / float64(len(results))
	if mean < 0 {
		return 0
	}
	if mean > 1 {
		return 1
	}
	return mean
}

func (s *CareerService) publishRecord(ctx context.Context, query string, rec *model.Recommendation) {
	if s.publisher == nil {
		return
	}
	record := model.RecommendationRecord{
		Query:      query,
		Text:       rec.Text,
		Confidence: rec.Confidence,
		Degraded:   rec.Degraded,
	}
	if err := s.publisher.Publish(ctx, record); err != nil {
		logger.L().Warn("publish recommendation record failed", zap.Error(err))
	}
}
