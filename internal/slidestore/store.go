// Package slidestore holds the fixed slide corpus: the extractor's output
// and, when available, precomputed slide embeddings. Both are read-only
// after Load and safe to share across concurrent requests without locking.
package slidestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/slidewise/slidewise/internal/domain"
)

// Store is the immutable slide collection.
type Store struct {
	byID       map[string]domain.Slide
	ordered    []domain.Slide // sorted by ID, for deterministic iteration
	ids        []string
	embeddings map[string][]float32
	logger     *zap.Logger
}

// Load reads the extractor output (slide_id -> text) and the optional
// embeddings file (slide_id -> vector). A missing or unreadable slides file
// is a domain.ErrExtraction; a missing embeddings file only disables
// semantic scoring. An empty corpus is valid.
func Load(slidesPath, embeddingsPath string, logger *zap.Logger) (*Store, error) {
	data, err := os.ReadFile(filepath.Clean(slidesPath))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrExtraction, slidesPath, err)
	}

	texts := make(map[string]string)
	if err := json.Unmarshal(data, &texts); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrExtraction, slidesPath, err)
	}

	byID := make(map[string]domain.Slide, len(texts))
	ordered := make([]domain.Slide, 0, len(texts))
	for id, text := range texts {
		slide := domain.Slide{ID: id, Text: text}
		byID[id] = slide
		ordered = append(ordered, slide)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	ids := make([]string, len(ordered))
	for i, slide := range ordered {
		ids[i] = slide.ID
	}

	s := &Store{
		byID:    byID,
		ordered: ordered,
		ids:     ids,
		logger:  logger,
	}

	s.embeddings = loadEmbeddings(embeddingsPath, logger)
	logger.Info("Slide corpus loaded",
		zap.Int("slides", len(ordered)),
		zap.Int("embeddings", len(s.embeddings)),
	)
	return s, nil
}

// loadEmbeddings reads precomputed slide vectors. Any failure is logged and
// returns nil: semantic scoring is an optimization, not a requirement.
func loadEmbeddings(path string, logger *zap.Logger) map[string][]float32 {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		logger.Warn("Embeddings unavailable, semantic scoring disabled",
			zap.String("path", path), zap.Error(err))
		return nil
	}
	embeddings := make(map[string][]float32)
	if err := json.Unmarshal(data, &embeddings); err != nil {
		logger.Warn("Embeddings file unreadable, semantic scoring disabled",
			zap.String("path", path), zap.Error(err))
		return nil
	}
	return embeddings
}

// Len returns the number of slides.
func (s *Store) Len() int { return len(s.ordered) }

// Slides returns all slides in ID order. Callers must not mutate the
// returned slice.
func (s *Store) Slides() []domain.Slide { return s.ordered }

// Text returns the slide text for an ID.
func (s *Store) Text(id string) (string, bool) {
	slide, ok := s.byID[id]
	return slide.Text, ok
}

// IDs returns all slide IDs in sorted order. Callers must not mutate the
// returned slice.
func (s *Store) IDs() []string { return s.ids }

// Texts returns all slide texts in ID order.
func (s *Store) Texts() []string {
	texts := make([]string, len(s.ordered))
	for i, slide := range s.ordered {
		texts[i] = slide.Text
	}
	return texts
}

// Embedding returns the precomputed vector for a slide, if present.
func (s *Store) Embedding(id string) ([]float32, bool) {
	v, ok := s.embeddings[id]
	return v, ok
}

// HasEmbeddings reports whether any precomputed vectors were loaded.
func (s *Store) HasEmbeddings() bool { return len(s.embeddings) > 0 }
