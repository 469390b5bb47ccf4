package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"docchat/internal/ai"
	"docchat/internal/model"
)

const (
	defaultTopK     = 5
	excerptMaxRunes = 500
)

// DocumentMatch is one ranked result of a similarity query.
type DocumentMatch struct {
	DocumentID uint    `json:"document_id"`
	Excerpt    string  `json:"excerpt"`
	Score      float32 `json:"score"`
}

// VectorIndex embeds document text and answers nearest-neighbor queries over
// the stored vectors. The backing table is migrated on startup, so the index
// exists from first use; an index with no entries answers with no results.
type VectorIndex struct {
	store EmbeddingStore
	llm   EmbeddingProvider
	cfg   ai.EmbeddingConfig
}

func NewVectorIndex(store EmbeddingStore, llm EmbeddingProvider, cfg ai.EmbeddingConfig) *VectorIndex {
	return &VectorIndex{store: store, llm: llm, cfg: cfg}
}

// Upsert embeds text and stores it under documentID, replacing any previous
// entry for the same document.
func (v *VectorIndex) Upsert(ctx context.Context, documentID uint, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("nothing to index for document %d", documentID)
	}

	vector, err := v.llm.Embed(ctx, v.cfg, text)
	if err != nil {
		return fmt.Errorf("embed document %d failed: %w", documentID, err)
	}

	record := &model.EmbeddingRecord{
		DocumentID: documentID,
		Excerpt:    truncateRunes(text, excerptMaxRunes),
	}
	record.SetEmbedding(vector)
	return v.store.Upsert(record)
}

// Query returns up to k documents from scope nearest to the query text, best
// match first. Records outside scope are never ranked or returned. An empty
// index or an empty scope yields an empty result, not an error, and skips the
// embedding call.
func (v *VectorIndex) Query(ctx context.Context, query string, k int, scope map[uint]bool) ([]DocumentMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidRequest
	}
	if k <= 0 {
		k = defaultTopK
	}

	records, err := v.store.ListAll()
	if err != nil {
		return nil, err
	}
	candidates := make([]model.EmbeddingRecord, 0, len(records))
	for i := range records {
		if scope[records[i].DocumentID] {
			candidates = append(candidates, records[i])
		}
	}
	if len(candidates) == 0 {
		return []DocumentMatch{}, nil
	}

	queryVec, err := v.llm.Embed(ctx, v.cfg, query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}

	matches := make([]DocumentMatch, 0, len(candidates))
	for i := range candidates {
		matches = append(matches, DocumentMatch{
			DocumentID: candidates[i].DocumentID,
			Excerpt:    candidates[i].Excerpt,
			Score:      cosineSimilarity(queryVec, candidates[i].EmbeddingVector()),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

// Remove drops the entry for documentID; removing an unindexed document is a
// no-op.
func (v *VectorIndex) Remove(documentID uint) error {
	return v.store.DeleteByDocumentID(documentID)
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
