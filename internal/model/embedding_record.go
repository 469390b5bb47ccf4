package model

import (
	"encoding/json"
	"time"
)

// EmbeddingRecord holds the dense vector indexed for a document, one row per
// document. Embedding is stored as a JSON array of float32 for portability.
// Excerpt keeps the leading span of the embedded text for search results.
type EmbeddingRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID uint      `gorm:"not null;uniqueIndex" json:"document_id"`
	Embedding  string    `gorm:"type:mediumtext" json:"-"`
	Excerpt    string    `gorm:"type:text" json:"excerpt"`
	CreatedAt  time.Time `json:"created_at"`
}

// EmbeddingVector returns the parsed vector; empty on parse error.
func (r *EmbeddingRecord) EmbeddingVector() []float32 {
	if r.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(r.Embedding), &v)
	return v
}

// SetEmbedding stores the vector as JSON.
func (r *EmbeddingRecord) SetEmbedding(vec []float32) {
	if len(vec) == 0 {
		r.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	r.Embedding = string(b)
}
