package model

import "time"

// Conversation is the single chat attached to a document. It is created
// together with the document and removed only when the document is deleted.
type Conversation struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID uint      `gorm:"not null;uniqueIndex" json:"document_id"`
	CreatedAt  time.Time `json:"created_at"`
}
