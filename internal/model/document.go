package model

import "time"

// Media types accepted for upload.
const (
	MediaTypePDF   = "pdf"
	MediaTypeImage = "image"
)

// Document stores the uploaded file and the text extracted from it.
// Content and ExtractedText are immutable once extraction has completed.
type Document struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	Filename      string    `gorm:"size:256;not null" json:"filename"`
	MediaType     string    `gorm:"size:16;not null" json:"media_type"`
	MimeType      string    `gorm:"size:64;not null" json:"mime_type"`
	Size          int64     `gorm:"not null" json:"size"`
	Content       []byte    `gorm:"type:mediumblob" json:"-"`
	ExtractedText string    `gorm:"type:mediumtext" json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}
