package app

import (
	"context"

	"docchat/internal/ai"
	"docchat/internal/model"
)

// Narrow capability interfaces for the external services the core
// coordinates. Concrete clients are injected once at construction time so a
// provider can be swapped without touching orchestration logic.

type CompletionProvider interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
}

type EmbeddingProvider interface {
	Embed(ctx context.Context, cfg ai.EmbeddingConfig, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, cfg ai.EmbeddingConfig, texts []string) ([][]float32, error)
}

type TextExtractionProvider interface {
	Extract(ctx context.Context, data []byte, mediaType string) (string, error)
}

// IndexPublisher hands a document off for asynchronous embedding and
// indexing. Publishing failures never fail the request that triggered them.
type IndexPublisher interface {
	PublishIndexJob(ctx context.Context, documentID uint, text string) error
}

// Store contracts owned by the data layer. The orchestrator relies on
// read-after-write consistency: a ListMessages immediately following Create
// by the same caller observes that write.

type DocumentStore interface {
	Create(doc *model.Document) error
	GetByIDAndUserID(id, userID uint) (*model.Document, error)
	ListByUserID(userID uint) ([]model.Document, error)
	DeleteByIDAndUserID(id, userID uint) error
}

type ConversationStore interface {
	Create(conversation *model.Conversation) error
	GetByID(id uint) (*model.Conversation, error)
	GetByDocumentID(documentID uint) (*model.Conversation, error)
	DeleteByID(id uint) error
}

type MessageStore interface {
	Create(message *model.Message) error
	ListByConversationID(conversationID uint) ([]model.Message, error)
	DeleteByConversationID(conversationID uint) error
}

type EmbeddingStore interface {
	Upsert(record *model.EmbeddingRecord) error
	ListAll() ([]model.EmbeddingRecord, error)
	DeleteByDocumentID(documentID uint) error
}

type HistoryCache interface {
	GetHistory(ctx context.Context, conversationID uint) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, conversationID uint, messages []model.Message) error
	DeleteHistory(ctx context.Context, conversationID uint) error
	MarkDirty(ctx context.Context, conversationID uint) error
	IsDirty(ctx context.Context, conversationID uint) (bool, error)
}
