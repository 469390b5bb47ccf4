package app

import (
	"context"
	"errors"
	"log"
	"strings"

	"docchat/internal/extract"
	"docchat/internal/model"
)

var ErrDocumentNotFound = errors.New("document not found")

// DocumentService handles ingestion and deletion of documents together with
// the conversation and index entries derived from them.
type DocumentService struct {
	documentRepo     DocumentStore
	conversationRepo ConversationStore
	messageRepo      MessageStore
	extractor        TextExtractionProvider
	summarizer       *Summarizer
	index            *VectorIndex
	publisher        IndexPublisher
	historyCache     HistoryCache
}

func NewDocumentService(
	documentRepo DocumentStore,
	conversationRepo ConversationStore,
	messageRepo MessageStore,
	extractor TextExtractionProvider,
	summarizer *Summarizer,
	index *VectorIndex,
	publisher IndexPublisher,
	historyCache HistoryCache,
) *DocumentService {
	return &DocumentService{
		documentRepo:     documentRepo,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		extractor:        extractor,
		summarizer:       summarizer,
		index:            index,
		publisher:        publisher,
		historyCache:     historyCache,
	}
}

type IngestInput struct {
	UserID   uint
	Filename string
	MimeType string
	Data     []byte
}

type IngestResult struct {
	Document       model.Document `json:"document"`
	ConversationID uint           `json:"conversation_id"`
}

// Ingest extracts text from the upload, stores the document, creates its
// conversation seeded with a system summary message, and hands the text off
// for asynchronous indexing. Only unsupported formats and storage failures
// abort ingestion; degraded OCR, summarization, and indexing do not.
func (s *DocumentService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	if input.UserID == 0 || len(input.Data) == 0 {
		return nil, ErrInvalidRequest
	}

	mediaType, err := mediaTypeFor(input.MimeType)
	if err != nil {
		return nil, err
	}

	text, err := s.extractor.Extract(ctx, input.Data, mediaType)
	if err != nil {
		return nil, err
	}

	filename := strings.TrimSpace(input.Filename)
	if filename == "" {
		filename = "untitled"
	}

	doc := &model.Document{
		UserID:        input.UserID,
		Filename:      filename,
		MediaType:     mediaType,
		MimeType:      input.MimeType,
		Size:          int64(len(input.Data)),
		Content:       input.Data,
		ExtractedText: text,
	}
	if err := s.documentRepo.Create(doc); err != nil {
		return nil, err
	}

	conversation := &model.Conversation{DocumentID: doc.ID}
	if err := s.conversationRepo.Create(conversation); err != nil {
		return nil, err
	}

	summary := s.summarizer.Summarize(ctx, indexableText(text))
	seed := &model.Message{
		ConversationID: conversation.ID,
		Role:           model.RoleSystem,
		Content:        summary,
	}
	if err := s.messageRepo.Create(seed); err != nil {
		return nil, err
	}

	if indexable := indexableText(text); indexable != "" {
		if err := s.publisher.PublishIndexJob(ctx, doc.ID, indexable); err != nil {
			// The document is already committed; indexing lag is acceptable,
			// losing the upload is not.
			log.Printf("enqueue index job for document %d failed: %v", doc.ID, err)
		}
	}

	result := *doc
	result.Content = nil
	return &IngestResult{Document: result, ConversationID: conversation.ID}, nil
}

func (s *DocumentService) ListDocuments(userID uint) ([]model.Document, error) {
	if userID == 0 {
		return nil, ErrInvalidRequest
	}
	return s.documentRepo.ListByUserID(userID)
}

func (s *DocumentService) GetDocument(userID, id uint) (*model.Document, error) {
	if userID == 0 || id == 0 {
		return nil, ErrInvalidRequest
	}
	doc, err := s.documentRepo.GetByIDAndUserID(id, userID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// Delete removes a document and cascades to its conversation, messages, and
// index entry, children first. Deleting an id a second time reports not
// found.
func (s *DocumentService) Delete(ctx context.Context, userID, id uint) error {
	if userID == 0 || id == 0 {
		return ErrInvalidRequest
	}

	doc, err := s.documentRepo.GetByIDAndUserID(id, userID)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}

	conversation, err := s.conversationRepo.GetByDocumentID(doc.ID)
	if err != nil {
		return err
	}
	if conversation != nil {
		if err := s.messageRepo.DeleteByConversationID(conversation.ID); err != nil {
			return err
		}
		if err := s.conversationRepo.DeleteByID(conversation.ID); err != nil {
			return err
		}
		if s.historyCache != nil {
			_ = s.historyCache.DeleteHistory(ctx, conversation.ID)
		}
	}

	if err := s.index.Remove(doc.ID); err != nil {
		return err
	}
	return s.documentRepo.DeleteByIDAndUserID(doc.ID, userID)
}

// Search ranks the caller's indexed documents against the query text. Other
// users' documents are outside the query scope entirely.
func (s *DocumentService) Search(ctx context.Context, userID uint, query string, k int) ([]DocumentMatch, error) {
	if userID == 0 {
		return nil, ErrInvalidRequest
	}
	docs, err := s.documentRepo.ListByUserID(userID)
	if err != nil {
		return nil, err
	}
	scope := make(map[uint]bool, len(docs))
	for i := range docs {
		scope[docs[i].ID] = true
	}
	return s.index.Query(ctx, query, k, scope)
}

func mediaTypeFor(mimeType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "application/pdf":
		return model.MediaTypePDF, nil
	case "image/png", "image/jpeg", "image/jpg":
		return model.MediaTypeImage, nil
	default:
		return "", extract.ErrUnsupportedFormat
	}
}

// indexableText filters out the OCR placeholder so a failed recognition never
// gets summarized or indexed as if it were document content.
func indexableText(text string) string {
	if text == extract.OCRFailurePlaceholder {
		return ""
	}
	return text
}
