package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"docchat/internal/ai"
	"docchat/internal/model"
)

type fakeDocumentStore struct {
	mu     sync.Mutex
	nextID uint
	docs   map[uint]*model.Document
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{nextID: 1, docs: make(map[uint]*model.Document)}
}

func (s *fakeDocumentStore) Create(doc *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc.ID = s.nextID
	doc.CreatedAt = time.Now()
	s.nextID++
	copied := *doc
	s.docs[doc.ID] = &copied
	return nil
}

func (s *fakeDocumentStore) GetByIDAndUserID(id, userID uint) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok || doc.UserID != userID {
		return nil, nil
	}
	copied := *doc
	return &copied, nil
}

func (s *fakeDocumentStore) ListByUserID(userID uint) ([]model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Document
	for _, doc := range s.docs {
		if doc.UserID == userID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (s *fakeDocumentStore) DeleteByIDAndUserID(id, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[id]; ok && doc.UserID == userID {
		delete(s.docs, id)
	}
	return nil
}

type fakeConversationStore struct {
	mu            sync.Mutex
	nextID        uint
	conversations map[uint]*model.Conversation
}

func newFakeConversationStore() *fakeConversationStore {
	return &fakeConversationStore{nextID: 1, conversations: make(map[uint]*model.Conversation)}
}

func (s *fakeConversationStore) Create(conversation *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conversation.ID = s.nextID
	conversation.CreatedAt = time.Now()
	s.nextID++
	copied := *conversation
	s.conversations[conversation.ID] = &copied
	return nil
}

func (s *fakeConversationStore) GetByID(id uint) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conversation, ok := s.conversations[id]
	if !ok {
		return nil, nil
	}
	copied := *conversation
	return &copied, nil
}

func (s *fakeConversationStore) GetByDocumentID(documentID uint) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conversation := range s.conversations {
		if conversation.DocumentID == documentID {
			copied := *conversation
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeConversationStore) DeleteByID(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, id)
	return nil
}

type fakeMessageStore struct {
	mu       sync.Mutex
	nextID   uint
	messages []model.Message
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{nextID: 1}
}

func (s *fakeMessageStore) Create(message *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	message.ID = s.nextID
	message.CreatedAt = time.Now()
	s.nextID++
	s.messages = append(s.messages, *message)
	return nil
}

func (s *fakeMessageStore) ListByConversationID(conversationID uint) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Message
	for _, message := range s.messages {
		if message.ConversationID == conversationID {
			out = append(out, message)
		}
	}
	return out, nil
}

func (s *fakeMessageStore) DeleteByConversationID(conversationID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.messages[:0]
	for _, message := range s.messages {
		if message.ConversationID != conversationID {
			kept = append(kept, message)
		}
	}
	s.messages = kept
	return nil
}

type fakeEmbeddingStore struct {
	mu      sync.Mutex
	records map[uint]model.EmbeddingRecord
	listErr error
}

func newFakeEmbeddingStore() *fakeEmbeddingStore {
	return &fakeEmbeddingStore{records: make(map[uint]model.EmbeddingRecord)}
}

func (s *fakeEmbeddingStore) Upsert(record *model.EmbeddingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.DocumentID] = *record
	return nil
}

func (s *fakeEmbeddingStore) ListAll() ([]model.EmbeddingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []model.EmbeddingRecord
	for _, record := range s.records {
		out = append(out, record)
	}
	return out, nil
}

func (s *fakeEmbeddingStore) DeleteByDocumentID(documentID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, documentID)
	return nil
}

// fakeCompletion replays canned answers and records the prompts it saw.
type fakeCompletion struct {
	mu      sync.Mutex
	answers []string
	err     error
	calls   [][]ai.ChatMessage
}

func (f *fakeCompletion) Complete(_ context.Context, _ ai.ChatConfig, messages []ai.ChatMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, messages)
	if f.err != nil {
		return "", f.err
	}
	if len(f.answers) == 0 {
		return "", errors.New("no canned answer")
	}
	answer := f.answers[0]
	if len(f.answers) > 1 {
		f.answers = f.answers[1:]
	}
	return answer, nil
}

// fakeEmbedder maps each distinct text to a fixed vector.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	err     error
	calls   int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ ai.EmbeddingConfig, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, cfg ai.EmbeddingConfig, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := f.Embed(ctx, cfg, text)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

type fakePublisher struct {
	mu   sync.Mutex
	jobs []uint
	err  error
}

func (f *fakePublisher) PublishIndexJob(_ context.Context, documentID uint, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, documentID)
	return nil
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(_ context.Context, _ []byte, _ string) (string, error) {
	return f.text, f.err
}
