package app

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"docchat/internal/ai"
	"docchat/internal/model"
)

var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageEmpty         = errors.New("message content is empty")
)

// AssistantFallbackReply answers a turn whose completion call failed or came
// back empty. A conversation never ends in an unanswered user turn.
const AssistantFallbackReply = "The model returned an empty response."

// ChatService orchestrates conversation turns: it validates or bootstraps the
// conversation, appends the user message, rebuilds model context from the
// persisted history, invokes the completion model, and appends the reply.
type ChatService struct {
	conversationRepo ConversationStore
	messageRepo      MessageStore
	documentRepo     DocumentStore
	historyCache     HistoryCache
	llm              CompletionProvider
	chatCfg          ai.ChatConfig
	locks            *conversationLocks
}

func NewChatService(
	conversationRepo ConversationStore,
	messageRepo MessageStore,
	documentRepo DocumentStore,
	historyCache HistoryCache,
	llm CompletionProvider,
	chatCfg ai.ChatConfig,
) *ChatService {
	return &ChatService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		documentRepo:     documentRepo,
		historyCache:     historyCache,
		llm:              llm,
		chatCfg:          chatCfg,
		locks:            newConversationLocks(),
	}
}

// SendTurnInput addresses a turn at exactly one conversation: either an
// existing ConversationID, or a DocumentID whose conversation is fetched or
// bootstrapped.
type SendTurnInput struct {
	UserID         uint
	ConversationID uint
	DocumentID     uint
	Content        string
}

// SendTurnResult carries both halves of a completed turn.
type SendTurnResult struct {
	ConversationID   uint          `json:"conversation_id"`
	UserMessage      model.Message `json:"user_message"`
	AssistantMessage model.Message `json:"assistant_message"`
}

func (s *ChatService) SendTurn(ctx context.Context, input SendTurnInput) (*SendTurnResult, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidRequest
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrMessageEmpty
	}

	conversation, err := s.resolveConversation(input)
	if err != nil {
		return nil, err
	}

	// One in-flight turn per conversation, so concurrent turns cannot
	// interleave their append-read-generate sequences.
	unlock := s.locks.lock(conversation.ID)
	defer unlock()

	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, conversation.ID)
		_ = s.historyCache.DeleteHistory(ctx, conversation.ID)
	}

	userMessage := &model.Message{
		ConversationID: conversation.ID,
		Role:           model.RoleUser,
		Content:        content,
	}
	if err := s.messageRepo.Create(userMessage); err != nil {
		return nil, err
	}

	// Read back the full ordered history; the append above must be visible
	// to the context build.
	history, err := s.messageRepo.ListByConversationID(conversation.ID)
	if err != nil {
		return nil, err
	}
	prompt := buildPrompt(history, content)

	answer, err := s.llm.Complete(ctx, s.chatCfg, prompt)
	if err != nil {
		log.Printf("completion for conversation %d failed: %v", conversation.ID, err)
		answer = ""
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = AssistantFallbackReply
	}

	assistantMessage := &model.Message{
		ConversationID: conversation.ID,
		Role:           model.RoleAssistant,
		Content:        answer,
	}
	if err := s.messageRepo.Create(assistantMessage); err != nil {
		return nil, err
	}

	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(ctx, conversation.ID)
	}

	return &SendTurnResult{
		ConversationID:   conversation.ID,
		UserMessage:      *userMessage,
		AssistantMessage: *assistantMessage,
	}, nil
}

// resolveConversation looks up the addressed conversation, bootstrapping one
// from a document reference when no conversation id is supplied.
func (s *ChatService) resolveConversation(input SendTurnInput) (*model.Conversation, error) {
	switch {
	case input.ConversationID != 0:
		conversation, err := s.conversationRepo.GetByID(input.ConversationID)
		if err != nil {
			return nil, err
		}
		if conversation == nil {
			return nil, ErrConversationNotFound
		}
		owned, err := s.documentRepo.GetByIDAndUserID(conversation.DocumentID, input.UserID)
		if err != nil {
			return nil, err
		}
		if owned == nil {
			return nil, ErrConversationNotFound
		}
		return conversation, nil

	case input.DocumentID != 0:
		doc, err := s.documentRepo.GetByIDAndUserID(input.DocumentID, input.UserID)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return nil, ErrDocumentNotFound
		}
		conversation, err := s.conversationRepo.GetByDocumentID(doc.ID)
		if err != nil {
			return nil, err
		}
		if conversation != nil {
			return conversation, nil
		}
		conversation = &model.Conversation{DocumentID: doc.ID}
		if err := s.conversationRepo.Create(conversation); err != nil {
			return nil, err
		}
		return conversation, nil

	default:
		return nil, ErrInvalidRequest
	}
}

// GetHistory returns the ordered message log, cache-aside through Redis.
// A positive limit keeps only the newest limit messages.
func (s *ChatService) GetHistory(ctx context.Context, userID, conversationID uint, limit int) ([]model.Message, error) {
	if userID == 0 || conversationID == 0 {
		return nil, ErrInvalidRequest
	}

	conversation, err := s.conversationRepo.GetByID(conversationID)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, ErrConversationNotFound
	}
	owned, err := s.documentRepo.GetByIDAndUserID(conversation.DocumentID, userID)
	if err != nil {
		return nil, err
	}
	if owned == nil {
		return nil, ErrConversationNotFound
	}

	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, conversationID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, conversationID); cacheErr == nil && hit {
				return trimTail(cached, limit), nil
			}
		}
	}

	messages, err := s.messageRepo.ListByConversationID(conversationID)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		// The cache always holds the full log; trimming happens on the way out.
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, conversationID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, conversationID, messages)
		}
	}
	return trimTail(messages, limit), nil
}

// trimTail keeps the newest limit messages; limit <= 0 keeps everything.
func trimTail(messages []model.Message, limit int) []model.Message {
	if limit <= 0 || len(messages) <= limit {
		return messages
	}
	return messages[len(messages)-limit:]
}

// buildPrompt translates the persisted log into the completion schema. The
// newest user text is appended last if the read-back snapshot missed it, so a
// stale read can never drop the message being answered.
func buildPrompt(history []model.Message, currentUserInput string) []ai.ChatMessage {
	messages := make([]ai.ChatMessage, 0, len(history)+1)
	for _, item := range history {
		role := item.Role
		switch role {
		case model.RoleSystem, model.RoleAssistant, model.RoleUser:
		default:
			role = model.RoleUser
		}
		messages = append(messages, ai.ChatMessage{Role: role, Content: item.Content})
	}

	last := len(messages) - 1
	if last < 0 || messages[last].Role != model.RoleUser || messages[last].Content != currentUserInput {
		messages = append(messages, ai.ChatMessage{Role: model.RoleUser, Content: currentUserInput})
	}
	return messages
}

// conversationLocks hands out one mutex per conversation id, created on
// first use and reused across turns.
type conversationLocks struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func newConversationLocks() *conversationLocks {
	return &conversationLocks{locks: make(map[uint]*sync.Mutex)}
}

func (c *conversationLocks) lock(conversationID uint) (unlock func()) {
	c.mu.Lock()
	l, ok := c.locks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[conversationID] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l.Unlock
}
