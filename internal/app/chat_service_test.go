package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/ai"
	"docchat/internal/model"
)

type chatFixture struct {
	docs          *fakeDocumentStore
	conversations *fakeConversationStore
	messages      *fakeMessageStore
	llm           *fakeCompletion
	service       *ChatService
}

func newChatFixture(t *testing.T, answers ...string) *chatFixture {
	t.Helper()
	f := &chatFixture{
		docs:          newFakeDocumentStore(),
		conversations: newFakeConversationStore(),
		messages:      newFakeMessageStore(),
		llm:           &fakeCompletion{answers: answers},
	}
	f.service = NewChatService(f.conversations, f.messages, f.docs, nil, f.llm, ai.ChatConfig{})
	return f
}

// seedConversation creates a document, its conversation, and the system seed
// message, mirroring what ingestion produces.
func (f *chatFixture) seedConversation(t *testing.T, userID uint) *model.Conversation {
	t.Helper()
	doc := &model.Document{UserID: userID, Filename: "invoice.pdf", MediaType: model.MediaTypePDF}
	require.NoError(t, f.docs.Create(doc))
	conversation := &model.Conversation{DocumentID: doc.ID}
	require.NoError(t, f.conversations.Create(conversation))
	seed := &model.Message{ConversationID: conversation.ID, Role: model.RoleSystem, Content: "An invoice for $100."}
	require.NoError(t, f.messages.Create(seed))
	return conversation
}

func TestSendTurnRequiresConversationOrDocument(t *testing.T) {
	f := newChatFixture(t, "hello")

	_, err := f.service.SendTurn(context.Background(), SendTurnInput{UserID: 1, Content: "hi"})

	assert.ErrorIs(t, err, ErrInvalidRequest)
	messages, _ := f.messages.ListByConversationID(1)
	assert.Empty(t, messages, "a rejected turn must not create messages")
	assert.Empty(t, f.llm.calls)
}

func TestSendTurnUnknownConversation(t *testing.T) {
	f := newChatFixture(t, "hello")

	_, err := f.service.SendTurn(context.Background(), SendTurnInput{UserID: 1, ConversationID: 99, Content: "hi"})

	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestSendTurnForeignConversationHidden(t *testing.T) {
	f := newChatFixture(t, "hello")
	conversation := f.seedConversation(t, 1)

	_, err := f.service.SendTurn(context.Background(), SendTurnInput{
		UserID:         2,
		ConversationID: conversation.ID,
		Content:        "hi",
	})

	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestSendTurnAppendsBothMessages(t *testing.T) {
	f := newChatFixture(t, "The total is $100.")
	conversation := f.seedConversation(t, 1)

	result, err := f.service.SendTurn(context.Background(), SendTurnInput{
		UserID:         1,
		ConversationID: conversation.ID,
		Content:        "What is the total?",
	})
	require.NoError(t, err)

	assert.Equal(t, conversation.ID, result.ConversationID)
	assert.Equal(t, model.RoleUser, result.UserMessage.Role)
	assert.Equal(t, "What is the total?", result.UserMessage.Content)
	assert.Equal(t, model.RoleAssistant, result.AssistantMessage.Role)
	assert.Equal(t, "The total is $100.", result.AssistantMessage.Content)

	messages, err := f.messages.ListByConversationID(conversation.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, model.RoleSystem, messages[0].Role)
	assert.Equal(t, model.RoleUser, messages[1].Role)
	assert.Equal(t, model.RoleAssistant, messages[2].Role)
}

func TestSendTurnBootstrapsConversationFromDocument(t *testing.T) {
	f := newChatFixture(t, "sure")
	doc := &model.Document{UserID: 1, Filename: "scan.png", MediaType: model.MediaTypeImage}
	require.NoError(t, f.docs.Create(doc))

	result, err := f.service.SendTurn(context.Background(), SendTurnInput{
		UserID:     1,
		DocumentID: doc.ID,
		Content:    "hello",
	})
	require.NoError(t, err)

	conversation, err := f.conversations.GetByDocumentID(doc.ID)
	require.NoError(t, err)
	require.NotNil(t, conversation)
	assert.Equal(t, conversation.ID, result.ConversationID)

	// A second turn addressed at the document reuses the same conversation.
	second, err := f.service.SendTurn(context.Background(), SendTurnInput{
		UserID:     1,
		DocumentID: doc.ID,
		Content:    "again",
	})
	require.NoError(t, err)
	assert.Equal(t, conversation.ID, second.ConversationID)
}

func TestSendTurnUnknownDocument(t *testing.T) {
	f := newChatFixture(t, "hello")

	_, err := f.service.SendTurn(context.Background(), SendTurnInput{UserID: 1, DocumentID: 7, Content: "hi"})

	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestSendTurnFallbackOnCompletionFailure(t *testing.T) {
	f := newChatFixture(t)
	f.llm.err = errors.New("model unavailable")
	conversation := f.seedConversation(t, 1)

	result, err := f.service.SendTurn(context.Background(), SendTurnInput{
		UserID:         1,
		ConversationID: conversation.ID,
		Content:        "anyone there?",
	})
	require.NoError(t, err, "a degraded completion must not fail the turn")

	assert.Equal(t, AssistantFallbackReply, result.AssistantMessage.Content)
	messages, _ := f.messages.ListByConversationID(conversation.ID)
	require.Len(t, messages, 3)
	assert.Equal(t, AssistantFallbackReply, messages[2].Content)
}

func TestSendTurnFallbackOnEmptyCompletion(t *testing.T) {
	f := newChatFixture(t, "   ")
	conversation := f.seedConversation(t, 1)

	result, err := f.service.SendTurn(context.Background(), SendTurnInput{
		UserID:         1,
		ConversationID: conversation.ID,
		Content:        "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, AssistantFallbackReply, result.AssistantMessage.Content)
}

func TestSequentialTurnsKeepOrder(t *testing.T) {
	const turns = 4
	f := newChatFixture(t, "reply")
	conversation := f.seedConversation(t, 1)

	for i := 0; i < turns; i++ {
		_, err := f.service.SendTurn(context.Background(), SendTurnInput{
			UserID:         1,
			ConversationID: conversation.ID,
			Content:        fmt.Sprintf("question %d", i),
		})
		require.NoError(t, err)
	}

	messages, err := f.service.GetHistory(context.Background(), 1, conversation.ID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2*turns+1, "system seed plus two messages per turn")

	assert.Equal(t, model.RoleSystem, messages[0].Role)
	for i := 0; i < turns; i++ {
		user := messages[1+2*i]
		assistant := messages[2+2*i]
		assert.Equal(t, model.RoleUser, user.Role)
		assert.Equal(t, fmt.Sprintf("question %d", i), user.Content)
		assert.Equal(t, model.RoleAssistant, assistant.Role)
	}
}

func TestGetHistoryLimitKeepsNewest(t *testing.T) {
	f := newChatFixture(t, "reply")
	conversation := f.seedConversation(t, 1)
	for i := 0; i < 3; i++ {
		_, err := f.service.SendTurn(context.Background(), SendTurnInput{
			UserID:         1,
			ConversationID: conversation.ID,
			Content:        fmt.Sprintf("question %d", i),
		})
		require.NoError(t, err)
	}

	messages, err := f.service.GetHistory(context.Background(), 1, conversation.ID, 2)
	require.NoError(t, err)

	require.Len(t, messages, 2)
	assert.Equal(t, "question 2", messages[0].Content)
	assert.Equal(t, model.RoleAssistant, messages[1].Role)
}

func TestConcurrentTurnsSerializePerConversation(t *testing.T) {
	const turns = 8
	f := newChatFixture(t, "reply")
	conversation := f.seedConversation(t, 1)

	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.service.SendTurn(context.Background(), SendTurnInput{
				UserID:         1,
				ConversationID: conversation.ID,
				Content:        fmt.Sprintf("question %d", i),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	messages, err := f.messages.ListByConversationID(conversation.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2*turns+1, "system seed plus two messages per turn")

	// Turns may complete in any order, but within the log each user message
	// must be answered before the next one starts.
	assert.Equal(t, model.RoleSystem, messages[0].Role)
	for i := 0; i < turns; i++ {
		assert.Equal(t, model.RoleUser, messages[1+2*i].Role)
		assert.Equal(t, model.RoleAssistant, messages[2+2*i].Role)
	}
}

func TestPromptContainsHistoryAndNewestInput(t *testing.T) {
	f := newChatFixture(t, "answer")
	conversation := f.seedConversation(t, 1)

	_, err := f.service.SendTurn(context.Background(), SendTurnInput{
		UserID:         1,
		ConversationID: conversation.ID,
		Content:        "What is the total?",
	})
	require.NoError(t, err)

	require.Len(t, f.llm.calls, 1)
	prompt := f.llm.calls[0]
	require.Len(t, prompt, 2)
	assert.Equal(t, model.RoleSystem, prompt[0].Role)
	assert.Equal(t, model.RoleUser, prompt[1].Role)
	assert.Equal(t, "What is the total?", prompt[1].Content)
}

func TestBuildPromptReappendsMissingUserInput(t *testing.T) {
	// Simulates a stale read-back snapshot that misses the just-appended
	// user message.
	history := []model.Message{
		{Role: model.RoleSystem, Content: "summary"},
		{Role: model.RoleUser, Content: "old question"},
		{Role: model.RoleAssistant, Content: "old answer"},
	}

	prompt := buildPrompt(history, "new question")

	require.Len(t, prompt, 4)
	assert.Equal(t, model.RoleUser, prompt[3].Role)
	assert.Equal(t, "new question", prompt[3].Content)
}

func TestBuildPromptDoesNotDuplicateUserInput(t *testing.T) {
	history := []model.Message{
		{Role: model.RoleSystem, Content: "summary"},
		{Role: model.RoleUser, Content: "question"},
	}

	prompt := buildPrompt(history, "question")

	require.Len(t, prompt, 2)
}

func TestSendTurnEmptyContent(t *testing.T) {
	f := newChatFixture(t, "hi")
	conversation := f.seedConversation(t, 1)

	_, err := f.service.SendTurn(context.Background(), SendTurnInput{
		UserID:         1,
		ConversationID: conversation.ID,
		Content:        "   ",
	})

	assert.ErrorIs(t, err, ErrMessageEmpty)
}

func TestGetHistoryForeignConversationHidden(t *testing.T) {
	f := newChatFixture(t, "hi")
	conversation := f.seedConversation(t, 1)

	_, err := f.service.GetHistory(context.Background(), 2, conversation.ID, 0)

	assert.ErrorIs(t, err, ErrConversationNotFound)
}
