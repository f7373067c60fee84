package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MichelMeloG/JurChat/model"
	"github.com/MichelMeloG/JurChat/pkg/logger"
)

const (
	EmptyAnswerMessage = "Sorry, I could not process your question."
	ChatErrorMessage   = "Error processing your question. Please try again."
)

// ErrEmptyQuestion is returned when a chat question has no content.
var ErrEmptyQuestion = errors.New("question must not be empty")

// ChatService runs question/answer turns about a document and keeps the
// transcript in a ConversationStore.
type ChatService struct {
	backend Backend
	store   *ConversationStore
}

func NewChatService(backend Backend, store *ConversationStore) *ChatService {
	return &ChatService{backend: backend, store: store}
}

// ChatTurn is the pair of messages produced by one question.
type ChatTurn struct {
	Question model.ChatMessage `json:"question"`
	Reply    model.ChatMessage `json:"reply"`
}

// Ask appends the question, asks the backend and appends its answer. When the
// backend fails the reply is an error message and the error is returned too.
func (s *ChatService) Ask(ctx context.Context, username, document, question string) (ChatTurn, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return ChatTurn{}, ErrEmptyQuestion
	}

	ctx = logger.WithDocument(ctx, document)
	turn := ChatTurn{Question: s.store.Append(username, document, question, true)}

	answer, err := s.backend.ChatWithDocument(ctx, document, question)
	if err != nil {
		logger.Error(ctx, "chat request failed", "error", err)
		turn.Reply = s.store.Append(username, document, ChatErrorMessage, false)
		return turn, fmt.Errorf("chat with document: %w", err)
	}

	if strings.TrimSpace(answer) == "" {
		logger.Warn(ctx, "backend returned an empty answer")
		answer = EmptyAnswerMessage
	}
	turn.Reply = s.store.Append(username, document, answer, false)
	return turn, nil
}

func (s *ChatService) Messages(username, document string) []model.ChatMessage {
	return s.store.Messages(username, document)
}

func (s *ChatService) Clear(username, document string) bool {
	return s.store.Clear(username, document)
}

// Conversations returns the user's chats, most recently active first.
func (s *ChatService) Conversations(username string) []model.Conversation {
	return s.store.ByUser(username)
}
