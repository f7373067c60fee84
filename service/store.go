package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MichelMeloG/JurChat/config"
	"github.com/MichelMeloG/JurChat/model"
)

// ConversationStore is an in-memory store of chat transcripts keyed by user
// and document. Transcripts are transient and lost on restart.
type ConversationStore struct {
	conversations    map[conversationKey]*model.Conversation
	mu               sync.RWMutex
	maxConversations int // 0 = unlimited
	now              func() time.Time
}

type conversationKey struct {
	username string
	document string
}

func NewConversationStore(cfg *config.StoreConfig) *ConversationStore {
	maxConversations := cfg.MaxConversations
	if maxConversations < 0 {
		maxConversations = 0
	}
	slog.Info("conversation store initialized", "max_conversations", maxConversations)
	return &ConversationStore{
		conversations:    make(map[conversationKey]*model.Conversation),
		maxConversations: maxConversations,
		now:              time.Now,
	}
}

// Append adds a message to the conversation about document, creating the
// conversation on first use, and returns the stored message.
func (s *ConversationStore) Append(username, document, content string, isUser bool) model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	key := conversationKey{username: username, document: document}
	conv, ok := s.conversations[key]
	if !ok {
		conv = &model.Conversation{
			ID:           uuid.New().String(),
			Username:     username,
			DocumentName: document,
			Messages:     []model.ChatMessage{},
			CreatedAt:    now,
		}
		s.conversations[key] = conv
	}

	msg := model.ChatMessage{
		ID:        uuid.New().String(),
		Content:   content,
		IsUser:    isUser,
		Timestamp: now,
	}
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = now

	s.cleanupIfNeeded(key)
	return msg
}

// Messages returns a copy of the transcript in append order.
func (s *ConversationStore) Messages(username, document string) []model.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationKey{username: username, document: document}]
	if !ok {
		return []model.ChatMessage{}
	}
	out := make([]model.ChatMessage, len(conv.Messages))
	copy(out, conv.Messages)
	return out
}

// Clear drops the conversation about document. It reports whether one existed.
func (s *ConversationStore) Clear(username, document string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := conversationKey{username: username, document: document}
	_, ok := s.conversations[key]
	delete(s.conversations, key)
	return ok
}

// ByUser returns copies of the user's conversations, most recently updated first.
func (s *ConversationStore) ByUser(username string) []model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []model.Conversation{}
	for key, conv := range s.conversations {
		if key.username != username {
			continue
		}
		c := *conv
		c.Messages = append([]model.ChatMessage(nil), conv.Messages...)
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result
}

// Count returns the number of conversations in the store
func (s *ConversationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

// cleanupIfNeeded evicts the least recently updated conversations, never the
// one just written. Must be called with lock held.
func (s *ConversationStore) cleanupIfNeeded(keep conversationKey) {
	if s.maxConversations <= 0 || len(s.conversations) <= s.maxConversations {
		return
	}

	keys := make([]conversationKey, 0, len(s.conversations))
	for k := range s.conversations {
		if k != keep {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return s.conversations[keys[i]].UpdatedAt.Before(s.conversations[keys[j]].UpdatedAt)
	})

	removeCount := len(s.conversations) - s.maxConversations
	for i := 0; i < removeCount && i < len(keys); i++ {
		conv := s.conversations[keys[i]]
		slog.Info("evicting old conversation",
			"conversation_id", conv.ID,
			"document", conv.DocumentName,
			"updated_at", conv.UpdatedAt,
		)
		delete(s.conversations, keys[i])
	}
}
