package services

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"hiddengems-web/internal/api"
	"hiddengems-web/internal/models"
)

const assistantFallback = "Sorry, I couldn't fetch an answer."

// ChatStore keeps each session's assistant transcript in memory. It is
// dropped on logout and lost on restart.
type ChatStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID][]models.ChatMessage
}

func NewChatStore() *ChatStore {
	return &ChatStore{sessions: make(map[uuid.UUID][]models.ChatMessage)}
}

func (s *ChatStore) Append(sessionID uuid.UUID, msgs ...models.ChatMessage) {
	s.mu.Lock()
	s.sessions[sessionID] = append(s.sessions[sessionID], msgs...)
	s.mu.Unlock()
}

// History returns a copy of the transcript.
func (s *ChatStore) History(sessionID uuid.UUID) []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatMessage, len(s.sessions[sessionID]))
	copy(out, s.sessions[sessionID])
	return out
}

func (s *ChatStore) SessionIDs() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

func (s *ChatStore) Clear(sessionID uuid.UUID) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

type AssistantService struct {
	chats *ChatStore
	topK  int
}

func NewAssistantService(chats *ChatStore, topK int) *AssistantService {
	if topK <= 0 {
		topK = api.DefaultTopK
	}
	return &AssistantService{chats: chats, topK: topK}
}

// Ask records the question, queries the assistant and records the answer.
// A failed call still ends the exchange with an apology so the transcript
// stays a sequence of question/answer pairs; the error is returned too.
func (s *AssistantService) Ask(ctx context.Context, c *api.Client, sessionID uuid.UUID, query string) (models.ChatMessage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.ChatMessage{}, &ValidationError{Fields: map[string]string{"query": "Message is required"}}
	}

	s.chats.Append(sessionID, models.ChatMessage{Role: "user", Content: query})

	resp, err := c.AssistantChat(ctx, models.ChatRequest{Query: query, TopK: s.topK})
	if err != nil {
		log.Printf("assistant: chat failed for session %s: %v", sessionID, err)
		reply := models.ChatMessage{Role: "assistant", Content: assistantFallback}
		s.chats.Append(sessionID, reply)
		return reply, err
	}

	reply := models.ChatMessage{Role: "assistant", Content: resp.Answer, Retrieved: resp.Retrieved}
	s.chats.Append(sessionID, reply)
	return reply, nil
}

func (s *AssistantService) History(sessionID uuid.UUID) []models.ChatMessage {
	return s.chats.History(sessionID)
}

func (s *AssistantService) Reset(sessionID uuid.UUID) {
	s.chats.Clear(sessionID)
}
