package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

const janitorInterval = 10 * time.Minute

// SessionJanitor drops in-memory per-session state (chat transcripts,
// product lists) once the session itself has expired from the store.
// Logout clears these eagerly; the janitor covers sessions that just time
// out.
type SessionJanitor struct {
	sessions SessionStore
	chats    *ChatStore
	products *ProductBoard
	interval time.Duration
	stopChan chan struct{}
}

func NewSessionJanitor(sessions SessionStore, chats *ChatStore, products *ProductBoard) *SessionJanitor {
	return &SessionJanitor{
		sessions: sessions,
		chats:    chats,
		products: products,
		interval: janitorInterval,
		stopChan: make(chan struct{}),
	}
}

func (j *SessionJanitor) Start() {
	go j.loop()
	log.Printf("Session janitor started (every %s)", j.interval)
}

func (j *SessionJanitor) Stop() {
	select {
	case <-j.stopChan:
		return
	default:
		close(j.stopChan)
	}
}

func (j *SessionJanitor) loop() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopChan:
			return
		case <-ticker.C:
			j.Sweep(context.Background())
		}
	}
}

// Sweep runs one pass and returns how many sessions were released.
func (j *SessionJanitor) Sweep(ctx context.Context) int {
	seen := make(map[uuid.UUID]bool)
	for _, id := range j.chats.SessionIDs() {
		seen[id] = true
	}
	for _, id := range j.products.SessionIDs() {
		seen[id] = true
	}

	released := 0
	for id := range seen {
		s, err := j.sessions.Load(ctx, id)
		if err != nil {
			log.Printf("session janitor: failed to check session %s: %v", id, err)
			continue
		}
		if s != nil {
			continue
		}
		j.chats.Clear(id)
		j.products.Forget(id)
		released++
	}
	return released
}
