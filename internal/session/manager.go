// Package session maps conversation ids to live agent session state and
// guarantees single-flight generation per conversation.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/NoManNayeem/AgenTick/internal/adapter/agent"
	"github.com/NoManNayeem/AgenTick/internal/domain"
)

// FallbackReply is returned when the generator fails. Generation failure
// is never fatal to a connection.
const FallbackReply = "Sorry, I couldn't generate a response. Please try again."

const (
	// seedWindow is how many persisted turns are read from the message
	// log when a handle is constructed (three exchange pairs).
	seedWindow = 6

	// historyCap bounds the rolling in-memory history per handle. The
	// durable log remains the source of truth; this only limits what is
	// handed to the generator.
	historyCap = 50
)

// HistoryReader is the slice of the store the manager needs to rehydrate
// a handle on cold start.
type HistoryReader interface {
	RecentMessages(ctx context.Context, conversationID string, n int) ([]domain.Message, error)
}

// Handle is the cached in-memory agent state for one conversation. It is
// owned by the Manager's registry; callers borrow it per request and must
// not retain it.
type Handle struct {
	conversationID string

	// mu serializes generation for this conversation. Concurrent callers
	// queue behind the in-flight call. Eviction takes it too, so a handle
	// is never removed mid-generation.
	mu      sync.Mutex
	history []agent.Turn

	lastAccess atomic.Int64 // unix nanos
}

func (h *Handle) touch() {
	h.lastAccess.Store(time.Now().UnixNano())
}

// Manager owns the conversation id -> handle registry.
type Manager struct {
	store     HistoryReader
	generator agent.Generator
	idleTTL   time.Duration
	capacity  int

	group singleflight.Group

	mu      sync.Mutex
	handles map[string]*Handle
}

// NewManager creates a new session manager. Handles idle longer than
// idleTTL are evicted by the sweep loop; capacity bounds the registry
// size, evicting the least recently used handle on overflow.
func NewManager(store HistoryReader, generator agent.Generator, idleTTL time.Duration, capacity int) *Manager {
	return &Manager{
		store:     store,
		generator: generator,
		idleTTL:   idleTTL,
		capacity:  capacity,
		handles:   make(map[string]*Handle),
	}
}

// GetOrCreate returns the handle for a conversation, constructing and
// seeding it from the message log on first use. Concurrent callers for
// the same unseen conversation share a single construction.
func (m *Manager) GetOrCreate(ctx context.Context, conversationID string) (*Handle, error) {
	m.mu.Lock()
	if h, ok := m.handles[conversationID]; ok {
		h.touch()
		m.mu.Unlock()
		return h, nil
	}
	m.mu.Unlock()

	v, err, _ := m.group.Do(conversationID, func() (interface{}, error) {
		// A racing caller may have finished construction between the map
		// check and joining the flight group.
		m.mu.Lock()
		if h, ok := m.handles[conversationID]; ok {
			m.mu.Unlock()
			return h, nil
		}
		m.mu.Unlock()

		messages, err := m.store.RecentMessages(ctx, conversationID, seedWindow)
		if err != nil {
			return nil, fmt.Errorf("failed to seed session: %w", err)
		}

		h := &Handle{
			conversationID: conversationID,
			history:        toTurns(messages),
		}
		h.touch()

		m.mu.Lock()
		m.handles[conversationID] = h
		victim := m.lruVictimLocked(conversationID)
		m.mu.Unlock()

		if victim != "" {
			// Over capacity; retire the coldest handle. May have to wait
			// for an in-flight generation, so do it off this flight.
			go m.Evict(victim)
		}
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}

// GenerateReply produces the agent's reply to userMessage and folds both
// turns into the handle's rolling history. Generator failures are logged
// and converted to FallbackReply; the error return covers only session
// construction (storage) faults.
func (m *Manager) GenerateReply(ctx context.Context, conversationID, userMessage string) (string, error) {
	h, err := m.GetOrCreate(ctx, conversationID)
	if err != nil {
		return "", err
	}
	return m.Generate(ctx, h, userMessage), nil
}

// Generate runs one generation against an already-borrowed handle. Callers
// that warm the handle before persisting the user turn must use this
// rather than GenerateReply, so an eviction in between cannot swap in a
// freshly seeded handle that already contains that turn. An evicted handle
// stays valid for one in-flight call; its history is simply not cached for
// the next one.
func (m *Manager) Generate(ctx context.Context, h *Handle, userMessage string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.touch()

	reply, err := m.generator.Generate(ctx, h.conversationID, h.history, userMessage)
	if err != nil {
		log.Printf("Agent generation failed: conversation=%s err=%v", h.conversationID, err)
		reply = FallbackReply
	}

	h.history = append(h.history,
		agent.Turn{Role: "user", Content: userMessage},
		agent.Turn{Role: "assistant", Content: reply},
	)
	if len(h.history) > historyCap {
		h.history = h.history[len(h.history)-historyCap:]
	}
	h.touch()

	return reply
}

// Evict removes a conversation's handle from the registry. If a
// generation is in flight it waits for completion first. The next access
// reconstructs the handle from the message log.
func (m *Manager) Evict(conversationID string) {
	m.mu.Lock()
	h, ok := m.handles[conversationID]
	m.mu.Unlock()
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	m.mu.Lock()
	// Only remove if the registry still holds this exact handle.
	if cur, ok := m.handles[conversationID]; ok && cur == h {
		delete(m.handles, conversationID)
	}
	m.mu.Unlock()
}

// EvictIdle evicts every handle idle longer than the manager's TTL and
// returns how many were removed.
func (m *Manager) EvictIdle() int {
	cutoff := time.Now().Add(-m.idleTTL).UnixNano()

	m.mu.Lock()
	var stale []string
	for id, h := range m.handles {
		if h.lastAccess.Load() < cutoff {
			stale = append(stale, id)
		}
	}
	m.mu.Unlock()

	for _, id := range stale {
		m.Evict(id)
	}
	if len(stale) > 0 {
		log.Printf("Evicted %d idle session(s)", len(stale))
	}
	return len(stale)
}

// Len returns the number of cached handles.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handles)
}

// Run sweeps idle handles until the context is cancelled.
func (m *Manager) Run(ctx context.Context) {
	interval := m.idleTTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.EvictIdle()
		}
	}
}

// lruVictimLocked returns the least recently used handle to evict when
// the registry exceeds capacity, never choosing the one just inserted.
// Caller must hold m.mu.
func (m *Manager) lruVictimLocked(justInserted string) string {
	if m.capacity <= 0 || len(m.handles) <= m.capacity {
		return ""
	}
	var victim string
	var oldest int64
	for id, h := range m.handles {
		if id == justInserted {
			continue
		}
		if access := h.lastAccess.Load(); victim == "" || access < oldest {
			victim = id
			oldest = access
		}
	}
	return victim
}

func toTurns(messages []domain.Message) []agent.Turn {
	turns := make([]agent.Turn, 0, len(messages))
	for _, msg := range messages {
		role := "user"
		if msg.Sender == domain.SenderAgent {
			role = "assistant"
		}
		turns = append(turns, agent.Turn{Role: role, Content: msg.Content})
	}
	return turns
}
