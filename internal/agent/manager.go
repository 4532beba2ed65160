package agent

import (
	"sync"

	"github.com/apex-agent/apex/internal/provider"
	"github.com/apex-agent/apex/internal/registry"
)

// Manager tracks one Orchestrator per chat ID so concurrent chats keep
// independent conversation histories.
type Manager struct {
	provider provider.Provider
	registry *registry.Registry
	opts     []Option

	mu    sync.Mutex
	chats map[string]*Orchestrator
}

// NewManager creates a manager that builds orchestrators on demand.
func NewManager(p provider.Provider, reg *registry.Registry, opts ...Option) *Manager {
	return &Manager{
		provider: p,
		registry: reg,
		opts:     opts,
		chats:    make(map[string]*Orchestrator),
	}
}

// Get returns the orchestrator for the given chat ID, creating it if
// needed.
func (m *Manager) Get(chatID string) *Orchestrator {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.chats[chatID]
	if !ok {
		o = New(m.provider, m.registry, m.opts...)
		m.chats[chatID] = o
	}
	return o
}

// Reset clears the conversation for the given chat ID.
func (m *Manager) Reset(chatID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if o, ok := m.chats[chatID]; ok {
		o.Reset()
	}
}

// Delete removes the chat entirely.
func (m *Manager) Delete(chatID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chats, chatID)
}

// Len returns the number of active chats.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chats)
}
