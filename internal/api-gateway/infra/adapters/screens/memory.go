package screens

import (
	"context"
	"sync"
	"time"

	"github.com/jcmexdev/portal-flows/internal/api-gateway/core/domain/entity"
	"github.com/jcmexdev/portal-flows/internal/api-gateway/core/ports"
)

var _ ports.ScreenRegistry = (*Memory)(nil)

// Memory is a process-local ScreenRegistry. Screens not touched for idle are
// dropped on the next Mount.
type Memory struct {
	mu      sync.Mutex
	screens map[string]*entity.Screen
	idle    time.Duration
	now     func() time.Time
}

func NewMemory(idle time.Duration) *Memory {
	if idle <= 0 {
		idle = time.Hour
	}
	return &Memory{
		screens: make(map[string]*entity.Screen),
		idle:    idle,
		now:     time.Now,
	}
}

func (m *Memory) Mount(_ context.Context, s *entity.Screen) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, old := range m.screens {
		if now.Sub(old.LastSeenAt) > m.idle && !old.Controller.IsProcessing() {
			delete(m.screens, id)
		}
	}
	if s.MountedAt.IsZero() {
		s.MountedAt = now
	}
	s.LastSeenAt = now
	m.screens[s.ID] = s
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*entity.Screen, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.screens[id]
	if !ok {
		return nil, ports.ErrScreenNotFound
	}
	s.LastSeenAt = m.now()
	return s, nil
}

func (m *Memory) Unmount(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.screens[id]; !ok {
		return ports.ErrScreenNotFound
	}
	delete(m.screens, id)
	return nil
}

// Len reports how many screens are mounted.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.screens)
}
