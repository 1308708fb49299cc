package registry

import (
	"context"
	"sync"

	"github.com/dvloznov/finance-reports/internal/domain"
	"github.com/dvloznov/finance-reports/internal/logger"
)

// Registrar is the presence-registration collaborator.
type Registrar interface {
	Exists(ctx context.Context, key string) (bool, error)
	Create(ctx context.Context, key string, payload []byte) error
}

// Announce registers key with payload unless it is already present. It
// returns a *domain.RegistrationError on failure; callers log it and go on,
// registration never affects the pipeline outcome.
func Announce(ctx context.Context, reg Registrar, key string, payload []byte) error {
	log := logger.ForStage(ctx, "register").With().Str("key", key).Logger()

	exists, err := reg.Exists(ctx, key)
	if err != nil {
		return &domain.RegistrationError{Key: key, Err: err}
	}
	if exists {
		log.Info().Msg("Presence key already exists")
		return nil
	}

	if err := reg.Create(ctx, key, payload); err != nil {
		return &domain.RegistrationError{Key: key, Err: err}
	}
	log.Info().Msg("Presence key created")
	return nil
}

// MemoryRegistrar keeps keys in process memory. It is used when no
// external registry is configured.
type MemoryRegistrar struct {
	mu   sync.RWMutex
	keys map[string][]byte
}

// NewMemoryRegistrar creates an empty in-memory registrar.
func NewMemoryRegistrar() *MemoryRegistrar {
	return &MemoryRegistrar{keys: make(map[string][]byte)}
}

// Exists reports whether key was created.
func (m *MemoryRegistrar) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.keys[key]
	return ok, nil
}

// Create stores key. An existing key keeps its first payload.
func (m *MemoryRegistrar) Create(_ context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; !ok {
		m.keys[key] = append([]byte(nil), payload...)
	}
	return nil
}

// Payload returns the stored payload for key.
func (m *MemoryRegistrar) Payload(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.keys[key]
	return p, ok
}
