package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	mapping "opcmap/internal/mapping/domain"
)

// SessionRepository is an in-memory repository for demo/testing.
type SessionRepository struct {
	mu   sync.RWMutex
	data map[string]mapping.Session
}

// NewSessionRepository constructs a repository.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{data: make(map[string]mapping.Session)}
}

// Get loads a session by id.
func (r *SessionRepository) Get(ctx context.Context, id string) (*mapping.Session, error) {
	_ = ctx
	if id == "" {
		return nil, errors.New("session repo: empty id")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.data[id]
	if !ok {
		return nil, mapping.ErrSessionNotFound
	}
	copied := cloneSession(session)
	return &copied, nil
}

// ListByTenant loads all sessions of a tenant, newest first.
func (r *SessionRepository) ListByTenant(ctx context.Context, tenantID string) ([]mapping.Session, error) {
	_ = ctx
	if tenantID == "" {
		return nil, errors.New("session repo: empty tenant id")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []mapping.Session
	for _, session := range r.data {
		if session.TenantID == tenantID {
			result = append(result, cloneSession(session))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

// Save upserts a session.
func (r *SessionRepository) Save(ctx context.Context, session *mapping.Session) error {
	_ = ctx
	if session == nil {
		return errors.New("session repo: nil session")
	}
	if err := session.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[session.ID] = cloneSession(*session)
	return nil
}

// Delete removes a session by id.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	_ = ctx
	if id == "" {
		return errors.New("session repo: empty id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return mapping.ErrSessionNotFound
	}
	delete(r.data, id)
	return nil
}

func cloneSession(session mapping.Session) mapping.Session {
	mappings := make([]mapping.AddressMapping, len(session.Mappings))
	for i, m := range session.Mappings {
		m.BitPositions = append([]int(nil), m.BitPositions...)
		if m.Metadata != nil {
			bitMap := make(map[string]mapping.BitDetail, len(m.Metadata.BitMap))
			for key, detail := range m.Metadata.BitMap {
				bitMap[key] = detail
			}
			m.Metadata = &mapping.Metadata{BitCount: m.Metadata.BitCount, BitMap: bitMap}
		}
		mappings[i] = m
	}
	session.Mappings = mappings
	return session
}
