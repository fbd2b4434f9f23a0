package mapping

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrSessionNotFound is returned when a session id is unknown.
var ErrSessionNotFound = errors.New("mapping: session not found")

// PLCDescriptor identifies the PLC a mapping set belongs to.
type PLCDescriptor struct {
	Name     string `json:"name" yaml:"name"`
	IP       string `json:"ip" yaml:"ip"`
	OpcuaURL string `json:"opcuaUrl" yaml:"opcua_url"`
}

// Session is a named configuration snapshot: one PLC descriptor plus the
// mapping set a user is editing.
type Session struct {
	ID         string
	TenantID   string
	Name       string
	PLC        PLCDescriptor
	PLCOrdinal int
	Mappings   []AddressMapping
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate checks session invariants.
func (s Session) Validate() error {
	if s.ID == "" {
		return errors.New("session: empty id")
	}
	if s.TenantID == "" {
		return errors.New("session: empty tenant id")
	}
	if s.Name == "" {
		return errors.New("session: empty name")
	}
	if s.PLCOrdinal < 1 {
		return errors.New("session: plc ordinal must be positive")
	}
	for i, m := range s.Mappings {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("session: mapping %d: %w", i, err)
		}
	}
	return nil
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	Get(ctx context.Context, id string) (*Session, error)
	ListByTenant(ctx context.Context, tenantID string) ([]Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, id string) error
}
