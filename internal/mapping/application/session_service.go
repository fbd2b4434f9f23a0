package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	mapping "opcmap/internal/mapping/domain"
)

// SessionService orchestrates named configuration snapshots: creation,
// import of raw register exports, and replacement of edited mapping sets.
type SessionService struct {
	repo mapping.SessionRepository
}

// NewSessionService constructs a session service.
func NewSessionService(repo mapping.SessionRepository) (*SessionService, error) {
	if repo == nil {
		return nil, errors.New("session service: nil repository")
	}
	return &SessionService{repo: repo}, nil
}

// NewSessionID generates a random session id.
func NewSessionID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return "session-" + hex.EncodeToString(buf)
}

// Create validates and stores a new session. Missing id and ordinal get
// defaults (random id, ordinal 1).
func (s *SessionService) Create(ctx context.Context, session *mapping.Session) error {
	if session == nil {
		return errors.New("session service: nil session")
	}
	if session.ID == "" {
		session.ID = NewSessionID()
	}
	if session.PLCOrdinal == 0 {
		session.PLCOrdinal = 1
	}
	if session.Mappings == nil {
		session.Mappings = []mapping.AddressMapping{}
	}
	if err := session.Validate(); err != nil {
		return err
	}
	return s.repo.Save(ctx, session)
}

// Get loads a session by id.
func (s *SessionService) Get(ctx context.Context, id string) (*mapping.Session, error) {
	if id == "" {
		return nil, errors.New("session service: empty id")
	}
	return s.repo.Get(ctx, id)
}

// List returns all sessions of a tenant.
func (s *SessionService) List(ctx context.Context, tenantID string) ([]mapping.Session, error) {
	if tenantID == "" {
		return nil, errors.New("session service: empty tenant id")
	}
	return s.repo.ListByTenant(ctx, tenantID)
}

// Replace validates and saves an edited session in full.
func (s *SessionService) Replace(ctx context.Context, session *mapping.Session) error {
	if session == nil {
		return errors.New("session service: nil session")
	}
	if err := session.Validate(); err != nil {
		return err
	}
	session.UpdatedAt = time.Now().UTC()
	return s.repo.Save(ctx, session)
}

// Delete removes a session by id.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("session service: empty id")
	}
	return s.repo.Delete(ctx, id)
}

// Import runs the batch builder over raw records with the session's PLC
// ordinal, replaces the session's mapping set with the result, and persists
// it. The build result is returned for the caller's statistics and skip
// list.
func (s *SessionService) Import(ctx context.Context, id string, records []mapping.RawRecord) (BuildResult, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return BuildResult{}, err
	}
	builder, err := NewBuilder(session.PLCOrdinal)
	if err != nil {
		return BuildResult{}, err
	}
	result := builder.Build(records)
	session.Mappings = result.Mappings
	if err := s.Replace(ctx, session); err != nil {
		return BuildResult{}, err
	}
	return result, nil
}
