package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mapping "opcmap/internal/mapping/domain"
)

const defaultSessionsTable = "mapping_sessions"

// SessionRepository is a Postgres implementation for mapping sessions. The
// mapping set is stored as a JSONB payload next to the PLC descriptor.
type SessionRepository struct {
	db    *sql.DB
	table string
}

// NewSessionRepository constructs a repository.
func NewSessionRepository(db *sql.DB, opts ...SessionOption) *SessionRepository {
	repo := &SessionRepository{db: db, table: defaultSessionsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// SessionOption configures the repository.
type SessionOption func(*SessionRepository)

// WithSessionTable overrides the table name.
func WithSessionTable(table string) SessionOption {
	return func(repo *SessionRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Get loads a session by id.
func (r *SessionRepository) Get(ctx context.Context, id string) (*mapping.Session, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("session repo: nil db")
	}
	if id == "" {
		return nil, errors.New("session repo: empty id")
	}

	query := fmt.Sprintf(`
SELECT id, tenant_id, name, plc_name, plc_ip, opcua_url, plc_ordinal, mappings, created_at, updated_at
FROM %s
WHERE id = $1`, r.table)

	row := r.db.QueryRowContext(ctx, query, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, mapping.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// ListByTenant loads all sessions of a tenant, newest first.
func (r *SessionRepository) ListByTenant(ctx context.Context, tenantID string) ([]mapping.Session, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("session repo: nil db")
	}
	if tenantID == "" {
		return nil, errors.New("session repo: empty tenant id")
	}

	query := fmt.Sprintf(`
SELECT id, tenant_id, name, plc_name, plc_ip, opcua_url, plc_ordinal, mappings, created_at, updated_at
FROM %s
WHERE tenant_id = $1
ORDER BY updated_at DESC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []mapping.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Save upserts a session.
func (r *SessionRepository) Save(ctx context.Context, session *mapping.Session) error {
	if r == nil || r.db == nil {
		return errors.New("session repo: nil db")
	}
	if session == nil {
		return errors.New("session repo: nil session")
	}
	if err := session.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(session.Mappings)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	tenant_id,
	name,
	plc_name,
	plc_ip,
	opcua_url,
	plc_ordinal,
	mappings
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8
)
ON CONFLICT (id)
DO UPDATE SET
	tenant_id = EXCLUDED.tenant_id,
	name = EXCLUDED.name,
	plc_name = EXCLUDED.plc_name,
	plc_ip = EXCLUDED.plc_ip,
	opcua_url = EXCLUDED.opcua_url,
	plc_ordinal = EXCLUDED.plc_ordinal,
	mappings = EXCLUDED.mappings,
	updated_at = NOW()`, r.table)

	_, err = r.db.ExecContext(
		ctx,
		query,
		session.ID,
		session.TenantID,
		session.Name,
		session.PLC.Name,
		session.PLC.IP,
		session.PLC.OpcuaURL,
		session.PLCOrdinal,
		payload,
	)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	return nil
}

// Delete removes a session by id.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if r == nil || r.db == nil {
		return errors.New("session repo: nil db")
	}
	if id == "" {
		return errors.New("session repo: empty id")
	}
	result, err := r.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.table), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return mapping.ErrSessionNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*mapping.Session, error) {
	var session mapping.Session
	var payload []byte
	if err := row.Scan(
		&session.ID,
		&session.TenantID,
		&session.Name,
		&session.PLC.Name,
		&session.PLC.IP,
		&session.PLC.OpcuaURL,
		&session.PLCOrdinal,
		&payload,
		&session.CreatedAt,
		&session.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &session.Mappings); err != nil {
			return nil, err
		}
	}
	if session.Mappings == nil {
		session.Mappings = []mapping.AddressMapping{}
	}
	session.CreatedAt = session.CreatedAt.UTC()
	session.UpdatedAt = session.UpdatedAt.UTC()
	return &session, nil
}
