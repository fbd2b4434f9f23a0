package audit

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const insertEntry = `
INSERT INTO session_audit (
	id, tenant_id, actor, role, action, session_id, plc_name,
	detail, digest, ip, user_agent, recorded_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
)`

// Repository writes audit entries to Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs an audit repository.
func NewRepository(db *sql.DB) *Repository {
	if db == nil {
		return nil
	}
	return &Repository{db: db}
}

// Record writes one entry, filling id, digest, and timestamp when the
// caller left them unset.
func (r *Repository) Record(ctx context.Context, entry Entry) error {
	if r == nil || r.db == nil {
		return errors.New("audit repo: nil db")
	}
	if entry.ID == "" {
		entry.ID = NewID()
	}
	if entry.Digest == "" {
		entry.Digest = DigestJSON(entry.Detail)
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, insertEntry,
		entry.ID,
		entry.TenantID,
		entry.Actor,
		entry.Role,
		entry.Action,
		entry.SessionID,
		entry.PLCName,
		entry.Detail,
		entry.Digest,
		entry.IP,
		entry.UserAgent,
		entry.At,
	)
	return err
}
