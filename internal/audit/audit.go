// Package audit records who changed which mapping session.
package audit

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Actions recorded against mapping sessions.
const (
	ActionSessionCreate = "session.create"
	ActionSessionUpdate = "session.update"
	ActionSessionDelete = "session.delete"
	ActionSessionImport = "session.import"
	ActionSessionExport = "session.export"
)

// Entry is one recorded session action: who did what to which session,
// with a free-form JSON detail payload and its digest.
type Entry struct {
	ID        string
	TenantID  string
	Actor     string
	Role      string
	Action    string
	SessionID string
	PLCName   string
	Detail    json.RawMessage
	Digest    string
	IP        string
	UserAgent string
	At        time.Time
}

// Recorder persists audit entries.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// NewID generates a random audit entry id.
func NewID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return "audit-" + hex.EncodeToString(buf)
}

// DigestJSON computes a SHA256 hex digest over a detail payload. An empty
// payload digests to the empty string.
func DigestJSON(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
