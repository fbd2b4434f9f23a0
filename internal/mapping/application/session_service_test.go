package application

import (
	"context"
	"errors"
	"strings"
	"testing"

	mapping "opcmap/internal/mapping/domain"
	"opcmap/internal/mapping/infrastructure/memory"
)

func newTestService(t *testing.T) (*SessionService, *memory.SessionRepository) {
	t.Helper()
	repo := memory.NewSessionRepository()
	service, err := NewSessionService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service, repo
}

func TestSessionCreateDefaults(t *testing.T) {
	service, _ := newTestService(t)
	session := &mapping.Session{
		TenantID: "tenant-demo",
		Name:     "line 1 commissioning",
	}
	if err := service.Create(context.Background(), session); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(session.ID, "session-") {
		t.Fatalf("id = %q, want generated session- id", session.ID)
	}
	if session.PLCOrdinal != 1 {
		t.Fatalf("ordinal = %d, want default 1", session.PLCOrdinal)
	}
	if session.Mappings == nil {
		t.Fatal("mappings not initialized")
	}

	stored, err := service.Get(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Name != "line 1 commissioning" {
		t.Fatalf("stored = %+v", stored)
	}
}

func TestSessionCreateRejectsInvalid(t *testing.T) {
	service, _ := newTestService(t)
	err := service.Create(context.Background(), &mapping.Session{TenantID: "tenant-demo"})
	if err == nil {
		t.Fatal("expected validation error for missing name")
	}
}

func TestSessionGetUnknown(t *testing.T) {
	service, _ := newTestService(t)
	_, err := service.Get(context.Background(), "session-missing")
	if !errors.Is(err, mapping.ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionImportReplacesMappings(t *testing.T) {
	service, _ := newTestService(t)
	session := &mapping.Session{
		TenantID:   "tenant-demo",
		Name:       "import run",
		PLCOrdinal: 2,
		Mappings: []mapping.AddressMapping{
			{SourceAddress: "D999", DeclaredType: mapping.TypeWord, TargetIdentifier: "P2_D_999_W1"},
		},
	}
	if err := service.Create(context.Background(), session); err != nil {
		t.Fatalf("create: %v", err)
	}

	result, err := service.Import(context.Background(), session.ID, []mapping.RawRecord{
		{DeclaredType: "BOOL", Address: "1100.01"},
		{DeclaredType: "BOOL", Address: "1100.03"},
		{DeclaredType: "UDINT", Address: "D200"},
		{DeclaredType: "WORD", Address: "CF10"},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Stats.TotalRecords != 4 || result.Stats.ValidRecords != 2 || result.Stats.SkippedRecords != 1 {
		t.Fatalf("stats = %+v", result.Stats)
	}

	stored, err := service.Get(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	// The import replaces the prior mapping set outright; the old D999
	// mapping must be gone and the new identifiers carry the session ordinal.
	if len(stored.Mappings) != 2 {
		t.Fatalf("mappings = %d, want 2", len(stored.Mappings))
	}
	if stored.Mappings[0].TargetIdentifier != "P2_A_1100_BC" {
		t.Fatalf("mapping 0 = %+v", stored.Mappings[0])
	}
	if stored.Mappings[1].TargetIdentifier != "P2_D_200_W2" {
		t.Fatalf("mapping 1 = %+v", stored.Mappings[1])
	}
}

func TestSessionImportUnknownSession(t *testing.T) {
	service, _ := newTestService(t)
	_, err := service.Import(context.Background(), "session-missing", nil)
	if !errors.Is(err, mapping.ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionListNewestFirst(t *testing.T) {
	service, _ := newTestService(t)
	for _, name := range []string{"first", "second"} {
		session := &mapping.Session{TenantID: "tenant-demo", Name: name}
		if err := service.Create(context.Background(), session); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	sessions, err := service.List(context.Background(), "tenant-demo")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}
	other, err := service.List(context.Background(), "tenant-other")
	if err != nil {
		t.Fatalf("list other: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("other tenant sessions = %d, want 0", len(other))
	}
}

func TestSessionDelete(t *testing.T) {
	service, _ := newTestService(t)
	session := &mapping.Session{TenantID: "tenant-demo", Name: "doomed"}
	if err := service.Create(context.Background(), session); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := service.Delete(context.Background(), session.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := service.Get(context.Background(), session.ID); !errors.Is(err, mapping.ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}
