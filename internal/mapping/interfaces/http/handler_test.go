package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"opcmap/internal/audit"
	"opcmap/internal/auth"
	"opcmap/internal/mapping/application"
	"opcmap/internal/mapping/infrastructure/memory"
)

type recorderStub struct {
	entries []audit.Entry
}

func (s *recorderStub) Record(ctx context.Context, entry audit.Entry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func newTestHandler(t *testing.T) *SessionHandler {
	t.Helper()
	service, err := application.NewSessionService(memory.NewSessionRepository())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	handler, err := NewSessionHandler(service, nil, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler
}

func createSession(t *testing.T, handler *SessionHandler, body string) sessionPayload {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var payload sessionPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return payload
}

func TestSessionLifecycle(t *testing.T) {
	handler := newTestHandler(t)

	created := createSession(t, handler, `{
		"name": "line 1",
		"plc": {"name": "line-1", "ip": "10.0.0.5", "opcuaUrl": "opc.tcp://10.0.0.5:4840"},
		"plcOrdinal": 2
	}`)
	if created.ID == "" || created.PLCOrdinal != 2 {
		t.Fatalf("created = %+v", created)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+created.ID, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/"+created.ID, nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+created.ID, nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", rec.Code)
	}
}

func TestImportThenExportJSON(t *testing.T) {
	handler := newTestHandler(t)
	created := createSession(t, handler, `{
		"name": "import run",
		"plc": {"name": "line-1", "ip": "10.0.0.5", "opcuaUrl": "opc.tcp://10.0.0.5:4840"}
	}`)

	csvBody := "Symbol,Type,Address,Description\n" +
		"RUN,BOOL,1100.01,run\n" +
		"STOP,BOOL,1100.03,stop\n" +
		"SPEED,UDINT,D200,speed\n" +
		"BAD,WORD,CF10,unsupported\n"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+created.ID+"/import", strings.NewReader(csvBody))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d, body %s", rec.Code, rec.Body.String())
	}

	var result application.BuildResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode import result: %v", err)
	}
	if result.Stats.TotalRecords != 4 || result.Stats.ValidRecords != 2 || result.Stats.SkippedRecords != 1 {
		t.Fatalf("stats = %+v", result.Stats)
	}
	if result.Stats.BooleanChannels != 1 {
		t.Fatalf("boolean channels = %d, want 1", result.Stats.BooleanChannels)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+created.ID+"/export.json", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, created.ID) {
		t.Fatalf("content disposition = %q", cd)
	}

	var plcs []application.PLCExport
	if err := json.Unmarshal(rec.Body.Bytes(), &plcs); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(plcs) != 1 || plcs[0].Name != "line-1" {
		t.Fatalf("export = %+v", plcs)
	}
	if len(plcs[0].Mappings) != 2 {
		t.Fatalf("exported mappings = %d, want 2", len(plcs[0].Mappings))
	}
	if plcs[0].Mappings[0].TargetIdentifier != "P1_A_1100_BC" || plcs[0].Mappings[0].DeclaredType != "channel" {
		t.Fatalf("mapping 0 = %+v", plcs[0].Mappings[0])
	}
}

func TestExportAreaFilterQuery(t *testing.T) {
	handler := newTestHandler(t)
	created := createSession(t, handler, `{
		"name": "filtered",
		"plc": {"name": "line-1", "ip": "10.0.0.5", "opcuaUrl": "opc.tcp://10.0.0.5:4840"},
		"mappings": [
			{"sourceAddress": "D200", "declaredType": "WORD", "targetIdentifier": "P1_D_200_W1"},
			{"sourceAddress": "1100", "declaredType": "WORD", "targetIdentifier": "P1_A_1100_W1"}
		]
	}`)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+created.ID+"/export.json?areas=D", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d, body %s", rec.Code, rec.Body.String())
	}
	var plcs []application.PLCExport
	if err := json.Unmarshal(rec.Body.Bytes(), &plcs); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(plcs[0].Mappings) != 1 || plcs[0].Mappings[0].MemoryArea != "D" {
		t.Fatalf("filtered export = %+v", plcs[0].Mappings)
	}
}

func TestImportMultipartUpload(t *testing.T) {
	handler := newTestHandler(t)
	created := createSession(t, handler, `{
		"name": "upload",
		"plc": {"name": "line-1", "ip": "10.0.0.5", "opcuaUrl": "opc.tcp://10.0.0.5:4840"}
	}`)

	var buf bytes.Buffer
	writer := newMultipartCSV(t, &buf, "registers.csv",
		"Symbol,Type,Address,Description\nSPEED,UDINT,D200,speed\n")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+created.ID+"/import", &buf)
	req.Header.Set("Content-Type", writer)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d, body %s", rec.Code, rec.Body.String())
	}
	var result application.BuildResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Stats.ValidRecords != 1 {
		t.Fatalf("stats = %+v", result.Stats)
	}
}

// newMultipartCSV writes a single-file multipart body into buf and returns
// the request content type.
func newMultipartCSV(t *testing.T, buf *bytes.Buffer, filename, content string) string {
	t.Helper()
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return writer.FormDataContentType()
}

func TestUnknownExportFormat(t *testing.T) {
	handler := newTestHandler(t)
	created := createSession(t, handler, `{
		"name": "formats",
		"plc": {"name": "line-1", "ip": "10.0.0.5", "opcuaUrl": "opc.tcp://10.0.0.5:4840"}
	}`)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+created.ID+"/export.docx", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestAuditTrailRecordsSessionActions(t *testing.T) {
	service, err := application.NewSessionService(memory.NewSessionRepository())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	recorder := &recorderStub{}
	handler, err := NewSessionHandler(service, recorder, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	identity := auth.Identity{TenantID: "tenant-a", Subject: "user-1", Role: auth.RoleAdmin}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(`{
		"name": "audited",
		"plc": {"name": "line-1", "ip": "10.0.0.5", "opcuaUrl": "opc.tcp://10.0.0.5:4840"}
	}`))
	req = req.WithContext(auth.WithIdentity(req.Context(), identity))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created sessionPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/"+created.ID, nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), identity))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	if len(recorder.entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(recorder.entries))
	}
	create := recorder.entries[0]
	if create.Action != audit.ActionSessionCreate || create.SessionID != created.ID {
		t.Fatalf("create entry = %+v", create)
	}
	if create.TenantID != "tenant-a" || create.Actor != "user-1" || create.Role != "admin" {
		t.Fatalf("create identity = %+v", create)
	}
	if create.PLCName != "line-1" {
		t.Fatalf("create plc = %q, want line-1", create.PLCName)
	}
	if recorder.entries[1].Action != audit.ActionSessionDelete {
		t.Fatalf("second entry = %+v", recorder.entries[1])
	}
}

func TestReplaceUpdatesMappings(t *testing.T) {
	handler := newTestHandler(t)
	created := createSession(t, handler, `{
		"name": "replace",
		"plc": {"name": "line-1", "ip": "10.0.0.5", "opcuaUrl": "opc.tcp://10.0.0.5:4840"}
	}`)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/sessions/"+created.ID, strings.NewReader(`{
		"mappings": [
			{"sourceAddress": "D200", "declaredType": "UDINT", "targetIdentifier": "P1_D_200_W2"}
		]
	}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("replace status = %d, body %s", rec.Code, rec.Body.String())
	}
	var payload sessionPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Mappings) != 1 || payload.Mappings[0].TargetIdentifier != "P1_D_200_W2" {
		t.Fatalf("payload = %+v", payload)
	}
	if payload.Name != "replace" {
		t.Fatalf("name = %q, want unchanged", payload.Name)
	}
}
