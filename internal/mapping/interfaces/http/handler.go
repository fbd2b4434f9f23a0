// Package http exposes the mapping session REST API.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"path"
	"strings"
	"time"

	"opcmap/internal/audit"
	"opcmap/internal/auth"
	"opcmap/internal/export"
	"opcmap/internal/ingest"
	"opcmap/internal/mapping/application"
	mapping "opcmap/internal/mapping/domain"
	"opcmap/internal/observability/metrics"
)

// maxImportBytes caps register-file uploads.
const maxImportBytes = 32 << 20

// SessionHandler provides session CRUD, register import, and mapping export
// endpoints under /api/v1/sessions.
type SessionHandler struct {
	service  *application.SessionService
	recorder audit.Recorder
	logger   *log.Logger

	defaultTenant  string
	defaultPLC     mapping.PLCDescriptor
	defaultOrdinal int
}

// Option customizes a SessionHandler.
type Option func(*SessionHandler)

// WithDefaultTenant sets the tenant used when the request context carries
// no identity.
func WithDefaultTenant(tenant string) Option {
	return func(h *SessionHandler) { h.defaultTenant = tenant }
}

// WithDefaultPLC sets the PLC descriptor and ordinal applied to sessions
// created without one.
func WithDefaultPLC(plc mapping.PLCDescriptor, ordinal int) Option {
	return func(h *SessionHandler) {
		h.defaultPLC = plc
		h.defaultOrdinal = ordinal
	}
}

// NewSessionHandler constructs a handler.
func NewSessionHandler(service *application.SessionService, recorder audit.Recorder, logger *log.Logger, opts ...Option) (*SessionHandler, error) {
	if service == nil {
		return nil, errors.New("session handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	h := &SessionHandler{
		service:       service,
		recorder:      recorder,
		logger:        logger,
		defaultTenant: "tenant-demo",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// sessionPayload is the wire form of a session.
type sessionPayload struct {
	ID         string                   `json:"id,omitempty"`
	Name       string                   `json:"name"`
	PLC        mapping.PLCDescriptor    `json:"plc"`
	PLCOrdinal int                      `json:"plcOrdinal,omitempty"`
	Mappings   []mapping.AddressMapping `json:"mappings"`
	CreatedAt  *time.Time               `json:"createdAt,omitempty"`
	UpdatedAt  *time.Time               `json:"updatedAt,omitempty"`
}

func payloadFromSession(s *mapping.Session) sessionPayload {
	payload := sessionPayload{
		ID:         s.ID,
		Name:       s.Name,
		PLC:        s.PLC,
		PLCOrdinal: s.PLCOrdinal,
		Mappings:   s.Mappings,
	}
	if !s.CreatedAt.IsZero() {
		created := s.CreatedAt
		payload.CreatedAt = &created
	}
	if !s.UpdatedAt.IsZero() {
		updated := s.UpdatedAt
		payload.UpdatedAt = &updated
	}
	return payload
}

// ServeHTTP routes /api/v1/sessions requests.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/sessions")
	rest = strings.TrimPrefix(rest, "/")

	if rest == "" {
		switch r.Method {
		case http.MethodPost:
			h.handleCreate(w, r)
		case http.MethodGet:
			h.handleList(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	id, action, _ := strings.Cut(rest, "/")
	switch {
	case action == "":
		switch r.Method {
		case http.MethodGet:
			h.handleGet(w, r, id)
		case http.MethodPut:
			h.handleReplace(w, r, id)
		case http.MethodDelete:
			h.handleDelete(w, r, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case action == "import" && r.Method == http.MethodPost:
		h.handleImport(w, r, id)
	case strings.HasPrefix(action, "export.") && r.Method == http.MethodGet:
		h.handleExport(w, r, id, strings.TrimPrefix(action, "export."))
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var payload sessionPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	identity, _ := auth.IdentityFromContext(r.Context())
	session := &mapping.Session{
		ID:         payload.ID,
		TenantID:   identity.TenantID,
		Name:       payload.Name,
		PLC:        payload.PLC,
		PLCOrdinal: payload.PLCOrdinal,
		Mappings:   payload.Mappings,
	}
	if session.TenantID == "" {
		session.TenantID = h.defaultTenant
	}
	if session.PLC == (mapping.PLCDescriptor{}) {
		session.PLC = h.defaultPLC
	}
	if session.PLCOrdinal == 0 {
		session.PLCOrdinal = h.defaultOrdinal
	}

	if err := h.service.Create(r.Context(), session); err != nil {
		metrics.IncSessionOp("create", metrics.ResultError)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	metrics.IncSessionOp("create", metrics.ResultSuccess)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(payloadFromSession(session))

	h.logAudit(r, audit.ActionSessionCreate, session.ID, session.PLC.Name, map[string]any{"name": session.Name})
}

func (h *SessionHandler) handleList(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	tenantID := identity.TenantID
	if tenantID == "" {
		tenantID = r.URL.Query().Get("tenant_id")
	}
	if tenantID == "" {
		http.Error(w, "tenant_id is required", http.StatusBadRequest)
		return
	}

	sessions, err := h.service.List(r.Context(), tenantID)
	if err != nil {
		metrics.IncSessionOp("list", metrics.ResultError)
		http.Error(w, "list sessions error", http.StatusInternalServerError)
		return
	}
	metrics.IncSessionOp("list", metrics.ResultSuccess)

	payloads := make([]sessionPayload, 0, len(sessions))
	for i := range sessions {
		payloads = append(payloads, payloadFromSession(&sessions[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payloads)
}

func (h *SessionHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	session, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payloadFromSession(session))
}

func (h *SessionHandler) handleReplace(w http.ResponseWriter, r *http.Request, id string) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var payload sessionPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	session, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	if payload.Name != "" {
		session.Name = payload.Name
	}
	if payload.PLC != (mapping.PLCDescriptor{}) {
		session.PLC = payload.PLC
	}
	if payload.PLCOrdinal > 0 {
		session.PLCOrdinal = payload.PLCOrdinal
	}
	if payload.Mappings != nil {
		session.Mappings = payload.Mappings
	}

	if err := h.service.Replace(r.Context(), session); err != nil {
		metrics.IncSessionOp("update", metrics.ResultError)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	metrics.IncSessionOp("update", metrics.ResultSuccess)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payloadFromSession(session))

	h.logAudit(r, audit.ActionSessionUpdate, session.ID, session.PLC.Name, map[string]any{"mappings": len(session.Mappings)})
}

func (h *SessionHandler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.service.Delete(r.Context(), id); err != nil {
		metrics.IncSessionOp("delete", metrics.ResultError)
		respondSessionError(w, err)
		return
	}
	metrics.IncSessionOp("delete", metrics.ResultSuccess)
	w.WriteHeader(http.StatusNoContent)

	h.logAudit(r, audit.ActionSessionDelete, id, "", nil)
}

func (h *SessionHandler) handleImport(w http.ResponseWriter, r *http.Request, id string) {
	start := time.Now()

	grid, err := h.readGrid(r)
	if err != nil {
		metrics.ObserveImport(metrics.ResultError, time.Since(start))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	skipHeader := r.URL.Query().Get("header") != "0"
	records := ingest.GridRecords(grid, skipHeader)

	result, err := h.service.Import(r.Context(), id, records)
	if err != nil {
		metrics.ObserveImport(metrics.ResultError, time.Since(start))
		respondSessionError(w, err)
		return
	}
	metrics.ObserveImport(metrics.ResultSuccess, time.Since(start))
	metrics.AddImportRows(metrics.RowOutcomeMapped, result.Stats.ValidRecords)
	metrics.AddImportRows(metrics.RowOutcomeSkipped, result.Stats.SkippedRecords)
	metrics.AddImportRows(metrics.RowOutcomeMerged, len(result.MergedBooleanAddresses))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)

	h.logAudit(r, audit.ActionSessionImport, id, "", map[string]any{
		"total":    result.Stats.TotalRecords,
		"valid":    result.Stats.ValidRecords,
		"skipped":  result.Stats.SkippedRecords,
		"channels": result.Stats.BooleanChannels,
	})
}

// readGrid extracts the raw string grid from a multipart upload or a raw
// request body. XLSX is detected by file extension or the format query
// parameter; everything else decodes as CSV.
func (h *SessionHandler) readGrid(r *http.Request) ([][]string, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxImportBytes); err != nil {
			return nil, errors.New("session handler: bad multipart body")
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, errors.New("session handler: missing file field")
		}
		defer file.Close()
		if strings.EqualFold(path.Ext(header.Filename), ".xlsx") {
			return ingest.DecodeXLSX(file)
		}
		return ingest.DecodeCSV(file)
	}

	defer r.Body.Close()
	body := io.LimitReader(r.Body, maxImportBytes)
	if r.URL.Query().Get("format") == "xlsx" {
		return ingest.DecodeXLSX(body)
	}
	return ingest.DecodeCSV(body)
}

func (h *SessionHandler) handleExport(w http.ResponseWriter, r *http.Request, id, format string) {
	start := time.Now()

	session, err := h.service.Get(r.Context(), id)
	if err != nil {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
		respondSessionError(w, err)
		return
	}

	filter := application.ExportFilter{}
	if areas := r.URL.Query().Get("areas"); areas != "" {
		for _, area := range strings.Split(areas, ",") {
			if area = strings.TrimSpace(area); area != "" {
				filter.Areas = append(filter.Areas, area)
			}
		}
	}
	projection := application.BuildExport(session.PLC, session.Mappings, filter)

	var artifact []byte
	var contentType string
	switch format {
	case "json":
		artifact, err = export.BuildJSON([]application.PLCExport{projection.PLC})
		contentType = "application/json"
	case "xlsx":
		artifact, err = export.BuildXLSX(projection.PLC)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "pdf":
		artifact, err = export.BuildPDF(projection.PLC)
		contentType = "application/pdf"
	default:
		metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
		http.Error(w, "unknown export format", http.StatusNotFound)
		return
	}
	if err != nil {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
		h.logger.Printf("export %s error: %v", format, err)
		http.Error(w, "export error", http.StatusInternalServerError)
		return
	}
	metrics.ObserveExport(format, metrics.ResultSuccess, time.Since(start))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="mappings-`+session.ID+`.`+format+`"`)
	_, _ = w.Write(artifact)

	h.logAudit(r, audit.ActionSessionExport, id, session.PLC.Name, map[string]any{
		"format":     format,
		"mappings":   len(projection.PLC.Mappings),
		"duplicates": projection.DuplicatesDropped,
	})
}

func respondSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, mapping.ErrSessionNotFound) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func (h *SessionHandler) logAudit(r *http.Request, action, sessionID, plcName string, detail map[string]any) {
	if h.recorder == nil {
		return
	}
	identity, _ := auth.IdentityFromContext(r.Context())
	var payload json.RawMessage
	if detail != nil {
		payload, _ = json.Marshal(detail)
	}
	_ = h.recorder.Record(r.Context(), audit.Entry{
		TenantID:  identity.TenantID,
		Actor:     identity.Subject,
		Role:      string(identity.Role),
		Action:    action,
		SessionID: sessionID,
		PLCName:   plcName,
		Detail:    payload,
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
}
