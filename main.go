package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"opcmap/internal/audit"
	"opcmap/internal/auth"
	"opcmap/internal/config"
	"opcmap/internal/mapping/application"
	mappingrepo "opcmap/internal/mapping/infrastructure/postgres"
	mappinghttp "opcmap/internal/mapping/interfaces/http"
	"opcmap/internal/observability/metrics"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init()
	auditRepo := audit.NewRepository(db)

	sessionRepo := mappingrepo.NewSessionRepository(db)
	sessionService, err := application.NewSessionService(sessionRepo)
	if err != nil {
		logger.Fatalf("session service error: %v", err)
	}
	sessionHandler, err := mappinghttp.NewSessionHandler(sessionService, auditRepo, logger,
		mappinghttp.WithDefaultTenant(cfg.TenantID),
		mappinghttp.WithDefaultPLC(cfg.DefaultPLC, cfg.DefaultPLCOrdinal),
	)
	if err != nil {
		logger.Fatalf("session handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/sessions", sessionHandler)
	mux.Handle("/api/v1/sessions/", sessionHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
