// Package server exposes the answer service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pario-ai/sage/pkg/models"
	"github.com/pario-ai/sage/pkg/registry"
)

// Version is reported by the service info endpoint.
const Version = "1.0.0"

// maxBodyBytes bounds /ask request bodies.
const maxBodyBytes = 64 << 10

// Error codes returned in the error envelope.
const (
	CodeMissingQuestion  = "MISSING_QUESTION"
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeInternal         = "INTERNAL_ERROR"
)

// Asker answers a question end to end.
type Asker interface {
	Ask(ctx context.Context, query string) models.Answer
}

// Config configures the HTTP front end.
type Config struct {
	Listen string
	CORS   bool
	// Experts are listed by the health endpoint.
	Experts []registry.Info
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// Server is the Sage HTTP front end.
type Server struct {
	cfg    Config
	asker  Asker
	logger *slog.Logger
	mux    *http.ServeMux
}

// New creates a Server.
func New(cfg Config, asker Asker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		asker:  asker,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	s.mux.HandleFunc("/ask", s.handleAsk)
	s.mux.HandleFunc("/health", s.handleHealth)
	if cfg.Metrics != nil {
		s.mux.Handle("/metrics", cfg.Metrics)
	}
	s.mux.HandleFunc("/", s.handleInfo)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get("X-Request-ID")
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", id)

	if s.cfg.CORS {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}

	start := time.Now()
	s.mux.ServeHTTP(w, r)
	s.logger.Debug("request served",
		slog.String("request_id", id),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Duration("elapsed", time.Since(start)),
	)
}

// ListenAndServe starts the server with graceful shutdown support.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("sage listening", slog.String("addr", s.cfg.Listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

type askRequest struct {
	Question string `json:"question"`
}

type successResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
		return
	}

	var req askRequest
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, CodeInvalidRequest, "request body too large")
			return
		}
		writeJSONError(w, http.StatusBadRequest, CodeInvalidRequest, "failed to read request body")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSONError(w, http.StatusBadRequest, CodeInvalidRequest, "invalid request body")
			return
		}
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSONError(w, http.StatusBadRequest, CodeMissingQuestion, "Question is required")
		return
	}

	answer := s.asker.Ask(r.Context(), req.Question)
	s.logger.Info("question answered",
		slog.String("request_id", w.Header().Get("X-Request-ID")),
		slog.String("expert", string(answer.Expert)),
		slog.String("source", string(answer.Source)),
		slog.String("outcome", string(answer.Outcome)),
	)
	if answer.Outcome == models.OutcomeError {
		writeJSONError(w, http.StatusInternalServerError, CodeInternal, answer.Text)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Status: "success", Data: answer})
}

type healthResponse struct {
	Status  string          `json:"status"`
	Experts []registry.Info `json:"experts"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	experts := s.cfg.Experts
	if experts == nil {
		experts = []registry.Info{}
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Experts: experts})
}

type infoResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "NOT_FOUND", "not found")
		return
	}
	writeJSON(w, http.StatusOK, infoResponse{Status: "online", Service: "sage", Version: Version})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Status string    `json:"status"`
	Error  errorBody `json:"error"`
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Status: "error", Error: errorBody{Code: code, Message: message}})
}
