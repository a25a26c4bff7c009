// Package server exposes the ranking session over a small JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/cv-ranker/internal/embedding"
	"github.com/spigell/cv-ranker/internal/logger"
	"github.com/spigell/cv-ranker/internal/scoring"
	"github.com/spigell/cv-ranker/internal/session"
)

const (
	DefaultAddr     = ":5000"
	shutdownTimeout = 10 * time.Second
	maxBodyBytes    = 1 << 20
)

// Server serves the ranking API for a single session.
type Server struct {
	httpServer *http.Server
	session    *session.Session
	logger     *zap.Logger
}

type Config struct {
	Addr string
}

func New(cfg Config, sess *session.Session, log *zap.Logger) (*Server, error) {
	if sess == nil {
		return nil, errors.New("session is required")
	}

	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}

	s := &Server{
		session: sess,
		logger:  logger.WithFields(log).Named("http"),
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /set-weights", s.handleSetWeights)
	mux.HandleFunc("POST /filter-skill", s.handleFilterSkill)
	mux.HandleFunc("POST /send-emails", s.handleSendEmails)
	mux.HandleFunc("POST /reset", s.handleReset)
	mux.HandleFunc("GET /candidates", s.handleCandidates)
	mux.HandleFunc("GET /health", s.handleHealth)

	return s.withLogging(s.withCORS(mux))
}

// Start listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("backend running", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("took", time.Since(start)),
		)
	})
}

type skillRequest struct {
	Skill string `json:"skill"`
}

type weightsResponse struct {
	Message string          `json:"message"`
	Weights scoring.Weights `json:"weights"`
}

type resetResponse struct {
	Message      string   `json:"message"`
	ActiveSkills []string `json:"activeSkills"`
}

func (s *Server) handleSetWeights(w http.ResponseWriter, r *http.Request) {
	var in scoring.WeightsInput
	if !s.decode(w, r, &in) {
		return
	}

	weights, err := in.Weights()
	if err == nil {
		weights, err = s.session.SetWeights(weights)
	}
	if err != nil {
		s.fail(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, weightsResponse{Message: "Weights updated", Weights: weights})
}

func (s *Server) handleFilterSkill(w http.ResponseWriter, r *http.Request) {
	var in skillRequest
	if !s.decode(w, r, &in) {
		return
	}

	res, err := s.session.AddSkill(r.Context(), in.Skill)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

func (s *Server) handleSendEmails(w http.ResponseWriter, r *http.Request) {
	n, err := s.session.NotifyTop(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, n)
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	res := s.session.Reset()
	s.jsonResponse(w, http.StatusOK, resetResponse{Message: "Skills reset", ActiveSkills: res.ActiveSkills})
}

func (s *Server) handleCandidates(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.errorResponse(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// fail maps domain errors onto status codes.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var verr *scoring.ValidationError
	switch {
	case errors.As(err, &verr):
		s.errorResponse(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, embedding.ErrEmbedding):
		s.logger.Error("embedding failed", zap.Error(err))
		s.errorResponse(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, session.ErrNotifierMissing):
		s.errorResponse(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encode response", zap.Error(err))
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
