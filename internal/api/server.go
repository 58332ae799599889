package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"dexsubgraphs/internal/storage"
)

const (
	defaultLimit = 50
	maxLimit     = 1000
)

// Config for the API server.
type Config struct {
	Listen string
	// Subgraphs lists the enabled subgraph names reported by /health.
	Subgraphs []string
}

// Server exposes the entity store read-only over HTTP.
type Server struct {
	config Config
	store  storage.Store
	logger *zap.Logger
	router *mux.Router
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Message string `json:"message"`
}

// ListResponse wraps a page of entities of one kind.
type ListResponse struct {
	Kind  string            `json:"kind"`
	Count int               `json:"count"`
	Items []json.RawMessage `json:"items"`
}

// NewServer creates a new API server.
func NewServer(cfg Config, store storage.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		config: cfg,
		store:  store,
		logger: logger,
		router: mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api/v2").Subrouter()
	api.HandleFunc("/entities/{kind}", s.handleEntities).Methods("GET")
	api.HandleFunc("/entities/{kind}/{id}", s.handleEntity).Methods("GET")

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
}

// Router returns the HTTP router for testing.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", zap.String("addr", s.config.Listen))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("api stopped")
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Message: message})
}

func getLimit(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return min(n, maxLimit), true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	subgraphs := s.config.Subgraphs
	if subgraphs == nil {
		subgraphs = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"subgraphs": subgraphs,
	})
}

func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	kind := mux.Vars(r)["kind"]
	limit, ok := getLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	rows, err := s.store.List(r.Context(), kind, limit)
	if err != nil {
		s.logger.Error("list entities", zap.String("kind", kind), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	items := make([]json.RawMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, json.RawMessage(row))
	}
	writeJSON(w, http.StatusOK, ListResponse{Kind: kind, Count: len(items), Items: items})
}

func (s *Server) handleEntity(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, id := vars["kind"], vars["id"]

	data, err := s.store.Get(r.Context(), kind, id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, kind+" "+id+" not found")
		return
	}
	if err != nil {
		s.logger.Error("get entity", zap.String("kind", kind), zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, json.RawMessage(data))
}
