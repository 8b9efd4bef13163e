// Package server exposes the text generator over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/jxucoder/meepoo/internal/history"
	"github.com/jxucoder/meepoo/pkg/eventbus"
	"github.com/jxucoder/meepoo/pkg/llm"
)

// History is the subset of history.Store the server needs.
type History interface {
	Record(ctx context.Context, g *history.Generation) error
	Get(ctx context.Context, id string) (*history.Generation, error)
	List(ctx context.Context, limit int) ([]*history.Generation, error)
}

// Server is the meepoo HTTP API server.
type Server struct {
	gen     llm.Generator
	model   string
	history History // nil when history is disabled
	bus     eventbus.Bus[*history.Generation]
	logger  zerolog.Logger
	router  chi.Router
}

// New creates a Server. hist may be nil.
func New(gen llm.Generator, model string, hist History, logger zerolog.Logger) *Server {
	s := &Server{
		gen:     gen,
		model:   model,
		history: hist,
		bus:     eventbus.NewInMemoryBus[*history.Generation](),
		logger:  logger,
	}
	s.router = s.buildRouter()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until ctx is cancelled. Request contexts derive from
// ctx so open event streams end on shutdown.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.router,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Str("addr", addr).Msg("meepoo server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Route("/generate", func(r chi.Router) {
			r.Post("/prompt", s.handlePrompt)
			r.Post("/hunks", s.handleHunks)
			r.Post("/diff", s.handleDiff)
			r.Post("/summary", s.handleSummary)
		})
		r.Get("/history", s.handleListHistory)
		r.Get("/history/{id}", s.handleGetHistory)
		r.Get("/events", s.handleEvents)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	return r
}

// --- Request/Response types ---

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type hunksRequest struct {
	HunkComments []string `json:"hunk_comments"`
}

type diffRequest struct {
	Diff string `json:"diff"`
}

type summaryRequest struct {
	Token string `json:"token"`
}

type generateResponse struct {
	ID   string   `json:"id"`
	Kind llm.Kind `json:"kind"`
	Text string   `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// --- Handlers ---

func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	s.generate(w, r, llm.KindPrompt, req.Prompt, func(ctx context.Context) (string, error) {
		return s.gen.GenerateMessage(ctx, req.Prompt)
	})
}

func (s *Server) handleHunks(w http.ResponseWriter, r *http.Request) {
	var req hunksRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.HunkComments) == 0 {
		writeError(w, http.StatusBadRequest, "hunk_comments is required")
		return
	}
	s.generate(w, r, llm.KindHunks, strings.Join(req.HunkComments, "\n"), func(ctx context.Context) (string, error) {
		return s.gen.GenerateCommitMessageFromHunks(ctx, req.HunkComments)
	})
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	var req diffRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Diff) == "" {
		writeError(w, http.StatusBadRequest, "diff is required")
		return
	}
	s.generate(w, r, llm.KindDiff, req.Diff, func(ctx context.Context) (string, error) {
		return s.gen.GenerateCommitMessage(ctx, req.Diff)
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	s.generate(w, r, llm.KindSummary, req.Token, func(ctx context.Context) (string, error) {
		return s.gen.Summarize(ctx, req.Token)
	})
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	gens, err := s.history.List(r.Context(), limit)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("listing history")
		writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	if gens == nil {
		gens = []*history.Generation{}
	}
	writeJSON(w, http.StatusOK, gens)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return
	}
	g, err := s.history.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, "generation not found")
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("reading history")
		writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// handleEvents streams every successful generation as a server-sent event
// until the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	ch := s.bus.Subscribe()
	defer s.bus.Unsubscribe(ch)

	// Comment line so clients see the stream open before the first event.
	fmt.Fprint(w, ": subscribed\n\n")
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case g, ok := <-ch:
			if !ok {
				return
			}
			if err := writeSSE(w, g); err != nil {
				hlog.FromRequest(r).Debug().Err(err).Msg("event stream closed")
				return
			}
			flusher.Flush()
		}
	}
}

// generate runs call and writes its result. Successful results are recorded
// when history is enabled; a recording failure is logged but not returned.
func (s *Server) generate(w http.ResponseWriter, r *http.Request, kind llm.Kind, input string, call func(context.Context) (string, error)) {
	logger := hlog.FromRequest(r)

	text, err := call(r.Context())
	if err != nil {
		status := statusFor(err)
		logger.Error().Err(err).Str("kind", string(kind)).Int("status", status).Msg("generation failed")
		writeError(w, status, err.Error())
		return
	}

	g := &history.Generation{
		ID:        uuid.New().String(),
		Kind:      kind,
		Model:     s.model,
		Input:     input,
		Output:    text,
		CreatedAt: time.Now().UTC(),
	}
	if s.history != nil {
		if err := s.history.Record(r.Context(), g); err != nil {
			logger.Warn().Err(err).Str("id", g.ID).Msg("recording generation")
		}
	}
	s.bus.Publish(g)

	writeJSON(w, http.StatusOK, generateResponse{ID: g.ID, Kind: kind, Text: text})
}

// statusFor maps generator errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, llm.ErrInvalidEndpoint):
		return http.StatusInternalServerError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		// Malformed responses and transport failures are both upstream faults.
		return http.StatusBadGateway
	}
}

// --- Helpers ---

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeSSE(w http.ResponseWriter, g *history.Generation) error {
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: generation\ndata: %s\n\n", g.ID, data)
	return err
}
