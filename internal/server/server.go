// Package server is the inbound HTTP surface: a webhook receiving customer
// messages from the channel gateway and handing each turn to the engine.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// TurnHandler processes one inbound turn. Implemented by engine.Engine.
type TurnHandler interface {
	Handle(ctx context.Context, key, text string, isVoice bool) (string, error)
}

type Server struct {
	Router *chi.Mux
	Port   int
	logger *slog.Logger
	engine TurnHandler
}

// New builds the HTTP server around the engine.
func New(port int, requestTimeout time.Duration, engine TurnHandler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(TimeoutMiddleware(requestTimeout))
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "ventabot")
	})

	s := &Server{
		Router: r,
		Port:   port,
		logger: logger,
		engine: engine,
	}
	r.Get("/healthz", s.handleHealth)
	r.Post("/webhook/messages", s.handleInbound)
	return s
}

func (s *Server) Start() error {
	s.logger.Info("starting server", slog.Int("port", s.Port))
	return http.ListenAndServe(fmt.Sprintf(":%d", s.Port), s.Router)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// inboundMessage is the channel gateway's webhook payload.
type inboundMessage struct {
	From  string `json:"from"`
	Text  string `json:"text"`
	Voice bool   `json:"voice"`
}

// handleInbound processes one customer message and returns the reply
// synchronously. The engine also pushes the reply through the configured
// sender, so asynchronous gateways can ignore the response body.
func (s *Server) handleInbound(w http.ResponseWriter, r *http.Request) {
	var msg inboundMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	msg.From = strings.TrimSpace(msg.From)
	if msg.From == "" || strings.TrimSpace(msg.Text) == "" {
		http.Error(w, "from and text are required", http.StatusBadRequest)
		return
	}
	AddLogField(r.Context(), "customer", msg.From)

	reply, err := s.engine.Handle(r.Context(), msg.From, msg.Text, msg.Voice)
	if err != nil {
		AddError(r.Context(), err)
		http.Error(w, "failed to process message", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"reply": reply})
}
