package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/rentora/chatd/internal/auth"
	"github.com/rentora/chatd/internal/chat"
	"github.com/rentora/chatd/internal/directory"
	"github.com/rentora/chatd/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	log      zerolog.Logger
	store    store.DataStore
	limiter  *store.RateLimiter
	hub      *chat.Hub
	verifier *auth.Verifier
	users    directory.IdentityLookup

	devMode      bool
	jwtSecret    string
	pongTimeout  time.Duration
	pingInterval time.Duration
}

// Config carries the handler knobs taken from the server config.
type Config struct {
	DevMode      bool
	JWTSecret    string
	PongTimeout  time.Duration
	PingInterval time.Duration
}

// NewHandler creates a new Handler. limiter may be nil.
func NewHandler(
	log zerolog.Logger,
	ds store.DataStore,
	limiter *store.RateLimiter,
	hub *chat.Hub,
	verifier *auth.Verifier,
	users directory.IdentityLookup,
	cfg Config,
) *Handler {
	return &Handler{
		log:          log,
		store:        ds,
		limiter:      limiter,
		hub:          hub,
		verifier:     verifier,
		users:        users,
		devMode:      cfg.DevMode,
		jwtSecret:    cfg.JWTSecret,
		pongTimeout:  cfg.PongTimeout,
		pingInterval: cfg.PingInterval,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
