package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/score-tracker/internal/domain"
	"github.com/score-tracker/internal/service"
	"github.com/score-tracker/internal/websocket"
)

const (
	maxBodyBytes = 1 << 20
	readyTimeout = 2 * time.Second
)

// Handler provides HTTP handlers for the score API
type Handler struct {
	service        *service.ScoreService
	hub            *websocket.Hub
	allowedOrigins []string
	logger         *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(service *service.ScoreService, hub *websocket.Hub, allowedOrigins []string, logger *slog.Logger) *Handler {
	return &Handler{
		service:        service,
		hub:            hub,
		allowedOrigins: allowedOrigins,
		logger:         logger,
	}
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(h.corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// WebSocket
	r.Get("/ws", h.HandleWebSocket)
	r.Get("/ws/stats", h.GetWebSocketStats)

	r.Route("/scores", func(r chi.Router) {
		r.Get("/show_score/{playerName}", h.ShowScore)
		r.Get("/leaderboard", h.GetLeaderboard)

		r.Put("/update_user_score/", h.UpdateScore)
		r.Put("/update_user_score", h.UpdateScore)
		r.Post("/signup/", h.Signup)
		r.Post("/signup", h.Signup)
		r.Post("/login/", h.Login)
		r.Post("/login", h.Login)

		r.Delete("/delete_user_score/{playerName}", h.DeleteScore)
	})

	return r
}

// corsMiddleware echoes allowed origins back to the browser and answers
// preflight requests
func (h *Handler) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowed := origin != "" && h.originAllowed(origin)

		if allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			if origin != "" && !allowed {
				h.logger.Warn("origin not allowed", "origin", origin)
				h.writeJSON(w, http.StatusForbidden, ErrorResponse{Detail: "Disallowed CORS origin"})
				return
			}
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) originAllowed(origin string) bool {
	for _, o := range h.allowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeMessage writes a successful {"message": ...} response
func (h *Handler) writeMessage(w http.ResponseWriter, message string) {
	h.writeJSON(w, http.StatusOK, domain.MessageResponse{Message: message})
}

// writeError maps a service error to its status code and detail message
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrPlayerNotFound):
		h.writeJSON(w, http.StatusNotFound, ErrorResponse{Detail: "Player not found."})
	case errors.Is(err, domain.ErrPlayerExists):
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: "Player name already exists."})
	case errors.Is(err, domain.ErrInvalidPassword):
		h.writeJSON(w, http.StatusUnauthorized, ErrorResponse{Detail: "Invalid password."})
	case errors.Is(err, domain.ErrInvalidRequest):
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: "Invalid request."})
	default:
		h.logger.Error("request failed", "op", op, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: domain.ErrInternalError.Error()})
	}
}

// decode reads a JSON request body into dst, writing a 400 on failure
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Debug("invalid request body", "path", r.URL.Path, "error", err)
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: "Invalid request body."})
		return false
	}
	return true
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_connections":       h.hub.GetTotalConnections(),
		"topics":                  h.hub.GetTopicCount(),
		"leaderboard_subscribers": h.hub.GetSubscriberCount(websocket.LeaderboardTopic),
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ReadyCheck reports whether the score store is reachable
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.service.Ready(ctx); err != nil {
		h.logger.Warn("store not ready", "error", err)
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// ShowScore returns a single player's score
func (h *Handler) ShowScore(w http.ResponseWriter, r *http.Request) {
	playerName := chi.URLParam(r, "playerName")

	score, err := h.service.GetScore(r.Context(), playerName)
	if err != nil {
		h.writeError(w, "show score", err)
		return
	}

	h.writeJSON(w, http.StatusOK, score)
}

// GetLeaderboard returns the top players
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.GetLeaderboard(r.Context())
	if err != nil {
		h.writeError(w, "leaderboard", err)
		return
	}
	if records == nil {
		records = []domain.PlayerRecord{}
	}

	h.writeJSON(w, http.StatusOK, records)
}

// UpdateScore overwrites a player's score
func (h *Handler) UpdateScore(w http.ResponseWriter, r *http.Request) {
	var submission domain.ScoreSubmission
	if !h.decode(w, r, &submission) {
		return
	}

	if err := h.service.UpdateScore(r.Context(), submission); err != nil {
		h.writeError(w, "update score", err)
		return
	}

	h.writeMessage(w, "User score updated successfully")
}

// Signup registers a new player
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.Signup(r.Context(), req); err != nil {
		h.writeError(w, "signup", err)
		return
	}

	h.writeMessage(w, "User registered successfully")
}

// Login checks a player's credentials
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.Login(r.Context(), req); err != nil {
		h.writeError(w, "login", err)
		return
	}

	h.writeMessage(w, fmt.Sprintf("Welcome, %s!", req.PlayerName))
}

// DeleteScore removes a player
func (h *Handler) DeleteScore(w http.ResponseWriter, r *http.Request) {
	playerName := chi.URLParam(r, "playerName")

	if err := h.service.DeleteScore(r.Context(), playerName); err != nil {
		h.writeError(w, "delete score", err)
		return
	}

	h.writeMessage(w, "User deleted successfully")
}
