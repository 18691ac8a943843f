// Package server exposes the chat interpreter over HTTP.
package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/wesm/github-issue-chat/internal/models"
)

const (
	// SessionHeader carries an explicit caller identity
	SessionHeader = "X-Session-ID"

	// SessionCookie remembers the caller identity for browsers
	SessionCookie = "issuechat_session"

	processingError = "Error processing your request"
	maxBodyBytes    = 64 << 10
)

//go:embed static/index.html
var indexHTML []byte

// ChatHandler answers a chat message from a caller
type ChatHandler interface {
	Handle(ctx context.Context, callerID, message string) string
}

// NotificationLister reads the delivered-notification journal
type NotificationLister interface {
	ListNotifications(ctx context.Context, callerID string, limit int) ([]*models.Notification, error)
}

// ChatRequest is the body of POST /chat
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the body returned by POST /chat
type ChatResponse struct {
	Response string `json:"response"`
}

// Options configures a Server
type Options struct {
	AllowedOrigins []string
	Logger         *slog.Logger
}

// Server provides the chat HTTP handlers
type Server struct {
	router  *chi.Mux
	chat    ChatHandler
	journal NotificationLister
	logger  *slog.Logger
}

// New creates a server. journal may be nil, in which case GET /notifications
// always returns an empty list.
func New(chat ChatHandler, journal NotificationLister, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", SessionHeader},
		ExposedHeaders:   []string{SessionHeader},
		AllowCredentials: !containsWildcard(origins),
		MaxAge:           300,
	}))

	s := &Server{
		router:  r,
		chat:    chat,
		journal: journal,
		logger:  logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Post("/chat", s.handleChat)
	s.router.Get("/notifications", s.handleNotifications)
}

// Router returns the HTTP handler for all routes
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleChat always answers 200; failures are described in the response text.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("panic in chat handler", "panic", rec, "request_id", middleware.GetReqID(r.Context()))
			writeJSON(w, http.StatusOK, ChatResponse{Response: processingError})
		}
	}()

	callerID := s.callerID(w, r)

	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.logger.Warn("invalid chat request", "caller", callerID, "error", err)
		writeJSON(w, http.StatusOK, ChatResponse{Response: processingError})
		return
	}

	response := s.chat.Handle(r.Context(), callerID, req.Message)
	writeJSON(w, http.StatusOK, ChatResponse{Response: response})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	callerID := s.callerID(w, r)

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	notifications := []*models.Notification{}
	if s.journal != nil {
		found, err := s.journal.ListNotifications(r.Context(), callerID, limit)
		if err != nil {
			s.logger.Error("failed to list notifications", "caller", callerID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list notifications")
			return
		}
		if found != nil {
			notifications = found
		}
	}
	writeJSON(w, http.StatusOK, notifications)
}

// callerID identifies the caller by session header, then session cookie. A
// caller with neither gets a new session cookie.
func (s *Server) callerID(w http.ResponseWriter, r *http.Request) string {
	sid := strings.TrimSpace(r.Header.Get(SessionHeader))
	if sid == "" {
		if c, err := r.Cookie(SessionCookie); err == nil {
			sid = strings.TrimSpace(c.Value)
		}
	}
	if sid == "" {
		sid = uuid.NewString()
		s.logger.Debug("created session", "caller", sid, "path", r.URL.Path)
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sid,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secure:   r.TLS != nil,
		})
	}
	w.Header().Set(SessionHeader, sid)
	return sid
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
