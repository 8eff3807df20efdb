package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"quizhub-attempt-service/internal/app"
	"quizhub-attempt-service/internal/domain"
)

// AttemptHandler exposes the attempt lifecycle over REST.
type AttemptHandler struct {
	service *app.AttemptService
	log     *zap.Logger
}

func NewAttemptHandler(service *app.AttemptService, log *zap.Logger) *AttemptHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AttemptHandler{service: service, log: log}
}

type startRequest struct {
	QuizID string `json:"quizId"`
}

type submitRequest struct {
	Answers []domain.SubmittedAnswer `json:"answers"`
}

// RouterConfig collects what NewRouter needs besides the handlers.
type RouterConfig struct {
	Auth           *Authenticator
	AllowedOrigins []string
	Log            *zap.Logger
}

// NewRouter mounts the REST API, the websocket endpoint and the health check.
func NewRouter(attempts *AttemptHandler, ws *WSHandler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Log != nil {
		r.Use(requestLogger(cfg.Log))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/ws", ws.ServeWS)

	r.Route("/api/attempts", func(r chi.Router) {
		r.Use(cfg.Auth.Middleware)
		r.Post("/start", attempts.Start)
		r.Get("/user/history", attempts.History)
		r.Get("/user/stats", attempts.Stats)
		r.Post("/{attemptID}/submit", attempts.Submit)
		r.Get("/{attemptID}", attempts.Get)
	})
	return r
}

func (h *AttemptHandler) Start(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, r, fmt.Errorf("%w: malformed body", domain.ErrInvalidInput))
		return
	}
	attempt, err := h.service.Start(r.Context(), req.QuizID, id.UserID)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeData(w, http.StatusCreated, attempt, "Quiz attempt started")
}

func (h *AttemptHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	attemptID := chi.URLParam(r, "attemptID")
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, r, rejectMalformedSubmit(r.Context(), h.service, attemptID, id.UserID))
		return
	}
	attempt, err := h.service.Submit(r.Context(), attemptID, id.UserID, req.Answers)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeData(w, http.StatusOK, attempt, "Quiz submitted successfully")
}

// rejectMalformedSubmit reports a missing, foreign or completed attempt ahead
// of the malformed answers, matching the order Submit checks them in.
func rejectMalformedSubmit(ctx context.Context, service *app.AttemptService, attemptID, userID string) error {
	attempt, err := service.Get(ctx, attemptID, userID, "")
	if err != nil {
		return err
	}
	if attempt.Status == domain.StatusCompleted {
		return domain.ErrAttemptCompleted
	}
	return fmt.Errorf("%w: malformed answers", domain.ErrInvalidInput)
}

func (h *AttemptHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	attempt, err := h.service.Get(r.Context(), chi.URLParam(r, "attemptID"), id.UserID, id.Role)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeData(w, http.StatusOK, attempt, "")
}

func (h *AttemptHandler) History(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, h.log, r, fmt.Errorf("%w: limit must be a non-negative integer", domain.ErrInvalidInput))
			return
		}
		limit = n
	}
	entries, err := h.service.History(r.Context(), id.UserID, limit)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeData(w, http.StatusOK, entries, "")
}

func (h *AttemptHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	stats, err := h.service.Stats(r.Context(), id.UserID)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeData(w, http.StatusOK, stats, "")
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
