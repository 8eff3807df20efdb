package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quizhub-attempt-service/internal/app"
	"quizhub-attempt-service/internal/domain"
)

// WSHandler runs the attempt lifecycle over a websocket, one request/response
// message pair at a time.
type WSHandler struct {
	service  *app.AttemptService
	auth     *Authenticator
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.AttemptService, auth *Authenticator, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		auth:    auth,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	QuizID string `json:"quizId"`
}

type submitPayload struct {
	AttemptID string                   `json:"attemptId"`
	Answers   []domain.SubmittedAnswer `json:"answers"`
}

type getPayload struct {
	AttemptID string `json:"attemptId"`
}

type outboundMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// ServeWS authenticates with ?token= (browsers cannot set headers on the
// upgrade request) or a bearer header, then upgrades.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("token")
	if raw == "" {
		raw = strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	}
	if raw == "" {
		writeMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	id, err := h.auth.Parse(raw)
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := WithIdentity(r.Context(), id)
	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})

	// Single writer: gorilla connections do not support concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Warn("ws write failed", zap.String("user_id", id.UserID), zap.Error(err))
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		select {
		case send <- h.dispatch(ctx, id, inbound):
		case <-writerDone:
		}
	}

	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(ctx context.Context, id Identity, in inboundMessage) outboundMessage {
	switch in.Type {
	case "start":
		var p startPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return h.errorMessage(domain.ErrInvalidInput)
		}
		attempt, err := h.service.Start(ctx, p.QuizID, id.UserID)
		if err != nil {
			return h.errorMessage(err)
		}
		return outboundMessage{Type: "attemptStarted", Payload: attempt}
	case "submit":
		var p submitPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			var target getPayload
			if json.Unmarshal(in.Payload, &target) != nil {
				return h.errorMessage(domain.ErrInvalidInput)
			}
			return h.errorMessage(rejectMalformedSubmit(ctx, h.service, target.AttemptID, id.UserID))
		}
		attempt, err := h.service.Submit(ctx, p.AttemptID, id.UserID, p.Answers)
		if err != nil {
			return h.errorMessage(err)
		}
		return outboundMessage{Type: "attemptSubmitted", Payload: attempt}
	case "get":
		var p getPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return h.errorMessage(domain.ErrInvalidInput)
		}
		attempt, err := h.service.Get(ctx, p.AttemptID, id.UserID, id.Role)
		if err != nil {
			return h.errorMessage(err)
		}
		return outboundMessage{Type: "attempt", Payload: attempt}
	}
	return outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type", Kind: domain.KindInvalid.String()}}
}

func (h *WSHandler) errorMessage(err error) outboundMessage {
	kind := domain.KindOf(err)
	message := err.Error()
	if kind == domain.KindUnavailable || kind == domain.KindUnknown {
		h.log.Error("ws request failed", zap.Error(err))
		message = "internal error"
	}
	return outboundMessage{Type: "error", Payload: errorPayload{Message: message, Kind: kind.String()}}
}
