package http

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quizhub-attempt-service/internal/domain"
)

func TestWebSocketAttemptFlow(t *testing.T) {
	server, auth := newTestServer(t)
	tok := token(t, auth, "alice", "student")

	u := "ws" + server.URL[len("http"):] + "/ws?token=" + tok
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	send(t, conn, "start", map[string]string{"quizId": "quiz-1"})
	var started domain.Attempt
	readNext(t, conn, "attemptStarted", &started)
	if started.Status != domain.StatusInProgress {
		t.Fatalf("unexpected attempt %+v", started)
	}

	send(t, conn, "submit", map[string]interface{}{
		"attemptId": started.ID,
		"answers": []map[string]interface{}{
			{"questionId": "q1", "userAnswer": "4"},
			{"questionId": "q2", "userAnswer": "true"},
		},
	})
	var completed domain.Attempt
	readNext(t, conn, "attemptSubmitted", &completed)
	if completed.Percentage != 100 || !completed.IsPassed || completed.XPEarned != 100 {
		t.Fatalf("unexpected completion %+v", completed)
	}

	send(t, conn, "submit", map[string]interface{}{"attemptId": started.ID})
	var failure errorPayload
	readNext(t, conn, "error", &failure)
	if failure.Kind != "conflict" {
		t.Fatalf("expected conflict, got %+v", failure)
	}

	send(t, conn, "submit", map[string]interface{}{"attemptId": "missing", "answers": "not a list"})
	readNext(t, conn, "error", &failure)
	if failure.Kind != "not_found" {
		t.Fatalf("expected not_found before malformed answers, got %+v", failure)
	}

	send(t, conn, "get", map[string]string{"attemptId": started.ID})
	var fetched domain.Attempt
	readNext(t, conn, "attempt", &fetched)
	if fetched.ID != started.ID || fetched.Status != domain.StatusCompleted {
		t.Fatalf("unexpected attempt %+v", fetched)
	}

	send(t, conn, "dance", nil)
	readNext(t, conn, "error", &failure)
	if failure.Kind != "invalid" {
		t.Fatalf("expected invalid, got %+v", failure)
	}
}

func TestWebSocketRejectsMissingToken(t *testing.T) {
	server, _ := newTestServer(t)
	u := "ws" + server.URL[len("http"):] + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload interface{}) {
	t.Helper()
	if err := conn.WriteJSON(map[string]interface{}{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readNext(t *testing.T, conn *websocket.Conn, expect string, into interface{}) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%s)", expect, msg.Type, msg.Payload)
	}
	if err := json.Unmarshal(msg.Payload, into); err != nil {
		t.Fatalf("decode %s payload: %v", expect, err)
	}
}
