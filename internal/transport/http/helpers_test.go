package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quizhub-attempt-service/internal/app"
	"quizhub-attempt-service/internal/domain"
	"quizhub-attempt-service/internal/infra/memory"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) (*httptest.Server, *Authenticator) {
	t.Helper()
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuizzes()), time.Minute)
	service := app.NewAttemptService(memory.NewAttemptStore(), quizzes)
	auth := NewAuthenticator(testSecret)

	router := NewRouter(
		NewAttemptHandler(service, nil),
		NewWSHandler(service, auth, nil),
		RouterConfig{Auth: auth, AllowedOrigins: []string{"http://localhost:3006"}},
	)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, auth
}

func token(t *testing.T, auth *Authenticator, userID, role string) string {
	t.Helper()
	tok, err := auth.IssueToken(userID, role, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

type apiResponse struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Error      string          `json:"error"`
	StatusCode int             `json:"statusCode"`
}

func call(t *testing.T, server *httptest.Server, method, path, tok string, body interface{}) apiResponse {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.StatusCode != resp.StatusCode {
		t.Fatalf("envelope status %d differs from HTTP status %d", out.StatusCode, resp.StatusCode)
	}
	return out
}

func decodeData(t *testing.T, resp apiResponse, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(resp.Data, v); err != nil {
		t.Fatalf("decode data: %v (%s)", err, resp.Data)
	}
}

func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:           "quiz-1",
			Title:        "Arithmetic",
			Category:     "math",
			Difficulty:   "easy",
			PassingScore: 70,
			Questions: []domain.Question{
				{
					ID:            "q1",
					Kind:          domain.KindMultipleChoice,
					Prompt:        "What is 2 + 2?",
					Options:       []string{"3", "4", "5"},
					CorrectAnswer: domain.SingleAnswer("4"),
					Points:        10,
				},
				{
					ID:            "q2",
					Kind:          domain.KindTrueFalse,
					Prompt:        "Zero is even.",
					CorrectAnswer: domain.SingleAnswer("true"),
					Points:        10,
				},
			},
		},
	}
}
