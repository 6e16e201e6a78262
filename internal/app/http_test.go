package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(t *testing.T, fs *fakeStore) *HTTPServer {
	t.Helper()
	return NewHTTPServer(newTestService(fs), "*")
}

func doRequest(t *testing.T, server *HTTPServer, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func signInForTest(t *testing.T, server *HTTPServer) (token, refresh string) {
	t.Helper()
	rr := doRequest(t, server, http.MethodPost, "/api/auth/signin",
		`{"email":"ana@example.com","password":"password123"}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("signin failed: status %d body=%s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode signin response: %v", err)
	}
	token, _ = resp["accessToken"].(string)
	refresh, _ = resp["refreshToken"].(string)
	if token == "" || refresh == "" {
		t.Fatalf("signin response missing tokens: %s", rr.Body.String())
	}
	return token, refresh
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t, newFakeStore(t))
	rr := doRequest(t, server, http.MethodGet, "/api/health", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestReadyEndpointDatabaseDown(t *testing.T) {
	fs := newFakeStore(t)
	fs.pingFn = func(ctx context.Context) error { return errors.New("connection refused") }
	server := newTestServer(t, fs)

	rr := doRequest(t, server, http.MethodGet, "/api/ready", "", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSignInEndpoint(t *testing.T) {
	server := newTestServer(t, newFakeStore(t))
	rr := doRequest(t, server, http.MethodPost, "/api/auth/signin",
		`{"email":"ana@example.com","password":"password123"}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["userId"] != "usr-1" || resp["role"] != "manager" {
		t.Errorf("unexpected identity in response: %s", rr.Body.String())
	}
	if resp["userName"] != "Ana Marin" {
		t.Errorf("expected userName Ana Marin, got %v", resp["userName"])
	}
}

func TestSignInEndpointBadCredentials(t *testing.T) {
	server := newTestServer(t, newFakeStore(t))
	rr := doRequest(t, server, http.MethodPost, "/api/auth/signin",
		`{"email":"ana@example.com","password":"nope"}`, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSignInEndpointMalformedBody(t *testing.T) {
	server := newTestServer(t, newFakeStore(t))
	rr := doRequest(t, server, http.MethodPost, "/api/auth/signin", `{"email":`, "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestRefreshEndpoint(t *testing.T) {
	server := newTestServer(t, newFakeStore(t))
	_, refresh := signInForTest(t, server)

	rr := doRequest(t, server, http.MethodPost, "/api/auth/refresh",
		`{"refreshToken":"`+refresh+`"}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["role"] != "manager" {
		t.Errorf("expected role to survive refresh, got %v", resp["role"])
	}
	if resp["refreshToken"] == refresh {
		t.Error("expected refresh token to rotate")
	}
}

func TestSignOutEndpoint(t *testing.T) {
	server := newTestServer(t, newFakeStore(t))
	_, refresh := signInForTest(t, server)

	rr := doRequest(t, server, http.MethodPost, "/api/auth/signout",
		`{"refreshToken":"`+refresh+`"}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, server, http.MethodPost, "/api/auth/refresh",
		`{"refreshToken":"`+refresh+`"}`, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 after signout, got %d", rr.Code)
	}
}

func TestSessionEndpoint(t *testing.T) {
	server := newTestServer(t, newFakeStore(t))

	rr := doRequest(t, server, http.MethodGet, "/api/session", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var anon map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &anon); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if anon["authenticated"] != false {
		t.Errorf("expected unauthenticated session, got %s", rr.Body.String())
	}

	token, _ := signInForTest(t, server)
	rr = doRequest(t, server, http.MethodGet, "/api/session", "", token)
	var authed map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &authed); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if authed["authenticated"] != true || authed["userName"] != "Ana Marin" {
		t.Errorf("unexpected session payload: %s", rr.Body.String())
	}
}

func TestPipelinesRequiresAuth(t *testing.T) {
	server := newTestServer(t, newFakeStore(t))
	rr := doRequest(t, server, http.MethodGet, "/api/pipelines", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestPipelinesEndpoint(t *testing.T) {
	server := newTestServer(t, newFakeStore(t))
	token, _ := signInForTest(t, server)

	rr := doRequest(t, server, http.MethodGet, "/api/pipelines", "", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Pipelines []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"pipelines"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Pipelines) != 1 || resp.Pipelines[0].ID != "pip-sales" {
		t.Errorf("unexpected pipelines: %s", rr.Body.String())
	}
}

func TestBoardEndpoint(t *testing.T) {
	server := newTestServer(t, newFakeStore(t))
	token, _ := signInForTest(t, server)

	rr := doRequest(t, server, http.MethodGet, "/api/board/pip-sales", "", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp struct {
		PipelineID string `json:"pipelineId"`
		Items      []struct {
			EntityID  string `json:"entityId"`
			StageID   string `json:"stageId"`
			StageName string `json:"stageName"`
		} `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.PipelineID != "pip-sales" {
		t.Errorf("expected pipelineId pip-sales, got %s", resp.PipelineID)
	}
	if len(resp.Items) != 1 || resp.Items[0].EntityID != "lead-1" {
		t.Errorf("unexpected items: %s", rr.Body.String())
	}
}

func TestBoardEndpointUnknownPipeline(t *testing.T) {
	server := newTestServer(t, newFakeStore(t))
	token, _ := signInForTest(t, server)

	rr := doRequest(t, server, http.MethodGet, "/api/board/pip-missing", "", token)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCardEndpoint(t *testing.T) {
	server := newTestServer(t, newFakeStore(t))
	token, _ := signInForTest(t, server)

	rr := doRequest(t, server, http.MethodGet, "/api/board/pip-sales/card?type=lead&id=lead-1", "", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Item struct {
			EntityID string `json:"entityId"`
			StageID  string `json:"stageId"`
		} `json:"item"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Item.EntityID != "lead-1" || resp.Item.StageID != "stg-new" {
		t.Errorf("unexpected card: %s", rr.Body.String())
	}
}

func TestCardEndpointNotFound(t *testing.T) {
	server := newTestServer(t, newFakeStore(t))
	token, _ := signInForTest(t, server)

	rr := doRequest(t, server, http.MethodGet, "/api/board/pip-sales/card?type=lead&id=lead-missing", "", token)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCardEndpointRejectsBadType(t *testing.T) {
	server := newTestServer(t, newFakeStore(t))
	token, _ := signInForTest(t, server)

	rr := doRequest(t, server, http.MethodGet, "/api/board/pip-sales/card?type=widget&id=x", "", token)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestUnknownRoute(t *testing.T) {
	server := newTestServer(t, newFakeStore(t))
	token, _ := signInForTest(t, server)

	rr := doRequest(t, server, http.MethodGet, "/api/nope", "", token)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	server := newTestServer(t, newFakeStore(t))
	rr := doRequest(t, server, http.MethodOptions, "/api/pipelines", "", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard CORS origin, got %q", got)
	}
}
