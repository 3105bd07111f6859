package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/collabedit/docsync/internal/core/ports"
	"github.com/collabedit/docsync/internal/core/service"
	"github.com/collabedit/docsync/internal/infrastructure/db/memory"
)

func newTestServer(t *testing.T, withMetrics bool) *httptest.Server {
	t.Helper()
	docsRepo := memory.NewDocumentRepository()
	auth := service.NewAuthService(memory.NewUserRepository(), bcrypt.MinCost, zerolog.Nop())
	if err := auth.SeedUsers(context.Background(), map[string]string{"alice": "secret"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	deps := Deps{
		Documents: service.NewDocumentService(docsRepo, 64, zerolog.Nop()),
		Auth:      auth,
		Health:    []ports.HealthChecker{docsRepo},
		Logger:    zerolog.Nop(),

		MaxBodyBytes: BodyLimit(64),
	}
	if withMetrics {
		reg := prometheus.NewRegistry()
		deps.Registerer = reg
		deps.Gatherer = reg
	}
	srv := httptest.NewServer(NewRouter(deps))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, contentType, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s %s: %v", method, url, err)
	}
	return resp.StatusCode, out
}

func TestRouter_LastWriterWinsAcrossClients(t *testing.T) {
	srv := newTestServer(t, false)

	code, body := do(t, http.MethodGet, srv.URL+"/api", "", "")
	if code != http.StatusOK || body["content"] != "" || body["version"] != float64(0) {
		t.Fatalf("expected empty document, got %d %v", code, body)
	}

	// Client A saves "A1", then client B saves "B1"; B committed last.
	if code, _ := do(t, http.MethodPost, srv.URL+"/api", "text/plain;charset=UTF-8", `{"content":"A1"}`); code != http.StatusOK {
		t.Fatalf("save A1: %d", code)
	}
	if code, _ := do(t, http.MethodPost, srv.URL+"/api", "application/json", `{"content":"B1"}`); code != http.StatusOK {
		t.Fatalf("save B1: %d", code)
	}

	_, body = do(t, http.MethodGet, srv.URL+"/api", "", "")
	if body["content"] != "B1" || body["version"] != float64(2) {
		t.Fatalf("expected B1 at version 2, got %v", body)
	}

	// Saving identical content again still succeeds.
	code, body = do(t, http.MethodPost, srv.URL+"/api", "", `{"content":"B1"}`)
	if code != http.StatusOK || body["success"] != true {
		t.Fatalf("idempotent save failed: %d %v", code, body)
	}
}

func TestRouter_VersionConflictAndSizeLimit(t *testing.T) {
	srv := newTestServer(t, false)

	do(t, http.MethodPost, srv.URL+"/api/documents/notes", "", `{"content":"v1"}`)

	code, body := do(t, http.MethodPost, srv.URL+"/api/documents/notes", "", `{"content":"v2","expected_version":0}`)
	if code != http.StatusConflict || body["error"] != "version conflict" {
		t.Fatalf("expected 409, got %d %v", code, body)
	}

	code, _ = do(t, http.MethodPost, srv.URL+"/api/documents/notes", "", `{"content":"v2","expected_version":1}`)
	if code != http.StatusOK {
		t.Fatalf("expected conditional save to succeed, got %d", code)
	}

	code, _ = do(t, http.MethodPost, srv.URL+"/api/documents/notes", "", `{"content":"`+strings.Repeat("x", 65)+`"}`)
	if code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", code)
	}

	// The keyed document does not leak into the default one.
	_, body = do(t, http.MethodGet, srv.URL+"/api", "", "")
	if body["content"] != "" {
		t.Fatalf("expected default document untouched, got %v", body)
	}
}

func TestRouter_OversizedBodyRejected(t *testing.T) {
	srv := newTestServer(t, false)

	raw := `{"content":"` + strings.Repeat("x", int(BodyLimit(64))) + `"}`
	for _, path := range []string{"/api", "/api/documents/notes", "/api/login"} {
		code, _ := do(t, http.MethodPost, srv.URL+path, "text/plain", raw)
		if code != http.StatusRequestEntityTooLarge {
			t.Fatalf("%s: expected 413, got %d", path, code)
		}
	}

	code, _ := do(t, http.MethodPost, srv.URL+"/api", "", `{"content":"`+strings.Repeat(`\u003c`, 64)+`"}`)
	if code != http.StatusOK {
		t.Fatalf("escaped content within the limit should save, got %d", code)
	}
}

func TestBodyLimit(t *testing.T) {
	if got := BodyLimit(0); got != 0 {
		t.Fatalf("BodyLimit(0) = %d, want 0", got)
	}
	if got := BodyLimit(1 << 20); got < 1<<20 {
		t.Fatalf("BodyLimit(1MiB) = %d, smaller than the content", got)
	}
}

func TestRouter_Login(t *testing.T) {
	srv := newTestServer(t, false)

	code, body := do(t, http.MethodPost, srv.URL+"/api", "", `{"action":"login","username":"alice","password":"secret"}`)
	if code != http.StatusOK || body["success"] != true || body["user"] != "alice" {
		t.Fatalf("expected login accepted, got %d %v", code, body)
	}

	code, body = do(t, http.MethodPost, srv.URL+"/api", "", `{"action":"login","username":"alice","password":"wrong"}`)
	if code != http.StatusUnauthorized || body["success"] != false || body["message"] != "Invalid credentials" {
		t.Fatalf("expected login rejected, got %d %v", code, body)
	}
}

func TestRouter_InvalidDocumentID(t *testing.T) {
	srv := newTestServer(t, false)

	code, body := do(t, http.MethodGet, srv.URL+"/api/documents/bad%20id", "", "")
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %v", code, body)
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, true)

	code, body := do(t, http.MethodGet, srv.URL+"/health/ready", "", "")
	if code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("expected ready, got %d %v", code, body)
	}
	do(t, http.MethodGet, srv.URL+"/api", "", "")

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(raw), "docsync_requests_total") {
		t.Fatalf("expected request metrics, got %d:\n%s", resp.StatusCode, raw)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	srv := newTestServer(t, false)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard origin, got %q", got)
	}
}
