package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestClientSession_StoresValidHeader(t *testing.T) {
	e := echo.New()
	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set(HeaderClientSession, id)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	h := ClientSession()(func(c echo.Context) error {
		called = true
		if SessionID(c) != id {
			t.Fatalf("expected session %s, got %q", id, SessionID(c))
		}
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
}

func TestClientSession_MissingHeaderPasses(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api", nil), httptest.NewRecorder())

	h := ClientSession()(func(c echo.Context) error {
		if SessionID(c) != "" {
			t.Fatalf("expected no session")
		}
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
}

func TestClientSession_MalformedHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set(HeaderClientSession, "not-a-uuid")
	c := e.NewContext(req, httptest.NewRecorder())

	h := ClientSession()(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})
	var he *echo.HTTPError
	if err := h(c); !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestRequestLogger_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	e := echo.New()
	e.Use(RequestLogger(log))
	e.GET("/api", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "storage unavailable")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON log entry, got %q: %v", buf.String(), err)
	}
	if entry["level"] != "error" || entry["uri"] != "/api" || entry["status"] != float64(503) {
		t.Fatalf("unexpected entry: %v", entry)
	}
}
