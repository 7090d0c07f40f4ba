package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func withCapturedLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestScrub(t *testing.T) {
	in := "email a@b.com id=123e4567-e89b-12d3-a456-426614174000 phone 555-123-4567"
	want := "email [REDACTED:email] id=[REDACTED:id] phone [REDACTED:phone]"
	if got := scrub(in); got != want {
		t.Fatalf("scrub = %q; want %q", got, want)
	}
	if scrub("") != "" {
		t.Fatalf("empty input must stay empty")
	}
}

func TestRedactingLogger_DocumentRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := withCapturedLogger(t)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Header("X-Request-ID", "rid-resp"); c.Next() })
	r.Use(RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Api-Key"}}))
	r.POST("/api/v1/documents/:id/assistance", func(c *gin.Context) {
		c.Header("Idempotency-Replayed", "true")
		c.String(http.StatusCreated, "ok")
	})

	q := "user_id=3&email=a.b+tag@example.com"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/42/assistance?"+q, nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Idempotency-Key", "k-123")
	req.Header.Set("X-Api-Key", "shhh")
	req.Header.Set("X-User-ID", "3")
	req.Header.Set("X-Request-ID", "rid-req")
	r.ServeHTTP(httptest.NewRecorder(), req)

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("expected one access log line, got %d", len(lines))
	}
	l := lines[0]
	if l["level"] != "info" || l["message"] != "http_request" {
		t.Fatalf("unexpected level/message: %v", l)
	}
	if l["route"] != "/api/v1/documents/:id/assistance" || l["request_id"] != "rid-resp" {
		t.Fatalf("unexpected route/request_id: %v", l)
	}
	if l["document_id"] != float64(42) || l["user_id"] != float64(3) || l["idempotency_replayed"] != true {
		t.Fatalf("missing domain fields: %v", l)
	}
	if q, _ := l["query"].(string); !strings.Contains(q, "[REDACTED:email]") || strings.Contains(q, "example.com") {
		t.Fatalf("query not scrubbed: %q", q)
	}
	h, _ := l["headers"].(map[string]any)
	for _, k := range []string{"Authorization", "Idempotency-Key", "X-Api-Key"} {
		if h[k] != redacted {
			t.Fatalf("%s must be masked, got %v", k, h[k])
		}
	}
	if h["X-User-Id"] != "3" {
		t.Fatalf("X-User-ID should be logged as-is, got %v", h["X-User-Id"])
	}
}

func TestRedactingLogger_LevelsFallbackAndSkip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := withCapturedLogger(t)

	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{SkipPaths: []string{"/health"}}))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/documents/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, tc := range []struct{ path, rid string }{
		{"/health", "rid-health"},
		{"/api/v1/documents/abc", "rid-warn"},
		{"/boom", "rid-err"},
	} {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		req.Header.Set("X-Request-ID", tc.rid)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	lines := decodeLines(t, buf)
	if len(lines) != 2 {
		t.Fatalf("health checks must not be logged; got %d lines", len(lines))
	}
	if lines[0]["level"] != "warn" || lines[0]["request_id"] != "rid-warn" {
		t.Fatalf("unexpected warn line: %v", lines[0])
	}
	if _, ok := lines[0]["document_id"]; ok {
		t.Fatalf("non-numeric id must not be logged as document_id: %v", lines[0])
	}
	if lines[1]["level"] != "error" || lines[1]["request_id"] != "rid-err" || lines[1]["route"] != "/boom" {
		t.Fatalf("unexpected error line: %v", lines[1])
	}
}
