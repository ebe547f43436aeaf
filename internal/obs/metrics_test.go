package obs

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                   "/",
		"/metrics":                           "/metrics",
		"/v1/accounts/01HX":                  "/v1/accounts/:id",
		"/v1/accounts/01HX/payment-methods":  "/v1/accounts/:id/payment-methods",
		"/v1/accounts/01HX/extra":            "/v1/accounts/01HX/extra",
		"/v1/applications/areas":             "/v1/applications/areas",
		"/v1/applications/revenues?name=rec": "/v1/applications/revenues",
		"/v1/applications/01HY":              "/v1/applications/:id",
		"/v1/payment-methods/42":             "/v1/payment-methods/:id",
		"/v1/users/u-1/password-reset":       "/v1/users/:id/password-reset",
		"/v1/auth/login":                     "/v1/auth/login",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}

func TestLoggerWritesJSON(t *testing.T) {
	logger := Logger()
	orig := logger.Out
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(orig)

	LogRequest("request_complete", map[string]any{"status": 200})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log is not JSON: %v", err)
	}
	for _, key := range []string{"ts", "level", "msg", "status"} {
		if _, ok := entry[key]; !ok {
			t.Fatalf("missing key %q in %v", key, entry)
		}
	}
}
