package turnstile

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/crafted-exteriors/crm-api/internal/abuse"
)

func TestVerify_MissingSecretIsMisconfigured(t *testing.T) {
	var buf bytes.Buffer
	v := New(Config{SecretKey: "", Environment: "production"}, abuse.NewLogger(&buf, nil))

	for _, token := range []string{"", "some-token", DefaultBypassToken} {
		out := v.Verify(context.Background(), token, "203.0.113.7")
		if out.Success {
			t.Errorf("token %q: expected failure", token)
		}
		if !out.Misconfigured {
			t.Errorf("token %q: expected misconfigured", token)
		}
	}

	if !strings.Contains(buf.String(), "turnstile_misconfigured") {
		t.Error("expected turnstile_misconfigured abuse event")
	}
}

func TestVerify_EmptyTokenFailsWithoutUpstreamCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	v := New(Config{SecretKey: "secret", VerifyURL: srv.URL}, nil)

	out := v.Verify(context.Background(), "", "203.0.113.7")
	if out.Success || out.Misconfigured {
		t.Errorf("expected plain failure, got %+v", out)
	}
	if called {
		t.Error("expected no upstream call for empty token")
	}
}

func TestVerify_BypassIsDoubleGated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"success": false})
	}))
	defer srv.Close()

	tests := []struct {
		name    string
		env     string
		bypass  bool
		success bool
	}{
		{"non-production with flag", "development", true, true},
		{"non-production without flag", "development", false, false},
		{"production with flag", "production", true, false},
		{"production without flag", "production", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(Config{
				SecretKey:     "secret",
				Environment:   tt.env,
				BypassEnabled: tt.bypass,
				VerifyURL:     srv.URL,
			}, nil)

			out := v.Verify(context.Background(), DefaultBypassToken, "203.0.113.7")
			if out.Success != tt.success {
				t.Errorf("expected success=%v, got %+v", tt.success, out)
			}
			if out.Misconfigured {
				t.Errorf("unexpected misconfigured outcome")
			}
		})
	}
}

func TestVerify_UpstreamSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.Form.Get("secret"); got != "secret" {
			t.Errorf("expected secret forwarded, got %q", got)
		}
		if got := r.Form.Get("response"); got != "tok-123" {
			t.Errorf("expected token forwarded, got %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":   true,
			"hostname":  "example.com",
			"challenge": "2026-03-10T12:00:00Z",
		})
	}))
	defer srv.Close()

	v := New(Config{SecretKey: "secret", VerifyURL: srv.URL}, nil)

	out := v.Verify(context.Background(), "tok-123", "203.0.113.7")
	if !out.Success {
		t.Error("expected success")
	}
	if out.Misconfigured {
		t.Error("unexpected misconfigured")
	}
}

func TestVerify_FailsClosedOnUpstreamErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-2xx status", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"success false", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]bool{"success": false})
		}},
		{"garbage body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			v := New(Config{SecretKey: "secret", VerifyURL: srv.URL}, nil)

			out := v.Verify(context.Background(), "tok-123", "203.0.113.7")
			if out.Success || out.Misconfigured {
				t.Errorf("expected plain failure, got %+v", out)
			}
		})
	}
}

func TestVerify_NetworkFailureFailsClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // immediately unreachable

	v := New(Config{SecretKey: "secret", VerifyURL: srv.URL}, nil)

	out := v.Verify(context.Background(), "tok-123", "203.0.113.7")
	if out.Success || out.Misconfigured {
		t.Errorf("expected plain failure, got %+v", out)
	}
}

func TestVerify_OpenBreakerFailsClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	v := New(Config{SecretKey: "secret", VerifyURL: srv.URL}, nil)

	// Trip the breaker with repeated transport failures.
	for i := 0; i < 6; i++ {
		v.Verify(context.Background(), "tok-123", "203.0.113.7")
	}

	if v.BreakerState() != "open" {
		t.Fatalf("expected open breaker, got %s", v.BreakerState())
	}

	out := v.Verify(context.Background(), "tok-123", "203.0.113.7")
	if out.Success || out.Misconfigured {
		t.Errorf("expected plain failure while breaker open, got %+v", out)
	}
}
