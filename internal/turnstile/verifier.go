package turnstile

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/crafted-exteriors/crm-api/internal/abuse"
	"github.com/crafted-exteriors/crm-api/internal/circuitbreaker"
)

const (
	// DefaultVerifyURL is Cloudflare's siteverify endpoint.
	DefaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

	// DefaultBypassToken is the token honored outside production when the
	// bypass flag is set. Matches Cloudflare's documented dummy token.
	DefaultBypassToken = "XXXX.DUMMY.TOKEN.XXXX"
)

// Outcome is everything a caller learns from verification. Upstream
// diagnostics (error codes, hostnames, challenge timestamps) never cross this
// boundary. Misconfigured means the server secret is missing - an operator
// fault that callers must surface as 503, not 403.
type Outcome struct {
	Success       bool
	Misconfigured bool
}

type Config struct {
	SecretKey     string
	Environment   string
	BypassEnabled bool
	BypassToken   string
	VerifyURL     string
	Timeout       time.Duration
}

// Verifier checks client challenge tokens against the Turnstile siteverify
// API. Every ambiguous condition fails closed: transport errors, non-2xx
// responses, undecodable bodies and an open circuit all read as verification
// failure.
type Verifier struct {
	cfg      Config
	client   *http.Client
	breaker  *circuitbreaker.Breaker
	abuseLog *abuse.Logger
}

func New(cfg Config, abuseLog *abuse.Logger) *Verifier {
	if cfg.VerifyURL == "" {
		cfg.VerifyURL = DefaultVerifyURL
	}
	if cfg.BypassToken == "" {
		cfg.BypassToken = DefaultBypassToken
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	return &Verifier{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		breaker:  circuitbreaker.New(5, 30*time.Second),
		abuseLog: abuseLog,
	}
}

// Verify confirms a client-supplied token. remoteIP is forwarded upstream for
// audit only and never influences the outcome locally.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) Outcome {
	if strings.TrimSpace(v.cfg.SecretKey) == "" {
		if v.abuseLog != nil {
			v.abuseLog.Emit(abuse.EventMisconfigured, remoteIP, "", "turnstile_misconfigured", "secret key missing")
		}
		return Outcome{Misconfigured: true}
	}

	if strings.TrimSpace(token) == "" {
		return Outcome{}
	}

	// Bypass is double-gated: never reachable when the environment says
	// production, regardless of the flag.
	if v.cfg.Environment != "production" && v.cfg.BypassEnabled && token == v.cfg.BypassToken {
		return Outcome{Success: true}
	}

	var ok bool
	err := v.breaker.Call(func() error {
		var callErr error
		ok, callErr = v.siteverify(ctx, token, remoteIP)
		return callErr
	})
	if err != nil {
		log.Printf("turnstile: verification call failed: %v", err)
		return Outcome{}
	}

	return Outcome{Success: ok}
}

func (v *Verifier) siteverify(ctx context.Context, token, remoteIP string) (bool, error) {
	form := url.Values{}
	form.Set("secret", v.cfg.SecretKey)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("build siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("siteverify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("siteverify returned status %d", resp.StatusCode)
	}

	var body struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode siteverify response: %w", err)
	}

	return body.Success, nil
}

// BreakerState exposes the upstream breaker state for the health endpoint.
func (v *Verifier) BreakerState() string {
	return v.breaker.State().String()
}
