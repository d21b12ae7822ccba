package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/crafted-exteriors/crm-api/internal/abuse"
	"github.com/crafted-exteriors/crm-api/internal/metrics"
	"github.com/crafted-exteriors/crm-api/internal/models"
	"github.com/crafted-exteriors/crm-api/internal/ratelimit"
	"github.com/crafted-exteriors/crm-api/internal/service"
	"github.com/crafted-exteriors/crm-api/internal/turnstile"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubVerifier struct {
	outcome turnstile.Outcome
	calls   int
}

func (s *stubVerifier) Verify(ctx context.Context, token, remoteIP string) turnstile.Outcome {
	s.calls++
	return s.outcome
}

type memLeadStore struct {
	leads      []*models.Lead
	activities []*models.Activity
	err        error
}

func (m *memLeadStore) CreateWithActivity(ctx context.Context, lead *models.Lead, activity *models.Activity) error {
	if m.err != nil {
		return m.err
	}
	m.leads = append(m.leads, lead)
	m.activities = append(m.activities, activity)
	return nil
}

type memSettingsStore struct{}

func (memSettingsStore) Get(ctx context.Context) (*models.PipelineSettings, error) { return nil, nil }
func (memSettingsStore) Save(ctx context.Context, s *models.PipelineSettings) error {
	return nil
}

type intakeFixture struct {
	router   *gin.Engine
	store    *memLeadStore
	verifier *stubVerifier
	abuseLog *bytes.Buffer
	limiter  *ratelimit.Limiter
}

func newIntakeFixture(t *testing.T) *intakeFixture {
	t.Helper()

	store := &memLeadStore{}
	settings := service.NewSettingsService(memSettingsStore{}, nil)
	intakeSvc := service.NewIntakeService(store, settings)

	limiter := ratelimit.New(map[ratelimit.Dimension]ratelimit.Config{
		ratelimit.DimensionIP:          {Limit: 5, Window: time.Minute},
		ratelimit.DimensionFingerprint: {Limit: 8, Window: time.Minute},
		ratelimit.DimensionContact:     {Limit: 3, Window: 5 * time.Minute},
	})

	var abuseBuf bytes.Buffer
	m := metrics.New(nil, nil)
	v := &stubVerifier{outcome: turnstile.Outcome{Success: true}}

	h := NewIntakeHandler(intakeSvc, limiter, v, abuse.NewLogger(&abuseBuf, m), m)

	router := gin.New()
	router.POST("/api/leads/intake", h.Submit)

	return &intakeFixture{
		router:   router,
		store:    store,
		verifier: v,
		abuseLog: &abuseBuf,
		limiter:  limiter,
	}
}

func (f *intakeFixture) submit(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/leads/intake", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.RemoteAddr = "203.0.113.7:51000"

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

const validBody = `{"fullName":"Pat Mason","email":"pat@example.com","message":"Need a roof estimate","turnstileToken":"tok-123"}`

func TestSubmit_SuccessCreatesLeadAndActivity(t *testing.T) {
	f := newIntakeFixture(t)

	w := f.submit(t, validBody)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp["success"] != true {
		t.Error("expected success true")
	}
	if _, hasID := resp["id"]; hasID {
		t.Error("response must not expose a lead identifier")
	}
	if len(f.store.leads) != 1 || len(f.store.activities) != 1 {
		t.Fatalf("expected exactly one lead and one activity, got %d/%d", len(f.store.leads), len(f.store.activities))
	}
	if f.store.leads[0].Origin != models.OriginWebsite {
		t.Errorf("expected website origin, got %q", f.store.leads[0].Origin)
	}
}

func TestSubmit_MalformedJSONIs400(t *testing.T) {
	f := newIntakeFixture(t)

	w := f.submit(t, `{"fullName": `)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if f.verifier.calls != 0 {
		t.Error("verifier must not run for unparseable bodies")
	}
}

func TestSubmit_RateLimitedIs429WithRetryAfter(t *testing.T) {
	f := newIntakeFixture(t)

	// Contact dimension has the tightest budget (3 per 5 minutes).
	for i := 0; i < 3; i++ {
		if w := f.submit(t, validBody); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}

	verifierCalls := f.verifier.calls
	w := f.submit(t, validBody)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	if f.verifier.calls != verifierCalls {
		t.Error("verifier must not run for rate-limited requests")
	}
	if !strings.Contains(f.abuseLog.String(), abuse.EventRateLimited) {
		t.Error("expected rate_limited abuse event")
	}
	if len(f.store.leads) != 3 {
		t.Errorf("expected 3 persisted leads, got %d", len(f.store.leads))
	}
}

func TestSubmit_MisconfiguredVerifierIs503(t *testing.T) {
	f := newIntakeFixture(t)
	f.verifier.outcome = turnstile.Outcome{Misconfigured: true}

	w := f.submit(t, validBody)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if len(f.store.leads) != 0 {
		t.Error("expected no persisted lead")
	}
}

func TestSubmit_BotVerificationFailureIs403(t *testing.T) {
	f := newIntakeFixture(t)
	f.verifier.outcome = turnstile.Outcome{}

	w := f.submit(t, validBody)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if !strings.Contains(f.abuseLog.String(), abuse.EventBotFailed) {
		t.Error("expected turnstile_failed abuse event")
	}
	if len(f.store.leads) != 0 {
		t.Error("expected no persisted lead")
	}
}

func TestSubmit_ValidationFailureIs400WithDetailsAndZeroRecords(t *testing.T) {
	f := newIntakeFixture(t)

	w := f.submit(t, `{"fullName":"","turnstileToken":"tok-123"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var resp struct {
		Error   string   `json:"error"`
		Details []string `json:"details"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(resp.Details) == 0 {
		t.Error("expected field-level details")
	}
	if len(f.store.leads) != 0 || len(f.store.activities) != 0 {
		t.Error("validation failure must persist zero records")
	}
}

func TestSubmit_PersistFailureIs500Generic(t *testing.T) {
	f := newIntakeFixture(t)
	f.store.err = errors.New("pq: connection reset by peer")

	w := f.submit(t, validBody)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "pq:") {
		t.Error("internal error detail leaked to caller")
	}
	if !strings.Contains(f.abuseLog.String(), abuse.EventPersistFailed) {
		t.Error("expected persist_failed abuse event")
	}
}
