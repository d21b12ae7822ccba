package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(limit int, window time.Duration) (*Limiter, *time.Time) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	l := New(map[Dimension]Config{
		DimensionIP:          {Limit: limit, Window: window},
		DimensionFingerprint: {Limit: limit, Window: window},
		DimensionContact:     {Limit: limit, Window: window},
	})
	l.now = func() time.Time { return now }
	return l, &now
}

func TestCheck_AdmitsUntilLimitThenDenies(t *testing.T) {
	l, _ := newTestLimiter(5, time.Minute)
	keys := map[Dimension]string{DimensionIP: "203.0.113.7"}

	for i := 0; i < 5; i++ {
		if d := l.Check(keys); !d.Allowed {
			t.Fatalf("request %d: expected allowed, got denied on %q", i+1, d.Dimension)
		}
	}

	d := l.Check(keys)
	if d.Allowed {
		t.Fatal("6th request: expected denied, got allowed")
	}
	if d.Dimension != DimensionIP {
		t.Errorf("expected denial on ip dimension, got %q", d.Dimension)
	}
	if d.RetryAfter <= 0 {
		t.Errorf("expected positive retry-after, got %v", d.RetryAfter)
	}
}

func TestCheck_WindowRolloverResetsCount(t *testing.T) {
	l, now := newTestLimiter(5, time.Minute)
	keys := map[Dimension]string{DimensionIP: "203.0.113.7"}

	for i := 0; i < 6; i++ {
		l.Check(keys)
	}
	if d := l.Check(keys); d.Allowed {
		t.Fatal("expected denial inside window")
	}

	*now = now.Add(61 * time.Second)

	if d := l.Check(keys); !d.Allowed {
		t.Fatal("expected admission after window rollover")
	}

	// Rollover resets to count=1, so limit-1 more admissions remain.
	for i := 0; i < 4; i++ {
		if d := l.Check(keys); !d.Allowed {
			t.Fatalf("post-rollover request %d: expected allowed", i+2)
		}
	}
	if d := l.Check(keys); d.Allowed {
		t.Fatal("expected denial after re-exhausting the fresh window")
	}
}

func TestCheck_AnyDimensionDenies(t *testing.T) {
	l, _ := newTestLimiter(2, time.Minute)

	// Exhaust the contact dimension from varying IPs.
	for i, ip := range []string{"198.51.100.1", "198.51.100.2"} {
		d := l.Check(map[Dimension]string{
			DimensionIP:      ip,
			DimensionContact: "jo@example.com",
		})
		if !d.Allowed {
			t.Fatalf("request %d: expected allowed", i+1)
		}
	}

	d := l.Check(map[Dimension]string{
		DimensionIP:      "198.51.100.3",
		DimensionContact: "jo@example.com",
	})
	if d.Allowed {
		t.Fatal("expected denial via contact dimension")
	}
	if d.Dimension != DimensionContact {
		t.Errorf("expected contact dimension, got %q", d.Dimension)
	}
}

func TestCheck_DenyingRequestStillCounts(t *testing.T) {
	l, now := newTestLimiter(2, time.Minute)
	keys := map[Dimension]string{DimensionIP: "192.0.2.9"}

	l.Check(keys)
	l.Check(keys)

	// Denied requests keep pushing the count so the window never looks idle.
	*now = now.Add(30 * time.Second)
	if d := l.Check(keys); d.Allowed {
		t.Fatal("expected denial")
	}

	// Still inside the original window; rollover happens off windowStart, not
	// the last denial.
	*now = now.Add(31 * time.Second)
	if d := l.Check(keys); !d.Allowed {
		t.Fatal("expected admission after original window elapsed")
	}
}

func TestCheck_NoUsableKeyFailsClosed(t *testing.T) {
	l, _ := newTestLimiter(5, time.Minute)

	if d := l.Check(map[Dimension]string{}); d.Allowed {
		t.Fatal("expected denial with no keys")
	}
	if d := l.Check(map[Dimension]string{DimensionIP: ""}); d.Allowed {
		t.Fatal("expected denial with only empty key values")
	}
}

func TestCheck_InvalidConfigFailsClosed(t *testing.T) {
	l := New(map[Dimension]Config{
		DimensionIP: {Limit: 0, Window: time.Minute},
	})

	if d := l.CheckIP("203.0.113.1"); d.Allowed {
		t.Fatal("expected denial under zero limit config")
	}
}

func TestCheck_MissingDimensionsAreSkipped(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)

	d := l.Check(map[Dimension]string{DimensionIP: "203.0.113.4"})
	if !d.Allowed {
		t.Fatal("expected allowed with fingerprint and contact absent")
	}
}

func TestPrune_DropsExpiredEntries(t *testing.T) {
	l, now := newTestLimiter(5, time.Minute)

	l.CheckIP("203.0.113.1")
	l.CheckIP("203.0.113.2")
	if got := l.Size(); got != 2 {
		t.Fatalf("expected 2 tracked keys, got %d", got)
	}

	*now = now.Add(2 * time.Minute)
	l.prune()

	if got := l.Size(); got != 0 {
		t.Errorf("expected 0 tracked keys after prune, got %d", got)
	}
}

func TestPrune_KeepsLiveEntries(t *testing.T) {
	l, now := newTestLimiter(5, time.Minute)

	l.CheckIP("203.0.113.1")
	*now = now.Add(30 * time.Second)
	l.CheckIP("203.0.113.2")
	*now = now.Add(45 * time.Second)
	l.prune()

	// First key expired at +60s, second is still live.
	if got := l.Size(); got != 1 {
		t.Errorf("expected 1 tracked key after prune, got %d", got)
	}
}

func TestFingerprint_EmptyWithoutHeaders(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/leads/intake", nil)
	r.Header.Del("User-Agent")

	if fp := Fingerprint(r); fp != "" {
		t.Errorf("expected empty fingerprint, got %q", fp)
	}
}

func TestFingerprint_StableForSameHeaders(t *testing.T) {
	a := httptest.NewRequest("POST", "/api/leads/intake", nil)
	a.Header.Set("User-Agent", "Mozilla/5.0")
	a.Header.Set("Accept-Language", "en-US")

	b := httptest.NewRequest("POST", "/api/leads/intake", nil)
	b.Header.Set("User-Agent", "Mozilla/5.0")
	b.Header.Set("Accept-Language", "en-US")

	if Fingerprint(a) != Fingerprint(b) {
		t.Error("expected identical fingerprints for identical headers")
	}

	b.Header.Set("User-Agent", "curl/8.0")
	if Fingerprint(a) == Fingerprint(b) {
		t.Error("expected different fingerprints for different user agents")
	}
}

func TestNormalizeContact(t *testing.T) {
	tests := []struct {
		name  string
		email string
		phone string
		want  string
	}{
		{"email lowercased and trimmed", "  Jo@Example.COM ", "", "jo@example.com"},
		{"email wins over phone", "jo@example.com", "555-0100", "jo@example.com"},
		{"phone digits only", "", "(555) 010-4477", "5550104477"},
		{"nothing usable", "", "ext.", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeContact(tt.email, tt.phone); got != tt.want {
				t.Errorf("NormalizeContact(%q, %q) = %q, want %q", tt.email, tt.phone, got, tt.want)
			}
		})
	}
}
