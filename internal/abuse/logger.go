package abuse

import (
	"encoding/json"
	"io"
	"log"
	"sync"
	"time"

	"github.com/crafted-exteriors/crm-api/internal/metrics"
)

// Event kinds emitted by the abuse gate.
const (
	EventRateLimited    = "rate_limited"
	EventMisconfigured  = "turnstile_misconfigured"
	EventBotFailed      = "turnstile_failed"
	EventIntakeRejected = "intake_rejected"
	EventPersistFailed  = "persist_failed"
)

// Event is a write-once record of a denied or suspicious request. Emitted as
// one JSON line per event; delivery is best-effort visibility, not an audit
// trail.
type Event struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	IP        string    `json:"ip"`
	Path      string    `json:"path"`
	Dimension string    `json:"dimension,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// Logger serializes abuse events to a sink. It never blocks the request path
// beyond the write itself and never returns errors to callers.
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewLogger(out io.Writer, m *metrics.Metrics) *Logger {
	return &Logger{out: out, metrics: m, now: time.Now}
}

func (l *Logger) Emit(event, ip, path, dimension, reason string) {
	e := Event{
		Event:     event,
		Timestamp: l.now().UTC(),
		IP:        ip,
		Path:      path,
		Dimension: dimension,
		Reason:    reason,
	}

	if l.metrics != nil {
		l.metrics.AbuseEvent(event)
	}

	line, err := json.Marshal(e)
	if err != nil {
		log.Printf("abuse: failed to encode event %s: %v", event, err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.out.Write(append(line, '\n')); err != nil {
		log.Printf("abuse: failed to write event %s: %v", event, err)
	}
}
