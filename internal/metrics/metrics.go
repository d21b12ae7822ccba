package metrics

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the intake path and the abuse
// gate. All recording methods are fire-and-forget; registration errors are
// logged once and the affected collector keeps working unregistered.
type Metrics struct {
	intakeTotal      *prometheus.CounterVec
	abuseEventsTotal *prometheus.CounterVec
	leadsCreated     prometheus.Counter
	limiterKeys      prometheus.GaugeFunc
}

func New(reg prometheus.Registerer, limiterSize func() int) *Metrics {
	m := &Metrics{
		intakeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_intake_requests_total",
			Help: "Public lead intake requests by terminal outcome.",
		}, []string{"outcome"}),
		abuseEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_abuse_events_total",
			Help: "Abuse-prevention events by kind.",
		}, []string{"event"}),
		leadsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crm_leads_created_total",
			Help: "Leads persisted through the public intake endpoint.",
		}),
	}

	if limiterSize != nil {
		m.limiterKeys = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "crm_ratelimit_tracked_keys",
			Help: "Rate limit counter keys currently held in memory.",
		}, func() float64 { return float64(limiterSize()) })
	}

	m.register(reg, m.intakeTotal, "crm_intake_requests_total")
	m.register(reg, m.abuseEventsTotal, "crm_abuse_events_total")
	m.register(reg, m.leadsCreated, "crm_leads_created_total")
	if m.limiterKeys != nil {
		m.register(reg, m.limiterKeys, "crm_ratelimit_tracked_keys")
	}

	return m
}

func (m *Metrics) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if reg == nil {
		return
	}
	if err := reg.Register(c); err != nil {
		log.Printf("metrics: failed to register %s: %v", name, err)
	}
}

// IntakeOutcome records the terminal outcome of one intake request
// (accepted, invalid_format, rate_limited, bot_failed, misconfigured,
// validation_failed, persist_failed).
func (m *Metrics) IntakeOutcome(outcome string) {
	m.intakeTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AbuseEvent(event string) {
	m.abuseEventsTotal.WithLabelValues(event).Inc()
}

func (m *Metrics) LeadCreated() {
	m.leadsCreated.Inc()
}
