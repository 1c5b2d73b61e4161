package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing, which keeps tests free of registry plumbing.
type Metrics struct {
	pagesFetched    *prometheus.CounterVec
	cardsParsed     *prometheus.CounterVec
	eventsUpserted  *prometheus.CounterVec
	eventsPurged    prometheus.Counter
	ingestDuration  prometheus.Histogram
	lastIngestTS    prometheus.Gauge
	otpIssued       *prometheus.CounterVec
	otpVerification *prometheus.CounterVec
	subscriptions   *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pagesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "louder",
			Subsystem: "scraper",
			Name:      "pages_total",
			Help:      "Listing pages requested, by source and outcome",
		}, []string{"source", "outcome"}),
		cardsParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "louder",
			Subsystem: "scraper",
			Name:      "cards_total",
			Help:      "Listing cards seen, by outcome (ok, malformed, unparsed_date)",
		}, []string{"outcome"}),
		eventsUpserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "louder",
			Subsystem: "store",
			Name:      "event_upserts_total",
			Help:      "Event upserts, by result",
		}, []string{"result"}),
		eventsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "louder",
			Subsystem: "store",
			Name:      "events_purged_total",
			Help:      "Past events deleted by the retention sweep",
		}),
		ingestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "louder",
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "Wall time of one scrape-and-upsert pass",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		lastIngestTS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "louder",
			Subsystem: "ingest",
			Name:      "last_completed_timestamp_seconds",
			Help:      "Unix time of the last completed ingest",
		}),
		otpIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "louder",
			Subsystem: "otp",
			Name:      "issued_total",
			Help:      "OTP issuance attempts, by result",
		}, []string{"result"}),
		otpVerification: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "louder",
			Subsystem: "otp",
			Name:      "verifications_total",
			Help:      "OTP verification outcomes",
		}, []string{"outcome"}),
		subscriptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "louder",
			Subsystem: "subscription",
			Name:      "submissions_total",
			Help:      "Subscription submissions, by outcome",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		m.pagesFetched, m.cardsParsed, m.eventsUpserted, m.eventsPurged,
		m.ingestDuration, m.lastIngestTS, m.otpIssued, m.otpVerification, m.subscriptions,
	)
	return m
}

func (m *Metrics) PageFetched(source, outcome string) {
	if m == nil {
		return
	}
	m.pagesFetched.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) CardParsed(outcome string) {
	if m == nil {
		return
	}
	m.cardsParsed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) EventUpserted(result string) {
	if m == nil {
		return
	}
	m.eventsUpserted.WithLabelValues(result).Inc()
}

func (m *Metrics) EventsPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.eventsPurged.Add(float64(n))
}

func (m *Metrics) IngestCompleted(d time.Duration) {
	if m == nil {
		return
	}
	m.ingestDuration.Observe(d.Seconds())
	m.lastIngestTS.SetToCurrentTime()
}

func (m *Metrics) OTPIssued(result string) {
	if m == nil {
		return
	}
	m.otpIssued.WithLabelValues(result).Inc()
}

func (m *Metrics) OTPVerified(outcome string) {
	if m == nil {
		return
	}
	m.otpVerification.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Subscription(outcome string) {
	if m == nil {
		return
	}
	m.subscriptions.WithLabelValues(outcome).Inc()
}
