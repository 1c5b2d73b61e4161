package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.PageFetched("s", "ok")
		m.CardParsed("ok")
		m.EventUpserted("ok")
		m.EventsPurged(3)
		m.IngestCompleted(time.Second)
		m.OTPIssued("sent")
		m.OTPVerified("verified")
		m.Subscription("accepted")
	})
}

func TestCountersRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.PageFetched("eventbrite", "ok")
	m.PageFetched("eventbrite", "ok")
	m.OTPVerified("expired")
	m.EventsPurged(4)
	m.EventsPurged(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.pagesFetched.WithLabelValues("eventbrite", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.otpVerification.WithLabelValues("expired")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.eventsPurged))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
