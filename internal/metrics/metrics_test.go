package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestCounters(t *testing.T) {
	Register()

	before := testutil.ToFloat64(checkIns.WithLabelValues("ok"))
	IncCheckIn("ok")
	assert.Equal(t, before+1, testutil.ToFloat64(checkIns.WithLabelValues("ok")))

	before = testutil.ToFloat64(exitDecisions.WithLabelValues("denied"))
	IncExitDecision("denied")
	assert.Equal(t, before+1, testutil.ToFloat64(exitDecisions.WithLabelValues("denied")))

	before = testutil.ToFloat64(bookingsCreated)
	IncBookingCreated()
	assert.Equal(t, before+1, testutil.ToFloat64(bookingsCreated))
}
