package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPricingHourlyRate(t *testing.T) {
	assert.Equal(t, int64(5000), NewPricing(5000, 60).HourlyRate())
	assert.Equal(t, int64(20000), NewPricing(10000, 30).HourlyRate())
	assert.Equal(t, int64(2500), NewPricing(5000, 120).HourlyRate())
}

func TestPricingPriceFor(t *testing.T) {
	p := NewPricing(5000, 60)
	entry := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	t.Run("WholeHours", func(t *testing.T) {
		assert.Equal(t, int64(40000), p.PriceFor(entry, entry.Add(8*time.Hour)))
	})

	t.Run("StartedHourBilledInFull", func(t *testing.T) {
		assert.Equal(t, int64(10000), p.PriceFor(entry, entry.Add(61*time.Minute)))
	})

	t.Run("MinimumOneHour", func(t *testing.T) {
		assert.Equal(t, int64(5000), p.PriceFor(entry, entry.Add(5*time.Minute)))
		assert.Equal(t, int64(5000), p.PriceFor(entry, entry))
	})
}
