package service

import (
	"math"
	"time"
)

// Pricing converts parking durations into amounts in VND. The tariff is
// defined as a base amount per base interval and normalized to an hourly
// rate, with every started hour billed in full.
type Pricing struct {
	BaseAmount  int64
	BaseMinutes int64
}

func NewPricing(baseAmount, baseMinutes int64) *Pricing {
	if baseMinutes <= 0 {
		baseMinutes = 60
	}
	return &Pricing{
		BaseAmount:  baseAmount,
		BaseMinutes: baseMinutes,
	}
}

// HourlyRate normalizes the configured tariff to VND per hour.
func (p *Pricing) HourlyRate() int64 {
	return int64(math.Round(float64(p.BaseAmount) * 60 / float64(p.BaseMinutes)))
}

// BillableHours rounds a duration up to whole hours, with a one hour minimum.
func (p *Pricing) BillableHours(d time.Duration) int64 {
	if d <= 0 {
		return 1
	}
	hours := int64(math.Ceil(d.Minutes() / 60))
	if hours < 1 {
		hours = 1
	}
	return hours
}

// PriceFor returns the amount due for the interval between entry and exit.
func (p *Pricing) PriceFor(entry, exit time.Time) int64 {
	return p.BillableHours(exit.Sub(entry)) * p.HourlyRate()
}
