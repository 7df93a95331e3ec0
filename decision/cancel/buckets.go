// Package cancel trains and serves cancellation-rate buckets: smoothed
// historical cancel rates keyed by booking-lead bucket, stay day of week,
// season, and segment, with a deterministic fallback chain at inference.
package cancel

import (
	"sort"
	"time"

	"hotel-revenue/pkg/dateutil"
	"hotel-revenue/pkg/schema"
)

const (
	// MappingVersion identifies the bucketing scheme persisted with each row.
	MappingVersion = "lead_dow_season_segment_v1"

	// PriorWeight is the pseudo-count pulling sparse buckets toward their
	// parent rate.
	PriorWeight = 20.0

	// MaxCancelRate caps any trained or inferred rate.
	MaxCancelRate = 0.8

	// DefaultCancelRate is the last-resort rate when no training data exists.
	DefaultCancelRate = 0.15

	// Sample-size thresholds (room-nights) for the confidence tiers.
	HighSampleMin   = 200
	MediumSampleMin = 50

	// LeadBucketAny marks the synthetic hotel-wide default row, together
	// with DOWAny.
	LeadBucketAny = "any"
	DOWAny        = -1

	// SeasonDefault labels stay dates outside every configured season range.
	SeasonDefault = "default"
)

// LeadBuckets lists the booking-lead bins in ascending order.
var LeadBuckets = []string{"0-3d", "4-7d", "8-14d", "15-30d", "31-60d", "61d+"}

// LeadBucketForDays maps a lead time in days onto its bin. Negative leads
// (bookings recorded after arrival) land in the shortest bin.
func LeadBucketForDays(days int) string {
	switch {
	case days <= 3:
		return "0-3d"
	case days <= 7:
		return "4-7d"
	case days <= 14:
		return "8-14d"
	case days <= 30:
		return "15-30d"
	case days <= 60:
		return "31-60d"
	default:
		return "61d+"
	}
}

// SmoothRate blends a bucket's raw rate toward its parent:
// (raw·n + parent·k) / (n + k) with k = PriorWeight. Zero-sample buckets
// inherit the parent rate outright.
func SmoothRate(raw float64, n int, parent float64) float64 {
	if n <= 0 {
		return parent
	}
	return (raw*float64(n) + parent*PriorWeight) / (float64(n) + PriorWeight)
}

// ClampRate bounds a rate to [0, MaxCancelRate].
func ClampRate(rate float64) float64 {
	if rate < 0 {
		return 0
	}
	if rate > MaxCancelRate {
		return MaxCancelRate
	}
	return rate
}

// SeasonLabelFor resolves a stay date's season label against the hotel's
// configured ranges. The highest-priority matching range wins; no match
// yields SeasonDefault.
func SeasonLabelFor(seasons []schema.SeasonRange, stayDate time.Time) string {
	return seasonLabel(seasons, dateutil.MonthDay(stayDate))
}

func seasonLabel(seasons []schema.SeasonRange, mmdd string) string {
	sorted := make([]schema.SeasonRange, len(seasons))
	copy(sorted, seasons)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority > sorted[j].Priority })
	for _, s := range sorted {
		if dateutil.MonthDayInRange(mmdd, s.Start, s.End) {
			return s.Label
		}
	}
	return SeasonDefault
}
