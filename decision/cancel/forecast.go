package cancel

import (
	"fmt"
	"math"
	"time"

	"hotel-revenue/pkg/confidence"
	"hotel-revenue/pkg/dateutil"
	"hotel-revenue/pkg/schema"
)

// Forecaster answers expected-cancellation queries from a trained bucket
// set. Lookups are O(1) per fallback level via an index keyed on the full
// bucket tuple.
type Forecaster struct {
	index      map[bucketKey]schema.CancelRateBucket
	globalRate float64
	trained    bool
}

// NewForecaster indexes a trained bucket set. An empty set is valid; every
// query then resolves to the hard default rate.
//
// Training emits DOW-specific rows only, but the fallback chain needs
// any-DOW lookups that still carry the lead dimension, so derived DOWAny
// rows are indexed per (lead, season, segment) as the room-night-weighted
// average across the trained DOWs.
func NewForecaster(buckets []schema.CancelRateBucket) *Forecaster {
	f := &Forecaster{index: make(map[bucketKey]schema.CancelRateBucket, len(buckets))}
	type agg struct {
		sum float64
		n   int
	}
	anyDOW := make(map[bucketKey]agg)
	var sum float64
	var n int
	for _, b := range buckets {
		f.index[bucketKey{lead: b.LeadBucket, dow: b.DOW, season: b.SeasonLabel, segment: b.Segment}] = b
		if b.LeadBucket == LeadBucketAny || b.DOW == DOWAny {
			continue
		}
		key := bucketKey{lead: b.LeadBucket, dow: DOWAny, season: b.SeasonLabel, segment: b.Segment}
		a := anyDOW[key]
		a.sum += b.CancelRate * float64(b.TotalRooms)
		a.n += b.TotalRooms
		anyDOW[key] = a
		// ALL-segment rows partition the room-nights exactly once; segment
		// rows (and the derived aggregates) would double-count them.
		if b.Segment == schema.SegmentAll {
			sum += b.CancelRate * float64(b.TotalRooms)
			n += b.TotalRooms
		}
	}
	for key, a := range anyDOW {
		if _, ok := f.index[key]; ok || a.n == 0 {
			continue
		}
		f.index[key] = schema.CancelRateBucket{
			LeadBucket:  key.lead,
			DOW:         DOWAny,
			SeasonLabel: key.season,
			Segment:     key.segment,
			CancelRate:  a.sum / float64(a.n),
			TotalRooms:  a.n,
			Confidence:  confidence.FromSampleSize(a.n, HighSampleMin, MediumSampleMin),
		}
	}
	if n > 0 {
		f.globalRate = sum / float64(n)
		f.trained = true
	}
	return f
}

// Result is one expected-cancellation answer with its provenance.
type Result struct {
	ExpectedCxl   int             `json:"expected_cxl"`
	Rate          float64         `json:"rate"`
	Confidence    confidence.Tier `json:"confidence"`
	BucketUsed    string          `json:"bucket_used"`
	FallbackLevel int             `json:"fallback_level"`
}

// Expected returns the expected cancelled rooms for a stay date as seen from
// an as-of date. The lead dimension here is remaining time to arrival, not
// time since booking, mapped onto the same bucket scheme. The fallback chain
// walks from the exact tuple out to the hard default; the first hit wins.
func (f *Forecaster) Expected(stayDate, asOfDate time.Time, roomsOTB int, segment string, seasons []schema.SeasonRange) Result {
	if roomsOTB <= 0 {
		return Result{Confidence: confidence.High, BucketUsed: "none:no_rooms", FallbackLevel: 0}
	}

	lead := LeadBucketForDays(dateutil.DaysBetween(asOfDate, stayDate))
	dow := int(dateutil.Date(stayDate).Weekday())
	season := SeasonLabelFor(seasons, stayDate)
	if segment == "" {
		segment = schema.SegmentUnknown
	}

	probes := []struct {
		level int
		key   bucketKey
	}{
		{0, bucketKey{lead: lead, dow: dow, season: season, segment: segment}},
		{1, bucketKey{lead: lead, dow: dow, season: season, segment: schema.SegmentAll}},
		{2, bucketKey{lead: lead, dow: dow, season: SeasonDefault, segment: segment}},
		{3, bucketKey{lead: lead, dow: DOWAny, season: SeasonDefault, segment: schema.SegmentAll}},
		{3, bucketKey{lead: LeadBucketAny, dow: DOWAny, season: SeasonDefault, segment: schema.SegmentAll}},
	}
	for _, p := range probes {
		if b, ok := f.index[p.key]; ok {
			return f.resolve(roomsOTB, b.CancelRate, b.Confidence, p.level,
				fmt.Sprintf("%s|%d|%s|%s", p.key.lead, p.key.dow, p.key.season, p.key.segment))
		}
	}
	if f.trained {
		// The least specific trained answer is never better than low,
		// regardless of how many room-nights back it.
		return f.resolve(roomsOTB, f.globalRate, confidence.Low, 4, "global_average")
	}
	return f.resolve(roomsOTB, DefaultCancelRate, confidence.Fallback, 5, "hard_default")
}

func (f *Forecaster) resolve(roomsOTB int, rate float64, conf confidence.Tier, level int, bucket string) Result {
	rate = ClampRate(rate)
	expected := int(math.Round(float64(roomsOTB) * rate))
	if expected > roomsOTB {
		expected = roomsOTB
	}
	return Result{
		ExpectedCxl:   expected,
		Rate:          rate,
		Confidence:    conf,
		BucketUsed:    bucket,
		FallbackLevel: level,
	}
}
