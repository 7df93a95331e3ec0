// Package demand estimates remaining unconstrained demand for a stay date
// from booking momentum: a lead-time-weighted blend of recent pickup rates,
// scaled by time to arrival and a same-time-last-year pace factor.
//
// The model is deliberately blind to cancellations. Cancellation impact is
// applied on the supply side by the price optimizer; folding it in here
// would double-count it.
package demand

import (
	"fmt"
	"math"

	"hotel-revenue/pkg/confidence"
)

// ModelVersion is persisted with every forecast row.
const ModelVersion = "weighted_pickup_v03"

// fallbackDemandShare of remaining supply is assumed when no pickup window
// has data at all.
const fallbackDemandShare = 0.2

// Lag windows in days, in the fixed slot order the weight vectors use.
var lagWindows = [5]int{30, 15, 7, 5, 3}

// Horizon profiles: closer arrivals lean on the short windows, distant
// arrivals on the long ones.
var (
	weightsShort   = [5]float64{0.05, 0.10, 0.20, 0.25, 0.40} // < 7 days out
	weightsMedium  = [5]float64{0.10, 0.20, 0.30, 0.25, 0.15} // 7-14 days
	weightsLong    = [5]float64{0.15, 0.30, 0.25, 0.20, 0.10} // 15-30 days
	weightsDistant = [5]float64{0.40, 0.25, 0.15, 0.10, 0.10} // > 30 days
)

const (
	stlyFactorMin = 0.5
	stlyFactorMax = 2.0
)

// Input carries everything the model needs for one stay date. Pickups are
// raw room deltas per lag window (slot order 30/15/7/5/3); nil means no
// qualifying snapshot existed for that window.
type Input struct {
	Pickups         [5]*int
	DaysToArrival   int
	PaceVsLY        *int
	RemainingSupply int
}

// Forecast is the model output for one stay date.
type Forecast struct {
	RemainingDemand int
	Confidence      confidence.Tier
	ModelVersion    string
	Trace           []string
}

// Estimate runs the model. Pure; no I/O.
func Estimate(in Input) Forecast {
	daysOut := in.DaysToArrival
	if daysOut < 1 {
		daysOut = 1
	}

	trace := []string{fmt.Sprintf("days_to_arrival=%d", daysOut)}

	present := 0
	for _, p := range in.Pickups {
		if p != nil {
			present++
		}
	}

	if present == 0 {
		supply := in.RemainingSupply
		if supply < 0 {
			supply = 0
		}
		demand := int(math.Round(fallbackDemandShare * float64(supply)))
		trace = append(trace,
			"no pickup windows available",
			fmt.Sprintf("fallback: %.1f x remaining_supply(%d) = %d", fallbackDemandShare, supply, demand))
		return Forecast{RemainingDemand: demand, Confidence: confidence.Fallback, ModelVersion: ModelVersion, Trace: trace}
	}

	weights, profile := profileFor(daysOut)
	trace = append(trace, fmt.Sprintf("profile=%s weights=%v", profile, weights))

	var weightedSum, weightSum float64
	for i, p := range in.Pickups {
		if p == nil {
			trace = append(trace, fmt.Sprintf("t%d: no data, skipped", lagWindows[i]))
			continue
		}
		rate := float64(*p) / float64(lagWindows[i])
		if rate < 0 {
			trace = append(trace, fmt.Sprintf("t%d: pickup=%d rate=%.3f clamped to 0", lagWindows[i], *p, rate))
			rate = 0
		} else {
			trace = append(trace, fmt.Sprintf("t%d: pickup=%d rate=%.3f weight=%.2f", lagWindows[i], *p, rate, weights[i]))
		}
		weightedSum += rate * weights[i]
		weightSum += weights[i]
	}

	weightedRate := weightedSum / weightSum
	trace = append(trace, fmt.Sprintf("weighted_rate=%.4f (renormalized over %d windows)", weightedRate, present))

	stlyFactor := 1.0
	if in.PaceVsLY != nil {
		stlyFactor = clamp(float64(*in.PaceVsLY), stlyFactorMin, stlyFactorMax)
		trace = append(trace, fmt.Sprintf("stly_factor=%.2f (pace_vs_ly=%d)", stlyFactor, *in.PaceVsLY))
	} else {
		trace = append(trace, "stly_factor=1.00 (no last-year match)")
	}

	demand := int(math.Round(weightedRate * float64(daysOut) * stlyFactor))
	if demand < 0 {
		demand = 0
	}
	trace = append(trace, fmt.Sprintf("remaining_demand=round(%.4f x %d x %.2f)=%d", weightedRate, daysOut, stlyFactor, demand))

	return Forecast{
		RemainingDemand: demand,
		Confidence:      confidenceFor(present, in.PaceVsLY != nil),
		ModelVersion:    ModelVersion,
		Trace:           trace,
	}
}

func profileFor(daysOut int) ([5]float64, string) {
	switch {
	case daysOut < 7:
		return weightsShort, "short"
	case daysOut <= 14:
		return weightsMedium, "medium"
	case daysOut <= 30:
		return weightsLong, "long"
	default:
		return weightsDistant, "distant"
	}
}

func confidenceFor(windows int, stly bool) confidence.Tier {
	switch {
	case windows >= 3 && stly:
		return confidence.High
	case windows >= 2:
		return confidence.Medium
	case windows == 1:
		return confidence.Low
	default:
		return confidence.Fallback
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
