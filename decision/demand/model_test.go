package demand

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"hotel-revenue/pkg/confidence"
)

func ip(v int) *int { return &v }

func TestEstimateShortHorizonLeansOnRecentWindows(t *testing.T) {
	// rates per window: 1.0, 1.0, 2.0, 2.0, 3.0; short weights sum to 1 so
	// the blend is 0.05+0.10+0.40+0.50+1.20 = 2.25 rooms/day.
	got := Estimate(Input{
		Pickups:       [5]*int{ip(30), ip(15), ip(14), ip(10), ip(9)},
		DaysToArrival: 3,
	})
	assert.Equal(t, 7, got.RemainingDemand) // round(2.25 * 3)
	assert.Equal(t, confidence.Medium, got.Confidence, "all windows but no last-year pace")
	assert.Equal(t, ModelVersion, got.ModelVersion)
}

func TestEstimateRenormalizesOverMissingWindows(t *testing.T) {
	// Only t7 (rate 2.0) and t3 (rate 1.0) present at 10 days out; medium
	// weights 0.30 and 0.15 renormalize to (0.60+0.15)/0.45.
	got := Estimate(Input{
		Pickups:       [5]*int{nil, nil, ip(14), nil, ip(3)},
		DaysToArrival: 10,
	})
	assert.Equal(t, 17, got.RemainingDemand) // round(1.6667 * 10)
	assert.Equal(t, confidence.Medium, got.Confidence)
}

func TestEstimateClampsNegativeRatesButKeepsWeight(t *testing.T) {
	// The washed-out t7 window contributes zero demand yet stays in the
	// denominator, diluting the healthy t3 rate.
	got := Estimate(Input{
		Pickups:       [5]*int{nil, nil, ip(-7), nil, ip(3)},
		DaysToArrival: 10,
	})
	assert.Equal(t, 3, got.RemainingDemand) // round((0 + 1.0*0.15)/0.45 * 10)
}

func TestEstimateNeverNegative(t *testing.T) {
	got := Estimate(Input{
		Pickups:       [5]*int{ip(-30), ip(-15), ip(-7), ip(-5), ip(-3)},
		DaysToArrival: 20,
	})
	assert.Equal(t, 0, got.RemainingDemand)
}

func TestEstimateStlyFactorClamped(t *testing.T) {
	base := Input{
		Pickups:       [5]*int{nil, nil, ip(7), nil, nil}, // rate 1.0
		DaysToArrival: 10,
	}

	hot := base
	hot.PaceVsLY = ip(9)
	assert.Equal(t, 20, Estimate(hot).RemainingDemand, "pace factor capped at 2.0")

	cold := base
	cold.PaceVsLY = ip(-6)
	assert.Equal(t, 5, Estimate(cold).RemainingDemand, "pace factor floored at 0.5")
}

func TestEstimateFallbackWithoutAnyWindow(t *testing.T) {
	got := Estimate(Input{DaysToArrival: 15, RemainingSupply: 40})
	assert.Equal(t, 8, got.RemainingDemand) // 0.2 x 40
	assert.Equal(t, confidence.Fallback, got.Confidence)

	oversold := Estimate(Input{DaysToArrival: 15, RemainingSupply: -5})
	assert.Equal(t, 0, oversold.RemainingDemand, "oversold supply never yields negative fallback demand")
}

func TestEstimateConfidenceTiers(t *testing.T) {
	three := [5]*int{ip(30), ip(15), ip(7), nil, nil}

	withPace := Estimate(Input{Pickups: three, DaysToArrival: 10, PaceVsLY: ip(2)})
	assert.Equal(t, confidence.High, withPace.Confidence)

	noPace := Estimate(Input{Pickups: three, DaysToArrival: 10})
	assert.Equal(t, confidence.Medium, noPace.Confidence)

	one := Estimate(Input{Pickups: [5]*int{nil, nil, ip(7), nil, nil}, DaysToArrival: 10})
	assert.Equal(t, confidence.Low, one.Confidence)
}

func TestEstimatePastArrivalTreatedAsOneDayOut(t *testing.T) {
	got := Estimate(Input{
		Pickups:       [5]*int{nil, nil, nil, nil, ip(6)}, // rate 2.0
		DaysToArrival: -3,
	})
	assert.Equal(t, 2, got.RemainingDemand)
}

func TestEstimateTraceStaysOnTheDemandSide(t *testing.T) {
	got := Estimate(Input{
		Pickups:       [5]*int{ip(30), ip(15), ip(7), ip(5), ip(3)},
		DaysToArrival: 10,
		PaceVsLY:      ip(1),
	})
	assert.NotEmpty(t, got.Trace)
	for _, line := range got.Trace {
		lower := strings.ToLower(line)
		assert.NotContains(t, lower, "cancel")
		assert.NotContains(t, lower, "cxl")
	}
}
