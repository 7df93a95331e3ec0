package price

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel-revenue/pkg/confidence"
)

func wideGuardrails() GuardrailConfig {
	return GuardrailConfig{MinRate: 1, MaxRate: 1e9, MaxStepPct: 0, Rounding: RoundNone}
}

func TestMultiplierCurveAnchors(t *testing.T) {
	cases := []struct {
		pressure float64
		want     float64
	}{
		{0.0, 0.85},
		{0.25, 0.90},
		{0.60, 0.95},
		{1.20, 1.00},
		{2.00, 1.15},
		{3.00, 1.25},
		{-0.5, 0.85}, // below range
		{5.00, 1.25}, // above range
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, multiplierFor(tc.pressure), 1e-9, "pressure=%.2f", tc.pressure)
	}
}

func TestMultiplierCurveInterpolation(t *testing.T) {
	// Midpoints of two segments.
	assert.InDelta(t, 0.925, multiplierFor(0.425), 1e-9)
	assert.InDelta(t, 1.075, multiplierFor(1.60), 1e-9)
}

func TestZoneBoundaries(t *testing.T) {
	cases := map[float64]string{
		2.5:  ZoneSurge,
		2.0:  ZoneSurge,
		1.2:  ZoneStrong,
		0.6:  ZoneNormal,
		0.25: ZoneSoft,
		0.1:  ZoneDistress,
		0.0:  ZoneDistress,
	}
	for pressure, want := range cases {
		assert.Equal(t, want, zoneFor(pressure), "pressure=%.2f", pressure)
	}
}

func TestOptimizeRejectsNonPositiveBaseRate(t *testing.T) {
	_, err := Optimize(Input{BaseRate: 0})
	assert.Error(t, err)
	_, err = Optimize(Input{BaseRate: -100})
	assert.Error(t, err)
}

func TestOptimizeSaturatesOnExhaustedSupply(t *testing.T) {
	rec, err := Optimize(Input{
		BaseRate:        1000,
		RemainingDemand: 5,
		RemainingSupply: 0,
		Capacity:        100,
		Confidence:      confidence.High,
		Guardrails:      wideGuardrails(),
	})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, rec.Pressure, 1e-9)
	assert.Equal(t, ZoneSurge, rec.Zone)
	assert.Equal(t, 1250.0, rec.Price)
	assert.Equal(t, 0, rec.ExpectedFinalRooms, "no supply means no new bookings")
}

func TestOptimizeZeroDemandZeroPressure(t *testing.T) {
	rec, err := Optimize(Input{
		BaseRate:        1000,
		RemainingSupply: 50,
		Capacity:        100,
		Confidence:      confidence.High,
		Guardrails:      wideGuardrails(),
	})
	require.NoError(t, err)
	assert.Zero(t, rec.Pressure)
	assert.Equal(t, ZoneDistress, rec.Zone)
	assert.Equal(t, 850.0, rec.Price)
}

func TestOptimizeConfidenceDampening(t *testing.T) {
	base := Input{
		BaseRate:        1000,
		RemainingDemand: 5,
		RemainingSupply: 0,
		Capacity:        100,
		Guardrails:      wideGuardrails(),
	}

	// Saturated pressure gives a 1.25 curve multiplier; dampening pulls the
	// excursion from 1.0 back in.
	cases := map[confidence.Tier]float64{
		confidence.High:     1250,
		confidence.Medium:   1250,
		confidence.Low:      1125, // 1 + 0.25*0.5
		confidence.Fallback: 1063, // round(1 + 0.25*0.25)
	}
	for tier, want := range cases {
		in := base
		in.Confidence = tier
		rec, err := Optimize(in)
		require.NoError(t, err)
		assert.Equal(t, want, rec.Price, "tier=%s", tier)
	}
}

func TestOptimizeCompetitorPosition(t *testing.T) {
	base := Input{
		BaseRate:        1000,
		RemainingDemand: 5,
		RemainingSupply: 0,
		Capacity:        100,
		Confidence:      confidence.High,
		Guardrails:      wideGuardrails(),
	}

	undercut := base
	undercut.CompPosition = CompUndercut
	rec, err := Optimize(undercut)
	require.NoError(t, err)
	assert.Equal(t, 1288.0, rec.Price) // round(1000 * 1.25 * 1.03)

	premium := base
	premium.CompPosition = CompPremium
	rec, err = Optimize(premium)
	require.NoError(t, err)
	assert.Equal(t, 1225.0, rec.Price) // round(1000 * 1.25 * 0.98)
}

func TestOptimizeSeasonMultiplier(t *testing.T) {
	in := Input{
		BaseRate:         1000,
		RemainingDemand:  5,
		RemainingSupply:  0,
		Capacity:         100,
		SeasonMultiplier: 1.2,
		Confidence:       confidence.High,
		Guardrails:       wideGuardrails(),
	}
	rec, err := Optimize(in)
	require.NoError(t, err)
	assert.Equal(t, 1500.0, rec.Price) // round(1000 * 1.25 * 1.2)

	in.SeasonMultiplier = -1 // misconfigured season falls back to neutral
	rec, err = Optimize(in)
	require.NoError(t, err)
	assert.Equal(t, 1250.0, rec.Price)
}

func TestOptimizeProjections(t *testing.T) {
	rec, err := Optimize(Input{
		BaseRate:        1000,
		RoomsOTB:        40,
		RemainingDemand: 20,
		RemainingSupply: 60,
		ExpectedCxl:     5,
		Capacity:        100,
		Confidence:      confidence.Medium,
		Guardrails:      wideGuardrails(),
	})
	require.NoError(t, err)

	// net_remaining 65, pressure 20/65 ≈ 0.308 -> SOFT.
	assert.Equal(t, ZoneSoft, rec.Zone)
	assert.Equal(t, 908.0, rec.Price)

	// 35 staying + min(20 demand, 65 net supply) new.
	assert.Equal(t, 55, rec.ExpectedFinalRooms)
	assert.InDelta(t, 0.55, rec.ProjectedOccupancy, 1e-9)
	assert.Equal(t, "49940", rec.GrossRevenue.StringFixed(0))

	// Uplift against base rate x rooms on the books (no published rate).
	assert.InDelta(t, (49940.0-40000.0)/40000.0, rec.UpliftPct, 1e-6)
	assert.Nil(t, rec.NetRevenue)
}

func TestOptimizeCommissionNet(t *testing.T) {
	commission := 0.18
	rec, err := Optimize(Input{
		BaseRate:        1000,
		RoomsOTB:        40,
		RemainingDemand: 20,
		RemainingSupply: 60,
		ExpectedCxl:     5,
		Capacity:        100,
		Confidence:      confidence.Medium,
		Guardrails:      wideGuardrails(),
		Commission:      &commission,
	})
	require.NoError(t, err)
	require.NotNil(t, rec.NetRevenue)
	assert.Equal(t, "40951", rec.NetRevenue.StringFixed(0)) // round(49940 * 0.82)
}

func TestOptimizeNegativeNetSupplyYieldsNoNewBookings(t *testing.T) {
	rec, err := Optimize(Input{
		BaseRate:        1000,
		RoomsOTB:        105,
		RemainingDemand: 10,
		RemainingSupply: -5,
		ExpectedCxl:     2,
		Capacity:        100,
		Confidence:      confidence.High,
		Guardrails:      wideGuardrails(),
	})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, rec.Pressure, 1e-9, "oversold dates saturate the pressure")
	assert.Equal(t, 103, rec.ExpectedFinalRooms, "staying rooms only, new bookings floored at 0")
	assert.InDelta(t, 1.03, rec.ProjectedOccupancy, 1e-9)
}

func TestOptimizeUpliftUsesPublishedRateWhenKnown(t *testing.T) {
	rec, err := Optimize(Input{
		BaseRate:        1000,
		RoomsOTB:        40,
		RemainingDemand: 20,
		RemainingSupply: 60,
		ExpectedCxl:     5,
		Capacity:        100,
		Confidence:      confidence.Medium,
		Guardrails: GuardrailConfig{
			MinRate: 1, MaxRate: 1e9, MaxStepPct: 0.5,
			CurrentRate: fp(1100), Rounding: RoundNone,
		},
	})
	require.NoError(t, err)
	baseline := 1100.0 * 40
	gross, _ := rec.GrossRevenue.Float64()
	assert.InDelta(t, (gross-baseline)/baseline, rec.UpliftPct, 1e-6)
}
