// Package price turns a demand forecast into a bounded price
// recommendation: demand pressure against cancellation-adjusted supply,
// mapped through a piecewise-linear multiplier curve, dampened by forecast
// confidence, and clamped by the hotel's guardrails.
package price

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"hotel-revenue/pkg/confidence"
	"hotel-revenue/pkg/errors"
)

// Pricing zones by demand pressure, strongest first.
const (
	ZoneSurge    = "SURGE"
	ZoneStrong   = "STRONG"
	ZoneNormal   = "NORMAL"
	ZoneSoft     = "SOFT"
	ZoneDistress = "DISTRESS"
)

// Competitor positions.
const (
	CompUndercut = "UNDERCUT"
	CompMatch    = "MATCH"
	CompPremium  = "PREMIUM"
)

// saturatedPressure stands in for demand against zero or negative net
// remaining supply.
const saturatedPressure = 3.0

type anchor struct {
	pressure   float64
	multiplier float64
}

// Multiplier curve. Pressure 1.2 is the neutral point; below it the price
// eases off, above it climbs.
var curve = []anchor{
	{0.0, 0.85},
	{0.25, 0.90},
	{0.60, 0.95},
	{1.20, 1.00},
	{2.00, 1.15},
	{3.00, 1.25},
}

// Input is everything the optimizer needs for one stay date.
type Input struct {
	HotelID          string
	BaseRate         float64
	RoomsOTB         int
	RemainingDemand  int
	RemainingSupply  int
	ExpectedCxl      int
	Capacity         int
	SeasonMultiplier float64
	Confidence       confidence.Tier
	Guardrails       GuardrailConfig
	Commission       *float64
	CompPosition     string
}

// Recommendation is the optimizer output for one stay date.
type Recommendation struct {
	Price              float64
	Zone               string
	Pressure           float64
	Multiplier         float64
	ExpectedFinalRooms int
	ProjectedOccupancy float64
	GrossRevenue       decimal.Decimal
	NetRevenue         *decimal.Decimal
	UpliftPct          float64
	Guardrail          GuardrailResult
	Trace              []string
}

// Optimize computes the recommendation. Pure; no I/O. A non-positive base
// rate is a hard error, never silently clamped.
func Optimize(in Input) (*Recommendation, error) {
	if in.BaseRate <= 0 {
		return nil, errors.NewInvalidBaseRateError(in.HotelID, in.BaseRate)
	}
	season := in.SeasonMultiplier
	if season <= 0 {
		season = 1.0
	}

	netRemaining := in.RemainingSupply + in.ExpectedCxl
	pressure := 0.0
	switch {
	case netRemaining > 0:
		pressure = float64(in.RemainingDemand) / float64(netRemaining)
	case in.RemainingDemand > 0:
		pressure = saturatedPressure
	}

	trace := []string{
		fmt.Sprintf("net_remaining=%d+%d=%d", in.RemainingSupply, in.ExpectedCxl, netRemaining),
		fmt.Sprintf("demand_pressure=%.3f", pressure),
	}

	mult := multiplierFor(pressure)
	zone := zoneFor(pressure)
	trace = append(trace, fmt.Sprintf("zone=%s curve_multiplier=%.3f", zone, mult))

	switch in.CompPosition {
	case CompUndercut:
		mult *= 1.03
		trace = append(trace, fmt.Sprintf("comp=UNDERCUT multiplier=%.3f", mult))
	case CompPremium:
		mult *= 0.98
		trace = append(trace, fmt.Sprintf("comp=PREMIUM multiplier=%.3f", mult))
	}

	damp := confidence.DampeningFactor(in.Confidence)
	mult = 1.0 + (mult-1.0)*damp
	trace = append(trace, fmt.Sprintf("confidence=%s dampening=%.2f multiplier=%.3f", in.Confidence, damp, mult))

	rawPrice := math.Round(in.BaseRate * mult * season)
	trace = append(trace, fmt.Sprintf("price=round(%.0f x %.3f x %.2f)=%.0f", in.BaseRate, mult, season, rawPrice))

	guard := ApplyGuardrails(rawPrice, in.Guardrails)
	trace = append(trace, guard.String())
	price := guard.AfterPrice

	roomsStaying := in.RoomsOTB - in.ExpectedCxl
	if roomsStaying < 0 {
		roomsStaying = 0
	}
	newBookings := in.RemainingDemand
	if netRemaining < newBookings {
		newBookings = netRemaining
	}
	if newBookings < 0 {
		newBookings = 0
	}
	finalRooms := roomsStaying + newBookings

	occupancy := 0.0
	if in.Capacity > 0 {
		occupancy = float64(finalRooms) / float64(in.Capacity)
	}
	gross := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(finalRooms)))
	trace = append(trace, fmt.Sprintf("final_rooms=%d+%d=%d occupancy=%.3f gross=%s",
		roomsStaying, newBookings, finalRooms, occupancy, gross.StringFixed(0)))

	refRate := in.BaseRate
	if in.Guardrails.CurrentRate != nil && *in.Guardrails.CurrentRate > 0 {
		refRate = *in.Guardrails.CurrentRate
	}
	uplift := 0.0
	baseline := refRate * float64(in.RoomsOTB)
	if baseline > 0 {
		grossF, _ := gross.Float64()
		uplift = (grossF - baseline) / baseline
		trace = append(trace, fmt.Sprintf("uplift=%.1f%% vs baseline %.0f", uplift*100, baseline))
	}

	rec := &Recommendation{
		Price:              price,
		Zone:               zone,
		Pressure:           pressure,
		Multiplier:         mult,
		ExpectedFinalRooms: finalRooms,
		ProjectedOccupancy: occupancy,
		GrossRevenue:       gross,
		UpliftPct:          uplift,
		Guardrail:          guard,
		Trace:              trace,
	}
	if in.Commission != nil {
		net := gross.Mul(decimal.NewFromFloat(1 - *in.Commission)).Round(0)
		rec.NetRevenue = &net
		rec.Trace = append(rec.Trace, fmt.Sprintf("net=%s (commission %.1f%%)", net.StringFixed(0), *in.Commission*100))
	}
	return rec, nil
}

// multiplierFor interpolates linearly between the bracketing curve anchors,
// clamping outside the anchor range.
func multiplierFor(pressure float64) float64 {
	if pressure <= curve[0].pressure {
		return curve[0].multiplier
	}
	last := curve[len(curve)-1]
	if pressure >= last.pressure {
		return last.multiplier
	}
	for i := 1; i < len(curve); i++ {
		if pressure <= curve[i].pressure {
			lo, hi := curve[i-1], curve[i]
			frac := (pressure - lo.pressure) / (hi.pressure - lo.pressure)
			return lo.multiplier + frac*(hi.multiplier-lo.multiplier)
		}
	}
	return last.multiplier
}

func zoneFor(pressure float64) string {
	switch {
	case pressure >= 2.0:
		return ZoneSurge
	case pressure >= 1.2:
		return ZoneStrong
	case pressure >= 0.6:
		return ZoneNormal
	case pressure >= 0.25:
		return ZoneSoft
	default:
		return ZoneDistress
	}
}
