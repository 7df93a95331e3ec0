// Package confidence provides the shared confidence tiers used by the
// forecasting stages and the dampening factors derived from them.
package confidence

// Tier grades how much data backed a forecast or trained bucket.
type Tier string

const (
	High     Tier = "high"
	Medium   Tier = "medium"
	Low      Tier = "low"
	Fallback Tier = "fallback"
)

// Valid reports whether t is one of the defined tiers.
func (t Tier) Valid() bool {
	switch t {
	case High, Medium, Low, Fallback:
		return true
	}
	return false
}

// FromSampleSize grades a trained bucket by room-night count.
func FromSampleSize(totalRooms, highMin, mediumMin int) Tier {
	switch {
	case totalRooms >= highMin:
		return High
	case totalRooms >= mediumMin:
		return Medium
	default:
		return Low
	}
}

// DampeningFactor returns how much of a price move survives the tier:
// full move for high/medium, half for low, a quarter for fallback.
func DampeningFactor(t Tier) float64 {
	switch t {
	case Low:
		return 0.5
	case Fallback:
		return 0.25
	default:
		return 1.0
	}
}
