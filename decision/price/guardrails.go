package price

import (
	"fmt"
	"math"
)

// Guardrail reason codes. MissingBase is informational; the others mark an
// actual clamp or stop.
const (
	ReasonPass           = "PASS"
	ReasonMinRate        = "MIN_RATE"
	ReasonMaxRate        = "MAX_RATE"
	ReasonStepCap        = "STEP_CAP"
	ReasonMissingBase    = "MISSING_BASE"
	ReasonInvalidNet     = "INVALID_NET"
	ReasonManualOverride = "MANUAL_OVERRIDE"
)

// Warning codes attached when a manual price bypasses the pipeline.
const (
	WarnOutsideMin   = "OUTSIDE_MIN"
	WarnOutsideMax   = "OUTSIDE_MAX"
	WarnStepExceeded = "STEP_EXCEEDED"
)

// RoundingRule selects the final price rounding step.
type RoundingRule string

const (
	RoundNone     RoundingRule = "NONE"
	RoundNear100  RoundingRule = "ROUND_100"
	RoundCeil1000 RoundingRule = "CEIL_1000"
)

// GuardrailConfig bounds a recommended price. CurrentRate nil means no
// previously published rate is known, which disables the step cap.
type GuardrailConfig struct {
	MinRate         float64      `json:"min_rate"`
	MaxRate         float64      `json:"max_rate"`
	MaxStepPct      float64      `json:"max_step_pct"`
	CurrentRate     *float64     `json:"current_rate,omitempty"`
	Rounding        RoundingRule `json:"rounding"`
	Manual          bool         `json:"manual"`
	EnforceOnManual bool         `json:"enforce_on_manual"`
}

// Thresholds echoes the active bounds back to the caller.
type Thresholds struct {
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	MaxStepPct float64 `json:"max_step_pct"`
}

// GuardrailResult is the outcome of one guardrail application. PrimaryReason
// is the first clamping code, or PASS when nothing clamped (informational
// codes never become primary).
type GuardrailResult struct {
	BeforePrice   float64    `json:"before_price"`
	AfterPrice    float64    `json:"after_price"`
	Clamped       bool       `json:"clamped"`
	ReasonCodes   []string   `json:"reason_codes"`
	PrimaryReason string     `json:"primary_reason"`
	Warnings      []string   `json:"warnings,omitempty"`
	Thresholds    Thresholds `json:"thresholds"`
}

// ApplyGuardrails runs the clamp pipeline: min/max clamp, then step cap
// against the current rate (step bounds themselves clamped to [min, max]),
// then rounding, then a final max re-clamp so rounding can never push the
// price over the ceiling. A non-positive candidate is a hard stop. A manual
// price bypasses the pipeline with warnings unless enforcement is on.
func ApplyGuardrails(candidate float64, cfg GuardrailConfig) GuardrailResult {
	res := GuardrailResult{
		BeforePrice: candidate,
		AfterPrice:  candidate,
		Thresholds:  Thresholds{Min: cfg.MinRate, Max: cfg.MaxRate, MaxStepPct: cfg.MaxStepPct},
	}

	if candidate <= 0 {
		res.AfterPrice = 0
		res.ReasonCodes = []string{ReasonInvalidNet}
		res.PrimaryReason = ReasonInvalidNet
		return res
	}

	if cfg.Manual && !cfg.EnforceOnManual {
		res.ReasonCodes = []string{ReasonManualOverride}
		res.PrimaryReason = ReasonManualOverride
		if candidate < cfg.MinRate {
			res.Warnings = append(res.Warnings, WarnOutsideMin)
		}
		if candidate > cfg.MaxRate {
			res.Warnings = append(res.Warnings, WarnOutsideMax)
		}
		if cfg.CurrentRate != nil && *cfg.CurrentRate > 0 && cfg.MaxStepPct > 0 {
			if math.Abs(candidate-*cfg.CurrentRate) > *cfg.CurrentRate*cfg.MaxStepPct {
				res.Warnings = append(res.Warnings, WarnStepExceeded)
			}
		}
		return res
	}

	price := candidate
	addCode := func(code string) {
		for _, c := range res.ReasonCodes {
			if c == code {
				return
			}
		}
		res.ReasonCodes = append(res.ReasonCodes, code)
	}

	if cfg.CurrentRate == nil {
		addCode(ReasonMissingBase)
	}

	if price < cfg.MinRate {
		price = cfg.MinRate
		addCode(ReasonMinRate)
	}
	if price > cfg.MaxRate {
		price = cfg.MaxRate
		addCode(ReasonMaxRate)
	}

	if cfg.CurrentRate != nil && *cfg.CurrentRate > 0 && cfg.MaxStepPct > 0 {
		lower := math.Max(*cfg.CurrentRate*(1-cfg.MaxStepPct), cfg.MinRate)
		upper := math.Min(*cfg.CurrentRate*(1+cfg.MaxStepPct), cfg.MaxRate)
		if price < lower {
			price = lower
			addCode(ReasonStepCap)
		}
		if price > upper {
			price = upper
			addCode(ReasonStepCap)
		}
	}

	price = applyRounding(price, cfg.Rounding)
	if price > cfg.MaxRate {
		price = cfg.MaxRate
		addCode(ReasonMaxRate)
	}

	res.AfterPrice = price
	res.PrimaryReason = ReasonPass
	for _, c := range res.ReasonCodes {
		if c == ReasonMinRate || c == ReasonMaxRate || c == ReasonStepCap {
			res.PrimaryReason = c
			res.Clamped = true
			break
		}
	}
	return res
}

func applyRounding(price float64, rule RoundingRule) float64 {
	switch rule {
	case RoundNear100:
		return math.Round(price/100) * 100
	case RoundCeil1000:
		return math.Ceil(price/1000) * 1000
	default:
		return price
	}
}

// String renders the result for trace output.
func (r GuardrailResult) String() string {
	return fmt.Sprintf("guardrails: %.0f -> %.0f (%s)", r.BeforePrice, r.AfterPrice, r.PrimaryReason)
}
