// Package reasoning maps qualitative effort levels onto each model family's
// reasoning allowance, and answers model capability questions for the
// dialect compilers.
package reasoning

import (
	"math"
	"regexp"
)

// Effort is the qualitative reasoning knob carried on the canonical request.
type Effort string

const (
	EffortAuto   Effort = "auto"
	EffortMin    Effort = "min"
	EffortLow    Effort = "low"
	EffortMedium Effort = "medium"
	EffortHigh   Effort = "high"
	EffortMax    Effort = "max"
)

// BudgetOmit means "send no reasoning override"; auto and anything
// unrecognized resolve to it.
const BudgetOmit = -1

// budgetFamily holds one model family's fraction table and absolute bounds.
type budgetFamily struct {
	pattern   *regexp.Regexp
	fractions map[Effort]float64
	min       int
	max       int

	// nonStreamCap further bounds the result when the response is not
	// streamed; 0 means no such cap.
	nonStreamCap int
}

var budgetFamilies = []budgetFamily{
	{
		pattern: regexp.MustCompile(`^claude-`),
		fractions: map[Effort]float64{
			EffortMin:    0,
			EffortLow:    0.1,
			EffortMedium: 0.25,
			EffortHigh:   0.5,
			EffortMax:    0.95,
		},
		min:          1024,
		max:          32000,
		nonStreamCap: 21333,
	},
	{
		pattern: regexp.MustCompile(`^gemini-.*-flash`),
		fractions: map[Effort]float64{
			EffortMin:    0,
			EffortLow:    0.1,
			EffortMedium: 0.25,
			EffortHigh:   0.5,
			EffortMax:    0.9,
		},
		min: 0,
		max: 24576,
	},
	{
		pattern: regexp.MustCompile(`^gemini-.*-pro`),
		fractions: map[Effort]float64{
			EffortMin:    0,
			EffortLow:    0.1,
			EffortMedium: 0.25,
			EffortHigh:   0.5,
			EffortMax:    0.9,
		},
		min: 128,
		max: 32768,
	},
}

// TokenBudget computes the numeric reasoning allowance for model, or
// BudgetOmit when no override should be sent (auto effort, unknown effort,
// or a family without numeric budgets).
func TokenBudget(maxTokens int, effort Effort, model string, streaming bool) int {
	if effort == EffortAuto || maxTokens <= 0 {
		return BudgetOmit
	}

	for _, family := range budgetFamilies {
		if !family.pattern.MatchString(model) {
			continue
		}

		fraction, ok := family.fractions[effort]
		if !ok {
			return BudgetOmit
		}

		budget := int(math.Floor(float64(maxTokens) * fraction))

		if budget < family.min {
			budget = family.min
		}

		if budget > family.max {
			budget = family.max
		}

		if !streaming && family.nonStreamCap > 0 && budget > family.nonStreamCap {
			budget = family.nonStreamCap
		}

		return budget
	}

	return BudgetOmit
}

// SymbolicLevel maps effort onto the fixed level vocabulary used by families
// that expose no numeric budget. Empty string means omit the field.
func SymbolicLevel(effort Effort) string {
	switch effort {
	case EffortMin:
		return "minimal"
	case EffortLow:
		return "low"
	case EffortMedium:
		return "medium"
	case EffortHigh, EffortMax:
		return "high"
	default:
		return ""
	}
}

// ParseEffort normalizes a raw effort string; unrecognized values fall
// through to auto per the canonical error-handling contract.
func ParseEffort(raw string) Effort {
	switch Effort(raw) {
	case EffortMin, EffortLow, EffortMedium, EffortHigh, EffortMax:
		return Effort(raw)
	default:
		return EffortAuto
	}
}
