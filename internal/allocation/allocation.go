// Package allocation validates and derives sector percentage splits for
// activities, and aggregates them into chart data.
package allocation

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/aims-sectors/internal/model"
)

// sumTolerance is the slack allowed when percentages are checked against 100.
const sumTolerance = 0.01

var (
	ErrEmptyCode           = eris.New("allocation: empty sector code")
	ErrDuplicateCode       = eris.New("allocation: duplicate sector code")
	ErrPercentageRange     = eris.New("allocation: percentage out of range")
	ErrMixedPercentages    = eris.New("allocation: percentages must be set on all sectors or none")
	ErrPercentageSumNot100 = eris.New("allocation: percentages must sum to 100")
)

// Validate checks an activity's allocations. Percentages are optional, but
// when any is present all must be, each within [0,100], summing to 100.
func Validate(allocs []model.SectorAllocation) error {
	seen := make(map[string]struct{}, len(allocs))
	withPct := 0
	sum := 0.0
	for _, a := range allocs {
		if a.Code == "" {
			return ErrEmptyCode
		}
		if _, dup := seen[a.Code]; dup {
			return eris.Wrapf(ErrDuplicateCode, "code %s", a.Code)
		}
		seen[a.Code] = struct{}{}

		if a.Percentage == nil {
			continue
		}
		p := *a.Percentage
		if math.IsNaN(p) || p < 0 || p > 100 {
			return eris.Wrapf(ErrPercentageRange, "code %s: %.2f", a.Code, p)
		}
		withPct++
		sum += p
	}

	if withPct == 0 {
		return nil
	}
	if withPct != len(allocs) {
		return ErrMixedPercentages
	}
	if math.Abs(math.Round(sum*100)-10000) > sumTolerance*100 {
		return eris.Wrapf(ErrPercentageSumNot100, "got %.2f", sum)
	}
	return nil
}

// EvenSplit spreads 100% across codes in hundredths. Leftover hundredths go
// to the first codes, so 3 codes get 33.34, 33.33, 33.33.
func EvenSplit(codes []string) []model.SectorAllocation {
	out := make([]model.SectorAllocation, 0, len(codes))
	if len(codes) == 0 {
		return out
	}

	n := len(codes)
	base := 10000 / n
	rem := 10000 - base*n
	for i, code := range codes {
		cents := base
		if i < rem {
			cents++
		}
		p := float64(cents) / 100
		out = append(out, model.SectorAllocation{Code: code, Percentage: &p})
	}
	return out
}

// Codes wraps plain codes as allocations without percentages.
func Codes(codes []string) []model.SectorAllocation {
	out := make([]model.SectorAllocation, 0, len(codes))
	for _, c := range codes {
		out = append(out, model.SectorAllocation{Code: c})
	}
	return out
}

// CodesOf returns the codes of allocs in order.
func CodesOf(allocs []model.SectorAllocation) []string {
	out := make([]string, 0, len(allocs))
	for _, a := range allocs {
		out = append(out, a.Code)
	}
	return out
}

// weights returns each allocation's share of one activity. Reported
// percentages are used when complete; otherwise the activity is split evenly.
func weights(allocs []model.SectorAllocation) []float64 {
	w := make([]float64, len(allocs))
	if len(allocs) == 0 {
		return w
	}
	complete := true
	for _, a := range allocs {
		if a.Percentage == nil {
			complete = false
			break
		}
	}
	for i, a := range allocs {
		if complete {
			w[i] = *a.Percentage / 100
		} else {
			w[i] = 1 / float64(len(allocs))
		}
	}
	return w
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
