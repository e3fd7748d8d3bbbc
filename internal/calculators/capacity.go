package calculators

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrUndefinedIncome means a denominator is zero or unknown. The
	// calculators refuse to mask it as 0% or a sentinel.
	ErrUndefinedIncome = errors.New("calculator: income is zero or unknown")
	// ErrInvalidInstallments rejects impossible installment counts.
	ErrInvalidInstallments = errors.New("calculator: invalid installment counts")
)

var (
	five     = decimal.NewFromInt(5)
	two      = decimal.NewFromInt(2)
	hundred  = decimal.NewFromInt(100)
	renewMin = decimal.NewFromInt(40)
)

// CapacityResult reports installment capacity against the one-fifth
// and combined two-fifths caps.
type CapacityResult struct {
	NetMonthly         decimal.Decimal
	MaxPrimary         decimal.Decimal // single assignable installment
	ExistingPrimary    decimal.Decimal
	AvailablePrimary   decimal.Decimal
	MaxSecondary       decimal.Decimal // delegation quota, zero for retired
	ExistingSecondary  decimal.Decimal
	AvailableSecondary decimal.Decimal
	TotalMax           decimal.Decimal
	TotalUsed          decimal.Decimal
	TotalAvailable     decimal.Decimal
}

// Capacity computes assignment/delegation capacity. Each quota is
// floor(net/5) at cent precision; the combined cap is two fifths for
// active-employment profiles and one fifth only for retired ones (no
// secondary instrument). The combined cap is a ceiling: how a caller
// splits headroom between instruments is not decided here.
func Capacity(netMonthly, existingPrimary, existingSecondary decimal.Decimal, retired bool) (CapacityResult, error) {
	if netMonthly.Sign() < 0 {
		return CapacityResult{}, fmt.Errorf("capacity: negative income %s", netMonthly)
	}
	if existingPrimary.Sign() < 0 || existingSecondary.Sign() < 0 {
		return CapacityResult{}, fmt.Errorf("capacity: negative existing installment")
	}

	maxPrimary := netMonthly.Div(five).RoundDown(2)

	var maxSecondary, totalMax decimal.Decimal
	if retired {
		maxSecondary = decimal.Zero
		totalMax = maxPrimary
	} else {
		maxSecondary = maxPrimary
		totalMax = netMonthly.Mul(two).Div(five).RoundDown(2)
	}

	totalUsed := existingPrimary.Add(existingSecondary)

	return CapacityResult{
		NetMonthly:         netMonthly.Round(2),
		MaxPrimary:         maxPrimary,
		ExistingPrimary:    existingPrimary.Round(2),
		AvailablePrimary:   clampZero(maxPrimary.Sub(existingPrimary)),
		MaxSecondary:       maxSecondary,
		ExistingSecondary:  existingSecondary.Round(2),
		AvailableSecondary: clampZero(maxSecondary.Sub(existingSecondary)),
		TotalMax:           totalMax,
		TotalUsed:          totalUsed.Round(2),
		TotalAvailable:     clampZero(totalMax.Sub(totalUsed)),
	}, nil
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.Sign() < 0 {
		return decimal.Zero.Round(2)
	}
	return d.Round(2)
}

// RenewalResult explains an assignment renewal decision.
type RenewalResult struct {
	Eligible       bool
	PaidPercentage decimal.Decimal
	Reason         string
}

// RenewalEligible applies the 40%-paid renewal rule. One documented
// exception: a first assignment written at 60 months may be
// renegotiated to 120 months regardless of the paid ratio.
func RenewalEligible(paid, total int, firstAssignment bool, originalMonths, targetMonths int) (RenewalResult, error) {
	if total <= 0 || paid < 0 || paid > total {
		return RenewalResult{}, fmt.Errorf("%w: paid=%d total=%d", ErrInvalidInstallments, paid, total)
	}

	pct := decimal.NewFromInt(int64(paid)).Mul(hundred).
		Div(decimal.NewFromInt(int64(total))).Round(2)

	if firstAssignment && originalMonths == 60 && targetMonths == 120 {
		return RenewalResult{
			Eligible:       true,
			PaidPercentage: pct,
			Reason:         "first assignment at 60 months renegotiable to 120 months without the 40% threshold",
		}, nil
	}

	if pct.GreaterThanOrEqual(renewMin) {
		return RenewalResult{
			Eligible:       true,
			PaidPercentage: pct,
			Reason:         fmt.Sprintf("%s%% of installments paid (threshold 40%%)", pct),
		}, nil
	}
	return RenewalResult{
		Eligible:       false,
		PaidPercentage: pct,
		Reason:         fmt.Sprintf("%s%% paid, below the 40%% threshold", pct),
	}, nil
}

// AgeAtMaturity is the borrower age when a loan of the given duration
// ends.
func AgeAtMaturity(currentAge, durationMonths int) int {
	return currentAge + durationMonths/12
}

// MaxDurationForAge returns the longest term, in months, that keeps a
// retired borrower at or under the statutory 85-year maturity cap.
// Clamped to the 120-month product maximum.
func MaxDurationForAge(currentAge int) int {
	months := (85 - currentAge) * 12
	if months < 0 {
		return 0
	}
	if months > 120 {
		return 120
	}
	return months
}
