package calculators

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"brokerbot/internal/domain"
)

// ErrNegativeIncome rejects raw income below zero.
var ErrNegativeIncome = errors.New("income: raw value is negative")

// IncomeResult is the canonical monthly net figure for a profile.
type IncomeResult struct {
	MonthlyNet decimal.Decimal
	Basis      string
	Note       string
}

// Plausibility bounds per employment type, monthly. Out-of-bounds
// values are flagged in Note, not rejected: a human checks them.
var incomeBounds = map[domain.EmploymentType][2]string{
	domain.EmploymentEmployed:     {"400", "15000"},
	domain.EmploymentSelfEmployed: {"200", "50000"},
	domain.EmploymentRetired:      {"300", "10000"},
	domain.EmploymentUnemployed:   {"0", "2000"},
}

var twelve = decimal.NewFromInt(12)

// NormalizeIncome converts a raw income figure to one canonical monthly
// net amount. Salary, pension and unemployment benefit are already
// monthly; flat-rate self-employment revenue is annual and is scaled by
// the activity coefficient before division by 12. Rounding (2 decimals,
// half-up) happens once, on the final figure.
func NormalizeIncome(employment domain.EmploymentType, raw decimal.Decimal, atecoCode string) (IncomeResult, error) {
	if raw.IsNegative() {
		return IncomeResult{}, fmt.Errorf("%w: %s", ErrNegativeIncome, raw)
	}

	var (
		monthly decimal.Decimal
		basis   string
	)
	switch employment {
	case domain.EmploymentEmployed:
		monthly = raw
		basis = "monthly net salary"
	case domain.EmploymentRetired:
		monthly = raw
		basis = "monthly net pension"
	case domain.EmploymentUnemployed:
		monthly = raw
		basis = "monthly unemployment benefit"
	case domain.EmploymentSelfEmployed:
		if atecoCode != "" {
			coeff, err := LookupActivityCoefficient(atecoCode)
			if err != nil {
				return IncomeResult{}, err
			}
			monthly = raw.Mul(coeff.Coefficient).Div(twelve)
			basis = fmt.Sprintf("flat-rate revenue x %s (ATECO %s) / 12", coeff.Coefficient, atecoCode)
		} else {
			monthly = raw.Div(twelve)
			basis = "annual net income / 12"
		}
	default:
		return IncomeResult{}, fmt.Errorf("income: no normalization rule for employment %q", employment)
	}

	out := IncomeResult{MonthlyNet: monthly.Round(2), Basis: basis}

	if b, ok := incomeBounds[employment]; ok {
		lo := decimal.RequireFromString(b[0])
		hi := decimal.RequireFromString(b[1])
		if out.MonthlyNet.LessThan(lo) {
			out.Note = fmt.Sprintf("monthly net %s below expected minimum %s", out.MonthlyNet, lo)
		} else if out.MonthlyNet.GreaterThan(hi) {
			out.Note = fmt.Sprintf("monthly net %s above expected maximum %s", out.MonthlyNet, hi)
		}
	}
	return out, nil
}
