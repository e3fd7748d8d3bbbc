package calculators

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RatioBand is one of the five fixed debt-ratio classification bands.
type RatioBand string

const (
	BandGreen    RatioBand = "green"    // <= 30
	BandYellow   RatioBand = "yellow"   // 31-35
	BandOrange   RatioBand = "orange"   // 36-40
	BandRed      RatioBand = "red"      // 41-50
	BandCritical RatioBand = "critical" // > 50
)

// DebtRatioResult carries current and projected debt-to-income ratios
// as percentages at one decimal, classified on the projected value.
type DebtRatioResult struct {
	NetMonthly          decimal.Decimal
	TotalObligations    decimal.Decimal
	ProposedInstallment decimal.Decimal
	CurrentRatio        decimal.Decimal
	ProjectedRatio      decimal.Decimal
	Band                RatioBand
	ObligationCount     int
}

// DebtRatio computes (obligations + proposed) / income as a percentage.
// A zero or negative income fails with ErrUndefinedIncome: a missing
// denominator is never reported as 0% or a sentinel value.
func DebtRatio(netMonthly decimal.Decimal, obligations []decimal.Decimal, proposed decimal.Decimal) (DebtRatioResult, error) {
	if netMonthly.Sign() <= 0 {
		return DebtRatioResult{}, fmt.Errorf("%w: net monthly %s", ErrUndefinedIncome, netMonthly)
	}
	if proposed.Sign() < 0 {
		return DebtRatioResult{}, fmt.Errorf("debt ratio: negative proposed installment %s", proposed)
	}

	total := decimal.Zero
	for _, ob := range obligations {
		if ob.Sign() < 0 {
			return DebtRatioResult{}, fmt.Errorf("debt ratio: negative obligation %s", ob)
		}
		total = total.Add(ob)
	}

	current := total.Mul(hundred).Div(netMonthly).Round(1)
	projected := total.Add(proposed).Mul(hundred).Div(netMonthly).Round(1)

	return DebtRatioResult{
		NetMonthly:          netMonthly.Round(2),
		TotalObligations:    total.Round(2),
		ProposedInstallment: proposed.Round(2),
		CurrentRatio:        current,
		ProjectedRatio:      projected,
		Band:                ClassifyRatio(projected),
		ObligationCount:     len(obligations),
	}, nil
}

// ClassifyRatio maps a percentage to its band.
func ClassifyRatio(pct decimal.Decimal) RatioBand {
	switch {
	case pct.LessThanOrEqual(decimal.NewFromInt(30)):
		return BandGreen
	case pct.LessThanOrEqual(decimal.NewFromInt(35)):
		return BandYellow
	case pct.LessThanOrEqual(decimal.NewFromInt(40)):
		return BandOrange
	case pct.LessThanOrEqual(decimal.NewFromInt(50)):
		return BandRed
	default:
		return BandCritical
	}
}
