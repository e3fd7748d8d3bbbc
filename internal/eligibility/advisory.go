package eligibility

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"brokerbot/internal/calculators"
	"brokerbot/internal/domain"
)

// Advisory is a cross-cutting annotation produced by a pass that runs
// independently of the ranked list and never alters it.
type Advisory struct {
	Kind            string   `json:"kind"`
	Detail          string   `json:"detail"`
	Priority        int      `json:"priority"`
	RelatedProducts []string `json:"related_products,omitempty"`
}

const (
	AdviseConsolidation   = "consolidation"
	AdviseRenewal         = "renewal"
	AdvisePublicSector    = "public_sector_terms"
	AdviseSeveranceUpsell = "severance_advance"
)

var ratio30 = decimal.NewFromInt(30)

// advise runs the advisory checks. eligible maps product id to
// whether its match came out eligible in the primary pass.
func advise(p Profile, eligible map[string]bool) []Advisory {
	var out []Advisory

	if a := adviseRenewal(p, eligible); a != nil {
		out = append(out, *a)
	}
	if a := adviseConsolidation(p, eligible); a != nil {
		out = append(out, *a)
	}
	if a := advisePublicSector(p, eligible); a != nil {
		out = append(out, *a)
	}
	if a := adviseSeverance(p, eligible); a != nil {
		out = append(out, *a)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// An existing assignment past the 40% paid mark can be renewed for
// fresh liquidity.
func adviseRenewal(p Profile, eligible map[string]bool) *Advisory {
	if !eligible["salary_assignment"] && !eligible["pension_assignment"] {
		return nil
	}
	for _, l := range p.Liabilities {
		if l.Type != domain.LiabilityAssignment || l.TotalMonths <= 0 {
			continue
		}
		renewal, err := calculators.RenewalEligible(l.PaidMonths(), l.TotalMonths, false, 0, 0)
		if err != nil || !renewal.Eligible {
			continue
		}
		return &Advisory{
			Kind:     AdviseRenewal,
			Priority: 1,
			Detail: fmt.Sprintf("existing assignment has %s%% of installments paid and can be renewed",
				renewal.PaidPercentage),
			RelatedProducts: eligibleOf(eligible, "salary_assignment", "pension_assignment"),
		}
	}
	return nil
}

// Elevated ratio with several open obligations points at
// consolidation.
func adviseConsolidation(p Profile, eligible map[string]bool) *Advisory {
	if len(p.Liabilities) < 2 || !p.HasIncome {
		return nil
	}
	ratio, err := calculators.DebtRatio(p.NetMonthlyIncome, obligations(p.Liabilities), decimal.Zero)
	if err != nil || ratio.CurrentRatio.LessThanOrEqual(ratio30) {
		return nil
	}
	return &Advisory{
		Kind:     AdviseConsolidation,
		Priority: 1,
		Detail: fmt.Sprintf("%d open obligations at a %s%% debt ratio; consolidation could lower the combined installment",
			len(p.Liabilities), ratio.CurrentRatio),
		RelatedProducts: eligibleOf(eligible, "consolidation_mortgage"),
	}
}

func advisePublicSector(p Profile, eligible map[string]bool) *Advisory {
	if p.Employment != domain.EmploymentEmployed {
		return nil
	}
	if p.EmployerCategory != domain.EmployerState && p.EmployerCategory != domain.EmployerPublic {
		return nil
	}
	if !eligible["salary_assignment"] {
		return nil
	}
	return &Advisory{
		Kind:            AdvisePublicSector,
		Priority:        2,
		Detail:          "public-sector employment qualifies for preferential assignment terms",
		RelatedProducts: []string{"salary_assignment"},
	}
}

func adviseSeverance(p Profile, eligible map[string]bool) *Advisory {
	if p.Employment != domain.EmploymentRetired || !p.ExPublicEmployee {
		return nil
	}
	if !eligible["severance_advance"] || !eligible["pension_assignment"] {
		return nil
	}
	return &Advisory{
		Kind:            AdviseSeveranceUpsell,
		Priority:        2,
		Detail:          "a severance advance can run alongside the pension assignment without touching its installment",
		RelatedProducts: []string{"severance_advance", "pension_assignment"},
	}
}

func eligibleOf(eligible map[string]bool, ids ...string) []string {
	var out []string
	for _, id := range ids {
		if eligible[id] {
			out = append(out, id)
		}
	}
	return out
}
