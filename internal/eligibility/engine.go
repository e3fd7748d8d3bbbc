// Package eligibility evaluates a finalized profile against the rule
// catalog and produces ranked product matches plus advisory
// suggestions. Evaluation is deterministic: same profile, same catalog
// version, same output.
package eligibility

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"brokerbot/internal/calculators"
	"brokerbot/internal/domain"
	"brokerbot/internal/rules"
)

// Profile is the finalized input to an eligibility run.
type Profile struct {
	Employment       domain.EmploymentType
	EmployerCategory domain.EmployerCategory // empty when unknown
	PensionSource    domain.PensionSource    // empty when unknown
	NetMonthlyIncome decimal.Decimal
	HasIncome        bool
	Age              int
	HasAge           bool
	ExPublicEmployee bool
	HasCreditIssues  bool
	Liabilities      []domain.Liability
}

// Result is one eligibility run, pinned to a catalog version.
type Result struct {
	CatalogVersion string
	Matches        []domain.ProductMatch
	Advisories     []Advisory
}

// Engine evaluates profiles against the live catalog.
type Engine struct {
	catalog *rules.Catalog
}

// New returns an engine bound to a catalog.
func New(catalog *rules.Catalog) *Engine {
	return &Engine{catalog: catalog}
}

// Evaluate runs every catalog product against the profile. The catalog
// snapshot is pinned before the first product so a concurrent reload
// cannot mix versions inside one run.
func (e *Engine) Evaluate(profile Profile) (Result, error) {
	doc := e.catalog.Current()
	if doc == nil {
		return Result{}, fmt.Errorf("%w: no catalog loaded", rules.ErrSourceUnavailable)
	}

	attrs := profileAttrs(profile)

	matches := make([]domain.ProductMatch, 0, len(doc.Products))
	for i := range doc.Products {
		matches = append(matches, evalProduct(&doc.Products[i], profile, attrs))
	}
	rank(matches, doc)

	eligible := make(map[string]bool)
	for _, m := range matches {
		if m.Outcome == domain.MatchEligible {
			eligible[m.ProductID] = true
		}
	}

	return Result{
		CatalogVersion: doc.Version,
		Matches:        matches,
		Advisories:     advise(profile, eligible),
	}, nil
}

// profileAttrs flattens the profile into the attribute map the rule
// documents see. Unknown values are omitted, which is what makes a
// dependent rule come out indeterminate instead of false.
func profileAttrs(p Profile) map[string]rules.Attr {
	attrs := map[string]rules.Attr{
		"employment_type":    rules.StrAttr(string(p.Employment)),
		"liability_count":    rules.NumAttr(decimal.NewFromInt(int64(len(p.Liabilities)))),
		"ex_public_employee": rules.BoolAttr(p.ExPublicEmployee),
		"has_credit_issues":  rules.BoolAttr(p.HasCreditIssues),
	}
	if p.EmployerCategory != "" {
		attrs["employer_category"] = rules.StrAttr(string(p.EmployerCategory))
	}
	if p.PensionSource != "" {
		attrs["pension_source"] = rules.StrAttr(string(p.PensionSource))
	}
	if p.HasAge {
		attrs["age"] = rules.NumAttr(decimal.NewFromInt(int64(p.Age)))
	}

	hasMortgage := false
	for _, l := range p.Liabilities {
		if l.Type == domain.LiabilityMortgage {
			hasMortgage = true
		}
	}
	attrs["has_existing_mortgage"] = rules.BoolAttr(hasMortgage)

	if p.HasIncome && p.NetMonthlyIncome.Sign() > 0 {
		attrs["net_monthly_income"] = rules.NumAttr(p.NetMonthlyIncome)

		retired := p.Employment == domain.EmploymentRetired
		cap, err := calculators.Capacity(p.NetMonthlyIncome,
			existingByType(p.Liabilities, domain.LiabilityAssignment),
			existingByType(p.Liabilities, domain.LiabilityDelegation),
			retired)
		if err == nil {
			attrs["available_primary"] = rules.NumAttr(cap.AvailablePrimary)
			attrs["available_secondary"] = rules.NumAttr(cap.AvailableSecondary)
			attrs["total_available"] = rules.NumAttr(cap.TotalAvailable)
		}

		ratio, err := calculators.DebtRatio(p.NetMonthlyIncome, obligations(p.Liabilities), decimal.Zero)
		if err == nil {
			attrs["current_ratio"] = rules.NumAttr(ratio.CurrentRatio)
		}
	}
	return attrs
}

func evalProduct(product *rules.Product, profile Profile, attrs map[string]rules.Attr) domain.ProductMatch {
	match := domain.ProductMatch{ProductID: product.ID}

	switch product.Rules.Eval(attrs) {
	case rules.True:
		match.Outcome = domain.MatchEligible
	case rules.False:
		match.Outcome = domain.MatchIneligible
		match.Reason = "rule conditions not met"
	case rules.Unknown:
		match.Outcome = domain.MatchIndeterminate
		match.Missing = product.Rules.MissingFields(attrs)
		sort.Strings(match.Missing)
		match.Reason = "profile is missing required attributes"
	}

	// Age cap applies on top of the rule outcome: it can only push an
	// eligible match down, never rescue one.
	if product.MaxAgeAtMaturity > 0 && product.TermMonths > 0 && match.Outcome == domain.MatchEligible {
		if !profile.HasAge {
			match.Outcome = domain.MatchIndeterminate
			match.Missing = append(match.Missing, "age")
			match.Reason = "age unknown, maturity cap cannot be checked"
		} else {
			maturityAge := calculators.AgeAtMaturity(profile.Age, product.TermMonths)
			met := maturityAge <= product.MaxAgeAtMaturity
			match.Conds = append(match.Conds, domain.Condition{
				Name:  "age_at_maturity",
				Met:   met,
				Hard:  true,
				Value: fmt.Sprintf("%d (cap %d)", maturityAge, product.MaxAgeAtMaturity),
			})
			if !met {
				match.Outcome = domain.MatchIneligible
				match.Reason = fmt.Sprintf("age at maturity %d exceeds cap %d", maturityAge, product.MaxAgeAtMaturity)
			}
		}
	}

	if match.Outcome == domain.MatchEligible {
		match.Terms = estimateTerms(product, profile, attrs)
	}
	return match
}

func estimateTerms(product *rules.Product, profile Profile, attrs map[string]rules.Attr) *domain.EstimatedTerms {
	terms := &domain.EstimatedTerms{Notes: product.Notes}
	if a, ok := attrs["available_primary"]; ok && a.IsNum {
		terms.MaxInstallment = a.Num
	}
	switch {
	case product.TermMonths > 0 && profile.HasAge && product.MaxAgeAtMaturity > 0:
		max := (product.MaxAgeAtMaturity - profile.Age) * 12
		if max > product.TermMonths {
			max = product.TermMonths
		}
		if max < 0 {
			max = 0
		}
		terms.MaxDurationMonth = max
	case product.TermMonths > 0:
		terms.MaxDurationMonth = product.TermMonths
	}
	return terms
}

// rank orders matches: eligible first by declared priority,
// indeterminate next, ineligible last. Within the same outcome and
// priority the document order is kept, so a run is reproducible.
func rank(matches []domain.ProductMatch, doc *rules.Document) {
	priority := make(map[string]int, len(doc.Products))
	docOrder := make(map[string]int, len(doc.Products))
	for i := range doc.Products {
		priority[doc.Products[i].ID] = doc.Products[i].Priority
		docOrder[doc.Products[i].ID] = i
	}
	outcomeOrder := map[domain.MatchOutcome]int{
		domain.MatchEligible:      0,
		domain.MatchIndeterminate: 1,
		domain.MatchIneligible:    2,
	}
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if outcomeOrder[a.Outcome] != outcomeOrder[b.Outcome] {
			return outcomeOrder[a.Outcome] < outcomeOrder[b.Outcome]
		}
		if priority[a.ProductID] != priority[b.ProductID] {
			return priority[a.ProductID] < priority[b.ProductID]
		}
		return docOrder[a.ProductID] < docOrder[b.ProductID]
	})
	for i := range matches {
		matches[i].Rank = i + 1
	}
}

func obligations(liabilities []domain.Liability) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(liabilities))
	for _, l := range liabilities {
		out = append(out, l.MonthlyInstallment)
	}
	return out
}

func existingByType(liabilities []domain.Liability, t domain.LiabilityType) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range liabilities {
		if l.Type == t {
			sum = sum.Add(l.MonthlyInstallment)
		}
	}
	return sum
}
