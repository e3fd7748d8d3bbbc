package rules

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

const minimalCatalog = `
version: "test-1"
products:
  - id: alpha
    priority: 1
    rules:
      all:
        - { field: employment_type, op: eq, value: employed }
        - { field: net_monthly_income, op: gte, value: "800" }
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCatalogLoad(t *testing.T) {
	c, err := NewCatalog(writeCatalog(t, minimalCatalog))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if c.Version() != "test-1" {
		t.Errorf("version = %s, want test-1", c.Version())
	}
	if len(c.Current().Products) != 1 {
		t.Errorf("products = %d, want 1", len(c.Current().Products))
	}
}

func TestCatalogVersionFallback(t *testing.T) {
	c, err := NewCatalog(writeCatalog(t, `
products:
  - id: alpha
    priority: 1
    rules:
      all:
        - { field: employment_type, op: exists }
`))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if c.Version() == "" {
		t.Error("missing version should fall back to a content hash")
	}
}

func TestCatalogReloadKeepsLastGood(t *testing.T) {
	path := writeCatalog(t, minimalCatalog)
	c, err := NewCatalog(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("{not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c.Reload(); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("reload error = %v, want ErrSourceUnavailable", err)
	}
	if c.Version() != "test-1" {
		t.Errorf("version after failed reload = %s, want last-known-good test-1", c.Version())
	}
}

func TestCatalogRejectsBadDocuments(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"no products", `version: "1"`},
		{"missing id", "products:\n  - priority: 1\n    rules:\n      all:\n        - { field: x, op: exists }"},
		{"duplicate id", "products:\n  - id: a\n    rules:\n      all:\n        - { field: x, op: exists }\n  - id: a\n    rules:\n      all:\n        - { field: x, op: exists }"},
		{"unknown op", "products:\n  - id: a\n    rules:\n      all:\n        - { field: x, op: matches, value: y }"},
		{"no rules", "products:\n  - id: a\n    priority: 1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewCatalog(writeCatalog(t, tc.doc)); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestPredicateTriState(t *testing.T) {
	p := Predicate{All: []Predicate{
		{Field: "employment_type", Op: "eq", Value: "employed"},
		{Field: "net_monthly_income", Op: "gte", Value: "800"},
	}}

	full := map[string]Attr{
		"employment_type":    StrAttr("employed"),
		"net_monthly_income": NumAttr(decimal.NewFromInt(1750)),
	}
	if got := p.Eval(full); got != True {
		t.Errorf("full profile = %v, want True", got)
	}

	// Missing income: unknown, not false.
	partial := map[string]Attr{"employment_type": StrAttr("employed")}
	if got := p.Eval(partial); got != Unknown {
		t.Errorf("partial profile = %v, want Unknown", got)
	}
	missing := p.MissingFields(partial)
	if len(missing) != 1 || missing[0] != "net_monthly_income" {
		t.Errorf("missing = %v, want [net_monthly_income]", missing)
	}

	// A failed hard condition wins over a missing one.
	failing := map[string]Attr{"employment_type": StrAttr("retired")}
	if got := p.Eval(failing); got != False {
		t.Errorf("failing profile = %v, want False", got)
	}
}

func TestPredicateAnyAndNot(t *testing.T) {
	anyPred := Predicate{Any: []Predicate{
		{Field: "employer_category", Op: "in", Values: []string{"state", "public"}},
		{Field: "ex_public_employee", Op: "eq", Value: "true"},
	}}
	attrs := map[string]Attr{"employer_category": StrAttr("public")}
	if got := anyPred.Eval(attrs); got != True {
		t.Errorf("any with one true branch = %v, want True", got)
	}

	attrs = map[string]Attr{"employer_category": StrAttr("private")}
	if got := anyPred.Eval(attrs); got != Unknown {
		t.Errorf("any with false + unknown = %v, want Unknown", got)
	}

	notPred := Predicate{Not: &Predicate{Field: "has_existing_mortgage", Op: "eq", Value: "true"}}
	if got := notPred.Eval(map[string]Attr{"has_existing_mortgage": BoolAttr(false)}); got != True {
		t.Errorf("not false = %v, want True", got)
	}
	if got := notPred.Eval(map[string]Attr{}); got != Unknown {
		t.Errorf("not unknown = %v, want Unknown", got)
	}
}

func TestPredicateNumericComparison(t *testing.T) {
	p := Predicate{Field: "current_ratio", Op: "lte", Value: "40"}
	if got := p.Eval(map[string]Attr{"current_ratio": NumAttr(decimal.RequireFromString("40.0"))}); got != True {
		t.Errorf("40.0 lte 40 = %v, want True (numeric, not lexical)", got)
	}
	if got := p.Eval(map[string]Attr{"current_ratio": NumAttr(decimal.RequireFromString("40.1"))}); got != False {
		t.Errorf("40.1 lte 40 = %v, want False", got)
	}
}
