// Package rules loads and evaluates the externally supplied product
// rule catalog. Rules are tagged-variant predicate documents keyed by
// product id, versioned, reloadable without redeploy, and evaluated
// tri-state: a predicate over a missing profile attribute is unknown,
// not false.
package rules

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrBadDocument rejects structurally invalid catalogs.
var ErrBadDocument = errors.New("rules: invalid catalog document")

// Tri is the three-valued result of a predicate.
type Tri int

const (
	False Tri = iota
	True
	Unknown
)

// Document is one parsed catalog version.
type Document struct {
	Version  string    `yaml:"version"`
	Products []Product `yaml:"products"`
}

// Product is one evaluable catalog entry. Priority breaks ranking
// ties; lower numbers rank first.
type Product struct {
	ID               string     `yaml:"id"`
	Name             string     `yaml:"name"`
	Priority         int        `yaml:"priority"`
	TermMonths       int        `yaml:"term_months,omitempty"`
	MaxAgeAtMaturity int        `yaml:"max_age_at_maturity,omitempty"`
	Rules            *Predicate `yaml:"rules"`
	Notes            string     `yaml:"notes,omitempty"`
}

// Predicate is the tagged variant: exactly one of All/Any/Not or a
// leaf comparison (Field + Op) must be set.
type Predicate struct {
	All []Predicate `yaml:"all,omitempty"`
	Any []Predicate `yaml:"any,omitempty"`
	Not *Predicate  `yaml:"not,omitempty"`

	Field  string   `yaml:"field,omitempty"`
	Op     string   `yaml:"op,omitempty"`
	Value  string   `yaml:"value,omitempty"`
	Values []string `yaml:"values,omitempty"`
}

// Attr is one profile attribute presented to the rules. Numeric
// comparisons use Num when IsNum is set, string comparisons otherwise.
type Attr struct {
	Str   string
	Num   decimal.Decimal
	IsNum bool
}

// NumAttr builds a numeric attribute.
func NumAttr(d decimal.Decimal) Attr { return Attr{Num: d, IsNum: true} }

// StrAttr builds a string attribute.
func StrAttr(s string) Attr { return Attr{Str: s} }

// BoolAttr builds a boolean attribute, encoded as "true"/"false".
func BoolAttr(b bool) Attr {
	if b {
		return StrAttr("true")
	}
	return StrAttr("false")
}

// Validate checks the document shape once at load time so evaluation
// never meets a malformed predicate.
func (d *Document) Validate() error {
	if len(d.Products) == 0 {
		return fmt.Errorf("%w: no products", ErrBadDocument)
	}
	seen := make(map[string]bool, len(d.Products))
	for i := range d.Products {
		p := &d.Products[i]
		if p.ID == "" {
			return fmt.Errorf("%w: product %d has no id", ErrBadDocument, i)
		}
		if seen[p.ID] {
			return fmt.Errorf("%w: duplicate product id %q", ErrBadDocument, p.ID)
		}
		seen[p.ID] = true
		if p.Rules == nil {
			return fmt.Errorf("%w: product %q has no rules", ErrBadDocument, p.ID)
		}
		if err := p.Rules.validate(); err != nil {
			return fmt.Errorf("product %q: %w", p.ID, err)
		}
	}
	return nil
}

func (p *Predicate) validate() error {
	variants := 0
	if len(p.All) > 0 {
		variants++
		for i := range p.All {
			if err := p.All[i].validate(); err != nil {
				return err
			}
		}
	}
	if len(p.Any) > 0 {
		variants++
		for i := range p.Any {
			if err := p.Any[i].validate(); err != nil {
				return err
			}
		}
	}
	if p.Not != nil {
		variants++
		if err := p.Not.validate(); err != nil {
			return err
		}
	}
	if p.Field != "" {
		variants++
		switch p.Op {
		case "eq", "ne", "gt", "gte", "lt", "lte", "exists", "in":
		default:
			return fmt.Errorf("%w: field %q has unknown op %q", ErrBadDocument, p.Field, p.Op)
		}
		if p.Op == "in" && len(p.Values) == 0 {
			return fmt.Errorf("%w: field %q op in requires values", ErrBadDocument, p.Field)
		}
	}
	if variants != 1 {
		return fmt.Errorf("%w: predicate must have exactly one variant, has %d", ErrBadDocument, variants)
	}
	return nil
}

// Eval evaluates the predicate over the attribute set.
func (p *Predicate) Eval(attrs map[string]Attr) Tri {
	switch {
	case len(p.All) > 0:
		result := True
		for i := range p.All {
			switch p.All[i].Eval(attrs) {
			case False:
				return False
			case Unknown:
				result = Unknown
			}
		}
		return result
	case len(p.Any) > 0:
		result := False
		for i := range p.Any {
			switch p.Any[i].Eval(attrs) {
			case True:
				return True
			case Unknown:
				result = Unknown
			}
		}
		return result
	case p.Not != nil:
		switch p.Not.Eval(attrs) {
		case True:
			return False
		case False:
			return True
		default:
			return Unknown
		}
	default:
		return p.evalLeaf(attrs)
	}
}

// MissingFields collects attribute names the predicate needs but the
// profile does not carry. Drives the indeterminate outcome.
func (p *Predicate) MissingFields(attrs map[string]Attr) []string {
	seen := make(map[string]bool)
	p.collectMissing(attrs, seen)
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	return out
}

func (p *Predicate) collectMissing(attrs map[string]Attr, seen map[string]bool) {
	for i := range p.All {
		p.All[i].collectMissing(attrs, seen)
	}
	for i := range p.Any {
		p.Any[i].collectMissing(attrs, seen)
	}
	if p.Not != nil {
		p.Not.collectMissing(attrs, seen)
	}
	if p.Field != "" && p.Op != "exists" {
		if _, ok := attrs[p.Field]; !ok {
			seen[p.Field] = true
		}
	}
}

func (p *Predicate) evalLeaf(attrs map[string]Attr) Tri {
	attr, ok := attrs[p.Field]
	if p.Op == "exists" {
		if ok {
			return True
		}
		return False
	}
	if !ok {
		return Unknown
	}

	switch p.Op {
	case "eq":
		return triBool(compare(attr, p.Value) == 0)
	case "ne":
		return triBool(compare(attr, p.Value) != 0)
	case "gt":
		return triBool(compare(attr, p.Value) > 0)
	case "gte":
		return triBool(compare(attr, p.Value) >= 0)
	case "lt":
		return triBool(compare(attr, p.Value) < 0)
	case "lte":
		return triBool(compare(attr, p.Value) <= 0)
	case "in":
		for _, v := range p.Values {
			if compare(attr, v) == 0 {
				return True
			}
		}
		return False
	}
	return Unknown
}

func triBool(b bool) Tri {
	if b {
		return True
	}
	return False
}

func compare(attr Attr, value string) int {
	if attr.IsNum {
		if v, err := decimal.NewFromString(value); err == nil {
			return attr.Num.Cmp(v)
		}
	}
	switch {
	case attr.Str == value:
		return 0
	case attr.Str < value:
		return -1
	default:
		return 1
	}
}
