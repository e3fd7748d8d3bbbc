package calculators

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed ateco.yaml
var atecoRaw []byte

// ActivityCoefficient is the flat-rate profitability coefficient for
// one ATECO division range.
type ActivityCoefficient struct {
	Description string
	Coefficient decimal.Decimal
}

type atecoEntry struct {
	Description string `yaml:"description"`
	Coefficient string `yaml:"coefficient"`
}

type atecoDoc struct {
	Coefficients map[string]atecoEntry `yaml:"coefficients"`
	Default      atecoEntry            `yaml:"default"`
}

type atecoRange struct {
	lo, hi int
	entry  ActivityCoefficient
}

var (
	atecoOnce   sync.Once
	atecoRanges []atecoRange
	atecoDef    ActivityCoefficient
	atecoErr    error
)

func loadAteco() {
	var doc atecoDoc
	if atecoErr = yaml.Unmarshal(atecoRaw, &doc); atecoErr != nil {
		return
	}
	for key, e := range doc.Coefficients {
		lo, hi, err := parseRange(key)
		if err != nil {
			atecoErr = err
			return
		}
		coeff, err := decimal.NewFromString(e.Coefficient)
		if err != nil {
			atecoErr = fmt.Errorf("ateco %s: %w", key, err)
			return
		}
		atecoRanges = append(atecoRanges, atecoRange{
			lo: lo, hi: hi,
			entry: ActivityCoefficient{Description: e.Description, Coefficient: coeff},
		})
	}
	coeff, err := decimal.NewFromString(doc.Default.Coefficient)
	if err != nil {
		atecoErr = fmt.Errorf("ateco default: %w", err)
		return
	}
	atecoDef = ActivityCoefficient{Description: doc.Default.Description, Coefficient: coeff}
}

func parseRange(key string) (int, int, error) {
	if lo, hi, ok := strings.Cut(key, "-"); ok {
		l, err := strconv.Atoi(lo)
		if err != nil {
			return 0, 0, fmt.Errorf("ateco range %q: %w", key, err)
		}
		h, err := strconv.Atoi(hi)
		if err != nil {
			return 0, 0, fmt.Errorf("ateco range %q: %w", key, err)
		}
		return l, h, nil
	}
	n, err := strconv.Atoi(key)
	if err != nil {
		return 0, 0, fmt.Errorf("ateco range %q: %w", key, err)
	}
	return n, n, nil
}

// LookupActivityCoefficient resolves the coefficient for an ATECO code
// by its first two digits ("62.01.00" matches division 62). Unknown
// divisions fall back to the default coefficient.
func LookupActivityCoefficient(code string) (ActivityCoefficient, error) {
	atecoOnce.Do(loadAteco)
	if atecoErr != nil {
		return ActivityCoefficient{}, atecoErr
	}

	digits := strings.NewReplacer(".", "", " ", "").Replace(code)
	if len(digits) > 2 {
		digits = digits[:2]
	}
	division, err := strconv.Atoi(digits)
	if err != nil {
		return ActivityCoefficient{}, fmt.Errorf("ateco code %q: %w", code, err)
	}

	for _, r := range atecoRanges {
		if division >= r.lo && division <= r.hi {
			return r.entry, nil
		}
	}
	return atecoDef, nil
}
