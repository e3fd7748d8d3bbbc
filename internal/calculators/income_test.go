package calculators

import (
	"errors"
	"testing"

	"brokerbot/internal/domain"
)

func TestNormalizeIncomeMonthlyPassThrough(t *testing.T) {
	cases := []struct {
		name       string
		employment domain.EmploymentType
		raw        string
		want       string
	}{
		{"salary", domain.EmploymentEmployed, "1750", "1750.00"},
		{"pension", domain.EmploymentRetired, "1200.5", "1200.50"},
		{"benefit", domain.EmploymentUnemployed, "890.126", "890.13"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeIncome(tc.employment, dec(tc.raw), "")
			if err != nil {
				t.Fatalf("normalize failed: %v", err)
			}
			if got.MonthlyNet.StringFixed(2) != tc.want {
				t.Errorf("MonthlyNet = %s, want %s", got.MonthlyNet.StringFixed(2), tc.want)
			}
		})
	}
}

func TestNormalizeIncomeFlatRate(t *testing.T) {
	// Division 62 carries coefficient 0.67: 36000 * 0.67 / 12 = 2010.
	got, err := NormalizeIncome(domain.EmploymentSelfEmployed, dec("36000"), "62.01.00")
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if got.MonthlyNet.StringFixed(2) != "2010.00" {
		t.Errorf("MonthlyNet = %s, want 2010.00", got.MonthlyNet.StringFixed(2))
	}
}

func TestNormalizeIncomeFlatRateRoundsOnlyAtEnd(t *testing.T) {
	// 10000 * 0.40 / 12 = 333.333... -> 333.33. A pre-rounded
	// intermediate would drift.
	got, err := NormalizeIncome(domain.EmploymentSelfEmployed, dec("10000"), "47")
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if got.MonthlyNet.StringFixed(2) != "333.33" {
		t.Errorf("MonthlyNet = %s, want 333.33", got.MonthlyNet.StringFixed(2))
	}
}

func TestNormalizeIncomeOrdinaryAnnual(t *testing.T) {
	got, err := NormalizeIncome(domain.EmploymentSelfEmployed, dec("24000"), "")
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if got.MonthlyNet.StringFixed(2) != "2000.00" {
		t.Errorf("MonthlyNet = %s, want 2000.00", got.MonthlyNet.StringFixed(2))
	}
}

func TestNormalizeIncomeNegative(t *testing.T) {
	if _, err := NormalizeIncome(domain.EmploymentEmployed, dec("-100"), ""); !errors.Is(err, ErrNegativeIncome) {
		t.Errorf("error = %v, want ErrNegativeIncome", err)
	}
}

func TestNormalizeIncomeBoundsNote(t *testing.T) {
	got, err := NormalizeIncome(domain.EmploymentEmployed, dec("150"), "")
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if got.Note == "" {
		t.Error("expected an out-of-bounds note for a 150.00 salary")
	}
}

func TestLookupActivityCoefficient(t *testing.T) {
	cases := []struct {
		code string
		want string
	}{
		{"62.01.00", "0.67"},
		{"47", "0.4"},
		{"43.21", "0.86"},
		{"70.22.09", "0.78"},
		{"99", "0.67"}, // default fallback
	}
	for _, tc := range cases {
		got, err := LookupActivityCoefficient(tc.code)
		if err != nil {
			t.Fatalf("lookup %s failed: %v", tc.code, err)
		}
		if got.Coefficient.String() != tc.want {
			t.Errorf("coefficient for %s = %s, want %s", tc.code, got.Coefficient, tc.want)
		}
	}
}
