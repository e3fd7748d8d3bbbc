package calculators

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCapacityEmployed(t *testing.T) {
	got, err := Capacity(dec("1750"), decimal.Zero, decimal.Zero, false)
	if err != nil {
		t.Fatalf("capacity failed: %v", err)
	}
	if !got.MaxPrimary.Equal(dec("350")) {
		t.Errorf("MaxPrimary = %s, want 350.00", got.MaxPrimary)
	}
	if !got.MaxSecondary.Equal(dec("350")) {
		t.Errorf("MaxSecondary = %s, want 350.00", got.MaxSecondary)
	}
	if !got.TotalMax.Equal(dec("700")) {
		t.Errorf("TotalMax = %s, want 700.00", got.TotalMax)
	}
}

func TestCapacityFloorsAtCents(t *testing.T) {
	// 1234.56 / 5 = 246.912 -> floors to 246.91, never rounds up.
	got, err := Capacity(dec("1234.56"), decimal.Zero, decimal.Zero, false)
	if err != nil {
		t.Fatalf("capacity failed: %v", err)
	}
	if !got.MaxPrimary.Equal(dec("246.91")) {
		t.Errorf("MaxPrimary = %s, want 246.91", got.MaxPrimary)
	}
	if got.MaxPrimary.Mul(decimal.NewFromInt(5)).GreaterThan(dec("1234.56")) {
		t.Errorf("capacity exceeds one fifth of income")
	}
}

func TestCapacityExistingInstruments(t *testing.T) {
	got, err := Capacity(dec("1750"), dec("200"), dec("150"), false)
	if err != nil {
		t.Fatalf("capacity failed: %v", err)
	}
	if !got.AvailablePrimary.Equal(dec("150")) {
		t.Errorf("AvailablePrimary = %s, want 150.00", got.AvailablePrimary)
	}
	if !got.AvailableSecondary.Equal(dec("200")) {
		t.Errorf("AvailableSecondary = %s, want 200.00", got.AvailableSecondary)
	}
	if !got.TotalUsed.Equal(dec("350")) {
		t.Errorf("TotalUsed = %s, want 350.00", got.TotalUsed)
	}
	if !got.TotalAvailable.Equal(dec("350")) {
		t.Errorf("TotalAvailable = %s, want 350.00", got.TotalAvailable)
	}
}

func TestCapacitySaturated(t *testing.T) {
	got, err := Capacity(dec("1750"), dec("400"), dec("400"), false)
	if err != nil {
		t.Fatalf("capacity failed: %v", err)
	}
	if !got.AvailablePrimary.IsZero() || !got.AvailableSecondary.IsZero() || !got.TotalAvailable.IsZero() {
		t.Errorf("saturated profile should have zero availability, got %+v", got)
	}
}

func TestCapacityRetired(t *testing.T) {
	got, err := Capacity(dec("1200"), decimal.Zero, decimal.Zero, true)
	if err != nil {
		t.Fatalf("capacity failed: %v", err)
	}
	if !got.MaxPrimary.Equal(dec("240")) {
		t.Errorf("MaxPrimary = %s, want 240.00", got.MaxPrimary)
	}
	if !got.MaxSecondary.IsZero() {
		t.Errorf("retired profiles have no secondary instrument, got %s", got.MaxSecondary)
	}
	if !got.TotalMax.Equal(dec("240")) {
		t.Errorf("TotalMax = %s, want 240.00 (one fifth only)", got.TotalMax)
	}
}

func TestCapacityNegativeIncome(t *testing.T) {
	if _, err := Capacity(dec("-1"), decimal.Zero, decimal.Zero, false); err == nil {
		t.Error("negative income should fail")
	}
}

func TestRenewalRule(t *testing.T) {
	cases := []struct {
		name          string
		paid, total   int
		first         bool
		origin, tgt   int
		wantEligible  bool
	}{
		{"exactly 40 percent", 48, 120, false, 0, 0, true},
		{"just below 40 percent", 47, 120, false, 0, 0, false},
		{"first 60 to 120 exception", 0, 60, true, 60, 120, true},
		{"not first no exception", 0, 60, false, 60, 120, false},
		{"first but wrong target", 0, 60, true, 60, 84, false},
		{"fully paid", 120, 120, false, 0, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := RenewalEligible(tc.paid, tc.total, tc.first, tc.origin, tc.tgt)
			if err != nil {
				t.Fatalf("renewal failed: %v", err)
			}
			if got.Eligible != tc.wantEligible {
				t.Errorf("eligible = %v, want %v (%s)", got.Eligible, tc.wantEligible, got.Reason)
			}
		})
	}
}

func TestRenewalInvalidCounts(t *testing.T) {
	for _, c := range []struct{ paid, total int }{{0, 0}, {-1, 60}, {61, 60}} {
		if _, err := RenewalEligible(c.paid, c.total, false, 0, 0); !errors.Is(err, ErrInvalidInstallments) {
			t.Errorf("RenewalEligible(%d, %d) error = %v, want ErrInvalidInstallments", c.paid, c.total, err)
		}
	}
}

func TestMaxDurationForAge(t *testing.T) {
	cases := []struct {
		age  int
		want int
	}{
		{50, 120}, // far from the cap, clamped to 120
		{80, 60},
		{85, 0},
		{90, 0},
	}
	for _, tc := range cases {
		if got := MaxDurationForAge(tc.age); got != tc.want {
			t.Errorf("MaxDurationForAge(%d) = %d, want %d", tc.age, got, tc.want)
		}
	}
}

func TestAgeAtMaturity(t *testing.T) {
	if got := AgeAtMaturity(76, 120); got != 86 {
		t.Errorf("AgeAtMaturity(76, 120) = %d, want 86", got)
	}
}
