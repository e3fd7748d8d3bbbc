package calculators

import (
	"errors"
	"testing"
	"time"
)

var decodeNow = time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)

func TestDecodeTaxCodeFemale(t *testing.T) {
	// Born 12 June 1985 in Milano (F205), female (day 12 stored as 52).
	got, err := DecodeTaxCode("RSSMRA85H52F205C", decodeNow)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Sex != "F" {
		t.Errorf("sex = %s, want F", got.Sex)
	}
	wantBirth := time.Date(1985, time.June, 12, 0, 0, 0, 0, time.UTC)
	if !got.BirthDate.Equal(wantBirth) {
		t.Errorf("birth date = %s, want %s", got.BirthDate, wantBirth)
	}
	if got.Age != 41 {
		t.Errorf("age = %d, want 41", got.Age)
	}
	if got.BirthplaceCode != "F205" {
		t.Errorf("birthplace = %s, want F205", got.BirthplaceCode)
	}
}

func TestDecodeTaxCodeMale(t *testing.T) {
	// Born 15 March 1990 in Roma (H501), male.
	got, err := DecodeTaxCode("BNCMRC90C15H501W", decodeNow)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Sex != "M" {
		t.Errorf("sex = %s, want M", got.Sex)
	}
	if got.BirthDate.Day() != 15 || got.BirthDate.Month() != time.March || got.BirthDate.Year() != 1990 {
		t.Errorf("birth date = %s, want 1990-03-15", got.BirthDate)
	}
}

func TestDecodeTaxCodeLowercaseAndSpaces(t *testing.T) {
	got, err := DecodeTaxCode("  rssmra85h52f205c ", decodeNow)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Code != "RSSMRA85H52F205C" {
		t.Errorf("code = %s, want normalized uppercase", got.Code)
	}
}

func TestDecodeTaxCodeOmocode(t *testing.T) {
	// Collision variants of RSSMRA85H52F205C: last digit substituted,
	// and all seven numeric positions substituted. Both must decode to
	// the same personal data as the base code.
	base, err := DecodeTaxCode("RSSMRA85H52F205C", decodeNow)
	if err != nil {
		t.Fatalf("base decode failed: %v", err)
	}

	for _, code := range []string{"RSSMRA85H52F20RX", "RSSMRAURHRNFNLRH"} {
		got, err := DecodeTaxCode(code, decodeNow)
		if err != nil {
			t.Fatalf("decode %s failed: %v", code, err)
		}
		if !got.BirthDate.Equal(base.BirthDate) || got.Sex != base.Sex || got.BirthplaceCode != base.BirthplaceCode {
			t.Errorf("omocode %s decoded to %+v, want data of %+v", code, got, base)
		}
	}
}

func TestDecodeTaxCodeIdempotent(t *testing.T) {
	first, err := DecodeTaxCode("BNCMRC90C15H501W", decodeNow)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	second, err := DecodeTaxCode(first.Code, decodeNow)
	if err != nil {
		t.Fatalf("second decode failed: %v", err)
	}
	if first != second {
		t.Errorf("decode not idempotent: %+v vs %+v", first, second)
	}
}

func TestDecodeTaxCodeErrors(t *testing.T) {
	cases := []struct {
		name string
		code string
		want error
	}{
		{"too short", "RSSMRA85H52F20", ErrInvalidFormat},
		{"too long", "RSSMRA85H52F205CX", ErrInvalidFormat},
		{"bad characters", "RSSMRA85H52F205!", ErrInvalidFormat},
		{"empty", "", ErrInvalidFormat},
		{"bad month letter", "RSSMRA85Z52F205C", ErrInvalidFormat},
		{"bad checksum", "RSSMRA85H52F205A", ErrInvalidChecksum},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeTaxCode(tc.code, decodeNow)
			if !errors.Is(err, tc.want) {
				t.Errorf("DecodeTaxCode(%q) error = %v, want %v", tc.code, err, tc.want)
			}
		})
	}
}

func TestCenturyInference(t *testing.T) {
	// Year digits above the current year tail belong to the 1900s.
	got, err := DecodeTaxCode("RSSMRA85H52F205C", decodeNow)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.BirthDate.Year() != 1985 {
		t.Errorf("year = %d, want 1985", got.BirthDate.Year())
	}
}
