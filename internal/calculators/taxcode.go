// Package calculators holds the pure financial functions of the core:
// tax-code decoding, income normalization, installment capacity and
// debt-ratio classification. Nothing in here touches storage, the
// network or the clock except where a caller passes time in.
package calculators

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	// ErrInvalidFormat means the tax code is not 16 characters in the
	// expected structural shape.
	ErrInvalidFormat = errors.New("tax code: invalid format")
	// ErrInvalidChecksum means the trailing check character does not
	// match the odd/even position tables.
	ErrInvalidChecksum = errors.New("tax code: invalid checksum")
)

// TaxCodeData is the personal data encoded in a 16-character tax code.
type TaxCodeData struct {
	Code           string
	BirthDate      time.Time
	Age            int
	Sex            string // "M" or "F"
	BirthplaceCode string
}

// Structural shape after uppercasing. The seven numeric positions may
// carry a collision-substitution letter instead of a digit.
var taxCodePattern = regexp.MustCompile(
	`^[A-Z]{6}[0-9LMNPQRSTUV]{2}[ABCDEHLMPRST][0-9LMNPQRSTUV]{2}[A-Z][0-9LMNPQRSTUV]{3}[A-Z]$`)

// Month letters per the registry standard. Non-sequential on purpose.
var monthLetters = map[byte]time.Month{
	'A': time.January, 'B': time.February, 'C': time.March,
	'D': time.April, 'E': time.May, 'H': time.June,
	'L': time.July, 'M': time.August, 'P': time.September,
	'R': time.October, 'S': time.November, 'T': time.December,
}

// Checksum value tables (Decreto MEF 12/03/1974). "Odd" positions are
// 1-indexed odd, i.e. even indexes of the string.
var oddValues = map[byte]int{
	'0': 1, '1': 0, '2': 5, '3': 7, '4': 9, '5': 13, '6': 15,
	'7': 17, '8': 19, '9': 21,
	'A': 1, 'B': 0, 'C': 5, 'D': 7, 'E': 9, 'F': 13, 'G': 15,
	'H': 17, 'I': 19, 'J': 21, 'K': 2, 'L': 4, 'M': 18, 'N': 20,
	'O': 11, 'P': 3, 'Q': 6, 'R': 8, 'S': 12, 'T': 14, 'U': 16,
	'V': 10, 'W': 22, 'X': 25, 'Y': 24, 'Z': 23,
}

func evenValue(c byte) int {
	if c >= '0' && c <= '9' {
		return int(c - '0')
	}
	return int(c - 'A')
}

// Collision-resolution substitution letters for the seven numeric
// positions, per the official registry standard: 0..9 become
// L M N P Q R S T U V.
var omocodeDigits = map[byte]byte{
	'L': '0', 'M': '1', 'N': '2', 'P': '3', 'Q': '4',
	'R': '5', 'S': '6', 'T': '7', 'U': '8', 'V': '9',
}

// Indexes of the positions that are numeric in an unsubstituted code.
var numericPositions = [7]int{6, 7, 9, 10, 12, 13, 14}

// ValidTaxCodeChecksum verifies the check character of a raw
// (possibly collision-substituted) code. The checksum is defined over
// the raw characters, before any substitution is undone.
func ValidTaxCodeChecksum(code string) bool {
	if len(code) != 16 {
		return false
	}
	total := 0
	for i := 0; i < 15; i++ {
		if i%2 == 0 {
			total += oddValues[code[i]]
		} else {
			total += evenValue(code[i])
		}
	}
	return code[15] == byte('A'+total%26)
}

// normalizeOmocode maps substitution letters in the numeric positions
// back to their digits so date and birthplace can be extracted.
func normalizeOmocode(code string) string {
	b := []byte(code)
	for _, i := range numericPositions {
		if d, ok := omocodeDigits[b[i]]; ok {
			b[i] = d
		}
	}
	return string(b)
}

// DecodeTaxCode validates and decodes a 16-character tax code. The
// reference time is passed in so age computation stays deterministic.
func DecodeTaxCode(code string, now time.Time) (TaxCodeData, error) {
	clean := strings.ToUpper(strings.TrimSpace(code))

	if !taxCodePattern.MatchString(clean) {
		return TaxCodeData{}, fmt.Errorf("%w: %q", ErrInvalidFormat, clean)
	}
	if !ValidTaxCodeChecksum(clean) {
		return TaxCodeData{}, fmt.Errorf("%w: %q", ErrInvalidChecksum, clean)
	}

	norm := normalizeOmocode(clean)

	yearPart := int(norm[6]-'0')*10 + int(norm[7]-'0')
	month, ok := monthLetters[norm[8]]
	if !ok {
		return TaxCodeData{}, fmt.Errorf("%w: month letter %q", ErrInvalidFormat, string(norm[8]))
	}

	dayRaw := int(norm[9]-'0')*10 + int(norm[10]-'0')
	sex := "M"
	day := dayRaw
	if dayRaw > 40 {
		sex = "F"
		day = dayRaw - 40
	}
	if day < 1 || day > 31 {
		return TaxCodeData{}, fmt.Errorf("%w: day %d", ErrInvalidFormat, day)
	}

	// Two-digit year: values above the current year's tail belong to
	// the previous century.
	year := 2000 + yearPart
	if yearPart > now.Year()%100 {
		year = 1900 + yearPart
	}

	birth := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if birth.Day() != day || birth.Month() != month {
		return TaxCodeData{}, fmt.Errorf("%w: date %04d-%02d-%02d does not exist",
			ErrInvalidFormat, year, int(month), day)
	}

	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() ||
		(now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}

	return TaxCodeData{
		Code:           clean,
		BirthDate:      birth,
		Age:            age,
		Sex:            sex,
		BirthplaceCode: norm[11:15],
	}, nil
}
