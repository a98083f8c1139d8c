// Package phone converts raw user-typed phone digits plus a country selection
// into a canonical E.164 string.
package phone

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/domain"
)

// E164 matches a full international number: + followed by 10-15 digits.
var E164 = regexp.MustCompile(`^\+\d{10,15}$`)

const (
	minNationalDigits = 4
	maxNationalDigits = 15
)

// Normalize converts raw phone input and a country selection into E.164.
//
// Non-digits are stripped, a repeated dial-code prefix is removed (prevents
// double-prefixing when users type the full international number), and
// leading zeros are dropped per the trunk-prefix convention. The result
// always matches E164 or an error is returned.
func Normalize(raw, countryID string) (string, error) {
	c, ok := countries[countryID]
	if !ok {
		return "", fmt.Errorf("country %q has no dial code: %w", countryID, domain.ErrInvalidCountry)
	}

	digits := stripNonDigits(raw)
	digits = strings.TrimPrefix(digits, c.DialCode)
	digits = strings.TrimLeft(digits, "0")

	if len(digits) < minNationalDigits || len(digits) > maxNationalDigits {
		return "", fmt.Errorf("national number must be %d-%d digits, got %d: %w",
			minNationalDigits, maxNationalDigits, len(digits), domain.ErrInvalidPhoneLength)
	}

	out := "+" + c.DialCode + digits
	if !E164.MatchString(out) {
		return "", fmt.Errorf("%q is not a valid E.164 number: %w", out, domain.ErrInvalidPhoneFormat)
	}
	return out, nil
}

// StripPrefix removes the country's +<dialCode> prefix from a full E.164
// number, returning the national digits. The input is returned unchanged
// when it does not carry that prefix.
func StripPrefix(full, countryID string) string {
	c, ok := countries[countryID]
	if !ok {
		return full
	}
	return strings.TrimPrefix(full, "+"+c.DialCode)
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
