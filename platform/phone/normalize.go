// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "IN"

// matchKeyLength is the number of trailing digits compared when matching a
// number across systems. Provider payloads arrive with inconsistent country
// prefixes, so only the suffix is reliable.
const matchKeyLength = 10

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// MatchKey reduces a raw phone string to its canonical match key: all
// non-digit characters stripped, then the last 10 digits. Inputs with fewer
// than 10 digits are returned as-is after stripping, possibly empty.
// MatchKey never fails; garbage in means an empty key out.
func MatchKey(input string) string {
	var b strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	digits := b.String()
	if len(digits) <= matchKeyLength {
		return digits
	}
	return digits[len(digits)-matchKeyLength:]
}
