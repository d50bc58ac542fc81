package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// defaultCountryCode is prefixed onto bare 10-digit national numbers.
const defaultCountryCode = "+1"

var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// NormalizePhone cleans common formatting out of a phone number and returns
// it in E.164 form. It is a convenience, not a strict validator: spaces,
// dashes, dots and parentheses are stripped, a bare 10-digit number gets the
// default country code, and anything else just gets a leading +. Input that
// still doesn't look like E.164 after that is rejected.
func NormalizePhone(raw string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	plus := strings.HasPrefix(cleaned, "+")
	digits := strings.TrimPrefix(cleaned, "+")
	if digits == "" || strings.ContainsFunc(digits, func(r rune) bool { return r < '0' || r > '9' }) {
		return "", fmt.Errorf("invalid phone number: %q", raw)
	}

	var candidate string
	switch {
	case plus:
		candidate = "+" + digits
	case len(digits) == 10:
		candidate = defaultCountryCode + digits
	default:
		candidate = "+" + digits
	}

	if !e164Pattern.MatchString(candidate) {
		return "", fmt.Errorf("invalid phone number: %q", raw)
	}
	return candidate, nil
}
