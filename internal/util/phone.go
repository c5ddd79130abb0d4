package util

import (
	"regexp"
	"strings"
)

var nonPhone = regexp.MustCompile(`[^\d\+]+`)

// NormalizePhone tries to normalize user input into E.164-like format.
// Bare national numbers default to +91 (the deployment region).
func NormalizePhone(raw string) string {
	s := strings.TrimSpace(raw)
	s = nonPhone.ReplaceAllString(s, "")

	if strings.HasPrefix(s, "00") {
		s = "+" + s[2:]
	} else if strings.HasPrefix(s, "0") && len(s) == 11 {
		s = "+91" + s[1:]
	} else if len(s) == 10 && !strings.HasPrefix(s, "+") {
		s = "+91" + s
	} else if strings.HasPrefix(s, "91") && len(s) == 12 {
		s = "+" + s
	}

	return s
}

var e164 = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

// ValidPhone reports whether s looks like an E.164 number we can deliver to.
func ValidPhone(s string) bool {
	return e164.MatchString(s)
}

// MaskPhone redacts a phone number for reports and logs, keeping the first
// two and last four digits visible. Short or malformed inputs are fully
// redacted rather than leaked.
func MaskPhone(s string) string {
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits <= 6 {
		return strings.Repeat("*", len(s))
	}

	out := []rune(s)
	seen := 0
	for i, r := range out {
		if r < '0' || r > '9' {
			continue
		}
		seen++
		if seen > 2 && seen <= digits-4 {
			out[i] = '*'
		}
	}
	return string(out)
}
