package utils

import (
	"regexp"
	"strings"
)

var orderIDPattern = regexp.MustCompile(`(?i)\bORD\d{8,}\b`)

// NormalizePhone strips everything but digits. Session and customer keys are
// always stored in this form.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhoneVariants returns the historical formats an order may have been stored
// under for the same customer: raw, digits-only, with and without a leading
// "+", and the last 10 digits. Used as a lookup fallback chain, not fixed at
// write time.
func PhoneVariants(phone string) []string {
	digits := NormalizePhone(phone)
	seen := make(map[string]bool)
	var variants []string
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			variants = append(variants, v)
		}
	}
	add(phone)
	add(digits)
	add("+" + digits)
	if len(digits) > 10 {
		add(digits[len(digits)-10:])
	}
	return variants
}

// ExtractOrderID pulls an order id out of free text, or returns "".
func ExtractOrderID(text string) string {
	return strings.ToUpper(orderIDPattern.FindString(text))
}

// LooksLikeProductID reports whether a structured reply id is shaped like a
// product catalog id rather than a known action: an opaque token longer than
// 10 characters with no underscores or spaces.
func LooksLikeProductID(id string) bool {
	if len(id) <= 10 {
		return false
	}
	return !strings.ContainsAny(id, "_ ")
}

// Truncate shortens s to at most max runes.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
