// Package strings normalizes recipient lists before fan-out.
package strings

import (
	"strings"
)

// NormalizeAddresses trims and lowercases email addresses, drops entries that
// are not addresses, and removes duplicates. Order is preserved.
//
// Example:
//
//	NormalizeAddresses([]string{" Admin@Village.gov ", "admin@village.gov", "", "nobody"})
//	// Returns: []string{"admin@village.gov"}
func NormalizeAddresses(values []string) []string {
	return dedupe(values, func(v string) string {
		v = strings.ToLower(strings.TrimSpace(v))
		at := strings.IndexByte(v, '@')
		if at <= 0 || at == len(v)-1 || strings.ContainsAny(v, " \t<>") {
			return ""
		}
		return v
	})
}

// NormalizePhone strips formatting from a phone number, keeping a leading '+'.
// It returns "" when fewer than 7 digits remain.
//
// Example:
//
//	NormalizePhone("+1 (555) 010-2030")
//	// Returns: "+15550102030"
func NormalizePhone(value string) string {
	value = strings.TrimSpace(value)
	var b strings.Builder
	digits := 0
	for i, r := range value {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			digits++
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return ""
		}
	}
	if digits < 7 {
		return ""
	}
	return b.String()
}

// NormalizePhones applies NormalizePhone and removes duplicates.
func NormalizePhones(values []string) []string {
	return dedupe(values, NormalizePhone)
}

func dedupe(values []string, normalize func(string) string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		n := normalize(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			result = append(result, n)
		}
	}

	return result
}
