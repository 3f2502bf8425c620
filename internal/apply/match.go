package apply

import (
	"strconv"
	"strings"
	"unicode"
)

// Pure matching and guard logic, kept free of rod so it is independently
// testable.

// matchExact matches trimmed, exact label text.
func matchExact(want string) func(string) bool {
	want = strings.TrimSpace(want)
	return func(got string) bool {
		return got != "" && got == want
	}
}

// matchPartial matches case-insensitive containment in either direction.
func matchPartial(want string) func(string) bool {
	lowered := strings.ToLower(strings.TrimSpace(want))
	return func(got string) bool {
		if got == "" || lowered == "" {
			return false
		}
		g := strings.ToLower(strings.TrimSpace(got))
		return strings.Contains(g, lowered) || strings.Contains(lowered, g)
	}
}

// noneOption finds the designated "none of the above" label among options.
func noneOption(options []string) (string, bool) {
	for _, opt := range options {
		lowered := strings.ToLower(opt)
		if strings.Contains(lowered, "none of the above") ||
			strings.Contains(lowered, "none of these") ||
			lowered == "none" {
			return opt, true
		}
	}
	return "", false
}

// numericSemantic reports whether a free-text question expects a bare
// numeric token.
func numericSemantic(question string) bool {
	lowered := strings.ToLower(question)
	for _, kw := range []string{"age", "postcode", "postal code", "zip", "year", "how many", "number of"} {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// guardText enforces the free-text format guard: numeric-semantic fields get
// prose truncated to their first numeric token, or rejected when none exists.
func guardText(question, value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	if !numericSemantic(question) {
		return value, true
	}
	if isBareToken(value) {
		return value, true
	}
	if token, ok := firstNumericToken(value); ok {
		return token, true
	}
	return "", false
}

// isBareToken reports whether the value is already a single word or number.
func isBareToken(s string) bool {
	return !strings.ContainsFunc(s, unicode.IsSpace)
}

// firstNumericToken extracts the first run of digits from prose.
func firstNumericToken(s string) (string, bool) {
	start := -1
	for i, r := range s {
		if unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			return s[start:i], true
		}
	}
	if start >= 0 {
		return s[start:], true
	}
	return "", false
}

// starIndex parses the one-indexed star position from a resolved value,
// clamped to the control count.
func starIndex(value string, count int) (int, bool) {
	token, ok := firstNumericToken(value)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(token)
	if err != nil || n < 1 {
		return 0, false
	}
	if count > 0 && n > count {
		n = count
	}
	return n, true
}

// sliderFraction converts a resolved numeric value into a fraction of the
// slider's span.
func sliderFraction(value string, lo, hi float64) (float64, bool) {
	token, ok := firstNumericToken(value)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	if hi <= lo {
		return 0, false
	}
	frac := (n - lo) / (hi - lo)
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return frac, true
}
