package apply

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchExact(t *testing.T) {
	m := matchExact(" Employed full-time ")
	assert.True(t, m("Employed full-time"))
	assert.False(t, m("employed full-time"))
	assert.False(t, m("Employed"))
	assert.False(t, m(""))
}

func TestMatchPartial(t *testing.T) {
	m := matchPartial("Full-time")
	assert.True(t, m("Employed full-time"))
	assert.True(t, m("FULL-TIME"))
	assert.True(t, m("full"), "containment works in both directions")
	assert.False(t, m("Part-time"))
	assert.False(t, m(""))
}

func TestNoneOption(t *testing.T) {
	t.Run("finds the designated label", func(t *testing.T) {
		opt, ok := noneOption([]string{"Advertising", "Construction", "None of the above"})
		require.True(t, ok)
		assert.Equal(t, "None of the above", opt)
	})

	t.Run("bare none counts", func(t *testing.T) {
		_, ok := noneOption([]string{"A", "None"})
		assert.True(t, ok)
	})

	t.Run("absent", func(t *testing.T) {
		_, ok := noneOption([]string{"A", "B"})
		assert.False(t, ok)
	})
}

func TestGuardText(t *testing.T) {
	tests := []struct {
		name     string
		question string
		value    string
		want     string
		ok       bool
	}{
		{"numeric field, bare number", "What is your age?", "45", "45", true},
		{"numeric field, prose truncated to first number", "What is your age?", "I am 45 years old", "45", true},
		{"numeric field, prose with no number rejected", "What is your age?", "forty five years old", "", false},
		{"postcode prose truncated", "What is your postcode?", "My postcode is 2217", "2217", true},
		{"non-numeric field passes prose through", "What is your favorite meal?", "Roast lamb with vegetables", "Roast lamb with vegetables", true},
		{"numeric field, bare word allowed", "How many people live with you?", "three", "three", true},
		{"empty rejected", "What is your age?", "   ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := guardText(tt.question, tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFirstNumericToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"I am 45 years old", "45", true},
		{"2217", "2217", true},
		{"born in 1980, in March", "1980", true},
		{"no digits here", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := firstNumericToken(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestStarIndex(t *testing.T) {
	tests := []struct {
		name  string
		value string
		count int
		want  int
		ok    bool
	}{
		{"in range", "4", 5, 4, true},
		{"clamped to count", "9", 5, 5, true},
		{"prose value", "4 stars", 5, 4, true},
		{"zero rejected", "0", 5, 0, false},
		{"non-numeric rejected", "four", 5, 0, false},
		{"unknown count passes through", "7", 0, 7, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := starIndex(tt.value, tt.count)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSliderFraction(t *testing.T) {
	t.Run("inside the span", func(t *testing.T) {
		frac, ok := sliderFraction("75", 0, 100)
		require.True(t, ok)
		assert.InDelta(t, 0.75, frac, 1e-9)
	})

	t.Run("clamped below", func(t *testing.T) {
		frac, ok := sliderFraction("5", 10, 20)
		require.True(t, ok)
		assert.Zero(t, frac)
	})

	t.Run("clamped above", func(t *testing.T) {
		frac, ok := sliderFraction("250", 0, 100)
		require.True(t, ok)
		assert.Equal(t, 1.0, frac)
	})

	t.Run("degenerate span rejected", func(t *testing.T) {
		_, ok := sliderFraction("5", 10, 10)
		assert.False(t, ok)
	})

	t.Run("non-numeric rejected", func(t *testing.T) {
		_, ok := sliderFraction("high", 0, 100)
		assert.False(t, ok)
	})
}
