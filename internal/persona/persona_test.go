package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: Alex Reed
age: 45
gender: Male
postcode: "2217"
country: Australia
industry: Construction
employment: Employed full-time
household_size: 3
extra:
  Favourite Colour: blue
`), 0644))

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 45, s.Age())
	assert.Equal(t, "Construction", s.Industry())

	tests := []struct {
		fact string
		want string
	}{
		{"name", "Alex Reed"},
		{"age", "45"},
		{"postcode", "2217"},
		{"household_size", "3"},
		{"favourite colour", "blue"},
	}
	for _, tt := range tests {
		got, ok := s.Fact(tt.fact)
		require.True(t, ok, "fact %q missing", tt.fact)
		assert.Equal(t, tt.want, got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestFact_Unknown(t *testing.T) {
	s := New(Profile{Name: "Alex"})
	_, ok := s.Fact("shoe size")
	assert.False(t, ok)
}

func TestNew_SkipsZeroHousehold(t *testing.T) {
	s := New(Profile{Name: "Alex"})
	_, ok := s.Fact("household_size")
	assert.False(t, ok)
}
