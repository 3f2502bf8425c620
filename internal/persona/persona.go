// Package persona provides a read-only accessor over the fixed synthetic
// respondent identity. Pattern response-logic consumes these facts; nothing in
// the engine writes them.
package persona

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is the fixed demographic/preference fact set the engine answers as.
type Profile struct {
	Name       string `yaml:"name"`
	Age        int    `yaml:"age"`
	Gender     string `yaml:"gender"`
	Postcode   string `yaml:"postcode"`
	Country    string `yaml:"country"`
	Industry   string `yaml:"industry"`
	Occupation string `yaml:"occupation"`
	Education  string `yaml:"education"`
	Employment string `yaml:"employment"`
	Income     string `yaml:"income"`
	Household  int    `yaml:"household_size"`

	// Extra holds free-form facts keyed by lowercase name, for pattern rules
	// that reference facts outside the fixed set above.
	Extra map[string]string `yaml:"extra,omitempty"`
}

// Store exposes the profile through name-based lookup.
type Store struct {
	profile Profile
	facts   map[string]string
}

// Load reads a YAML profile from disk.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona file: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse persona file: %w", err)
	}
	return New(p), nil
}

// New builds a store around an in-memory profile.
func New(p Profile) *Store {
	facts := map[string]string{
		"name":       p.Name,
		"age":        strconv.Itoa(p.Age),
		"gender":     p.Gender,
		"postcode":   p.Postcode,
		"country":    p.Country,
		"industry":   p.Industry,
		"occupation": p.Occupation,
		"education":  p.Education,
		"employment": p.Employment,
		"income":     p.Income,
	}
	if p.Household > 0 {
		facts["household_size"] = strconv.Itoa(p.Household)
	}
	for k, v := range p.Extra {
		facts[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return &Store{profile: p, facts: facts}
}

// Profile returns a copy of the underlying profile.
func (s *Store) Profile() Profile { return s.profile }

// Age returns the persona's fixed age.
func (s *Store) Age() int { return s.profile.Age }

// Industry returns the persona's industry, possibly empty.
func (s *Store) Industry() string { return s.profile.Industry }

// Fact looks up a fact by lowercase name.
func (s *Store) Fact(name string) (string, bool) {
	v, ok := s.facts[strings.ToLower(strings.TrimSpace(name))]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
