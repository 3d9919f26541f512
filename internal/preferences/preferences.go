// Package preferences turns raw user preferences into the effective preferences used for scoring.
package preferences

import (
	"strings"

	"github.com/spigell/dogfinder/internal/dogs"
)

// Origin tells where a preference value came from. Consumers must never present a
// default-derived value as something the user asked for.
type Origin string

const (
	OriginUser     Origin = "user"
	OriginGuidance Origin = "guidance"
	OriginDefault  Origin = "default"
)

// Preference dimensions used as tag keys.
const (
	KeyAge         = "age"
	KeySize        = "size"
	KeyEnergy      = "energy"
	KeyTemperament = "temperament"
	KeyBreeds      = "breeds"
	KeyRecency     = "recency"
)

// UserPreferences is what a user submits. Every field is optional.
type UserPreferences struct {
	Age           []string `json:"age,omitempty" mapstructure:"age"`
	Size          []string `json:"size,omitempty" mapstructure:"size"`
	Energy        string   `json:"energy,omitempty" mapstructure:"energy"`
	Temperament   []string `json:"temperament,omitempty" mapstructure:"temperament"`
	IncludeBreeds []string `json:"includeBreeds,omitempty" mapstructure:"include-breeds"`
	ExcludeBreeds []string `json:"excludeBreeds,omitempty" mapstructure:"exclude-breeds"`
	Guidance      string   `json:"guidance,omitempty" mapstructure:"guidance"`
	ZipCodes      []string `json:"zipCodes,omitempty" mapstructure:"zip-codes"`
	RadiusMi      float64  `json:"radiusMi,omitempty" mapstructure:"radius"`
}

// Selection is one preferred value of a dimension.
type Selection struct {
	Value  string `json:"value"`
	Origin Origin `json:"origin"`
	Note   string `json:"note,omitempty"`
}

// Hint is a guidance-derived value for a dimension the user already set explicitly.
// Hints never widen the user's selection; they only earn a bonus when satisfied.
type Hint struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Note  string `json:"note"`
}

// EffectivePreferences is UserPreferences with defaults resolved and guidance merged in.
type EffectivePreferences struct {
	Age            []Selection `json:"age,omitempty"`
	Size           []Selection `json:"size,omitempty"`
	Energy         *Selection  `json:"energy,omitempty"`
	Temperament    []Selection `json:"temperament,omitempty"`
	IncludeBreeds  []string    `json:"includeBreeds,omitempty"`
	ExcludeBreeds  []string    `json:"excludeBreeds,omitempty"`
	Guidance       string      `json:"guidance,omitempty"`
	ZipCodes       []string    `json:"zipCodes,omitempty"`
	RadiusMi       float64     `json:"radiusMi,omitempty"`
	RecencyDefault bool        `json:"recencyDefault"`
	Hints          []Hint      `json:"hints,omitempty"`
}

// Normalize resolves defaults and runs the guidance expander. It never fails: malformed or
// missing fields mean "no preference in this dimension".
func Normalize(p UserPreferences) (EffectivePreferences, []string) {
	eff := EffectivePreferences{
		Age:           selections(p.Age),
		Size:          selections(p.Size),
		Temperament:   selections(p.Temperament),
		IncludeBreeds: cleanList(p.IncludeBreeds),
		ExcludeBreeds: cleanList(p.ExcludeBreeds),
		Guidance:      strings.TrimSpace(p.Guidance),
		ZipCodes:      cleanList(p.ZipCodes),
		RadiusMi:      p.RadiusMi,
	}

	if energy := strings.TrimSpace(p.Energy); energy != "" {
		eff.Energy = &Selection{Value: energy, Origin: OriginUser}
	}

	if eff.RadiusMi < 0 {
		eff.RadiusMi = 0
	}

	notes := expandGuidance(&eff, userSet{
		age:         len(eff.Age) > 0,
		size:        len(eff.Size) > 0,
		energy:      eff.Energy != nil,
		temperament: len(eff.Temperament) > 0,
	})

	// Guidance may add a puppy or senior age, which still counts as a chosen age.
	if len(eff.Age) == 0 {
		eff.RecencyDefault = true
	}

	if notes == nil {
		notes = []string{}
	}

	return eff, notes
}

// Values returns the values of a dimension that came from the given origin.
func (e *EffectivePreferences) Values(key string, origin Origin) []string {
	var out []string
	for _, s := range e.dimension(key) {
		if s.Origin == origin {
			out = append(out, s.Value)
		}
	}
	return out
}

// GuidanceSignals lists every guidance-derived value: merged selections first, then hints.
func (e *EffectivePreferences) GuidanceSignals() []Hint {
	var out []Hint
	for _, key := range []string{KeyAge, KeySize, KeyEnergy, KeyTemperament} {
		for _, s := range e.dimension(key) {
			if s.Origin == OriginGuidance {
				out = append(out, Hint{Key: key, Value: s.Value, Note: s.Note})
			}
		}
	}
	return append(out, e.Hints...)
}

func (e *EffectivePreferences) dimension(key string) []Selection {
	switch key {
	case KeyAge:
		return e.Age
	case KeySize:
		return e.Size
	case KeyTemperament:
		return e.Temperament
	case KeyEnergy:
		if e.Energy == nil {
			return nil
		}
		return []Selection{*e.Energy}
	default:
		return nil
	}
}

func selections(values []string) []Selection {
	cleaned := cleanList(values)
	if len(cleaned) == 0 {
		return nil
	}
	out := make([]Selection, 0, len(cleaned))
	for _, v := range cleaned {
		out = append(out, Selection{Value: v, Origin: OriginUser})
	}
	return out
}

// cleanList trims entries, drops blanks and removes case-insensitive duplicates keeping the first spelling.
func cleanList(values []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		key := dogs.Fold(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func containsFold(list []Selection, value string) bool {
	v := dogs.Fold(value)
	for _, s := range list {
		if dogs.Fold(s.Value) == v {
			return true
		}
	}
	return false
}
