package matching

import (
	"math"
	"time"
)

// Weights are the fixed integer deltas of every scoring rule. The defaults were tuned by
// hand; they are a configuration surface rather than derived values.
// Penalties are stored as positive magnitudes.
type Weights struct {
	Baseline int `json:"baseline" mapstructure:"baseline"`

	AgeMatch       int `json:"age_match" mapstructure:"age-match"`
	AgeMismatch    int `json:"age_mismatch" mapstructure:"age-mismatch"`
	PuppyLowEnergy int `json:"puppy_low_energy" mapstructure:"puppy-low-energy"`

	SizeMatch    int `json:"size_match" mapstructure:"size-match"`
	SizeMismatch int `json:"size_mismatch" mapstructure:"size-mismatch"`

	EnergyMatch    int `json:"energy_match" mapstructure:"energy-match"`
	EnergyMismatch int `json:"energy_mismatch" mapstructure:"energy-mismatch"`

	TemperamentMatch    int `json:"temperament_match" mapstructure:"temperament-match"`
	TemperamentMismatch int `json:"temperament_mismatch" mapstructure:"temperament-mismatch"`
	HypoMatch           int `json:"hypo_match" mapstructure:"hypo-match"`
	HypoFloor           int `json:"hypo_floor" mapstructure:"hypo-floor"`
	NotHypo             int `json:"not_hypo" mapstructure:"not-hypo"`
	HeavyShedding       int `json:"heavy_shedding" mapstructure:"heavy-shedding"`
	ShedCeiling         int `json:"shed_ceiling" mapstructure:"shed-ceiling"`
	Vocal               int `json:"vocal" mapstructure:"vocal"`

	BreedInclude int `json:"breed_include" mapstructure:"breed-include"`
	Guidance     int `json:"guidance" mapstructure:"guidance"`

	Recency       int           `json:"recency" mapstructure:"recency"`
	RecencyWindow time.Duration `json:"recency_window" mapstructure:"recency-window"`

	InferredMinConfidence float64 `json:"inferred_min_confidence" mapstructure:"inferred-min-confidence"`
	InferredPerTraitCap   int     `json:"inferred_per_trait_cap" mapstructure:"inferred-per-trait-cap"`
	InferredTotalCap      int     `json:"inferred_total_cap" mapstructure:"inferred-total-cap"`
}

const (
	defaultBaseline = 100
	// minNonExcludedScore keeps a score of exactly 0 reserved for excluded breeds.
	minNonExcludedScore = 1
)

func DefaultWeights() Weights {
	return Weights{
		Baseline: defaultBaseline,

		AgeMatch:       5,
		AgeMismatch:    15,
		PuppyLowEnergy: 10,

		SizeMatch:    5,
		SizeMismatch: 15,

		EnergyMatch:    5,
		EnergyMismatch: 15,

		TemperamentMatch:    5,
		TemperamentMismatch: 10,
		HypoMatch:           20,
		HypoFloor:           75,
		NotHypo:             25,
		HeavyShedding:       25,
		ShedCeiling:         50,
		Vocal:               15,

		BreedInclude: 10,
		Guidance:     5,

		Recency:       3,
		RecencyWindow: 24 * time.Hour,

		InferredMinConfidence: 0.7,
		InferredPerTraitCap:   5,
		InferredTotalCap:      10,
	}
}

// Sanitize clamps a possibly hand-edited set of weights into a usable one. It never fails:
// a non-positive baseline falls back to the default and negative magnitudes become zero.
func (w Weights) Sanitize() Weights {
	if w.Baseline <= 0 {
		w.Baseline = defaultBaseline
	}

	for _, v := range []*int{
		&w.AgeMatch, &w.AgeMismatch, &w.PuppyLowEnergy,
		&w.SizeMatch, &w.SizeMismatch,
		&w.EnergyMatch, &w.EnergyMismatch,
		&w.TemperamentMatch, &w.TemperamentMismatch,
		&w.HypoMatch, &w.HypoFloor, &w.NotHypo, &w.HeavyShedding, &w.ShedCeiling, &w.Vocal,
		&w.BreedInclude, &w.Guidance, &w.Recency,
		&w.InferredPerTraitCap, &w.InferredTotalCap,
	} {
		if *v < 0 {
			*v = 0
		}
	}

	if w.RecencyWindow < 0 {
		w.RecencyWindow = 0
	}

	if math.IsNaN(w.InferredMinConfidence) || w.InferredMinConfidence < 0 {
		w.InferredMinConfidence = 0
	}
	if w.InferredMinConfidence > 1 {
		w.InferredMinConfidence = 1
	}

	if w.InferredTotalCap < w.InferredPerTraitCap {
		w.InferredPerTraitCap = w.InferredTotalCap
	}

	return w
}
