// Package ai describes the contract of optional providers that infer dog traits from listing text.
package ai

import "context"

// Trait is a single inferred characteristic such as "good with kids" or "calm".
type Trait struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Evidence   string  `json:"evidence,omitempty"`
}

// InferredTraits groups the traits inferred for one dog.
type InferredTraits struct {
	DogID  string  `json:"dogId"`
	Traits []Trait `json:"traits"`
}

// TraitsProvider returns inferred traits keyed by dog id. Missing ids mean "nothing inferred".
// Implementations may fail; callers treat a failure as an empty map.
type TraitsProvider interface {
	InferredTraitsBatch(ctx context.Context, ids []string) (map[string]InferredTraits, error)
}
