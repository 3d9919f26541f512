// Package traits derives preference-independent features of a dog from its breeds, age and tags.
package traits

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/spigell/dogfinder/internal/dogs"
)

const (
	EnergyHigh = "high"
	EnergyLow  = "low"

	// fuzzyBreedThreshold is the minimal Jaro-Winkler similarity for a misspelled breed to count.
	fuzzyBreedThreshold = 0.93
	fuzzyBreedMinLength = 5
)

// Features are intrinsic traits of a dog. They never depend on user preferences.
type Features struct {
	HypoClaim      bool `json:"hypoClaim"`
	ShedHigh       bool `json:"shedHigh"`
	IsPuppy        bool `json:"isPuppy"`
	Barky          bool `json:"barky"`
	HighEnergy     bool `json:"highEnergy"`
	LowEnergy      bool `json:"lowEnergy"`
	LowMaintenance bool `json:"lowMaintenance"`
}

func Derive(d *dogs.Dog) Features {
	if d == nil {
		return Features{}
	}

	return Features{
		HypoClaim:      anyBreedIn(d.Breeds, hypoallergenicBreeds),
		ShedHigh:       anyBreedIn(d.Breeds, heavySheddingBreeds),
		IsPuppy:        dogs.Fold(d.Age) == "baby",
		Barky:          anyBreedIn(d.Breeds, vocalBreeds) || d.HasTag(vocalTags...),
		HighEnergy:     anyBreedIn(d.Breeds, highEnergyBreeds) || d.HasTag(energeticTags...),
		LowEnergy:      anyBreedIn(d.Breeds, lowEnergyBreeds) || d.HasTag(calmTags...),
		LowMaintenance: anyBreedIn(d.Breeds, lowMaintenanceBreeds),
	}
}

// EnergyLevel infers "high" or "low" for a dog, or "" when the signals are absent or contradict.
// Tags written by the shelter win over breed tendencies.
func EnergyLevel(d *dogs.Dog) string {
	if d == nil {
		return ""
	}

	energetic, calm := d.HasTag(energeticTags...), d.HasTag(calmTags...)
	switch {
	case energetic && !calm:
		return EnergyHigh
	case calm && !energetic:
		return EnergyLow
	case energetic && calm:
		return ""
	}

	high, low := anyBreedIn(d.Breeds, highEnergyBreeds), anyBreedIn(d.Breeds, lowEnergyBreeds)
	switch {
	case high && !low:
		return EnergyHigh
	case low && !high:
		return EnergyLow
	default:
		return ""
	}
}

// Families expands a breed name into the parent breeds implied by crossbreed markers.
// The breed itself is always the first element.
func Families(breed string) []string {
	folded := dogs.Fold(breed)
	if folded == "" {
		return nil
	}

	out := []string{folded}
	seen := map[string]struct{}{folded: {}}
	for marker, parents := range breedFamilies {
		if !containsWord(folded, marker) {
			continue
		}
		for _, p := range parents {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// MatchBreed reports whether a dog breed satisfies a wanted breed, allowing substrings in
// either direction, crossbreed families and small misspellings.
func MatchBreed(dogBreed, wanted string) bool {
	w := dogs.Fold(wanted)
	if w == "" {
		return false
	}

	for _, candidate := range Families(dogBreed) {
		if strings.Contains(candidate, w) || strings.Contains(w, candidate) {
			return true
		}
		if len(candidate) >= fuzzyBreedMinLength && len(w) >= fuzzyBreedMinLength &&
			matchr.JaroWinkler(candidate, w, false) >= fuzzyBreedThreshold {
			return true
		}
	}
	return false
}

// ContainsBreed reports whether the breed name contains the term, case-insensitively.
func ContainsBreed(breed, term string) bool {
	b, t := dogs.Fold(breed), dogs.Fold(term)
	if b == "" || t == "" {
		return false
	}
	return strings.Contains(b, t)
}

// ExcludesBreed reports whether an excluded term names the breed. The term must start at a word
// boundary, so "pit" hits "Pit Bull Terrier" and "Pitbull" but not "German Spitz".
func ExcludesBreed(breed, term string) bool {
	b, t := dogs.Fold(breed), dogs.Fold(term)
	if b == "" || t == "" {
		return false
	}
	return containsWord(b, t)
}

func anyBreedIn(breeds []string, table []string) bool {
	for _, b := range breeds {
		for _, entry := range table {
			if ContainsBreed(b, entry) {
				return true
			}
		}
	}
	return false
}

// containsWord matches marker at a word start so that "lab" does not hit "collaborator".
func containsWord(s, marker string) bool {
	for idx := strings.Index(s, marker); idx != -1; {
		if idx == 0 || !isLetter(s[idx-1]) {
			return true
		}
		next := strings.Index(s[idx+1:], marker)
		if next == -1 {
			return false
		}
		idx += next + 1
	}
	return false
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
