package preferences

import (
	"fmt"
	"regexp"

	"github.com/spigell/dogfinder/internal/dogs"
)

// guidanceRule promotes a phrase found in free-text guidance into a preference value.
// Rules are evaluated in order and compose; for the single-valued energy dimension the
// first matching rule wins.
type guidanceRule struct {
	pattern *regexp.Regexp
	key     string
	value   string
	label   string
}

// guidanceRules are matched against folded (lower-cased, whitespace-collapsed) guidance.
var guidanceRules = []guidanceRule{
	{regexp.MustCompile(`\bmedium[- ]?sized?\b|\bmedium (dog|pup|puppy)\b|\bmid-?sized?\b`), KeySize, "medium", "medium"},
	{regexp.MustCompile(`\b(small|little|tiny)[- ]?(sized? )?(dogs?|pups?|puppy|breeds?)\b|\bsmall[- ]sized?\b|\blap dog\b`), KeySize, "small", "small"},
	{regexp.MustCompile(`\b(large|big)[- ]?(sized? )?(dogs?|pups?|puppy|breeds?)\b|\blarge[- ]sized?\b`), KeySize, "large", "large"},

	{regexp.MustCompile(`\bcouch potato\b|\blaid[- ]back\b|\blow[- ]key\b|\bnot (very )?active\b|\bcalm (home|household)\b`), KeyEnergy, "low", "low"},
	{regexp.MustCompile(`\bactive\b|\bhikers?\b|\bhiking\b|\benergetic lifestyle\b|\brunners?\b|\brunning\b|\bjog(ger|ging)?\b`), KeyEnergy, "high", "high"},

	{regexp.MustCompile(`\bquiet\b|\bapartment\b|\bcondo\b`), KeyTemperament, "quiet", "quiet"},
	{regexp.MustCompile(`\ballerg(y|ies|ic)\b|\bhypo-?allergenic\b|\bnon-?shedding\b`), KeyTemperament, "hypoallergenic", "hypoallergenic"},
	{regexp.MustCompile(`\bkids?\b|\bchildren\b|\btoddlers?\b`), KeyTemperament, "good with kids", "good with kids"},
	{regexp.MustCompile(`\bother dogs?\b|\bsecond dog\b|\banother dog\b`), KeyTemperament, "good with dogs", "good with dogs"},
	{regexp.MustCompile(`\bcats?\b|\bkittens?\b`), KeyTemperament, "good with cats", "good with cats"},

	{regexp.MustCompile(`\bpupp(y|ies)\b`), KeyAge, "baby", "puppy"},
	{regexp.MustCompile(`\bsenior (dog|pup)s?\b|\bolder dogs?\b`), KeyAge, "senior", "senior"},
}

type userSet struct {
	age         bool
	size        bool
	energy      bool
	temperament bool
}

func (u userSet) has(key string) bool {
	switch key {
	case KeyAge:
		return u.age
	case KeySize:
		return u.size
	case KeyEnergy:
		return u.energy
	case KeyTemperament:
		return u.temperament
	default:
		return true
	}
}

// expandGuidance applies guidanceRules to eff.Guidance. Explicit user selections are never
// overwritten: for those dimensions a hint is recorded instead. Exclusions are never touched.
func expandGuidance(eff *EffectivePreferences, explicit userSet) []string {
	text := dogs.Fold(eff.Guidance)
	if text == "" {
		return nil
	}

	var notes []string
	for _, rule := range guidanceRules {
		if !rule.pattern.MatchString(text) {
			continue
		}

		if explicit.has(rule.key) {
			if hasHint(eff.Hints, rule.key, rule.value) || rule.key == KeyEnergy && hasHint(eff.Hints, KeyEnergy, "") {
				continue
			}
			note := fmt.Sprintf("Your guidance suggests %s %s; kept your %s selection and boosted dogs that also fit", rule.key, rule.label, rule.key)
			eff.Hints = append(eff.Hints, Hint{Key: rule.key, Value: rule.value, Note: note})
			notes = append(notes, note)
			continue
		}

		switch rule.key {
		case KeyEnergy:
			if eff.Energy != nil {
				continue
			}
			note := fmt.Sprintf("Set energy to %s based on your guidance", rule.label)
			eff.Energy = &Selection{Value: rule.value, Origin: OriginGuidance, Note: note}
			notes = append(notes, note)
		default:
			current := eff.dimension(rule.key)
			if containsFold(current, rule.value) {
				continue
			}
			note := fmt.Sprintf("Expanded %s to include %s based on your guidance", rule.key, rule.label)
			eff.setDimension(rule.key, append(current, Selection{Value: rule.value, Origin: OriginGuidance, Note: note}))
			notes = append(notes, note)
		}
	}

	return notes
}

func (e *EffectivePreferences) setDimension(key string, values []Selection) {
	switch key {
	case KeyAge:
		e.Age = values
	case KeySize:
		e.Size = values
	case KeyTemperament:
		e.Temperament = values
	}
}

// hasHint reports whether a hint exists for key; an empty value matches any hint of that key.
func hasHint(hints []Hint, key, value string) bool {
	for _, h := range hints {
		if h.Key == key && (value == "" || h.Value == value) {
			return true
		}
	}
	return false
}
