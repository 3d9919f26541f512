package matching

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/spigell/dogfinder/internal/ai"
	"github.com/spigell/dogfinder/internal/dogs"
	"github.com/spigell/dogfinder/internal/preferences"
	"github.com/spigell/dogfinder/internal/traits"
)

const (
	excludedBreedMismatch = "Excluded breed"
	puppyEnergyMismatch   = "Puppy energy vs low-maintenance"
	notHypoMismatch       = "Not hypoallergenic"
	heavySheddingMismatch = "Heavy shedding vs allergy concern"
	vocalMismatch         = "Tends to be vocal"
	recentlyListedLabel   = "Recently listed"

	temperamentHypo  = "hypoallergenic"
	temperamentQuiet = "quiet"
	temperamentCalm  = "calm"
)

var knownAges = map[string]struct{}{"baby": {}, "young": {}, "adult": {}, "senior": {}}

var knownSizes = map[string]struct{}{"small": {}, "medium": {}, "large": {}, "xl": {}}

// sizeAliases folds spellings used by shelters into the listing API vocabulary.
var sizeAliases = map[string]string{
	"extra large": "xl",
	"extra-large": "xl",
	"x-large":     "xl",
	"xlarge":      "xl",
	"puppy":       "baby",
}

// temperamentTagRules lists the shelter tags that confirm or contradict a temperament value.
var temperamentTagRules = map[string]struct {
	confirm    []string
	contradict []string
}{
	"good with kids": {
		confirm:    []string{"good with kids", "good with children", "kid friendly", "kid-friendly"},
		contradict: []string{"no kids", "not good with kids", "no children", "not good with children", "adults only"},
	},
	"good with dogs": {
		confirm:    []string{"good with dogs", "good with other dogs", "dog friendly", "dog-friendly"},
		contradict: []string{"no dogs", "not good with dogs", "only dog", "only pet"},
	},
	"good with cats": {
		confirm:    []string{"good with cats", "cat friendly", "cat-friendly"},
		contradict: []string{"no cats", "not good with cats", "only pet"},
	},
	temperamentQuiet: {
		confirm: []string{"quiet"},
	},
}

// inferredTraitAliases maps an inferred trait name onto the energy value it speaks for.
var inferredTraitAliases = map[string]string{
	"energetic":   traits.EnergyHigh,
	"high energy": traits.EnergyHigh,
	"active":      traits.EnergyHigh,
	"athletic":    traits.EnergyHigh,
	"calm":        traits.EnergyLow,
	"low energy":  traits.EnergyLow,
	"mellow":      traits.EnergyLow,
	"laid back":   traits.EnergyLow,
}

// temperamentVerdict is the outcome of checking one temperament value against a dog.
type temperamentVerdict struct {
	value      string
	satisfied  bool
	violated   bool
	match      string
	mismatches []string
	bonus      int
	penalty    int
	hypo       bool
	shedHigh   bool
}

// scoreState carries facts gathered by the rules that the final clamps depend on.
type scoreState struct {
	hypoMatched  bool
	shedConflict bool
}

// Score produces the Analysis of one dog. It is pure: the same inputs always yield the same output.
func (e *Engine) Score(d *dogs.Dog, eff *preferences.EffectivePreferences, inferred *ai.InferredTraits) Analysis {
	if d == nil {
		d = &dogs.Dog{}
	}
	if eff == nil {
		eff = &preferences.EffectivePreferences{}
	}

	w := e.weights
	b := newBuilder(d.ID, w.Baseline)

	if breed, excluded := excludedBreed(d, eff.ExcludeBreeds); excluded {
		b.score = 0
		b.a.Mismatches = []string{excludedBreedMismatch}
		b.a.UnmetPrefs = []PrefTag{{Key: preferences.KeyBreeds, Label: breed, Origin: preferences.OriginUser}}
		return b.build()
	}

	features := traits.Derive(d)
	state := &scoreState{}

	e.scoreAge(b, d, eff, features)
	e.scoreSize(b, d, eff)
	e.scoreEnergy(b, d, eff)
	e.scoreTemperament(b, d, eff, features, state)
	e.scoreBreeds(b, d, eff)
	e.scoreGuidance(b, d, eff, features)
	e.scoreRecency(b, d, eff)
	e.scoreInferred(b, eff, inferred)

	if b.score < minNonExcludedScore {
		b.score = minNonExcludedScore
	}
	if state.hypoMatched && len(b.a.Mismatches) == 0 && b.score < w.HypoFloor {
		b.score = w.HypoFloor
	}
	if state.shedConflict && b.score > w.ShedCeiling {
		b.score = max(w.ShedCeiling, minNonExcludedScore)
	}

	return b.build()
}

func excludedBreed(d *dogs.Dog, excludes []string) (string, bool) {
	for _, breed := range d.Breeds {
		for _, term := range excludes {
			if traits.ExcludesBreed(breed, term) {
				return strings.TrimSpace(breed), true
			}
		}
	}
	return "", false
}

func (e *Engine) scoreAge(b *builder, d *dogs.Dog, eff *preferences.EffectivePreferences, f traits.Features) {
	wanted := eff.Values(preferences.KeyAge, preferences.OriginUser)
	age := strings.TrimSpace(d.Age)

	if len(wanted) > 0 && isKnown(knownAges, normalizeValue(age)) {
		if containsValue(wanted, age) {
			b.match(fmt.Sprintf("%s matches preferred age", age),
				PrefTag{Key: preferences.KeyAge, Label: age, Origin: preferences.OriginUser}, e.weights.AgeMatch)
		} else {
			prefs := strings.Join(wanted, ", ")
			b.mismatch([]string{fmt.Sprintf("Age %s not in %s", age, prefs)},
				PrefTag{Key: preferences.KeyAge, Label: "not " + prefs, Origin: preferences.OriginUser}, e.weights.AgeMismatch)
		}
	}

	if f.IsPuppy && userEnergy(eff) == traits.EnergyLow {
		b.mismatch([]string{puppyEnergyMismatch},
			PrefTag{Key: preferences.KeyEnergy, Label: eff.Energy.Value, Origin: preferences.OriginUser}, e.weights.PuppyLowEnergy)
	}
}

func (e *Engine) scoreSize(b *builder, d *dogs.Dog, eff *preferences.EffectivePreferences) {
	wanted := eff.Values(preferences.KeySize, preferences.OriginUser)
	size := normalizeValue(d.Size)
	if len(wanted) == 0 || !isKnown(knownSizes, size) {
		return
	}

	label := strings.TrimSpace(d.Size)
	if containsValue(wanted, d.Size) {
		text := fmt.Sprintf("%s size fits your needs", d.Size)
		if len(wanted) > 1 {
			text = fmt.Sprintf("%s is within your preferences", d.Size)
		}
		b.match(text, PrefTag{Key: preferences.KeySize, Label: label, Origin: preferences.OriginUser}, e.weights.SizeMatch)
		return
	}

	text := fmt.Sprintf("Size %s not in %s", label, wanted[0])
	if len(wanted) > 1 {
		text = fmt.Sprintf("Size %s not in selected range (%s)", label, strings.Join(wanted, ", "))
	}
	b.mismatch([]string{text}, PrefTag{
		Key:    preferences.KeySize,
		Label:  fmt.Sprintf("Dog is %s; you selected %s", label, joinOr(wanted)),
		Origin: preferences.OriginUser,
	}, e.weights.SizeMismatch)
}

func (e *Engine) scoreEnergy(b *builder, d *dogs.Dog, eff *preferences.EffectivePreferences) {
	want := userEnergy(eff)
	if want == "" {
		return
	}

	level := traits.EnergyLevel(d)
	tag := PrefTag{Key: preferences.KeyEnergy, Label: eff.Energy.Value, Origin: preferences.OriginUser}
	switch {
	case level == "":
		return
	case level == want:
		b.match(energyMatchText(level), tag, e.weights.EnergyMatch)
	case want == traits.EnergyLow && level == traits.EnergyHigh:
		b.mismatch([]string{"High energy vs low desired"}, tag, e.weights.EnergyMismatch)
	case want == traits.EnergyHigh && level == traits.EnergyLow:
		b.mismatch([]string{"Low energy vs high desired"}, tag, e.weights.EnergyMismatch)
	}
}

func energyMatchText(level string) string {
	switch level {
	case traits.EnergyHigh:
		return "Energy suitable for active lifestyle"
	case traits.EnergyLow:
		return "Energy suitable for a relaxed lifestyle"
	default:
		return "Energy suitable for your lifestyle"
	}
}

// scoreTemperament applies OR semantics: one satisfied value is a match and suppresses
// every violation; violations count only when nothing was satisfied.
func (e *Engine) scoreTemperament(b *builder, d *dogs.Dog, eff *preferences.EffectivePreferences, f traits.Features, state *scoreState) {
	wanted := eff.Values(preferences.KeyTemperament, preferences.OriginUser)
	if len(wanted) == 0 {
		return
	}

	var satisfied, violated []temperamentVerdict
	for _, value := range wanted {
		v := e.checkTemperament(d, f, value)
		switch {
		case v.satisfied:
			satisfied = append(satisfied, v)
		case v.violated:
			violated = append(violated, v)
		}
	}

	if len(satisfied) > 0 {
		for _, v := range satisfied {
			tag := PrefTag{Key: preferences.KeyTemperament, Label: v.value, Origin: preferences.OriginUser}
			if b.match(v.match, tag, v.bonus) && v.hypo {
				state.hypoMatched = true
			}
		}
		return
	}

	for _, v := range violated {
		b.mismatch(v.mismatches, PrefTag{Key: preferences.KeyTemperament, Label: v.value, Origin: preferences.OriginUser}, v.penalty)
		if v.hypo && v.shedHigh {
			state.shedConflict = true
		}
	}
}

func (e *Engine) checkTemperament(d *dogs.Dog, f traits.Features, value string) temperamentVerdict {
	w := e.weights
	key := dogs.Fold(value)
	v := temperamentVerdict{value: value, bonus: w.TemperamentMatch, penalty: w.TemperamentMismatch}

	switch key {
	case temperamentHypo, "hypo-allergenic", "non-shedding", "low shedding":
		v.hypo = true
		if f.HypoClaim {
			v.satisfied, v.match, v.bonus = true, "Hypoallergenic", w.HypoMatch
			return v
		}
		v.violated, v.mismatches, v.penalty = true, []string{notHypoMismatch}, w.NotHypo
		if f.ShedHigh {
			v.shedHigh = true
			v.mismatches = append(v.mismatches, heavySheddingMismatch)
			v.penalty += w.HeavyShedding
		}
		return v
	case temperamentQuiet:
		if f.Barky {
			v.violated, v.mismatches, v.penalty = true, []string{vocalMismatch}, w.Vocal
			return v
		}
	case temperamentCalm:
		switch traits.EnergyLevel(d) {
		case traits.EnergyLow:
			v.satisfied, v.match = true, "Calm temperament"
		case traits.EnergyHigh:
			v.violated, v.mismatches = true, []string{"Energetic rather than calm"}
		}
		return v
	case "low maintenance", "low-maintenance":
		if f.LowMaintenance {
			v.satisfied, v.match = true, "Low-maintenance breed"
		}
		return v
	}

	rule, ok := temperamentTagRules[key]
	if !ok {
		if d.HasTag(key) {
			v.satisfied, v.match = true, capitalize(key)
		}
		return v
	}
	if len(rule.contradict) > 0 && d.HasTag(rule.contradict...) {
		v.violated, v.mismatches = true, []string{"Not " + key}
		return v
	}
	if d.HasTag(rule.confirm...) {
		v.satisfied, v.match = true, capitalize(key)
	}
	return v
}

func (e *Engine) scoreBreeds(b *builder, d *dogs.Dog, eff *preferences.EffectivePreferences) {
	for _, breed := range d.Breeds {
		for _, wanted := range eff.IncludeBreeds {
			if !traits.MatchBreed(breed, wanted) {
				continue
			}
			label := strings.TrimSpace(breed)
			b.match(fmt.Sprintf("%s is one of your preferred breeds", label),
				PrefTag{Key: preferences.KeyBreeds, Label: label, Origin: preferences.OriginUser}, e.weights.BreedInclude)
			return
		}
	}
}

// scoreGuidance rewards guidance-derived values the dog satisfies. Guidance never penalizes.
func (e *Engine) scoreGuidance(b *builder, d *dogs.Dog, eff *preferences.EffectivePreferences, f traits.Features) {
	for _, signal := range eff.GuidanceSignals() {
		if b.a.Unmet(signal.Key) || !e.satisfies(d, f, signal) {
			continue
		}
		tag := PrefTag{Key: signal.Key, Label: signal.Value, Origin: preferences.OriginGuidance}
		if containsTag(b.a.MatchedPrefs, tag) {
			continue
		}
		if b.match(fmt.Sprintf("%s %s matches your guidance", capitalize(signal.Value), signal.Key), tag, e.weights.Guidance) {
			b.expansion(signal.Note)
		}
	}
}

func (e *Engine) satisfies(d *dogs.Dog, f traits.Features, signal preferences.Hint) bool {
	switch signal.Key {
	case preferences.KeyAge:
		return normalizeValue(d.Age) == normalizeValue(signal.Value)
	case preferences.KeySize:
		return normalizeValue(d.Size) == normalizeValue(signal.Value)
	case preferences.KeyEnergy:
		return traits.EnergyLevel(d) == dogs.Fold(signal.Value)
	case preferences.KeyTemperament:
		return e.checkTemperament(d, f, signal.Value).satisfied
	default:
		return false
	}
}

// scoreRecency gives a small default-origin bonus to fresh listings when no age was chosen.
func (e *Engine) scoreRecency(b *builder, d *dogs.Dog, eff *preferences.EffectivePreferences) {
	if !eff.RecencyDefault || d.PublishedAt.IsZero() || e.weights.RecencyWindow <= 0 {
		return
	}

	age := e.now().Sub(d.PublishedAt)
	if age < 0 || age > e.weights.RecencyWindow {
		return
	}

	b.match(recentlyListedLabel,
		PrefTag{Key: preferences.KeyRecency, Label: recentlyListedLabel, Origin: preferences.OriginDefault}, e.weights.Recency)
}

// scoreInferred adds the confidence-gated bonus of externally inferred traits. Only traits that
// speak to a requested temperament or energy count, and both caps always hold.
func (e *Engine) scoreInferred(b *builder, eff *preferences.EffectivePreferences, inferred *ai.InferredTraits) {
	if inferred == nil || len(inferred.Traits) == 0 {
		return
	}

	w := e.weights
	remaining := w.InferredTotalCap
	seen := make(map[string]struct{}, len(inferred.Traits))

	for _, t := range inferred.Traits {
		if remaining <= 0 {
			return
		}

		confidence := t.Confidence
		if math.IsNaN(confidence) || math.IsInf(confidence, 0) || confidence < w.InferredMinConfidence {
			continue
		}
		confidence = math.Min(confidence, 1)

		name := dogs.Fold(t.Name)
		if _, dup := seen[name]; dup || name == "" {
			continue
		}
		seen[name] = struct{}{}

		key := inferredKey(name, eff)
		if key == "" || b.a.Unmet(key) {
			continue
		}

		bonus := min(int(math.Round(confidence*float64(w.InferredPerTraitCap))), w.InferredPerTraitCap, remaining)
		if bonus <= 0 {
			continue
		}
		remaining -= bonus
		b.bonus(fmt.Sprintf("Likely %s (inferred, %d%% confidence)", name, int(math.Round(confidence*100))), bonus)
	}
}

func inferredKey(name string, eff *preferences.EffectivePreferences) string {
	for _, origin := range []preferences.Origin{preferences.OriginUser, preferences.OriginGuidance} {
		if containsValue(eff.Values(preferences.KeyTemperament, origin), name) {
			return preferences.KeyTemperament
		}
	}
	if eff.Energy != nil {
		if level, ok := inferredTraitAliases[name]; ok && level == dogs.Fold(eff.Energy.Value) {
			return preferences.KeyEnergy
		}
	}
	return ""
}

// userEnergy returns the folded energy preference when the user stated it explicitly.
func userEnergy(eff *preferences.EffectivePreferences) string {
	if eff.Energy == nil || eff.Energy.Origin != preferences.OriginUser {
		return ""
	}
	return dogs.Fold(eff.Energy.Value)
}

func normalizeValue(s string) string {
	folded := dogs.Fold(s)
	if alias, ok := sizeAliases[folded]; ok {
		return alias
	}
	return folded
}

func isKnown(set map[string]struct{}, value string) bool {
	_, ok := set[value]
	return ok
}

func containsValue(list []string, value string) bool {
	v := normalizeValue(value)
	if v == "" {
		return false
	}
	for _, item := range list {
		if normalizeValue(item) == v {
			return true
		}
	}
	return false
}

// joinOr renders ["a"] as "a", ["a","b"] as "a or b" and ["a","b","c"] as "a, b or c".
func joinOr(values []string) string {
	switch len(values) {
	case 0:
		return ""
	case 1:
		return values[0]
	default:
		return strings.Join(values[:len(values)-1], ", ") + " or " + values[len(values)-1]
	}
}

func capitalize(s string) string {
	for i, r := range s {
		return string(unicode.ToUpper(r)) + s[i+len(string(r)):]
	}
	return s
}
