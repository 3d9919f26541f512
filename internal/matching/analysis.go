package matching

import (
	"github.com/spigell/dogfinder/internal/dogs"
	"github.com/spigell/dogfinder/internal/preferences"
)

// PrefTag is a structured matched or unmet preference consumed by explanation layers.
type PrefTag struct {
	Key    string             `json:"key"`
	Label  string             `json:"label"`
	Origin preferences.Origin `json:"origin,omitempty"`
}

// Analysis is the scoring result for one dog.
type Analysis struct {
	DogID        string    `json:"dogId"`
	Score        int       `json:"score"`
	Matches      []string  `json:"matches"`
	Mismatches   []string  `json:"mismatches"`
	MatchedPrefs []PrefTag `json:"matchedPrefs"`
	UnmetPrefs   []PrefTag `json:"unmetPrefs"`
	Expansions   []string  `json:"expansions"`
	// Reasons is filled by an external explanation step, never by the engine.
	Reasons []string  `json:"reasons,omitempty"`
	Dog     *dogs.Dog `json:"dog,omitempty"`
}

// Matched reports whether a tag with the key is present in MatchedPrefs.
func (a *Analysis) Matched(key string) bool {
	return hasKey(a.MatchedPrefs, key)
}

// Unmet reports whether a tag with the key is present in UnmetPrefs.
func (a *Analysis) Unmet(key string) bool {
	return hasKey(a.UnmetPrefs, key)
}

func hasKey(tags []PrefTag, key string) bool {
	for _, t := range tags {
		if t.Key == key {
			return true
		}
	}
	return false
}

// builder accumulates an Analysis and keeps every key on exactly one side:
// once a key is unmet, matches for it are dropped.
type builder struct {
	a     Analysis
	score int
}

func newBuilder(dogID string, baseline int) *builder {
	return &builder{
		a: Analysis{
			DogID:        dogID,
			Matches:      []string{},
			Mismatches:   []string{},
			MatchedPrefs: []PrefTag{},
			UnmetPrefs:   []PrefTag{},
			Expansions:   []string{},
		},
		score: baseline,
	}
}

// match records a positive rule. It returns false when the key is already unmet.
func (b *builder) match(text string, tag PrefTag, delta int) bool {
	if tag.Key != "" && b.a.Unmet(tag.Key) {
		return false
	}
	b.score += delta
	appendUnique(&b.a.Matches, text)
	if tag.Key != "" && !containsTag(b.a.MatchedPrefs, tag) {
		b.a.MatchedPrefs = append(b.a.MatchedPrefs, tag)
	}
	return true
}

// mismatch records a negative rule; any earlier matched tag of the same key is withdrawn.
func (b *builder) mismatch(texts []string, tag PrefTag, penalty int) {
	b.score -= penalty
	for _, t := range texts {
		appendUnique(&b.a.Mismatches, t)
	}
	if tag.Key == "" {
		return
	}
	if b.a.Matched(tag.Key) {
		kept := b.a.MatchedPrefs[:0]
		for _, m := range b.a.MatchedPrefs {
			if m.Key != tag.Key {
				kept = append(kept, m)
			}
		}
		b.a.MatchedPrefs = kept
	}
	if !containsTag(b.a.UnmetPrefs, tag) {
		b.a.UnmetPrefs = append(b.a.UnmetPrefs, tag)
	}
}

func (b *builder) expansion(note string) {
	if note != "" {
		appendUnique(&b.a.Expansions, note)
	}
}

func (b *builder) bonus(text string, delta int) {
	b.score += delta
	appendUnique(&b.a.Matches, text)
}

func (b *builder) build() Analysis {
	b.a.Score = b.score
	return b.a
}

func appendUnique(list *[]string, s string) {
	for _, existing := range *list {
		if existing == s {
			return
		}
	}
	*list = append(*list, s)
}

func containsTag(tags []PrefTag, tag PrefTag) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
