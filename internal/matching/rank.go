package matching

import (
	"sort"

	"github.com/spigell/dogfinder/internal/dogs"
)

// TopMatchesLimit is the number of analyses promoted to top matches.
const TopMatchesLimit = 3

// Scored pairs a dog with its analysis. Index is the dog's position in the caller's input.
type Scored struct {
	Dog      *dogs.Dog
	Analysis Analysis
	Index    int
}

// Rank orders analyses by score descending, then distance ascending, then input order.
// The returned top slice is a prefix of all with its capacity capped, so appending to it never
// writes into all.
func Rank(scored []Scored) ([]Analysis, []Analysis) {
	ordered := make([]Scored, len(scored))
	copy(ordered, scored)

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Analysis.Score != b.Analysis.Score {
			return a.Analysis.Score > b.Analysis.Score
		}
		if da, db := distance(a.Dog), distance(b.Dog); da != db {
			return da < db
		}
		return a.Index < b.Index
	})

	all := make([]Analysis, 0, len(ordered))
	for _, s := range ordered {
		all = append(all, s.Analysis)
	}

	n := min(TopMatchesLimit, len(all))
	top := all[:n:n]
	return top, all
}

func distance(d *dogs.Dog) float64 {
	if d == nil {
		return 0
	}
	return d.Location.DistanceMi
}
