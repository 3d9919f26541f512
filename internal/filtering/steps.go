package filtering

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/dogfinder/internal/dogs"
	"github.com/spigell/dogfinder/internal/traits"
)

// toggle carries the enable state shared by every step.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

type excludeBreedsFilter struct {
	toggle
	terms    []string
	excluded []*dogs.Dog
}

// NewExcludeBreeds creates a filter that removes dogs whose breeds contain an excluded term at a
// word start.
// The removed dogs are kept aside and exposed through Excluded.
func NewExcludeBreeds() Filter {
	return &excludeBreedsFilter{}
}

func (f *excludeBreedsFilter) Name() string { return "exclude_breeds" }

func (f *excludeBreedsFilter) Validate(cfg *Config) error {
	f.terms = nil
	if cfg != nil {
		f.terms = append(f.terms, cfg.ExcludeBreeds...)
	}
	return nil
}

func (f *excludeBreedsFilter) Apply(_ context.Context, deps Deps, v *dogs.Dogs) (*dogs.Dogs, Step, error) {
	initial := v.Len()
	f.excluded = nil
	if len(f.terms) == 0 {
		return v, Step{Initial: initial, Dropped: 0, Left: v.Len()}, nil
	}

	removed := v.Keep(func(d *dogs.Dog) bool {
		for _, breed := range d.Breeds {
			for _, term := range f.terms {
				if traits.ExcludesBreed(breed, term) {
					f.excluded = append(f.excluded, d)
					return false
				}
			}
		}
		return true
	})

	if deps.Logger != nil && len(removed) > 0 {
		deps.Logger.Info("excluding dogs by breed",
			zap.Strings("excluded_breeds", f.terms),
			zap.Strings("excluded_dogs", removed),
			zap.Int("dogs_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(removed), Left: v.Len()}, nil
}

func (f *excludeBreedsFilter) Excluded() []*dogs.Dog {
	return f.excluded
}

func (f *excludeBreedsFilter) Status() Status {
	details := map[string]string{}
	if len(f.terms) > 0 {
		details["breeds"] = strings.Join(f.terms, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

type radiusFilter struct {
	toggle
	zipCodes []string
	radius   float64
}

// NewRadius creates a filter that removes dogs farther than the configured radius.
// It only applies when both zip codes and a radius are configured.
func NewRadius() Filter {
	return &radiusFilter{}
}

func (f *radiusFilter) Name() string { return "radius" }

func (f *radiusFilter) Validate(cfg *Config) error {
	f.zipCodes, f.radius = nil, 0
	if cfg != nil {
		f.zipCodes = append(f.zipCodes, cfg.ZipCodes...)
		f.radius = cfg.RadiusMi
	}
	return nil
}

func (f *radiusFilter) active() bool {
	return len(f.zipCodes) > 0 && f.radius > 0
}

func (f *radiusFilter) Apply(_ context.Context, deps Deps, v *dogs.Dogs) (*dogs.Dogs, Step, error) {
	initial := v.Len()
	if !f.active() {
		return v, Step{Initial: initial, Dropped: 0, Left: v.Len()}, nil
	}

	removed := v.Keep(func(d *dogs.Dog) bool {
		return d.Location.DistanceMi <= f.radius
	})

	if deps.Logger != nil && len(removed) > 0 {
		deps.Logger.Info("excluding dogs outside of radius",
			zap.Float64("radius_mi", f.radius),
			zap.Strings("excluded_dogs", removed),
			zap.Int("dogs_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(removed), Left: v.Len()}, nil
}

func (f *radiusFilter) Status() Status {
	details := map[string]string{}
	reason := f.reason
	if f.active() {
		details["radius_mi"] = strconv.FormatFloat(f.radius, 'f', -1, 64)
		details["zip_codes"] = strings.Join(f.zipCodes, ",")
	} else if reason == "" {
		reason = "zip codes or radius not set"
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: reason, Details: details}
}

type freshnessFilter struct {
	toggle
	cfg *Config
}

// NewFreshness creates a filter that removes listings older than the configured max age.
// Dogs without a publication time are kept.
func NewFreshness() Filter {
	return &freshnessFilter{}
}

func (f *freshnessFilter) Name() string { return "freshness" }

func (f *freshnessFilter) Validate(cfg *Config) error {
	f.cfg = cfg
	return nil
}

func (f *freshnessFilter) Apply(_ context.Context, deps Deps, v *dogs.Dogs) (*dogs.Dogs, Step, error) {
	initial := v.Len()
	if f.cfg == nil || f.cfg.MaxAge <= 0 {
		return v, Step{Initial: initial, Dropped: 0, Left: v.Len()}, nil
	}

	cutoff := deps.now().Add(-f.cfg.MaxAge)
	removed := v.Keep(func(d *dogs.Dog) bool {
		return d.PublishedAt.IsZero() || !d.PublishedAt.Before(cutoff)
	})

	if deps.Logger != nil && len(removed) > 0 {
		deps.Logger.Info("excluding stale listings",
			zap.Time("cutoff", cutoff),
			zap.Strings("excluded_dogs", removed),
			zap.Int("dogs_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(removed), Left: v.Len()}, nil
}

func (f *freshnessFilter) Status() Status {
	details := map[string]string{}
	if f.cfg != nil && f.cfg.MaxAge > 0 {
		details["max_age"] = f.cfg.MaxAge.String()
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

type duplicatesFilter struct {
	toggle
}

// NewDuplicates creates a filter that removes listings repeating an id already seen. The first
// occurrence wins. Distinct ids are never merged here, even when the listings look alike.
func NewDuplicates() Filter {
	return &duplicatesFilter{}
}

func (f *duplicatesFilter) Name() string { return "duplicates" }

func (f *duplicatesFilter) Validate(*Config) error { return nil }

func (f *duplicatesFilter) Apply(_ context.Context, deps Deps, v *dogs.Dogs) (*dogs.Dogs, Step, error) {
	initial := v.Len()
	ids := make(map[string]struct{}, initial)

	removed := v.Keep(func(d *dogs.Dog) bool {
		if d.ID == "" {
			return true
		}
		if _, seen := ids[d.ID]; seen {
			return false
		}
		ids[d.ID] = struct{}{}
		return true
	})

	if deps.Logger != nil && len(removed) > 0 {
		deps.Logger.Info("excluding duplicate listings",
			zap.Strings("excluded_dogs", removed),
			zap.Int("dogs_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(removed), Left: v.Len()}, nil
}

func (f *duplicatesFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}
