// Package matching scores and ranks dogs against effective preferences.
package matching

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/dogfinder/internal/ai"
	"github.com/spigell/dogfinder/internal/dogs"
	"github.com/spigell/dogfinder/internal/filtering"
	"github.com/spigell/dogfinder/internal/logger"
	"github.com/spigell/dogfinder/internal/preferences"
)

// MatchingResults is the outcome of a whole matching run.
type MatchingResults struct {
	RunID          string     `json:"-"`
	TopMatches     []Analysis `json:"topMatches"`
	AllMatches     []Analysis `json:"allMatches"`
	ExpansionNotes []string   `json:"expansionNotes"`
	Error          string     `json:"error,omitempty"`
}

// Engine runs the filter stage, scores every candidate and ranks the results.
type Engine struct {
	weights     Weights
	logger      *zap.Logger
	now         func() time.Time
	workers     int
	maxAge      time.Duration
	attachDogs  bool
	disabled    map[string]string
	filterChain func() []filtering.Filter
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock sets the reference time used by the recency bonus and the freshness filter.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithWorkers bounds the number of dogs scored concurrently.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithMaxAge enables the freshness filter.
func WithMaxAge(d time.Duration) Option {
	return func(e *Engine) { e.maxAge = d }
}

// WithDogs attaches the scored dog to every Analysis.
func WithDogs() Option {
	return func(e *Engine) { e.attachDogs = true }
}

// WithoutFilter disables a filter step by name, keeping it visible in the filter status.
func WithoutFilter(name, reason string) Option {
	return func(e *Engine) { e.disabled[name] = reason }
}

func New(weights Weights, log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}

	e := &Engine{
		weights:     weights.Sanitize(),
		logger:      log,
		now:         time.Now,
		workers:     runtime.GOMAXPROCS(0),
		disabled:    map[string]string{},
		filterChain: filtering.Default,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Weights returns the sanitized weights the engine scores with.
func (e *Engine) Weights() Weights {
	return e.weights
}

// Filters returns a fresh filter chain with the engine's disabled steps applied.
func (e *Engine) Filters() []filtering.Filter {
	steps := e.filterChain()
	for name, reason := range e.disabled {
		filtering.DisableByName(steps, name, reason)
	}
	return steps
}

// Match normalizes prefs, filters list, scores the candidates and ranks them. The provider is
// optional; its failure only removes the inferred-trait bonus.
func (e *Engine) Match(ctx context.Context, prefs preferences.UserPreferences, list []dogs.Dog, provider ai.TraitsProvider) (MatchingResults, error) {
	runID := uuid.NewString()
	log := logger.With(e.logger, logger.Run(runID)...)

	eff, notes := preferences.Normalize(prefs)
	for _, note := range notes {
		log.Debug("guidance expansion", zap.String("note", note))
	}

	results := MatchingResults{
		RunID:          runID,
		TopMatches:     []Analysis{},
		AllMatches:     []Analysis{},
		ExpansionNotes: notes,
	}
	if len(list) == 0 {
		log.Info("no dogs to match")
		return results, nil
	}

	candidates := dogs.New(list)
	index := make(map[*dogs.Dog]int, len(candidates.Items))
	for i, d := range candidates.Items {
		index[d] = i
	}

	cfg := &filtering.Config{
		ExcludeBreeds: eff.ExcludeBreeds,
		ZipCodes:      eff.ZipCodes,
		RadiusMi:      eff.RadiusMi,
		MaxAge:        e.maxAge,
	}
	steps := e.Filters()
	for _, status := range filtering.Describe(steps) {
		log.Debug("filter", zap.String("name", status.Name), zap.Bool("enabled", status.Enabled), zap.Any("details", status.Details))
	}

	kept, excluded, err := filtering.Run(ctx, cfg, filtering.Deps{Logger: log, Now: e.now}, steps, candidates)
	if err != nil {
		return results, fmt.Errorf("filter dogs: %w", err)
	}

	inferred := e.inferredTraits(ctx, log, provider, kept.IDs())

	scored, err := e.scoreAll(ctx, kept.Items, &eff, inferred, index)
	if err != nil {
		return results, fmt.Errorf("score dogs: %w", err)
	}
	for _, d := range excluded {
		scored = append(scored, Scored{Dog: d, Analysis: e.analyze(d, &eff, nil), Index: index[d]})
	}

	results.TopMatches, results.AllMatches = Rank(scored)

	log.Info("matching completed",
		zap.Int("initial", len(list)),
		zap.Int("scored", kept.Len()),
		zap.Int("excluded", len(excluded)),
		zap.Int("top", len(results.TopMatches)),
	)

	return results, nil
}

// SafeMatch never fails: errors and panics degrade to empty lists carrying the error message.
func (e *Engine) SafeMatch(ctx context.Context, prefs preferences.UserPreferences, list []dogs.Dog, provider ai.TraitsProvider) (results MatchingResults) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("matching panicked", zap.Any("panic", r))
			results = failed(fmt.Errorf("matching panicked: %v", r))
		}
	}()

	results, err := e.Match(ctx, prefs, list, provider)
	if err != nil {
		e.logger.Error("matching failed", zap.Error(err))
		return failed(err)
	}
	return results
}

func failed(err error) MatchingResults {
	return MatchingResults{
		TopMatches:     []Analysis{},
		AllMatches:     []Analysis{},
		ExpansionNotes: []string{},
		Error:          err.Error(),
	}
}

func (e *Engine) inferredTraits(ctx context.Context, log *zap.Logger, provider ai.TraitsProvider, ids []string) map[string]ai.InferredTraits {
	if provider == nil || len(ids) == 0 {
		return nil
	}

	traits, err := provider.InferredTraitsBatch(ctx, ids)
	if err != nil {
		log.Warn("inferred traits are unavailable; scoring without them", zap.Error(err))
		return nil
	}

	log.Debug("inferred traits loaded", zap.Int("dogs", len(traits)))
	return traits
}

// scoreAll scores dogs concurrently. Each worker writes only its own slot of the result slice.
func (e *Engine) scoreAll(ctx context.Context, items []*dogs.Dog, eff *preferences.EffectivePreferences, inferred map[string]ai.InferredTraits, index map[*dogs.Dog]int) ([]Scored, error) {
	scored := make([]Scored, len(items))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, d := range items {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("dog %s: %v", d.ID, r)
				}
			}()

			var extra *ai.InferredTraits
			if t, ok := inferred[d.ID]; ok {
				extra = &t
			}
			scored[i] = Scored{Dog: d, Analysis: e.analyze(d, eff, extra), Index: index[d]}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scored, nil
}

func (e *Engine) analyze(d *dogs.Dog, eff *preferences.EffectivePreferences, inferred *ai.InferredTraits) Analysis {
	a := e.Score(d, eff, inferred)
	if e.attachDogs {
		a.Dog = d
	}
	return a
}
