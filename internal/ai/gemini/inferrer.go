package gemini

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/dogfinder/internal/ai"
	"github.com/spigell/dogfinder/internal/dogs"
	"github.com/spigell/dogfinder/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

// Catalog resolves dog ids into listings.
type Catalog interface {
	FindByID(id string) *dogs.Dog
}

//go:embed prompt.md
var systemPrompt string

const (
	defaultMaxLogLength = 200
	defaultBatchSize    = 10
)

// TraitInferrer asks Gemini to infer temperament traits from listing text.
// Results are cached per dog until its listing text changes.
type TraitInferrer struct {
	generator contentGenerator
	catalog   Catalog
	logger    *zap.Logger
	maxLogLen int
	batchSize int

	cacheMu sync.RWMutex
	cache   map[string]cachedTraits
}

type cachedTraits struct {
	hash   string
	traits ai.InferredTraits
}

type listingPayload struct {
	ID          string   `json:"id"`
	Breeds      []string `json:"breeds,omitempty"`
	Age         string   `json:"age,omitempty"`
	Size        string   `json:"size,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Description string   `json:"description,omitempty"`
}

var _ ai.TraitsProvider = (*TraitInferrer)(nil)

func NewTraitInferrer(generator contentGenerator, catalog Catalog, logger *zap.Logger, batchSize, maxLogLength int) *TraitInferrer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &TraitInferrer{
		generator: generator,
		catalog:   catalog,
		logger:    logger,
		maxLogLen: maxLogLength,
		batchSize: batchSize,
		cache:     make(map[string]cachedTraits),
	}
}

// InferredTraitsBatch returns traits for the ids that have listing text. A failed batch is
// logged and skipped; an error is returned only when every batch failed.
func (t *TraitInferrer) InferredTraitsBatch(ctx context.Context, ids []string) (map[string]ai.InferredTraits, error) {
	if t.generator == nil || t.catalog == nil {
		return nil, errors.New("trait inferrer is not configured")
	}

	result := make(map[string]ai.InferredTraits, len(ids))
	var pending []listingPayload
	hashes := make(map[string]string)

	for _, id := range ids {
		d := t.catalog.FindByID(id)
		if d == nil {
			continue
		}
		payload := newListingPayload(d)
		if len(payload.Tags) == 0 && payload.Description == "" {
			continue
		}

		hash := payloadHash(payload)
		if cached, ok := t.cached(id, hash); ok {
			result[id] = cached
			continue
		}
		hashes[id] = hash
		pending = append(pending, payload)
	}

	if len(pending) == 0 {
		return result, nil
	}

	var failures []error
	batches := 0
	for start := 0; start < len(pending); start += t.batchSize {
		batch := pending[start:min(start+t.batchSize, len(pending))]
		batches++

		inferred, err := t.inferBatch(ctx, batch)
		if err != nil {
			t.logger.Warn("trait inference batch failed", zap.Int("dogs", len(batch)), zap.Error(err))
			failures = append(failures, err)
			continue
		}

		for _, p := range batch {
			traits, ok := inferred[p.ID]
			if !ok {
				traits = ai.InferredTraits{DogID: p.ID, Traits: []ai.Trait{}}
			}
			t.store(p.ID, hashes[p.ID], traits)
			result[p.ID] = traits
		}
	}

	if len(failures) == batches {
		return result, fmt.Errorf("infer traits: %w", errors.Join(failures...))
	}

	return result, nil
}

func (t *TraitInferrer) inferBatch(ctx context.Context, batch []listingPayload) (map[string]ai.InferredTraits, error) {
	message, err := json.MarshalIndent(map[string]any{"dogs": batch}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal listings payload: %w", err)
	}

	t.logger.Debug("gemini generate content request",
		zap.Int("dogs", len(batch)),
		zap.Int("message_length", utf8.RuneCount(message)),
		zap.String("message_preview", utils.TruncateForLog(string(message), t.maxLogLen)),
	)

	raw, err := t.generator.GenerateContent(ctx, systemPrompt, string(message))
	if err != nil {
		return nil, err
	}

	t.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, t.maxLogLen)),
	)

	return parseResponse(raw)
}

func (t *TraitInferrer) cached(id, hash string) (ai.InferredTraits, bool) {
	t.cacheMu.RLock()
	defer t.cacheMu.RUnlock()
	entry, ok := t.cache[id]
	if !ok || entry.hash != hash {
		return ai.InferredTraits{}, false
	}
	return entry.traits, true
}

func (t *TraitInferrer) store(id, hash string, traits ai.InferredTraits) {
	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()
	t.cache[id] = cachedTraits{hash: hash, traits: traits}
}

func newListingPayload(d *dogs.Dog) listingPayload {
	return listingPayload{
		ID:          d.ID,
		Breeds:      d.Breeds,
		Age:         d.Age,
		Size:        d.Size,
		Tags:        d.Tags,
		Description: strings.TrimSpace(d.Description),
	}
}

func payloadHash(p listingPayload) string {
	data, _ := json.Marshal(p)
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum[:])
}

func parseResponse(raw string) (map[string]ai.InferredTraits, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	entries, _ := data["dogs"].([]any)
	result := make(map[string]ai.InferredTraits, len(entries))
	for _, entry := range entries {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		id := coerceString(obj["id"])
		if id == "" {
			continue
		}

		items, _ := obj["traits"].([]any)
		traits := make([]ai.Trait, 0, len(items))
		for _, item := range items {
			fields, ok := item.(map[string]any)
			if !ok {
				continue
			}
			name := coerceString(fields["name"])
			confidence := coerceFloat(fields["confidence"])
			if name == "" || math.IsNaN(confidence) {
				continue
			}
			traits = append(traits, ai.Trait{
				Name:       name,
				Confidence: math.Max(0, math.Min(confidence, 1)),
				Evidence:   coerceString(fields["evidence"]),
			})
		}

		result[id] = ai.InferredTraits{DogID: id, Traits: traits}
	}

	return result, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(val), "%")
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		if strings.HasSuffix(strings.TrimSpace(val), "%") {
			f /= 100
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
