package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Structured field keys shared across packages.
const (
	FieldProvider = "ai_provider"
	FieldModel    = "ai_model"
	FieldSource   = "listings_source"
	FieldZip      = "zip_code"
	FieldRunID    = "run_id"
)

// Pairs turns alternating keys and values into string fields. Both sides are trimmed,
// pairs with a blank side are skipped and a trailing key without a value is ignored.
func Pairs(kv ...string) []zap.Field {
	fields := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, value := strings.TrimSpace(kv[i]), strings.TrimSpace(kv[i+1])
		if key == "" || value == "" {
			continue
		}
		fields = append(fields, zap.String(key, value))
	}
	return fields
}

// With returns l enriched with fields. A nil l becomes a no-op logger.
func With(l *zap.Logger, fields ...zap.Field) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// AI describes calls to a model provider.
func AI(provider, model string) []zap.Field {
	return Pairs(FieldProvider, provider, FieldModel, model)
}

// Search describes a listings search against source around zip.
func Search(source, zip string) []zap.Field {
	return Pairs(FieldSource, source, FieldZip, zip)
}

// Run tags every entry of one matching run.
func Run(id string) []zap.Field {
	return Pairs(FieldRunID, id)
}
