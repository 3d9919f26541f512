package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestPairs(t *testing.T) {
	cases := []struct {
		name string
		kv   []string
		want map[string]string
	}{
		{name: "trimmed", kv: []string{"  provider  ", "  Gemini  "}, want: map[string]string{"provider": "Gemini"}},
		{name: "blank value", kv: []string{"zip", "   ", "source", "petfinder"}, want: map[string]string{"source": "petfinder"}},
		{name: "blank key", kv: []string{"  ", "value"}, want: map[string]string{}},
		{name: "dangling key", kv: []string{"a", "1", "b"}, want: map[string]string{"a": "1"}},
		{name: "empty", want: map[string]string{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fields := Pairs(tc.kv...)
			if len(fields) != len(tc.want) {
				t.Fatalf("expected %d fields, got %+v", len(tc.want), fields)
			}
			for _, f := range fields {
				if tc.want[f.Key] != f.String {
					t.Fatalf("unexpected field %s=%q", f.Key, f.String)
				}
			}
		})
	}
}

func TestWith(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	With(zap.New(core), Search("petfinder", " 08401 ")...).Info("searching")
	With(zap.New(core)).Info("plain")

	entries := observed.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx[FieldSource] != "petfinder" || ctx[FieldZip] != "08401" {
		t.Fatalf("unexpected search context: %v", ctx)
	}
	if len(entries[1].Context) != 0 {
		t.Fatalf("expected no fields, got %v", entries[1].ContextMap())
	}

	// A nil logger must still be usable.
	With(nil, Run("abc")...).Info("dropped")
}

func TestAIAndRunFields(t *testing.T) {
	fields := AI("gemini", "")
	if len(fields) != 1 || fields[0].Key != FieldProvider {
		t.Fatalf("expected only the provider field, got %+v", fields)
	}

	fields = Run("run-1")
	if len(fields) != 1 || fields[0].Key != FieldRunID || fields[0].String != "run-1" {
		t.Fatalf("unexpected run fields: %+v", fields)
	}
}

func TestNew(t *testing.T) {
	cases := []struct {
		opts  Options
		debug bool
	}{
		{opts: Options{}, debug: false},
		{opts: Options{JSON: true, Debug: true}, debug: true},
		{opts: Options{Output: "stdout"}, debug: false},
	}

	for _, tc := range cases {
		log, err := New(tc.opts)
		if err != nil {
			t.Fatalf("unexpected error for %+v: %v", tc.opts, err)
		}
		if got := log.Core().Enabled(zapcore.DebugLevel); got != tc.debug {
			t.Fatalf("debug enabled = %v for %+v", got, tc.opts)
		}
	}
}
