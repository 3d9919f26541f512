package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/dogfinder/internal/dogs"
)

type stubGenerator struct {
	responses []string
	err       error
	messages  []string
	system    string
}

func (s *stubGenerator) GenerateContent(_ context.Context, system, message string) (string, error) {
	s.system = system
	s.messages = append(s.messages, message)
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return `{"dogs":[]}`, nil
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func catalog() *dogs.Dogs {
	return dogs.New([]dogs.Dog{
		{ID: "1", Name: "Rex", Description: "Rex lives with two toddlers and adores them."},
		{ID: "2", Name: "Bella", Tags: []string{"Couch potato"}},
		{ID: "3", Name: "Ghost"},
	})
}

func TestInferredTraitsBatch(t *testing.T) {
	stub := &stubGenerator{responses: []string{"```json\n" + `{"dogs":[
		{"id":"1","traits":[{"name":"good with kids","confidence":"95%","evidence":"adores them"},{"name":"","confidence":1}]},
		{"id":"2","traits":[{"name":"calm","confidence":1.7}]}
	]}` + "\n```"}}

	inferrer := NewTraitInferrer(stub, catalog(), zap.NewNop(), 0, 0)
	got, err := inferrer.InferredTraitsBatch(context.Background(), []string{"1", "2", "3", "missing"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(stub.messages) != 1 {
		t.Fatalf("expected a single batch, got %d", len(stub.messages))
	}
	if strings.Contains(stub.messages[0], "Ghost") || strings.Contains(stub.messages[0], `"3"`) {
		t.Fatalf("dogs without listing text must not be sent: %s", stub.messages[0])
	}
	if !strings.Contains(stub.system, "Answer with JSON only") {
		t.Fatalf("expected embedded system prompt, got %q", stub.system)
	}

	rex := got["1"]
	if len(rex.Traits) != 1 || rex.Traits[0].Name != "good with kids" || rex.Traits[0].Confidence != 0.95 {
		t.Fatalf("unexpected traits for dog 1: %+v", rex)
	}
	if got["2"].Traits[0].Confidence != 1 {
		t.Fatalf("confidence must be clamped to 1, got %v", got["2"].Traits[0].Confidence)
	}
	if _, ok := got["3"]; ok {
		t.Fatalf("dog 3 has no listing text and must be absent")
	}
}

func TestInferredTraitsAreCached(t *testing.T) {
	stub := &stubGenerator{responses: []string{`{"dogs":[{"id":"2","traits":[{"name":"calm","confidence":0.8}]}]}`}}
	list := catalog()
	inferrer := NewTraitInferrer(stub, list, nil, 5, 50)

	for i := 0; i < 2; i++ {
		got, err := inferrer.InferredTraitsBatch(context.Background(), []string{"2"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got["2"].Traits) != 1 {
			t.Fatalf("unexpected traits: %+v", got)
		}
	}
	if len(stub.messages) != 1 {
		t.Fatalf("expected cached second call, got %d requests", len(stub.messages))
	}

	list.FindByID("2").Tags = []string{"Energetic"}
	if _, err := inferrer.InferredTraitsBatch(context.Background(), []string{"2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stub.messages) != 2 {
		t.Fatalf("changed listing text must invalidate the cache")
	}
}

func TestInferredTraitsBatching(t *testing.T) {
	stub := &stubGenerator{}
	inferrer := NewTraitInferrer(stub, catalog(), nil, 1, 0)

	if _, err := inferrer.InferredTraitsBatch(context.Background(), []string{"1", "2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stub.messages) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(stub.messages))
	}
}

func TestInferredTraitsAllBatchesFailed(t *testing.T) {
	stub := &stubGenerator{err: errors.New("unavailable")}
	inferrer := NewTraitInferrer(stub, catalog(), nil, 0, 0)

	if _, err := inferrer.InferredTraitsBatch(context.Background(), []string{"1"}); err == nil {
		t.Fatal("expected error when every batch failed")
	}
}

func TestParseResponseRejectsProse(t *testing.T) {
	if _, err := parseResponse("I think the dog is nice"); err == nil {
		t.Fatal("expected parse error")
	}
}
