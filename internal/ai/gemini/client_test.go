package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const testModel = "gemini-2.5-flash"

// scriptedChats answers every Create with the next scripted outcome.
type scriptedChats struct {
	mu      sync.Mutex
	script  []outcome
	configs []*genai.GenerateContentConfig
	sent    []string
}

type outcome struct {
	text string
	err  error
}

type scriptedSession struct {
	owner *scriptedChats
	next  outcome
}

func (s *scriptedSession) SendMessage(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	s.owner.mu.Lock()
	for _, p := range parts {
		s.owner.sent = append(s.owner.sent, p.Text)
	}
	s.owner.mu.Unlock()

	if s.next.err != nil {
		return nil, s.next.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: s.next.text}}}}},
	}, nil
}

func (c *scriptedChats) Create(_ context.Context, model string, config *genai.GenerateContentConfig, _ []*genai.Content) (chatSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if model != testModel {
		return nil, errors.New("unexpected model " + model)
	}
	if len(c.script) == 0 {
		return nil, errors.New("unexpected call")
	}
	next := c.script[0]
	c.script = c.script[1:]
	c.configs = append(c.configs, config)
	return &scriptedSession{owner: c, next: next}, nil
}

func stubSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var slept []time.Duration
	original := sleep
	sleep = func(d time.Duration) { slept = append(slept, d) }
	t.Cleanup(func() { sleep = original })
	return &slept
}

func apiError(code int, message string) error {
	return genai.APIError{Code: code, Message: message}
}

func TestGenerateContentRetries(t *testing.T) {
	cases := []struct {
		name       string
		maxRetries int
		script     []outcome
		wantText   string
		wantErr    bool
		wantCalls  int
		wantSleeps []time.Duration
	}{
		{
			name:       "server error then success",
			maxRetries: 2,
			script:     []outcome{{err: apiError(http.StatusInternalServerError, "")}, {text: "retry ok"}},
			wantText:   "retry ok",
			wantCalls:  2,
			wantSleeps: []time.Duration{retryBaseDelay},
		},
		{
			name:       "attempts exhausted",
			maxRetries: 2,
			script:     []outcome{{err: apiError(http.StatusServiceUnavailable, "")}, {err: apiError(http.StatusServiceUnavailable, "")}},
			wantErr:    true,
			wantCalls:  2,
			wantSleeps: []time.Duration{retryBaseDelay},
		},
		{
			name:       "short quota delay is honored",
			maxRetries: 3,
			script:     []outcome{{err: apiError(http.StatusTooManyRequests, "Please retry in 1.5s.")}, {text: "{}"}},
			wantText:   "{}",
			wantCalls:  2,
			wantSleeps: []time.Duration{1500 * time.Millisecond},
		},
		{
			name:       "long quota delay fails fast",
			maxRetries: 3,
			script:     []outcome{{err: apiError(http.StatusTooManyRequests, "quota exhausted, retry after 60 seconds")}},
			wantErr:    true,
			wantCalls:  1,
		},
		{
			name:       "client errors are not retried",
			maxRetries: 3,
			script:     []outcome{{err: apiError(http.StatusBadRequest, "invalid argument")}},
			wantErr:    true,
			wantCalls:  1,
		},
		{
			name:       "transport errors are not retried",
			maxRetries: 3,
			script:     []outcome{{err: errors.New("connection reset")}},
			wantErr:    true,
			wantCalls:  1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			slept := stubSleep(t)
			chats := &scriptedChats{script: tc.script}
			g := &Generator{chats: chats, model: testModel, maxRetries: tc.maxRetries, logger: zap.NewNop()}

			got, err := g.GenerateContent(context.Background(), "system", "listings")
			if tc.wantErr != (err != nil) {
				t.Fatalf("error = %v, wantErr %v", err, tc.wantErr)
			}
			if got != tc.wantText {
				t.Fatalf("text = %q, want %q", got, tc.wantText)
			}
			if len(chats.configs) != tc.wantCalls {
				t.Fatalf("calls = %d, want %d", len(chats.configs), tc.wantCalls)
			}
			if len(*slept) != len(tc.wantSleeps) {
				t.Fatalf("sleeps = %v, want %v", *slept, tc.wantSleeps)
			}
			for i := range tc.wantSleeps {
				if (*slept)[i] != tc.wantSleeps[i] {
					t.Fatalf("sleeps = %v, want %v", *slept, tc.wantSleeps)
				}
			}
		})
	}
}

func TestGenerateContentSendsInstructionAndMessage(t *testing.T) {
	chats := &scriptedChats{script: []outcome{{text: "a"}, {text: "b"}}}
	g := &Generator{chats: chats, model: testModel, maxRetries: 1}

	if _, err := g.GenerateContent(context.Background(), "  describe dogs  ", " listings "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := g.GenerateContent(context.Background(), "", "listings"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := chats.configs[0].SystemInstruction
	if first == nil || first.Parts[0].Text != "describe dogs" {
		t.Fatalf("unexpected system instruction: %+v", first)
	}
	if chats.configs[1].SystemInstruction != nil {
		t.Fatal("empty system instruction must not be sent")
	}
	if chats.sent[0] != "listings" {
		t.Fatalf("message must be trimmed, got %q", chats.sent[0])
	}
}

func TestGenerateContentRejectsBadInput(t *testing.T) {
	g := &Generator{chats: &scriptedChats{}, model: testModel, maxRetries: 1}
	if _, err := g.GenerateContent(context.Background(), "sys", "   "); err == nil {
		t.Fatal("expected error for empty message")
	}

	var missing *Generator
	if _, err := missing.GenerateContent(context.Background(), "sys", "msg"); err == nil {
		t.Fatal("expected error for nil generator")
	}
}

func TestEmptyResponseIsAnError(t *testing.T) {
	g := &Generator{chats: &scriptedChats{script: []outcome{{text: "   "}}}, model: testModel, maxRetries: 1}
	if _, err := g.GenerateContent(context.Background(), "sys", "msg"); err == nil {
		t.Fatal("expected error for blank answer")
	}
}
