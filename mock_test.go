package stepwise_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/stepwise"
	"github.com/m-mizutani/stepwise/internal"
)

// testCtx returns a context carrying the test logger. Set STEPWISE_TEST_LOG=1
// to see engine debug output while running tests.
func testCtx() context.Context {
	return ctxlog.With(context.Background(), internal.TestLogger())
}

// callLabels maps a phrase from each call's system instruction to a stable
// label so tests can script per-call responses without ordering assumptions.
var callLabels = []struct {
	phrase string
	label  string
}{
	{"dependency-ordered step plan", "plan"},
	{"contingency plan recovering", "branch"},
	{"Group an existing flat step list", "expand"},
	{"Refine titles and criteria", "enrich"},
	{"Remove duplicate", "dedupe"},
	{"collapse runs", "repetition"},
	{"Score the plan", "evaluate"},
	{"Reorder and tighten", "optimize"},
	{"observed progress", "progress"},
	{"Assess the last executed step", "selfcheck"},
	{"resuming after a pause", "resume"},
	{"Mid-run signals", "adapt"},
	{"achieved the objective", "verify"},
	{"lessons-learned", "retrospect"},
	{"Condense working memory", "memory"},
	{"checkpoint brief", "checkpoint"},
}

func labelFor(systemPrompt string) string {
	for _, c := range callLabels {
		if strings.Contains(systemPrompt, c.phrase) {
			return c.label
		}
	}
	return "unknown"
}

// mockClient scripts reasoning responses per call label. Unscripted calls
// fail, which exercises the best-effort fallback paths.
type mockClient struct {
	mu            sync.Mutex
	responses     map[string]string
	errs          map[string]error
	newSessionErr error
	calls         []string
	prompts       map[string][]string
}

func newMockClient() *mockClient {
	return &mockClient{
		responses: map[string]string{},
		errs:      map[string]error{},
		prompts:   map[string][]string{},
	}
}

func (c *mockClient) respond(label, text string) *mockClient {
	c.responses[label] = text
	return c
}

func (c *mockClient) fail(label string, err error) *mockClient {
	c.errs[label] = err
	return c
}

func (c *mockClient) callCount(label string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if call == label {
			n++
		}
	}
	return n
}

func (c *mockClient) lastPrompt(label string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	prompts := c.prompts[label]
	if len(prompts) == 0 {
		return ""
	}
	return prompts[len(prompts)-1]
}

func (c *mockClient) NewSession(ctx context.Context, options ...stepwise.SessionOption) (stepwise.Session, error) {
	if c.newSessionErr != nil {
		return nil, c.newSessionErr
	}
	cfg := stepwise.NewSessionConfig(options...)
	return &mockSession{client: c, label: labelFor(cfg.SystemPrompt())}, nil
}

type mockSession struct {
	client *mockClient
	label  string
}

func (s *mockSession) GenerateContent(ctx context.Context, input ...stepwise.Input) (*stepwise.Response, error) {
	c := s.client
	c.mu.Lock()
	c.calls = append(c.calls, s.label)
	if len(input) > 0 {
		c.prompts[s.label] = append(c.prompts[s.label], input[0].String())
	}
	text, scripted := c.responses[s.label]
	err := c.errs[s.label]
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if !scripted {
		return nil, errors.New("unscripted call: " + s.label)
	}
	return &stepwise.Response{Texts: []string{text}}, nil
}

func newTestEngine(client *mockClient, options ...stepwise.Option) *stepwise.Engine {
	engine, err := stepwise.New(client, options...)
	if err != nil {
		panic(err)
	}
	return engine
}
