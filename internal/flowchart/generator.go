package flowchart

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ziadkadry99/flowgen/internal/llm"
	"github.com/ziadkadry99/flowgen/internal/logger"
	"github.com/ziadkadry99/flowgen/internal/render"
)

// Validation errors, reported before any network call.
var (
	ErrMissingAPIKey = errors.New("Please enter your API key.")
	ErrMissingPrompt = errors.New("Please enter a description for the diagram.")
)

// ErrBusy is returned when a cycle is started while another is in flight.
// The second trigger is dropped; nothing is queued or cancelled.
var ErrBusy = errors.New("a generation is already in progress")

// State is a step of the generation state machine. Transitions are linear:
// Validating, AwaitingCompletion, Extracting, Rendering, then Done or Failed.
type State string

const (
	StateIdle               State = "idle"
	StateValidating         State = "validating"
	StateAwaitingCompletion State = "awaiting_completion"
	StateExtracting         State = "extracting"
	StateRendering          State = "rendering"
	StateDone               State = "done"
	StateFailed             State = "failed"
)

// Outcome classifies how a cycle ended.
type Outcome string

const (
	OutcomeRendered         Outcome = "rendered"
	OutcomeValidationFailed Outcome = "validation_failed"
	OutcomeTransportFailed  Outcome = "transport_failed"
	OutcomeAPIFailed        Outcome = "api_failed"
	OutcomeExtractionFailed Outcome = "extraction_failed"
	OutcomeRenderFailed     Outcome = "render_failed"
)

// Artifact is the diagram currently on display.
type Artifact struct {
	Source    string    `json:"source"`
	Markup    string    `json:"markup"`
	TargetID  string    `json:"target_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Cycle reports one generation from validation to the final state.
type Cycle struct {
	ID      string  `json:"id"`
	Outcome Outcome `json:"outcome"`
	// Message is the user-facing text for failures.
	Message string `json:"message,omitempty"`
	// Source is the extracted source; on render failure it is the rejected source.
	Source       string        `json:"source,omitempty"`
	Markup       string        `json:"markup,omitempty"`
	TargetID     string        `json:"target_id,omitempty"`
	Provider     string        `json:"provider"`
	Model        string        `json:"model,omitempty"`
	PromptChars  int           `json:"prompt_chars"`
	InputTokens  int           `json:"input_tokens"`
	OutputTokens int           `json:"output_tokens"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
	Err          error         `json:"-"`
}

// OK reports whether the cycle produced a rendered diagram.
func (c *Cycle) OK() bool { return c.Outcome == OutcomeRendered }

// Recorder receives every finished cycle.
type Recorder interface {
	Record(ctx context.Context, c *Cycle) error
}

// Observer is notified of every state transition of a cycle.
type Observer func(cycleID string, state State)

// Option configures a Generator.
type Option func(*Generator)

// WithObserver registers fn for state transitions.
func WithObserver(fn Observer) Option {
	return func(g *Generator) { g.observer = fn }
}

// WithRecorder records every finished cycle.
func WithRecorder(r Recorder) Option {
	return func(g *Generator) { g.recorder = r }
}

// WithoutAPIKey relaxes validation for providers that need no credential.
func WithoutAPIKey() Option {
	return func(g *Generator) { g.requireKey = false }
}

// Generator runs generation cycles one at a time and owns the artifact
// currently on display.
type Generator struct {
	completer  *Completer
	extractor  *Extractor
	renderer   render.Renderer
	requireKey bool
	observer   Observer
	recorder   Recorder

	inFlight atomic.Bool

	mu      sync.Mutex
	state   State
	current *Artifact
}

// NewGenerator creates a Generator in the Idle state with nothing on display.
func NewGenerator(completer *Completer, extractor *Extractor, renderer render.Renderer, opts ...Option) *Generator {
	g := &Generator{
		completer:  completer,
		extractor:  extractor,
		renderer:   renderer,
		requireKey: true,
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate runs one full cycle. It returns ErrBusy without doing anything if
// a cycle is already in flight; otherwise every outcome, failures included,
// is reported through the returned Cycle.
func (g *Generator) Generate(ctx context.Context, apiKey, prompt string) (*Cycle, error) {
	if !g.inFlight.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer g.inFlight.Store(false)

	apiKey = strings.TrimSpace(apiKey)
	prompt = strings.TrimSpace(prompt)

	c := &Cycle{
		ID:          uuid.NewString(),
		Provider:    g.completer.Provider(),
		Model:       g.completer.Model(),
		PromptChars: len(prompt),
		StartedAt:   time.Now(),
	}
	log := logger.WithFields(logrus.Fields{"cycle": c.ID, "provider": c.Provider})

	g.transition(c, StateValidating)
	if err := g.validate(apiKey, prompt); err != nil {
		return g.fail(ctx, c, OutcomeValidationFailed, err, log), nil
	}

	g.transition(c, StateAwaitingCompletion)
	log.Debugf("requesting completion (%d prompt chars)", c.PromptChars)
	resp, err := g.completer.Complete(ctx, apiKey, prompt)
	if err != nil {
		return g.fail(ctx, c, classifyCompletionError(err), err, log), nil
	}
	if resp.Model != "" {
		c.Model = resp.Model
	}
	c.InputTokens = resp.InputTokens
	c.OutputTokens = resp.OutputTokens
	if c.InputTokens == 0 && c.OutputTokens == 0 {
		c.InputTokens = llm.EstimateTokens(prompt)
		c.OutputTokens = llm.EstimateTokens(resp.Content)
	}

	g.transition(c, StateExtracting)
	source, _ := g.extractor.Extract(resp.Content)

	if source != "" {
		g.transition(c, StateRendering)
	}
	res := Render(ctx, g.renderer, source)
	c.Source = res.Source
	c.TargetID = res.TargetID

	switch res.Status {
	case StatusExtractionFailed:
		return g.fail(ctx, c, OutcomeExtractionFailed, errors.New(res.Message), log), nil
	case StatusRenderFailed:
		return g.fail(ctx, c, OutcomeRenderFailed, res.Err, log), nil
	}

	c.Outcome = OutcomeRendered
	c.Markup = res.Markup
	c.Duration = time.Since(c.StartedAt)

	g.mu.Lock()
	g.current = &Artifact{
		Source:    res.Source,
		Markup:    res.Markup,
		TargetID:  res.TargetID,
		CreatedAt: time.Now(),
	}
	g.mu.Unlock()

	g.transition(c, StateDone)
	log.WithField("duration", c.Duration).Infof("diagram rendered (%d bytes)", len(c.Markup))
	g.record(ctx, c, log)
	return c, nil
}

func (g *Generator) validate(apiKey, prompt string) error {
	if g.requireKey && apiKey == "" {
		return ErrMissingAPIKey
	}
	if prompt == "" {
		return ErrMissingPrompt
	}
	return nil
}

// fail ends the cycle with the given outcome and clears the artifact on display.
func (g *Generator) fail(ctx context.Context, c *Cycle, outcome Outcome, err error, log *logrus.Entry) *Cycle {
	c.Outcome = outcome
	c.Err = err
	c.Message = err.Error()
	c.Duration = time.Since(c.StartedAt)

	g.mu.Lock()
	g.current = nil
	g.mu.Unlock()

	g.transition(c, StateFailed)
	log.WithField("outcome", outcome).Warnf("generation failed: %s", c.Message)
	g.record(ctx, c, log)
	return c
}

func classifyCompletionError(err error) Outcome {
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		return OutcomeAPIFailed
	}
	return OutcomeTransportFailed
}

func (g *Generator) transition(c *Cycle, s State) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()

	logger.WithFields(logrus.Fields{"cycle": c.ID, "state": s}).Debug("state transition")
	if g.observer != nil {
		g.observer(c.ID, s)
	}
}

func (g *Generator) record(ctx context.Context, c *Cycle, log *logrus.Entry) {
	if g.recorder == nil {
		return
	}
	// The journal write must not be lost when the caller's context ends with the cycle.
	if err := g.recorder.Record(context.WithoutCancel(ctx), c); err != nil {
		log.Warnf("recording cycle: %v", err)
	}
}

// Busy reports whether a cycle is in flight.
func (g *Generator) Busy() bool { return g.inFlight.Load() }

// State returns the state of the current or most recent cycle.
func (g *Generator) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Current returns the artifact on display, if any.
func (g *Generator) Current() (Artifact, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return Artifact{}, false
	}
	return *g.current, true
}

// Clear removes the artifact on display.
func (g *Generator) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current = nil
}

// Language returns the fence language the generator extracts.
func (g *Generator) Language() string { return g.extractor.Language() }
