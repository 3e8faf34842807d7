package runner

import (
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/use-agent/pagecheck/config"
	"github.com/use-agent/pagecheck/engine"
	"github.com/use-agent/pagecheck/models"
	"github.com/use-agent/pagecheck/probe"
)

// Runner drives verification passes against the target application.
// A Runner is not safe for concurrent use; each Run owns its browser
// exclusively.
type Runner struct {
	engine engine.Engine
	cfg    *config.Config
	plan   *models.Plan
	prober *probe.Prober
	out    io.Writer
	newID  func() string
}

// Option customises a Runner.
type Option func(*Runner)

// WithPlan replaces the upload screen plan.
func WithPlan(p *models.Plan) Option {
	return func(r *Runner) { r.plan = p }
}

// WithOutput redirects the console result lines (default os.Stdout).
func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.out = w }
}

// WithProber overrides the preflight prober; nil disables preflight.
func WithProber(p *probe.Prober) Option {
	return func(r *Runner) { r.prober = p }
}

// New creates a Runner for the upload screen plan described by cfg.
func New(eng engine.Engine, cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		engine: eng,
		cfg:    cfg,
		plan:   models.UploadScreenPlan(cfg.Target.URL, cfg.Output.ScreenshotPath),
		out:    os.Stdout,
		newID:  uuid.NewString,
	}
	if cfg.Target.Preflight {
		r.prober = probe.New()
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Plan returns the plan the runner executes.
func (r *Runner) Plan() *models.Plan {
	return r.plan
}

// targetURL is the first navigation target of the plan.
func (r *Runner) targetURL() string {
	for _, s := range r.plan.Steps {
		if s.Type == models.StepNavigate {
			return s.URL
		}
	}
	return ""
}
