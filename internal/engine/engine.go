package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dilla-go/dilla/internal/config"
	"github.com/dilla-go/dilla/internal/generate"
	"github.com/dilla-go/dilla/internal/schema"
	"github.com/dilla-go/dilla/internal/store"
)

// State is a stage of a population run.
type State string

const (
	StateIdle       State = "idle"
	StateConfirming State = "confirming"
	StatePlanning   State = "planning"
	StatePopulating State = "populating"
	StateLinking    State = "linking"
	StateDone       State = "done"
	StateAborted    State = "aborted"
	StateFailed     State = "failed"
)

// Confirmer asks the operator whether a run may write to the store.
type Confirmer interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, message string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, message string) (bool, error) {
	return f(ctx, message)
}

// Request selects what a run populates.
type Request struct {
	// Selectors are "namespace" or "namespace.Model" arguments.
	Selectors  []string
	Namespaces []string
	Models     []string
	Iterations int
	NoDoubt    bool
	AutoOrder  bool
	// Seed overrides the configured seed when non-zero.
	Seed uint64
}

// ModelResult counts what happened to one model.
type ModelResult struct {
	Model     string `json:"model" yaml:"model"`
	Skipped   bool   `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Persisted int    `json:"persisted" yaml:"persisted"`
	Discarded int    `json:"discarded" yaml:"discarded"`
	Links     int    `json:"links" yaml:"links"`
}

// Result describes a finished or stopped run.
type Result struct {
	State    State          `json:"state" yaml:"state"`
	Target   string         `json:"target" yaml:"target"`
	Seed     uint64         `json:"seed" yaml:"seed"`
	Ordered  bool           `json:"ordered" yaml:"ordered"`
	Models   []*ModelResult `json:"models" yaml:"models"`
	Started  time.Time      `json:"started" yaml:"started"`
	Finished time.Time      `json:"finished" yaml:"finished"`
	Error    string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// Totals sums the per-model counters.
func (r *Result) Totals() (persisted, discarded, links int) {
	for _, m := range r.Models {
		persisted += m.Persisted
		discarded += m.Discarded
		links += m.Links
	}
	return persisted, discarded, links
}

// Engine runs populate-then-link passes over a catalog.
type Engine struct {
	Config    *config.Config
	Catalog   *schema.Catalog
	Store     store.Store
	Confirmer Confirmer
	Uploader  generate.Uploader
	Logger    *slog.Logger
	// Prepare, when set, runs once the run is confirmed and before anything
	// is planned or written. A declined run never calls it.
	Prepare func(ctx context.Context) error
	// Target names the store in the confirmation prompt and the result.
	Target string

	state State
}

// New creates an Engine over the given catalog and store.
func New(cfg *config.Config, catalog *schema.Catalog, st store.Store, logger *slog.Logger) *Engine {
	return &Engine{
		Config:  cfg,
		Catalog: catalog,
		Store:   st,
		Logger:  logger,
		Target:  cfg.Store.Type,
		state:   StateIdle,
	}
}

// State returns the stage the engine last reached.
func (e *Engine) State() State {
	return e.state
}

func (e *Engine) transition(res *Result, s State) {
	e.Logger.Debug("state change", "from", e.state, "to", s)
	e.state = s
	res.State = s
}

// Run confirms, plans, populates every planned model and then links
// many-to-many relations. A declined confirmation returns an Aborted result
// and no error.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	res := &Result{Target: e.Target, Started: time.Now()}
	defer func() { res.Finished = time.Now() }()

	if e.Config.Debug {
		e.Logger.Debug("debug mode, skipping confirmation")
	} else {
		e.transition(res, StateConfirming)
		ok, err := e.confirm(ctx)
		if err != nil {
			return e.fail(res, fmt.Errorf("confirmation: %w", err))
		}
		if !ok {
			e.Logger.Info("population cancelled", "target", e.Target)
			e.transition(res, StateAborted)
			return res, nil
		}
	}

	if e.Prepare != nil {
		if err := e.Prepare(ctx); err != nil {
			return e.fail(res, fmt.Errorf("preparing run: %w", err))
		}
	}

	e.transition(res, StatePlanning)
	plan, err := BuildPlan(e.Catalog, req, e.Logger)
	if err != nil {
		return e.fail(res, fmt.Errorf("planning: %w", err))
	}
	res.Ordered = plan.Ordered
	if !plan.Ordered {
		e.Logger.Warn("no population order declared, foreign keys may be left empty")
	}

	seed := req.Seed
	if seed == 0 {
		seed = e.Config.Seed
	}
	src := generate.NewSource(seed)
	res.Seed = src.Seed()
	pool := NewPool(src)
	if e.Config.UseExisting {
		if err := pool.SeedFromStore(ctx, e.Store, e.Catalog.Models()); err != nil {
			return e.fail(res, fmt.Errorf("loading existing rows: %w", err))
		}
	}

	gens := generate.NewGenerators(src, pool, e.Config.URLs, e.Config.SecretKey, e.Logger)
	populator := &Populator{
		Resolver: generate.NewResolver(gens, e.images(gens)),
		Store:    e.Store,
		NoDoubt:  req.NoDoubt,
		Logger:   e.Logger,
	}

	iterations := req.Iterations
	if iterations <= 0 {
		iterations = e.Config.Iterations
	}
	if iterations <= 0 {
		iterations = config.DefaultIterations
	}

	e.transition(res, StatePopulating)
	created := make(map[*schema.Model][]*store.Instance)
	for _, m := range plan.Models {
		mr := &ModelResult{Model: m.Key()}
		res.Models = append(res.Models, mr)
		if m.Policy != nil && m.Policy.SkipModel {
			e.Logger.Info("skipping model", "model", m.Key())
			mr.Skipped = true
			continue
		}

		for range iterations {
			inst, err := populator.Populate(ctx, m)
			if err != nil {
				return e.fail(res, err)
			}
			if inst == nil {
				mr.Discarded++
				continue
			}
			pool.Add(inst)
			created[m] = append(created[m], inst)
			mr.Persisted++
		}
		e.Logger.Info("populated model", "model", m.Key(), "persisted", mr.Persisted, "discarded", mr.Discarded)
	}

	e.transition(res, StateLinking)
	linker := &Linker{Source: src, Pool: pool, Store: e.Store, Logger: e.Logger}
	for i, m := range plan.Models {
		if len(m.Relations) == 0 || res.Models[i].Skipped {
			continue
		}
		n, err := linker.Link(ctx, m, created[m])
		if err != nil {
			return e.fail(res, err)
		}
		res.Models[i].Links = n
	}

	e.transition(res, StateDone)
	return res, nil
}

func (e *Engine) confirm(ctx context.Context) (bool, error) {
	if e.Confirmer == nil {
		return false, fmt.Errorf("no confirmer configured and debug mode is off")
	}
	msg := fmt.Sprintf("This will write generated rows to %s. Type \"yes\" to continue.", e.Target)
	return e.Confirmer.Confirm(ctx, msg)
}

// images returns the image synthesizer for this run, or nil when images are
// disabled or the staging directory cannot be prepared.
func (e *Engine) images(gens *generate.Generators) generate.ImageSynth {
	if !e.Config.Images.Enabled {
		return nil
	}
	painter, err := generate.NewPainter(gens, e.Config.Images.StagingDir, e.Uploader)
	if err != nil {
		e.Logger.Warn("image synthesis unavailable", "error", err)
		return nil
	}
	return painter
}

func (e *Engine) fail(res *Result, err error) (*Result, error) {
	e.transition(res, StateFailed)
	res.Error = err.Error()
	return res, err
}
