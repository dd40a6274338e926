// Package pipeline drives metadata through parsing, topology building,
// validation and rendering for one or more targets.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mmlb/packethost-packet-networking/internal/logging"
	"github.com/mmlb/packethost-packet-networking/internal/metadata"
	"github.com/mmlb/packethost-packet-networking/internal/metrics"
	"github.com/mmlb/packethost-packet-networking/internal/render"
	"github.com/mmlb/packethost-packet-networking/internal/topology"
)

// ErrNoTargets is returned when Run is called without any target key.
var ErrNoTargets = errors.New("no targets requested")

// Output is the rendered result for one target.
type Output struct {
	Target    string
	Artifacts []render.Artifact
	Manifest  []string
}

// Result is the outcome of a successful run.
type Result struct {
	RunID    uuid.UUID
	Graph    *topology.Graph
	Outputs  []Output
	Warnings []topology.Warning
}

// Output returns the output for a canonical target key.
func (r *Result) Output(target string) (Output, bool) {
	for _, o := range r.Outputs {
		if o.Target == target {
			return o, true
		}
	}
	return Output{}, false
}

// Pipeline is safe for concurrent use; it holds no per-run state.
type Pipeline struct {
	reg     *render.Registry
	logger  *logging.Logger
	metrics *metrics.Registry
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics records pass counters and render timings into m.
func WithMetrics(m *metrics.Registry) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New returns a pipeline rendering through reg.
func New(reg *render.Registry, opts ...Option) *Pipeline {
	p := &Pipeline{reg: reg, logger: logging.Discard()}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithComponent("pipeline")
	return p
}

// Run renders raw canonical metadata for every requested target.
// Either every target succeeds or the call fails with a *PhaseError and no output.
func (p *Pipeline) Run(ctx context.Context, raw map[string]any, targets ...string) (res *Result, err error) {
	runID := uuid.New()
	log := p.logger.WithFields(map[string]any{"run": runID.String()})
	start := time.Now()

	defer func() {
		var phase Phase
		var perr *PhaseError
		if errors.As(err, &perr) {
			phase = perr.Phase
			log.Error("run failed", "phase", string(phase), "target", perr.Target, "error", perr.Err)
		} else if err == nil {
			log.Info("run complete", "targets", len(res.Outputs), "duration", time.Since(start))
		}
		if p.metrics != nil {
			p.metrics.RecordRun(string(phase), err)
		}
	}()

	renderers, g, err := p.prepare(ctx, log, raw, targets)
	if err != nil {
		return nil, err
	}

	outputs, err := p.renderAll(ctx, log, g, renderers)
	if err != nil {
		return nil, err
	}

	return &Result{
		RunID:    runID,
		Graph:    g,
		Outputs:  outputs,
		Warnings: g.Warnings(),
	}, nil
}

// Check parses, builds and validates raw for every target without rendering.
func (p *Pipeline) Check(ctx context.Context, raw map[string]any, targets ...string) (*topology.Graph, error) {
	_, g, err := p.prepare(ctx, p.logger, raw, targets)
	return g, err
}

func (p *Pipeline) prepare(ctx context.Context, log *logging.Logger, raw map[string]any, targets []string) ([]render.Renderer, *topology.Graph, error) {
	if len(targets) == 0 {
		return nil, nil, &PhaseError{Phase: PhaseResolve, Err: ErrNoTargets}
	}
	renderers, err := p.reg.Resolve(targets...)
	if err != nil {
		var uerr *render.UnknownTargetError
		target := ""
		if errors.As(err, &uerr) {
			target = uerr.Target
		}
		return nil, nil, &PhaseError{Phase: PhaseResolve, Target: target, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, &PhaseError{Phase: PhaseParse, Err: err}
	}

	doc, err := metadata.Parse(raw)
	if err != nil {
		return nil, nil, &PhaseError{Phase: PhaseParse, Err: err}
	}

	g, err := topology.Build(doc)
	if err != nil {
		return nil, nil, &PhaseError{Phase: PhaseBuild, Err: err}
	}
	for _, w := range g.Warnings() {
		log.Warn("topology warning", "node", w.Node, "warning", w.Message)
	}
	if p.metrics != nil {
		p.metrics.Warnings.Add(float64(len(g.Warnings())))
		p.metrics.SetTopology(len(g.Physicals()), len(g.Bonds()), len(g.VLANs()))
	}
	log.Debug("topology built",
		"interfaces", g.Len(),
		"bonds", len(g.Bonds()),
		"vlans", len(g.VLANs()),
	)

	for _, r := range renderers {
		if err := topology.Validate(g, r.Capabilities()); err != nil {
			var verr *topology.ValidationError
			if errors.As(err, &verr) {
				verr.Target = r.Target()
			}
			return nil, nil, &PhaseError{Phase: PhaseValidate, Target: r.Target(), Err: err}
		}
	}
	return renderers, g, nil
}

func (p *Pipeline) renderAll(ctx context.Context, log *logging.Logger, g *topology.Graph, renderers []render.Renderer) ([]Output, error) {
	outputs := make([]Output, len(renderers))
	errs := make([]error, len(renderers))

	// Every renderer runs to completion; the earliest failure in request
	// order is the one reported.
	var eg errgroup.Group
	for i, r := range renderers {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return err
			}
			start := time.Now()
			artifacts, err := renderSafely(r, g)
			if p.metrics != nil {
				p.metrics.RecordRender(r.Target(), time.Since(start), len(artifacts), contentSize(artifacts), err)
			}
			if err != nil {
				errs[i] = err
				return err
			}
			render.SortArtifacts(artifacts)
			outputs[i] = Output{
				Target:    r.Target(),
				Artifacts: artifacts,
				Manifest:  render.Manifest(artifacts),
			}
			log.Debug("rendered", "target", r.Target(), "files", len(artifacts), "duration", time.Since(start))
			return nil
		})
	}
	if eg.Wait() == nil {
		return outputs, nil
	}
	for i, err := range errs {
		if err != nil {
			return nil, &PhaseError{Phase: PhaseRender, Target: renderers[i].Target(), Err: err}
		}
	}
	return nil, &PhaseError{Phase: PhaseRender, Err: errors.New("render failed")}
}

// renderSafely turns a renderer panic into an error.
func renderSafely(r render.Renderer, g *topology.Graph) (as []render.Artifact, err error) {
	defer func() {
		if v := recover(); v != nil {
			as, err = nil, fmt.Errorf("renderer %s panicked: %v", r.Target(), v)
		}
	}()
	return r.Render(g)
}

func contentSize(as []render.Artifact) int {
	n := 0
	for _, a := range as {
		n += len(a.Content)
	}
	return n
}
