package diffraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dd0wney/cluso-diffraction/pkg/algorithms"
	"github.com/dd0wney/cluso-diffraction/pkg/logging"
	"github.com/dd0wney/cluso-diffraction/pkg/metrics"
	"github.com/dd0wney/cluso-diffraction/pkg/parallel"
	"github.com/dd0wney/cluso-diffraction/pkg/semgraph"
	"github.com/google/uuid"
)

// PPR seed roles, used as metric labels
const (
	RolePoleA       = "pole_a"
	RolePoleB       = "pole_b"
	RoleEquilibrium = "equilibrium"
)

// Request names the two poles of an audit
type Request struct {
	A string
	B string
}

// Auditor runs diffraction audits over one immutable graph. It is safe for
// concurrent use.
type Auditor struct {
	graph     *semgraph.Graph
	opts      Options
	logger    logging.Logger
	metrics   *metrics.Registry
	predicate DualityPredicate
}

// NewAuditor validates opts and binds them to g. A nil logger discards
// output; a nil registry gets a private one.
func NewAuditor(g *semgraph.Graph, opts Options, logger logging.Logger, reg *metrics.Registry) (*Auditor, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil graph", ErrInvalidRequest)
	}
	if opts.AxisOnly != "" && opts.Policy != PolicyNone {
		opts.Policy = PolicyAxisOnly
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	return &Auditor{
		graph:     g,
		opts:      opts,
		logger:    logger.With(logging.Component("auditor")),
		metrics:   reg,
		predicate: DefaultDualityPredicate(),
	}, nil
}

// WithDualityPredicate replaces the synthesis rejection rule
func (a *Auditor) WithDualityPredicate(p DualityPredicate) *Auditor {
	if p != nil {
		a.predicate = p
	}
	return a
}

// Options returns the validated configuration
func (a *Auditor) Options() Options {
	return a.opts
}

// field is one PPR propagation round
type field struct {
	role   string
	seed   string
	result *algorithms.PPRResult
	warn   error
}

// audit carries the per-run state
type audit struct {
	*Auditor
	ctx    context.Context
	log    logging.Logger
	pool   *parallel.WorkerPool
	view   *semgraph.View
	result *AuditResult
}

// Run audits the equilibrium between req.A and req.B.
//
// Fatal conditions abort with a nil result: *semgraph.GraphLoadError for
// missing poles, *AxisScopeEmptyError and *NoAuditableError under strict
// axis mode. Non-convergence is recorded as a warning and lowers
// confidence.
func (a *Auditor) Run(ctx context.Context, req Request) (*AuditResult, error) {
	start := time.Now()
	res, err := a.run(ctx, req)
	if err != nil {
		a.metrics.RecordAbort(ExitCode(err))
		a.logger.Error("audit aborted", logging.Poles(req.A, req.B), logging.Error(err))
		return nil, err
	}

	a.metrics.RecordAudit(string(res.Verdict), string(res.Confidence), time.Since(start))
	a.logger.Info("audit complete",
		logging.RunID(res.RunID),
		logging.Verdict(string(res.Verdict)),
		logging.String("confidence", string(res.Confidence)),
		logging.Latency(time.Since(start)),
	)
	return res, nil
}

func (a *Auditor) run(ctx context.Context, req Request) (*AuditResult, error) {
	poleA, poleB, err := a.resolvePoles(req)
	if err != nil {
		return nil, err
	}

	pool, err := parallel.NewWorkerPoolWithLogger(a.opts.Workers, a.logger)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	runID := uuid.NewString()
	r := &audit{
		Auditor: a,
		ctx:     ctx,
		log:     a.logger.With(logging.RunID(runID), logging.Poles(poleA, poleB)),
		pool:    pool,
		result: &AuditResult{
			RunID:     runID,
			PoleA:     poleA,
			PoleB:     poleB,
			StartedAt: time.Now().UTC(),
			Converged: true,
		},
	}
	if err := r.execute(); err != nil {
		return nil, err
	}
	r.result.FinishedAt = time.Now().UTC()
	return r.result, nil
}

func (a *Auditor) resolvePoles(req Request) (string, string, error) {
	if req.A == "" || req.B == "" {
		return "", "", fmt.Errorf("%w: both poles are required", ErrInvalidRequest)
	}
	poleA, okA := a.graph.Resolve(req.A)
	poleB, okB := a.graph.Resolve(req.B)
	if !okA || !okB {
		return "", "", a.graph.Require(poleA, poleB)
	}
	if poleA == poleB {
		return "", "", fmt.Errorf("%w: poles must differ, got %q twice", ErrInvalidRequest, poleA)
	}
	return poleA, poleB, nil
}

// stage times fn and checks for cancellation first
func (r *audit) stage(name string, fn func() error) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	err := fn()
	r.metrics.RecordStage(name, time.Since(start))
	r.log.Debug("stage finished", logging.Stage(name), logging.Latency(time.Since(start)))
	return err
}

func (r *audit) execute() error {
	res := r.result
	opts := r.opts

	var pa, pb *field
	if err := r.stage("view", r.buildView); err != nil {
		return err
	}
	if err := r.stage("propagate", func() error {
		pa = &field{role: RolePoleA, seed: res.PoleA}
		pb = &field{role: RolePoleB, seed: res.PoleB}
		return r.propagate(pa, pb)
	}); err != nil {
		return err
	}

	var ranked []algorithms.Candidate
	var first Pass
	if err := r.stage("score", func() error {
		skip := func(id string) bool {
			if id == res.PoleA || id == res.PoleB {
				return true
			}
			n, _ := r.graph.Node(id)
			return opts.excludedKind(n.Kind)
		}
		pool := algorithms.CandidatePool(opts.TopK, skip, pa.result, pb.result)
		ranked = algorithms.ScorePair(pa.result, pb.result, pool, opts.Lambda)
		r.metrics.RecordCandidates(len(ranked))

		scope := InitialScope(r.graph, res.PoleA, res.PoleB, opts.Policy, opts.AxisOnly)
		cands, scope := FilterCandidates(r.graph, ranked, scope)
		first = Pass{Number: 1, Scope: scope, Candidates: cands}
		first.Stability = AnalyzeStability(Admitted(cands, scope.Status), opts.Stability)
		r.log.Info("first pass",
			logging.String("scope_status", string(scope.Status)),
			logging.Strings("scope", scope.Axes),
			logging.Verdict(string(first.Stability.Verdict)),
			logging.Count(len(cands)),
		)
		return nil
	}); err != nil {
		return err
	}

	scopeFailed := first.Scope.Status == ScopeUnconstrained || first.Scope.Status == ScopeExhausted
	if opts.StrictAxis && scopeFailed && !opts.Refine {
		return &AxisScopeEmptyError{
			A: res.PoleA, B: res.PoleB,
			Policy: first.Scope.Policy,
			Axes:   first.Scope.Axes,
			Status: first.Scope.Status,
		}
	}

	final := first
	res.Passes = []Pass{first}
	if err := r.stage("refine", func() error {
		var err error
		final, err = r.refine(ranked, first, scopeFailed)
		return err
	}); err != nil {
		return err
	}

	res.Stability = final.Stability
	res.Equilibrium = final.Stability.Top
	res.ScopeStatus = final.Scope.Status
	res.ScopeAxes = final.Scope.Axes
	res.Verdict = final.Stability.Verdict
	if final.Scope.Status == ScopeUnconstrained {
		res.Verdict = VerdictUnconstrained
	}
	if res.Verdict == VerdictUnconstrained {
		res.Warnings = append(res.Warnings, fmt.Sprintf("poles %q and %q share no axis; result is unconstrained", res.PoleA, res.PoleB))
	}

	eqID := ""
	if res.Equilibrium != nil {
		eqID = res.Equilibrium.NodeID
	}
	if err := r.stage("drift", func() error {
		res.Drift = DetectDrift(r.graph, first.Candidates, res.PoleA, res.PoleB, eqID, opts.Drift)
		for _, s := range res.Drift {
			r.metrics.RecordDrift(string(s.Reason))
		}
		return nil
	}); err != nil {
		return err
	}

	if opts.Synthesis {
		if err := r.stage("synthesis", func() error { return r.synthesize(pa, pb) }); err != nil {
			return err
		}
	}

	res.Confidence = r.confidence(scopeFailed)
	return nil
}

func (r *audit) buildView() error {
	view, err := semgraph.BuildView(r.graph, r.opts.View)
	if err != nil {
		return err
	}
	if err := view.RequireNodes(r.result.PoleA, r.result.PoleB); err != nil {
		return err
	}
	r.view = view
	r.result.Mode = view.Mode()
	r.metrics.UpdateGraphMetrics(string(view.Mode()), r.graph.Len(), r.graph.EdgeCount(), r.graph.Axes().Len(), includedCount(view), view.EdgeCount())
	return nil
}

func includedCount(v *semgraph.View) int {
	n := 0
	for i := 0; i < v.Len(); i++ {
		if v.Included(i) {
			n++
		}
	}
	return n
}

// propagate computes independent PPR fields concurrently. Non-convergence
// is kept as a warning on the field.
func (r *audit) propagate(fields ...*field) error {
	tasks := make([]func() error, len(fields))
	for i, f := range fields {
		tasks[i] = func() error {
			start := time.Now()
			res, err := algorithms.SingleSource(r.view, f.seed, r.opts.PPR)
			if err != nil && !errors.Is(err, algorithms.ErrConvergence) {
				return err
			}
			f.result, f.warn = res, err
			r.metrics.RecordPPR(f.role, res.Iterations, res.Converged, time.Since(start))
			return nil
		}
	}
	if err := r.pool.Run(r.ctx, tasks...); err != nil {
		return err
	}

	for _, f := range fields {
		if f.warn != nil {
			r.result.Converged = false
			r.result.Warnings = append(r.result.Warnings, f.warn.Error())
			r.log.Warn("ppr did not converge", logging.String("role", f.role), logging.Error(f.warn))
		}
	}
	return nil
}

// refine runs the refine state machine and returns the pass to report.
func (r *audit) refine(ranked []algorithms.Candidate, first Pass, scopeFailed bool) (Pass, error) {
	res := r.result
	opts := r.opts
	current := first

	machine := newRefineMachine()
	for opts.Refine && shouldRefine(current) && machine.Begin() {
		second, rec := runRefine(r.graph, ranked, first, res.PoleA, res.PoleB, opts.AxisOnly, opts.Stability)
		machine.Finish()
		res.Refine = rec
		if rec.Provisional != "" {
			res.Passes = append(res.Passes, second)
		}

		r.log.Info("refine pass",
			logging.String("provisional", rec.Provisional),
			logging.Strings("scope", rec.Scope),
			logging.String("outcome", rec.Outcome),
		)

		switch {
		case rec.Recovered && scopeFailed && !opts.StrictAxis:
			r.metrics.RecordRefine(metrics.OutcomeKept)
			res.Warnings = append(res.Warnings, fmt.Sprintf("refine pass found %q stable over [%s], but the poles share no axis; result stays unconstrained",
				second.Stability.Top.NodeID, strings.Join(rec.Scope, ", ")))
		case rec.Recovered:
			r.metrics.RecordRefine(metrics.OutcomeRecovered)
			res.Refine.Adopted = true
			current = second
		case opts.StrictAxis && (second.Scope.Status != ScopeScoped || scopeFailed):
			r.metrics.RecordRefine(metrics.OutcomeNoAuditable)
			return Pass{}, &NoAuditableError{
				A: res.PoleA, B: res.PoleB,
				Provisional: rec.Provisional,
				Scope:       rec.Scope,
				Reason:      rec.Outcome,
			}
		default:
			r.metrics.RecordRefine(metrics.OutcomeKept)
			res.Warnings = append(res.Warnings, "refine pass did not recover a stable equilibrium ("+rec.Outcome+"); first pass kept")
		}
	}
	if opts.Refine && machine.State() == RefineInitial {
		r.metrics.RecordRefine(metrics.OutcomeSkipped)
	}
	return current, nil
}

func (r *audit) synthesize(pa, pb *field) error {
	res := r.result
	if res.Verdict != VerdictStable || res.Equilibrium == nil {
		res.Synthesis = SynthesisResult{Skipped: "equilibrium is not stable"}
		r.metrics.RecordSynthesis(metrics.OutcomeNotStable)
		return nil
	}
	eq := res.Equilibrium.NodeID

	pe := &field{role: RoleEquilibrium, seed: eq}
	if err := r.propagate(pe); err != nil {
		return err
	}

	skip := func(id string) bool { return id == res.PoleA || id == res.PoleB || id == eq }
	pool := algorithms.CandidatePool(r.opts.TopK, skip, pa.result, pb.result, pe.result)
	ranked := algorithms.ScoreTriple(pa.result, pb.result, pe.result, pool, r.opts.TripleWeights, r.opts.SynthesisLambda)

	scope := SynthesisScope(r.graph, res.PoleA, res.PoleB, eq, r.opts.AxisOnly)
	ctx := SynthesisContext{Graph: r.graph, A: res.PoleA, B: res.PoleB, EQ: eq}
	res.Synthesis = SelectSynthesis(ctx, ranked, scope, r.predicate)

	if res.Synthesis.Node != nil {
		r.metrics.RecordSynthesis(metrics.OutcomeFound)
		r.log.Info("synthesis found", logging.Node(res.Synthesis.Node.NodeID), logging.Count(len(res.Synthesis.Rejected)))
	} else {
		r.metrics.RecordSynthesis(metrics.OutcomeNone)
		r.log.Info("no synthesis", logging.Count(len(res.Synthesis.Rejected)))
	}
	return nil
}

// confidence is HIGH only for a stable verdict over a genuine scope with
// every field converged.
func (r *audit) confidence(scopeFailed bool) Confidence {
	res := r.result
	switch {
	case res.Verdict != VerdictStable:
		return ConfidenceLow
	case res.ScopeStatus != ScopeScoped && res.ScopeStatus != ScopeUnrestricted:
		return ConfidenceLow
	case !res.Converged:
		return ConfidenceLow
	case res.Refine.Adopted && scopeFailed:
		// the adopted scope came from a provisional candidate, not the poles
		return ConfidenceLow
	}
	return ConfidenceHigh
}
