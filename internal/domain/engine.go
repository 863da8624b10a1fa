package domain

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mouse-blink/culprit/internal/adapter"
	m "github.com/mouse-blink/culprit/internal/model"
)

// State identifies a phase of the minimization engine.
type State string

// Engine states. INIT through SEARCHING are transient; the rest terminal.
const (
	StateInit          State = "INIT"
	StateProbingBounds State = "PROBING_BOUNDS"
	StateSearching     State = "SEARCHING"
	StateConverged     State = "CONVERGED"
	StateExhausted     State = "EXHAUSTED"
	StateAborted       State = "ABORTED"
)

// Observer receives engine lifecycle events for live reporting. All methods
// may be called from concurrent trial goroutines.
type Observer interface {
	StateChanged(state State)
	TrialStarted(subset string)
	TrialCompleted(trial m.Trial)
	CandidateReduced(remaining, total int)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) StateChanged(State)        {}
func (NopObserver) TrialStarted(string)       {}
func (NopObserver) TrialCompleted(m.Trial)    {}
func (NopObserver) CandidateReduced(_, _ int) {}

// EngineOptions tunes the search.
type EngineOptions struct {
	// MaxRetries bounds how often an INFRA_ERROR verdict is retried for
	// one subset before the run aborts.
	MaxRetries int

	// RetryBackoff is the initial delay between retries; it doubles per
	// attempt.
	RetryBackoff time.Duration

	// MaxTrials caps oracle invocations for the whole run. Zero means
	// unlimited.
	MaxTrials int

	// MaxWorkers bounds concurrent trial dispatch for independent
	// siblings. Values below 2 keep the search strictly serial, which is
	// the safe default when the oracle mutates shared build state.
	MaxWorkers int

	// ConfirmFinal re-runs the converged minimal subset once before
	// reporting, surfacing oracle non-determinism as a warning.
	ConfirmFinal bool
}

// Engine drives the delta-debugging search over the difference set. It asks
// the renderer to materialize each trial subset, hands the command to the
// oracle, and narrows the candidate set from the classified verdicts,
// consulting the trial cache before every dispatch.
type Engine struct {
	diff     m.DifferenceSet
	renderer *Renderer
	oracle   adapter.Oracle
	cache    *verdictCache
	opts     EngineOptions
	observer Observer
	log      *zap.Logger

	mu           sync.Mutex
	state        State
	trials       []m.Trial
	invocations  int
	cacheHits    int
	warnings     []string
	best         m.Subset
	nonMonotonic bool
}

// NewEngine constructs an Engine over the given difference set.
func NewEngine(diff m.DifferenceSet, renderer *Renderer, oracle adapter.Oracle, opts EngineOptions, observer Observer, log *zap.Logger) *Engine {
	if observer == nil {
		observer = NopObserver{}
	}

	if log == nil {
		log = zap.NewNop()
	}

	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = time.Second
	}

	return &Engine{
		diff:     diff,
		renderer: renderer,
		oracle:   oracle,
		cache:    newVerdictCache(),
		opts:     opts,
		observer: observer,
		log:      log,
	}
}

// Run executes the full state machine and always returns a report; the
// returned error is non-nil only for ABORTED runs and wraps the taxonomy
// sentinel that caused the abort.
func (e *Engine) Run(ctx context.Context) (m.Report, error) {
	started := time.Now()

	units := e.diff.Units()
	full := m.Subset(units)

	e.setState(StateInit)

	if err := e.renderer.Validate(e.diff.Apply(full)); err != nil {
		return e.abort(started, err)
	}

	if e.diff.Empty() {
		return e.abort(started, configf("baseline and target have no differing options"))
	}

	e.setState(StateProbingBounds)
	e.setBest(full, len(units))

	anchors, err := e.verdictAll(ctx, []m.Subset{{}, full})
	if err != nil {
		return e.terminate(started, err)
	}

	if anchors[0] != m.VerdictPass || anchors[1] != m.VerdictFail {
		return e.abort(started, configf(
			"baseline/target do not reproduce a detectable difference (baseline=%s target=%s)",
			anchors[0], anchors[1]))
	}

	e.setState(StateSearching)

	minimal, err := e.search(ctx, units)
	if err != nil {
		return e.terminate(started, err)
	}

	if e.opts.ConfirmFinal {
		e.confirm(ctx, minimal)
	}

	e.setState(StateConverged)

	return e.buildReport(m.StatusConverged, minimal, "", started), nil
}

// search runs the ddmin-style divide-and-test loop and returns a 1-minimal
// failure-inducing subset of the given units.
func (e *Engine) search(ctx context.Context, units []m.Unit) (m.Subset, error) {
	candidate := units
	granularity := 2

	for len(candidate) >= 2 {
		if e.isNonMonotonic() {
			return e.linearReduce(ctx, candidate)
		}

		chunks := partition(candidate, granularity)

		// Test each chunk alone: baseline context plus the chunk.
		chunkSubsets := make([]m.Subset, len(chunks))
		for i, c := range chunks {
			chunkSubsets[i] = m.Subset(c)
		}

		idx, _, err := e.firstFailing(ctx, chunkSubsets)
		if err != nil {
			return nil, err
		}

		if idx >= 0 {
			candidate = chunks[idx]
			granularity = 2

			e.setBest(m.Subset(candidate), len(units))

			continue
		}

		// Test each complement: target context minus the chunk.
		complements := make([]m.Subset, len(chunks))
		for i := range chunks {
			complements[i] = without(candidate, chunks[i])
		}

		idx, verdicts, err := e.firstFailing(ctx, complements)
		if err != nil {
			return nil, err
		}

		if idx >= 0 {
			candidate = complements[idx]
			granularity = maxInt(granularity-1, 2)

			e.setBest(m.Subset(candidate), len(units))

			continue
		}

		if granularity >= len(candidate) {
			// Every single-unit removal flipped the verdict to PASS:
			// the candidate is 1-minimal.
			break
		}

		if countPassing(verdicts) >= 2 {
			// Removing either of two disjoint chunks restores PASS, so
			// the failure needs co-presence across chunks. Binary
			// chunking is unsound here; fall back to the linear sweep.
			e.markNonMonotonic()

			continue
		}

		granularity = minInt(granularity*2, len(candidate))
	}

	return m.Subset(candidate), nil
}

// linearReduce tests candidate-minus-one-unit for every unit until no
// single removal keeps the failure, yielding a 1-minimal subset even under
// non-monotonic option interactions.
func (e *Engine) linearReduce(ctx context.Context, candidate []m.Unit) (m.Subset, error) {
	for changed := true; changed; {
		changed = false

		for i := range candidate {
			reduced := without(candidate, candidate[i:i+1])

			verdict, err := e.verdict(ctx, reduced)
			if err != nil {
				return nil, err
			}

			if verdict == m.VerdictFail {
				candidate = reduced
				changed = true

				e.setBest(m.Subset(candidate), len(e.diff.Units()))

				break
			}
		}
	}

	return m.Subset(candidate), nil
}

// firstFailing evaluates the subsets and returns the index of the first
// FAIL, or -1. Serial mode stops at the first FAIL to conserve the trial
// budget; with workers configured the siblings dispatch concurrently.
func (e *Engine) firstFailing(ctx context.Context, subsets []m.Subset) (int, []m.Verdict, error) {
	verdicts := make([]m.Verdict, len(subsets))

	if e.opts.MaxWorkers <= 1 {
		for i, s := range subsets {
			v, err := e.verdict(ctx, s)
			if err != nil {
				return -1, nil, err
			}

			verdicts[i] = v

			if v == m.VerdictFail {
				return i, verdicts, nil
			}
		}

		return -1, verdicts, nil
	}

	all, err := e.verdictAll(ctx, subsets)
	if err != nil {
		return -1, nil, err
	}

	for i, v := range all {
		if v == m.VerdictFail {
			return i, all, nil
		}
	}

	return -1, all, nil
}

// verdictAll evaluates all subsets, concurrently when workers are
// configured. Subset order is preserved in the result.
func (e *Engine) verdictAll(ctx context.Context, subsets []m.Subset) ([]m.Verdict, error) {
	verdicts := make([]m.Verdict, len(subsets))

	if e.opts.MaxWorkers <= 1 {
		for i, s := range subsets {
			v, err := e.verdict(ctx, s)
			if err != nil {
				return nil, err
			}

			verdicts[i] = v
		}

		return verdicts, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.MaxWorkers)

	for i, s := range subsets {
		i, s := i, s

		g.Go(func() error {
			v, err := e.verdict(gctx, s)
			if err != nil {
				return err
			}

			verdicts[i] = v

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return verdicts, nil
}

// verdict returns the classification for one subset, consulting the cache
// first. A subset is never handed to the oracle twice within a run.
func (e *Engine) verdict(ctx context.Context, subset m.Subset) (m.Verdict, error) {
	key := subset.Key()

	v, shared, err := e.cache.resolve(key, func() (m.Verdict, error) {
		return e.execute(ctx, subset)
	})
	if err != nil {
		return "", err
	}

	if shared {
		e.recordCacheHit()
	}

	return v, nil
}

// execute runs the oracle for subset, retrying infra errors with backoff.
// Every attempt is appended to the trial log.
func (e *Engine) execute(ctx context.Context, subset m.Subset) (m.Verdict, error) {
	options := e.diff.Apply(subset)

	segments, err := e.renderer.Segments(options)
	if err != nil {
		return "", err
	}

	inv := adapter.Invocation{
		Command:  e.renderer.Render(options),
		Segments: segments,
	}

	for attempt := 1; ; attempt++ {
		if err := e.consumeBudget(); err != nil {
			return "", err
		}

		e.observer.TrialStarted(subset.Describe())

		startedAt := time.Now()

		outcome, err := e.oracle.Run(ctx, inv)
		if err != nil {
			return "", err
		}

		trial := m.Trial{
			Subset:    subset,
			Command:   inv.Command,
			Verdict:   outcome.Verdict,
			ExitCode:  outcome.ExitCode,
			Attempt:   attempt,
			Duration:  outcome.Duration,
			StartedAt: startedAt,
		}

		e.appendTrial(trial)
		e.observer.TrialCompleted(trial)

		e.log.Info("trial executed",
			zap.String("subset", subset.Describe()),
			zap.String("verdict", string(outcome.Verdict)),
			zap.Int("exit_code", outcome.ExitCode),
			zap.Int("attempt", attempt),
			zap.Duration("duration", outcome.Duration))

		if outcome.Verdict != m.VerdictInfraError {
			return outcome.Verdict, nil
		}

		if attempt > e.opts.MaxRetries {
			return "", infraf("subset %q failed after %d attempts: %s",
				subset.Describe(), attempt, inv.Command)
		}

		backoff := e.opts.RetryBackoff << (attempt - 1)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// confirm re-runs the final minimal subset against a fresh cache entry. A
// verdict that disagrees with the recorded one marks the oracle as flaky.
func (e *Engine) confirm(ctx context.Context, minimal m.Subset) {
	key := minimal.Key()

	previous, ok := e.cache.get(key)
	if !ok {
		return
	}

	e.cache.invalidate(key)

	verdict, err := e.verdict(ctx, minimal)
	if err != nil {
		e.addWarning("confirmation run failed: " + err.Error())
		return
	}

	if verdict != previous {
		e.addWarning("flaky oracle: subset " + minimal.Describe() +
			" yielded " + string(verdict) + " after " + string(previous) +
			"; minimization validity is in question")
	}
}

// terminate translates a search error into the matching terminal report.
func (e *Engine) terminate(started time.Time, err error) (m.Report, error) {
	if errors.Is(err, errBudget) {
		e.setState(StateExhausted)

		best := e.bestCandidate()
		diag := "trial budget exhausted before convergence; best reduction is not guaranteed minimal"

		return e.buildReport(m.StatusExhausted, best, diag, started), nil
	}

	return e.abort(started, err)
}

func (e *Engine) abort(started time.Time, err error) (m.Report, error) {
	e.setState(StateAborted)

	return e.buildReport(m.StatusAborted, nil, err.Error(), started), err
}

func (e *Engine) buildReport(status m.Status, minimal m.Subset, diagnostic string, started time.Time) m.Report {
	e.mu.Lock()
	defer e.mu.Unlock()

	report := m.Report{
		Status:        status,
		MinimalSubset: minimal,
		Diagnostic:    diagnostic,
		Warnings:      e.warnings,
		Trials:        e.trials,
		Stats: m.Stats{
			Trials:    e.invocations,
			CacheHits: e.cacheHits,
			WallTime:  time.Since(started),
		},
	}

	if status == m.StatusConverged {
		report.PassingOptions = e.diff.Apply(without(e.diff.Units(), minimal))
	}

	return report
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()

	e.log.Info("engine state changed", zap.String("state", string(s)))
	e.observer.StateChanged(s)
}

// CurrentState reports the engine state, for inspection by reporters.
func (e *Engine) CurrentState() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

func (e *Engine) setBest(s m.Subset, total int) {
	e.mu.Lock()
	e.best = s
	e.mu.Unlock()

	e.observer.CandidateReduced(len(s), total)
}

func (e *Engine) bestCandidate() m.Subset {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.best
}

func (e *Engine) consumeBudget() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.opts.MaxTrials > 0 && e.invocations >= e.opts.MaxTrials {
		return errBudget
	}

	e.invocations++

	return nil
}

func (e *Engine) appendTrial(t m.Trial) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.trials = append(e.trials, t)
}

func (e *Engine) recordCacheHit() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cacheHits++
}

func (e *Engine) addWarning(w string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.warnings = append(e.warnings, w)
}

func (e *Engine) markNonMonotonic() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.nonMonotonic {
		e.nonMonotonic = true
		e.warnings = append(e.warnings,
			"non-monotonic option interaction detected; downgraded to linear one-token-at-a-time testing")
	}
}

func (e *Engine) isNonMonotonic() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.nonMonotonic
}

// partition splits units into n contiguous chunks of near-equal size.
func partition(units []m.Unit, n int) [][]m.Unit {
	if n > len(units) {
		n = len(units)
	}

	chunks := make([][]m.Unit, 0, n)
	size := len(units) / n
	rem := len(units) % n

	start := 0

	for i := 0; i < n; i++ {
		end := start + size
		if i < rem {
			end++
		}

		chunks = append(chunks, units[start:end])
		start = end
	}

	return chunks
}

// without returns the units of set that are not in removed.
func without(set []m.Unit, removed []m.Unit) m.Subset {
	drop := make(map[m.Token]struct{}, len(removed))
	for _, u := range removed {
		drop[u.Token] = struct{}{}
	}

	out := make(m.Subset, 0, len(set))

	for _, u := range set {
		if _, ok := drop[u.Token]; !ok {
			out = append(out, u)
		}
	}

	return out
}

func countPassing(verdicts []m.Verdict) int {
	n := 0

	for _, v := range verdicts {
		if v == m.VerdictPass {
			n++
		}
	}

	return n
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}

	return b
}
