package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mouse-blink/culprit/internal/adapter"
	m "github.com/mouse-blink/culprit/internal/model"
)

// MinimizeArgs carries the engine inputs consumed from the CLI layer.
type MinimizeArgs struct {
	Baseline  string
	Target    string
	Predicate string

	ArgFormat    string
	ArgSeparator string

	Timeout    time.Duration
	MaxRetries int
	MaxTrials  int
	MaxWorkers int

	ProjectDir string
	Reports    string
	Confirm    bool

	// ExpandImplied resolves optimizer options implied by umbrella
	// levels through the configured compiler before differencing.
	ExpandImplied bool
	Compiler      string
}

// DiffArgs carries the inputs for a differencing-only run.
type DiffArgs struct {
	Baseline      string
	Target        string
	ExpandImplied bool
	Compiler      string
}

// ViewArgs selects a stored report to load.
type ViewArgs struct {
	Reports string
	File    string
}

// OracleFactory builds the oracle executor for one run's policy.
type OracleFactory func(cfg adapter.OracleConfig) adapter.Oracle

// ExpanderFactory builds the implied-option expander for a compiler.
type ExpanderFactory func(cc string) adapter.OptionExpander

// Workflow is the entry point the CLI layer drives: it wires tokenizing,
// differencing, and the minimization engine, and persists the outcome.
type Workflow interface {
	Minimize(ctx context.Context, args MinimizeArgs) (m.Report, error)
	Diff(ctx context.Context, args DiffArgs) (m.DifferenceSet, error)
	LoadReport(args ViewArgs) (m.Report, error)
}

type workflow struct {
	tokenizer   Tokenizer
	store       adapter.ReportStore
	newOracle   OracleFactory
	newExpander ExpanderFactory
	observer    Observer
	log         *zap.Logger
}

// NewWorkflow creates a Workflow instance with the provided collaborators.
func NewWorkflow(tokenizer Tokenizer, store adapter.ReportStore, newOracle OracleFactory, newExpander ExpanderFactory, observer Observer, log *zap.Logger) Workflow {
	if log == nil {
		log = zap.NewNop()
	}

	if observer == nil {
		observer = NopObserver{}
	}

	return &workflow{
		tokenizer:   tokenizer,
		store:       store,
		newOracle:   newOracle,
		newExpander: newExpander,
		observer:    observer,
		log:         log,
	}
}

// Minimize runs the full pipeline. The returned report is valid whenever
// the engine reached a terminal state; the error is non-nil for
// configuration failures and aborted runs.
func (w *workflow) Minimize(ctx context.Context, args MinimizeArgs) (m.Report, error) {
	diff, err := w.difference(ctx, args.Baseline, args.Target, args.ExpandImplied, args.Compiler)
	if err != nil {
		return m.Report{}, err
	}

	renderer, err := NewRenderer(args.Predicate, args.ArgFormat, args.ArgSeparator)
	if err != nil {
		return m.Report{}, err
	}

	oracle := w.newOracle(adapter.OracleConfig{
		Timeout:    args.Timeout,
		ProjectDir: args.ProjectDir,
	})

	engine := NewEngine(diff, renderer, oracle, EngineOptions{
		MaxRetries:   args.MaxRetries,
		MaxTrials:    args.MaxTrials,
		MaxWorkers:   args.MaxWorkers,
		ConfirmFinal: args.Confirm,
	}, w.observer, w.log)

	report, runErr := engine.Run(ctx)
	report.RunID = uuid.NewString()

	if args.Reports != "" {
		path, saveErr := w.store.Save(args.Reports, report)
		if saveErr != nil {
			w.log.Warn("failed to persist report", zap.Error(saveErr))
		} else {
			w.log.Info("report persisted", zap.String("path", path))
		}
	}

	return report, runErr
}

// Diff tokenizes both option strings and returns their difference set
// without executing any trial.
func (w *workflow) Diff(ctx context.Context, args DiffArgs) (m.DifferenceSet, error) {
	return w.difference(ctx, args.Baseline, args.Target, args.ExpandImplied, args.Compiler)
}

// LoadReport reads a stored report: a named file when given, otherwise the
// latest one in the reports directory.
func (w *workflow) LoadReport(args ViewArgs) (m.Report, error) {
	if args.File != "" {
		return w.store.Load(args.File)
	}

	return w.store.LoadLatest(args.Reports)
}

func (w *workflow) difference(ctx context.Context, baseline, target string, expand bool, cc string) (m.DifferenceSet, error) {
	baseSeq, err := w.tokenizer.Tokenize(baseline)
	if err != nil {
		return m.DifferenceSet{}, err
	}

	targetSeq, err := w.tokenizer.Tokenize(target)
	if err != nil {
		return m.DifferenceSet{}, err
	}

	if expand {
		expander := w.newExpander(cc)

		if baseSeq, err = expander.Expand(ctx, baseSeq); err != nil {
			return m.DifferenceSet{}, configf("baseline expansion failed: %v", err)
		}

		if targetSeq, err = expander.Expand(ctx, targetSeq); err != nil {
			return m.DifferenceSet{}, configf("target expansion failed: %v", err)
		}
	}

	return Diff(baseSeq, targetSeq), nil
}
