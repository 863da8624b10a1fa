package domain

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mouse-blink/culprit/internal/adapter"
	m "github.com/mouse-blink/culprit/internal/model"
)

// fakeExpander rewrites option sequences with a fixed function, standing in
// for the compiler-backed expander.
type fakeExpander struct {
	expand func(m.Sequence) (m.Sequence, error)
}

func (f *fakeExpander) Expand(_ context.Context, args m.Sequence) (m.Sequence, error) {
	return f.expand(args)
}

func newTestWorkflow(oracle adapter.Oracle, expander adapter.OptionExpander, oracleBuilds *int32) Workflow {
	newOracle := func(adapter.OracleConfig) adapter.Oracle {
		if oracleBuilds != nil {
			atomic.AddInt32(oracleBuilds, 1)
		}

		return oracle
	}

	newExpander := func(string) adapter.OptionExpander {
		return expander
	}

	return NewWorkflow(NewTokenizer(), adapter.NewReportStore(), newOracle, newExpander, nil, nil)
}

func TestWorkflow_MinimizeEndToEnd(t *testing.T) {
	reportsDir := t.TempDir()

	oracle := newFakeOracle(failWhen(func(cmd string) bool {
		return strings.Contains(cmd, "-fno-inline")
	}))

	wf := newTestWorkflow(oracle, nil, nil)

	report, err := wf.Minimize(context.Background(), MinimizeArgs{
		Baseline:  "-Og",
		Target:    "-O2 -fno-inline",
		Predicate: "oracle {}",
		Reports:   reportsDir,
	})
	require.NoError(t, err)

	require.Equal(t, m.StatusConverged, report.Status)
	require.Equal(t, []string{"-fno-inline"}, subsetTokens(report.MinimalSubset))
	require.Equal(t, []string{"-O2"}, report.PassingOptions.Strings())
	require.NotEmpty(t, report.RunID)

	entries, err := os.ReadDir(reportsDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	loaded, err := wf.LoadReport(ViewArgs{Reports: reportsDir})
	require.NoError(t, err)
	require.Equal(t, report.RunID, loaded.RunID)
	require.Equal(t, m.StatusConverged, loaded.Status)
	require.Equal(t, []string{"-fno-inline"}, subsetTokens(loaded.MinimalSubset))
	require.Len(t, loaded.Trials, report.Stats.Trials)
}

func TestWorkflow_PredicateWithoutPlaceholderRejected(t *testing.T) {
	oracle := newFakeOracle(failWhen(func(string) bool { return true }))
	wf := newTestWorkflow(oracle, nil, nil)

	_, err := wf.Minimize(context.Background(), MinimizeArgs{
		Baseline:  "-Og",
		Target:    "-O2",
		Predicate: "make test",
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrConfiguration))
	require.Empty(t, oracle.calls)
}

func TestWorkflow_ExpansionFeedsDifferencing(t *testing.T) {
	// The umbrella -O2 expands to an explicit -fno-inline, which is the
	// token the oracle actually keys on.
	expander := &fakeExpander{expand: func(args m.Sequence) (m.Sequence, error) {
		for _, tok := range args {
			if tok == "-O2" {
				return append(append(m.Sequence{}, args...), "-fno-inline"), nil
			}
		}

		return args, nil
	}}

	oracle := newFakeOracle(failWhen(func(cmd string) bool {
		return strings.Contains(cmd, "-fno-inline")
	}))

	wf := newTestWorkflow(oracle, expander, nil)

	report, err := wf.Minimize(context.Background(), MinimizeArgs{
		Baseline:      "-Og",
		Target:        "-O2",
		Predicate:     "oracle {}",
		ExpandImplied: true,
		Compiler:      "gcc",
	})
	require.NoError(t, err)

	require.Equal(t, m.StatusConverged, report.Status)
	require.Equal(t, []string{"-fno-inline"}, subsetTokens(report.MinimalSubset))
}

func TestWorkflow_ExpanderFailurePropagates(t *testing.T) {
	expander := &fakeExpander{expand: func(m.Sequence) (m.Sequence, error) {
		return nil, errors.New("cc1: not found")
	}}

	oracle := newFakeOracle(failWhen(func(string) bool { return true }))
	wf := newTestWorkflow(oracle, expander, nil)

	_, err := wf.Minimize(context.Background(), MinimizeArgs{
		Baseline:      "-Og",
		Target:        "-O2",
		Predicate:     "oracle {}",
		ExpandImplied: true,
		Compiler:      "gcc",
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrConfiguration))
	require.Contains(t, err.Error(), "expansion failed")
	require.Empty(t, oracle.calls)
}

func TestWorkflow_DiffRunsNoTrials(t *testing.T) {
	var oracleBuilds int32

	oracle := newFakeOracle(failWhen(func(string) bool { return true }))
	wf := newTestWorkflow(oracle, nil, &oracleBuilds)

	diff, err := wf.Diff(context.Background(), DiffArgs{
		Baseline: "-Wall -Og",
		Target:   "-Wall -O2",
	})
	require.NoError(t, err)

	require.Equal(t, m.Sequence{"-Wall"}, diff.Common)
	require.Equal(t, m.Sequence{"-Og"}, diff.OnlyBaseline)
	require.Equal(t, m.Sequence{"-O2"}, diff.OnlyTarget)

	require.Zero(t, atomic.LoadInt32(&oracleBuilds))
	require.Empty(t, oracle.calls)
}

func TestWorkflow_AbortedRunIsStillPersisted(t *testing.T) {
	reportsDir := t.TempDir()

	oracle := newFakeOracle(failWhen(func(string) bool { return false }))
	wf := newTestWorkflow(oracle, nil, nil)

	report, err := wf.Minimize(context.Background(), MinimizeArgs{
		Baseline:  "-Og",
		Target:    "-O2",
		Predicate: "oracle {}",
		Reports:   reportsDir,
	})
	require.Error(t, err)
	require.Equal(t, m.StatusAborted, report.Status)

	loaded, err := wf.LoadReport(ViewArgs{Reports: reportsDir})
	require.NoError(t, err)
	require.Equal(t, m.StatusAborted, loaded.Status)
	require.Contains(t, loaded.Diagnostic, "do not reproduce")
}

func TestWorkflow_LoadReportByExplicitPath(t *testing.T) {
	reportsDir := t.TempDir()
	store := adapter.NewReportStore()

	path, err := store.Save(reportsDir, m.Report{RunID: "abc", Status: m.StatusConverged})
	require.NoError(t, err)

	wf := newTestWorkflow(nil, nil, nil)

	loaded, err := wf.LoadReport(ViewArgs{File: path})
	require.NoError(t, err)
	require.Equal(t, "abc", loaded.RunID)
}
