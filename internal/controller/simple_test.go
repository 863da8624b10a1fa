package controller

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mouse-blink/culprit/internal/domain"
	m "github.com/mouse-blink/culprit/internal/model"
)

func TestSimpleUI_StateAndProgressLines(t *testing.T) {
	var buf bytes.Buffer

	ui := NewSimpleUI(&buf)
	ui.StateChanged(domain.StateSearching)
	ui.CandidateReduced(3, 12)

	out := buf.String()
	require.Contains(t, out, "state: SEARCHING")
	require.Contains(t, out, "candidate reduced to 3 of 12 difference tokens")
}

func TestSimpleUI_TrialCompletedLine(t *testing.T) {
	var buf bytes.Buffer

	ui := NewSimpleUI(&buf)
	ui.TrialCompleted(m.Trial{
		Subset:   m.Subset{{Token: "-fno-gcse", Origin: m.OriginTarget}},
		Verdict:  m.VerdictFail,
		ExitCode: 0,
		Attempt:  1,
		Duration: 42 * time.Millisecond,
	})

	out := buf.String()
	require.Contains(t, out, "FAIL")
	require.Contains(t, out, "-fno-gcse")
	require.Contains(t, out, "attempt=1")
}

func TestSimpleUI_DisplayReportConverged(t *testing.T) {
	var buf bytes.Buffer

	ui := NewSimpleUI(&buf)

	err := ui.DisplayReport(m.Report{
		RunID:          "run-42",
		Status:         m.StatusConverged,
		MinimalSubset:  m.Subset{{Token: "-fno-inline", Origin: m.OriginTarget}},
		PassingOptions: m.Sequence{"-O2", "-g"},
		Trials: []m.Trial{
			{Verdict: m.VerdictPass, ExitCode: 1, Attempt: 1},
			{Verdict: m.VerdictFail, ExitCode: 0, Attempt: 1},
		},
		Stats: m.Stats{Trials: 2, CacheHits: 0, WallTime: time.Second},
	})
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "run run-42 finished: CONVERGED")
	require.Contains(t, out, "minimal failure-inducing subset: -fno-inline")
	require.Contains(t, out, "still-passing options: -O2 -g")
	require.Contains(t, out, "PASS")
	require.Contains(t, out, "FAIL")
	require.Contains(t, out, "trials=2")
}

func TestSimpleUI_DisplayReportExhausted(t *testing.T) {
	var buf bytes.Buffer

	ui := NewSimpleUI(&buf)

	err := ui.DisplayReport(m.Report{
		RunID:         "run-7",
		Status:        m.StatusExhausted,
		MinimalSubset: m.Subset{{Token: "-a"}, {Token: "-b"}},
		Diagnostic:    "trial budget exhausted before convergence; best reduction is not guaranteed minimal",
	})
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "EXHAUSTED")
	require.Contains(t, out, "diagnostic: trial budget exhausted")
	require.Contains(t, out, "best (non-minimal) reduction:")
	require.NotContains(t, out, "still-passing options")
}

func TestSimpleUI_DisplayReportWarnings(t *testing.T) {
	var buf bytes.Buffer

	ui := NewSimpleUI(&buf)

	err := ui.DisplayReport(m.Report{
		RunID:    "run-9",
		Status:   m.StatusAborted,
		Warnings: []string{"flaky oracle: verdict changed on re-run"},
	})
	require.NoError(t, err)
	require.Contains(t, buf.String(), "warning: flaky oracle")
}

func TestSimpleUI_DisplayDifference(t *testing.T) {
	var buf bytes.Buffer

	ui := NewSimpleUI(&buf)

	diff := m.DifferenceSet{
		Common:       m.Sequence{"-Wall"},
		OnlyBaseline: m.Sequence{"-Og"},
		OnlyTarget:   m.Sequence{"-O2", "-fno-inline"},
	}

	err := ui.DisplayDifference(diff)
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "-Og")
	require.Contains(t, out, "-fno-inline")
	require.Contains(t, out, "baseline")
	require.Contains(t, out, "target")

	// tablewriter capitalizes footer cells.
	lower := strings.ToLower(out)
	require.Contains(t, lower, "common context: 1 tokens")
	require.Contains(t, lower, "3 differing")
}

func TestIsTTY(t *testing.T) {
	var buf bytes.Buffer
	require.False(t, IsTTY(&buf))

	devNull, err := os.Open(os.DevNull)
	require.NoError(t, err)

	defer func() { _ = devNull.Close() }()

	require.True(t, IsTTY(devNull))
}

func TestNewUI_SelectsPlainForNonInteractive(t *testing.T) {
	var buf bytes.Buffer

	ui := NewUI(&buf, false)

	_, ok := ui.(*SimpleUI)
	require.True(t, ok)
}
