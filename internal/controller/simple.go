package controller

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/mouse-blink/culprit/internal/domain"
	m "github.com/mouse-blink/culprit/internal/model"
)

// SimpleUI implements UI with plain line output and tablewriter tables.
type SimpleUI struct {
	output io.Writer
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(output io.Writer) *SimpleUI {
	return &SimpleUI{output: output}
}

// StateChanged prints engine phase transitions.
func (s *SimpleUI) StateChanged(state domain.State) {
	s.printf("state: %s\n", state)
}

// TrialStarted is a no-op for the plain UI; completions carry the signal.
func (s *SimpleUI) TrialStarted(string) {}

// TrialCompleted prints one line per oracle invocation.
func (s *SimpleUI) TrialCompleted(trial m.Trial) {
	s.printf("trial %-11s exit=%-3d attempt=%d %s  %s\n",
		trial.Verdict, trial.ExitCode, trial.Attempt, trial.Duration.Round(1e6), trial.Subset.Describe())
}

// CandidateReduced prints search progress.
func (s *SimpleUI) CandidateReduced(remaining, total int) {
	s.printf("candidate reduced to %d of %d difference tokens\n", remaining, total)
}

// DisplayDifference prints the difference set as a table.
func (s *SimpleUI) DisplayDifference(diff m.DifferenceSet) error {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Token", "Origin"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER})

	for _, u := range diff.Units() {
		table.Append([]string{string(u.Token), string(u.Origin)})
	}

	table.SetFooter([]string{
		fmt.Sprintf("common context: %d tokens", len(diff.Common)),
		fmt.Sprintf("%d differing", len(diff.Units())),
	})

	table.Render()
	s.printf("\n%s", buf.String())

	return nil
}

// DisplayReport prints the final verdict, the trial log, and the run stats.
func (s *SimpleUI) DisplayReport(report m.Report) error {
	s.printf("\nrun %s finished: %s\n", report.RunID, report.Status)

	if report.Diagnostic != "" {
		s.printf("diagnostic: %s\n", report.Diagnostic)
	}

	for _, w := range report.Warnings {
		s.printf("warning: %s\n", w)
	}

	switch report.Status {
	case m.StatusConverged:
		s.printf("minimal failure-inducing subset: %s\n", report.MinimalSubset.Describe())
		s.printf("still-passing options: %s\n", report.PassingOptions.Join(" "))
	case m.StatusExhausted:
		s.printf("best (non-minimal) reduction: %s\n", report.MinimalSubset.Describe())
	case m.StatusAborted:
	}

	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"#", "Verdict", "Exit", "Attempt", "Duration", "Subset"})
	table.SetBorder(false)
	table.SetCenterSeparator("")

	for i, trial := range report.Trials {
		table.Append([]string{
			strconv.Itoa(i + 1),
			string(trial.Verdict),
			strconv.Itoa(trial.ExitCode),
			strconv.Itoa(trial.Attempt),
			trial.Duration.Round(1e6).String(),
			trial.Subset.Describe(),
		})
	}

	table.Render()
	s.printf("\n%s", buf.String())

	s.printf("\ntrials=%d cache_hits=%d wall_time=%s\n",
		report.Stats.Trials, report.Stats.CacheHits, report.Stats.WallTime.Round(1e6))

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close() {
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.output, format, args...)
}
