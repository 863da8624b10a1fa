package controller

import (
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mouse-blink/culprit/internal/domain"
	m "github.com/mouse-blink/culprit/internal/model"
)

// TUI implements UI using Bubble Tea for interactive live progress. The
// final report is rendered as plain tables once the program stops, so it
// stays in the scrollback.
type TUI struct {
	output io.Writer

	once    sync.Once
	program *tea.Program
	done    chan struct{}
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output, done: make(chan struct{})}
}

// start launches the Bubble Tea program on the first engine event.
func (t *TUI) start() {
	t.once.Do(func() {
		t.program = tea.NewProgram(newRunModel(), tea.WithOutput(t.output))

		go func() {
			_, _ = t.program.Run()

			close(t.done)
		}()
	})
}

// StateChanged forwards engine phase transitions to the model.
func (t *TUI) StateChanged(state domain.State) {
	t.start()
	t.program.Send(stateChangedMsg(state))
}

// TrialStarted forwards trial dispatches to the model.
func (t *TUI) TrialStarted(subset string) {
	t.start()
	t.program.Send(trialStartedMsg(subset))
}

// TrialCompleted forwards finished trials to the model.
func (t *TUI) TrialCompleted(trial m.Trial) {
	t.start()
	t.program.Send(trialCompletedMsg(trial))
}

// CandidateReduced forwards search progress to the model.
func (t *TUI) CandidateReduced(remaining, total int) {
	t.start()
	t.program.Send(candidateMsg{remaining: remaining, total: total})
}

// DisplayDifference renders the difference set with the plain UI; there is
// no live progress to show for a differencing-only run.
func (t *TUI) DisplayDifference(diff m.DifferenceSet) error {
	return NewSimpleUI(t.output).DisplayDifference(diff)
}

// DisplayReport stops the live view and prints the final report as plain
// tables.
func (t *TUI) DisplayReport(report m.Report) error {
	t.Close()

	return NewSimpleUI(t.output).DisplayReport(report)
}

// Close stops the Bubble Tea program if it was started.
func (t *TUI) Close() {
	if t.program == nil {
		return
	}

	t.program.Quit()
	<-t.done
	t.program = nil
}
