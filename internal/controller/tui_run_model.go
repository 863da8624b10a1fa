package controller

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mouse-blink/culprit/internal/domain"
	m "github.com/mouse-blink/culprit/internal/model"
)

// recentTrialCount bounds the rolling trial window in the live view.
const recentTrialCount = 8

type stateChangedMsg domain.State

type trialStartedMsg string

type trialCompletedMsg m.Trial

type candidateMsg struct {
	remaining int
	total     int
}

var (
	stateStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	subsetStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	summaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	verdictStyles = map[m.Verdict]lipgloss.Style{
		m.VerdictPass:       lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		m.VerdictFail:       lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		m.VerdictInfraError: lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Bold(true),
	}
)

// runModel is the Bubble Tea model for the live minimization view.
type runModel struct {
	spin        spinner.Model
	progressBar progress.Model

	state     domain.State
	current   string
	trials    int
	remaining int
	total     int
	recent    []m.Trial
	width     int
}

func newRunModel() runModel {
	spin := spinner.New()
	spin.Spinner = spinner.Dot

	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
	)

	return runModel{spin: spin, progressBar: bar, width: 80}
}

func (rm runModel) Init() tea.Cmd {
	return rm.spin.Tick
}

func (rm runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		rm.width = msg.Width

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return rm, tea.Quit
		}

	case stateChangedMsg:
		rm.state = domain.State(msg)

	case trialStartedMsg:
		rm.current = string(msg)

	case trialCompletedMsg:
		rm.trials++
		rm.recent = append(rm.recent, m.Trial(msg))

		if len(rm.recent) > recentTrialCount {
			rm.recent = rm.recent[len(rm.recent)-recentTrialCount:]
		}

	case candidateMsg:
		rm.remaining = msg.remaining
		rm.total = msg.total

	default:
		var cmd tea.Cmd

		rm.spin, cmd = rm.spin.Update(msg)

		return rm, cmd
	}

	return rm, nil
}

func (rm runModel) View() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s %s\n\n",
		rm.spin.View(),
		stateStyle.Render(string(rm.state))))

	if rm.total > 0 {
		b.WriteString(rm.progressBar.ViewAs(rm.reduction()))
		b.WriteString(summaryStyle.Render(
			fmt.Sprintf("  %d of %d difference tokens remain", rm.remaining, rm.total)))
		b.WriteString("\n\n")
	}

	if rm.current != "" {
		b.WriteString("testing " + subsetStyle.Render(truncate(rm.current, rm.width-10)) + "\n\n")
	}

	for _, trial := range rm.recent {
		style, ok := verdictStyles[trial.Verdict]
		if !ok {
			style = summaryStyle
		}

		b.WriteString(fmt.Sprintf("  %s  %s\n",
			style.Render(fmt.Sprintf("%-11s", trial.Verdict)),
			truncate(trial.Subset.Describe(), rm.width-16)))
	}

	b.WriteString("\n" + summaryStyle.Render(fmt.Sprintf("trials: %d  (q to quit)", rm.trials)) + "\n")

	return b.String()
}

// reduction maps the shrinking candidate set onto a 0..1 progress value.
func (rm runModel) reduction() float64 {
	if rm.total <= 1 {
		return 0
	}

	return float64(rm.total-rm.remaining) / float64(rm.total-1)
}

func truncate(s string, width int) string {
	if width <= 3 || len(s) <= width {
		return s
	}

	return s[:width-3] + "..."
}
