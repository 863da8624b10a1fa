// Package controller provides output adapters for displaying regression
// results: a plain table UI and an interactive live-progress TUI.
package controller

import (
	"io"
	"os"

	"github.com/mouse-blink/culprit/internal/domain"
	m "github.com/mouse-blink/culprit/internal/model"
)

// UI renders engine progress and final reports. The event methods satisfy
// domain.Observer so a UI can be handed straight to the engine.
type UI interface {
	domain.Observer

	DisplayDifference(diff m.DifferenceSet) error
	DisplayReport(report m.Report) error
	Close()
}

// IsTTY reports whether the writer is attached to a character device.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	info, err := f.Stat()
	if err != nil {
		return false
	}

	return info.Mode()&os.ModeCharDevice != 0
}

// NewUI selects the TUI when the output is an interactive terminal and the
// plain UI otherwise.
func NewUI(output io.Writer, interactive bool) UI {
	if interactive {
		return NewTUI(output)
	}

	return NewSimpleUI(output)
}
