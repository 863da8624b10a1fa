package domain

import (
	"strings"

	"github.com/google/shlex"

	m "github.com/mouse-blink/culprit/internal/model"
)

// Placeholder is the substitution marker used in the predicate template and
// in the per-token argument format.
const Placeholder = "{}"

// segmentSep splits a rendered predicate into sequential command stages.
// Every stage before the last is a setup stage; the last is the test stage.
const segmentSep = ";"

// Renderer turns a chosen option sequence into the oracle command line.
// Rendering is a pure string transform: each token goes through the argument
// format, formatted tokens are joined with the separator, and the joined
// string replaces every placeholder in the predicate template. No escaping
// is applied beyond what the templates themselves specify; shell safety is
// the template author's responsibility.
type Renderer struct {
	predicate string
	argFormat string
	separator string
}

// NewRenderer validates the templates and constructs a Renderer. The
// predicate must contain at least one placeholder; an argument format
// without a placeholder would erase the tokens and is rejected too.
func NewRenderer(predicate, argFormat, separator string) (*Renderer, error) {
	if argFormat == "" {
		argFormat = Placeholder
	}

	if separator == "" {
		separator = " "
	}

	if !strings.Contains(predicate, Placeholder) {
		return nil, configf("predicate %q contains no %s placeholder", predicate, Placeholder)
	}

	if !strings.Contains(argFormat, Placeholder) {
		return nil, configf("argument format %q contains no %s placeholder", argFormat, Placeholder)
	}

	return &Renderer{
		predicate: predicate,
		argFormat: argFormat,
		separator: separator,
	}, nil
}

// Render produces the full command line for the given option sequence.
func (r *Renderer) Render(options m.Sequence) string {
	formatted := make([]string, len(options))
	for i, t := range options {
		formatted[i] = strings.ReplaceAll(r.argFormat, Placeholder, string(t))
	}

	joined := strings.Join(formatted, r.separator)

	return strings.ReplaceAll(r.predicate, Placeholder, joined)
}

// Segments renders the command line and splits it into per-stage argv
// slices, breaking at standalone ";" tokens. Quoting errors introduced by
// the substituted options are reported as configuration errors.
func (r *Renderer) Segments(options m.Sequence) ([][]string, error) {
	rendered := r.Render(options)

	fields, err := shlex.Split(rendered)
	if err != nil {
		return nil, configf("rendered predicate %q is not shell-splittable: %v", rendered, err)
	}

	segments := [][]string{}
	current := []string{}

	for _, f := range fields {
		if f == segmentSep {
			if len(current) > 0 {
				segments = append(segments, current)
			}

			current = []string{}

			continue
		}

		current = append(current, f)
	}

	if len(current) > 0 {
		segments = append(segments, current)
	}

	if len(segments) == 0 {
		return nil, configf("predicate %q rendered to an empty command", r.predicate)
	}

	return segments, nil
}

// Validate renders the provided option sequence and checks the result is
// executable. The engine calls this during INIT so template problems abort
// the run before any oracle invocation.
func (r *Renderer) Validate(options m.Sequence) error {
	_, err := r.Segments(options)
	return err
}
