package adapter

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	m "github.com/mouse-blink/culprit/internal/model"
)

// OptionExpander resolves the optimizer options implied by a command line,
// so umbrella levels like -O2 participate in differencing as their explicit
// -f flags.
type OptionExpander interface {
	Expand(ctx context.Context, args m.Sequence) (m.Sequence, error)
}

// CompilerExpander asks the compiler itself via `<cc> <args> -Q
// --help=optimizers` and converts the reported table into explicit tokens:
// [enabled] rows become -fflag, [disabled] rows -fno-flag, valued rows
// -fflag<value>. Rows reported as [default] carry no signal and are
// discarded.
type CompilerExpander struct {
	cc  string
	log *zap.Logger
}

// NewCompilerExpander constructs an expander for the given compiler binary.
func NewCompilerExpander(cc string, log *zap.Logger) *CompilerExpander {
	if log == nil {
		log = zap.NewNop()
	}

	return &CompilerExpander{cc: cc, log: log}
}

// Expand returns args followed by the explicit optimizer tokens the
// compiler reports for that command line.
func (e *CompilerExpander) Expand(ctx context.Context, args m.Sequence) (m.Sequence, error) {
	argv := append(args.Strings(), "-Q", "--help=optimizers")

	// #nosec G204 - the compiler binary is user-configured
	cmd := exec.CommandContext(ctx, e.cc, argv...)

	var stdout bytes.Buffer

	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("failed to query %s for implied optimizers: %w", e.cc, err)
	}

	expanded := append(m.Sequence{}, args...)
	added := 0

	for _, line := range strings.Split(stdout.String(), "\n") {
		token, ok := parseOptimizerLine(line)
		if !ok {
			continue
		}

		expanded = append(expanded, token)
		added++
	}

	e.log.Debug("expanded implied optimizers",
		zap.String("compiler", e.cc),
		zap.Int("added", added))

	return expanded, nil
}

// parseOptimizerLine converts one `--help=optimizers` table row into an
// explicit option token.
func parseOptimizerLine(line string) (m.Token, bool) {
	fields := strings.Fields(line)
	if len(fields) != 2 || !strings.HasPrefix(fields[0], "-f") {
		return "", false
	}

	name, value := fields[0], fields[1]

	switch value {
	case "[default]":
		return "", false
	case "[enabled]":
		return m.Token(name), true
	case "[disabled]":
		return m.Token(strings.Replace(name, "-f", "-fno-", 1)), true
	default:
		return m.Token(name + value), true
	}
}
