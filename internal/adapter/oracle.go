package adapter

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"

	m "github.com/mouse-blink/culprit/internal/model"
)

// Invocation describes one rendered oracle command: the full command line
// for the audit log, and one argv per stage. Every stage before the last is
// a setup stage; the last stage is the test whose exit code carries the
// signal.
type Invocation struct {
	Command  string
	Segments [][]string
}

// Outcome classifies a single oracle execution. Stdout and stderr are
// opaque to the engine; the exit code of the test stage is the sole data
// channel.
type Outcome struct {
	Verdict  m.Verdict
	ExitCode int
	Duration time.Duration
}

// Oracle executes one rendered predicate invocation. Implementations run
// the command once; the engine owns the retry policy so every attempt lands
// in the trial log.
type Oracle interface {
	Run(ctx context.Context, inv Invocation) (Outcome, error)
}

// OracleConfig tunes the subprocess executor.
type OracleConfig struct {
	// Timeout is the wall-clock limit for one invocation, all stages
	// combined. Zero means no limit.
	Timeout time.Duration

	// ProjectDir, when set, is copied into a fresh temp directory per
	// invocation and the command runs inside that copy. When empty the
	// command runs in the current directory and callers should keep
	// execution serial.
	ProjectDir string
}

// LocalOracle runs the predicate as local subprocesses.
type LocalOracle struct {
	ws  WorkspaceAdapter
	cfg OracleConfig
	log *zap.Logger
}

// NewLocalOracle constructs a LocalOracle.
func NewLocalOracle(ws WorkspaceAdapter, cfg OracleConfig, log *zap.Logger) *LocalOracle {
	if log == nil {
		log = zap.NewNop()
	}

	return &LocalOracle{ws: ws, cfg: cfg, log: log}
}

// Run executes the invocation's stages in order and classifies the result:
//   - timeout, a failed setup stage, or a command that cannot start at all
//     yield VerdictInfraError;
//   - test stage exit 0 yields VerdictFail (the oracle reproduced the
//     target's failing signature);
//   - test stage nonzero exit yields VerdictPass.
func (o *LocalOracle) Run(ctx context.Context, inv Invocation) (Outcome, error) {
	started := time.Now()

	workDir, cleanup, err := o.scopedWorkDir()
	if err != nil {
		return Outcome{}, err
	}
	defer cleanup()

	runCtx := ctx
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc

		runCtx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	for i, argv := range inv.Segments {
		if len(argv) == 0 {
			continue
		}

		exitCode, runErr := o.runSegment(runCtx, argv, workDir)
		elapsed := time.Since(started)

		if ctx.Err() != nil {
			return Outcome{}, ctx.Err()
		}

		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			o.log.Warn("oracle timed out",
				zap.String("command", inv.Command),
				zap.Duration("timeout", o.cfg.Timeout))

			return Outcome{Verdict: m.VerdictInfraError, ExitCode: exitCode, Duration: elapsed}, nil
		}

		if exitCode < 0 {
			o.log.Warn("oracle stage could not start",
				zap.Strings("argv", argv),
				zap.Error(runErr))

			return Outcome{Verdict: m.VerdictInfraError, ExitCode: exitCode, Duration: elapsed}, nil
		}

		final := i == len(inv.Segments)-1
		if !final {
			if exitCode != 0 {
				// Setup stage crashed before the test stage ran.
				return Outcome{Verdict: m.VerdictInfraError, ExitCode: exitCode, Duration: elapsed}, nil
			}

			continue
		}

		verdict := m.VerdictPass
		if exitCode == 0 {
			verdict = m.VerdictFail
		}

		return Outcome{Verdict: verdict, ExitCode: exitCode, Duration: elapsed}, nil
	}

	return Outcome{}, fmt.Errorf("invocation %q has no runnable segments", inv.Command)
}

// runSegment executes one stage and returns its exit code. A negative exit
// code means the process could not be started or was killed.
func (o *LocalOracle) runSegment(ctx context.Context, argv []string, workDir string) (int, error) {
	segStart := time.Now()

	// #nosec G204 - the command comes from the user's own predicate template
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = workDir

	runErr := cmd.Run()

	exitCode := 0

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	o.log.Info("oracle stage executed",
		zap.Strings("argv", argv),
		zap.Int("exit_code", exitCode),
		zap.Duration("duration", time.Since(segStart)))

	return exitCode, runErr
}

// scopedWorkDir prepares the isolated working directory for one invocation.
func (o *LocalOracle) scopedWorkDir() (string, func(), error) {
	if o.cfg.ProjectDir == "" {
		return "", func() {}, nil
	}

	tmpDir, err := o.ws.CreateTempDir("culprit-trial-*")
	if err != nil {
		return "", func() {}, fmt.Errorf("failed to create trial dir: %w", err)
	}

	cleanup := func() {
		if err := o.ws.RemoveAll(tmpDir); err != nil {
			o.log.Warn("failed to clean trial dir", zap.String("dir", tmpDir), zap.Error(err))
		}
	}

	if err := o.ws.CopyDir(o.cfg.ProjectDir, tmpDir); err != nil {
		cleanup()

		return "", func() {}, fmt.Errorf("failed to copy project into trial dir: %w", err)
	}

	return tmpDir, cleanup, nil
}
