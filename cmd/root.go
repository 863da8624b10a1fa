// Package cmd provides the root command and CLI setup for culprit.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mouse-blink/culprit/internal/adapter"
	"github.com/mouse-blink/culprit/internal/controller"
	"github.com/mouse-blink/culprit/internal/domain"
	m "github.com/mouse-blink/culprit/internal/model"
)

var (
	baselineFlag     string
	targetFlag       string
	predicateFlag    string
	argFormatFlag    string
	argSeparatorFlag string
	timeoutFlag      int
	retriesFlag      int
	maxTrialsFlag    int
	parallelFlag     int
	projectDirFlag   string
	reportsDirFlag   string
	configFlag       string
	compilerFlag     string
	confirmFlag      bool
	expandFlag       bool
	plainFlag        bool
	verboseFlag      bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "culprit",
		Short: "Isolate the build options behind a behavioral regression",
		Long: `Culprit bisects the difference between two sets of build/compiler options
to find a minimal subset that reproduces a failing behavior, driving a
user-supplied predicate command as the test oracle.

The predicate template is brace expanded and shell interpreted; segments
separated by ';' run as sequential stages and the last stage's exit code
carries the signal: exit 0 means the failing (target-like) behavior was
observed, nonzero means baseline-like behavior.

  culprit -b '-Og' -e '-O2 -fno-inline' \
    -p 'gcc {} -o test test.c ; ./test'`,
		SilenceUsage: true,
		RunE: func(c *cobra.Command, _ []string) error {
			args, err := minimizeArgs(c)
			if err != nil {
				return err
			}

			log := newLogger(verboseFlag)
			defer func() { _ = log.Sync() }()

			ui := controller.NewUI(c.OutOrStdout(),
				!plainFlag && controller.IsTTY(c.OutOrStdout()))
			defer ui.Close()

			report, runErr := newWorkflow(ui, log).Minimize(c.Context(), args)
			if report.Status != "" {
				_ = ui.DisplayReport(report)
			}

			if runErr != nil {
				return runErr
			}

			if report.Status == m.StatusConverged {
				_, _ = fmt.Fprintln(c.OutOrStdout(), report.PassingOptions.Join(args.ArgSeparator))
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&baselineFlag, "baseline", "b", "", "options beginning the regression; must pass the predicate")
	cmd.Flags().StringVarP(&targetFlag, "target", "e", "", "options ending the regression; must fail the predicate")
	cmd.Flags().StringVarP(&predicateFlag, "predicate", "p", "", "predicate template; {} is replaced by the options under test")
	cmd.Flags().StringVarP(&argFormatFlag, "arg-format", "f", "{}", "format template applied to each option token")
	cmd.Flags().StringVarP(&argSeparatorFlag, "arg-separator", "s", " ", "separator between formatted option tokens")
	cmd.Flags().IntVarP(&timeoutFlag, "timeout", "t", 0, "per-trial timeout in seconds (0 = none)")
	cmd.Flags().IntVar(&retriesFlag, "retries", 0, "retries per subset after an infrastructure error")
	cmd.Flags().IntVar(&maxTrialsFlag, "max-trials", 0, "total oracle invocation budget (0 = unlimited)")
	cmd.Flags().IntVar(&parallelFlag, "parallel", 1, "concurrent trial workers; requires --project-dir isolation")
	cmd.Flags().StringVar(&projectDirFlag, "project-dir", "", "project directory copied into an isolated scope per trial")
	cmd.Flags().StringVar(&reportsDirFlag, "reports", "", "directory to persist run reports into")
	cmd.Flags().StringVar(&configFlag, "config", "", "YAML config file; explicit flags take precedence")
	cmd.Flags().StringVarP(&compilerFlag, "compiler", "c", "gcc", "compiler queried for implied optimizers with --expand")
	cmd.Flags().BoolVar(&confirmFlag, "confirm", false, "re-run the final minimal subset before reporting convergence")
	cmd.Flags().BoolVar(&expandFlag, "expand", false, "expand options implied by umbrella levels before differencing")
	cmd.Flags().BoolVar(&plainFlag, "plain", false, "disable the interactive progress view")
	cmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "log every oracle execution")

	return cmd
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newWorkflow wires the real adapters behind the domain workflow.
func newWorkflow(observer domain.Observer, log *zap.Logger) domain.Workflow {
	ws := adapter.NewLocalWorkspaceAdapter()

	newOracle := func(cfg adapter.OracleConfig) adapter.Oracle {
		return adapter.NewLocalOracle(ws, cfg, log)
	}

	newExpander := func(cc string) adapter.OptionExpander {
		return adapter.NewCompilerExpander(cc, log)
	}

	return domain.NewWorkflow(domain.NewTokenizer(), adapter.NewReportStore(), newOracle, newExpander, observer, log)
}

// newLogger builds the structured audit logger on stderr.
func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)

	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}

	return log
}

// minimizeArgs merges flags with the optional config file and validates the
// required inputs.
func minimizeArgs(cmd *cobra.Command) (domain.MinimizeArgs, error) {
	args := domain.MinimizeArgs{
		Baseline:      baselineFlag,
		Target:        targetFlag,
		Predicate:     predicateFlag,
		ArgFormat:     argFormatFlag,
		ArgSeparator:  argSeparatorFlag,
		Timeout:       time.Duration(timeoutFlag) * time.Second,
		MaxRetries:    retriesFlag,
		MaxTrials:     maxTrialsFlag,
		MaxWorkers:    parallelFlag,
		ProjectDir:    projectDirFlag,
		Reports:       reportsDirFlag,
		Confirm:       confirmFlag,
		ExpandImplied: expandFlag,
		Compiler:      compilerFlag,
	}

	if configFlag != "" {
		if err := mergeFileConfig(cmd, configFlag, &args); err != nil {
			return domain.MinimizeArgs{}, err
		}
	}

	return args, validateArgs(args)
}
