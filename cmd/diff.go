package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mouse-blink/culprit/internal/controller"
	"github.com/mouse-blink/culprit/internal/domain"
)

var (
	diffBaselineFlag string
	diffTargetFlag   string
	diffExpandFlag   bool
	diffCompilerFlag string
)

// diffCmd represents the diff command.
var diffCmd = newDiffCmd()

func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Show the option difference set without running trials",
		Long: `Diff tokenizes both option strings and prints the tokens present in
exactly one of them, partitioned by origin. No predicate is executed.`,
		RunE: func(c *cobra.Command, _ []string) error {
			log := newLogger(verboseFlag)
			defer func() { _ = log.Sync() }()

			ui := controller.NewSimpleUI(c.OutOrStdout())

			diff, err := newWorkflow(ui, log).Diff(c.Context(), domain.DiffArgs{
				Baseline:      diffBaselineFlag,
				Target:        diffTargetFlag,
				ExpandImplied: diffExpandFlag,
				Compiler:      diffCompilerFlag,
			})
			if err != nil {
				return err
			}

			return ui.DisplayDifference(diff)
		},
	}

	cmd.Flags().StringVarP(&diffBaselineFlag, "baseline", "b", "", "options beginning the regression")
	cmd.Flags().StringVarP(&diffTargetFlag, "target", "e", "", "options ending the regression")
	cmd.Flags().BoolVar(&diffExpandFlag, "expand", false, "expand options implied by umbrella levels before differencing")
	cmd.Flags().StringVarP(&diffCompilerFlag, "compiler", "c", "gcc", "compiler queried for implied optimizers with --expand")
	_ = cmd.MarkFlagRequired("baseline")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func init() {
	rootCmd.AddCommand(diffCmd)
}
