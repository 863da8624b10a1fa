package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mouse-blink/culprit/internal/controller"
	"github.com/mouse-blink/culprit/internal/domain"
)

var (
	viewReportsFlag string
	viewFileFlag    string
)

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "View a previously stored run report",
		Long:  "View a stored run report: the latest in the reports directory, or a named file.",
		Args:  cobra.ExactArgs(0),
		RunE: func(c *cobra.Command, _ []string) error {
			log := newLogger(verboseFlag)
			defer func() { _ = log.Sync() }()

			ui := controller.NewSimpleUI(c.OutOrStdout())

			report, err := newWorkflow(ui, log).LoadReport(domain.ViewArgs{
				Reports: viewReportsFlag,
				File:    viewFileFlag,
			})
			if err != nil {
				return err
			}

			return ui.DisplayReport(report)
		},
	}

	cmd.Flags().StringVar(&viewReportsFlag, "reports", ".culprit-reports", "reports directory to read from")
	cmd.Flags().StringVar(&viewFileFlag, "file", "", "specific report file to display")

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
