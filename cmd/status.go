package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kozaktomas/facegate/internal/faceid"
)

var statusCmd = &cobra.Command{
	Use:   "status <employee-id>",
	Short: "Report whether an employee has any registered face",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if len(args) != 1 {
		return writeFailure(out, faceid.NewStatusFailure(usageError("status <employee-id>")))
	}
	employeeID, err := faceid.ParseEmployeeID(args[0])
	if err != nil {
		return writeFailure(out, faceid.NewStatusFailure(err))
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	env, err := setupEnvironment(ctx)
	if err != nil {
		return writeFailure(out, faceid.NewStatusFailure(err))
	}
	defer env.Close()

	res, err := faceid.Status(ctx, env.store, employeeID)
	if err != nil {
		return writeFailure(out, faceid.NewStatusFailure(err))
	}
	return writeResult(out, res)
}
