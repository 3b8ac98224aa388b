package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kozaktomas/facegate/internal/faceid"
)

var matchCmd = &cobra.Command{
	Use:   "match <image-path> <employee-id>",
	Short: "Verify a captured face against the employee's registered faces",
	Long: `Compare a new capture with the employee's most recent stored embeddings.
A matching capture is appended to the employee's history; a capture that
matches nothing is never stored.

A decided match (matched or not) exits with status 0. Rejected captures and
backend failures print {"matched":false,"stored":false,"error":...,"reason":...}
and exit with status 1.`,
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	imagePath, employeeID, err := parseFaceArgs(args, "match <image-path> <employee-id>")
	if err != nil {
		return writeFailure(out, faceid.NewMatchFailure(err))
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	env, err := setupEnvironment(ctx)
	if err != nil {
		return writeFailure(out, faceid.NewMatchFailure(err))
	}
	defer env.Close()

	verifier := faceid.NewVerifier(env.provider, env.store, env.settings(), env.log)
	res, err := verifier.Match(ctx, faceid.MatchRequest{
		EmployeeID: employeeID,
		ImagePath:  imagePath,
	})
	if err != nil {
		return writeFailure(out, faceid.NewMatchFailure(err))
	}
	return writeResult(out, res)
}
