package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kozaktomas/facegate/internal/faceid"
)

var registerCmd = &cobra.Command{
	Use:   "register <image-path> <employee-id>",
	Short: "Register an employee's face",
	Long: `Detect exactly one live face in the image, extract its embedding and store it
for the employee. An existing registration is replaced.

Prints {"success":true,"message":...} on success. Rejections print
{"success":false,"error":...,"reason":...} and exit with status 1.`,
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)
}

func runRegister(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	imagePath, employeeID, err := parseFaceArgs(args, "register <image-path> <employee-id>")
	if err != nil {
		return writeFailure(out, faceid.NewRegisterFailure(err))
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	env, err := setupEnvironment(ctx)
	if err != nil {
		return writeFailure(out, faceid.NewRegisterFailure(err))
	}
	defer env.Close()

	registrar := faceid.NewRegistrar(env.provider, env.store, env.settings(), env.log)
	res, err := registrar.Register(ctx, faceid.RegisterRequest{
		EmployeeID: employeeID,
		ImagePath:  imagePath,
	})
	if err != nil {
		return writeFailure(out, faceid.NewRegisterFailure(err))
	}
	return writeResult(out, res)
}
