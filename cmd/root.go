package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "facegate",
	Short: "Face registration and verification for employee attendance",
	Long: `facegate registers an employee's face embedding and verifies new captures
against the employee's recent history. Face detection, liveness checks and
embeddings come from a DeepFace compatible provider; embeddings are stored in
MySQL or PostgreSQL.

Every command prints exactly one JSON object to stdout. Diagnostics go to stderr.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
