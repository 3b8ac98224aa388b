package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facegate/internal/faceid"
	"github.com/kozaktomas/facegate/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the facegate HTTP API.
The API exposes face registration, verification and status lookups for the
HR frontend under /api/v1/faces/{employeeID}.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
// WEB_PORT and WEB_HOST win over flag defaults but not over explicitly set flags.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" && !cmd.Flags().Changed("port") {
		if p, err := strconv.Atoi(envPort); err == nil && p > 0 {
			port = p
		}
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" && !cmd.Flags().Changed("host") {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	env, err := setupEnvironment(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer env.Close()

	settings := env.settings()
	registrar := faceid.NewRegistrar(env.provider, env.store, settings, env.log)
	verifier := faceid.NewVerifier(env.provider, env.store, settings, env.log)

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(env.cfg, host, port, registrar, verifier, env.store, env.log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
			return
		}
		env.log.Info("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			env.log.WithError(err).Error("error during shutdown")
		}
	}()

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
