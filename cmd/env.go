package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/database/mysql"
	"github.com/kozaktomas/facegate/internal/database/postgres"
	"github.com/kozaktomas/facegate/internal/faceid"
	"github.com/kozaktomas/facegate/internal/logging"
	"github.com/kozaktomas/facegate/internal/provider"
)

// environment holds the collaborators shared by the face commands. They are
// built once per process and passed into the flows.
type environment struct {
	cfg      *config.Config
	log      *logrus.Logger
	store    database.Store
	provider provider.Provider
}

func (e *environment) settings() faceid.Settings {
	return faceid.SettingsFromConfig(e.cfg)
}

func (e *environment) Close() {
	if err := e.store.Close(); err != nil {
		e.log.WithError(err).Warn("closing store")
	}
}

// setupEnvironment loads configuration and connects to the store. Tests swap it.
var setupEnvironment = func(ctx context.Context) (*environment, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, &faceid.Error{Kind: faceid.KindStoreError, Message: "Database error", Err: err}
	}

	return &environment{
		cfg:      cfg,
		log:      log,
		store:    store,
		provider: provider.NewClient(cfg.Provider.URL, cfg.Provider.Model, cfg.Provider.Timeout),
	}, nil
}

// openStore connects to the configured backend and applies pending migrations.
func openStore(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (database.Store, error) {
	log = log.WithField("driver", cfg.Database.Driver)
	switch cfg.Database.Driver {
	case "postgres":
		store, err := postgres.Open(ctx, &cfg.Database, log)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "mysql":
		store, err := mysql.Open(ctx, &cfg.Database, log)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func usageError(usage string) error {
	return &faceid.Error{Kind: faceid.KindInvalidInput, Message: "Usage: facegate " + usage}
}

// parseFaceArgs reads the <image-path> <employee-id> pair shared by register and match.
func parseFaceArgs(args []string, usage string) (string, int64, error) {
	if len(args) != 2 {
		return "", 0, usageError(usage)
	}
	employeeID, err := faceid.ParseEmployeeID(args[1])
	if err != nil {
		return "", 0, err
	}
	return args[0], employeeID, nil
}
