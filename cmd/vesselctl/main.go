// Command vesselctl previews and applies vessel pricing files against the store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/app"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/config"
)

// env is what every subcommand needs, built lazily so hash-key works without config
type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

func loadEnv(debug bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.LogLevel = "debug"
	} else {
		cfg.LogLevel = "warn"
	}
	logger, err := app.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger}, nil
}

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	var debug bool
	root := &cobra.Command{
		Use:           "vesselctl",
		Short:         "Reconcile the store's vessel catalog with a pricing file",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	root.AddCommand(previewCmd(&debug))
	root.AddCommand(applyCmd(&debug))
	root.AddCommand(listCmd(&debug))
	root.AddCommand(hashKeyCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorMsg("%v", err))
		os.Exit(1)
	}
}
