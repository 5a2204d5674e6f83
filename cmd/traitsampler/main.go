package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/bespokepunks/traitsampler/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app carries state shared by every subcommand.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	logOut io.Writer
}

func newRootCmd(logOut io.Writer) *cobra.Command {
	a := &app{logOut: logOut}

	root := &cobra.Command{
		Use:   "traitsampler",
		Short: "Sample sprite regions and classify their traits",
		Long: `traitsampler reads fixed-size pixel art sprites, samples the dominant
colors of named regions and classifies eye color, hair, skin tone and
background. It can keep the matching training captions in sync.

Settings come from TRAITS_* environment variables; flags override them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().String("log-level", "", "debug|info|warn|error (TRAITS_LOG_LEVEL)")

	root.AddCommand(
		newSampleCmd(a),
		newMirrorCmd(a),
		newInitSchemaCmd(a),
		newSimilarCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.logger = slog.New(
		tint.NewHandler(a.logOut, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05",
		}),
	)
	a.cfg = cfg
	return nil
}

func (a *app) fail(msg string, err error) error {
	a.logger.Error(msg, "error", err)
	return fmt.Errorf("%s: %w", msg, err)
}
