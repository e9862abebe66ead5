package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"cavernlsd/config"
	"cavernlsd/observability/logging"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

type app struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
	closer     io.Closer
}

func rootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "lsdwrap",
		Short:         "Inspect and simulate LSD wrapper tokens.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd.ErrOrStderr())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.closer != nil {
				_ = a.closer.Close()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "./lsdwrap.toml", "path to the network profile")

	root.AddCommand(ratesCmd(a))
	root.AddCommand(simulateCmd(a))
	root.AddCommand(exportCmd(a))
	root.AddCommand(versionCmd())
	root.Version = version
	return root
}

func (a *app) load(stderr io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	opts := logging.Options{
		Service: "lsdwrap",
		Env:     os.Getenv("CAVERN_ENV"),
		Level:   logging.ParseLevel(cfg.Logging.Level),
		Output:  stderr,
	}
	if cfg.Logging.File != "" {
		opts.File = &logging.FileOptions{
			Path:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
		}
	}
	a.logger, a.closer = logging.SetupWithOptions(opts)
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the lsdwrap version.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
