package main

import (
	"time"

	"codeberg.org/mutker/powerhald/internal/config"
	"codeberg.org/mutker/powerhald/internal/control"
	"codeberg.org/mutker/powerhald/internal/logger"
	"github.com/spf13/cobra"
)

const defaultWait = 2 * time.Second

// app carries what PersistentPreRunE loaded to the subcommands.
type app struct {
	cfg  *config.Config
	log  logger.Logger
	wait time.Duration
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "powerhald",
		Short: "Power HAL policy daemon for Tegra 3 tablets",
		Long: "powerhald tunes the interactive cpufreq governor, cpuquiet and input devices\n" +
			"from interactivity transitions and power hints received on a unix socket.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.log = logger.New(cmd.ErrOrStderr(), logger.IsService())

			cfg, err := config.Load(cmd.Context(),
				config.WithFlags(cmd.Flags()),
				config.WithLogger(a.log.With("config")),
			)
			if err != nil {
				return err
			}

			logger.SetLogLevel(cfg.LogLevel)
			a.cfg = cfg

			return nil
		},
	}

	config.RegisterFlags(root.PersistentFlags())
	root.PersistentFlags().DurationVar(&a.wait, "wait", defaultWait, "How long clients retry connecting to the daemon")

	root.AddCommand(
		newServeCommand(a),
		newHintCommand(a),
		newInteractiveCommand(a),
		newProfileCommand(a),
		newStatusCommand(a),
		newFeatureCommand(a),
	)

	return root
}

func (a *app) client() *control.Client {
	return control.NewClient(a.cfg.Socket, a.wait)
}
