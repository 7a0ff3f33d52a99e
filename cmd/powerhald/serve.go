package main

import (
	"context"
	"os/signal"
	"syscall"

	"codeberg.org/mutker/powerhald/internal/clock"
	"codeberg.org/mutker/powerhald/internal/config"
	"codeberg.org/mutker/powerhald/internal/control"
	"codeberg.org/mutker/powerhald/internal/device"
	"codeberg.org/mutker/powerhald/internal/errors"
	"codeberg.org/mutker/powerhald/internal/logger"
	"codeberg.org/mutker/powerhald/internal/metrics"
	"codeberg.org/mutker/powerhald/internal/pid"
	"codeberg.org/mutker/powerhald/internal/power"
	"codeberg.org/mutker/powerhald/internal/sysfs"
	"github.com/spf13/cobra"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, a.cfg, a.log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	errFactory := errors.New()

	if cfg.PIDFile != "" {
		if err := pid.Write(cfg.PIDFile); err != nil {
			return err
		}
		defer func() {
			if err := pid.Remove(cfg.PIDFile); err != nil {
				log.Warn().Err(err).Msg("Failed to remove PID file")
			}
		}()
	}

	fs := sysfs.New(cfg.Root, log.With("sysfs"))
	state := device.Initialize(fs, device.Options{Inputs: cfg.Inputs}, log.With("device"))

	collector, err := metrics.NewService(cfg.Metrics, log.With("metrics"))
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}
	defer func() {
		if err := collector.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close event journal")
		}
	}()
	if session := metrics.Session(collector); session != "" {
		log.Info().Str("session", session).Str("db", cfg.Metrics.DBPath).Msg("Journaling events")
	}

	hal, err := power.New(fs, state, clock.Real(), collector, log.With("power"), power.Options{
		InteractionPolicy: cfg.InteractionPolicy,
		HintIntervals:     cfg.HintIntervals,
		Ftrace:            cfg.Ftrace,
	})
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}
	defer hal.Close()

	if err := hal.Start(ctx, cfg.DefaultProfile, cfg.BootBoost); err != nil {
		return err
	}

	if cfg.ConfigFile() != "" {
		err := cfg.Watch(ctx, func(p config.Provider) {
			logger.SetLogLevel(p.GetLogLevel())
			if err := hal.SetHintIntervals(p.GetHintIntervals()); err != nil {
				log.Warn().Err(err).Msg("Failed to apply hint intervals")
			}
		})
		if err != nil {
			log.Warn().Err(err).Msg("Configuration reload disabled")
		}
	}

	log.Info().
		Stringer("profile", hal.CurrentProfile()).
		Str("interaction_policy", string(cfg.InteractionPolicy)).
		Msg("Power HAL ready")

	server := control.NewSocketServer(cfg.Socket, log.With("control"))
	control.Register(server, hal)

	if err := server.Serve(ctx); err != nil {
		return err
	}

	log.Info().Msg("Exiting...")

	return nil
}
