// Package metrics journals power events to an optional sqlite database.
// The journal is write-only: nothing in the daemon reads it back.
package metrics

import (
	"context"

	"codeberg.org/mutker/powerhald/internal/errors"
	"codeberg.org/mutker/powerhald/internal/logger"
	"github.com/google/uuid"
)

type service struct {
	repo    Repository
	cfg     Config
	session string
}

type noopCollector struct{}

// NewService returns a journal backed collector, or a no-op collector
// when cfg.Enabled is false.
func NewService(cfg Config, log logger.Logger) (Collector, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		log.Debug().Msg("Event journal disabled, using no-op collector")
		return Noop(), nil
	}

	session := uuid.NewString()
	repo, err := NewRepository(cfg, session, log)
	if err != nil {
		return nil, err
	}

	return &service{
		repo:    repo,
		cfg:     cfg,
		session: session,
	}, nil
}

// Noop returns a collector that drops every event.
func Noop() Collector {
	return noopCollector{}
}

// Session returns the id stamped on this run's rows, or "" for a no-op
// collector.
func Session(c Collector) string {
	if s, ok := c.(*service); ok {
		return s.session
	}
	return ""
}

func (s *service) Record(ctx context.Context, event *Event) error {
	errFactory := errors.New()

	if event == nil || event.Kind == "" || event.Outcome == "" {
		return errFactory.New(ErrInvalidEvent)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		if err := s.repo.Record(event); err != nil {
			return errFactory.Wrap(ErrEventCollection, err)
		}
	}

	return nil
}

func (s *service) Close() error {
	if err := s.repo.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}
	return nil
}

func (*service) Enabled() bool {
	return true
}

func (noopCollector) Record(_ context.Context, _ *Event) error {
	return nil
}

func (noopCollector) Close() error {
	return nil
}

func (noopCollector) Enabled() bool {
	return false
}
