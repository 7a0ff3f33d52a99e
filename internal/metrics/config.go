package metrics

import (
	"path/filepath"
	"time"

	"codeberg.org/mutker/powerhald/internal/errors"
)

const (
	defaultDirPerm      = 0o755
	defaultDBPath       = "/var/lib/powerhald/events.db"
	defaultBatchSize    = 32
	defaultBatchTimeout = 5 * time.Second

	// unflushed batches held while the database is failing
	maxPendingBatches = 4
)

type Config struct {
	DBPath       string
	Enabled      bool
	BatchSize    int
	BatchTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		DBPath:       defaultDBPath,
		Enabled:      false, // opt-in
		BatchSize:    defaultBatchSize,
		BatchTimeout: defaultBatchTimeout,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate the rest if the journal is enabled
	if !c.Enabled {
		return nil
	}
	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 0 {
		return errFactory.WithData(ErrInvalidConfig, struct {
			Field string
			Value int
		}{
			Field: "batch_size",
			Value: c.BatchSize,
		})
	}
	if c.BatchTimeout < 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.BatchTimeout.String())
	}

	return nil
}

// backupDir is where schema migrations leave the previous database.
func (c Config) backupDir() string {
	return filepath.Join(filepath.Dir(c.DBPath), "backups")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
