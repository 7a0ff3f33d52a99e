package metrics

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/powerhald/internal/errors"
	"codeberg.org/mutker/powerhald/internal/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		DBPath:       filepath.Join(t.TempDir(), "journal", "events.db"),
		Enabled:      true,
		BatchSize:    1,
		BatchTimeout: 0,
	}
}

func countRows(t *testing.T, path, query string, args ...any) int {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(query, args...).Scan(&n))
	return n
}

func TestDisabledIsNoop(t *testing.T) {
	c, err := NewService(DefaultConfig(), logger.Nop())
	require.NoError(t, err)

	assert.False(t, c.Enabled())
	assert.Empty(t, Session(c))
	assert.NoError(t, c.Record(context.Background(), &Event{}))
	assert.NoError(t, c.Close())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		code errors.ErrorCode
	}{
		{"missing path", Config{Enabled: true}, ErrInvalidDBPath},
		{"negative batch", Config{Enabled: true, DBPath: "x.db", BatchSize: -1}, ErrInvalidConfig},
		{"negative timeout", Config{Enabled: true, DBPath: "x.db", BatchTimeout: -time.Second}, errors.ErrInvalidInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code))
		})
	}

	assert.NoError(t, Config{}.Validate(), "disabled config is not validated")
}

func TestRecordWritesSessionRows(t *testing.T) {
	cfg := testConfig(t)
	c, err := NewService(cfg, logger.Nop())
	require.NoError(t, err)

	session := Session(c)
	_, err = uuid.Parse(session)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Record(ctx, &Event{
		Timestamp: time.Now(),
		Kind:      KindHint,
		Hint:      8,
		Profile:   1,
		Outcome:   OutcomeApplied,
	}))
	require.NoError(t, c.Record(ctx, &Event{
		Timestamp:   time.Now(),
		Kind:        KindInteractive,
		Interactive: true,
		Outcome:     OutcomeApplied,
	}))
	require.NoError(t, c.Close())

	assert.Equal(t, 2, countRows(t, cfg.DBPath, "SELECT COUNT(*) FROM events WHERE session = ?", session))
	assert.Equal(t, 1, countRows(t, cfg.DBPath, "SELECT COUNT(*) FROM events WHERE kind = 'hint' AND hint = 8"))
}

func TestRecordRejectsIncompleteEvents(t *testing.T) {
	c, err := NewService(testConfig(t), logger.Nop())
	require.NoError(t, err)
	defer c.Close()

	for _, ev := range []*Event{nil, {Kind: KindHint}, {Outcome: OutcomeApplied}} {
		err := c.Record(context.Background(), ev)
		assert.True(t, errors.HasCode(err, ErrInvalidEvent))
	}
}

func TestRecordHonoursCancelledContext(t *testing.T) {
	c, err := NewService(testConfig(t), logger.Nop())
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = c.Record(ctx, &Event{Kind: KindHint, Outcome: OutcomeApplied})
	assert.True(t, errors.HasCode(err, ErrOperationTimeout))
}

func TestBatchedRecordsFlushOnClose(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 100
	cfg.BatchTimeout = time.Hour

	c, err := NewService(cfg, logger.Nop())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Record(context.Background(), &Event{
			Timestamp: time.Now(),
			Kind:      KindProfile,
			Payload:   int32(i),
			Outcome:   OutcomeApplied,
		}))
	}
	assert.Zero(t, countRows(t, cfg.DBPath, "SELECT COUNT(*) FROM events"), "batch not yet flushed")

	require.NoError(t, c.Close())
	assert.Equal(t, 5, countRows(t, cfg.DBPath, "SELECT COUNT(*) FROM events"))
}

func TestSchemaMismatchBacksUpAndRecreates(t *testing.T) {
	cfg := testConfig(t)

	c, err := NewService(cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, c.Close())

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	_, err = db.Exec("UPDATE schema_versions SET version = ?", SchemaVersion+41)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	c, err = NewService(cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, c.Close())

	backups, err := filepath.Glob(filepath.Join(cfg.backupDir(), "events_v*.db"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)
	assert.Equal(t, 1, countRows(t, cfg.DBPath, "SELECT COUNT(*) FROM schema_versions WHERE version = ?", SchemaVersion))
}

func TestFailingDatabaseBoundsBuffer(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 2

	repo, err := NewRepository(cfg, uuid.NewString(), logger.Nop())
	require.NoError(t, err)
	defer repo.Close()

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	_, err = db.Exec("DROP TABLE events")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	r := repo.(*repository)
	limit := cfg.BatchSize * maxPendingBatches
	for i := 1; i < limit; i++ {
		_ = r.Record(&Event{Timestamp: time.Now(), Kind: KindHint, Outcome: OutcomeApplied})
	}
	assert.Len(t, r.buffer, limit-1, "kept for retry")

	assert.Error(t, r.Record(&Event{Timestamp: time.Now(), Kind: KindHint, Outcome: OutcomeApplied}))
	assert.Empty(t, r.buffer)
}
