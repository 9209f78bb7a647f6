package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/jmscore/pkg/logger"
	"github.com/okian/jmscore/pkg/metrics"
)

// SQLite-backed Store.
//
// The database runs in WAL mode. All writes go through a single connection
// whose transactions start IMMEDIATE, so write transactions are serialized
// and never fail half-way on a lock upgrade. Reads use a separate pool of
// query_only connections which see the last committed state and do not
// block the writer.

const (
	defaultReaderConns           = 4
	defaultBusyTimeout           = 5 * time.Second
	defaultMetricsUpdateInterval = 15 * time.Second
	dirPermission                = 0o750
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type queries struct {
	get       string
	getKey    string
	scan      string
	insert    string
	replace   string
	count     string
	upsertOne bool
}

var tableQueries = map[Table]queries{
	Accounts: {
		get:       `SELECT value FROM accounts WHERE key = ?`,
		getKey:    `SELECT value FROM accounts WHERE key = ?`,
		scan:      `SELECT value FROM accounts ORDER BY key`,
		insert:    `INSERT INTO accounts (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		count:     `SELECT COUNT(*) FROM accounts`,
		upsertOne: true,
	},
	Leaderboard: {
		get:     `SELECT value FROM leaderboard WHERE key = ? ORDER BY seq LIMIT 1`,
		getKey:  `SELECT value FROM leaderboard WHERE key = ? ORDER BY seq`,
		scan:    `SELECT value FROM leaderboard ORDER BY seq`,
		insert:  `INSERT INTO leaderboard (key, value) VALUES (?, ?)`,
		replace: `UPDATE leaderboard SET value = ? WHERE seq = (SELECT MIN(seq) FROM leaderboard WHERE key = ?)`,
		count:   `SELECT COUNT(*) FROM leaderboard`,
	},
}

func queriesFor(table Table) (queries, error) {
	q, ok := tableQueries[table]
	if !ok {
		return queries{}, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return q, nil
}

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	writer *sql.DB
	reader *sql.DB
	path   string

	multiScores           bool
	readerConns           int
	busyTimeout           time.Duration
	metricsUpdateInterval time.Duration

	stopCh    chan struct{}
	closeOnce sync.Once

	logger logger.Logger
}

// NewSQLiteStore opens (creating if needed) the database at path and applies
// pending schema migrations.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		path:                  path,
		readerConns:           defaultReaderConns,
		busyTimeout:           defaultBusyTimeout,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stopCh:                make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("store")
	}

	if err := os.MkdirAll(filepath.Dir(path), dirPermission); err != nil {
		return nil, fmt.Errorf("%w: create database directory: %w", ErrStorage, err)
	}

	busyMS := s.busyTimeout.Milliseconds()
	writerDSN := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate", path, busyMS)
	readerDSN := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=query_only(1)", path, busyMS)

	writer, err := sql.Open("sqlite", writerDSN)
	if err != nil {
		return nil, fmt.Errorf("%w: open writer: %w", ErrStorage, err)
	}
	writer.SetMaxOpenConns(1)
	if err := writer.PingContext(ctx); err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("%w: connect writer: %w", ErrStorage, err)
	}
	if err := migrateUp(writer); err != nil {
		_ = writer.Close()
		return nil, err
	}

	reader, err := sql.Open("sqlite", readerDSN)
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("%w: open reader: %w", ErrStorage, err)
	}
	reader.SetMaxOpenConns(s.readerConns)
	if err := reader.PingContext(ctx); err != nil {
		_ = writer.Close()
		_ = reader.Close()
		return nil, fmt.Errorf("%w: connect reader: %w", ErrStorage, err)
	}

	s.writer = writer
	s.reader = reader

	s.logger.Info(ctx, "store opened",
		logger.String("path", path),
		logger.Any("multiScores", s.multiScores),
		logger.Int("readerConns", s.readerConns),
	)

	go s.startMetricsUpdater(ctx)

	return s, nil
}

// migrateUp applies the embedded migrations. The migrate instance is not
// closed because that would close the shared *sql.DB.
func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("%w: load migrations: %w", ErrStorage, err)
	}
	drv, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("%w: migration driver: %w", ErrStorage, err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return fmt.Errorf("%w: migrate: %w", ErrStorage, err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w: migrate up: %w", ErrStorage, err)
	}
	return nil
}

// Get returns the first value under key in its own read transaction.
func (s *SQLiteStore) Get(ctx context.Context, table Table, key string) ([]byte, bool, error) {
	var (
		val   []byte
		found bool
	)
	err := s.View(ctx, func(r Reader) error {
		var err error
		val, found, err = r.Get(ctx, table, key)
		return err
	})
	return val, found, err
}

// GetAll returns every value under key (or the whole table) in its own read transaction.
func (s *SQLiteStore) GetAll(ctx context.Context, table Table, key string) ([][]byte, error) {
	var vals [][]byte
	err := s.View(ctx, func(r Reader) error {
		var err error
		vals, err = r.GetAll(ctx, table, key)
		return err
	})
	return vals, err
}

// Put stores value under key in its own write transaction.
func (s *SQLiteStore) Put(ctx context.Context, table Table, key string, value []byte) error {
	return s.Update(ctx, func(tx Tx) error {
		return tx.Put(ctx, table, key, value)
	})
}

// Count returns the number of values in table.
func (s *SQLiteStore) Count(ctx context.Context, table Table) (int, error) {
	q, err := queriesFor(table)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.reader.QueryRowContext(ctx, q.count).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count %s: %w", ErrStorage, table, err)
	}
	return n, nil
}

// View runs fn inside a read transaction on the reader pool.
func (s *SQLiteStore) View(ctx context.Context, fn func(Reader) error) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("view", float64(time.Since(start).Milliseconds()))
	}()

	tx, err := s.reader.BeginTx(ctx, nil)
	if err != nil {
		metrics.RecordErrorByComponent("store", "begin_read")
		return fmt.Errorf("%w: begin read: %w", ErrStorage, err)
	}
	defer func() { _ = tx.Rollback() }()

	return fn(&sqlTx{tx: tx, multiScores: s.multiScores})
}

// Update runs fn inside a write transaction and commits when fn succeeds.
func (s *SQLiteStore) Update(ctx context.Context, fn func(Tx) error) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("update", float64(time.Since(start).Milliseconds()))
	}()

	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		metrics.RecordErrorByComponent("store", "begin_write")
		return fmt.Errorf("%w: begin write: %w", ErrStorage, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&sqlTx{tx: tx, multiScores: s.multiScores}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		metrics.RecordErrorByComponent("store", "commit")
		return fmt.Errorf("%w: commit: %w", ErrStorage, err)
	}
	committed = true
	return nil
}

// Close stops background work and closes both connection pools.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopCh)
		err = errors.Join(s.reader.Close(), s.writer.Close())
	})
	return err
}

// startMetricsUpdater periodically publishes table sizes.
func (s *SQLiteStore) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(s.metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			for _, table := range []Table{Accounts, Leaderboard} {
				n, err := s.Count(ctx, table)
				if err != nil {
					s.logger.Warn(ctx, "table count failed", logger.String("table", string(table)), logger.Error(err))
					continue
				}
				metrics.UpdateStoreRecords(string(table), n)
			}
		}
	}
}

// sqlTx adapts *sql.Tx to the Tx interface.
type sqlTx struct {
	tx          *sql.Tx
	multiScores bool
}

func (t *sqlTx) Get(ctx context.Context, table Table, key string) ([]byte, bool, error) {
	q, err := queriesFor(table)
	if err != nil {
		return nil, false, err
	}
	var val []byte
	err = t.tx.QueryRowContext(ctx, q.get, key).Scan(&val)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("%w: get %s/%q: %w", ErrStorage, table, key, err)
	}
	return val, true, nil
}

func (t *sqlTx) GetAll(ctx context.Context, table Table, key string) ([][]byte, error) {
	q, err := queriesFor(table)
	if err != nil {
		return nil, err
	}
	var rows *sql.Rows
	if key == "" {
		rows, err = t.tx.QueryContext(ctx, q.scan)
	} else {
		rows, err = t.tx.QueryContext(ctx, q.getKey, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scan %s: %w", ErrStorage, table, err)
	}
	defer func() { _ = rows.Close() }()

	var vals [][]byte
	for rows.Next() {
		var v []byte
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %w", ErrStorage, table, err)
		}
		vals = append(vals, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scan %s: %w", ErrStorage, table, err)
	}
	return vals, nil
}

func (t *sqlTx) Put(ctx context.Context, table Table, key string, value []byte) error {
	q, err := queriesFor(table)
	if err != nil {
		return err
	}

	// Single-score leaderboard: overwrite the first value under key so the
	// entry keeps its scan position.
	if !q.upsertOne && !t.multiScores {
		res, err := t.tx.ExecContext(ctx, q.replace, value, key)
		if err != nil {
			return fmt.Errorf("%w: put %s/%q: %w", ErrStorage, table, key, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			return nil
		}
	}

	if _, err := t.tx.ExecContext(ctx, q.insert, key, value); err != nil {
		return fmt.Errorf("%w: put %s/%q: %w", ErrStorage, table, key, err)
	}
	return nil
}
