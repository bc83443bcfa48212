package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS records (
	namespace  TEXT    NOT NULL,
	owner      TEXT    NOT NULL,
	data       BLOB    NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (namespace, owner)
)`

// SQLiteStore persists records in a single SQLite table.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteStore opens (or creates) the database at path and creates the
// records table.
func NewSQLiteStore(path string, log zerolog.Logger) (*SQLiteStore, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer keeps each Update a single serialized transaction
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate records: %w", err)
	}

	s := &SQLiteStore{db: db, log: log.With().Str("component", "store").Logger()}
	s.log.Info().Str("path", path).Msg("sqlite record store opened")
	return s, nil
}

func (s *SQLiteStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx, false, fn)
}

func (s *SQLiteStore) View(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx, true, fn)
}

func (s *SQLiteStore) run(ctx context.Context, readOnly bool, fn func(tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(&sqliteTx{ctx: ctx, tx: sqlTx, readOnly: readOnly}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			s.log.Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	if readOnly {
		return sqlTx.Rollback()
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	s.log.Info().Msg("closing sqlite record store")
	return s.db.Close()
}

type sqliteTx struct {
	ctx      context.Context
	tx       *sql.Tx
	readOnly bool
}

func (t *sqliteTx) Get(namespace, owner string, v any) (bool, error) {
	var data []byte
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT data FROM records WHERE namespace = ? AND owner = ?`, namespace, owner,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s/%s: %w", namespace, owner, err)
	}
	if err := decode(data, v); err != nil {
		return false, fmt.Errorf("decode %s/%s: %w", namespace, owner, err)
	}
	return true, nil
}

func (t *sqliteTx) Put(namespace, owner string, v any) error {
	if t.readOnly {
		return fmt.Errorf("put %s/%s: read-only transaction", namespace, owner)
	}
	data, err := encode(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", namespace, owner, err)
	}
	_, err = t.tx.ExecContext(t.ctx, `INSERT INTO records (namespace, owner, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace, owner) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		namespace, owner, data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", namespace, owner, err)
	}
	return nil
}

func (t *sqliteTx) Exists(namespace, owner string) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT COUNT(1) FROM records WHERE namespace = ? AND owner = ?`, namespace, owner,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("exists %s/%s: %w", namespace, owner, err)
	}
	return n > 0, nil
}
