// Package db stores upstream API responses so repeated requests for the
// same season or session do not hit the network again.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/vainnor/f1-stats/config"
	"github.com/vainnor/f1-stats/types"
)

const cacheFile = "http_cache.sqlite"

// Store is a response cache backed by SQLite or Postgres.
type Store struct {
	db     *sql.DB
	driver string
}

// Entry is one cached upstream response.
type Entry struct {
	URL       string
	Body      []byte
	FetchedAt time.Time
}

// OpenFromConfig opens the cache selected by cfg, creating CacheDir for the
// SQLite backend.
func OpenFromConfig(cfg config.Config) (*Store, error) {
	driver := cfg.CacheDriver()
	if driver == "postgres" {
		return Open(driver, cfg.CacheDSN)
	}
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating cache dir %s", cfg.CacheDir)
	}
	dsn := cfg.CacheDSN
	if dsn == "" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
			filepath.Join(cfg.CacheDir, cacheFile))
	}
	return Open(driver, dsn)
}

// Open connects to the database and makes sure the cache schema exists.
func Open(driver, dsn string) (*Store, error) {
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "error opening database")
	}
	// Every connection to an in-memory SQLite database is a separate database.
	if strings.Contains(dsn, ":memory:") {
		conn.SetMaxOpenConns(1)
	}

	if err = conn.Ping(); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "error connecting to the database")
	}

	s := &Store{db: conn, driver: driver}
	if err = s.createTables(); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "error creating tables")
	}
	return s, nil
}

func (s *Store) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS http_cache (
			url TEXT PRIMARY KEY,
			body TEXT NOT NULL,
			fetched_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_http_cache_fetched_at ON http_cache (fetched_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

// Driver returns the database/sql driver name in use.
func (s *Store) Driver() string { return s.driver }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the cached response for url. The boolean is false on a miss.
func (s *Store) Get(ctx context.Context, url string) (Entry, bool, error) {
	var (
		body      string
		fetchedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT body, fetched_at FROM http_cache WHERE url = $1`), url,
	).Scan(&body, &fetchedAt)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, errors.Wrapf(err, "reading cache entry %s", url)
	}
	return Entry{URL: url, Body: []byte(body), FetchedAt: time.UnixMilli(fetchedAt).UTC()}, true, nil
}

// Put stores body for url, replacing any previous entry.
func (s *Store) Put(ctx context.Context, url string, body []byte, fetchedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO http_cache (url, body, fetched_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (url) DO UPDATE SET body = excluded.body, fetched_at = excluded.fetched_at
	`), url, string(body), fetchedAt.UnixMilli())
	if err != nil {
		return errors.Wrapf(err, "writing cache entry %s", url)
	}
	return nil
}

// Prune deletes entries fetched before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		s.rebind(`DELETE FROM http_cache WHERE fetched_at < $1`), cutoff.UnixMilli())
	if err != nil {
		return 0, errors.Wrap(err, "pruning cache")
	}
	return result.RowsAffected()
}

// Stats summarizes the cache contents.
func (s *Store) Stats(ctx context.Context) (types.CacheStats, error) {
	var (
		stats          types.CacheStats
		oldest, newest sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(LENGTH(body)), 0), MIN(fetched_at), MAX(fetched_at)
		FROM http_cache
	`).Scan(&stats.Entries, &stats.Bytes, &oldest, &newest)
	if err != nil {
		return stats, errors.Wrap(err, "reading cache stats")
	}
	if oldest.Valid {
		stats.Oldest = time.UnixMilli(oldest.Int64).UTC()
	}
	if newest.Valid {
		stats.Newest = time.UnixMilli(newest.Int64).UTC()
	}
	return stats, nil
}

// rebind rewrites $N placeholders to ? for SQLite. Queries use each
// placeholder once and in order.
func (s *Store) rebind(query string) string {
	if s.driver == "postgres" {
		return query
	}
	var b strings.Builder
	for i := 0; i < len(query); i++ {
		if query[i] == '$' && i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
			b.WriteByte('?')
			for i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
				i++
			}
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
