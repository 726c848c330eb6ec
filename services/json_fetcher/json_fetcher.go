// Package jsonfetcher performs upstream JSON GETs through the response cache.
package jsonfetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/vainnor/f1-stats/db"
)

// Cache is the subset of db.Store used by the fetcher.
type Cache interface {
	Get(ctx context.Context, url string) (db.Entry, bool, error)
	Put(ctx context.Context, url string, body []byte, fetchedAt time.Time) error
}

// StatusError is returned when the upstream answers with a non-200 status.
type StatusError struct {
	URL    string
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

type Fetcher struct {
	client *http.Client
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// New returns a Fetcher. A nil cache disables caching and a ttl of zero
// keeps cached entries fresh forever.
func New(client *http.Client, cache Cache, ttl time.Duration, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{client: client, cache: cache, ttl: ttl, logger: logger, now: time.Now}
}

// FetchJSON fetches url and decodes the body into v.
func (f *Fetcher) FetchJSON(ctx context.Context, url string, v any) error {
	body, err := f.Fetch(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.Wrapf(err, "decoding %s", url)
	}
	return nil
}

// Fetch returns the body for url, from the cache when a fresh entry exists.
// Only 200 responses are cached. Cache failures are logged, never returned.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.cache != nil {
		entry, ok, err := f.cache.Get(ctx, url)
		switch {
		case err != nil:
			f.logger.Warn("cache read failed", "url", url, "error", err)
		case ok && f.fresh(entry):
			f.logger.Debug("cache hit", "url", url)
			return entry.Body, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", url)
	}
	f.logger.Debug("fetched upstream data", "url", url, "bytes", len(body))

	if f.cache != nil {
		if err := f.cache.Put(ctx, url, body, f.now()); err != nil {
			f.logger.Warn("cache write failed", "url", url, "error", err)
		}
	}
	return body, nil
}

func (f *Fetcher) fresh(e db.Entry) bool {
	return f.ttl <= 0 || f.now().Sub(e.FetchedAt) < f.ttl
}
