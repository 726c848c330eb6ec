package jsonfetcher

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/vainnor/f1-stats/db"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore(t *testing.T) *db.Store {
	t.Helper()
	s, err := db.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFetchJSONUsesCache(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`{"season":"2023"}`))
	}))
	defer srv.Close()

	f := New(srv.Client(), newStore(t), time.Hour, quietLogger())
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		var out struct {
			Season string `json:"season"`
		}
		if err := f.FetchJSON(ctx, srv.URL+"/2023.json", &out); err != nil {
			t.Fatalf("FetchJSON: %v", err)
		}
		if out.Season != "2023" {
			t.Errorf("season = %q", out.Season)
		}
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("upstream hits = %d, want 1", n)
	}
}

func TestFetchRefetchesStaleEntries(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	f := New(srv.Client(), newStore(t), time.Minute, quietLogger())
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return now }

	ctx := context.Background()
	if _, err := f.Fetch(ctx, srv.URL); err != nil {
		t.Fatal(err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := f.Fetch(ctx, srv.URL); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Errorf("upstream hits = %d, want 2", n)
	}
}

func TestFetchStatusErrorNotCached(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, `{"detail":"No results found."}`, http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(srv.Client(), newStore(t), time.Hour, quietLogger())
	for i := 0; i < 2; i++ {
		_, err := f.Fetch(context.Background(), srv.URL)
		if !IsNotFound(err) {
			t.Fatalf("err = %v, want not found", err)
		}
	}
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Errorf("upstream hits = %d, want 2", n)
	}
}

func TestFetchWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := New(srv.Client(), nil, 0, quietLogger())
	_, err := f.Fetch(context.Background(), srv.URL)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadGateway {
		t.Fatalf("err = %v", err)
	}
	if IsNotFound(err) {
		t.Error("502 is not a not-found error")
	}
}

func TestFetchJSONDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	var v map[string]any
	if err := New(srv.Client(), nil, 0, quietLogger()).FetchJSON(context.Background(), srv.URL, &v); err == nil {
		t.Error("expected decode error")
	}
}
