package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/vainnor/f1-stats/config"
	"github.com/vainnor/f1-stats/db"
	"github.com/vainnor/f1-stats/services/ergast"
	"github.com/vainnor/f1-stats/table"
)

type fakePruner struct {
	cutoff time.Time
	err    error
}

func (f *fakePruner) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 3, f.err
}

type fakeSeason struct {
	years  []int
	failOn string
}

func (f *fakeSeason) record(name string, year int) error {
	f.years = append(f.years, year)
	if name == f.failOn {
		return errors.New(name + " unavailable")
	}
	return nil
}

func (f *fakeSeason) Schedule(ctx context.Context, year int) ([]ergast.Event, error) {
	return nil, f.record("schedule", year)
}

func (f *fakeSeason) DriverStandings(ctx context.Context, year int) (table.Table, error) {
	return nil, f.record("driver standings", year)
}

func (f *fakeSeason) ConstructorStandings(ctx context.Context, year int) (table.Table, error) {
	return nil, f.record("constructor standings", year)
}

func (f *fakeSeason) Drivers(ctx context.Context, year int) (table.Table, error) {
	return nil, f.record("drivers", year)
}

func (f *fakeSeason) Constructors(ctx context.Context, year int) (table.Table, error) {
	return nil, f.record("constructors", year)
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func testConfig(prune, warm string) config.Config {
	return config.Config{CacheTTL: time.Hour, CachePruneSchedule: prune, CacheWarmSchedule: warm}
}

func TestNewRegistersJobs(t *testing.T) {
	tests := []struct {
		name  string
		prune string
		warm  string
		want  int
	}{
		{"defaults", "@hourly", "", 1},
		{"both", "@hourly", "0 6 * * *", 2},
		{"none", "", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(testConfig(tt.prune, tt.warm), &fakePruner{}, &fakeSeason{}, discard)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if got := s.Jobs(); got != tt.want {
				t.Errorf("Jobs = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewRejectsBadSchedule(t *testing.T) {
	if _, err := New(testConfig("every hour", ""), &fakePruner{}, nil, discard); err == nil {
		t.Error("expected error for bad prune schedule")
	}
	if _, err := New(testConfig("@hourly", "61 * * * *"), &fakePruner{}, &fakeSeason{}, discard); err == nil {
		t.Error("expected error for bad warm schedule")
	}
}

func TestPruneUsesTTL(t *testing.T) {
	p := &fakePruner{}
	s, err := New(testConfig("@hourly", ""), p, nil, discard)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	n, err := s.Prune(context.Background())
	if err != nil || n != 3 {
		t.Fatalf("Prune = %d, %v", n, err)
	}
	if want := now.Add(-time.Hour); !p.cutoff.Equal(want) {
		t.Errorf("cutoff = %v, want %v", p.cutoff, want)
	}

	p.err = errors.New("disk full")
	if _, err := s.Prune(context.Background()); err == nil {
		t.Error("expected prune error")
	}
}

func TestPruneKeepsEntriesWithoutTTL(t *testing.T) {
	store, err := db.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()
	if err := store.Put(ctx, "https://example.test/a", []byte(`{}`), time.Now().Add(-time.Minute)); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig("@hourly", "")
	cfg.CacheTTL = 0
	s, err := New(cfg, store, nil, discard)
	if err != nil {
		t.Fatal(err)
	}
	n, err := s.Prune(ctx)
	if err != nil || n != 0 {
		t.Fatalf("Prune = %d, %v, want 0, nil", n, err)
	}
	if _, ok, err := store.Get(ctx, "https://example.test/a"); err != nil || !ok {
		t.Errorf("entry removed: ok=%v err=%v", ok, err)
	}
}

func TestWarmFetchesEverySeasonTable(t *testing.T) {
	season := &fakeSeason{failOn: "driver standings"}
	s, err := New(testConfig("", "@daily"), &fakePruner{}, season, discard)
	if err != nil {
		t.Fatal(err)
	}
	err = s.Warm(context.Background(), 2024)
	if err == nil {
		t.Fatal("expected the driver standings failure")
	}
	if len(season.years) != 5 {
		t.Errorf("fetches = %d, want 5 (a failure must not stop the run)", len(season.years))
	}
	for _, y := range season.years {
		if y != 2024 {
			t.Errorf("fetched year %d", y)
		}
	}
}

func TestStartStop(t *testing.T) {
	s, err := New(testConfig("@hourly", ""), &fakePruner{}, nil, discard)
	if err != nil {
		t.Fatal(err)
	}
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	if s.ctx.Err() == nil {
		t.Error("job context not cancelled on Stop")
	}
}
