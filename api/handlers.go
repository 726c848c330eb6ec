package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vainnor/f1-stats/services/ergast"
	"github.com/vainnor/f1-stats/session"
	"github.com/vainnor/f1-stats/table"
	"github.com/vainnor/f1-stats/types"
	"github.com/vainnor/f1-stats/workers"
)

func (s *server) root(*http.Request) (any, error) {
	return types.Info{
		Message:       "Welcome to the F1 Data API",
		Documentation: "/routes",
		Version:       s.Version,
		DataSource:    "jolpica-f1 API (Ergast replacement) and OpenF1",
	}, nil
}

func (s *server) health(r *http.Request) (any, error) {
	h := types.Health{
		Status:       "healthy",
		CacheEnabled: s.Cache != nil,
		CacheDir:     s.Config.CacheDir,
		CacheDriver:  s.Config.CacheDriver(),
		APIBackend:   "jolpica-f1",
	}
	if s.Cache == nil {
		return h, nil
	}
	if err := s.Cache.Ping(r.Context()); err != nil {
		s.Logger.Warn("cache store unreachable", "error", err)
		h.Status = "degraded"
		return h, nil
	}
	stats, err := s.Cache.Stats(r.Context())
	if err != nil {
		s.Logger.Warn("cache stats unavailable", "error", err)
		h.Status = "degraded"
		return h, nil
	}
	h.CacheEntries = stats.Entries
	return h, nil
}

func yearParam(r *http.Request, min int) (int, error) {
	raw := mux.Vars(r)["year"]
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, NotFound("year %q is not a number.", raw)
	}
	if year < min || year > types.MaxYear {
		return 0, NotFound("year must be between %d and %d, got %d.", min, types.MaxYear, year)
	}
	return year, nil
}

func (s *server) schedule(r *http.Request) (any, error) {
	year, err := yearParam(r, types.MinYear)
	if err != nil {
		return nil, err
	}
	events, err := workers.Run(r.Context(), s.Pool, func(ctx context.Context) ([]ergast.Event, error) {
		return s.Season.Schedule(ctx, year)
	})
	if err != nil {
		s.Logger.Error("failed to get schedule", "year", year, "error", err)
		return nil, NotFound("Schedule for %d is not available.", year)
	}
	return table.Normalize(ergast.ScheduleTable(events)), nil
}

// seasonTable serves a per-season table. unavailable and empty are format
// strings taking the year.
func (s *server) seasonTable(r *http.Request, fetch func(context.Context, int) (table.Table, error), unavailable, empty string) (any, error) {
	year, err := yearParam(r, types.MinYear)
	if err != nil {
		return nil, err
	}
	tbl, err := workers.Run(r.Context(), s.Pool, func(ctx context.Context) (table.Table, error) {
		return fetch(ctx, year)
	})
	if err == nil && tbl.Empty() {
		err = errors.Errorf(empty, year)
	}
	if err != nil {
		msg := fmt.Sprintf(unavailable, year)
		s.Logger.Error("failed to get season data", "year", year, "error", err)
		return nil, NotFound("%s Error: %v", msg, err)
	}
	return table.Normalize(tbl), nil
}

func (s *server) driverStandings(r *http.Request) (any, error) {
	return s.seasonTable(r, s.Season.DriverStandings,
		"Driver standings for %d are not available.", "No driver standings found for the %d season.")
}

func (s *server) constructorStandings(r *http.Request) (any, error) {
	return s.seasonTable(r, s.Season.ConstructorStandings,
		"Constructor standings for %d are not available.", "No constructor standings found for the %d season.")
}

func (s *server) drivers(r *http.Request) (any, error) {
	return s.seasonTable(r, s.Season.Drivers,
		"Drivers list for %d is not available.", "No drivers found for the %d season.")
}

func (s *server) constructors(r *http.Request) (any, error) {
	return s.seasonTable(r, s.Season.Constructors,
		"Constructors list for %d is not available.", "No constructors found for the %d season.")
}

func sessionRequest(r *http.Request, minYear int, flags session.Flags) (session.Request, error) {
	year, err := yearParam(r, minYear)
	if err != nil {
		return session.Request{}, err
	}
	vars := mux.Vars(r)
	gp := strings.TrimSpace(vars["gp"])
	if gp == "" {
		return session.Request{}, NotFound("gp must not be empty.")
	}
	st, err := types.ParseSessionType(vars["sessionType"])
	if err != nil {
		return session.Request{}, NotFound("%v", err)
	}
	return session.Request{Year: year, Event: gp, Type: st, Flags: flags}, nil
}

func (s *server) loadSession(ctx context.Context, req session.Request) (*session.Session, error) {
	sess, err := workers.Run(ctx, s.Pool, func(ctx context.Context) (*session.Session, error) {
		return s.Loader.Load(ctx, req)
	})
	if err != nil {
		var loadErr *session.LoadError
		if errors.As(err, &loadErr) {
			return nil, NotFound("%s", loadErr.Error())
		}
		return nil, Internal(err)
	}
	return sess, nil
}

// sessionTable serves one sub-table of a loaded session.
func (s *server) sessionTable(minYear int, flags session.Flags, pick func(*session.Session) table.Table, unavailable string) handlerFunc {
	return func(r *http.Request) (any, error) {
		req, err := sessionRequest(r, minYear, flags)
		if err != nil {
			return nil, err
		}
		sess, err := s.loadSession(r.Context(), req)
		if err != nil {
			return nil, err
		}
		tbl := pick(sess)
		if tbl.Empty() {
			return nil, NotFound("%s", unavailable)
		}
		return table.Normalize(tbl), nil
	}
}

func (s *server) results(r *http.Request) (any, error) {
	return s.sessionTable(types.MinYear, session.Flags{},
		func(sess *session.Session) table.Table { return sess.Results },
		"Results data is not available for this session.")(r)
}

func (s *server) laps(r *http.Request) (any, error) {
	return s.sessionTable(types.MinYear, session.Flags{Laps: true},
		func(sess *session.Session) table.Table { return sess.Laps },
		"Lap data is not available for this session.")(r)
}

func (s *server) weather(r *http.Request) (any, error) {
	return s.sessionTable(types.MinTimingDataYear, session.Flags{Weather: true},
		func(sess *session.Session) table.Table { return sess.Weather },
		"Weather data is not available for this session.")(r)
}

func (s *server) messages(r *http.Request) (any, error) {
	return s.sessionTable(types.MinTimingDataYear, session.Flags{Messages: true},
		func(sess *session.Session) table.Table { return sess.Messages },
		"Race control messages are not available for this session.")(r)
}

func (s *server) telemetry(r *http.Request) (any, error) {
	req, err := sessionRequest(r, types.MinTimingDataYear, session.Flags{Laps: true, Telemetry: true})
	if err != nil {
		return nil, err
	}
	driver := mux.Vars(r)["driver"]
	if utf8.RuneCountInString(driver) != 3 {
		return nil, NotFound("driver must be a three-letter abbreviation, got %q.", driver)
	}
	sess, err := s.loadSession(r.Context(), req)
	if err != nil {
		return nil, err
	}

	laps := session.PickDriver(sess.Laps, driver)
	if laps.Empty() {
		return nil, NotFound("No laps found for driver %s in this session.", driver)
	}
	fastest, err := session.PickFastest(laps)
	if err != nil {
		s.Logger.Error("failed to pick fastest lap", "driver", driver, "error", err)
		return nil, &Error{Kind: KindNotFound, Reason: "No valid fastest lap found for driver " + driver + ".", Err: err}
	}
	if fastest.Get("LapTime").IsMissing() {
		return nil, &Error{Kind: KindNotFound, Reason: "No valid lap time found for driver " + driver + ".", Err: session.ErrNoLapTime}
	}

	tel, err := workers.Run(r.Context(), s.Pool, func(ctx context.Context) (table.Table, error) {
		return sess.Telemetry(ctx, fastest)
	})
	if err == nil && tel.Empty() {
		err = errors.Errorf("No telemetry data available for driver %s.", driver)
	}
	if err != nil {
		s.Logger.Error("failed to get telemetry", "driver", driver, "error", err)
		return nil, &Error{
			Kind:   KindNotFound,
			Reason: "Telemetry data for driver " + driver + " is not available. Error: " + err.Error(),
			Err:    err,
		}
	}
	return table.Normalize(tel), nil
}
