// Package session resolves a race weekend session and loads the sub-tables a
// request asks for.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/vainnor/f1-stats/services/ergast"
	"github.com/vainnor/f1-stats/services/openf1"
	"github.com/vainnor/f1-stats/table"
	"github.com/vainnor/f1-stats/types"
)

var (
	ErrNoFastestLap       = errors.New("no valid fastest lap")
	ErrNoLapTime          = errors.New("fastest lap has no lap time")
	ErrTelemetryNotLoaded = errors.New("telemetry was not loaded for this session")
)

// ScheduleSource provides season schedules and official classifications.
type ScheduleSource interface {
	Schedule(ctx context.Context, year int) ([]ergast.Event, error)
	Results(ctx context.Context, year, round int, st types.SessionType) (table.Table, error)
}

// TimingSource provides live-timing data for a session.
type TimingSource interface {
	Meetings(ctx context.Context, year int) ([]openf1.Meeting, error)
	Sessions(ctx context.Context, meetingKey int) ([]openf1.Session, error)
	Drivers(ctx context.Context, sessionKey int) ([]openf1.Driver, error)
	Laps(ctx context.Context, sessionKey int) ([]openf1.Lap, error)
	Weather(ctx context.Context, sessionKey int) ([]openf1.Weather, error)
	RaceControl(ctx context.Context, sessionKey int) ([]openf1.RaceControl, error)
	SessionResults(ctx context.Context, sessionKey int) ([]openf1.SessionResult, error)
	CarData(ctx context.Context, sessionKey, driverNumber int, from, to time.Time) ([]openf1.CarData, error)
	Location(ctx context.Context, sessionKey, driverNumber int, from, to time.Time) ([]openf1.Location, error)
}

// Flags select the optional sub-tables to load. Results are always loaded.
type Flags struct {
	Laps      bool
	Telemetry bool
	Weather   bool
	Messages  bool
}

// Request identifies a session. Event is an event name or a round number.
type Request struct {
	Year  int
	Event string
	Type  types.SessionType
	Flags Flags
}

// LoadError reports that a session could not be resolved or loaded.
type LoadError struct {
	Year  int
	Event string
	Type  types.SessionType
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("Session data for %d %s '%s' is not available. Error: %v", e.Year, e.Event, e.Type, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Cause() error { return e.Err }

// Session is a loaded session. Sub-tables that were not requested are nil.
type Session struct {
	Event    ergast.Event
	Type     types.SessionType
	Results  table.Table
	Laps     table.Table
	Weather  table.Table
	Messages table.Table

	timing     TimingSource
	sessionKey int
	start      time.Time
	drivers    map[int]openf1.Driver
	telemetry  bool
}

type Loader struct {
	schedule ScheduleSource
	timing   TimingSource
	logger   *slog.Logger
}

func NewLoader(schedule ScheduleSource, timing TimingSource, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{schedule: schedule, timing: timing, logger: logger}
}

// Load resolves and loads req. Every failure is returned as a *LoadError.
func (l *Loader) Load(ctx context.Context, req Request) (*Session, error) {
	l.logger.Debug("loading session", "year", req.Year, "event", req.Event, "session", req.Type)
	s, err := l.load(ctx, req)
	if err != nil {
		l.logger.Error("failed to load session",
			"year", req.Year, "event", req.Event, "session", req.Type, "error", err)
		return nil, &LoadError{Year: req.Year, Event: req.Event, Type: req.Type, Err: err}
	}
	return s, nil
}

func (l *Loader) load(ctx context.Context, req Request) (*Session, error) {
	if _, err := types.ParseSessionType(string(req.Type)); err != nil {
		return nil, err
	}
	events, err := l.schedule.Schedule(ctx, req.Year)
	if err != nil {
		return nil, err
	}
	event, err := MatchEvent(events, req.Event)
	if err != nil {
		return nil, err
	}
	if !event.HasSession(req.Type) {
		return nil, errors.Errorf("%s has no session of type '%s'", event.Name, req.Type)
	}

	s := &Session{
		Event:     event,
		Type:      req.Type,
		timing:    l.timing,
		telemetry: req.Flags.Telemetry,
	}

	f := req.Flags
	officialResults := ergast.SupportsResults(req.Type)
	if f.Laps || f.Telemetry || f.Weather || f.Messages || !officialResults {
		if err := l.resolveTiming(ctx, s); err != nil {
			return nil, err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if officialResults {
			s.Results, err = l.schedule.Results(gctx, event.Year, event.Round, req.Type)
			return err
		}
		rows, err := l.timing.SessionResults(gctx, s.sessionKey)
		if err != nil {
			return err
		}
		s.Results = resultsTable(rows, s.drivers)
		return nil
	})
	if f.Laps || f.Telemetry {
		g.Go(func() error {
			laps, err := l.timing.Laps(gctx, s.sessionKey)
			if err != nil {
				return err
			}
			s.Laps = lapsTable(laps, s.drivers, s.start)
			return nil
		})
	}
	if f.Weather {
		g.Go(func() error {
			rows, err := l.timing.Weather(gctx, s.sessionKey)
			if err != nil {
				return err
			}
			s.Weather = weatherTable(rows, s.start)
			return nil
		})
	}
	if f.Messages {
		g.Go(func() error {
			rows, err := l.timing.RaceControl(gctx, s.sessionKey)
			if err != nil {
				return err
			}
			s.Messages = messagesTable(rows)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return s, nil
}

// resolveTiming finds the live-timing session matching s and its drivers.
func (l *Loader) resolveTiming(ctx context.Context, s *Session) error {
	meetings, err := l.timing.Meetings(ctx, s.Event.Year)
	if err != nil {
		return err
	}
	meeting, ok := openf1.MatchMeeting(meetings, s.Event.Date)
	if !ok {
		return errors.Errorf("no live timing meeting found for the %d %s", s.Event.Year, s.Event.Name)
	}
	sessions, err := l.timing.Sessions(ctx, meeting.MeetingKey)
	if err != nil {
		return err
	}
	ts, ok := openf1.MatchSession(sessions, s.Type)
	if !ok {
		return errors.Errorf("no live timing found for %s of the %s", s.Type.Name(), meeting.MeetingName)
	}
	drivers, err := l.timing.Drivers(ctx, ts.SessionKey)
	if err != nil {
		return err
	}

	s.sessionKey = ts.SessionKey
	s.start = ts.DateStart
	s.drivers = make(map[int]openf1.Driver, len(drivers))
	for _, d := range drivers {
		s.drivers[d.DriverNumber] = d
	}
	return nil
}
