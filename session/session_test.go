package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/vainnor/f1-stats/services/ergast"
	"github.com/vainnor/f1-stats/services/openf1"
	"github.com/vainnor/f1-stats/table"
	"github.com/vainnor/f1-stats/types"
)

var (
	raceDay   = time.Date(2023, 9, 3, 0, 0, 0, 0, time.UTC)
	raceStart = time.Date(2023, 9, 3, 13, 0, 0, 0, time.UTC)
)

type fakeSchedule struct {
	events     []ergast.Event
	err        error
	resultsErr error
	results    table.Table
	calls      []types.SessionType
}

func (f *fakeSchedule) Schedule(ctx context.Context, year int) ([]ergast.Event, error) {
	return f.events, f.err
}

func (f *fakeSchedule) Results(ctx context.Context, year, round int, st types.SessionType) (table.Table, error) {
	f.calls = append(f.calls, st)
	return f.results, f.resultsErr
}

type fakeTiming struct {
	mu        sync.Mutex
	calls     map[string]int
	meetings  []openf1.Meeting
	sessions  []openf1.Session
	drivers   []openf1.Driver
	laps      []openf1.Lap
	weather   []openf1.Weather
	messages  []openf1.RaceControl
	results   []openf1.SessionResult
	car       []openf1.CarData
	location  []openf1.Location
	lapsErr   error
	carWindow [2]time.Time
}

func (f *fakeTiming) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
}

func (f *fakeTiming) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeTiming) Meetings(ctx context.Context, year int) ([]openf1.Meeting, error) {
	f.hit("meetings")
	return f.meetings, nil
}

func (f *fakeTiming) Sessions(ctx context.Context, meetingKey int) ([]openf1.Session, error) {
	f.hit("sessions")
	return f.sessions, nil
}

func (f *fakeTiming) Drivers(ctx context.Context, sessionKey int) ([]openf1.Driver, error) {
	f.hit("drivers")
	return f.drivers, nil
}

func (f *fakeTiming) Laps(ctx context.Context, sessionKey int) ([]openf1.Lap, error) {
	f.hit("laps")
	return f.laps, f.lapsErr
}

func (f *fakeTiming) Weather(ctx context.Context, sessionKey int) ([]openf1.Weather, error) {
	f.hit("weather")
	return f.weather, nil
}

func (f *fakeTiming) RaceControl(ctx context.Context, sessionKey int) ([]openf1.RaceControl, error) {
	f.hit("race_control")
	return f.messages, nil
}

func (f *fakeTiming) SessionResults(ctx context.Context, sessionKey int) ([]openf1.SessionResult, error) {
	f.hit("session_result")
	return f.results, nil
}

func (f *fakeTiming) CarData(ctx context.Context, sessionKey, driverNumber int, from, to time.Time) ([]openf1.CarData, error) {
	f.hit("car_data")
	f.mu.Lock()
	f.carWindow = [2]time.Time{from, to}
	f.mu.Unlock()
	return f.car, nil
}

func (f *fakeTiming) Location(ctx context.Context, sessionKey, driverNumber int, from, to time.Time) ([]openf1.Location, error) {
	f.hit("location")
	return f.location, nil
}

func ptr[T any](v T) *T { return &v }

func monza() ergast.Event {
	return ergast.Event{
		Year:        2023,
		Round:       14,
		Name:        "Italian Grand Prix",
		Country:     "Italy",
		Location:    "Monza",
		CircuitID:   "monza",
		CircuitName: "Autodromo Nazionale di Monza",
		Date:        raceDay,
		Format:      ergast.FormatConventional,
	}
}

func newFixture() (*fakeSchedule, *fakeTiming) {
	sched := &fakeSchedule{
		events: []ergast.Event{
			{Year: 2023, Round: 13, Name: "Dutch Grand Prix", Country: "Netherlands", Location: "Zandvoort", CircuitName: "Circuit Park Zandvoort", Date: raceDay.AddDate(0, 0, -7)},
			monza(),
		},
		results: table.Table{{"Abbreviation": table.String("VER"), "Position": table.Int(1)}},
	}
	lapStart := raceStart.Add(2 * time.Minute)
	timing := &fakeTiming{
		meetings: []openf1.Meeting{{MeetingKey: 1219, MeetingName: "Italian Grand Prix", DateStart: raceDay.AddDate(0, 0, -2)}},
		sessions: []openf1.Session{
			{SessionKey: 9157, SessionName: "Race", DateStart: raceStart},
			{SessionKey: 9156, SessionName: "Qualifying", DateStart: raceStart.AddDate(0, 0, -1)},
		},
		drivers: []openf1.Driver{{DriverNumber: 1, NameAcronym: "VER", TeamName: "Red Bull Racing"}},
		laps: []openf1.Lap{
			{DriverNumber: 1, LapNumber: 1, DateStart: &lapStart, LapDuration: ptr(86.5)},
			{DriverNumber: 1, LapNumber: 2, DateStart: ptr(lapStart.Add(86500 * time.Millisecond)), LapDuration: ptr(85.25)},
			{DriverNumber: 11, LapNumber: 1, DateStart: &lapStart},
		},
		weather:  []openf1.Weather{{Date: raceStart, AirTemperature: ptr(27.1), Rainfall: ptr(0.0)}},
		messages: []openf1.RaceControl{{Date: raceStart, Category: "Flag", Flag: ptr("GREEN"), Message: "GREEN LIGHT - PIT EXIT OPEN"}},
	}
	return sched, timing
}

func newLoader(sched *fakeSchedule, timing *fakeTiming) *Loader {
	return NewLoader(sched, timing, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestLoadResultsOnly(t *testing.T) {
	sched, timing := newFixture()
	s, err := newLoader(sched, timing).Load(context.Background(), Request{Year: 2023, Event: "Monza", Type: types.R})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Event.Round != 14 {
		t.Errorf("round = %d, want 14", s.Event.Round)
	}
	if len(s.Results) != 1 {
		t.Errorf("results = %d rows, want 1", len(s.Results))
	}
	if s.Laps != nil || s.Weather != nil || s.Messages != nil {
		t.Error("unrequested sub-tables were loaded")
	}
	if n := timing.count("meetings"); n != 0 {
		t.Errorf("timing was resolved %d times for a results-only race load", n)
	}
}

func TestLoadAllSubTables(t *testing.T) {
	sched, timing := newFixture()
	req := Request{Year: 2023, Event: "14", Type: types.R, Flags: Flags{Laps: true, Weather: true, Messages: true}}
	s, err := newLoader(sched, timing).Load(context.Background(), req)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(s.Laps) != 3 {
		t.Fatalf("laps = %d, want 3", len(s.Laps))
	}
	if got, _ := s.Laps[0].Get("Driver").Str(); got != "VER" {
		t.Errorf("Driver = %q, want VER", got)
	}
	if got, _ := s.Laps[0].Get("Time").Dur(); got != 2*time.Minute+86500*time.Millisecond {
		t.Errorf("lap end session time = %v", got)
	}
	if !s.Laps[2].Get("Driver").IsMissing() {
		t.Error("driver without roster entry should have a missing acronym")
	}
	if rain, ok := s.Weather[0].Get("Rainfall").Truth(); !ok || rain {
		t.Errorf("Rainfall = %v", s.Weather[0].Get("Rainfall"))
	}
	if flag, _ := s.Messages[0].Get("Flag").Str(); flag != "GREEN" {
		t.Errorf("Flag = %q", flag)
	}
}

func TestLoadPracticeResultsFromTiming(t *testing.T) {
	sched, timing := newFixture()
	timing.sessions = append(timing.sessions, openf1.Session{SessionKey: 9150, SessionName: "Practice 1", DateStart: raceStart.AddDate(0, 0, -2)})
	timing.results = []openf1.SessionResult{
		{Position: ptr(1), DriverNumber: 1, NumberOfLaps: ptr(25), Duration: []byte("81.3"), GapToLeader: []byte("0")},
		{DriverNumber: 11, DNS: true, Duration: []byte("null")},
	}
	s, err := newLoader(sched, timing).Load(context.Background(), Request{Year: 2023, Event: "italian grand prix", Type: types.FP1})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(sched.calls) != 0 {
		t.Errorf("official results requested for practice: %v", sched.calls)
	}
	if d, ok := s.Results[0].Get("Time").Dur(); !ok || d != 81300*time.Millisecond {
		t.Errorf("Time = %v", s.Results[0].Get("Time"))
	}
	if got, _ := s.Results[1].Get("Status").Str(); got != "Did not start" {
		t.Errorf("Status = %q", got)
	}
	if !s.Results[1].Get("Position").IsMissing() {
		t.Error("unclassified driver should have a missing position")
	}
}

func TestLoadQualifyingSegments(t *testing.T) {
	sched, timing := newFixture()
	sched.events[1].Format = ergast.FormatSprintShootout
	sched.events[1].Sessions = []ergast.EventSession{{Type: types.SQ, Name: "Sprint Shootout"}}
	timing.sessions = append(timing.sessions, openf1.Session{SessionKey: 9151, SessionName: "Sprint Shootout"})
	timing.results = []openf1.SessionResult{{Position: ptr(1), DriverNumber: 1, Duration: []byte("[90.1,89.5,null]")}}
	s, err := newLoader(sched, timing).Load(context.Background(), Request{Year: 2023, Event: "Monza", Type: types.SQ})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d, _ := s.Results[0].Get("Q2").Dur(); d != 89500*time.Millisecond {
		t.Errorf("Q2 = %v", s.Results[0].Get("Q2"))
	}
	if !s.Results[0].Get("Q3").IsMissing() {
		t.Errorf("Q3 = %v, want missing", s.Results[0].Get("Q3"))
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeSchedule, *fakeTiming)
		req   Request
	}{
		{"schedule failure", func(s *fakeSchedule, _ *fakeTiming) { s.err = errors.New("upstream down") }, Request{Year: 2023, Event: "Monza", Type: types.R}},
		{"unknown event", nil, Request{Year: 2023, Event: "Atlantis", Type: types.R}},
		{"unknown round", nil, Request{Year: 2023, Event: "40", Type: types.R}},
		{"no sprint on conventional weekend", nil, Request{Year: 2023, Event: "Monza", Type: types.S}},
		{"invalid session type", nil, Request{Year: 2023, Event: "Monza", Type: "XX"}},
		{"no timing meeting", func(_ *fakeSchedule, f *fakeTiming) { f.meetings = nil }, Request{Year: 2023, Event: "Monza", Type: types.R, Flags: Flags{Laps: true}}},
		{"laps failure", func(_ *fakeSchedule, f *fakeTiming) { f.lapsErr = errors.New("429") }, Request{Year: 2023, Event: "Monza", Type: types.R, Flags: Flags{Laps: true}}},
		{"results failure", func(s *fakeSchedule, _ *fakeTiming) { s.resultsErr = errors.New("boom") }, Request{Year: 2023, Event: "Monza", Type: types.R}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched, timing := newFixture()
			if tt.setup != nil {
				tt.setup(sched, timing)
			}
			_, err := newLoader(sched, timing).Load(context.Background(), tt.req)
			var le *LoadError
			if !errors.As(err, &le) {
				t.Fatalf("err = %v, want *LoadError", err)
			}
			if le.Year != tt.req.Year || le.Event != tt.req.Event || le.Type != tt.req.Type {
				t.Errorf("LoadError fields = %+v", le)
			}
		})
	}
}

func TestLoadErrorMessage(t *testing.T) {
	err := &LoadError{Year: 2023, Event: "Monza", Type: types.R, Err: errors.New("boom")}
	want := "Session data for 2023 Monza 'R' is not available. Error: boom"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestMatchEvent(t *testing.T) {
	sched, _ := newFixture()
	tests := []struct {
		id   string
		want int
	}{
		{"14", 14},
		{"Italian Grand Prix", 14},
		{"italy", 14},
		{"Zandvoort", 13},
		{"dutch", 13},
		{"  Monza ", 14},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			e, err := MatchEvent(sched.events, tt.id)
			if err != nil {
				t.Fatalf("MatchEvent: %v", err)
			}
			if e.Round != tt.want {
				t.Errorf("round = %d, want %d", e.Round, tt.want)
			}
		})
	}
	if _, err := MatchEvent(sched.events, ""); err == nil {
		t.Error("empty identifier matched an event")
	}
	if _, err := MatchEvent(nil, "Monza"); err == nil {
		t.Error("empty schedule matched an event")
	}
}

func TestPickDriverAndFastest(t *testing.T) {
	laps := table.Table{
		{"Driver": table.String("VER"), "DriverNumber": table.String("1"), "LapTime": table.Seconds(86.5)},
		{"Driver": table.String("VER"), "DriverNumber": table.String("1"), "LapTime": table.Seconds(85.25)},
		{"Driver": table.String("VER"), "DriverNumber": table.String("1"), "LapTime": table.Missing()},
		{"Driver": table.String("PER"), "DriverNumber": table.String("11"), "LapTime": table.Seconds(84)},
	}
	ver := PickDriver(laps, "ver")
	if len(ver) != 3 {
		t.Fatalf("PickDriver(ver) = %d laps, want 3", len(ver))
	}
	if got := PickDriver(laps, "11"); len(got) != 1 {
		t.Errorf("PickDriver(11) = %d laps, want 1", len(got))
	}
	if got := PickDriver(laps, "HAM"); !got.Empty() {
		t.Errorf("PickDriver(HAM) = %d laps, want 0", len(got))
	}

	fastest, err := PickFastest(ver)
	if err != nil {
		t.Fatalf("PickFastest: %v", err)
	}
	if d, _ := fastest.Get("LapTime").Dur(); d != 85250*time.Millisecond {
		t.Errorf("fastest = %v", d)
	}

	if _, err := PickFastest(nil); !errors.Is(err, ErrNoFastestLap) {
		t.Errorf("PickFastest(nil) err = %v, want ErrNoFastestLap", err)
	}
	untimed, err := PickFastest(table.Table{{"LapTime": table.Missing()}})
	if err != nil {
		t.Fatalf("PickFastest(untimed): %v", err)
	}
	if !untimed.Get("LapTime").IsMissing() {
		t.Error("untimed fastest lap should keep its missing lap time")
	}
}

func TestTelemetry(t *testing.T) {
	sched, timing := newFixture()
	t0 := raceStart.Add(2 * time.Minute)
	timing.car = []openf1.CarData{
		{Date: t0.Add(time.Second), Speed: 360, RPM: 11000, NGear: 8, Throttle: 100, DRS: 12},
		{Date: t0, Speed: 360, RPM: 11000, NGear: 8, Throttle: 100},
		{Date: t0.Add(2 * time.Second), Speed: 180, Brake: 100, NGear: 4},
	}
	timing.location = []openf1.Location{
		{Date: t0.Add(-100 * time.Millisecond), X: 1},
		{Date: t0.Add(900 * time.Millisecond), X: 2},
		{Date: t0.Add(2100 * time.Millisecond), X: 3},
	}

	s, err := newLoader(sched, timing).Load(context.Background(), Request{Year: 2023, Event: "Monza", Type: types.R, Flags: Flags{Telemetry: true}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Laps == nil {
		t.Fatal("telemetry load should include laps")
	}
	lap, err := PickFastest(PickDriver(s.Laps, "VER"))
	if err != nil {
		t.Fatalf("PickFastest: %v", err)
	}
	tel, err := s.Telemetry(context.Background(), lap)
	if err != nil {
		t.Fatalf("Telemetry: %v", err)
	}
	if len(tel) != 3 {
		t.Fatalf("telemetry = %d rows, want 3", len(tel))
	}
	if timing.carWindow[1].Sub(timing.carWindow[0]) != 85250*time.Millisecond {
		t.Errorf("window = %v", timing.carWindow)
	}
	wantX := []float64{1, 2, 3}
	wantDist := []float64{0, 100, 175}
	for i, rec := range tel {
		if x, _ := rec.Get("X").Float(); x != wantX[i] {
			t.Errorf("row %d X = %v, want %v", i, x, wantX[i])
		}
		if d, _ := rec.Get("Distance").Float(); math.Abs(d-wantDist[i]) > 1e-9 {
			t.Errorf("row %d Distance = %v, want %v", i, d, wantDist[i])
		}
	}
	if b, _ := tel[2].Get("Brake").Truth(); !b {
		t.Error("Brake should be true on the last sample")
	}
	if d, _ := tel[1].Get("SessionTime").Dur(); d != 2*time.Minute+time.Second {
		t.Errorf("SessionTime = %v", d)
	}
}

func TestTelemetryNotLoaded(t *testing.T) {
	sched, timing := newFixture()
	s, err := newLoader(sched, timing).Load(context.Background(), Request{Year: 2023, Event: "Monza", Type: types.R, Flags: Flags{Laps: true}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := s.Telemetry(context.Background(), s.Laps[0]); !errors.Is(err, ErrTelemetryNotLoaded) {
		t.Errorf("err = %v, want ErrTelemetryNotLoaded", err)
	}
}
