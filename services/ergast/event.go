package ergast

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/vainnor/f1-stats/table"
	"github.com/vainnor/f1-stats/types"
)

// Event formats, named as in the official timing schedule.
const (
	FormatConventional     = "conventional"
	FormatSprint           = "sprint"
	FormatSprintShootout   = "sprint_shootout"
	FormatSprintQualifying = "sprint_qualifying"
)

// maxScheduleSessions is the widest race weekend, used to give every
// schedule row the same columns.
const maxScheduleSessions = 5

// EventSession is one scheduled session of a race weekend.
type EventSession struct {
	Type    types.SessionType
	Name    string
	Start   time.Time
	HasTime bool
}

// Event is one race weekend of a season schedule.
type Event struct {
	Year        int
	Round       int
	Name        string
	Country     string
	Location    string
	CircuitID   string
	CircuitName string
	Date        time.Time
	Format      string
	Sessions    []EventSession
	// detailed is set when the upstream lists sessions besides the race.
	detailed bool
}

func eventFromRace(r race) Event {
	year, _ := strconv.Atoi(r.Season)
	round, _ := strconv.Atoi(r.Round)
	e := Event{
		Year:        year,
		Round:       round,
		Name:        r.RaceName,
		Country:     r.Circuit.Location.Country,
		Location:    r.Circuit.Location.Locality,
		CircuitID:   r.Circuit.CircuitID,
		CircuitName: r.Circuit.CircuitName,
		Format:      FormatConventional,
	}

	add := func(st types.SessionType, name string, t *sessionTime) {
		if t == nil || t.Date == "" {
			return
		}
		start, hasTime := parseSessionTime(t.Date, t.Time)
		e.Sessions = append(e.Sessions, EventSession{Type: st, Name: name, Start: start, HasTime: hasTime})
		e.detailed = true
	}
	add(types.FP1, types.FP1.Name(), r.FirstPractice)
	add(types.FP2, types.FP2.Name(), r.SecondPractice)
	add(types.FP3, types.FP3.Name(), r.ThirdPractice)
	add(types.Q, types.Q.Name(), r.Qualifying)
	add(types.SQ, types.SQ.Name(), r.SprintQualifying)
	add(types.SQ, "Sprint Shootout", r.SprintShootout)
	add(types.S, types.S.Name(), r.Sprint)

	switch {
	case r.SprintShootout != nil:
		e.Format = FormatSprintShootout
	case r.SprintQualifying != nil:
		e.Format = FormatSprintQualifying
	case r.Sprint != nil:
		e.Format = FormatSprint
	}

	start, hasTime := parseSessionTime(r.Date, r.Time)
	e.Date = start
	e.Sessions = append(e.Sessions, EventSession{Type: types.R, Name: types.R.Name(), Start: start, HasTime: hasTime})

	sort.SliceStable(e.Sessions, func(i, j int) bool {
		return e.Sessions[i].Start.Before(e.Sessions[j].Start)
	})
	return e
}

func parseSessionTime(date, clock string) (time.Time, bool) {
	if clock != "" {
		if t, err := time.Parse(time.RFC3339, date+"T"+clock); err == nil {
			return t.UTC(), true
		}
	}
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, false
	}
	return t, false
}

// Session returns the scheduled session of the given type.
func (e Event) Session(st types.SessionType) (EventSession, bool) {
	for _, s := range e.Sessions {
		if s.Type == st {
			return s, true
		}
	}
	return EventSession{}, false
}

// HasSession reports whether the weekend includes a session of type st.
// Older seasons only list the race, so practice and qualifying are assumed
// to exist there while sprint sessions are not.
func (e Event) HasSession(st types.SessionType) bool {
	if _, ok := e.Session(st); ok {
		return true
	}
	if e.detailed {
		return false
	}
	return st != types.S && st != types.SQ
}

// ScheduleTable flattens events into the season schedule table.
func ScheduleTable(events []Event) table.Table {
	out := make(table.Table, 0, len(events))
	for _, e := range events {
		rec := table.Record{
			"RoundNumber":  table.Int(e.Round),
			"Country":      optString(e.Country),
			"Location":     optString(e.Location),
			"EventName":    optString(e.Name),
			"CircuitName":  optString(e.CircuitName),
			"EventDate":    table.Missing(),
			"EventFormat":  table.String(e.Format),
			"F1ApiSupport": table.Bool(e.Year >= types.MinTimingDataYear),
		}
		if !e.Date.IsZero() {
			y, m, d := e.Date.Date()
			rec["EventDate"] = table.NaiveTimestamp(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
		}
		for i := 0; i < maxScheduleSessions; i++ {
			name, date := fmt.Sprintf("Session%d", i+1), fmt.Sprintf("Session%dDateUtc", i+1)
			rec[name], rec[date] = table.Missing(), table.Missing()
			if i >= len(e.Sessions) {
				continue
			}
			s := e.Sessions[i]
			rec[name] = table.String(s.Name)
			if s.HasTime {
				rec[date] = table.Timestamp(s.Start)
			}
		}
		out = append(out, rec)
	}
	return out
}
