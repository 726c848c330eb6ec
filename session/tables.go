package session

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/vainnor/f1-stats/services/openf1"
	"github.com/vainnor/f1-stats/table"
)

// sinceStart is the session clock time of t, or Missing when either end is unknown.
func sinceStart(t, start time.Time) table.Value {
	if t.IsZero() || start.IsZero() {
		return table.Missing()
	}
	return table.Duration(t.Sub(start))
}

func weatherTable(rows []openf1.Weather, start time.Time) table.Table {
	out := make(table.Table, 0, len(rows))
	for _, w := range rows {
		rainfall := table.Missing()
		if w.Rainfall != nil {
			rainfall = table.Bool(*w.Rainfall > 0)
		}
		out = append(out, table.Record{
			"Time":          sinceStart(w.Date, start),
			"Date":          table.Timestamp(w.Date),
			"AirTemp":       table.OptNumber(w.AirTemperature),
			"Humidity":      table.OptNumber(w.Humidity),
			"Pressure":      table.OptNumber(w.Pressure),
			"Rainfall":      rainfall,
			"TrackTemp":     table.OptNumber(w.TrackTemperature),
			"WindDirection": table.OptNumber(w.WindDirection),
			"WindSpeed":     table.OptNumber(w.WindSpeed),
		})
	}
	return out
}

func messagesTable(rows []openf1.RaceControl) table.Table {
	out := make(table.Table, 0, len(rows))
	for _, m := range rows {
		racingNumber := table.Missing()
		if m.DriverNumber != nil {
			racingNumber = table.String(strconv.Itoa(*m.DriverNumber))
		}
		out = append(out, table.Record{
			"Time":         table.Timestamp(m.Date),
			"Category":     table.String(m.Category),
			"Message":      table.String(m.Message),
			"Status":       table.Missing(),
			"Flag":         table.OptString(m.Flag),
			"Scope":        table.OptString(m.Scope),
			"Sector":       table.OptInt(m.Sector),
			"RacingNumber": racingNumber,
			"Lap":          table.OptInt(m.LapNumber),
		})
	}
	return out
}

// driverColumns fills the identity columns shared by results and laps.
func driverColumns(rec table.Record, number int, drivers map[int]openf1.Driver) {
	rec["DriverNumber"] = table.String(strconv.Itoa(number))
	d, ok := drivers[number]
	if !ok {
		for _, k := range []string{"Abbreviation", "BroadcastName", "FullName", "FirstName", "LastName", "TeamName", "TeamColor", "HeadshotUrl", "CountryCode"} {
			rec[k] = table.Missing()
		}
		return
	}
	rec["Abbreviation"] = table.String(d.NameAcronym)
	rec["BroadcastName"] = table.String(d.BroadcastName)
	rec["FullName"] = table.String(d.FullName)
	rec["FirstName"] = table.String(d.FirstName)
	rec["LastName"] = table.String(d.LastName)
	rec["TeamName"] = table.String(d.TeamName)
	rec["TeamColor"] = table.String(d.TeamColour)
	rec["HeadshotUrl"] = table.String(d.HeadshotURL)
	rec["CountryCode"] = table.String(d.CountryCode)
}

func resultsTable(rows []openf1.SessionResult, drivers map[int]openf1.Driver) table.Table {
	out := make(table.Table, 0, len(rows))
	for _, r := range rows {
		rec := table.Record{
			"Position":    table.OptInt(r.Position),
			"Laps":        table.OptInt(r.NumberOfLaps),
			"Points":      table.OptNumber(r.Points),
			"Status":      table.String(resultStatus(r)),
			"Time":        table.Missing(),
			"Q1":          table.Missing(),
			"Q2":          table.Missing(),
			"Q3":          table.Missing(),
			"GapToLeader": table.Missing(),
		}
		driverColumns(rec, r.DriverNumber, drivers)
		if r.Position != nil {
			rec["ClassifiedPosition"] = table.String(strconv.Itoa(*r.Position))
		} else {
			rec["ClassifiedPosition"] = table.Missing()
		}

		if sec, ok := rawNumber(r.Duration); ok {
			rec["Time"] = table.Seconds(sec)
		} else if segments, ok := rawSegments(r.Duration); ok {
			for i, name := range []string{"Q1", "Q2", "Q3"} {
				if i < len(segments) {
					rec[name] = table.OptSeconds(segments[i])
				}
			}
		}
		if gap, ok := rawNumber(r.GapToLeader); ok {
			rec["GapToLeader"] = table.Seconds(gap)
		}
		out = append(out, rec)
	}
	return out
}

func resultStatus(r openf1.SessionResult) string {
	switch {
	case r.DSQ:
		return "Disqualified"
	case r.DNS:
		return "Did not start"
	case r.DNF:
		return "Retired"
	default:
		return "Finished"
	}
}

func rawNumber(raw json.RawMessage) (float64, bool) {
	var f *float64
	if len(raw) == 0 || json.Unmarshal(raw, &f) != nil || f == nil {
		return 0, false
	}
	return *f, true
}

func rawSegments(raw json.RawMessage) ([]*float64, bool) {
	var s []*float64
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil || s == nil {
		return nil, false
	}
	return s, true
}
