package session

import (
	"strconv"
	"strings"
	"time"

	"github.com/vainnor/f1-stats/services/openf1"
	"github.com/vainnor/f1-stats/table"
)

func lapsTable(laps []openf1.Lap, drivers map[int]openf1.Driver, start time.Time) table.Table {
	out := make(table.Table, 0, len(laps))
	for _, l := range laps {
		rec := table.Record{
			"DriverNumber": table.String(strconv.Itoa(l.DriverNumber)),
			"Driver":       table.Missing(),
			"Team":         table.Missing(),
			"LapNumber":    table.Int(l.LapNumber),
			"LapTime":      table.OptSeconds(l.LapDuration),
			"Sector1Time":  table.OptSeconds(l.DurationSector1),
			"Sector2Time":  table.OptSeconds(l.DurationSector2),
			"Sector3Time":  table.OptSeconds(l.DurationSector3),
			"SpeedI1":      table.OptNumber(l.I1Speed),
			"SpeedI2":      table.OptNumber(l.I2Speed),
			"SpeedST":      table.OptNumber(l.StSpeed),
			"IsPitOutLap":  table.Bool(l.IsPitOutLap),
			"LapStartDate": table.OptTimestamp(l.DateStart),
			"LapStartTime": table.Missing(),
			"Time":         table.Missing(),
		}
		if d, ok := drivers[l.DriverNumber]; ok {
			rec["Driver"] = table.String(d.NameAcronym)
			rec["Team"] = table.String(d.TeamName)
		}
		if l.DateStart != nil {
			rec["LapStartTime"] = sinceStart(*l.DateStart, start)
			if lapTime, ok := rec["LapTime"].Dur(); ok {
				rec["Time"] = sinceStart(l.DateStart.Add(lapTime), start)
			}
		}
		out = append(out, rec)
	}
	return out
}

// PickDriver returns the laps of the driver given by abbreviation or
// racing number.
func PickDriver(laps table.Table, driver string) table.Table {
	driver = strings.TrimSpace(driver)
	return laps.Filter(func(r table.Record) bool {
		if abbr, ok := r.Get("Driver").Str(); ok && strings.EqualFold(abbr, driver) {
			return true
		}
		num, ok := r.Get("DriverNumber").Str()
		return ok && num == driver
	})
}

// PickFastest returns the lap with the shortest lap time. When no lap has a
// time the first lap is returned, so callers must still check LapTime.
func PickFastest(laps table.Table) (table.Record, error) {
	if laps.Empty() {
		return nil, ErrNoFastestLap
	}
	var (
		fastest table.Record
		best    time.Duration
	)
	for _, r := range laps {
		d, ok := r.Get("LapTime").Dur()
		if !ok {
			continue
		}
		if fastest == nil || d < best {
			fastest, best = r, d
		}
	}
	if fastest == nil {
		return laps[0], nil
	}
	return fastest, nil
}
