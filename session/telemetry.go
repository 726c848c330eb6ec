package session

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/vainnor/f1-stats/services/openf1"
	"github.com/vainnor/f1-stats/table"
)

// Telemetry returns the merged car and position samples recorded during lap.
func (s *Session) Telemetry(ctx context.Context, lap table.Record) (table.Table, error) {
	if !s.telemetry {
		return nil, ErrTelemetryNotLoaded
	}
	from, ok := lap.Get("LapStartDate").Time()
	if !ok {
		return nil, errors.New("lap has no start date")
	}
	lapTime, ok := lap.Get("LapTime").Dur()
	if !ok {
		return nil, errors.New("lap has no lap time")
	}
	numStr, _ := lap.Get("DriverNumber").Str()
	number, err := strconv.Atoi(numStr)
	if err != nil {
		return nil, errors.Errorf("lap has invalid driver number %q", numStr)
	}
	to := from.Add(lapTime)

	var (
		car []openf1.CarData
		pos []openf1.Location
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		car, err = s.timing.CarData(gctx, s.sessionKey, number, from, to)
		return errors.Wrap(err, "car data")
	})
	g.Go(func() error {
		var err error
		pos, err = s.timing.Location(gctx, s.sessionKey, number, from, to)
		return errors.Wrap(err, "position data")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(car) == 0 {
		return nil, errors.Errorf("no car data recorded for driver %d on this lap", number)
	}
	return mergeTelemetry(car, pos, from, s.start), nil
}

// mergeTelemetry joins each car sample with the nearest position sample and
// integrates speed into distance driven since lapStart.
func mergeTelemetry(car []openf1.CarData, pos []openf1.Location, lapStart, sessionStart time.Time) table.Table {
	sort.SliceStable(car, func(i, j int) bool { return car[i].Date.Before(car[j].Date) })
	sort.SliceStable(pos, func(i, j int) bool { return pos[i].Date.Before(pos[j].Date) })

	out := make(table.Table, 0, len(car))
	var distance float64
	j := 0
	for i, c := range car {
		if i > 0 {
			prev := car[i-1]
			dt := c.Date.Sub(prev.Date).Seconds()
			distance += (prev.Speed + c.Speed) / 2 / 3.6 * dt
		}
		rec := table.Record{
			"Date":        table.Timestamp(c.Date),
			"SessionTime": sinceStart(c.Date, sessionStart),
			"Time":        table.Duration(c.Date.Sub(lapStart)),
			"RPM":         table.Number(c.RPM),
			"Speed":       table.Number(c.Speed),
			"nGear":       table.Int(c.NGear),
			"Throttle":    table.Number(c.Throttle),
			"Brake":       table.Bool(c.Brake > 0),
			"DRS":         table.Int(c.DRS),
			"Distance":    table.Number(distance),
			"X":           table.Missing(),
			"Y":           table.Missing(),
			"Z":           table.Missing(),
			"Source":      table.String("car"),
		}
		if len(pos) > 0 {
			for j+1 < len(pos) && absDur(pos[j+1].Date.Sub(c.Date)) <= absDur(pos[j].Date.Sub(c.Date)) {
				j++
			}
			rec["X"] = table.Number(pos[j].X)
			rec["Y"] = table.Number(pos[j].Y)
			rec["Z"] = table.Number(pos[j].Z)
		}
		out = append(out, rec)
	}
	return out
}

func absDur(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
