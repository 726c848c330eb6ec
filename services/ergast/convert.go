package ergast

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/vainnor/f1-stats/table"
)

func optNumber(s string) table.Value {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return table.Missing()
	}
	return table.Number(f)
}

func optString(s string) table.Value {
	if s == "" {
		return table.Missing()
	}
	return table.String(s)
}

func optDate(s string) table.Value {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return table.Missing()
	}
	return table.NaiveTimestamp(t)
}

// parseLapTime reads "1:23.456", "83.456" and "1:33:56.736" forms.
func parseLapTime(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, false
	}
	var total float64
	for _, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil || f < 0 {
			return 0, false
		}
		total = total*60 + f
	}
	return time.Duration(math.Round(total * float64(time.Second))), true
}

func optLapTime(s string) table.Value {
	d, ok := parseLapTime(s)
	if !ok {
		return table.Missing()
	}
	return table.Duration(d)
}

func addDriver(rec table.Record, d driver) {
	rec["driverId"] = optString(d.DriverID)
	rec["driverNumber"] = optNumber(d.PermanentNumber)
	rec["driverCode"] = optString(d.Code)
	rec["driverUrl"] = optString(d.URL)
	rec["givenName"] = optString(d.GivenName)
	rec["familyName"] = optString(d.FamilyName)
	rec["dateOfBirth"] = optDate(d.DateOfBirth)
	rec["driverNationality"] = optString(d.Nationality)
}

func addConstructor(rec table.Record, k constructor) {
	rec["constructorId"] = optString(k.ConstructorID)
	rec["constructorUrl"] = optString(k.URL)
	rec["constructorName"] = optString(k.Name)
	rec["constructorNationality"] = optString(k.Nationality)
}

// sessionColumns adds the identity columns shared by every classification.
func sessionColumns(number, position string, d driver, k constructor) table.Record {
	return table.Record{
		"DriverNumber": optString(number),
		"Abbreviation": optString(d.Code),
		"DriverId":     optString(d.DriverID),
		"FirstName":    optString(d.GivenName),
		"LastName":     optString(d.FamilyName),
		"FullName":     optString(strings.TrimSpace(d.GivenName + " " + d.FamilyName)),
		"Nationality":  optString(d.Nationality),
		"TeamName":     optString(k.Name),
		"TeamId":       optString(k.ConstructorID),
		"Position":     optNumber(position),
	}
}

func resultsTable(results []result) table.Table {
	out := make(table.Table, 0, len(results))
	for _, r := range results {
		rec := sessionColumns(r.Number, r.Position, r.Driver, r.Constructor)
		rec["ClassifiedPosition"] = optString(r.PositionText)
		rec["GridPosition"] = optNumber(r.Grid)
		rec["Laps"] = optNumber(r.Laps)
		rec["Status"] = optString(r.Status)
		rec["Points"] = optNumber(r.Points)
		rec["Time"] = table.Missing()
		if r.Time != nil {
			if ms, err := strconv.ParseInt(r.Time.Millis, 10, 64); err == nil {
				rec["Time"] = table.Duration(time.Duration(ms) * time.Millisecond)
			}
		}
		rec["FastestLapTime"] = table.Missing()
		rec["FastestLapNumber"] = table.Missing()
		if r.FastestLap != nil {
			rec["FastestLapTime"] = optLapTime(r.FastestLap.Time.Time)
			rec["FastestLapNumber"] = optNumber(r.FastestLap.Lap)
		}
		out = append(out, rec)
	}
	return out
}

func qualifyingTable(results []qualiResult) table.Table {
	out := make(table.Table, 0, len(results))
	for _, r := range results {
		rec := sessionColumns(r.Number, r.Position, r.Driver, r.Constructor)
		rec["Q1"] = optLapTime(r.Q1)
		rec["Q2"] = optLapTime(r.Q2)
		rec["Q3"] = optLapTime(r.Q3)
		out = append(out, rec)
	}
	return out
}
