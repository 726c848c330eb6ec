// Package ergast reads seasons, standings, rosters and classifications from
// the Jolpica-F1 API, the maintained successor of Ergast.
package ergast

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/vainnor/f1-stats/table"
	"github.com/vainnor/f1-stats/types"
)

// pageLimit is large enough for any season, roster or classification.
const pageLimit = 100

// JSONFetcher is satisfied by jsonfetcher.Fetcher.
type JSONFetcher interface {
	FetchJSON(ctx context.Context, url string, v any) error
}

type Client struct {
	fetcher JSONFetcher
	baseURL string
}

func New(fetcher JSONFetcher, baseURL string) *Client {
	return &Client{fetcher: fetcher, baseURL: baseURL}
}

func (c *Client) get(ctx context.Context, path string) (mrData, error) {
	var r response
	url := fmt.Sprintf("%s/%s.json?limit=%d", c.baseURL, path, pageLimit)
	if err := c.fetcher.FetchJSON(ctx, url, &r); err != nil {
		return mrData{}, err
	}
	return r.MRData, nil
}

// Schedule returns the season's events ordered by round.
func (c *Client) Schedule(ctx context.Context, year int) ([]Event, error) {
	data, err := c.get(ctx, fmt.Sprint(year))
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %d schedule", year)
	}
	events := make([]Event, 0, len(data.RaceTable.Races))
	for _, r := range data.RaceTable.Races {
		events = append(events, eventFromRace(r))
	}
	return events, nil
}

// DriverStandings returns the drivers' championship table after the latest round.
func (c *Client) DriverStandings(ctx context.Context, year int) (table.Table, error) {
	data, err := c.get(ctx, fmt.Sprintf("%d/driverstandings", year))
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %d driver standings", year)
	}
	lists := data.StandingsTable.StandingsLists
	if len(lists) == 0 {
		return table.Table{}, nil
	}
	out := make(table.Table, 0, len(lists[0].DriverStandings))
	for _, s := range lists[0].DriverStandings {
		rec := table.Record{
			"position":     optNumber(s.Position),
			"positionText": table.String(s.PositionText),
			"points":       optNumber(s.Points),
			"wins":         optNumber(s.Wins),
		}
		addDriver(rec, s.Driver)
		if n := len(s.Constructors); n > 0 {
			addConstructor(rec, s.Constructors[n-1])
		} else {
			addConstructor(rec, constructor{})
		}
		out = append(out, rec)
	}
	return out, nil
}

// ConstructorStandings returns the constructors' championship table.
func (c *Client) ConstructorStandings(ctx context.Context, year int) (table.Table, error) {
	data, err := c.get(ctx, fmt.Sprintf("%d/constructorstandings", year))
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %d constructor standings", year)
	}
	lists := data.StandingsTable.StandingsLists
	if len(lists) == 0 {
		return table.Table{}, nil
	}
	out := make(table.Table, 0, len(lists[0].ConstructorStandings))
	for _, s := range lists[0].ConstructorStandings {
		rec := table.Record{
			"position":     optNumber(s.Position),
			"positionText": table.String(s.PositionText),
			"points":       optNumber(s.Points),
			"wins":         optNumber(s.Wins),
		}
		addConstructor(rec, s.Constructor)
		out = append(out, rec)
	}
	return out, nil
}

// Drivers returns every driver entered in the season.
func (c *Client) Drivers(ctx context.Context, year int) (table.Table, error) {
	data, err := c.get(ctx, fmt.Sprintf("%d/drivers", year))
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %d drivers", year)
	}
	out := make(table.Table, 0, len(data.DriverTable.Drivers))
	for _, d := range data.DriverTable.Drivers {
		rec := table.Record{}
		addDriver(rec, d)
		out = append(out, rec)
	}
	return out, nil
}

// Constructors returns every constructor entered in the season.
func (c *Client) Constructors(ctx context.Context, year int) (table.Table, error) {
	data, err := c.get(ctx, fmt.Sprintf("%d/constructors", year))
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %d constructors", year)
	}
	out := make(table.Table, 0, len(data.ConstructorTable.Constructors))
	for _, k := range data.ConstructorTable.Constructors {
		rec := table.Record{}
		addConstructor(rec, k)
		out = append(out, rec)
	}
	return out, nil
}

// SupportsResults reports whether Results can classify the session type.
func SupportsResults(st types.SessionType) bool {
	return st == types.R || st == types.Q || st == types.S
}

// Results returns the classification of a race, qualifying or sprint session.
func (c *Client) Results(ctx context.Context, year, round int, st types.SessionType) (table.Table, error) {
	var path string
	switch st {
	case types.R:
		path = "results"
	case types.Q:
		path = "qualifying"
	case types.S:
		path = "sprint"
	default:
		return nil, fmt.Errorf("no classification source for session %s", st)
	}

	data, err := c.get(ctx, fmt.Sprintf("%d/%d/%s", year, round, path))
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %d round %d %s", year, round, path)
	}
	if len(data.RaceTable.Races) == 0 {
		return table.Table{}, nil
	}
	r := data.RaceTable.Races[0]
	switch st {
	case types.Q:
		return qualifyingTable(r.QualifyingResult), nil
	case types.S:
		return resultsTable(r.SprintResults), nil
	default:
		return resultsTable(r.Results), nil
	}
}
