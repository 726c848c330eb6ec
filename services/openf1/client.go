// Package openf1 reads live-timing data from the OpenF1 API.
package openf1

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	jsonfetcher "github.com/vainnor/f1-stats/services/json_fetcher"
	"github.com/vainnor/f1-stats/types"
)

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

// get fetches an endpoint into v. OpenF1 answers 404 for queries that match
// nothing, which is reported as an empty result.
func (c *Client) get(ctx context.Context, endpoint, query string, v any) error {
	u := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, query)
	err := c.fetcher.FetchJSON(ctx, u, v)
	if jsonfetcher.IsNotFound(err) {
		return nil
	}
	return errors.Wrapf(err, "fetching %s", endpoint)
}

func (c *Client) Meetings(ctx context.Context, year int) ([]Meeting, error) {
	var out []Meeting
	err := c.get(ctx, "meetings", fmt.Sprintf("year=%d", year), &out)
	return out, err
}

func (c *Client) Sessions(ctx context.Context, meetingKey int) ([]Session, error) {
	var out []Session
	err := c.get(ctx, "sessions", fmt.Sprintf("meeting_key=%d", meetingKey), &out)
	return out, err
}

func (c *Client) Drivers(ctx context.Context, sessionKey int) ([]Driver, error) {
	var out []Driver
	err := c.get(ctx, "drivers", fmt.Sprintf("session_key=%d", sessionKey), &out)
	return out, err
}

func (c *Client) Laps(ctx context.Context, sessionKey int) ([]Lap, error) {
	var out []Lap
	err := c.get(ctx, "laps", fmt.Sprintf("session_key=%d", sessionKey), &out)
	return out, err
}

func (c *Client) Weather(ctx context.Context, sessionKey int) ([]Weather, error) {
	var out []Weather
	err := c.get(ctx, "weather", fmt.Sprintf("session_key=%d", sessionKey), &out)
	return out, err
}

func (c *Client) RaceControl(ctx context.Context, sessionKey int) ([]RaceControl, error) {
	var out []RaceControl
	err := c.get(ctx, "race_control", fmt.Sprintf("session_key=%d", sessionKey), &out)
	return out, err
}

func (c *Client) SessionResults(ctx context.Context, sessionKey int) ([]SessionResult, error) {
	var out []SessionResult
	err := c.get(ctx, "session_result", fmt.Sprintf("session_key=%d", sessionKey), &out)
	return out, err
}

// CarData returns one driver's car samples with from <= date <= to.
func (c *Client) CarData(ctx context.Context, sessionKey, driverNumber int, from, to time.Time) ([]CarData, error) {
	var out []CarData
	err := c.get(ctx, "car_data", windowQuery(sessionKey, driverNumber, from, to), &out)
	return out, err
}

// Location returns one driver's position samples with from <= date <= to.
func (c *Client) Location(ctx context.Context, sessionKey, driverNumber int, from, to time.Time) ([]Location, error) {
	var out []Location
	err := c.get(ctx, "location", windowQuery(sessionKey, driverNumber, from, to), &out)
	return out, err
}

func windowQuery(sessionKey, driverNumber int, from, to time.Time) string {
	const layout = "2006-01-02T15:04:05.000"
	return fmt.Sprintf("session_key=%d&driver_number=%d&date>=%s&date<=%s",
		sessionKey, driverNumber,
		url.QueryEscape(from.UTC().Format(layout)), url.QueryEscape(to.UTC().Format(layout)))
}

// MatchMeeting picks the meeting whose weekend contains eventDay. Meetings
// start on the first practice day, at most a few days before the race.
func MatchMeeting(meetings []Meeting, eventDay time.Time) (Meeting, bool) {
	for _, m := range meetings {
		start := m.DateStart.Add(-24 * time.Hour)
		end := m.DateStart.Add(5 * 24 * time.Hour)
		if !eventDay.Before(start) && eventDay.Before(end) && !isTesting(m) {
			return m, true
		}
	}
	return Meeting{}, false
}

func isTesting(m Meeting) bool {
	return strings.Contains(strings.ToLower(m.MeetingName), "testing")
}

// sessionNames lists the live-timing names each session type has used.
var sessionNames = map[types.SessionType][]string{
	types.FP1: {"Practice 1"},
	types.FP2: {"Practice 2"},
	types.FP3: {"Practice 3"},
	types.SQ:  {"Sprint Qualifying", "Sprint Shootout"},
	types.S:   {"Sprint"},
	types.Q:   {"Qualifying"},
	types.R:   {"Race"},
}

// MatchSession picks the session of type st from a meeting's sessions.
func MatchSession(sessions []Session, st types.SessionType) (Session, bool) {
	for _, name := range sessionNames[st] {
		for _, s := range sessions {
			if strings.EqualFold(s.SessionName, name) {
				return s, true
			}
		}
	}
	return Session{}, false
}
