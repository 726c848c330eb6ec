package openf1

import (
	"encoding/json"
	"time"
)

type Meeting struct {
	MeetingKey          int       `json:"meeting_key"`
	MeetingName         string    `json:"meeting_name"`
	MeetingOfficialName string    `json:"meeting_official_name"`
	Location            string    `json:"location"`
	CountryName         string    `json:"country_name"`
	CircuitShortName    string    `json:"circuit_short_name"`
	DateStart           time.Time `json:"date_start"`
	Year                int       `json:"year"`
}

type Session struct {
	SessionKey  int       `json:"session_key"`
	SessionName string    `json:"session_name"`
	SessionType string    `json:"session_type"`
	MeetingKey  int       `json:"meeting_key"`
	DateStart   time.Time `json:"date_start"`
	DateEnd     time.Time `json:"date_end"`
	Year        int       `json:"year"`
}

type Driver struct {
	DriverNumber  int    `json:"driver_number"`
	BroadcastName string `json:"broadcast_name"`
	FullName      string `json:"full_name"`
	NameAcronym   string `json:"name_acronym"`
	TeamName      string `json:"team_name"`
	TeamColour    string `json:"team_colour"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	HeadshotURL   string `json:"headshot_url"`
	CountryCode   string `json:"country_code"`
}

type Lap struct {
	DriverNumber    int        `json:"driver_number"`
	LapNumber       int        `json:"lap_number"`
	DateStart       *time.Time `json:"date_start"`
	LapDuration     *float64   `json:"lap_duration"`
	DurationSector1 *float64   `json:"duration_sector_1"`
	DurationSector2 *float64   `json:"duration_sector_2"`
	DurationSector3 *float64   `json:"duration_sector_3"`
	I1Speed         *float64   `json:"i1_speed"`
	I2Speed         *float64   `json:"i2_speed"`
	StSpeed         *float64   `json:"st_speed"`
	IsPitOutLap     bool       `json:"is_pit_out_lap"`
}

type CarData struct {
	Date         time.Time `json:"date"`
	DriverNumber int       `json:"driver_number"`
	RPM          float64   `json:"rpm"`
	Speed        float64   `json:"speed"`
	NGear        int       `json:"n_gear"`
	Throttle     float64   `json:"throttle"`
	Brake        float64   `json:"brake"`
	DRS          int       `json:"drs"`
}

type Location struct {
	Date         time.Time `json:"date"`
	DriverNumber int       `json:"driver_number"`
	X            float64   `json:"x"`
	Y            float64   `json:"y"`
	Z            float64   `json:"z"`
}

type Weather struct {
	Date             time.Time `json:"date"`
	AirTemperature   *float64  `json:"air_temperature"`
	Humidity         *float64  `json:"humidity"`
	Pressure         *float64  `json:"pressure"`
	Rainfall         *float64  `json:"rainfall"`
	TrackTemperature *float64  `json:"track_temperature"`
	WindDirection    *float64  `json:"wind_direction"`
	WindSpeed        *float64  `json:"wind_speed"`
}

type RaceControl struct {
	Date         time.Time `json:"date"`
	Category     string    `json:"category"`
	Flag         *string   `json:"flag"`
	Scope        *string   `json:"scope"`
	Sector       *int      `json:"sector"`
	LapNumber    *int      `json:"lap_number"`
	DriverNumber *int      `json:"driver_number"`
	Message      string    `json:"message"`
}

// SessionResult is one classification row. Duration and GapToLeader hold a
// number for races and practice, and a per-segment array for qualifying.
type SessionResult struct {
	Position     *int            `json:"position"`
	DriverNumber int             `json:"driver_number"`
	NumberOfLaps *int            `json:"number_of_laps"`
	Points       *float64        `json:"points"`
	DNF          bool            `json:"dnf"`
	DNS          bool            `json:"dns"`
	DSQ          bool            `json:"dsq"`
	Duration     json.RawMessage `json:"duration"`
	GapToLeader  json.RawMessage `json:"gap_to_leader"`
}
