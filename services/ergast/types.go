package ergast

// Wire types of the Jolpica-F1 (Ergast-compatible) JSON responses. All
// scalar values arrive as strings.

type response struct {
	MRData mrData `json:"MRData"`
}

type mrData struct {
	Total            string           `json:"total"`
	RaceTable        raceTable        `json:"RaceTable"`
	DriverTable      driverTable      `json:"DriverTable"`
	ConstructorTable constructorTable `json:"ConstructorTable"`
	StandingsTable   standingsTable   `json:"StandingsTable"`
}

type raceTable struct {
	Season string `json:"season"`
	Races  []race `json:"Races"`
}

type race struct {
	Season           string        `json:"season"`
	Round            string        `json:"round"`
	URL              string        `json:"url"`
	RaceName         string        `json:"raceName"`
	Circuit          circuit       `json:"Circuit"`
	Date             string        `json:"date"`
	Time             string        `json:"time"`
	FirstPractice    *sessionTime  `json:"FirstPractice"`
	SecondPractice   *sessionTime  `json:"SecondPractice"`
	ThirdPractice    *sessionTime  `json:"ThirdPractice"`
	Qualifying       *sessionTime  `json:"Qualifying"`
	Sprint           *sessionTime  `json:"Sprint"`
	SprintQualifying *sessionTime  `json:"SprintQualifying"`
	SprintShootout   *sessionTime  `json:"SprintShootout"`
	Results          []result      `json:"Results"`
	SprintResults    []result      `json:"SprintResults"`
	QualifyingResult []qualiResult `json:"QualifyingResults"`
}

type circuit struct {
	CircuitID   string   `json:"circuitId"`
	URL         string   `json:"url"`
	CircuitName string   `json:"circuitName"`
	Location    location `json:"Location"`
}

type location struct {
	Lat      string `json:"lat"`
	Long     string `json:"long"`
	Locality string `json:"locality"`
	Country  string `json:"country"`
}

type sessionTime struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type driver struct {
	DriverID        string `json:"driverId"`
	PermanentNumber string `json:"permanentNumber"`
	Code            string `json:"code"`
	URL             string `json:"url"`
	GivenName       string `json:"givenName"`
	FamilyName      string `json:"familyName"`
	DateOfBirth     string `json:"dateOfBirth"`
	Nationality     string `json:"nationality"`
}

type constructor struct {
	ConstructorID string `json:"constructorId"`
	URL           string `json:"url"`
	Name          string `json:"name"`
	Nationality   string `json:"nationality"`
}

type raceTime struct {
	Millis string `json:"millis"`
	Time   string `json:"time"`
}

type fastestLap struct {
	Rank string   `json:"rank"`
	Lap  string   `json:"lap"`
	Time raceTime `json:"Time"`
}

type result struct {
	Number       string      `json:"number"`
	Position     string      `json:"position"`
	PositionText string      `json:"positionText"`
	Points       string      `json:"points"`
	Driver       driver      `json:"Driver"`
	Constructor  constructor `json:"Constructor"`
	Grid         string      `json:"grid"`
	Laps         string      `json:"laps"`
	Status       string      `json:"status"`
	Time         *raceTime   `json:"Time"`
	FastestLap   *fastestLap `json:"FastestLap"`
}

type qualiResult struct {
	Number      string      `json:"number"`
	Position    string      `json:"position"`
	Driver      driver      `json:"Driver"`
	Constructor constructor `json:"Constructor"`
	Q1          string      `json:"Q1"`
	Q2          string      `json:"Q2"`
	Q3          string      `json:"Q3"`
}

type driverTable struct {
	Season  string   `json:"season"`
	Drivers []driver `json:"Drivers"`
}

type constructorTable struct {
	Season       string        `json:"season"`
	Constructors []constructor `json:"Constructors"`
}

type standingsTable struct {
	Season         string          `json:"season"`
	StandingsLists []standingsList `json:"StandingsLists"`
}

type standingsList struct {
	Season               string                `json:"season"`
	Round                string                `json:"round"`
	DriverStandings      []driverStanding      `json:"DriverStandings"`
	ConstructorStandings []constructorStanding `json:"ConstructorStandings"`
}

type driverStanding struct {
	Position     string        `json:"position"`
	PositionText string        `json:"positionText"`
	Points       string        `json:"points"`
	Wins         string        `json:"wins"`
	Driver       driver        `json:"Driver"`
	Constructors []constructor `json:"Constructors"`
}

type constructorStanding struct {
	Position     string      `json:"position"`
	PositionText string      `json:"positionText"`
	Points       string      `json:"points"`
	Wins         string      `json:"wins"`
	Constructor  constructor `json:"Constructor"`
}
