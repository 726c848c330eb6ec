package session

import (
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/pkg/errors"

	"github.com/vainnor/f1-stats/services/ergast"
)

// MatchEvent picks the event identified by id, which is either a round
// number or an event, circuit, locality or country name. Names match
// case-insensitively first by equality and then by closest fuzzy match.
func MatchEvent(events []ergast.Event, id string) (ergast.Event, error) {
	id = strings.TrimSpace(id)
	if len(events) == 0 {
		return ergast.Event{}, errors.New("the season schedule has no events")
	}
	if id == "" {
		return ergast.Event{}, errors.New("no event given")
	}

	if round, err := strconv.Atoi(id); err == nil {
		for _, e := range events {
			if e.Round == round {
				return e, nil
			}
		}
		return ergast.Event{}, errors.Errorf("no event with round number %d in the %d season", round, events[0].Year)
	}

	for _, e := range events {
		for _, name := range eventNames(e) {
			if strings.EqualFold(name, id) {
				return e, nil
			}
		}
	}

	best, bestRank := -1, -1
	for i, e := range events {
		for _, name := range eventNames(e) {
			rank := fuzzy.RankMatchNormalizedFold(id, name)
			if rank < 0 {
				continue
			}
			if best < 0 || rank < bestRank {
				best, bestRank = i, rank
			}
		}
	}
	if best < 0 {
		return ergast.Event{}, errors.Errorf("no event matching %q in the %d season", id, events[0].Year)
	}
	return events[best], nil
}

func eventNames(e ergast.Event) []string {
	return []string{e.Name, e.CircuitName, e.Location, e.Country, e.CircuitID}
}
