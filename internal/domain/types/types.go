// Package types contains the leaderboard read shapes shared by the
// ranking engine, the service and the HTTP layer.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// IndividualMarker replaces the numeric score of individual competitions.
const IndividualMarker = "Individu"

// CompetitionScore is either a 2-decimal average or the individual marker.
type CompetitionScore struct {
	Value      float64
	Individual bool
}

// Numeric builds a team-competition score.
func Numeric(v float64) CompetitionScore { return CompetitionScore{Value: v} }

// Individual builds the marker for an individual competition.
func Individual() CompetitionScore { return CompetitionScore{Individual: true} }

// MarshalJSON renders a number or the string "Individu".
func (s CompetitionScore) MarshalJSON() ([]byte, error) {
	if s.Individual {
		return json.Marshal(IndividualMarker)
	}
	return json.Marshal(s.Value)
}

// UnmarshalJSON accepts a number or the string "Individu".
func (s *CompetitionScore) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		if str != IndividualMarker {
			return fmt.Errorf("unexpected competition score %q", str)
		}
		*s = Individual()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Numeric(v)
	return nil
}

// Medals is the (gold, silver, bronze) tuple used as the primary ranking key.
type Medals struct {
	Gold   int `json:"gold"`
	Silver int `json:"silver"`
	Bronze int `json:"bronze"`
}

// RankedEntry is one team's row in a computed leaderboard. FlagshipScore
// is a tie-break key and is not part of the wire format.
type RankedEntry struct {
	Rank                int                         `json:"rank"`
	TeamID              string                      `json:"teamId"`
	TeamName            string                      `json:"teamName"`
	School              string                      `json:"school"`
	ScoresByCompetition map[string]CompetitionScore `json:"scoresByCompetition"`
	TotalScore          float64                     `json:"totalScore"`
	Medals              Medals                      `json:"medals"`
	FlagshipScore       float64                     `json:"-"`
}
