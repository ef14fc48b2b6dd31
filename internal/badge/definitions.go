package badge

import (
	"fmt"

	"github.com/steppy/steppy-service/internal/growth"
)

// Definition describes one badge level.
type Definition struct {
	Type      growth.BadgeType `json:"type"`
	Level     int              `json:"level"`
	Name      string           `json:"name"`
	Condition string           `json:"condition"`
}

var (
	continuityDays = []int{3, 7, 14, 30, 100}
	// challenge levels 1-3; levels 4 and 5 need full category coverage
	challengeCategories = []int{2, 3, 4}
	// balance level 1 needs three active categories; levels 2-5 use these scores
	balanceScores = []float64{0.8, 1.2, 1.5, 2.0}
)

const balanceLevelOneCategories = 3

var familyNames = map[growth.BadgeType]string{
	growth.BadgeContinuity: "Continuity",
	growth.BadgeChallenge:  "Challenge",
	growth.BadgeBalance:    "Balance",
}

// Name returns the display name of a badge level, e.g. "Continuity ★2".
func Name(t growth.BadgeType, level int) string {
	family, ok := familyNames[t]
	if !ok {
		family = string(t)
	}
	return fmt.Sprintf("%s ★%d", family, level)
}

// Definitions lists every badge level in family then level order.
func Definitions() []Definition {
	defs := make([]Definition, 0, 15)
	for i, days := range continuityDays {
		defs = append(defs, Definition{
			Type: growth.BadgeContinuity, Level: i + 1, Name: Name(growth.BadgeContinuity, i+1),
			Condition: fmt.Sprintf("%d day streak", days),
		})
	}
	for i, n := range challengeCategories {
		defs = append(defs, Definition{
			Type: growth.BadgeChallenge, Level: i + 1, Name: Name(growth.BadgeChallenge, i+1),
			Condition: fmt.Sprintf("%d or more categories in one week", n),
		})
	}
	defs = append(defs,
		Definition{Type: growth.BadgeChallenge, Level: 4, Name: Name(growth.BadgeChallenge, 4), Condition: "every category within a month"},
		Definition{Type: growth.BadgeChallenge, Level: 5, Name: Name(growth.BadgeChallenge, 5), Condition: "every category every week for four weeks"},
		Definition{Type: growth.BadgeBalance, Level: 1, Name: Name(growth.BadgeBalance, 1), Condition: "3 or more categories in one week"},
	)
	for i, score := range balanceScores {
		defs = append(defs, Definition{
			Type: growth.BadgeBalance, Level: i + 2, Name: Name(growth.BadgeBalance, i+2),
			Condition: fmt.Sprintf("balance score of %.1f or more", score),
		})
	}
	return defs
}
