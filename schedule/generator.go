package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/urawa-cup/tournament-admin/models"
)

// Knockout bracket shape: two semifinals feeding a third-place match and a
// final, all at the finals venue. Semifinal pairings are seeded 1v4 and 2v3
// from the qualifying rounds.
const (
	semifinalCount = 2
	knockoutSlots  = 4
)

// KnockoutParams drives final-day bracket generation.
type KnockoutParams struct {
	TournamentID int
	Venue        *models.Venue
	Date         time.Time
	StartTime    string // "15:04"
	Interval     time.Duration
	Qualifiers   []*models.Team // ranked via QualifierRank; at least four
}

// PlacementGroup is one set of teams playing a round-robin placement league.
type PlacementGroup struct {
	Label string
	Teams []*models.Team
}

// PlacementParams drives placement-league generation across the final-day
// venues that are not the finals venue.
type PlacementParams struct {
	TournamentID int
	Date         time.Time
	StartTime    string
	Interval     time.Duration
	Venues       []*models.Venue
	Groups       []PlacementGroup
}

// GenerateKnockout builds the four bracket matches. Semifinal slots are
// fixed teams; third-place and final slots are winner/loser placeholders
// that bracket reconciliation fills in later.
func GenerateKnockout(params KnockoutParams) ([]*models.Match, error) {
	if params.Venue == nil {
		return nil, fmt.Errorf("knockout generation requires a finals venue")
	}
	qualifiers := rankedQualifiers(params.Qualifiers)
	if len(qualifiers) < knockoutSlots {
		return nil, fmt.Errorf("not enough qualified teams to generate bracket (minimum %d required, found %d)", knockoutSlots, len(qualifiers))
	}

	venueID := params.Venue.ID
	interval := params.Interval
	if interval <= 0 {
		interval = 70 * time.Minute
	}

	kickoff := func(order int) (string, error) {
		return kickoffAt(params.StartTime, interval, order-1)
	}

	base := func(order int) (*models.Match, error) {
		ko, err := kickoff(order)
		if err != nil {
			return nil, err
		}
		return &models.Match{
			TournamentID: params.TournamentID,
			VenueID:      &venueID,
			MatchDate:    params.Date,
			MatchOrder:   order,
			KickoffTime:  ko,
			Status:       models.StatusScheduled,
		}, nil
	}

	fixedSlot := func(t *models.Team) models.TeamSlot {
		id := t.ID
		var seed *string
		if t.QualifierRank != nil {
			s := strconv.Itoa(*t.QualifierRank)
			seed = &s
		}
		return models.TeamSlot{TeamID: &id, DisplayName: t.DisplayName(), Seed: seed, Type: models.SlotFixed}
	}

	derivedSlot := func(slotType models.SlotType, semifinal int) models.TeamSlot {
		label := "Winner"
		if slotType == models.SlotLoser {
			label = "Loser"
		}
		return models.TeamSlot{
			DisplayName: fmt.Sprintf("%s SF%d", label, semifinal),
			Type:        slotType,
		}
	}

	matches := make([]*models.Match, 0, knockoutSlots)

	// Semifinals: 1v4 then 2v3.
	pairings := [semifinalCount][2]int{{0, 3}, {1, 2}}
	for i, pair := range pairings {
		m, err := base(i + 1)
		if err != nil {
			return nil, err
		}
		m.Stage = models.StageSemifinal
		m.Home = fixedSlot(qualifiers[pair[0]])
		m.Away = fixedSlot(qualifiers[pair[1]])
		matches = append(matches, m)
	}

	third, err := base(3)
	if err != nil {
		return nil, err
	}
	third.Stage = models.StageThirdPlace
	third.Home = derivedSlot(models.SlotLoser, 1)
	third.Away = derivedSlot(models.SlotLoser, 2)
	matches = append(matches, third)

	final, err := base(4)
	if err != nil {
		return nil, err
	}
	final.Stage = models.StageFinal
	final.Home = derivedSlot(models.SlotWinner, 1)
	final.Away = derivedSlot(models.SlotWinner, 2)
	matches = append(matches, final)

	return matches, nil
}

// GeneratePlacement builds the round-robin placement leagues, one group per
// venue (wrapping round when there are more groups than venues). Each
// venue's matches get sequential match orders and kickoff times. Groups with
// fewer than two teams produce no matches.
func GeneratePlacement(params PlacementParams) ([]*models.Match, error) {
	if len(params.Venues) == 0 {
		return nil, fmt.Errorf("placement generation requires at least one venue")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = 50 * time.Minute
	}

	matches := make([]*models.Match, 0)
	orderByVenue := make(map[int]int)

	for gi, group := range params.Groups {
		if len(group.Teams) < 2 {
			continue
		}
		venue := params.Venues[gi%len(params.Venues)]

		// Single round-robin: every team plays every other team once.
		for i := 0; i < len(group.Teams); i++ {
			for j := i + 1; j < len(group.Teams); j++ {
				orderByVenue[venue.ID]++
				order := orderByVenue[venue.ID]
				ko, err := kickoffAt(params.StartTime, interval, order-1)
				if err != nil {
					return nil, err
				}

				venueID := venue.ID
				homeID := group.Teams[i].ID
				awayID := group.Teams[j].ID
				matches = append(matches, &models.Match{
					TournamentID: params.TournamentID,
					Stage:        models.StageTraining,
					VenueID:      &venueID,
					MatchDate:    params.Date,
					MatchOrder:   order,
					KickoffTime:  ko,
					Home: models.TeamSlot{
						TeamID:      &homeID,
						DisplayName: group.Teams[i].DisplayName(),
						Type:        models.SlotFixed,
					},
					Away: models.TeamSlot{
						TeamID:      &awayID,
						DisplayName: group.Teams[j].DisplayName(),
						Type:        models.SlotFixed,
					},
					Status: models.StatusScheduled,
				})
			}
		}
	}

	return matches, nil
}

// rankedQualifiers returns the teams carrying a qualifier rank, sorted by it.
func rankedQualifiers(teams []*models.Team) []*models.Team {
	ranked := make([]*models.Team, 0, len(teams))
	for _, t := range teams {
		if t.QualifierRank != nil {
			ranked = append(ranked, t)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return *ranked[i].QualifierRank < *ranked[j].QualifierRank
	})
	return ranked
}

func kickoffAt(start string, interval time.Duration, index int) (string, error) {
	t, err := time.Parse("15:04", start)
	if err != nil {
		return "", fmt.Errorf("invalid start time %q: %w", start, err)
	}
	return t.Add(time.Duration(index) * interval).Format("15:04"), nil
}
