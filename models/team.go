package models

import "time"

type Team struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	Name         string    `json:"name" db:"name"`
	ShortName    *string   `json:"short_name,omitempty" db:"short_name"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	// Final-day seeding. QualifierRank 1-4 marks the knockout bracket teams;
	// PlacementGroup labels the placement-league group for everyone else.
	QualifierRank  *int    `json:"qualifier_rank,omitempty" db:"qualifier_rank"`
	PlacementGroup *string `json:"placement_group,omitempty" db:"placement_group"`
}

// DisplayName prefers the short name used on printed schedules.
func (t *Team) DisplayName() string {
	if t.ShortName != nil && *t.ShortName != "" {
		return *t.ShortName
	}
	return t.Name
}
