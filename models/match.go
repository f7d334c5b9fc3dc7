package models

import "time"

// MatchStatus represents the lifecycle of a match, matching the ENUM in the DB.
// completed is terminal.
type MatchStatus string

const (
	StatusScheduled  MatchStatus = "scheduled"
	StatusInProgress MatchStatus = "in_progress"
	StatusCompleted  MatchStatus = "completed"
)

// MatchStage classifies a match within the tournament.
// group covers the day-1/day-2 qualifying league; the remaining stages make
// up the final day (training = placement league, the rest the knockout bracket).
type MatchStage string

const (
	StageGroup      MatchStage = "group"
	StageTraining   MatchStage = "training"
	StageSemifinal  MatchStage = "semifinal"
	StageThirdPlace MatchStage = "third_place"
	StageFinal      MatchStage = "final"
)

// IsKnockout reports whether the stage belongs to the final-day bracket.
func (s MatchStage) IsKnockout() bool {
	return s == StageSemifinal || s == StageThirdPlace || s == StageFinal
}

// SlotType describes how a match position gets its team. fixed slots are set
// directly (and may be swapped by operators); winner/loser slots are derived
// from semifinal outcomes and are only written by bracket reconciliation.
type SlotType string

const (
	SlotFixed  SlotType = "fixed"
	SlotWinner SlotType = "winner"
	SlotLoser  SlotType = "loser"
)

// TeamSlot is one side of a match. TeamID is nil while the slot is
// unresolved (empty placement slot, or a bracket slot awaiting results).
type TeamSlot struct {
	TeamID      *int     `json:"team_id" db:"team_id"`
	DisplayName string   `json:"display_name" db:"display_name"`
	Seed        *string  `json:"seed,omitempty" db:"seed"`
	Type        SlotType `json:"type" db:"slot_type"`
}

// Resolved reports whether a concrete team occupies the slot.
func (s TeamSlot) Resolved() bool {
	return s.TeamID != nil
}

// Locked reports whether the slot is off-limits for direct swaps.
func (s TeamSlot) Locked() bool {
	return s.Type == SlotWinner || s.Type == SlotLoser
}

// Side identifies one of the two positions within a match.
type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)

func (s Side) Valid() bool {
	return s == SideHome || s == SideAway
}

// Match represents one scheduled match.
type Match struct {
	ID           int         `json:"id" db:"id"`
	TournamentID int         `json:"tournament_id" db:"tournament_id"`
	Stage        MatchStage  `json:"stage" db:"stage"`
	VenueID      *int        `json:"venue_id" db:"venue_id"`
	MatchDate    time.Time   `json:"match_date" db:"match_date"`
	MatchOrder   int         `json:"match_order" db:"match_order"`
	KickoffTime  string      `json:"kickoff_time" db:"kickoff_time"`
	Home         TeamSlot    `json:"home"`
	Away         TeamSlot    `json:"away"`
	Status       MatchStatus `json:"status" db:"status"`
	HomeScore    *int        `json:"home_score,omitempty" db:"home_score"`
	AwayScore    *int        `json:"away_score,omitempty" db:"away_score"`
	RefereeMain  *string     `json:"referee_main,omitempty" db:"referee_main"`
	RefereeAsst  *string     `json:"referee_assistant,omitempty" db:"referee_assistant"`
	Notes        *string     `json:"notes,omitempty" db:"notes"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`

	Venue *Venue `json:"venue,omitempty" db:"-"`
}

// Slot returns the TeamSlot for the given side.
func (m *Match) Slot(side Side) TeamSlot {
	if side == SideAway {
		return m.Away
	}
	return m.Home
}

// SetSlotTeam rewrites the team occupying the given side. Display name is the
// caller's responsibility (it comes from a refetch, not from this mutation).
func (m *Match) SetSlotTeam(side Side, teamID *int) {
	if side == SideAway {
		m.Away.TeamID = teamID
		return
	}
	m.Home.TeamID = teamID
}

// PlayedResult is the answer to "have these two teams already met".
// HomeScore and AwayScore are both present or both absent; they are oriented
// to the prior match's own home/away, not to the queried team order.
type PlayedResult struct {
	Played    bool    `json:"played"`
	HomeScore *int    `json:"home_score,omitempty"`
	AwayScore *int    `json:"away_score,omitempty"`
	MatchDate *string `json:"match_date,omitempty"`
}
