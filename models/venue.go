package models

import "time"

type Venue struct {
	ID            int       `json:"id" db:"id"`
	TournamentID  int       `json:"tournament_id" db:"tournament_id"`
	Name          string    `json:"name" db:"name"`
	Address       *string   `json:"address,omitempty" db:"address"`
	ForFinalDay   bool      `json:"for_final_day" db:"for_final_day"`
	IsFinalsVenue bool      `json:"is_finals_venue" db:"is_finals_venue"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
