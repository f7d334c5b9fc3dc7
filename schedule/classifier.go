package schedule

import (
	"sort"
	"time"

	"github.com/urawa-cup/tournament-admin/models"
)

// DefaultKnockoutVenueName is shown when no knockout match carries a venue.
const DefaultKnockoutVenueName = "Main Stadium"

// VenueSchedule groups the placement-league matches of one venue, ordered by
// match_order. Derived data: recomputed from the match list on every refresh,
// never mutated in place.
type VenueSchedule struct {
	VenueID   int             `json:"venue_id"`
	VenueName string          `json:"venue_name"`
	Matches   []*models.Match `json:"matches"`
}

// Classified is the final-day view model: placement venues plus the knockout
// bracket. This is the contract surface consumed by rendering and export.
type Classified struct {
	PlacementVenues   []VenueSchedule `json:"placement_venues"`
	KnockoutMatches   []*models.Match `json:"knockout_matches"`
	KnockoutVenueName string          `json:"knockout_venue_name"`
	Date              time.Time       `json:"date"`
}

// Classify partitions a flat match list into per-venue placement groups and
// the knockout match list. Pure function: identical input yields identical
// output, with no state carried between calls.
//
// Training matches group by venue id; the group's name is taken from the
// first match seen for that id. Upstream data occasionally reports different
// names for the same venue id, and that inconsistency is deliberately left
// as-is: first name seen wins. Non-training matches land in KnockoutMatches,
// and the last non-empty venue name among them becomes KnockoutVenueName.
func Classify(matches []*models.Match) Classified {
	out := Classified{
		PlacementVenues:   make([]VenueSchedule, 0),
		KnockoutMatches:   make([]*models.Match, 0),
		KnockoutVenueName: DefaultKnockoutVenueName,
	}

	venueIndex := make(map[int]int) // venue id -> index in PlacementVenues

	for _, m := range matches {
		if m.Stage == models.StageTraining {
			venueID := 0
			venueName := ""
			if m.Venue != nil {
				venueID = m.Venue.ID
				venueName = m.Venue.Name
			} else if m.VenueID != nil {
				venueID = *m.VenueID
			}

			idx, seen := venueIndex[venueID]
			if !seen {
				idx = len(out.PlacementVenues)
				venueIndex[venueID] = idx
				out.PlacementVenues = append(out.PlacementVenues, VenueSchedule{
					VenueID:   venueID,
					VenueName: venueName,
					Matches:   make([]*models.Match, 0, 4),
				})
			}
			out.PlacementVenues[idx].Matches = append(out.PlacementVenues[idx].Matches, m)
			continue
		}

		if !m.Stage.IsKnockout() {
			// Earlier-round matches do not belong on the final-day board.
			continue
		}

		out.KnockoutMatches = append(out.KnockoutMatches, m)
		if m.Venue != nil && m.Venue.Name != "" {
			out.KnockoutVenueName = m.Venue.Name
		}
	}

	for i := range out.PlacementVenues {
		ms := out.PlacementVenues[i].Matches
		sort.SliceStable(ms, func(a, b int) bool {
			return ms[a].MatchOrder < ms[b].MatchOrder
		})
	}

	return out
}
