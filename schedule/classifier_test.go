package schedule

import (
	"testing"
	"time"

	"github.com/urawa-cup/tournament-admin/models"
)

func trainingMatch(id, venueID int, venueName string, order int) *models.Match {
	return &models.Match{
		ID:         id,
		Stage:      models.StageTraining,
		MatchOrder: order,
		Venue:      &models.Venue{ID: venueID, Name: venueName},
	}
}

func knockoutMatch(id int, stage models.MatchStage, venueName string, order int) *models.Match {
	m := &models.Match{
		ID:         id,
		Stage:      stage,
		MatchOrder: order,
	}
	if venueName != "" {
		m.Venue = &models.Venue{ID: 99, Name: venueName}
	}
	return m
}

func TestClassifyEmptyInput(t *testing.T) {
	out := Classify(nil)
	if out.PlacementVenues == nil || len(out.PlacementVenues) != 0 {
		t.Errorf("expected empty placement venues, got %v", out.PlacementVenues)
	}
	if out.KnockoutMatches == nil || len(out.KnockoutMatches) != 0 {
		t.Errorf("expected empty knockout matches, got %v", out.KnockoutMatches)
	}
	if out.KnockoutVenueName != DefaultKnockoutVenueName {
		t.Errorf("expected default knockout venue name %q, got %q", DefaultKnockoutVenueName, out.KnockoutVenueName)
	}
}

func TestClassifyOrdersWithinVenue(t *testing.T) {
	// Matches arrive out of order; per venue they come back sorted by
	// match_order.
	matches := []*models.Match{
		trainingMatch(1, 10, "North Pitch", 2),
		trainingMatch(2, 10, "North Pitch", 1),
	}

	out := Classify(matches)

	if len(out.PlacementVenues) != 1 {
		t.Fatalf("expected 1 placement venue, got %d", len(out.PlacementVenues))
	}
	vs := out.PlacementVenues[0]
	if vs.VenueID != 10 || vs.VenueName != "North Pitch" {
		t.Errorf("unexpected venue: id=%d name=%q", vs.VenueID, vs.VenueName)
	}
	if len(vs.Matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(vs.Matches))
	}
	if vs.Matches[0].ID != 2 || vs.Matches[1].ID != 1 {
		t.Errorf("expected match order [2, 1], got [%d, %d]", vs.Matches[0].ID, vs.Matches[1].ID)
	}
}

func TestClassifyRoutesByStage(t *testing.T) {
	matches := []*models.Match{
		trainingMatch(1, 10, "North Pitch", 1),
		knockoutMatch(2, models.StageSemifinal, "Komaba Stadium", 1),
		knockoutMatch(3, models.StageThirdPlace, "Komaba Stadium", 3),
		knockoutMatch(4, models.StageFinal, "Komaba Stadium", 4),
		{ID: 5, Stage: models.StageGroup, MatchOrder: 1}, // earlier round, not on the board
	}

	out := Classify(matches)

	if len(out.PlacementVenues) != 1 {
		t.Fatalf("expected 1 placement venue, got %d", len(out.PlacementVenues))
	}
	if len(out.KnockoutMatches) != 3 {
		t.Fatalf("expected 3 knockout matches, got %d", len(out.KnockoutMatches))
	}
	if out.KnockoutVenueName != "Komaba Stadium" {
		t.Errorf("expected knockout venue %q, got %q", "Komaba Stadium", out.KnockoutVenueName)
	}
	for _, m := range out.KnockoutMatches {
		if m.ID == 5 {
			t.Error("group-stage match leaked into knockout list")
		}
	}
}

func TestClassifyVenueFirstNameWins(t *testing.T) {
	// Upstream occasionally reports different names for the same venue id.
	matches := []*models.Match{
		trainingMatch(1, 10, "North Pitch", 1),
		trainingMatch(2, 10, "Pitch A (North)", 2),
	}

	out := Classify(matches)

	if len(out.PlacementVenues) != 1 {
		t.Fatalf("expected 1 placement venue, got %d", len(out.PlacementVenues))
	}
	if got := out.PlacementVenues[0].VenueName; got != "North Pitch" {
		t.Errorf("expected first-seen venue name to win, got %q", got)
	}
}

func TestClassifyVenueOrderIsFirstAppearance(t *testing.T) {
	matches := []*models.Match{
		trainingMatch(1, 20, "East Pitch", 1),
		trainingMatch(2, 10, "North Pitch", 1),
		trainingMatch(3, 20, "East Pitch", 2),
	}

	out := Classify(matches)

	if len(out.PlacementVenues) != 2 {
		t.Fatalf("expected 2 placement venues, got %d", len(out.PlacementVenues))
	}
	if out.PlacementVenues[0].VenueID != 20 || out.PlacementVenues[1].VenueID != 10 {
		t.Errorf("expected venues in first-seen order [20, 10], got [%d, %d]",
			out.PlacementVenues[0].VenueID, out.PlacementVenues[1].VenueID)
	}
}

func TestClassifyKnockoutVenueDefaultsWhenUnnamed(t *testing.T) {
	matches := []*models.Match{
		knockoutMatch(1, models.StageSemifinal, "", 1),
		knockoutMatch(2, models.StageFinal, "", 4),
	}

	out := Classify(matches)

	if out.KnockoutVenueName != DefaultKnockoutVenueName {
		t.Errorf("expected default venue name %q, got %q", DefaultKnockoutVenueName, out.KnockoutVenueName)
	}
}

func TestClassifyIsPure(t *testing.T) {
	matches := []*models.Match{
		trainingMatch(1, 10, "North Pitch", 2),
		trainingMatch(2, 10, "North Pitch", 1),
		knockoutMatch(3, models.StageFinal, "Komaba Stadium", 4),
	}

	first := Classify(matches)
	second := Classify(matches)

	if len(first.PlacementVenues) != len(second.PlacementVenues) {
		t.Fatalf("venue count drifted between calls: %d vs %d", len(first.PlacementVenues), len(second.PlacementVenues))
	}
	for i := range first.PlacementVenues {
		a, b := first.PlacementVenues[i], second.PlacementVenues[i]
		if a.VenueID != b.VenueID || len(a.Matches) != len(b.Matches) {
			t.Errorf("venue %d differs between calls", i)
		}
		for j := range a.Matches {
			if a.Matches[j].ID != b.Matches[j].ID {
				t.Errorf("venue %d match %d differs between calls: %d vs %d", i, j, a.Matches[j].ID, b.Matches[j].ID)
			}
		}
	}
	if first.KnockoutVenueName != second.KnockoutVenueName {
		t.Errorf("knockout venue name drifted: %q vs %q", first.KnockoutVenueName, second.KnockoutVenueName)
	}
}

func TestClassifyPreservesDateZeroValue(t *testing.T) {
	out := Classify([]*models.Match{trainingMatch(1, 10, "North Pitch", 1)})
	if !out.Date.Equal(time.Time{}) {
		t.Errorf("Classify must not set Date, got %v", out.Date)
	}
}
