package services

import (
	"context"
	"errors"
	"testing"

	"github.com/urawa-cup/tournament-admin/models"
)

func TestTeamListByTournament(t *testing.T) {
	teams := &mockTeamRepo{teams: []*models.Team{{ID: 1, Name: "Alpha"}}}
	tournaments := &mockTournamentRepo{tournament: &models.Tournament{ID: 1}}
	svc := NewTeamService(teams, tournaments)

	got, err := svc.ListByTournament(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListByTournament: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Alpha" {
		t.Errorf("unexpected teams: %+v", got)
	}
}

func TestTeamListByTournamentNotFound(t *testing.T) {
	svc := NewTeamService(&mockTeamRepo{}, &mockTournamentRepo{})

	_, err := svc.ListByTournament(context.Background(), 99)
	if !errors.Is(err, ErrTournamentNotFound) {
		t.Errorf("expected ErrTournamentNotFound, got %v", err)
	}
}

func TestTeamListByTournamentNeverNil(t *testing.T) {
	svc := NewTeamService(&mockTeamRepo{}, &mockTournamentRepo{tournament: &models.Tournament{ID: 1}})

	got, err := svc.ListByTournament(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListByTournament: %v", err)
	}
	if got == nil {
		t.Error("expected an empty slice, not nil")
	}
}
