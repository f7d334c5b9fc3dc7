package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/urawa-cup/tournament-admin/models"
	"github.com/urawa-cup/tournament-admin/repositories"
)

// TeamService backs the match-edit form's team picker.
type TeamService interface {
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Team, error)
}

type teamService struct {
	teamRepo       repositories.TeamRepository
	tournamentRepo repositories.TournamentRepository
}

func NewTeamService(teamRepo repositories.TeamRepository, tournamentRepo repositories.TournamentRepository) TeamService {
	return &teamService{teamRepo: teamRepo, tournamentRepo: tournamentRepo}
}

func (s *teamService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Team, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}

	teams, err := s.teamRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams for tournament %d: %w", tournamentID, err)
	}
	if teams == nil {
		return []*models.Team{}, nil
	}
	return teams, nil
}
