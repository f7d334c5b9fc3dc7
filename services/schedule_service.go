package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/urawa-cup/tournament-admin/live"
	"github.com/urawa-cup/tournament-admin/models"
	"github.com/urawa-cup/tournament-admin/repositories"
	"github.com/urawa-cup/tournament-admin/schedule"
)

// Kickoff spacing defaults for generated final-day schedules.
const (
	knockoutInterval  = 70 * time.Minute
	placementInterval = 50 * time.Minute
)

var knockoutStages = []models.MatchStage{models.StageSemifinal, models.StageThirdPlace, models.StageFinal}

// ScheduleService is the collaborator layer behind the final-day editor:
// fetching the classified view, bulk generation, slot swaps, the played
// check, match edits, and bracket reconciliation.
type ScheduleService interface {
	FinalDaySchedule(ctx context.Context, tournamentID int, date time.Time) (*schedule.Classified, error)
	GenerateFinalDay(ctx context.Context, tournamentID int, date time.Time, startTime string) error
	SwapTeams(ctx context.Context, match1ID int, side1 models.Side, match2ID int, side2 models.Side) error
	UpdateMatchTeams(ctx context.Context, matchID int, homeTeamID, awayTeamID *int) error
	UpdateMatchDetail(ctx context.Context, matchID int, upd repositories.MatchDetailUpdate) error
	CheckTeamsPlayed(ctx context.Context, team1ID, team2ID int) (*models.PlayedResult, error)
	ReconcileBracket(ctx context.Context, tournamentID int) error
	Editor(tournamentID int) *schedule.Editor
}

type scheduleService struct {
	db             *sql.DB
	matchRepo      repositories.MatchRepository
	teamRepo       repositories.TeamRepository
	venueRepo      repositories.VenueRepository
	tournamentRepo repositories.TournamentRepository
	hub            *live.Hub
	logger         *slog.Logger

	editorsMu sync.Mutex
	editors   map[int]*schedule.Editor

	inflightMu sync.Mutex
	inflight   map[string]bool
}

func NewScheduleService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	venueRepo repositories.VenueRepository,
	tournamentRepo repositories.TournamentRepository,
	hub *live.Hub,
	logger *slog.Logger,
) ScheduleService {
	if logger == nil {
		logger = slog.Default()
	}
	return &scheduleService{
		db:             db,
		matchRepo:      matchRepo,
		teamRepo:       teamRepo,
		venueRepo:      venueRepo,
		tournamentRepo: tournamentRepo,
		hub:            hub,
		logger:         logger,
		editors:        make(map[int]*schedule.Editor),
		inflight:       make(map[string]bool),
	}
}

// Editor returns the drag/drop editor for a tournament, creating it on first
// use. The service itself is the editor's conflict checker and swap executor.
func (s *scheduleService) Editor(tournamentID int) *schedule.Editor {
	s.editorsMu.Lock()
	defer s.editorsMu.Unlock()
	ed, ok := s.editors[tournamentID]
	if !ok {
		ed = schedule.NewEditor(s, s, s.logger)
		s.editors[tournamentID] = ed
	}
	return ed
}

// FinalDaySchedule fetches the authoritative match list and classifies it.
// The tournament lookup runs in parallel with the match fetch. The editor's
// snapshot is refreshed so gesture validation sees the same data the caller
// renders.
func (s *scheduleService) FinalDaySchedule(ctx context.Context, tournamentID int, date time.Time) (*schedule.Classified, error) {
	var matches []*models.Match

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if _, err := s.tournamentRepo.GetByID(gCtx, tournamentID); err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.ListByDate(gCtx, tournamentID, date)
		if err != nil {
			return fmt.Errorf("failed to list final-day matches for tournament %d: %w", tournamentID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	classified := schedule.Classify(matches)
	classified.Date = date

	s.Editor(tournamentID).Refresh(matches)

	return &classified, nil
}

// CheckTeamsPlayed reports whether the two teams have a completed match
// against each other, with the prior meeting's date and score when found.
// Scores are reported both-or-neither.
func (s *scheduleService) CheckTeamsPlayed(ctx context.Context, team1ID, team2ID int) (*models.PlayedResult, error) {
	meeting, err := s.matchRepo.FindLastMeeting(ctx, team1ID, team2ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check prior meeting of teams %d and %d: %w", team1ID, team2ID, err)
	}
	if meeting == nil {
		return &models.PlayedResult{Played: false}, nil
	}

	result := &models.PlayedResult{Played: true}
	dateStr := meeting.MatchDate.Format("2006-01-02")
	result.MatchDate = &dateStr
	if meeting.HomeScore != nil && meeting.AwayScore != nil {
		result.HomeScore = meeting.HomeScore
		result.AwayScore = meeting.AwayScore
	}
	return result, nil
}

// SwapTeams exchanges the occupants of two slots in one transaction: both
// rows update together or neither does.
func (s *scheduleService) SwapTeams(ctx context.Context, match1ID int, side1 models.Side, match2ID int, side2 models.Side) error {
	if !side1.Valid() || !side2.Valid() {
		return ErrInvalidSide
	}
	if match1ID == match2ID && side1 == side2 {
		return ErrSwapSameSlot
	}

	m1, err := s.getMatch(ctx, match1ID)
	if err != nil {
		return err
	}
	m2, err := s.getMatch(ctx, match2ID)
	if err != nil {
		return err
	}

	for _, pair := range []struct {
		match *models.Match
		side  models.Side
	}{{m1, side1}, {m2, side2}} {
		if pair.match.Status == models.StatusCompleted {
			return ErrMatchLocked
		}
		if pair.match.Slot(pair.side).Locked() {
			return ErrSlotLocked
		}
	}

	team1 := m1.Slot(side1).TeamID
	team2 := m2.Slot(side2).TeamID

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin swap transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.matchRepo.UpdateSlotTeam(ctx, tx, match1ID, side1, team2); err != nil {
		return fmt.Errorf("failed to update match %d slot: %w", match1ID, err)
	}
	if err := s.matchRepo.UpdateSlotTeam(ctx, tx, match2ID, side2, team1); err != nil {
		return fmt.Errorf("failed to update match %d slot: %w", match2ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit swap transaction: %w", err)
	}

	s.logger.Info("teams swapped",
		slog.Int("match1_id", match1ID), slog.String("side1", string(side1)),
		slog.Int("match2_id", match2ID), slog.String("side2", string(side2)))
	s.broadcast(m1.TournamentID, live.EventTeamsSwapped, map[string]interface{}{
		"match1_id": match1ID, "side1": side1,
		"match2_id": match2ID, "side2": side2,
	})
	return nil
}

// UpdateMatchTeams sets both slots of one match (match-edit form).
func (s *scheduleService) UpdateMatchTeams(ctx context.Context, matchID int, homeTeamID, awayTeamID *int) error {
	m, err := s.getMatch(ctx, matchID)
	if err != nil {
		return err
	}
	if m.Status == models.StatusCompleted {
		return ErrMatchLocked
	}
	if m.Home.Locked() || m.Away.Locked() {
		return ErrSlotLocked
	}

	if err := s.matchRepo.UpdateTeams(ctx, s.db, matchID, homeTeamID, awayTeamID); err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		if errors.Is(err, repositories.ErrMatchTeamInvalid) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to update teams of match %d: %w", matchID, err)
	}

	s.broadcast(m.TournamentID, live.EventMatchUpdated, map[string]interface{}{"match_id": matchID})
	return nil
}

// UpdateMatchDetail edits kickoff, order, referee, notes, score and status.
// completed is terminal: a completed match accepts score and referee
// corrections but never an earlier status, and completing a match requires
// both scores (on the update or already on the row).
func (s *scheduleService) UpdateMatchDetail(ctx context.Context, matchID int, upd repositories.MatchDetailUpdate) error {
	m, err := s.getMatch(ctx, matchID)
	if err != nil {
		return err
	}

	if upd.Status != nil {
		if m.Status == models.StatusCompleted && *upd.Status != models.StatusCompleted {
			return ErrCompletedTerminal
		}
		if *upd.Status == models.StatusCompleted {
			homeScore := upd.HomeScore
			if homeScore == nil {
				homeScore = m.HomeScore
			}
			awayScore := upd.AwayScore
			if awayScore == nil {
				awayScore = m.AwayScore
			}
			if homeScore == nil || awayScore == nil {
				return ErrScoreRequired
			}
		}
	}

	if err := s.matchRepo.UpdateDetail(ctx, matchID, upd); err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return fmt.Errorf("failed to update match %d: %w", matchID, err)
	}

	s.broadcast(m.TournamentID, live.EventMatchUpdated, map[string]interface{}{"match_id": matchID})
	return nil
}

// GenerateFinalDay runs knockout generation then placement generation in
// sequence; both must complete for the command to report success. A second
// invocation while one is running is rejected.
func (s *scheduleService) GenerateFinalDay(ctx context.Context, tournamentID int, date time.Time, startTime string) error {
	if _, err := time.Parse("15:04", startTime); err != nil {
		return ErrInvalidStartTime
	}

	key := "generate:" + strconv.Itoa(tournamentID)
	if !s.begin(key) {
		return ErrGenerationInFlight
	}
	defer s.end(key)

	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}

	if err := s.generateKnockoutSchedule(ctx, tournamentID, date, startTime); err != nil {
		return err
	}
	if err := s.generatePlacementMatches(ctx, tournamentID, date, startTime); err != nil {
		return err
	}

	s.logger.Info("final-day schedule generated",
		slog.Int("tournament_id", tournamentID),
		slog.String("date", date.Format("2006-01-02")))
	s.broadcast(tournamentID, live.EventScheduleGenerated, map[string]interface{}{
		"date": date.Format("2006-01-02"),
	})
	return nil
}

func (s *scheduleService) generateKnockoutSchedule(ctx context.Context, tournamentID int, date time.Time, startTime string) error {
	finalsVenue, err := s.venueRepo.GetFinalsVenue(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrFinalsVenueNotFound) {
			return ErrFinalsVenueMissing
		}
		return fmt.Errorf("failed to load finals venue for tournament %d: %w", tournamentID, err)
	}

	teams, err := s.teamRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to list teams for tournament %d: %w", tournamentID, err)
	}

	matches, err := schedule.GenerateKnockout(schedule.KnockoutParams{
		TournamentID: tournamentID,
		Venue:        finalsVenue,
		Date:         date,
		StartTime:    startTime,
		Interval:     knockoutInterval,
		Qualifiers:   teams,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotEnoughQualified, err)
	}

	return s.replaceMatches(ctx, tournamentID, date, knockoutStages, matches)
}

func (s *scheduleService) generatePlacementMatches(ctx context.Context, tournamentID int, date time.Time, startTime string) error {
	venues, err := s.venueRepo.ListFinalDay(ctx, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to list final-day venues for tournament %d: %w", tournamentID, err)
	}
	placementVenues := make([]*models.Venue, 0, len(venues))
	for _, v := range venues {
		if !v.IsFinalsVenue {
			placementVenues = append(placementVenues, v)
		}
	}
	if len(placementVenues) == 0 {
		return ErrNoPlacementVenues
	}

	teams, err := s.teamRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to list teams for tournament %d: %w", tournamentID, err)
	}

	matches, err := schedule.GeneratePlacement(schedule.PlacementParams{
		TournamentID: tournamentID,
		Date:         date,
		StartTime:    startTime,
		Interval:     placementInterval,
		Venues:       placementVenues,
		Groups:       placementGroups(teams),
	})
	if err != nil {
		return fmt.Errorf("failed to generate placement matches: %w", err)
	}

	return s.replaceMatches(ctx, tournamentID, date, []models.MatchStage{models.StageTraining}, matches)
}

// replaceMatches deletes the stage's existing matches for the date and
// inserts the regenerated ones, atomically.
func (s *scheduleService) replaceMatches(ctx context.Context, tournamentID int, date time.Time, stages []models.MatchStage, matches []*models.Match) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin generation transaction: %w", err)
	}
	defer tx.Rollback()

	deleted, err := s.matchRepo.DeleteByDateStages(ctx, tx, tournamentID, date, stages)
	if err != nil {
		return err
	}
	if err := s.matchRepo.CreateBatch(ctx, tx, matches); err != nil {
		return fmt.Errorf("failed to insert generated matches: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit generation transaction: %w", err)
	}

	s.logger.Info("matches regenerated",
		slog.Int("tournament_id", tournamentID),
		slog.Int64("deleted", deleted),
		slog.Int("created", len(matches)))
	return nil
}

// ReconcileBracket writes each completed semifinal's loser into the
// third-place match and winner into the final, in one transaction. There is
// no local precondition: semifinals that are not completed (or are drawn)
// simply leave their dependent slots untouched. Re-entry while a
// reconciliation is running is rejected.
func (s *scheduleService) ReconcileBracket(ctx context.Context, tournamentID int) error {
	key := "reconcile:" + strconv.Itoa(tournamentID)
	if !s.begin(key) {
		return ErrReconcileInFlight
	}
	defer s.end(key)

	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}
	date := tournament.FinalDay

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reconciliation transaction: %w", err)
	}
	defer tx.Rollback()

	semifinals, err := s.matchRepo.ListByStage(ctx, tx, tournamentID, date, models.StageSemifinal)
	if err != nil {
		return err
	}
	thirdPlace, err := s.firstByStage(ctx, tx, tournamentID, date, models.StageThirdPlace)
	if err != nil {
		return err
	}
	final, err := s.firstByStage(ctx, tx, tournamentID, date, models.StageFinal)
	if err != nil {
		return err
	}

	applied := 0
	for i, sf := range semifinals {
		if i >= 2 {
			break
		}
		winner, loser := semifinalOutcome(sf)
		if winner == nil || loser == nil {
			continue
		}

		// Semifinal 1 feeds the home slots, semifinal 2 the away slots.
		side := models.SideHome
		if i == 1 {
			side = models.SideAway
		}

		if thirdPlace != nil {
			if err := s.writeBracketSlot(ctx, tx, thirdPlace, side, loser); err != nil {
				return err
			}
		}
		if final != nil {
			if err := s.writeBracketSlot(ctx, tx, final, side, winner); err != nil {
				return err
			}
		}
		applied++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reconciliation transaction: %w", err)
	}

	s.logger.Info("bracket reconciled",
		slog.Int("tournament_id", tournamentID),
		slog.Int("semifinals_applied", applied))
	s.broadcast(tournamentID, live.EventBracketReconciled, map[string]interface{}{
		"semifinals_applied": applied,
	})
	return nil
}

func (s *scheduleService) writeBracketSlot(ctx context.Context, tx repositories.SQLExecutor, m *models.Match, side models.Side, team *models.TeamSlot) error {
	slot := m.Slot(side)
	slot.TeamID = team.TeamID
	slot.DisplayName = team.DisplayName
	if err := s.matchRepo.UpdateSlot(ctx, tx, m.ID, side, slot); err != nil {
		return fmt.Errorf("failed to write bracket slot of match %d: %w", m.ID, err)
	}
	return nil
}

func (s *scheduleService) firstByStage(ctx context.Context, tx repositories.SQLExecutor, tournamentID int, date time.Time, stage models.MatchStage) (*models.Match, error) {
	matches, err := s.matchRepo.ListByStage(ctx, tx, tournamentID, date, stage)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return matches[0], nil
}

// semifinalOutcome determines the winner and loser slots of a completed
// semifinal. Draws cannot happen in a knockout match that was recorded
// properly; a drawn score is treated as undetermined and skipped.
func semifinalOutcome(sf *models.Match) (winner, loser *models.TeamSlot) {
	if sf.Status != models.StatusCompleted || sf.HomeScore == nil || sf.AwayScore == nil {
		return nil, nil
	}
	switch {
	case *sf.HomeScore > *sf.AwayScore:
		return &sf.Home, &sf.Away
	case *sf.AwayScore > *sf.HomeScore:
		return &sf.Away, &sf.Home
	default:
		return nil, nil
	}
}

func placementGroups(teams []*models.Team) []schedule.PlacementGroup {
	byLabel := make(map[string]*schedule.PlacementGroup)
	order := make([]string, 0)
	for _, t := range teams {
		if t.QualifierRank != nil || t.PlacementGroup == nil {
			continue
		}
		label := *t.PlacementGroup
		group, ok := byLabel[label]
		if !ok {
			group = &schedule.PlacementGroup{Label: label}
			byLabel[label] = group
			order = append(order, label)
		}
		group.Teams = append(group.Teams, t)
	}

	groups := make([]schedule.PlacementGroup, 0, len(order))
	for _, label := range order {
		groups = append(groups, *byLabel[label])
	}
	return groups
}

func (s *scheduleService) getMatch(ctx context.Context, matchID int) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to load match %d: %w", matchID, err)
	}
	return m, nil
}

func (s *scheduleService) broadcast(tournamentID int, eventType string, payload interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToRoom(live.RoomID(strconv.Itoa(tournamentID)), eventType, payload)
}

func (s *scheduleService) begin(key string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if s.inflight[key] {
		return false
	}
	s.inflight[key] = true
	return true
}

func (s *scheduleService) end(key string) {
	s.inflightMu.Lock()
	delete(s.inflight, key)
	s.inflightMu.Unlock()
}
