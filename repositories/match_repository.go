package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/urawa-cup/tournament-admin/models"
)

var (
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchTournamentInvalid = errors.New("match tournament conflict or invalid")
	ErrMatchTeamInvalid       = errors.New("match team conflict or invalid")
	ErrMatchVenueInvalid      = errors.New("match venue conflict or invalid")
)

// MatchDetailUpdate carries the editable match fields. Nil pointers mean
// "leave unchanged"; Status/MatchOrder zero values likewise.
type MatchDetailUpdate struct {
	KickoffTime *string
	MatchOrder  *int
	Status      *models.MatchStatus
	HomeScore   *int
	AwayScore   *int
	RefereeMain *string
	RefereeAsst *string
	Notes       *string
}

type MatchRepository interface {
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByDate(ctx context.Context, tournamentID int, date time.Time) ([]*models.Match, error)
	ListByStage(ctx context.Context, exec SQLExecutor, tournamentID int, date time.Time, stage models.MatchStage) ([]*models.Match, error)
	CreateBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error
	DeleteByDateStages(ctx context.Context, exec SQLExecutor, tournamentID int, date time.Time, stages []models.MatchStage) (int64, error)
	UpdateSlotTeam(ctx context.Context, exec SQLExecutor, matchID int, side models.Side, teamID *int) error
	UpdateSlot(ctx context.Context, exec SQLExecutor, matchID int, side models.Side, slot models.TeamSlot) error
	UpdateTeams(ctx context.Context, exec SQLExecutor, matchID int, homeTeamID, awayTeamID *int) error
	UpdateDetail(ctx context.Context, matchID int, upd MatchDetailUpdate) error
	FindLastMeeting(ctx context.Context, team1ID, team2ID int) (*models.Match, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

// matchColumns is the shared select list. Slot display names fall back from
// the joined team's short name to its full name to the stored placeholder
// ("Winner SF1" etc. for bracket-derived slots).
const matchColumns = `
	m.id, m.tournament_id, m.stage, m.venue_id, m.match_date, m.match_order, m.kickoff_time,
	m.home_team_id, COALESCE(ht.short_name, ht.name, m.home_display_name, ''), m.home_seed, m.home_slot_type,
	m.away_team_id, COALESCE(at.short_name, at.name, m.away_display_name, ''), m.away_seed, m.away_slot_type,
	m.status, m.home_score, m.away_score, m.referee_main, m.referee_assistant, m.notes, m.created_at,
	v.id, v.name`

const matchJoins = `
	FROM matches m
	LEFT JOIN teams ht ON ht.id = m.home_team_id
	LEFT JOIN teams at ON at.id = m.away_team_id
	LEFT JOIN venues v ON v.id = m.venue_id`

func scanMatch(scanner interface{ Scan(dest ...interface{}) error }) (*models.Match, error) {
	var m models.Match
	var venueID sql.NullInt64
	var venueName sql.NullString
	err := scanner.Scan(
		&m.ID, &m.TournamentID, &m.Stage, &m.VenueID, &m.MatchDate, &m.MatchOrder, &m.KickoffTime,
		&m.Home.TeamID, &m.Home.DisplayName, &m.Home.Seed, &m.Home.Type,
		&m.Away.TeamID, &m.Away.DisplayName, &m.Away.Seed, &m.Away.Type,
		&m.Status, &m.HomeScore, &m.AwayScore, &m.RefereeMain, &m.RefereeAsst, &m.Notes, &m.CreatedAt,
		&venueID, &venueName,
	)
	if err != nil {
		return nil, err
	}
	if venueID.Valid {
		m.Venue = &models.Venue{ID: int(venueID.Int64), Name: venueName.String, TournamentID: m.TournamentID}
	}
	return &m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT` + matchColumns + matchJoins + ` WHERE m.id = $1`

	match, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match by id %d: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) ListByDate(ctx context.Context, tournamentID int, date time.Time) ([]*models.Match, error) {
	query := `SELECT` + matchColumns + matchJoins + `
	WHERE m.tournament_id = $1 AND m.match_date = $2
	ORDER BY m.venue_id ASC, m.match_order ASC, m.id ASC`

	return r.queryMatches(ctx, r.db, query, tournamentID, date)
}

func (r *postgresMatchRepository) ListByStage(ctx context.Context, exec SQLExecutor, tournamentID int, date time.Time, stage models.MatchStage) ([]*models.Match, error) {
	if exec == nil {
		exec = r.db
	}
	query := `SELECT` + matchColumns + matchJoins + `
	WHERE m.tournament_id = $1 AND m.match_date = $2 AND m.stage = $3
	ORDER BY m.match_order ASC, m.id ASC`

	return r.queryMatches(ctx, exec, query, tournamentID, date, string(stage))
}

func (r *postgresMatchRepository) queryMatches(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, match)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) CreateBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error {
	query := `
		INSERT INTO matches
			(tournament_id, stage, venue_id, match_date, match_order, kickoff_time,
			 home_team_id, home_display_name, home_seed, home_slot_type,
			 away_team_id, away_display_name, away_seed, away_slot_type,
			 status, referee_main, referee_assistant, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, created_at`

	for _, m := range matches {
		err := exec.QueryRowContext(ctx, query,
			m.TournamentID,
			m.Stage,
			m.VenueID,
			m.MatchDate,
			m.MatchOrder,
			m.KickoffTime,
			m.Home.TeamID,
			m.Home.DisplayName,
			m.Home.Seed,
			m.Home.Type,
			m.Away.TeamID,
			m.Away.DisplayName,
			m.Away.Seed,
			m.Away.Type,
			m.Status,
			m.RefereeMain,
			m.RefereeAsst,
			m.Notes,
		).Scan(&m.ID, &m.CreatedAt)
		if err != nil {
			return r.handleMatchError(err)
		}
	}
	return nil
}

func (r *postgresMatchRepository) DeleteByDateStages(ctx context.Context, exec SQLExecutor, tournamentID int, date time.Time, stages []models.MatchStage) (int64, error) {
	stageNames := make([]string, len(stages))
	for i, s := range stages {
		stageNames[i] = string(s)
	}
	query := `DELETE FROM matches WHERE tournament_id = $1 AND match_date = $2 AND stage = ANY($3)`
	result, err := exec.ExecContext(ctx, query, tournamentID, date, pq.Array(stageNames))
	if err != nil {
		return 0, fmt.Errorf("DeleteByDateStages: failed to delete matches for tournament %d: %w", tournamentID, err)
	}
	return result.RowsAffected()
}

func (r *postgresMatchRepository) UpdateSlotTeam(ctx context.Context, exec SQLExecutor, matchID int, side models.Side, teamID *int) error {
	column := "home_team_id"
	if side == models.SideAway {
		column = "away_team_id"
	}
	query := `UPDATE matches SET ` + column + ` = $1 WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, teamID, matchID)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateSlot(ctx context.Context, exec SQLExecutor, matchID int, side models.Side, slot models.TeamSlot) error {
	prefix := "home"
	if side == models.SideAway {
		prefix = "away"
	}
	query := fmt.Sprintf(
		`UPDATE matches SET %[1]s_team_id = $1, %[1]s_display_name = $2, %[1]s_seed = $3, %[1]s_slot_type = $4 WHERE id = $5`,
		prefix,
	)
	result, err := exec.ExecContext(ctx, query, slot.TeamID, slot.DisplayName, slot.Seed, slot.Type, matchID)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateTeams(ctx context.Context, exec SQLExecutor, matchID int, homeTeamID, awayTeamID *int) error {
	query := `UPDATE matches SET home_team_id = $1, away_team_id = $2 WHERE id = $3`
	result, err := exec.ExecContext(ctx, query, homeTeamID, awayTeamID, matchID)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateDetail(ctx context.Context, matchID int, upd MatchDetailUpdate) error {
	var queryBuilder strings.Builder
	queryBuilder.WriteString("UPDATE matches SET ")

	args := make([]interface{}, 0, 9)
	set := func(column string, value interface{}) {
		if len(args) > 0 {
			queryBuilder.WriteString(", ")
		}
		args = append(args, value)
		queryBuilder.WriteString(column)
		queryBuilder.WriteString(" = $")
		queryBuilder.WriteString(strconv.Itoa(len(args)))
	}

	if upd.KickoffTime != nil {
		set("kickoff_time", *upd.KickoffTime)
	}
	if upd.MatchOrder != nil {
		set("match_order", *upd.MatchOrder)
	}
	if upd.Status != nil {
		set("status", *upd.Status)
	}
	if upd.HomeScore != nil {
		set("home_score", *upd.HomeScore)
	}
	if upd.AwayScore != nil {
		set("away_score", *upd.AwayScore)
	}
	if upd.RefereeMain != nil {
		set("referee_main", *upd.RefereeMain)
	}
	if upd.RefereeAsst != nil {
		set("referee_assistant", *upd.RefereeAsst)
	}
	if upd.Notes != nil {
		set("notes", *upd.Notes)
	}

	if len(args) == 0 {
		return nil
	}

	args = append(args, matchID)
	queryBuilder.WriteString(" WHERE id = $")
	queryBuilder.WriteString(strconv.Itoa(len(args)))

	result, err := r.db.ExecContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

// FindLastMeeting returns the most recent completed match between the two
// teams in either home/away orientation, or nil when they have not met.
func (r *postgresMatchRepository) FindLastMeeting(ctx context.Context, team1ID, team2ID int) (*models.Match, error) {
	query := `SELECT` + matchColumns + matchJoins + `
	WHERE m.status = 'completed'
	  AND ((m.home_team_id = $1 AND m.away_team_id = $2) OR (m.home_team_id = $2 AND m.away_team_id = $1))
	ORDER BY m.match_date DESC, m.match_order DESC
	LIMIT 1`

	match, err := scanMatch(r.db.QueryRowContext(ctx, query, team1ID, team2ID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan last meeting of teams %d and %d: %w", team1ID, team2ID, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "matches_tournament_id_fkey":
			return ErrMatchTournamentInvalid
		case "matches_home_team_id_fkey", "matches_away_team_id_fkey":
			return ErrMatchTeamInvalid
		case "matches_venue_id_fkey":
			return ErrMatchVenueInvalid
		}
	}
	return err
}
