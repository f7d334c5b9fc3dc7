package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/urawa-cup/tournament-admin/models"
)

var (
	ErrVenueNotFound       = errors.New("venue not found")
	ErrFinalsVenueNotFound = errors.New("finals venue not configured")
)

type VenueRepository interface {
	GetByID(ctx context.Context, id int) (*models.Venue, error)
	ListFinalDay(ctx context.Context, tournamentID int) ([]*models.Venue, error)
	GetFinalsVenue(ctx context.Context, tournamentID int) (*models.Venue, error)
}

type postgresVenueRepository struct {
	db *sql.DB
}

func NewPostgresVenueRepository(db *sql.DB) VenueRepository {
	return &postgresVenueRepository{db: db}
}

const venueColumns = `id, tournament_id, name, address, for_final_day, is_finals_venue, created_at`

func (r *postgresVenueRepository) GetByID(ctx context.Context, id int) (*models.Venue, error) {
	query := `SELECT ` + venueColumns + ` FROM venues WHERE id = $1`
	return r.scanVenue(r.db.QueryRowContext(ctx, query, id), ErrVenueNotFound)
}

// ListFinalDay returns the venues that host final-day matches, finals venue
// first so generators can peel it off the front.
func (r *postgresVenueRepository) ListFinalDay(ctx context.Context, tournamentID int) ([]*models.Venue, error) {
	query := `SELECT ` + venueColumns + `
		FROM venues
		WHERE tournament_id = $1 AND for_final_day = TRUE
		ORDER BY is_finals_venue DESC, name ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query final-day venues for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	venues := make([]*models.Venue, 0)
	for rows.Next() {
		var v models.Venue
		if scanErr := rows.Scan(&v.ID, &v.TournamentID, &v.Name, &v.Address, &v.ForFinalDay, &v.IsFinalsVenue, &v.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan venue row: %w", scanErr)
		}
		venues = append(venues, &v)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during venue rows iteration: %w", err)
	}
	return venues, nil
}

func (r *postgresVenueRepository) GetFinalsVenue(ctx context.Context, tournamentID int) (*models.Venue, error) {
	query := `SELECT ` + venueColumns + `
		FROM venues
		WHERE tournament_id = $1 AND is_finals_venue = TRUE
		ORDER BY id ASC
		LIMIT 1`
	return r.scanVenue(r.db.QueryRowContext(ctx, query, tournamentID), ErrFinalsVenueNotFound)
}

func (r *postgresVenueRepository) scanVenue(row *sql.Row, notFound error) (*models.Venue, error) {
	var v models.Venue
	err := row.Scan(&v.ID, &v.TournamentID, &v.Name, &v.Address, &v.ForFinalDay, &v.IsFinalsVenue, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound
		}
		return nil, fmt.Errorf("failed to scan venue: %w", err)
	}
	return &v, nil
}
