package services

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"sync"
	"time"

	"github.com/urawa-cup/tournament-admin/models"
	"github.com/urawa-cup/tournament-admin/repositories"
)

// stubDriver is a no-op database/sql driver so service tests can exercise the
// transaction plumbing (BeginTx/Commit/Rollback) while the repositories are
// hand-written mocks that never touch the connection.
type stubDriver struct{}

func (stubDriver) Open(name string) (driver.Conn, error) { return &stubConn{}, nil }

type stubConn struct{}

func (*stubConn) Prepare(query string) (driver.Stmt, error) { return nil, io.EOF }
func (*stubConn) Close() error                              { return nil }
func (*stubConn) Begin() (driver.Tx, error)                 { return stubTx{}, nil }

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

var (
	stubDBOnce sync.Once
	stubDB     *sql.DB
)

func testDB() *sql.DB {
	stubDBOnce.Do(func() {
		sql.Register("servicetest", stubDriver{})
		stubDB, _ = sql.Open("servicetest", "")
	})
	return stubDB
}

type slotTeamUpdate struct {
	matchID int
	side    models.Side
	teamID  *int
}

type slotUpdate struct {
	matchID int
	side    models.Side
	slot    models.TeamSlot
}

type mockMatchRepo struct {
	matches     map[int]*models.Match
	byDate      []*models.Match
	byStage     map[models.MatchStage][]*models.Match
	lastMeeting *models.Match

	listErr        error
	lastMeetingErr error
	slotTeamErr    error

	slotTeamUpdates []slotTeamUpdate
	slotUpdates     []slotUpdate
	detailUpdates   []repositories.MatchDetailUpdate
	created         []*models.Match
	deletedStages   [][]models.MatchStage
}

func (m *mockMatchRepo) GetByID(ctx context.Context, id int) (*models.Match, error) {
	match, ok := m.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return match, nil
}

func (m *mockMatchRepo) ListByDate(ctx context.Context, tournamentID int, date time.Time) ([]*models.Match, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.byDate, nil
}

func (m *mockMatchRepo) ListByStage(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, date time.Time, stage models.MatchStage) ([]*models.Match, error) {
	return m.byStage[stage], nil
}

func (m *mockMatchRepo) CreateBatch(ctx context.Context, exec repositories.SQLExecutor, matches []*models.Match) error {
	m.created = append(m.created, matches...)
	return nil
}

func (m *mockMatchRepo) DeleteByDateStages(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, date time.Time, stages []models.MatchStage) (int64, error) {
	m.deletedStages = append(m.deletedStages, stages)
	return 0, nil
}

func (m *mockMatchRepo) UpdateSlotTeam(ctx context.Context, exec repositories.SQLExecutor, matchID int, side models.Side, teamID *int) error {
	if m.slotTeamErr != nil {
		return m.slotTeamErr
	}
	m.slotTeamUpdates = append(m.slotTeamUpdates, slotTeamUpdate{matchID, side, teamID})
	return nil
}

func (m *mockMatchRepo) UpdateSlot(ctx context.Context, exec repositories.SQLExecutor, matchID int, side models.Side, slot models.TeamSlot) error {
	m.slotUpdates = append(m.slotUpdates, slotUpdate{matchID, side, slot})
	return nil
}

func (m *mockMatchRepo) UpdateTeams(ctx context.Context, exec repositories.SQLExecutor, matchID int, homeTeamID, awayTeamID *int) error {
	return nil
}

func (m *mockMatchRepo) UpdateDetail(ctx context.Context, matchID int, upd repositories.MatchDetailUpdate) error {
	m.detailUpdates = append(m.detailUpdates, upd)
	return nil
}

func (m *mockMatchRepo) FindLastMeeting(ctx context.Context, team1ID, team2ID int) (*models.Match, error) {
	if m.lastMeetingErr != nil {
		return nil, m.lastMeetingErr
	}
	return m.lastMeeting, nil
}

type mockTeamRepo struct {
	teams []*models.Team
}

func (m *mockTeamRepo) GetByID(ctx context.Context, id int) (*models.Team, error) {
	for _, t := range m.teams {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, repositories.ErrTeamNotFound
}

func (m *mockTeamRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Team, error) {
	return m.teams, nil
}

type mockVenueRepo struct {
	venues      []*models.Venue
	finalsVenue *models.Venue
}

func (m *mockVenueRepo) GetByID(ctx context.Context, id int) (*models.Venue, error) {
	for _, v := range m.venues {
		if v.ID == id {
			return v, nil
		}
	}
	return nil, repositories.ErrVenueNotFound
}

func (m *mockVenueRepo) ListFinalDay(ctx context.Context, tournamentID int) ([]*models.Venue, error) {
	return m.venues, nil
}

func (m *mockVenueRepo) GetFinalsVenue(ctx context.Context, tournamentID int) (*models.Venue, error) {
	if m.finalsVenue == nil {
		return nil, repositories.ErrFinalsVenueNotFound
	}
	return m.finalsVenue, nil
}

type mockTournamentRepo struct {
	tournament *models.Tournament

	// getGate, when set, blocks GetByID until released, signalling entry on
	// entered first. Used to hold a long-running command open while asserting
	// the in-flight guard.
	getGate chan struct{}
	entered chan struct{}
	err     error
}

func (m *mockTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	if m.getGate != nil {
		if m.entered != nil {
			m.entered <- struct{}{}
		}
		<-m.getGate
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.tournament == nil {
		return nil, repositories.ErrTournamentNotFound
	}
	return m.tournament, nil
}
