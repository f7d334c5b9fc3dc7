package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/urawa-cup/tournament-admin/models"
	"github.com/urawa-cup/tournament-admin/repositories"
	"github.com/urawa-cup/tournament-admin/schedule"
	"github.com/urawa-cup/tournament-admin/services"
)

func intPtr(n int) *int { return &n }

type stubChecker struct{ result *models.PlayedResult }

func (s *stubChecker) CheckTeamsPlayed(ctx context.Context, team1ID, team2ID int) (*models.PlayedResult, error) {
	return s.result, nil
}

type stubSwapper struct{ calls int }

func (s *stubSwapper) SwapTeams(ctx context.Context, match1ID int, side1 models.Side, match2ID int, side2 models.Side) error {
	s.calls++
	return nil
}

// mockScheduleService satisfies services.ScheduleService with canned answers.
type mockScheduleService struct {
	view    *schedule.Classified
	played  *models.PlayedResult
	err     error
	editor  *schedule.Editor
	swapped int
}

func (m *mockScheduleService) FinalDaySchedule(ctx context.Context, tournamentID int, date time.Time) (*schedule.Classified, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.view, nil
}

func (m *mockScheduleService) GenerateFinalDay(ctx context.Context, tournamentID int, date time.Time, startTime string) error {
	return m.err
}

func (m *mockScheduleService) SwapTeams(ctx context.Context, match1ID int, side1 models.Side, match2ID int, side2 models.Side) error {
	if m.err != nil {
		return m.err
	}
	m.swapped++
	return nil
}

func (m *mockScheduleService) UpdateMatchTeams(ctx context.Context, matchID int, homeTeamID, awayTeamID *int) error {
	return m.err
}

func (m *mockScheduleService) UpdateMatchDetail(ctx context.Context, matchID int, upd repositories.MatchDetailUpdate) error {
	return m.err
}

func (m *mockScheduleService) CheckTeamsPlayed(ctx context.Context, team1ID, team2ID int) (*models.PlayedResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.played, nil
}

func (m *mockScheduleService) ReconcileBracket(ctx context.Context, tournamentID int) error {
	return m.err
}

func (m *mockScheduleService) Editor(tournamentID int) *schedule.Editor {
	return m.editor
}

func testRouter(svc services.ScheduleService) *chi.Mux {
	h := NewScheduleHandler(svc)
	r := chi.NewRouter()
	r.Route("/tournaments/{tournamentID}", func(r chi.Router) {
		r.Get("/final-day", h.GetFinalDayScheduleHandler)
		r.Post("/final-day/generate", h.GenerateFinalDayHandler)
		r.Post("/final-day/editor/drag-start", h.EditorDragStartHandler)
		r.Post("/final-day/editor/drop", h.EditorDropHandler)
		r.Post("/final-day/editor/confirm", h.EditorConfirmHandler)
	})
	r.Post("/matches/swap-teams", h.SwapTeamsHandler)
	r.Get("/matches/check-played", h.CheckPlayedHandler)
	return r
}

func editorWith(matches ...*models.Match) *schedule.Editor {
	e := schedule.NewEditor(&stubChecker{}, &stubSwapper{}, nil)
	e.Refresh(matches)
	return e
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestDragStartLockedSlotIsNotAnError(t *testing.T) {
	bracket := &models.Match{
		ID:     4,
		Status: models.StatusScheduled,
		Home:   models.TeamSlot{Type: models.SlotWinner, DisplayName: "Winner SF1"},
		Away:   models.TeamSlot{Type: models.SlotWinner, DisplayName: "Winner SF2"},
	}
	router := testRouter(&mockScheduleService{editor: editorWith(bracket)})

	rec := doRequest(t, router, http.MethodPost, "/tournaments/1/final-day/editor/drag-start",
		`{"match_id": 4, "side": "home"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Started bool   `json:"started"`
		Reason  string `json:"reason"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Started {
		t.Error("locked slot must not start a drag")
	}
	if body.Reason == "" {
		t.Error("refusal reason missing")
	}
}

func TestDragStartAndDrop(t *testing.T) {
	m1 := &models.Match{
		ID:     1,
		Status: models.StatusScheduled,
		Home:   models.TeamSlot{TeamID: intPtr(101), Type: models.SlotFixed, DisplayName: "Alpha"},
		Away:   models.TeamSlot{TeamID: intPtr(102), Type: models.SlotFixed, DisplayName: "Beta"},
	}
	m2 := &models.Match{
		ID:     2,
		Status: models.StatusScheduled,
		Home:   models.TeamSlot{TeamID: intPtr(103), Type: models.SlotFixed, DisplayName: "Gamma"},
		Away:   models.TeamSlot{TeamID: intPtr(104), Type: models.SlotFixed, DisplayName: "Delta"},
	}
	router := testRouter(&mockScheduleService{editor: editorWith(m1, m2)})

	rec := doRequest(t, router, http.MethodPost, "/tournaments/1/final-day/editor/drag-start",
		`{"match_id": 1, "side": "home"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("drag-start: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var started struct {
		Started bool `json:"started"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &started); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !started.Started {
		t.Fatal("expected the drag to start")
	}

	rec = doRequest(t, router, http.MethodPost, "/tournaments/1/final-day/editor/drop",
		`{"match_id": 2, "side": "away"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("drop: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result schedule.DropResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if result.Outcome != schedule.DropSwapped {
		t.Errorf("expected swapped outcome, got %s", result.Outcome)
	}
}

func TestConfirmWithoutPendingSwap(t *testing.T) {
	router := testRouter(&mockScheduleService{editor: editorWith()})

	rec := doRequest(t, router, http.MethodPost, "/tournaments/1/final-day/editor/confirm", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestDragStartInvalidSide(t *testing.T) {
	router := testRouter(&mockScheduleService{editor: editorWith()})

	rec := doRequest(t, router, http.MethodPost, "/tournaments/1/final-day/editor/drag-start",
		`{"match_id": 1, "side": "sideways"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSwapTeamsErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"slot locked", services.ErrSlotLocked, http.StatusBadRequest},
		{"match not found", services.ErrMatchNotFound, http.StatusNotFound},
		{"swap in flight", schedule.ErrSwapInFlight, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := testRouter(&mockScheduleService{err: tc.err})
			rec := doRequest(t, router, http.MethodPost, "/matches/swap-teams",
				`{"match1_id": 1, "side1": "home", "match2_id": 2, "side2": "away"}`)
			if rec.Code != tc.want {
				t.Errorf("got %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestSwapTeamsRejectsUnknownFields(t *testing.T) {
	svc := &mockScheduleService{}
	router := testRouter(svc)

	rec := doRequest(t, router, http.MethodPost, "/matches/swap-teams",
		`{"match1_id": 1, "side1": "home", "match2_id": 2, "side2": "away", "force": true}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if svc.swapped != 0 {
		t.Error("service must not be called for a malformed request")
	}
}

func TestGenerateInFlightMapsToConflict(t *testing.T) {
	router := testRouter(&mockScheduleService{err: services.ErrGenerationInFlight})

	rec := doRequest(t, router, http.MethodPost, "/tournaments/1/final-day/generate",
		`{"date": "2027-03-28", "start_time": "09:30"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestCheckPlayedQueryValidation(t *testing.T) {
	router := testRouter(&mockScheduleService{played: &models.PlayedResult{Played: true}})

	rec := doRequest(t, router, http.MethodGet, "/matches/check-played?team1_id=1&team2_id=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var result models.PlayedResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !result.Played {
		t.Error("expected played=true passthrough")
	}

	rec = doRequest(t, router, http.MethodGet, "/matches/check-played?team1_id=abc&team2_id=2", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad team id, got %d", rec.Code)
	}
}

func TestGetFinalDayScheduleRequiresDate(t *testing.T) {
	router := testRouter(&mockScheduleService{view: &schedule.Classified{}})

	rec := doRequest(t, router, http.MethodGet, "/tournaments/1/final-day", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without a date, got %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/tournaments/1/final-day?date=2027-03-28", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}
