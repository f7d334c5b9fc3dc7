package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/urawa-cup/tournament-admin/models"
	"github.com/urawa-cup/tournament-admin/repositories"
	"github.com/urawa-cup/tournament-admin/schedule"
	"github.com/urawa-cup/tournament-admin/services"
)

type ScheduleHandler struct {
	scheduleService services.ScheduleService
}

func NewScheduleHandler(scheduleService services.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: scheduleService}
}

// GetFinalDayScheduleHandler returns the classified final-day view model.
func (h *ScheduleHandler) GetFinalDayScheduleHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	date, err := getDateFromQuery(r, "date")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.scheduleService.FinalDaySchedule(r.Context(), tournamentID, date)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"schedule": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GenerateFinalDayHandler runs the auto-generate command: knockout bracket
// first, then placement matches.
func (h *ScheduleHandler) GenerateFinalDayHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Date      string `json:"date"`
		StartTime string `json:"start_time"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	date, err := time.Parse("2006-01-02", input.Date)
	if err != nil {
		badRequestResponse(w, r, errors.New("date must be in YYYY-MM-DD format"))
		return
	}

	if err := h.scheduleService.GenerateFinalDay(r.Context(), tournamentID, date, input.StartTime); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "final-day schedule generated"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SwapTeamsHandler exchanges the occupants of two slots directly (used by
// clients that resolve their own drag gestures).
func (h *ScheduleHandler) SwapTeamsHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Match1ID int         `json:"match1_id"`
		Side1    models.Side `json:"side1"`
		Match2ID int         `json:"match2_id"`
		Side2    models.Side `json:"side2"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.scheduleService.SwapTeams(r.Context(), input.Match1ID, input.Side1, input.Match2ID, input.Side2); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "teams swapped"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CheckPlayedHandler answers whether two teams have already met.
func (h *ScheduleHandler) CheckPlayedHandler(w http.ResponseWriter, r *http.Request) {
	team1ID, err := strconv.Atoi(r.URL.Query().Get("team1_id"))
	if err != nil || team1ID < 1 {
		badRequestResponse(w, r, errors.New("invalid team1_id query parameter"))
		return
	}
	team2ID, err := strconv.Atoi(r.URL.Query().Get("team2_id"))
	if err != nil || team2ID < 1 {
		badRequestResponse(w, r, errors.New("invalid team2_id query parameter"))
		return
	}

	result, err := h.scheduleService.CheckTeamsPlayed(r.Context(), team1ID, team2ID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateMatchTeamsHandler sets both slots of a match from the edit form.
func (h *ScheduleHandler) UpdateMatchTeamsHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		HomeTeamID *int `json:"home_team_id"`
		AwayTeamID *int `json:"away_team_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.scheduleService.UpdateMatchTeams(r.Context(), matchID, input.HomeTeamID, input.AwayTeamID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "match teams updated"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateMatchDetailHandler edits match metadata and, when scores and a
// completed status arrive together, records the result.
func (h *ScheduleHandler) UpdateMatchDetailHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		KickoffTime *string             `json:"kickoff_time"`
		MatchOrder  *int                `json:"match_order"`
		Status      *models.MatchStatus `json:"status"`
		HomeScore   *int                `json:"home_score"`
		AwayScore   *int                `json:"away_score"`
		RefereeMain *string             `json:"referee_main"`
		RefereeAsst *string             `json:"referee_assistant"`
		Notes       *string             `json:"notes"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	upd := repositories.MatchDetailUpdate{
		KickoffTime: input.KickoffTime,
		MatchOrder:  input.MatchOrder,
		Status:      input.Status,
		HomeScore:   input.HomeScore,
		AwayScore:   input.AwayScore,
		RefereeMain: input.RefereeMain,
		RefereeAsst: input.RefereeAsst,
		Notes:       input.Notes,
	}

	if err := h.scheduleService.UpdateMatchDetail(r.Context(), matchID, upd); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "match updated"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ReconcileBracketHandler applies semifinal outcomes to the third-place
// match and final.
func (h *ScheduleHandler) ReconcileBracketHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.scheduleService.ReconcileBracket(r.Context(), tournamentID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "bracket reconciled"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Editor gesture endpoints.
//
// The drag/drop state machine lives server-side; thin clients report
// gesture events here. Ineligible gestures are ignored, not errors.

// EditorDragStartHandler begins a drag on a slot.
func (h *ScheduleHandler) EditorDragStartHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		MatchID int         `json:"match_id"`
		Side    models.Side `json:"side"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if !input.Side.Valid() {
		badRequestResponse(w, r, services.ErrInvalidSide)
		return
	}

	item, err := h.scheduleService.Editor(tournamentID).StartDrag(input.MatchID, input.Side)
	if err != nil {
		// Locked slots and unknown matches are not draggable; report the
		// refusal without treating it as a failure.
		if errors.Is(err, schedule.ErrSlotLocked) ||
			errors.Is(err, schedule.ErrMatchCompleted) ||
			errors.Is(err, schedule.ErrUnknownMatch) {
			refusal := jsonResponse{"started": false, "reason": err.Error()}
			if err := writeJSON(w, http.StatusOK, refusal, nil); err != nil {
				serverErrorResponse(w, r, err)
			}
			return
		}
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"started": true, "item": item}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// EditorDragCancelHandler aborts the active gesture.
func (h *ScheduleHandler) EditorDragCancelHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	h.scheduleService.Editor(tournamentID).CancelDrag()
	w.WriteHeader(http.StatusNoContent)
}

// EditorDropHandler releases the active item over a target slot.
func (h *ScheduleHandler) EditorDropHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		MatchID int         `json:"match_id"`
		Side    models.Side `json:"side"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if !input.Side.Valid() {
		badRequestResponse(w, r, services.ErrInvalidSide)
		return
	}

	result, err := h.scheduleService.Editor(tournamentID).Drop(r.Context(), schedule.DropTarget{
		MatchID: input.MatchID,
		Side:    input.Side,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// EditorConfirmHandler executes the swap held back by a played-conflict.
func (h *ScheduleHandler) EditorConfirmHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.scheduleService.Editor(tournamentID).Confirm(r.Context())
	if err != nil {
		if errors.Is(err, schedule.ErrNoPendingSwap) {
			badRequestResponse(w, r, err)
			return
		}
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// EditorCancelHandler discards the pending swap without mutating anything.
func (h *ScheduleHandler) EditorCancelHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.scheduleService.Editor(tournamentID).Cancel(); err != nil {
		if errors.Is(err, schedule.ErrNoPendingSwap) {
			badRequestResponse(w, r, err)
			return
		}
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
