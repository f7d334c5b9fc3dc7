package handlers

import (
	"fmt"
	"net/http"

	"github.com/urawa-cup/tournament-admin/services"
)

type ExportHandler struct {
	scheduleService services.ScheduleService
	exportService   services.ExportService
}

func NewExportHandler(scheduleService services.ScheduleService, exportService services.ExportService) *ExportHandler {
	return &ExportHandler{scheduleService: scheduleService, exportService: exportService}
}

// ExportCSVHandler streams the final-day schedule as CSV. With ?upload=true
// the artifact is also persisted to object storage and its public URL
// returned instead of the file body.
func (h *ExportHandler) ExportCSVHandler(w http.ResponseWriter, r *http.Request) {
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

	csvData, err := h.exportService.BuildCSV(view)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	if r.URL.Query().Get("upload") == "true" {
		result, err := h.exportService.UploadCSV(r.Context(), tournamentID, date, csvData)
		if err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
		if err := writeJSON(w, http.StatusOK, jsonResponse{"url": result.Location, "key": result.Key}, nil); err != nil {
			serverErrorResponse(w, r, err)
		}
		return
	}

	filename := fmt.Sprintf("final-day-%s.csv", date.Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(csvData)
}

// PrintScheduleHandler renders the print view of the schedule.
func (h *ExportHandler) PrintScheduleHandler(w http.ResponseWriter, r *http.Request) {
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

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(h.exportService.RenderPrint(view))
}
