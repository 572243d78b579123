package handler

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"interviewai/internal/service"
)

// ReportHandler handles report endpoints
type ReportHandler struct {
	reportSvc *service.ReportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportSvc *service.ReportService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

// BySession handles GET /api/report/session/{sessionId}.
// 200 with the full report once generation finished, 202 while it is still
// pending or processing.
func (h *ReportHandler) BySession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	lookup, err := h.reportSvc.BySession(r.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			writeError(w, http.StatusNotFound, "session not found")
		case errors.Is(err, service.ErrSessionNotFinished):
			writeError(w, http.StatusBadRequest, "session has not finished")
		case errors.Is(err, service.ErrReportNotFound):
			writeError(w, http.StatusNotFound, "report not found")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if !lookup.Ready {
		writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"reportId": lookup.Report.ID,
			"status":   lookup.Report.Status,
		})
		return
	}
	writeJSON(w, http.StatusOK, lookup.Report)
}

// Status handles GET /api/report/status/{reportId}
func (h *ReportHandler) Status(w http.ResponseWriter, r *http.Request) {
	reportID := mux.Vars(r)["reportId"]

	lookup, err := h.reportSvc.Status(r.Context(), reportID)
	if err != nil {
		if errors.Is(err, service.ErrReportNotFound) {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if !lookup.Ready {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"reportId": lookup.Report.ID,
			"status":   lookup.Report.Status,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": lookup.Report.Status,
		"data":   lookup.Report,
	})
}
