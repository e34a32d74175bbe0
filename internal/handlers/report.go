package handlers

import (
	"net/http"

	"github.com/baymax-health/apiserver/internal/services"
	"github.com/baymax-health/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const reportNotFound = "Report not found"

// ReportHandler exposes stored adherence reports.
type ReportHandler struct {
	reportService *services.ReportService
}

func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func ReportRouter(r chi.Router, h *ReportHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Use(authMiddleware)
	r.Get("/", h.ListReports)
	r.Post("/", h.CreateReport)
	r.Get("/{reportID}", h.GetReport)
	r.Delete("/{reportID}", h.DeleteReport)
}

type ReportCreatedResponse struct {
	Key    string       `json:"key"`
	Report types.Report `json:"report"`
}

type ReportResponse struct {
	Report types.Report `json:"report"`
}

type ReportListResponse struct {
	Reports []string `json:"reports"`
}

func (h *ReportHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	key, report, err := h.reportService.Generate(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, reportNotFound, "failed to generate report")
		return
	}
	writeData(w, http.StatusCreated, ReportCreatedResponse{Key: key, Report: report})
}

func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	report, err := h.reportService.Get(r.Context(), userID, chi.URLParam(r, "reportID"))
	if err != nil {
		writeServiceError(w, r, err, reportNotFound, "failed to load report")
		return
	}
	writeData(w, http.StatusOK, ReportResponse{Report: report})
}

func (h *ReportHandler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.reportService.Delete(r.Context(), userID, chi.URLParam(r, "reportID")); err != nil {
		writeServiceError(w, r, err, reportNotFound, "failed to delete report")
		return
	}
	writeMessage(w, http.StatusOK, "Report deleted successfully")
}

func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	ids, err := h.reportService.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, reportNotFound, "failed to list reports")
		return
	}
	writeData(w, http.StatusOK, ReportListResponse{Reports: ids})
}
