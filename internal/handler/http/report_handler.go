package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vasiliy-maslov/happy-baby-style/internal/report"
)

type ReportHandler struct {
	service report.Service
}

func NewReportHandler(service report.Service) *ReportHandler {
	return &ReportHandler{service: service}
}

func (h *ReportHandler) RegisterRoutes(router chi.Router) {
	router.Get("/reports/summary", h.handleSummary)
	router.Get("/reports/low-stock", h.handleLowStock)
}

func (h *ReportHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to build order summary")
		return
	}

	respondWithJSON(w, http.StatusOK, summary)
}

func (h *ReportHandler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	threshold, err := queryInt(r, "threshold", report.DefaultLowStockThreshold)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list low stock variants")
		return
	}

	variants, err := h.service.LowStock(r.Context(), threshold)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list low stock variants")
		return
	}

	respondWithJSON(w, http.StatusOK, variants)
}
