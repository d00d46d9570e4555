package reportshandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"hradmin/internal/domain/reports"
	"hradmin/internal/transport/http/api"
	"hradmin/internal/transport/http/middleware"
)

type Handler struct {
	Service *reports.Service
}

func NewHandler(service *reports.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Get("/permission-matrix", h.handlePermissionMatrix)
	})
}

func (h *Handler) handlePermissionMatrix(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	pdfBytes, err := h.Service.PermissionMatrixPDF(r.Context(), actor)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build permission matrix", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=permission-matrix.pdf")
	if _, err := w.Write(pdfBytes); err != nil {
		return
	}
}
