package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/trailhead/tour-bookings/internal/domain"
	"github.com/trailhead/tour-bookings/internal/http/response"
	"github.com/trailhead/tour-bookings/pkg/logger"
)

func (h *Handlers) ListTours(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	tours, err := h.tourRepo.List(r.Context(), limit, offset)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list tours", "error", err)
		response.InternalError(w, "Failed to list tours")
		return
	}
	if tours == nil {
		tours = []domain.Tour{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"tours": tours})
}

func (h *Handlers) GetTour(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid tour id")
		return
	}

	tour, err := h.tourRepo.GetByID(r.Context(), id)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to load tour", "error", err, "tour_id", id)
		response.InternalError(w, "Failed to load tour")
		return
	}
	if tour == nil {
		response.NotFound(w, "Tour not found")
		return
	}

	writeJSON(w, http.StatusOK, tour)
}
