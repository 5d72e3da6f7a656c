package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/trailhead/tour-bookings/internal/repo/postgres"
	"github.com/trailhead/tour-bookings/internal/service"
	"github.com/trailhead/tour-bookings/pkg/config"
	"github.com/trailhead/tour-bookings/pkg/events"
)

type Handlers struct {
	config      *config.Config
	checkout    service.CheckoutService
	reconciler  service.BookingReconciler
	tourRepo    postgres.TourRepository
	userRepo    postgres.UserRepository
	bookingRepo postgres.BookingRepository
	bus         events.Publisher
}

func New(
	cfg *config.Config,
	checkout service.CheckoutService,
	reconciler service.BookingReconciler,
	tourRepo postgres.TourRepository,
	userRepo postgres.UserRepository,
	bookingRepo postgres.BookingRepository,
	bus events.Publisher,
) *Handlers {
	return &Handlers{
		config:      cfg,
		checkout:    checkout,
		reconciler:  reconciler,
		tourRepo:    tourRepo,
		userRepo:    userRepo,
		bookingRepo: bookingRepo,
		bus:         bus,
	}
}

// Helper functions for common response patterns
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// Helper to parse pagination parameters
func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}
