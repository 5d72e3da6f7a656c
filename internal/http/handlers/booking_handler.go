package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/trailhead/tour-bookings/internal/domain"
	mw "github.com/trailhead/tour-bookings/internal/http/middleware"
	"github.com/trailhead/tour-bookings/internal/http/response"
	"github.com/trailhead/tour-bookings/internal/payment"
	"github.com/trailhead/tour-bookings/pkg/logger"
)

// GetCheckoutSession opens a provider checkout for the authenticated
// user and one tour. The payment method query parameter selects the
// backend; the response shape depends on it (card flow returns the
// session for the redirect SDK, mobile-money flow returns a bare URL).
func (h *Handlers) GetCheckoutSession(w http.ResponseWriter, r *http.Request) {
	user := mw.UserFrom(r.Context())
	if user == nil {
		response.Unauthorized(w, "User not authenticated")
		return
	}

	tourID, err := strconv.ParseInt(chi.URLParam(r, "tourId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid tour id")
		return
	}

	method := r.URL.Query().Get("paymentMethod")
	if method == "" {
		method = payment.MethodStripe
	}

	result, err := h.checkout.CreateSession(r.Context(), user, tourID, method)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTourNotFound):
			response.NotFound(w, "Tour not found")
		case errors.Is(err, domain.ErrUnknownPaymentMethod):
			response.BadRequest(w, "Invalid payment method")
		default:
			logger.ErrorContext(r.Context(), "Failed to create checkout session",
				"error", err, "tour_id", tourID, "method", method)
			response.BadGateway(w, "Failed to initialize payment")
		}
		return
	}

	switch res := result.(type) {
	case payment.ClientSession:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "success",
			"session": res.Session,
		})
	case payment.Redirect:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":      "success",
			"checkoutUrl": res.URL,
		})
	default:
		response.InternalError(w, "Unsupported checkout result")
	}
}

// ListMyBookings returns the authenticated user's bookings.
func (h *Handlers) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	user := mw.UserFrom(r.Context())
	if user == nil {
		response.Unauthorized(w, "User not authenticated")
		return
	}

	limit, offset := parsePagination(r)
	bookings, err := h.bookingRepo.ListByUserID(r.Context(), user.ID, limit, offset)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list bookings", "error", err, "user_id", user.ID)
		response.InternalError(w, "Failed to list bookings")
		return
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": bookings})
}

// CreateBooking is the admin path: bookings created here carry no
// checkout session and honor the caller-supplied paid flag.
func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req domain.BookingCreateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if req.TourID <= 0 || req.UserID <= 0 || req.Price < 0 {
		response.BadRequest(w, "tour_id, user_id and a non-negative price are required")
		return
	}

	tour, err := h.tourRepo.GetByID(r.Context(), req.TourID)
	if err != nil {
		response.InternalError(w, "Failed to load tour")
		return
	}
	if tour == nil {
		response.NotFound(w, "Tour not found")
		return
	}

	booking, err := h.bookingRepo.Create(r.Context(), &req)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to create booking", "error", err)
		response.InternalError(w, "Failed to create booking")
		return
	}

	writeJSON(w, http.StatusCreated, booking)
}
