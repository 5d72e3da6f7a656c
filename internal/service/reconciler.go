package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/trailhead/tour-bookings/internal/domain"
	"github.com/trailhead/tour-bookings/internal/payment"
	"github.com/trailhead/tour-bookings/internal/platform/mailer"
	"github.com/trailhead/tour-bookings/internal/repo/postgres"
	"github.com/trailhead/tour-bookings/internal/utils"
	"github.com/trailhead/tour-bookings/pkg/events"
	"github.com/trailhead/tour-bookings/pkg/logger"
)

// BookingReconciler turns a provider-confirmed checkout into a durable
// booking, exactly once per session.
type BookingReconciler interface {
	ReconcileCheckout(ctx context.Context, co payment.CompletedCheckout) error
}

const (
	settledAmountAttempts = 3
	persistAttempts       = 2
)

type reconciler struct {
	userRepo    postgres.UserRepository
	bookingRepo postgres.BookingRepository
	amounts     payment.SettledAmountFetcher
	bus         events.Publisher
	mail        mailer.Service
	backoff     time.Duration
}

func NewReconciler(
	userRepo postgres.UserRepository,
	bookingRepo postgres.BookingRepository,
	amounts payment.SettledAmountFetcher,
	bus events.Publisher,
	mail mailer.Service,
) BookingReconciler {
	return &reconciler{
		userRepo:    userRepo,
		bookingRepo: bookingRepo,
		amounts:     amounts,
		bus:         bus,
		mail:        mail,
		backoff:     500 * time.Millisecond,
	}
}

// ReconcileCheckout resolves the session's opaque references into a
// tour and a user, fetches the settled amount from the provider, and
// persists a paid booking. Safe to call twice for the same session:
// the unique session-id constraint turns the second write into a no-op.
func (s *reconciler) ReconcileCheckout(ctx context.Context, co payment.CompletedCheckout) error {
	email := utils.NormalizeEmail(co.CustomerEmail)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to look up user %q: %w", email, err)
	}
	if user == nil {
		return fmt.Errorf("%w: %q (session %s)", domain.ErrUserNotResolved, email, co.SessionID)
	}

	// The session could only have been created for an existing tour, so
	// the correlation field is trusted as-is.
	tourID, err := strconv.ParseInt(co.TourRef, 10, 64)
	if err != nil {
		return fmt.Errorf("session %s carries bad tour reference %q: %w", co.SessionID, co.TourRef, err)
	}

	// The settled amount comes from a second provider round-trip, not
	// from the session payload: discounts and currency handling mean
	// the catalog price is not what was charged.
	price, err := s.settledAmount(ctx, co.SessionID)
	if err != nil {
		return fmt.Errorf("failed to fetch settled amount for session %s: %w", co.SessionID, err)
	}

	booking, created, err := s.persistBooking(ctx, tourID, user.ID, price, co.SessionID)
	if err != nil {
		return fmt.Errorf("failed to persist booking for session %s: %w", co.SessionID, err)
	}
	if !created {
		logger.InfoContext(ctx, "Checkout session already reconciled, skipping",
			"session_id", co.SessionID, "tour_id", tourID, "user_id", user.ID)
		return nil
	}

	logger.InfoContext(ctx, "Booking reconciled",
		"booking_id", booking.ID, "session_id", co.SessionID,
		"tour_id", tourID, "user_id", user.ID, "price", price)

	event := events.BookingConfirmedEvent{
		BookingID:       booking.ID,
		TourID:          booking.TourID,
		UserID:          booking.UserID,
		UserEmail:       user.Email,
		Price:           booking.Price,
		CheckoutSession: co.SessionID,
		ConfirmedAt:     booking.CreatedAt,
	}
	if err := s.bus.Publish(ctx, events.BookingConfirmed, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish booking confirmed event", "error", err, "booking_id", booking.ID)
	}

	if err := s.mail.SendBookingConfirmation(user.Email, user.Name, booking); err != nil {
		logger.ErrorContext(ctx, "Failed to send booking confirmation email", "error", err, "booking_id", booking.ID)
	}

	return nil
}

func (s *reconciler) settledAmount(ctx context.Context, sessionID string) (float64, error) {
	var lastErr error
	for attempt := 0; attempt < settledAmountAttempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, s.backoff*time.Duration(1<<(attempt-1))); err != nil {
				return 0, err
			}
		}

		price, err := s.amounts.SettledAmount(ctx, sessionID)
		if err == nil {
			return price, nil
		}
		lastErr = err
		if !errors.Is(err, domain.ErrProviderUnavailable) {
			return 0, err
		}
		logger.WarnContext(ctx, "Settled amount fetch failed, retrying",
			"session_id", sessionID, "attempt", attempt+1, "error", err)
	}
	return 0, lastErr
}

func (s *reconciler) persistBooking(ctx context.Context, tourID, userID int64, price float64, sessionID string) (*domain.Booking, bool, error) {
	var lastErr error
	for attempt := 0; attempt < persistAttempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, s.backoff); err != nil {
				return nil, false, err
			}
			logger.WarnContext(ctx, "Booking write failed, retrying",
				"session_id", sessionID, "error", lastErr)
		}

		booking, created, err := s.bookingRepo.CreateFromCheckout(ctx, tourID, userID, price, sessionID)
		if err == nil {
			return booking, created, nil
		}
		lastErr = err
	}
	return nil, false, lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
