package service

import (
	"context"
	"fmt"

	"github.com/trailhead/tour-bookings/internal/domain"
	"github.com/trailhead/tour-bookings/internal/payment"
	"github.com/trailhead/tour-bookings/internal/repo/postgres"
)

// CheckoutService opens provider checkout sessions. Nothing is
// persisted locally here; bookings only ever come out of the
// reconciler once the provider confirms payment.
type CheckoutService interface {
	CreateSession(ctx context.Context, user *domain.User, tourID int64, method string) (payment.CheckoutResult, error)
}

type checkoutService struct {
	tourRepo  postgres.TourRepository
	providers map[string]payment.Provider
	baseURL   string
}

func NewCheckoutService(tourRepo postgres.TourRepository, baseURL string, providers ...payment.Provider) CheckoutService {
	byName := make(map[string]payment.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &checkoutService{
		tourRepo:  tourRepo,
		providers: byName,
		baseURL:   baseURL,
	}
}

func (s *checkoutService) CreateSession(ctx context.Context, user *domain.User, tourID int64, method string) (payment.CheckoutResult, error) {
	tour, err := s.tourRepo.GetByID(ctx, tourID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tour: %w", err)
	}
	if tour == nil {
		return nil, domain.ErrTourNotFound
	}

	provider, ok := s.providers[method]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownPaymentMethod, method)
	}

	params := payment.CheckoutParams{
		Tour:       tour,
		UserEmail:  user.Email,
		UserName:   user.Name,
		SuccessURL: s.baseURL + "/my-tours?alert=booking",
		CancelURL:  s.baseURL + "/tour/" + tour.Slug,
		ImageURL:   s.baseURL + "/" + tour.ImageCover,
	}

	result, err := provider.CreateCheckout(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s checkout failed: %w", provider.Name(), err)
	}
	return result, nil
}
