package payment

import (
	"context"

	"github.com/stripe/stripe-go/v76"
	"github.com/trailhead/tour-bookings/internal/domain"
)

// Method discriminators accepted on the checkout-session endpoint.
const (
	MethodStripe = "stripe"
	MethodChapa  = "chapa"
)

// CheckoutParams is everything a backend needs to open a checkout for
// one tour purchase. The tour id rides along as a correlation field so
// the completion webhook can be resolved back to a tour.
type CheckoutParams struct {
	Tour       *domain.Tour
	UserEmail  string
	UserName   string
	SuccessURL string
	CancelURL  string
	ImageURL   string
}

// CheckoutResult is the closed set of shapes a backend can hand back to
// the client. Callers type-switch instead of probing fields.
type CheckoutResult interface {
	checkoutResult()
}

// ClientSession is completed client-side with the provider's redirect SDK.
type ClientSession struct {
	Session *stripe.CheckoutSession
}

// Redirect sends the client straight to a hosted checkout page.
type Redirect struct {
	URL string
}

func (ClientSession) checkoutResult() {}
func (Redirect) checkoutResult()      {}

// Provider is one payment backend. Each backend has its own request and
// response shapes; the uniform contract is "give the client something
// to finish the payment with".
type Provider interface {
	Name() string
	CreateCheckout(ctx context.Context, p CheckoutParams) (CheckoutResult, error)
}

// SettledAmountFetcher returns the amount actually charged for a
// completed session, in currency units. Only available after
// completion, and authoritative over any client-supplied price.
type SettledAmountFetcher interface {
	SettledAmount(ctx context.Context, sessionID string) (float64, error)
}

// CompletedCheckout is the reconciler's view of a checkout session at
// completion time, as delivered by the provider webhook.
type CompletedCheckout struct {
	SessionID     string
	TourRef       string
	CustomerEmail string
}
