package stripepay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/trailhead/tour-bookings/internal/domain"
	"github.com/trailhead/tour-bookings/internal/payment"
)

// EventCheckoutCompleted is the only event type that triggers booking
// reconciliation; everything else is acknowledged and dropped.
const EventCheckoutCompleted = "checkout.session.completed"

// Client wraps the Stripe SDK for the two round-trips this service
// makes: opening checkout sessions and fetching settled line items.
type Client struct {
	api      *client.API
	currency string
}

func New(secretKey, currency string) *Client {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Client{api: api, currency: currency}
}

func (c *Client) Name() string { return payment.MethodStripe }

// CreateCheckout opens a card checkout session. The tour id is stashed
// on the session as the client reference so the completion webhook can
// be tied back to a tour without local state.
func (c *Client) CreateCheckout(ctx context.Context, p payment.CheckoutParams) (payment.CheckoutResult, error) {
	params := &stripe.CheckoutSessionParams{
		Params:             stripe.Params{Context: ctx},
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(p.SuccessURL),
		CancelURL:          stripe.String(p.CancelURL),
		CustomerEmail:      stripe.String(p.UserEmail),
		ClientReferenceID:  stripe.String(fmt.Sprintf("%d", p.Tour.ID)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(c.currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(p.Tour.Name + " Tour"),
						Description: stripe.String(p.Tour.Summary),
						Images:      stripe.StringSlice([]string{p.ImageURL}),
					},
					UnitAmount: stripe.Int64(toCents(p.Tour.Price)),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}

	session, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, classify(err)
	}
	return payment.ClientSession{Session: session}, nil
}

// SettledAmount fetches the session's line items and returns the amount
// actually charged, in currency units. A second round-trip on purpose:
// the initial session carries the catalog price, not what was settled.
func (c *Client) SettledAmount(ctx context.Context, sessionID string) (float64, error) {
	params := &stripe.CheckoutSessionListLineItemsParams{
		Session: stripe.String(sessionID),
	}
	params.Context = ctx

	iter := c.api.CheckoutSessions.ListLineItems(params)
	for iter.Next() {
		li := iter.LineItem()
		return float64(li.AmountTotal) / 100, nil
	}
	if err := iter.Err(); err != nil {
		return 0, classify(err)
	}
	// A completed session always has line items; an empty list must not
	// be mistaken for a zero charge.
	return 0, fmt.Errorf("session %s has no line items", sessionID)
}

// VerifyWebhook authenticates a raw webhook payload against the shared
// secret and decodes the event. Pure: same bytes in, same result out.
// The payload must be the exact bytes received; any re-serialization
// breaks the HMAC. Comparison inside the SDK is constant-time. Only the
// signature gates acceptance: an account pinned to a different API
// version still sends correctly signed events, and rejecting those
// would put them into endless redelivery.
func VerifyWebhook(payload []byte, sigHeader, secret string) (stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", domain.ErrSignatureInvalid, err)
	}
	return event, nil
}

// ParseCompletedCheckout extracts the session snapshot from a verified
// checkout.session.completed event.
func ParseCompletedCheckout(event stripe.Event) (payment.CompletedCheckout, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return payment.CompletedCheckout{}, fmt.Errorf("failed to decode checkout session: %w", err)
	}
	if session.ID == "" {
		return payment.CompletedCheckout{}, errors.New("checkout session payload has no id")
	}
	return payment.CompletedCheckout{
		SessionID:     session.ID,
		TourRef:       session.ClientReferenceID,
		CustomerEmail: session.CustomerEmail,
	}, nil
}

func toCents(price float64) int64 {
	return int64(math.Round(price * 100))
}

// classify maps SDK failures onto the domain taxonomy: network errors
// and provider 5xx are transient and retryable, the rest are not.
func classify(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode >= 500 {
			return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
		}
		return err
	}
	// No structured error means the request never got a response.
	return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
}

var _ payment.Provider = (*Client)(nil)
var _ payment.SettledAmountFetcher = (*Client)(nil)
