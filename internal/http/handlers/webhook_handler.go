package handlers

import (
	"io"
	"net/http"

	"github.com/trailhead/tour-bookings/internal/http/response"
	"github.com/trailhead/tour-bookings/internal/payment/stripepay"
	"github.com/trailhead/tour-bookings/pkg/logger"
)

// Stripe caps event payloads well under this; anything bigger is not a
// webhook we want to buffer.
const maxWebhookBody = 1 << 16

// StripeWebhook is the provider-facing dispatch endpoint. The body must
// reach the verifier as the exact bytes received; decode nothing before
// the signature check. Delivery is at-least-once and retried on any
// non-2xx, so the only failure allowed to surface as a client error is
// an unverifiable signature. Everything else is acknowledged; a
// verified event that cannot be reconciled is logged and dropped to
// stop spurious redelivery.
func (h *Handlers) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(w, "Unable to read webhook body")
		return
	}

	event, err := stripepay.VerifyWebhook(body, r.Header.Get("Stripe-Signature"), h.config.Stripe.WebhookSecret)
	if err != nil {
		logger.WarnContext(r.Context(), "Webhook signature verification failed", "error", err)
		response.WriteError(w, http.StatusBadRequest, "Webhook signature verification failed", response.CodeUnauthorized)
		return
	}

	if event.Type == stripepay.EventCheckoutCompleted {
		co, err := stripepay.ParseCompletedCheckout(event)
		if err != nil {
			logger.ErrorContext(r.Context(), "Verified webhook carried malformed session payload",
				"error", err, "event_id", event.ID)
		} else if err := h.reconciler.ReconcileCheckout(r.Context(), co); err != nil {
			logger.ErrorContext(r.Context(), "Booking reconciliation failed",
				"error", err, "event_id", event.ID, "session_id", co.SessionID)
		}
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
