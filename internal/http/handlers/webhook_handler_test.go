package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/trailhead/tour-bookings/internal/http/handlers"
	"github.com/trailhead/tour-bookings/internal/payment"
	"github.com/trailhead/tour-bookings/pkg/config"
)

const webhookSecret = "whsec_test_secret"

type fakeReconciler struct {
	calls []payment.CompletedCheckout
	err   error
}

func (f *fakeReconciler) ReconcileCheckout(_ context.Context, co payment.CompletedCheckout) error {
	f.calls = append(f.calls, co)
	return f.err
}

func webhookHandlers(rec *fakeReconciler) *handlers.Handlers {
	cfg := &config.Config{}
	cfg.Stripe.WebhookSecret = webhookSecret
	return handlers.New(cfg, nil, rec, nil, nil, nil, nil)
}

func signHeader(payload []byte, secret string) string {
	now := time.Now()
	sig := webhook.ComputeSignature(now, payload, secret)
	return fmt.Sprintf("t=%d,v1=%x", now.Unix(), sig)
}

func eventPayload(eventType, sessionID, tourRef, email string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_test_1",
		"object": "event",
		"type": %q,
		"data": {
			"object": {
				"id": %q,
				"object": "checkout.session",
				"client_reference_id": %q,
				"customer_email": %q
			}
		}
	}`, eventType, sessionID, tourRef, email))
}

func postWebhook(h *handlers.Handlers, payload []byte, sigHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook-checkout", bytes.NewReader(payload))
	if sigHeader != "" {
		req.Header.Set("Stripe-Signature", sigHeader)
	}
	rr := httptest.NewRecorder()
	h.StripeWebhook(rr, req)
	return rr
}

func TestStripeWebhookReconcilesCompletedCheckout(t *testing.T) {
	rec := &fakeReconciler{}
	h := webhookHandlers(rec)

	payload := eventPayload("checkout.session.completed", "cs_test_1", "7", "a@x.com")
	rr := postWebhook(h, payload, signHeader(payload, webhookSecret))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var ack map[string]bool
	if err := json.Unmarshal(rr.Body.Bytes(), &ack); err != nil {
		t.Fatalf("invalid ack body: %v", err)
	}
	if !ack["received"] {
		t.Fatalf("expected received ack, got %s", rr.Body.String())
	}

	if len(rec.calls) != 1 {
		t.Fatalf("expected 1 reconcile call, got %d", len(rec.calls))
	}
	co := rec.calls[0]
	if co.SessionID != "cs_test_1" || co.TourRef != "7" || co.CustomerEmail != "a@x.com" {
		t.Fatalf("unexpected checkout passed to reconciler: %+v", co)
	}
}

func TestStripeWebhookRejectsTamperedSignature(t *testing.T) {
	rec := &fakeReconciler{}
	h := webhookHandlers(rec)

	payload := eventPayload("checkout.session.completed", "cs_test_1", "7", "a@x.com")
	header := signHeader(payload, webhookSecret)

	tampered := append([]byte(nil), payload...)
	tampered[len(tampered)-2] ^= 0x01

	rr := postWebhook(h, tampered, header)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if len(rec.calls) != 0 {
		t.Fatal("tampered payload must never reach the reconciler")
	}
}

func TestStripeWebhookRejectsMissingSignature(t *testing.T) {
	rec := &fakeReconciler{}
	h := webhookHandlers(rec)

	payload := eventPayload("checkout.session.completed", "cs_test_1", "7", "a@x.com")
	rr := postWebhook(h, payload, "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if len(rec.calls) != 0 {
		t.Fatal("unsigned payload must never reach the reconciler")
	}
}

func TestStripeWebhookIgnoresOtherEventTypes(t *testing.T) {
	rec := &fakeReconciler{}
	h := webhookHandlers(rec)

	payload := eventPayload("payment_intent.succeeded", "pi_test_1", "", "")
	rr := postWebhook(h, payload, signHeader(payload, webhookSecret))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected uninteresting events to be acknowledged, got %d", rr.Code)
	}
	if len(rec.calls) != 0 {
		t.Fatalf("expected no reconcile call, got %d", len(rec.calls))
	}
}

func TestStripeWebhookAcksVerifiedButMalformedSession(t *testing.T) {
	rec := &fakeReconciler{}
	h := webhookHandlers(rec)

	// Verified event whose session payload has no id. Redelivery would
	// fail the same way, so it is acknowledged and dropped.
	payload := []byte(`{
		"id": "evt_test_2",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {"object": "checkout.session"}}
	}`)
	rr := postWebhook(h, payload, signHeader(payload, webhookSecret))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if len(rec.calls) != 0 {
		t.Fatal("malformed session must not reach the reconciler")
	}
}

func TestStripeWebhookAcksReconcilerFailure(t *testing.T) {
	rec := &fakeReconciler{err: errors.New("store down")}
	h := webhookHandlers(rec)

	payload := eventPayload("checkout.session.completed", "cs_test_1", "7", "a@x.com")
	rr := postWebhook(h, payload, signHeader(payload, webhookSecret))

	// Reconciliation failures are logged, not surfaced; a non-2xx here
	// would make the provider redeliver forever.
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if len(rec.calls) != 1 {
		t.Fatalf("expected 1 reconcile call, got %d", len(rec.calls))
	}
}

func TestStripeWebhookRejectsOversizedBody(t *testing.T) {
	rec := &fakeReconciler{}
	h := webhookHandlers(rec)

	payload := bytes.Repeat([]byte("a"), 1<<16+1)
	rr := postWebhook(h, payload, "t=1,v1=00")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if len(rec.calls) != 0 {
		t.Fatal("oversized payload must never reach the reconciler")
	}
}
