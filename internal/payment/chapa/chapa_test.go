package chapa

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/trailhead/tour-bookings/internal/domain"
	"github.com/trailhead/tour-bookings/internal/payment"
)

func checkoutParams() payment.CheckoutParams {
	return payment.CheckoutParams{
		Tour: &domain.Tour{
			ID:      7,
			Name:    "Forest Hiker",
			Slug:    "forest-hiker",
			Summary: "Breathtaking hike through the forest",
			Price:   100.00,
		},
		UserEmail:  "a@x.com",
		UserName:   "Ada Lovelace",
		SuccessURL: "https://tours.example.com/my-tours?alert=booking",
		CancelURL:  "https://tours.example.com/tour/forest-hiker",
	}
}

func TestCreateCheckoutReturnsHostedURL(t *testing.T) {
	var got initializeRequest
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/transaction/initialize" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "success",
			"message": "Hosted Link",
			"data":    map[string]string{"checkout_url": "https://checkout.chapa.co/tx-1"},
		})
	}))
	defer srv.Close()

	c := New("sk_test", srv.URL, "ETB", 5*time.Second)
	result, err := c.CreateCheckout(context.Background(), checkoutParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	redirect, ok := result.(payment.Redirect)
	if !ok {
		t.Fatalf("expected Redirect, got %T", result)
	}
	if redirect.URL != "https://checkout.chapa.co/tx-1" {
		t.Fatalf("unexpected checkout URL %q", redirect.URL)
	}

	if gotAuth != "Bearer sk_test" {
		t.Fatalf("unexpected authorization header %q", gotAuth)
	}
	if got.Amount != 100.00 || got.Currency != "ETB" || got.Email != "a@x.com" {
		t.Fatalf("unexpected initialize request: %+v", got)
	}
	if got.FirstName != "Ada" || got.LastName != "Lovelace" {
		t.Fatalf("unexpected name split: %q %q", got.FirstName, got.LastName)
	}
	if !strings.HasPrefix(got.TxRef, "tour-7-") {
		t.Fatalf("tx_ref must embed the tour id, got %q", got.TxRef)
	}
}

func TestCreateCheckoutServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New("sk_test", srv.URL, "ETB", 5*time.Second)
	_, err := c.CreateCheckout(context.Background(), checkoutParams())
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestCreateCheckoutRejectedInitialize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "failed",
			"message": "Invalid currency",
		})
	}))
	defer srv.Close()

	c := New("sk_test", srv.URL, "ETB", 5*time.Second)
	_, err := c.CreateCheckout(context.Background(), checkoutParams())
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("a 4xx rejection is permanent, got %v", err)
	}
}

func TestCreateCheckoutUnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := New("sk_test", srv.URL, "ETB", time.Second)
	_, err := c.CreateCheckout(context.Background(), checkoutParams())
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestSplitName(t *testing.T) {
	cases := []struct {
		in, first, last string
	}{
		{"Ada Lovelace", "Ada", "Lovelace"},
		{"Ada", "Ada", ""},
		{"Ada Augusta King", "Ada", "Augusta King"},
		{"", "", ""},
	}
	for _, tc := range cases {
		first, last := splitName(tc.in)
		if first != tc.first || last != tc.last {
			t.Errorf("splitName(%q) = %q, %q; want %q, %q", tc.in, first, last, tc.first, tc.last)
		}
	}
}
