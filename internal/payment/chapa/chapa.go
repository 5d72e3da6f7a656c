package chapa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trailhead/tour-bookings/internal/domain"
	"github.com/trailhead/tour-bookings/internal/payment"
)

// Client talks to the Chapa mobile-money API. Unlike the card flow,
// Chapa hands back a hosted checkout URL and the client performs a raw
// redirect.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
	currency   string
}

func New(secretKey, baseURL, currency string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		currency:   currency,
	}
}

func (c *Client) Name() string { return payment.MethodChapa }

type initializeRequest struct {
	Amount        float64       `json:"amount"`
	Currency      string        `json:"currency"`
	Email         string        `json:"email"`
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	TxRef         string        `json:"tx_ref"`
	CallbackURL   string        `json:"callback_url"`
	ReturnURL     string        `json:"return_url"`
	Customization customization `json:"customization"`
}

type customization struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type initializeResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		CheckoutURL string `json:"checkout_url"`
	} `json:"data"`
}

// CreateCheckout initializes a transaction and returns the hosted
// checkout URL. The tx_ref embeds the tour id as the correlation field.
func (c *Client) CreateCheckout(ctx context.Context, p payment.CheckoutParams) (payment.CheckoutResult, error) {
	first, last := splitName(p.UserName)

	reqBody := initializeRequest{
		Amount:      p.Tour.Price,
		Currency:    c.currency,
		Email:       p.UserEmail,
		FirstName:   first,
		LastName:    last,
		TxRef:       fmt.Sprintf("tour-%d-%s", p.Tour.ID, uuid.NewString()),
		CallbackURL: p.SuccessURL,
		ReturnURL:   p.SuccessURL,
		Customization: customization{
			Title:       p.Tour.Name + " Tour",
			Description: p.Tour.Summary,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chapa request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transaction/initialize", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: chapa returned %d", domain.ErrProviderUnavailable, res.StatusCode)
	}

	var parsed initializeResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode chapa response: %w", err)
	}
	if res.StatusCode != http.StatusOK || parsed.Status != "success" || parsed.Data.CheckoutURL == "" {
		return nil, fmt.Errorf("chapa initialize failed: %s", parsed.Message)
	}

	return payment.Redirect{URL: parsed.Data.CheckoutURL}, nil
}

func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	first = parts[0]
	if len(parts) > 1 {
		last = strings.Join(parts[1:], " ")
	}
	return first, last
}

var _ payment.Provider = (*Client)(nil)
