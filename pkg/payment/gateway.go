// Package payment talks to the card payment gateway and checks the
// signatures it returns.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/example/bakery/pkg/config"
	"github.com/google/uuid"
	razorpay "github.com/razorpay/razorpay-go"
)

const (
	ProviderRazorpay = "razorpay"
	// ProviderOffline issues local order ids; for development without
	// gateway credentials.
	ProviderOffline = "offline"
)

// Order is a gateway-side order the browser checkout widget pays against.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
	KeyID    string `json:"key_id"`
}

type Gateway interface {
	CreateOrder(ctx context.Context, amount float64, receipt string, notes map[string]string) (*Order, error)
}

// NewGateway returns the gateway selected by config.
func NewGateway(cfg *config.PaymentConfig) Gateway {
	if strings.EqualFold(cfg.Provider, ProviderOffline) {
		return &OfflineGateway{currency: cfg.Currency, keyID: cfg.KeyID}
	}
	return NewRazorpayClient(cfg)
}

// ToMinorUnits converts an amount in rupees to paise.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// RazorpayClient creates gateway orders through the Razorpay SDK.
type RazorpayClient struct {
	client   *razorpay.Client
	keyID    string
	currency string
}

func NewRazorpayClient(cfg *config.PaymentConfig) *RazorpayClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := razorpay.NewClient(cfg.KeyID, cfg.KeySecret)
	if cfg.BaseURL != "" {
		client.Order.Request.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	client.Order.Request.HTTPClient = &http.Client{Timeout: timeout}
	return &RazorpayClient{client: client, keyID: cfg.KeyID, currency: cfg.Currency}
}

// CreateOrder registers an order with the gateway. The SDK takes no
// context, so cancellation is only checked before the call.
func (c *RazorpayClient) CreateOrder(ctx context.Context, amount float64, receipt string, notes map[string]string) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data := map[string]interface{}{
		"amount":   ToMinorUnits(amount),
		"currency": c.currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	body, err := c.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("payment gateway error: %w", err)
	}

	// Round-trip through JSON to read the SDK's untyped response.
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway order: %w", err)
	}
	var order Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("failed to parse gateway order: %w", err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("payment gateway returned an empty order id")
	}
	order.KeyID = c.keyID
	return &order, nil
}

type OfflineGateway struct {
	currency string
	keyID    string
}

func (g *OfflineGateway) CreateOrder(_ context.Context, amount float64, receipt string, _ map[string]string) (*Order, error) {
	return &Order{
		ID:       "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14],
		Amount:   ToMinorUnits(amount),
		Currency: g.currency,
		Receipt:  receipt,
		Status:   "created",
		KeyID:    g.keyID,
	}, nil
}
