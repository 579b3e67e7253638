package payment

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/razorpay/razorpay-go/utils"
)

var ErrInvalidSignature = errors.New("invalid payment signature")

// VerifyPayment checks the signature the checkout widget returns after a
// successful payment: HMAC(order_id|payment_id, key_secret).
func VerifyPayment(gatewayOrderID, gatewayPaymentID, signature, keySecret string) error {
	if gatewayOrderID == "" || gatewayPaymentID == "" || signature == "" {
		return ErrInvalidSignature
	}
	params := map[string]interface{}{
		"razorpay_order_id":   gatewayOrderID,
		"razorpay_payment_id": gatewayPaymentID,
	}
	if !utils.VerifyPaymentSignature(params, signature, keySecret) {
		return ErrInvalidSignature
	}
	return nil
}

// VerifyWebhook checks the signature header of a webhook delivery against
// the raw request body.
func VerifyWebhook(body []byte, signature, webhookSecret string) error {
	if signature == "" || webhookSecret == "" {
		return ErrInvalidSignature
	}
	if !utils.VerifyWebhookSignature(string(body), signature, webhookSecret) {
		return ErrInvalidSignature
	}
	return nil
}

const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
)

// WebhookEvent is the subset of a gateway webhook the store acts on.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Amount           int64  `json:"amount"`
				Currency         string `json:"currency"`
				Status           string `json:"status"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("failed to parse webhook: %w", err)
	}
	if ev.Event == "" {
		return nil, errors.New("webhook has no event")
	}
	return &ev, nil
}
