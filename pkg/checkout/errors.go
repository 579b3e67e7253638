package checkout

import "fmt"

// Rule violation codes returned to the storefront.
const (
	CodeEmptyCart       = "empty_cart"
	CodeItemUnavailable = "item_unavailable"
	CodeCouponNotFound  = "coupon_not_found"
	CodeCouponInactive  = "coupon_inactive"
	CodeCouponNotStart  = "coupon_not_started"
	CodeCouponExpired   = "coupon_expired"
	CodeCouponExhausted = "coupon_exhausted"
	CodeCouponMinOrder  = "coupon_min_order"
	CodeUndeliverable   = "undeliverable"
	CodeBelowMinimum    = "below_min_order"
	CodeCODDisabled     = "cod_disabled"
	CodeStoreClosed     = "store_closed"
	CodeInvalidDate     = "invalid_date"
	CodeDateTooFar      = "date_too_far"
	CodeSameDayCutoff   = "same_day_cutoff"
	CodeInvalidSlot     = "invalid_slot"
	CodeInvalidAddress  = "invalid_address"
	CodeInvalidPayment  = "invalid_payment"
)

// ValidationError is a checkout rule the request failed.
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"error"`
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func reject(code, field, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}
