package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderConfirmed      OrderStatus = "confirmed"
	OrderBaking         OrderStatus = "baking"
	OrderOutForDelivery OrderStatus = "out_for_delivery"
	OrderDelivered      OrderStatus = "delivered"
	OrderCancelled      OrderStatus = "cancelled"
)

var orderFlow = map[OrderStatus]OrderStatus{
	OrderPending:        OrderConfirmed,
	OrderConfirmed:      OrderBaking,
	OrderBaking:         OrderOutForDelivery,
	OrderOutForDelivery: OrderDelivered,
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case OrderPending, OrderConfirmed, OrderBaking, OrderOutForDelivery, OrderDelivered, OrderCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown order status %q", ErrInvalid, s)
}

func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// CanTransition reports whether an order may move from s to next. Orders
// advance one step at a time; any non-terminal order may be cancelled.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == OrderCancelled {
		return true
	}
	return orderFlow[s] == next
}

// CustomerCancellable is true while the bakery has not started on the order.
func (s OrderStatus) CustomerCancellable() bool {
	return s == OrderPending || s == OrderConfirmed
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	st := PaymentStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown payment status %q", ErrInvalid, s)
}

type PaymentMethod string

const (
	PaymentOnline PaymentMethod = "online"
	PaymentCOD    PaymentMethod = "cod"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	if m == PaymentOnline || m == PaymentCOD {
		return m, nil
	}
	return "", fmt.Errorf("%w: payment method must be %q or %q", ErrInvalid, PaymentOnline, PaymentCOD)
}

type OrderItem struct {
	CakeID    primitive.ObjectID `bson:"cake_id" json:"cake_id"`
	Name      string             `bson:"name" json:"name"`
	Image     string             `bson:"image" json:"image"`
	Weight    string             `bson:"weight" json:"weight"`
	UnitPrice float64            `bson:"unit_price" json:"unit_price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Message   string             `bson:"message" json:"message"`
}

func (i OrderItem) LineTotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

type OrderAddon struct {
	AddonID   primitive.ObjectID `bson:"addon_id" json:"addon_id"`
	Name      string             `bson:"name" json:"name"`
	UnitPrice float64            `bson:"unit_price" json:"unit_price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

type Totals struct {
	Subtotal       float64 `bson:"subtotal" json:"subtotal"`
	AddonsTotal    float64 `bson:"addons_total" json:"addons_total"`
	Discount       float64 `bson:"discount" json:"discount"`
	DeliveryCharge float64 `bson:"delivery_charge" json:"delivery_charge"`
	Total          float64 `bson:"total" json:"total"`
}

type StatusChange struct {
	Status OrderStatus `bson:"status" json:"status"`
	At     time.Time   `bson:"at" json:"at"`
	By     string      `bson:"by" json:"by"`
}

type Order struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderNumber      string             `bson:"order_number" json:"order_number"`
	UserID           primitive.ObjectID `bson:"user_id" json:"user_id"`
	Email            string             `bson:"email" json:"email"`
	Items            []OrderItem        `bson:"items" json:"items"`
	Addons           []OrderAddon       `bson:"addons" json:"addons"`
	Shipping         Address            `bson:"shipping" json:"shipping"`
	PaymentMethod    PaymentMethod      `bson:"payment_method" json:"payment_method"`
	PaymentStatus    PaymentStatus      `bson:"payment_status" json:"payment_status"`
	Status           OrderStatus        `bson:"status" json:"status"`
	Totals           Totals             `bson:"totals" json:"totals"`
	CouponCode       string             `bson:"coupon_code,omitempty" json:"coupon_code,omitempty"`
	DeliveryDate     time.Time          `bson:"delivery_date" json:"delivery_date"`
	DeliverySlot     string             `bson:"delivery_slot" json:"delivery_slot"`
	DeliveryArea     string             `bson:"delivery_area" json:"delivery_area"`
	GatewayOrderID   string             `bson:"gateway_order_id,omitempty" json:"gateway_order_id,omitempty"`
	GatewayPaymentID string             `bson:"gateway_payment_id,omitempty" json:"gateway_payment_id,omitempty"`
	History          []StatusChange     `bson:"history" json:"history"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}

// NewOrderNumber returns a short human-facing reference such as
// BK-20240131-1A2B3C4D.
func NewOrderNumber(now time.Time) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("BK-%s-%s", now.Format("20060102"), id[:8])
}
