// Package checkout prices carts and turns them into orders: coupon and
// delivery validation, order placement and payment confirmation.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/bakery/pkg/delivery"
	"github.com/example/bakery/pkg/models"
	"github.com/example/bakery/pkg/payment"
	"github.com/example/bakery/pkg/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ErrRequestInProgress is returned when an idempotency key is reused while
// the first request holding it has not finished.
var ErrRequestInProgress = fmt.Errorf("%w: a request with this idempotency key is in progress", repository.ErrConflict)

type Cakes interface {
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Cake, error)
	IncrementSold(ctx context.Context, items []models.OrderItem) error
}

type Addons interface {
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Addon, error)
}

type Coupons interface {
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	Redeem(ctx context.Context, code string) error
	Release(ctx context.Context, code string) error
}

type Settings interface {
	Get(ctx context.Context) (*models.Settings, error)
}

type Carts interface {
	Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	Clear(ctx context.Context, userID primitive.ObjectID) error
}

type Users interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

type Orders interface {
	Create(ctx context.Context, o *models.Order) error
	Get(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	GetForUser(ctx context.Context, id, userID primitive.ObjectID) (*models.Order, error)
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error)
	SetGatewayOrder(ctx context.Context, id primitive.ObjectID, gatewayOrderID string) error
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus, by string) (*models.Order, error)
	ApplyPayment(ctx context.Context, id primitive.ObjectID, p repository.PaymentUpdate) (*models.Order, bool, error)
}

type DeliveryChecker interface {
	Check(ctx context.Context, req delivery.Request) (*delivery.Result, error)
}

type Ledger interface {
	Append(ctx context.Context, tx *models.PaymentTransaction) error
}

type Idempotency interface {
	ClaimIdempotencyKey(ctx context.Context, userID, key string, ttl time.Duration) (bool, string, error)
	CompleteIdempotencyKey(ctx context.Context, userID, key, orderID string, ttl time.Duration) error
	ReleaseIdempotencyKey(ctx context.Context, userID, key string) error
}

// Events receives order lifecycle notifications. Implementations must not
// block the caller.
type Events interface {
	OrderPlaced(order *models.Order)
	PaymentReceived(order *models.Order)
	StatusChanged(order *models.Order)
}

// Deps are the stores and clients the service works against. Idempotency
// and Events may be nil.
type Deps struct {
	Cakes       Cakes
	Addons      Addons
	Coupons     Coupons
	Settings    Settings
	Carts       Carts
	Users       Users
	Orders      Orders
	Delivery    DeliveryChecker
	Gateway     payment.Gateway
	Ledger      Ledger
	Idempotency Idempotency
	Events      Events
}

type Options struct {
	Location       *time.Location
	MaxAdvanceDays int
	IdempotencyTTL time.Duration
	Currency       string
	KeySecret      string
	WebhookSecret  string
}

type Service struct {
	Deps
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

func NewService(deps Deps, opts Options, logger *zap.Logger) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{Deps: deps, opts: opts, logger: logger, now: time.Now}
}

// Quote is the priced cart shown on the review step.
type Quote struct {
	PricedCart
	Coupon         string        `json:"coupon_code,omitempty"`
	Totals         models.Totals `json:"totals"`
	MinOrderValue  float64       `json:"min_order_value"`
	BelowMinimum   bool          `json:"below_min_order"`
	HasUnavailable bool          `json:"has_unavailable"`
}

// PriceUserCart loads and prices the user's cart.
func (s *Service) PriceUserCart(ctx context.Context, userID primitive.ObjectID) (*models.Cart, *PricedCart, error) {
	cart, err := s.Carts.Get(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load cart: %w", err)
	}
	priced, err := s.price(ctx, cart)
	if err != nil {
		return nil, nil, err
	}
	return cart, priced, nil
}

func (s *Service) price(ctx context.Context, cart *models.Cart) (*PricedCart, error) {
	cakeIDs := make([]primitive.ObjectID, 0, len(cart.Items))
	for _, it := range cart.Items {
		cakeIDs = append(cakeIDs, it.CakeID)
	}
	cakes, err := s.Cakes.GetByIDs(ctx, cakeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load cakes: %w", err)
	}

	addonIDs := make([]primitive.ObjectID, 0, len(cart.Addons))
	for _, a := range cart.Addons {
		addonIDs = append(addonIDs, a.AddonID)
	}
	addons := map[primitive.ObjectID]models.Addon{}
	if len(addonIDs) > 0 {
		if addons, err = s.Addons.GetByIDs(ctx, addonIDs); err != nil {
			return nil, fmt.Errorf("failed to load addons: %w", err)
		}
	}
	return PriceCart(cart, cakes, addons), nil
}

// Quote prices the user's cart with an optional coupon. An invalid coupon
// fails the quote so the storefront can show why.
func (s *Service) Quote(ctx context.Context, userID primitive.ObjectID, couponCode string) (*Quote, error) {
	_, priced, err := s.PriceUserCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	settings, err := s.Settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	q := &Quote{
		PricedCart:     *priced,
		MinOrderValue:  settings.MinOrderValue,
		BelowMinimum:   priced.Subtotal < settings.MinOrderValue,
		HasUnavailable: priced.HasUnavailable(),
	}
	var discount float64
	if code := models.NormalizeCouponCode(couponCode); code != "" {
		if discount, err = s.couponDiscount(ctx, code, priced.Subtotal); err != nil {
			return nil, err
		}
		q.Coupon = code
	}
	q.Totals = ComputeTotals(priced.Subtotal, priced.AddonsTotal, discount, DeliveryCharge(settings, priced.Subtotal))
	return q, nil
}

// CouponResult is the outcome of applying a coupon to a subtotal.
type CouponResult struct {
	Code     string  `json:"code"`
	Kind     string  `json:"kind"`
	Value    float64 `json:"value"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
}

func (s *Service) ApplyCoupon(ctx context.Context, code string, subtotal float64) (*CouponResult, error) {
	code = models.NormalizeCouponCode(code)
	c, err := s.lookupCoupon(ctx, code)
	if err != nil {
		return nil, err
	}
	discount, err := CouponDiscount(c, subtotal, s.now())
	if err != nil {
		return nil, err
	}
	return &CouponResult{Code: c.Code, Kind: c.Kind, Value: c.Value, Discount: discount, Total: Round2(subtotal - discount)}, nil
}

func (s *Service) lookupCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	if code == "" {
		return nil, reject(CodeCouponNotFound, "coupon_code", "coupon code is required")
	}
	c, err := s.Coupons.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, reject(CodeCouponNotFound, "coupon_code", "coupon %s does not exist", code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load coupon: %w", err)
	}
	return c, nil
}

func (s *Service) couponDiscount(ctx context.Context, code string, subtotal float64) (float64, error) {
	c, err := s.lookupCoupon(ctx, code)
	if err != nil {
		return 0, err
	}
	return CouponDiscount(c, subtotal, s.now())
}

// PlaceOrderRequest is the final checkout step. The address is either a
// saved address id, an inline address, or the user's default.
type PlaceOrderRequest struct {
	AddressID      string          `json:"address_id"`
	Address        *models.Address `json:"address"`
	DeliveryDate   string          `json:"delivery_date" binding:"required"`
	DeliverySlot   string          `json:"delivery_slot" binding:"required"`
	PaymentMethod  string          `json:"payment_method" binding:"required"`
	CouponCode     string          `json:"coupon_code"`
	IdempotencyKey string          `json:"-"`
}

// Placement is a placed order together with the gateway order to pay
// against (online orders only).
type Placement struct {
	Order    *models.Order  `json:"order"`
	Payment  *payment.Order `json:"payment,omitempty"`
	Replayed bool           `json:"replayed"`
}

// PlaceOrder re-validates everything the earlier steps checked and creates
// the order. A coupon use taken here is given back if placement fails.
func (s *Service) PlaceOrder(ctx context.Context, userID primitive.ObjectID, req PlaceOrderRequest) (_ *Placement, err error) {
	settings, err := s.Settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if !settings.StoreOpen {
		return nil, reject(CodeStoreClosed, "", "the store is not taking orders right now")
	}
	method, err := models.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, reject(CodeInvalidPayment, "payment_method", "payment method must be %q or %q", models.PaymentOnline, models.PaymentCOD)
	}
	if method == models.PaymentCOD && !settings.CODEnabled {
		return nil, reject(CodeCODDisabled, "payment_method", "cash on delivery is not available")
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" && s.Idempotency != nil {
		claimed, orderID, claimErr := s.Idempotency.ClaimIdempotencyKey(ctx, userID.Hex(), key, s.opts.IdempotencyTTL)
		if claimErr != nil {
			return nil, fmt.Errorf("failed to claim idempotency key: %w", claimErr)
		}
		if !claimed {
			return s.replay(ctx, userID, orderID)
		}
		defer func() {
			if err == nil {
				return
			}
			if relErr := s.Idempotency.ReleaseIdempotencyKey(context.Background(), userID.Hex(), key); relErr != nil {
				s.logger.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(relErr))
			}
		}()
	}

	user, err := s.Users.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	cart, priced, err := s.PriceUserCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() || len(priced.Items) == 0 {
		return nil, reject(CodeEmptyCart, "", "your cart is empty")
	}
	if priced.HasUnavailable() {
		return nil, reject(CodeItemUnavailable, "items", "some items in your cart are no longer available")
	}

	shipping, err := resolveAddress(user, req)
	if err != nil {
		return nil, err
	}
	day, err := ValidateSchedule(req.DeliveryDate, req.DeliverySlot, settings,
		ScheduleRules{Location: s.opts.Location, MaxAdvanceDays: s.opts.MaxAdvanceDays}, s.now())
	if err != nil {
		return nil, err
	}

	check, err := s.Delivery.Check(ctx, delivery.RequestFor(shipping))
	if err != nil {
		return nil, fmt.Errorf("failed to check delivery: %w", err)
	}
	if !check.Deliverable {
		return nil, reject(CodeUndeliverable, "address", "we do not deliver to pincode %s yet", shipping.Pincode)
	}
	if priced.Subtotal < settings.MinOrderValue {
		return nil, reject(CodeBelowMinimum, "items", "minimum order value is %.2f", settings.MinOrderValue)
	}

	var discount float64
	code := models.NormalizeCouponCode(req.CouponCode)
	if code != "" {
		if discount, err = s.couponDiscount(ctx, code, priced.Subtotal); err != nil {
			return nil, err
		}
		if err = s.Coupons.Redeem(ctx, code); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return nil, reject(CodeCouponExhausted, "coupon_code", "coupon %s has been fully redeemed", code)
			}
			return nil, fmt.Errorf("failed to redeem coupon: %w", err)
		}
		defer func() {
			if err == nil {
				return
			}
			if relErr := s.Coupons.Release(context.Background(), code); relErr != nil {
				s.logger.Error("Failed to release coupon", zap.String("code", code), zap.Error(relErr))
			}
		}()
	}

	now := s.now().UTC()
	order := &models.Order{
		OrderNumber:   models.NewOrderNumber(now.In(s.opts.Location)),
		UserID:        userID,
		Email:         user.Email,
		Items:         orderItems(priced.Items),
		Addons:        orderAddons(priced.Addons),
		Shipping:      shipping,
		PaymentMethod: method,
		PaymentStatus: models.PaymentPending,
		Status:        models.OrderPending,
		Totals:        ComputeTotals(priced.Subtotal, priced.AddonsTotal, discount, DeliveryCharge(settings, priced.Subtotal)),
		CouponCode:    code,
		DeliveryDate:  day,
		DeliverySlot:  strings.TrimSpace(req.DeliverySlot),
		DeliveryArea:  check.Area,
	}
	if method == models.PaymentCOD {
		order.Status = models.OrderConfirmed
	}

	var gatewayOrder *payment.Order
	if method == models.PaymentOnline {
		gatewayOrder, err = s.Gateway.CreateOrder(ctx, order.Totals.Total, order.OrderNumber, map[string]string{"user_id": userID.Hex()})
		if err != nil {
			return nil, fmt.Errorf("failed to create gateway order: %w", err)
		}
		order.GatewayOrderID = gatewayOrder.ID
	}

	if err = s.Orders.Create(ctx, order); err != nil {
		if gatewayOrder != nil {
			// Unpaid gateway orders expire on their own.
			s.logger.Error("Gateway order left without a store order",
				zap.String("gateway_order_id", gatewayOrder.ID),
				zap.String("order", order.OrderNumber),
				zap.Error(err))
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.record(ctx, order, models.LedgerCreated, "checkout", "")
	if clearErr := s.Carts.Clear(ctx, userID); clearErr != nil {
		s.logger.Warn("Failed to clear cart", zap.String("user_id", userID.Hex()), zap.Error(clearErr))
	}
	if soldErr := s.Cakes.IncrementSold(ctx, order.Items); soldErr != nil {
		s.logger.Warn("Failed to update sold counts", zap.String("order", order.OrderNumber), zap.Error(soldErr))
	}
	if key != "" && s.Idempotency != nil {
		if doneErr := s.Idempotency.CompleteIdempotencyKey(ctx, userID.Hex(), key, order.ID.Hex(), s.opts.IdempotencyTTL); doneErr != nil {
			s.logger.Warn("Failed to store idempotency result", zap.String("key", key), zap.Error(doneErr))
		}
	}
	if s.Events != nil {
		s.Events.OrderPlaced(order)
	}

	s.logger.Info("Order placed",
		zap.String("order", order.OrderNumber),
		zap.String("method", string(method)),
		zap.Float64("total", order.Totals.Total))

	return &Placement{Order: order, Payment: gatewayOrder}, nil
}

func (s *Service) replay(ctx context.Context, userID primitive.ObjectID, orderID string) (*Placement, error) {
	if orderID == "" {
		return nil, ErrRequestInProgress
	}
	id, err := repository.ParseID(orderID)
	if err != nil {
		return nil, err
	}
	order, err := s.Orders.GetForUser(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load replayed order: %w", err)
	}
	return &Placement{Order: order, Replayed: true}, nil
}

func resolveAddress(user *models.User, req PlaceOrderRequest) (models.Address, error) {
	switch {
	case req.Address != nil:
		addr := *req.Address
		if err := addr.Validate(); err != nil {
			return models.Address{}, reject(CodeInvalidAddress, "address", "%s", strings.TrimPrefix(err.Error(), models.ErrInvalid.Error()+": "))
		}
		return addr, nil
	case req.AddressID != "":
		id, err := primitive.ObjectIDFromHex(req.AddressID)
		if err != nil {
			return models.Address{}, reject(CodeInvalidAddress, "address_id", "address not found")
		}
		addr, ok := user.Address(id)
		if !ok {
			return models.Address{}, reject(CodeInvalidAddress, "address_id", "address not found")
		}
		return addr, nil
	}
	addr, ok := user.DefaultAddress()
	if !ok {
		return models.Address{}, reject(CodeInvalidAddress, "address", "a delivery address is required")
	}
	return addr, nil
}

func orderItems(lines []Line) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		out = append(out, models.OrderItem{
			CakeID:    l.CakeID,
			Name:      l.Name,
			Image:     l.Image,
			Weight:    l.Weight,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			Message:   l.Message,
		})
	}
	return out
}

func orderAddons(lines []AddonLine) []models.OrderAddon {
	out := make([]models.OrderAddon, 0, len(lines))
	for _, l := range lines {
		out = append(out, models.OrderAddon{AddonID: l.AddonID, Name: l.Name, UnitPrice: l.UnitPrice, Quantity: l.Quantity})
	}
	return out
}

// record appends to the payments ledger. A ledger failure is logged and
// never undoes the order change it describes.
func (s *Service) record(ctx context.Context, order *models.Order, event, source, payload string) {
	if s.Ledger == nil {
		return
	}
	tx := &models.PaymentTransaction{
		OrderID:          order.ID.Hex(),
		OrderNumber:      order.OrderNumber,
		GatewayOrderID:   order.GatewayOrderID,
		GatewayPaymentID: order.GatewayPaymentID,
		Event:            event,
		Source:           source,
		Status:           string(order.PaymentStatus),
		Amount:           order.Totals.Total,
		Currency:         s.opts.Currency,
		Payload:          payload,
	}
	if err := s.Ledger.Append(ctx, tx); err != nil {
		s.logger.Error("Failed to append payment ledger",
			zap.String("order", order.OrderNumber),
			zap.String("event", event),
			zap.Error(err))
	}
}
