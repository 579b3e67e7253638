package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/bakery/pkg/models"
	"github.com/example/bakery/pkg/payment"
	"github.com/example/bakery/pkg/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CreatePayment issues a fresh gateway order for an unpaid online order,
// for instance after the customer closed the payment widget.
func (s *Service) CreatePayment(ctx context.Context, userID, orderID primitive.ObjectID) (*payment.Order, error) {
	order, err := s.Orders.GetForUser(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	switch {
	case order.PaymentMethod != models.PaymentOnline:
		return nil, reject(CodeInvalidPayment, "order_id", "order %s is cash on delivery", order.OrderNumber)
	case order.PaymentStatus == models.PaymentPaid:
		return nil, reject(CodeInvalidPayment, "order_id", "order %s is already paid", order.OrderNumber)
	case order.Status == models.OrderCancelled:
		return nil, reject(CodeInvalidPayment, "order_id", "order %s is cancelled", order.OrderNumber)
	}

	gw, err := s.Gateway.CreateOrder(ctx, order.Totals.Total, order.OrderNumber, map[string]string{"order_id": order.ID.Hex()})
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway order: %w", err)
	}
	if err := s.Orders.SetGatewayOrder(ctx, order.ID, gw.ID); err != nil {
		return nil, fmt.Errorf("failed to store gateway order: %w", err)
	}
	order.GatewayOrderID = gw.ID
	s.record(ctx, order, models.LedgerCreated, "retry", "")
	return gw, nil
}

type VerifyRequest struct {
	OrderID          string `json:"order_id" binding:"required"`
	GatewayOrderID   string `json:"gateway_order_id" binding:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" binding:"required"`
	Signature        string `json:"signature" binding:"required"`
}

// Verify checks the signature returned by the checkout widget. A bad
// signature marks the payment failed and returns payment.ErrInvalidSignature.
func (s *Service) Verify(ctx context.Context, userID primitive.ObjectID, req VerifyRequest) (*models.Order, error) {
	id, err := repository.ParseID(req.OrderID)
	if err != nil {
		return nil, err
	}
	order, err := s.Orders.GetForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if order.GatewayOrderID == "" || order.GatewayOrderID != req.GatewayOrderID {
		return nil, reject(CodeInvalidPayment, "gateway_order_id", "payment does not belong to order %s", order.OrderNumber)
	}

	if err := payment.VerifyPayment(req.GatewayOrderID, req.GatewayPaymentID, req.Signature, s.opts.KeySecret); err != nil {
		s.logger.Warn("Payment signature mismatch",
			zap.String("order", order.OrderNumber),
			zap.String("gateway_payment_id", req.GatewayPaymentID))
		failed, changed, applyErr := s.Orders.ApplyPayment(ctx, order.ID, repository.PaymentUpdate{
			Status:           models.PaymentFailed,
			GatewayPaymentID: req.GatewayPaymentID,
			By:               "verify",
		})
		if applyErr != nil {
			return nil, applyErr
		}
		if changed {
			s.record(ctx, failed, models.LedgerFailed, "verify", "")
		}
		return nil, err
	}

	paid, changed, err := s.Orders.ApplyPayment(ctx, order.ID, repository.PaymentUpdate{
		Status:           models.PaymentPaid,
		GatewayPaymentID: req.GatewayPaymentID,
		By:               "verify",
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.record(ctx, paid, models.LedgerVerified, "verify", "")
		if s.Events != nil {
			s.Events.PaymentReceived(paid)
		}
	}
	return paid, nil
}

// Webhook applies a signed gateway event. Events for unknown orders and
// event types the store does not handle are acknowledged and ignored so
// the gateway stops retrying them.
func (s *Service) Webhook(ctx context.Context, body []byte, signature string) error {
	if err := payment.VerifyWebhook(body, signature, s.opts.WebhookSecret); err != nil {
		return err
	}
	ev, err := payment.ParseWebhook(body)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalid, err)
	}

	var status models.PaymentStatus
	var event string
	switch ev.Event {
	case payment.EventPaymentCaptured:
		status, event = models.PaymentPaid, models.LedgerCaptured
	case payment.EventPaymentFailed:
		status, event = models.PaymentFailed, models.LedgerFailed
	default:
		s.logger.Debug("Ignoring webhook event", zap.String("event", ev.Event))
		return nil
	}

	entity := ev.Payload.Payment.Entity
	order, err := s.Orders.GetByGatewayOrderID(ctx, entity.OrderID)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("Webhook for unknown gateway order", zap.String("gateway_order_id", entity.OrderID))
		return nil
	}
	if err != nil {
		return err
	}

	updated, changed, err := s.Orders.ApplyPayment(ctx, order.ID, repository.PaymentUpdate{
		Status:           status,
		GatewayPaymentID: entity.ID,
		By:               "webhook",
	})
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	s.record(ctx, updated, event, "webhook", string(body))
	if status == models.PaymentPaid && s.Events != nil {
		s.Events.PaymentReceived(updated)
	}
	s.logger.Info("Webhook applied",
		zap.String("order", updated.OrderNumber),
		zap.String("event", ev.Event))
	return nil
}

// Cancel lets a customer cancel an order the bakery has not started on.
func (s *Service) Cancel(ctx context.Context, userID, orderID primitive.ObjectID) (*models.Order, error) {
	order, err := s.Orders.GetForUser(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CustomerCancellable() {
		return nil, fmt.Errorf("%w: order %s is already %s", repository.ErrConflict, order.OrderNumber, order.Status)
	}
	updated, err := s.Orders.UpdateStatus(ctx, order.ID, order.Status, models.OrderCancelled, "customer")
	if err != nil {
		return nil, err
	}
	s.releaseCoupon(ctx, updated)
	if s.Events != nil {
		s.Events.StatusChanged(updated)
	}
	return updated, nil
}

// Advance moves an order to a new status on behalf of staff. Delivering a
// cash on delivery order also records the cash as collected.
func (s *Service) Advance(ctx context.Context, orderID primitive.ObjectID, to models.OrderStatus, by string) (*models.Order, error) {
	order, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransition(to) {
		return nil, fmt.Errorf("%w: cannot move order from %s to %s", repository.ErrConflict, order.Status, to)
	}
	updated, err := s.Orders.UpdateStatus(ctx, order.ID, order.Status, to, by)
	if err != nil {
		return nil, err
	}
	if to == models.OrderCancelled {
		s.releaseCoupon(ctx, updated)
	}

	if to == models.OrderDelivered && updated.PaymentMethod == models.PaymentCOD {
		collected, changed, err := s.Orders.ApplyPayment(ctx, updated.ID, repository.PaymentUpdate{Status: models.PaymentPaid, By: by})
		if err != nil {
			s.logger.Error("Failed to mark cash collected", zap.String("order", updated.OrderNumber), zap.Error(err))
		} else {
			updated = collected
			if changed {
				s.record(ctx, updated, models.LedgerCOD, "admin", "")
			}
		}
	}

	if s.Events != nil {
		s.Events.StatusChanged(updated)
	}
	return updated, nil
}

// releaseCoupon gives a cancelled order's coupon redemption back. The
// status update is guarded on the previous status, so this runs once.
func (s *Service) releaseCoupon(ctx context.Context, order *models.Order) {
	if order.CouponCode == "" {
		return
	}
	if err := s.Coupons.Release(ctx, order.CouponCode); err != nil {
		s.logger.Error("Failed to release coupon",
			zap.String("code", order.CouponCode),
			zap.String("order", order.OrderNumber),
			zap.Error(err))
	}
}
