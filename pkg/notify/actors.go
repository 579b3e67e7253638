package notify

import (
	"context"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/bakery/pkg/models"
	"go.uber.org/zap"
)

const (
	eventPlaced  = "placed"
	eventPaid    = "paid"
	eventChanged = "status"
)

// Messages
type orderEvent struct {
	Kind  string
	Order models.Order
}

type subscribed struct {
	Email string
}

type sendEmail struct {
	Message Message
}

type sendResult struct {
	Err error
}

// drain is answered once every message queued before it was handled.
type drain struct{}

type drained struct{}

// LiveEvent is pushed to connected back-office clients.
type LiveEvent struct {
	Type  string       `json:"type"`
	Order models.Order `json:"order"`
}

type LiveFeed interface {
	Publish(event LiveEvent)
}

// OrderActor turns order events into emails and live feed updates.
type OrderActor struct {
	logger   *zap.Logger
	store    storeInfo
	feed     LiveFeed
	notifier *actor.PID
}

func (a *OrderActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *orderEvent:
		order := msg.Order
		a.logger.Debug("Order event",
			zap.String("kind", msg.Kind),
			zap.String("order", order.OrderNumber),
			zap.String("status", string(order.Status)))

		if a.feed != nil {
			a.feed.Publish(LiveEvent{Type: "order." + msg.Kind, Order: order})
		}
		if order.Email == "" {
			return
		}
		mail, err := renderOrder(a.store, msg.Kind, &order)
		if err != nil {
			a.logger.Error("Failed to render order email", zap.String("order", order.OrderNumber), zap.Error(err))
			return
		}
		ctx.Send(a.notifier, &sendEmail{Message: mail})

	case *subscribed:
		mail, err := renderWelcome(a.store, msg.Email)
		if err != nil {
			a.logger.Error("Failed to render welcome email", zap.Error(err))
			return
		}
		ctx.Send(a.notifier, &sendEmail{Message: mail})

	case *drain:
		ctx.Respond(&drained{})

	case *actor.Started:
		a.logger.Info("Order actor started")

	case *actor.Stopping:
		a.logger.Info("Order actor stopping")

	case *actor.Stopped:
		a.logger.Info("Order actor stopped")
	}
}

// NotificationActor delivers email one message at a time.
type NotificationActor struct {
	logger  *zap.Logger
	mailer  Mailer
	timeout time.Duration
}

func (a *NotificationActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *sendEmail:
		sendCtx, cancel := context.WithTimeout(context.Background(), a.timeout)
		err := a.mailer.Send(sendCtx, msg.Message)
		cancel()
		if err != nil {
			a.logger.Error("Failed to send email",
				zap.String("recipient", msg.Message.To),
				zap.String("tag", msg.Message.Tag),
				zap.Error(err))
		} else {
			a.logger.Info("Email sent",
				zap.String("recipient", msg.Message.To),
				zap.String("tag", msg.Message.Tag))
		}
		if ctx.Sender() != nil {
			ctx.Respond(&sendResult{Err: err})
		}

	case *drain:
		ctx.Respond(&drained{})

	case *actor.Started:
		a.logger.Info("Notification actor started")
	}
}
