package notify

import (
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/bakery/pkg/config"
	"github.com/example/bakery/pkg/models"
	"go.uber.org/zap"
)

const sendTimeout = 10 * time.Second

// Notifier is the entry point for the rest of the service: it owns the
// actor system and forwards events to the actors without blocking.
type Notifier struct {
	system   *actor.ActorSystem
	orders   *actor.PID
	notifier *actor.PID
	logger   *zap.Logger
}

// Start spawns the order and notification actors. feed may be nil.
func Start(cfg *config.MailConfig, mailer Mailer, feed LiveFeed, logger *zap.Logger) (*Notifier, error) {
	system := actor.NewActorSystem()

	notificationProps := actor.PropsFromProducer(func() actor.Actor {
		return &NotificationActor{logger: logger.Named("notification-actor"), mailer: mailer, timeout: sendTimeout}
	})
	notifierPID, err := system.Root.SpawnNamed(notificationProps, "notification-actor")
	if err != nil {
		return nil, fmt.Errorf("failed to spawn notification actor: %w", err)
	}

	store := storeInfo{Name: cfg.StoreName, FrontendURL: cfg.FrontendURL}
	orderProps := actor.PropsFromProducer(func() actor.Actor {
		return &OrderActor{logger: logger.Named("order-actor"), store: store, feed: feed, notifier: notifierPID}
	})
	orderPID, err := system.Root.SpawnNamed(orderProps, "order-actor")
	if err != nil {
		return nil, fmt.Errorf("failed to spawn order actor: %w", err)
	}

	logger.Info("Notification actors started",
		zap.String("order_actor", orderPID.Id),
		zap.String("notification_actor", notifierPID.Id))

	return &Notifier{system: system, orders: orderPID, notifier: notifierPID, logger: logger}, nil
}

func (n *Notifier) publish(kind string, order *models.Order) {
	n.system.Root.Send(n.orders, &orderEvent{Kind: kind, Order: *order})
}

func (n *Notifier) OrderPlaced(order *models.Order) { n.publish(eventPlaced, order) }
func (n *Notifier) PaymentReceived(order *models.Order) { n.publish(eventPaid, order) }
func (n *Notifier) StatusChanged(order *models.Order) { n.publish(eventChanged, order) }

// Subscribed queues the newsletter welcome email.
func (n *Notifier) Subscribed(email string) {
	n.system.Root.Send(n.orders, &subscribed{Email: email})
}

// Drain waits until everything queued so far has been handled.
func (n *Notifier) Drain(timeout time.Duration) error {
	for _, pid := range []*actor.PID{n.orders, n.notifier} {
		if _, err := n.system.Root.RequestFuture(pid, &drain{}, timeout).Result(); err != nil {
			return fmt.Errorf("failed to drain %s: %w", pid.Id, err)
		}
	}
	return nil
}

// Stop drains pending mail and stops both actors.
func (n *Notifier) Stop(timeout time.Duration) {
	if err := n.Drain(timeout); err != nil {
		n.logger.Warn("Notifications not drained", zap.Error(err))
	}
	for _, pid := range []*actor.PID{n.orders, n.notifier} {
		if err := n.system.Root.StopFuture(pid).Wait(); err != nil {
			n.logger.Warn("Failed to stop actor", zap.String("actor", pid.Id), zap.Error(err))
		}
	}
	n.system.Shutdown()
}
