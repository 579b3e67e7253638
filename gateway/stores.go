package gateway

import (
	"context"
	"time"

	"github.com/example/bakery/pkg/auth"
	"github.com/example/bakery/pkg/checkout"
	"github.com/example/bakery/pkg/delivery"
	"github.com/example/bakery/pkg/discovery"
	"github.com/example/bakery/pkg/models"
	"github.com/example/bakery/pkg/payment"
	"github.com/example/bakery/pkg/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CakeStore interface {
	List(ctx context.Context, filter bson.M, sort bson.D, skip, limit int64) ([]models.Cake, int64, error)
	All(ctx context.Context) ([]models.Cake, error)
	Featured(ctx context.Context, limit int64) ([]models.Cake, error)
	Get(ctx context.Context, idOrSlug string) (*models.Cake, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Cake, error)
	Create(ctx context.Context, cake *models.Cake) error
	Update(ctx context.Context, id primitive.ObjectID, cake *models.Cake) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	SetAvailable(ctx context.Context, id primitive.ObjectID, available bool) error
	AddImage(ctx context.Context, id primitive.ObjectID, url string) error
	AddReview(ctx context.Context, id primitive.ObjectID, review models.Review) (*models.Cake, error)
	UpsertByName(ctx context.Context, cake *models.Cake) (bool, error)
	CountByCategory(ctx context.Context, categoryID primitive.ObjectID) (int64, error)
}

type CategoryStore interface {
	List(ctx context.Context, activeOnly bool) ([]models.Category, error)
	Get(ctx context.Context, idOrSlug string) (*models.Category, error)
	Create(ctx context.Context, c *models.Category) error
	Update(ctx context.Context, id primitive.ObjectID, c *models.Category) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type AddonStore interface {
	List(ctx context.Context, availableOnly bool) ([]models.Addon, error)
	Create(ctx context.Context, a *models.Addon) error
	Update(ctx context.Context, id primitive.ObjectID, a *models.Addon) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type LocationStore interface {
	List(ctx context.Context, availableOnly bool) ([]models.Location, error)
	Create(ctx context.Context, l *models.Location) error
	Update(ctx context.Context, id primitive.ObjectID, l *models.Location) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type BannerStore interface {
	List(ctx context.Context, activeOnly bool) ([]models.Banner, error)
	Create(ctx context.Context, b *models.Banner) error
	Update(ctx context.Context, id primitive.ObjectID, b *models.Banner) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type NewsStore interface {
	List(ctx context.Context, publishedOnly bool, skip, limit int64) ([]models.News, int64, error)
	GetBySlug(ctx context.Context, slug string, publishedOnly bool) (*models.News, error)
	Create(ctx context.Context, n *models.News) error
	Update(ctx context.Context, id primitive.ObjectID, n *models.News) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type SubscriberStore interface {
	Exists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, sub *models.Subscriber) error
	List(ctx context.Context, skip, limit int64) ([]models.Subscriber, int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type CouponStore interface {
	List(ctx context.Context) ([]models.Coupon, error)
	Create(ctx context.Context, c *models.Coupon) error
	Update(ctx context.Context, id primitive.ObjectID, c *models.Coupon) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type SettingsStore interface {
	Get(ctx context.Context) (*models.Settings, error)
	Put(ctx context.Context, s *models.Settings) error
}

type UserStore interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UpsertFromProvider(ctx context.Context, u *models.User) (*models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, name, phone, picture string) (*models.User, error)
	SaveAddresses(ctx context.Context, u *models.User) error
	AddToWishlist(ctx context.Context, id, cakeID primitive.ObjectID) error
	RemoveFromWishlist(ctx context.Context, id, cakeID primitive.ObjectID) error
	List(ctx context.Context, skip, limit int64) ([]models.User, int64, error)
}

type CartStore interface {
	Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
	Clear(ctx context.Context, userID primitive.ObjectID) error
}

type OrderStore interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	GetForUser(ctx context.Context, id, userID primitive.ObjectID) (*models.Order, error)
	ListForUser(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]models.Order, int64, error)
	List(ctx context.Context, f repository.OrderFilter, skip, limit int64) ([]models.Order, int64, error)
	Stats(ctx context.Context, from, to time.Time, tz string) (*models.Stats, error)
}

type PaymentLedger interface {
	ForOrder(ctx context.Context, orderID string) ([]models.PaymentTransaction, error)
}

type AuditStore interface {
	CreateAuditLog(ctx context.Context, log *repository.AuditLog) error
	GetAuditLogs(ctx context.Context, entityID string, limit int64) ([]*repository.AuditLog, error)
}

// CatalogCache holds serialized listing pages. Optional.
type CatalogCache interface {
	GetCatalogPage(ctx context.Context, key string, dest interface{}) error
	SetCatalogPage(ctx context.Context, key string, page interface{}, ttl time.Duration) error
	BumpCatalogVersion(ctx context.Context) error
}

type DeliveryChecker interface {
	Check(ctx context.Context, req delivery.Request) (*delivery.Result, error)
}

// Checkout is the order placement and payment flow.
type Checkout interface {
	PriceUserCart(ctx context.Context, userID primitive.ObjectID) (*models.Cart, *checkout.PricedCart, error)
	Quote(ctx context.Context, userID primitive.ObjectID, couponCode string) (*checkout.Quote, error)
	ApplyCoupon(ctx context.Context, code string, subtotal float64) (*checkout.CouponResult, error)
	PlaceOrder(ctx context.Context, userID primitive.ObjectID, req checkout.PlaceOrderRequest) (*checkout.Placement, error)
	CreatePayment(ctx context.Context, userID, orderID primitive.ObjectID) (*payment.Order, error)
	Verify(ctx context.Context, userID primitive.ObjectID, req checkout.VerifyRequest) (*models.Order, error)
	Webhook(ctx context.Context, body []byte, signature string) error
	Cancel(ctx context.Context, userID, orderID primitive.ObjectID) (*models.Order, error)
	Advance(ctx context.Context, orderID primitive.ObjectID, to models.OrderStatus, by string) (*models.Order, error)
}

// Subscriptions receives new newsletter subscribers. Optional.
type Subscriptions interface {
	Subscribed(email string)
}

type Instances interface {
	Discover(ctx context.Context, serviceName string) ([]*discovery.ServiceInstance, error)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps wires the gateway to its stores and services. Optional fields may
// be nil: Cache, Subscriptions, Instances, Ledger and Identity.
type Deps struct {
	Cakes       CakeStore
	Categories  CategoryStore
	Addons      AddonStore
	Locations   LocationStore
	Banners     BannerStore
	News        NewsStore
	Subscribers SubscriberStore
	Coupons     CouponStore
	Settings    SettingsStore
	Users       UserStore
	Admins      auth.AdminStore
	Carts       CartStore
	Orders      OrderStore
	Ledger      PaymentLedger
	Audit       AuditStore

	Cache         CatalogCache
	Delivery      DeliveryChecker
	Checkout      Checkout
	Subscriptions Subscriptions
	Instances     Instances

	Tokens   *auth.TokenIssuer
	Identity auth.IdentityVerifier
	Live     *LiveHub

	Health map[string]Pinger
}
