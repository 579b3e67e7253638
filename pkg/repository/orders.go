package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/example/bakery/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OrderFilter narrows the admin order listing. Zero values match all.
type OrderFilter struct {
	Status        models.OrderStatus
	PaymentStatus models.PaymentStatus
	From          time.Time
	To            time.Time
}

func (f OrderFilter) bson() bson.M {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.PaymentStatus != "" {
		filter["payment_status"] = f.PaymentStatus
	}
	if r := dateRange(f.From, f.To); len(r) > 0 {
		filter["created_at"] = r
	}
	return filter
}

func dateRange(from, to time.Time) bson.M {
	r := bson.M{}
	if !from.IsZero() {
		r["$gte"] = from
	}
	if !to.IsZero() {
		r["$lt"] = to
	}
	return r
}

// PaymentUpdate is the outcome of a gateway callback applied to an order.
type PaymentUpdate struct {
	Status           models.PaymentStatus
	GatewayPaymentID string
	By               string
}

type OrderStore struct {
	orders collection[models.Order]
}

func NewOrderStore(m *MongoRepository) *OrderStore {
	return &OrderStore{orders: newCollection[models.Order](m, OrdersCollection)}
}

func (s *OrderStore) Create(ctx context.Context, o *models.Order) error {
	now := time.Now().UTC()
	o.ID = primitive.NewObjectID()
	o.CreatedAt, o.UpdatedAt = now, now
	o.History = append(o.History, models.StatusChange{Status: o.Status, At: now, By: "checkout"})
	return s.orders.insert(ctx, o)
}

func (s *OrderStore) Get(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return s.orders.findOne(ctx, bson.M{"_id": id})
}

func (s *OrderStore) GetForUser(ctx context.Context, id, userID primitive.ObjectID) (*models.Order, error) {
	return s.orders.findOne(ctx, bson.M{"_id": id, "user_id": userID})
}

func (s *OrderStore) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	return s.orders.findOne(ctx, bson.M{"gateway_order_id": gatewayOrderID})
}

func (s *OrderStore) ListForUser(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]models.Order, int64, error) {
	return s.orders.page(ctx, bson.M{"user_id": userID}, bson.D{{Key: "created_at", Value: -1}}, skip, limit)
}

func (s *OrderStore) List(ctx context.Context, f OrderFilter, skip, limit int64) ([]models.Order, int64, error) {
	return s.orders.page(ctx, f.bson(), bson.D{{Key: "created_at", Value: -1}}, skip, limit)
}

// UpdateStatus moves an order from one status to the next. The write only
// applies while the order is still in `from`; otherwise ErrConflict.
func (s *OrderStore) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus, by string) (*models.Order, error) {
	now := time.Now().UTC()
	update := bson.M{
		"$set":  bson.M{"status": to, "updated_at": now},
		"$push": bson.M{"history": models.StatusChange{Status: to, At: now, By: by}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var out models.Order
	err := s.orders.coll.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": from}, update, opts).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: order is no longer %s", ErrConflict, from)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	return &out, nil
}

func (s *OrderStore) SetGatewayOrder(ctx context.Context, id primitive.ObjectID, gatewayOrderID string) error {
	return s.orders.updateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"gateway_order_id": gatewayOrderID,
		"updated_at":       time.Now().UTC(),
	}})
}

// ApplyPayment records a payment outcome. It is idempotent: an order that
// is already paid is left alone and changed is false. A successful payment
// confirms a pending order in the same update.
func (s *OrderStore) ApplyPayment(ctx context.Context, id primitive.ObjectID, p PaymentUpdate) (*models.Order, bool, error) {
	now := time.Now().UTC()
	filter := bson.M{"_id": id, "payment_status": bson.M{"$nin": bson.A{models.PaymentPaid, p.Status}}}

	set := bson.M{
		"payment_status": p.Status,
		"updated_at":     now,
	}
	if p.GatewayPaymentID != "" {
		set["gateway_payment_id"] = p.GatewayPaymentID
	}
	if p.Status == models.PaymentPaid {
		isPending := bson.M{"$eq": bson.A{"$status", models.OrderPending}}
		set["status"] = bson.M{"$cond": bson.A{isPending, models.OrderConfirmed, "$status"}}
		set["history"] = bson.M{"$cond": bson.A{
			isPending,
			bson.M{"$concatArrays": bson.A{
				bson.M{"$ifNull": bson.A{"$history", bson.A{}}},
				bson.M{"$literal": bson.A{models.StatusChange{Status: models.OrderConfirmed, At: now, By: p.By}}},
			}},
			"$history",
		}}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var out models.Order
	err := s.orders.coll.FindOneAndUpdate(ctx, filter, mongo.Pipeline{{{Key: "$set", Value: set}}}, opts).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		current, getErr := s.Get(ctx, id)
		if getErr != nil {
			return nil, false, getErr
		}
		return current, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to apply payment: %w", err)
	}
	return &out, true, nil
}

type statsFacet struct {
	All []struct {
		Orders int64 `bson:"orders"`
	} `bson:"all"`
	Revenue []struct {
		Orders  int64   `bson:"orders"`
		Revenue float64 `bson:"revenue"`
	} `bson:"revenue"`
	ByStatus []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	} `bson:"by_status"`
	ByDay    []models.DayRevenue `bson:"by_day"`
	TopCakes []models.TopCake    `bson:"top_cakes"`
}

// Stats summarises orders created in [from, to). Revenue counts paid orders
// and delivered cash-on-delivery orders; days are bucketed in timezone tz.
func (s *OrderStore) Stats(ctx context.Context, from, to time.Time, tz string) (*models.Stats, error) {
	match := bson.M{}
	if r := dateRange(from, to); len(r) > 0 {
		match["created_at"] = r
	}
	earning := bson.M{
		"status": bson.M{"$ne": models.OrderCancelled},
		"$or": bson.A{
			bson.M{"payment_status": models.PaymentPaid},
			bson.M{"payment_method": models.PaymentCOD, "status": models.OrderDelivered},
		},
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$facet", Value: bson.M{
			"all": bson.A{bson.M{"$count": "orders"}},
			"revenue": bson.A{
				bson.M{"$match": earning},
				bson.M{"$group": bson.M{"_id": nil, "orders": bson.M{"$sum": 1}, "revenue": bson.M{"$sum": "$totals.total"}}},
			},
			"by_status": bson.A{
				bson.M{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}},
			},
			"by_day": bson.A{
				bson.M{"$match": earning},
				bson.M{"$group": bson.M{
					"_id":     bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$created_at", "timezone": tz}},
					"orders":  bson.M{"$sum": 1},
					"revenue": bson.M{"$sum": "$totals.total"},
				}},
				bson.M{"$sort": bson.M{"_id": 1}},
			},
			"top_cakes": bson.A{
				bson.M{"$match": bson.M{"status": bson.M{"$ne": models.OrderCancelled}}},
				bson.M{"$unwind": "$items"},
				bson.M{"$group": bson.M{
					"_id":      "$items.cake_id",
					"name":     bson.M{"$first": "$items.name"},
					"quantity": bson.M{"$sum": "$items.quantity"},
					"revenue":  bson.M{"$sum": bson.M{"$multiply": bson.A{"$items.unit_price", "$items.quantity"}}},
				}},
				bson.M{"$sort": bson.D{{Key: "quantity", Value: -1}, {Key: "revenue", Value: -1}}},
				bson.M{"$limit": 5},
			},
		}}},
	}

	cursor, err := s.orders.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}
	defer cursor.Close(ctx)

	var facets []statsFacet
	if err := cursor.All(ctx, &facets); err != nil {
		return nil, fmt.Errorf("failed to decode stats: %w", err)
	}

	stats := &models.Stats{
		ByStatus:     map[string]int64{},
		RevenueByDay: []models.DayRevenue{},
		TopCakes:     []models.TopCake{},
	}
	if len(facets) == 0 {
		return stats, nil
	}
	f := facets[0]
	if len(f.All) > 0 {
		stats.Totals.Orders = f.All[0].Orders
	}
	if len(f.Revenue) > 0 && f.Revenue[0].Orders > 0 {
		stats.Totals.Revenue = math.Round(f.Revenue[0].Revenue*100) / 100
		stats.Totals.AverageOrderValue = math.Round(f.Revenue[0].Revenue/float64(f.Revenue[0].Orders)*100) / 100
	}
	for _, st := range f.ByStatus {
		stats.ByStatus[st.Status] = st.Count
	}
	if f.ByDay != nil {
		stats.RevenueByDay = f.ByDay
	}
	if f.TopCakes != nil {
		stats.TopCakes = f.TopCakes
	}
	return stats, nil
}
