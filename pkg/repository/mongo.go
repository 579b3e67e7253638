package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/bakery/pkg/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Collection names.
const (
	CakesCollection       = "cakes"
	CategoriesCollection  = "categories"
	AddonsCollection      = "addons"
	OrdersCollection      = "orders"
	SubscribersCollection = "subscribers"
	LocationsCollection   = "locations"
	UsersCollection       = "users"
	AdminsCollection      = "admins"
	CartsCollection       = "carts"
	CouponsCollection     = "coupons"
	BannersCollection     = "banners"
	NewsCollection        = "news"
	SettingsCollection    = "settings"
)

type MongoRepository struct {
	client   *mongo.Client
	database *mongo.Database
	config   *config.MongoDBConfig
}

func NewMongoRepository(cfg *config.MongoDBConfig) (*MongoRepository, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	return &MongoRepository{
		client:   client,
		database: client.Database(cfg.Database),
		config:   cfg,
	}, nil
}

func (m *MongoRepository) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoRepository) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *MongoRepository) Collection(name string) *mongo.Collection {
	return m.database.Collection(name)
}

// EnsureIndexes creates the unique, lookup and geo indexes the stores rely on.
func (m *MongoRepository) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	indexes := map[string][]mongo.IndexModel{
		CakesCollection: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "available", Value: 1}}},
			{Keys: bson.D{{Key: "prices.sell_price", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		CategoriesCollection:  {{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique}},
		UsersCollection:       {{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique}},
		AdminsCollection:      {{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique}},
		SubscribersCollection: {{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique}},
		CouponsCollection:     {{Keys: bson.D{{Key: "code", Value: 1}}, Options: unique}},
		CartsCollection:       {{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: unique}},
		NewsCollection:        {{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique}},
		LocationsCollection: {
			{Keys: bson.D{{Key: "coordinates", Value: "2dsphere"}}},
			{Keys: bson.D{{Key: "pincode", Value: 1}}},
		},
		OrdersCollection: {
			{Keys: bson.D{{Key: "order_number", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "gateway_order_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		m.config.AuditLog: {{Keys: bson.D{{Key: "entity_id", Value: 1}, {Key: "created_at", Value: -1}}}},
	}

	for name, models := range indexes {
		if _, err := m.database.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// AuditLog represents an audit log entry
type AuditLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Service   string             `bson:"service" json:"service"`
	Actor     string             `bson:"actor" json:"actor"`
	Action    string             `bson:"action" json:"action"`
	EntityID  string             `bson:"entity_id" json:"entity_id"`
	Data      bson.M             `bson:"data" json:"data"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

func (m *MongoRepository) CreateAuditLog(ctx context.Context, log *AuditLog) error {
	collection := m.database.Collection(m.config.AuditLog)
	log.CreatedAt = time.Now().UTC()
	_, err := collection.InsertOne(ctx, log)
	return err
}

func (m *MongoRepository) GetAuditLogs(ctx context.Context, entityID string, limit int64) ([]*AuditLog, error) {
	collection := m.database.Collection(m.config.AuditLog)

	filter := bson.M{}
	if entityID != "" {
		filter["entity_id"] = entityID
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	logs := []*AuditLog{}
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}

	return logs, nil
}

// ParseID converts a hex id from a URL into an ObjectID. A malformed id can
// never match a document, so it is reported as ErrNotFound.
func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: invalid id %q", ErrNotFound, hex)
	}
	return id, nil
}

// collection wraps a mongo collection with typed helpers and maps driver
// errors onto ErrNotFound and ErrConflict.
type collection[T any] struct {
	coll *mongo.Collection
}

func newCollection[T any](m *MongoRepository, name string) collection[T] {
	return collection[T]{coll: m.database.Collection(name)}
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func (c collection[T]) findOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) (*T, error) {
	var doc T
	if err := c.coll.FindOne(ctx, filter, opts...).Decode(&doc); err != nil {
		return nil, mapError(err)
	}
	return &doc, nil
}

func (c collection[T]) find(ctx context.Context, filter any, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := c.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := []T{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (c collection[T]) insert(ctx context.Context, doc *T) error {
	_, err := c.coll.InsertOne(ctx, doc)
	return mapError(err)
}

func (c collection[T]) replace(ctx context.Context, id primitive.ObjectID, doc *T) error {
	res, err := c.coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return mapError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c collection[T]) updateOne(ctx context.Context, filter, update any) error {
	res, err := c.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return mapError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c collection[T]) delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := c.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c collection[T]) page(ctx context.Context, filter any, sort bson.D, skip, limit int64) ([]T, int64, error) {
	total, err := c.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().SetSort(sort).SetSkip(skip).SetLimit(limit)
	docs, err := c.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}
