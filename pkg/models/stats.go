package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type StatsTotals struct {
	Orders            int64   `bson:"orders" json:"orders"`
	Revenue           float64 `bson:"revenue" json:"revenue"`
	AverageOrderValue float64 `bson:"average_order_value" json:"average_order_value"`
}

type DayRevenue struct {
	Date    string  `bson:"_id" json:"date"`
	Orders  int64   `bson:"orders" json:"orders"`
	Revenue float64 `bson:"revenue" json:"revenue"`
}

type TopCake struct {
	CakeID   primitive.ObjectID `bson:"_id" json:"cake_id"`
	Name     string             `bson:"name" json:"name"`
	Quantity int64              `bson:"quantity" json:"quantity"`
	Revenue  float64            `bson:"revenue" json:"revenue"`
}

// Stats is the admin dashboard summary for a date range.
type Stats struct {
	Totals       StatsTotals      `json:"totals"`
	ByStatus     map[string]int64 `json:"by_status"`
	RevenueByDay []DayRevenue     `json:"revenue_by_day"`
	TopCakes     []TopCake        `json:"top_cakes"`
}
