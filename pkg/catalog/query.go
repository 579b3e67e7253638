// Package catalog turns storefront listing parameters into Mongo queries
// and paginated results.
package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/example/bakery/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultLimit = 12
	MaxLimit     = 60
)

const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortRating    = "rating"
	SortPopular   = "popular"
	SortName      = "name"
)

var ErrInvalidQuery = errors.New("invalid query")

var sorts = map[string]bson.D{
	SortNewest:    {{Key: "created_at", Value: -1}},
	SortPriceAsc:  {{Key: "prices.sell_price", Value: 1}},
	SortPriceDesc: {{Key: "prices.sell_price", Value: -1}},
	SortRating:    {{Key: "average_rating", Value: -1}, {Key: "review_count", Value: -1}},
	SortPopular:   {{Key: "sold_count", Value: -1}},
	SortName:      {{Key: "name", Value: 1}},
}

// Query is a parsed cake listing request.
type Query struct {
	Search    string
	Category  string
	Type      string
	CakeType  string
	MinPrice  *float64
	MaxPrice  *float64
	Weight    string
	Available *bool
	SortBy    string
	Page      int
	PageSize  int

	// CategoryID is Category resolved to a document id by the caller.
	CategoryID primitive.ObjectID
}

func invalid(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidQuery, field, fmt.Sprintf(format, args...))
}

// ParseQuery reads listing parameters. Unknown enum values and malformed
// numbers are rejected rather than ignored.
func ParseQuery(values url.Values) (Query, error) {
	q := Query{
		Search:   strings.TrimSpace(firstOf(values, "search", "q")),
		Category: strings.TrimSpace(values.Get("category")),
		Type:     strings.ToLower(strings.TrimSpace(values.Get("type"))),
		CakeType: strings.ToLower(strings.TrimSpace(values.Get("caketype"))),
		Weight:   strings.TrimSpace(values.Get("weight")),
		SortBy:   strings.ToLower(strings.TrimSpace(values.Get("sort"))),
		Page:     1,
		PageSize: DefaultLimit,
	}

	if q.Type != "" && q.Type != models.TypeEgg && q.Type != models.TypeEggless {
		return Query{}, invalid("type", "must be %q or %q", models.TypeEgg, models.TypeEggless)
	}
	if q.CakeType != "" && q.CakeType != models.CakeTypeCake && q.CakeType != models.CakeTypePastry {
		return Query{}, invalid("caketype", "must be %q or %q", models.CakeTypeCake, models.CakeTypePastry)
	}
	if q.SortBy == "" {
		q.SortBy = SortNewest
	}
	if _, ok := sorts[q.SortBy]; !ok {
		return Query{}, invalid("sort", "%q is not supported", q.SortBy)
	}

	var err error
	if q.MinPrice, err = parsePrice(values, "min_price"); err != nil {
		return Query{}, err
	}
	if q.MaxPrice, err = parsePrice(values, "max_price"); err != nil {
		return Query{}, err
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return Query{}, invalid("min_price", "cannot exceed max_price")
	}

	if raw := values.Get("available"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return Query{}, invalid("available", "must be a boolean")
		}
		q.Available = &b
	}

	if raw := values.Get("page"); raw != "" {
		if q.Page, err = strconv.Atoi(raw); err != nil || q.Page < 1 {
			return Query{}, invalid("page", "must be a positive integer")
		}
	}
	if raw := values.Get("limit"); raw != "" {
		if q.PageSize, err = strconv.Atoi(raw); err != nil || q.PageSize < 1 {
			return Query{}, invalid("limit", "must be a positive integer")
		}
		if q.PageSize > MaxLimit {
			q.PageSize = MaxLimit
		}
	}
	return q, nil
}

func firstOf(values url.Values, keys ...string) string {
	for _, k := range keys {
		if v := values.Get(k); v != "" {
			return v
		}
	}
	return ""
}

func parsePrice(values url.Values, key string) (*float64, error) {
	raw := values.Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil, invalid(key, "must be a non-negative number")
	}
	return &v, nil
}

// Filter builds the Mongo filter. Price bounds and weight apply to the same
// price option so "1kg under 800" means exactly that.
func (q Query) Filter() bson.M {
	f := bson.M{}
	if q.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		f["$or"] = bson.A{bson.M{"name": re}, bson.M{"description": re}}
	}
	if !q.CategoryID.IsZero() {
		f["category"] = q.CategoryID
	}
	if q.Type != "" {
		f["type"] = q.Type
	}
	if q.CakeType != "" {
		f["caketype"] = q.CakeType
	}
	if q.Available != nil {
		f["available"] = *q.Available
	}

	elem := bson.M{}
	price := bson.M{}
	if q.MinPrice != nil {
		price["$gte"] = *q.MinPrice
	}
	if q.MaxPrice != nil {
		price["$lte"] = *q.MaxPrice
	}
	if len(price) > 0 {
		elem["sell_price"] = price
	}
	if q.Weight != "" {
		elem["weight"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(q.Weight) + "$", Options: "i"}
	}
	if len(elem) > 0 {
		f["prices"] = bson.M{"$elemMatch": elem}
	}
	return f
}

// Sort returns the sort document, with _id as a tie-breaker so pages
// never overlap.
func (q Query) Sort() bson.D {
	s, ok := sorts[q.SortBy]
	if !ok {
		s = sorts[SortNewest]
	}
	out := make(bson.D, 0, len(s)+1)
	out = append(out, s...)
	return append(out, bson.E{Key: "_id", Value: -1})
}

func (q Query) Skip() int64 {
	return int64(q.Page-1) * int64(q.PageSize)
}

func (q Query) Limit() int64 {
	return int64(q.PageSize)
}

// CacheKey is a canonical encoding of the query; equivalent requests map
// to the same key.
func (q Query) CacheKey() string {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("search", strings.ToLower(q.Search))
	if !q.CategoryID.IsZero() {
		set("category", q.CategoryID.Hex())
	} else {
		set("category", q.Category)
	}
	set("type", q.Type)
	set("caketype", q.CakeType)
	if q.MinPrice != nil {
		set("min_price", strconv.FormatFloat(*q.MinPrice, 'f', -1, 64))
	}
	if q.MaxPrice != nil {
		set("max_price", strconv.FormatFloat(*q.MaxPrice, 'f', -1, 64))
	}
	set("weight", strings.ToLower(q.Weight))
	if q.Available != nil {
		set("available", strconv.FormatBool(*q.Available))
	}
	set("sort", q.SortBy)
	set("page", strconv.Itoa(q.Page))
	set("limit", strconv.Itoa(q.PageSize))
	return v.Encode()
}
