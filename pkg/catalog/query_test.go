package catalog

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParseQueryDefaults(t *testing.T) {
	q, err := ParseQuery(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, SortNewest, q.SortBy)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, DefaultLimit, q.PageSize)
	assert.Equal(t, int64(0), q.Skip())
	assert.Equal(t, bson.M{}, q.Filter())
}

func TestParseQueryRejectsBadInput(t *testing.T) {
	bad := []url.Values{
		{"type": {"vegan"}},
		{"caketype": {"cookie"}},
		{"sort": {"random"}},
		{"min_price": {"cheap"}},
		{"max_price": {"-1"}},
		{"min_price": {"500"}, "max_price": {"100"}},
		{"available": {"maybe"}},
		{"page": {"0"}},
		{"limit": {"x"}},
	}
	for _, v := range bad {
		_, err := ParseQuery(v)
		assert.ErrorIs(t, err, ErrInvalidQuery, v.Encode())
	}
}

func TestParseQueryCapsLimit(t *testing.T) {
	q, err := ParseQuery(url.Values{"limit": {"500"}, "page": {"3"}})
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, q.PageSize)
	assert.Equal(t, int64(2*MaxLimit), q.Skip())
	assert.Equal(t, int64(MaxLimit), q.Limit())
}

func TestFilterCombinesPriceAndWeight(t *testing.T) {
	cat := primitive.NewObjectID()
	q, err := ParseQuery(url.Values{
		"search":    {"choco (dark)"},
		"type":      {"Eggless"},
		"caketype":  {"cake"},
		"min_price": {"300"},
		"max_price": {"900"},
		"weight":    {"1kg"},
		"available": {"true"},
	})
	require.NoError(t, err)
	q.CategoryID = cat

	f := q.Filter()
	assert.Equal(t, "eggless", f["type"])
	assert.Equal(t, "cake", f["caketype"])
	assert.Equal(t, true, f["available"])
	assert.Equal(t, cat, f["category"])

	re := primitive.Regex{Pattern: `choco \(dark\)`, Options: "i"}
	assert.Equal(t, bson.A{bson.M{"name": re}, bson.M{"description": re}}, f["$or"])

	assert.Equal(t, bson.M{"$elemMatch": bson.M{
		"sell_price": bson.M{"$gte": 300.0, "$lte": 900.0},
		"weight":     primitive.Regex{Pattern: "^1kg$", Options: "i"},
	}}, f["prices"])
}

func TestSortHasTieBreaker(t *testing.T) {
	q, err := ParseQuery(url.Values{"sort": {"price_asc"}})
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "prices.sell_price", Value: 1}, {Key: "_id", Value: -1}}, q.Sort())

	q, _ = ParseQuery(url.Values{"sort": {"rating"}})
	assert.Equal(t, "average_rating", q.Sort()[0].Key)
	// the shared sort table must not be mutated
	assert.Len(t, sorts[SortRating], 2)
}

func TestCacheKeyIsCanonical(t *testing.T) {
	a, err := ParseQuery(url.Values{"type": {"egg"}, "search": {"Truffle"}, "limit": {"12"}})
	require.NoError(t, err)
	b, err := ParseQuery(url.Values{"q": {"truffle"}, "type": {"EGG"}})
	require.NoError(t, err)
	assert.Equal(t, a.CacheKey(), b.CacheKey())

	c, _ := ParseQuery(url.Values{"type": {"egg"}, "search": {"truffle"}, "page": {"2"}})
	assert.NotEqual(t, a.CacheKey(), c.CacheKey())
}

func TestNewPage(t *testing.T) {
	tests := []struct {
		total       int64
		page, limit int
		want        Page
	}{
		{0, 1, 12, Page{Total: 0, Page: 1, Limit: 12, TotalPages: 0}},
		{25, 1, 12, Page{Total: 25, Page: 1, Limit: 12, TotalPages: 3, HasNext: true}},
		{25, 3, 12, Page{Total: 25, Page: 3, Limit: 12, TotalPages: 3, HasPrev: true}},
		{24, 2, 12, Page{Total: 24, Page: 2, Limit: 12, TotalPages: 2, HasPrev: true}},
		{10, 5, 12, Page{Total: 10, Page: 5, Limit: 12, TotalPages: 1, HasPrev: true}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NewPage(tt.total, tt.page, tt.limit))
	}
}
