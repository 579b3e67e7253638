package gateway

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/example/bakery/pkg/auth"
	"github.com/example/bakery/pkg/catalog"
	"github.com/example/bakery/pkg/models"
	"github.com/example/bakery/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (h *harness) upload(path, field, filename string, content []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile(field, filename)
	_, _ = part.Write(content)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+h.adminToken)
	w := httptest.NewRecorder()
	h.g.Handler().ServeHTTP(w, req)
	return w
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/admin/orders", nil, "").Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/admin/orders", nil, h.userToken).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/admin/orders", nil, h.adminToken).Code)
}

func TestAdminLogin(t *testing.T) {
	h := newHarness(t)
	hash, err := auth.HashPassword("s3cret-pass")
	require.NoError(t, err)
	h.admins.admins["owner@example.com"] = &models.Admin{ID: primitive.NewObjectID(), Email: "owner@example.com", Name: "Owner", PasswordHash: hash}

	w := h.do(http.MethodPost, "/api/auth/admin/login", map[string]string{"email": "Owner@Example.com", "password": "s3cret-pass"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	session := decode[struct {
		AccessToken string       `json:"access_token"`
		Admin       models.Admin `json:"admin"`
	}](t, w)
	assert.Equal(t, "owner@example.com", session.Admin.Email)
	assert.NotContains(t, w.Body.String(), hash)
	assert.Contains(t, h.audit.actions(), "admin.login")

	w = h.do(http.MethodGet, "/api/admin/settings", nil, session.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(http.MethodPost, "/api/auth/admin/login", map[string]string{"email": "owner@example.com", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = h.do(http.MethodPost, "/api/auth/admin/login", map[string]string{"email": "nobody@example.com", "password": "s3cret-pass"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminCategoryCRUD(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/api/admin/categories", map[string]string{"name": "Wedding Cakes"}, h.adminToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.Category](t, w)
	assert.Equal(t, "wedding-cakes", created.Slug)
	assert.Equal(t, models.CategoryActive, created.Status)

	w = h.do(http.MethodPost, "/api/admin/categories", map[string]string{"name": "Wedding Cakes"}, h.adminToken)
	assert.Equal(t, http.StatusConflict, w.Code, "slugs are unique")

	w = h.do(http.MethodPost, "/api/admin/categories", map[string]string{"name": "x", "status": "archived"}, h.adminToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPut, "/api/admin/categories/"+created.ID.Hex(), map[string]string{"name": "Weddings", "slug": "weddings"}, h.adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, h.cache.bumps, "renaming a category invalidates listings")

	w = h.do(http.MethodDelete, "/api/admin/categories/"+h.category.ID.Hex(), nil, h.adminToken)
	assert.Equal(t, http.StatusConflict, w.Code, "category still has cakes")

	w = h.do(http.MethodDelete, "/api/admin/categories/"+created.ID.Hex(), nil, h.adminToken)
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(http.MethodDelete, "/api/admin/categories/not-an-id", nil, h.adminToken)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, []string{"category.create", "category.update", "category.delete"}, h.audit.actions())
	assert.Equal(t, "admin@example.com", h.audit.logs[0].Actor)
	assert.Equal(t, "bakery-api", h.audit.logs[0].Service)
}

func TestAdminCreateCake(t *testing.T) {
	h := newHarness(t)
	body := map[string]any{
		"name":        "Red Velvet",
		"description": "Cream cheese frosting",
		"type":        "EGGLESS",
		"caketype":    "cake",
		"category":    h.category.ID.Hex(),
		"prices":      []map[string]any{{"weight": "500g", "cost_price": 200, "sell_price": 450}},
		"available":   true,
		"sold_count":  99,
	}
	w := h.do(http.MethodPost, "/api/admin/cakes", body, h.adminToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	cake := decode[models.Cake](t, w)
	assert.Equal(t, models.TypeEggless, cake.Type)
	assert.Equal(t, "red-velvet", cake.Slug)
	assert.Zero(t, cake.SoldCount, "counters are owned by the store")
	assert.Equal(t, 1, h.cache.bumps)

	body["category"] = primitive.NewObjectID().Hex()
	w = h.do(http.MethodPost, "/api/admin/cakes", body, h.adminToken)
	assert.Equal(t, http.StatusBadRequest, w.Code, "category must exist")

	delete(body, "category")
	w = h.do(http.MethodPost, "/api/admin/cakes", body, h.adminToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminOrders(t *testing.T) {
	h := newHarness(t)
	order := models.Order{ID: primitive.NewObjectID(), OrderNumber: "BK-1", Status: models.OrderPending}
	h.orders.orders = []models.Order{order}

	w := h.do(http.MethodGet, "/api/admin/orders?status=pending&from=2024-05-01&to=2024-05-31", nil, h.adminToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "BK-1")
	assert.Equal(t, models.OrderPending, h.orders.lastFilter.Status)
	loc := h.cfg.Store.Location()
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, loc), h.orders.lastFilter.From)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, loc), h.orders.lastFilter.To, "the upper bound is inclusive")

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/admin/orders?status=lost", nil, h.adminToken).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/admin/orders?from=05/01/2024", nil, h.adminToken).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/admin/orders?from=2024-06-01&to=2024-05-01", nil, h.adminToken).Code)

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/admin/orders/"+order.ID.Hex(), nil, h.adminToken).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/admin/orders/"+primitive.NewObjectID().Hex(), nil, h.adminToken).Code)

	path := "/api/admin/orders/" + order.ID.Hex() + "/status"
	w = h.do(http.MethodPut, path, map[string]string{"status": "confirmed"}, h.adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []models.OrderStatus{models.OrderConfirmed}, h.checkout.advanced)
	assert.Contains(t, h.audit.actions(), "order.status")

	w = h.do(http.MethodPut, path, map[string]string{"status": "eaten"}, h.adminToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	h.checkout.advanceErr = repository.ErrConflict
	w = h.do(http.MethodPut, path, map[string]string{"status": "delivered"}, h.adminToken)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(http.MethodGet, "/api/admin/orders/"+order.ID.Hex()+"/payments", nil, h.adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"transactions":[]}`, w.Body.String())
}

func TestAdminStats(t *testing.T) {
	h := newHarness(t)
	loc := h.cfg.Store.Location()
	h.g.now = func() time.Time { return time.Date(2024, 5, 10, 20, 0, 0, 0, time.UTC) }

	w := h.do(http.MethodGet, "/api/admin/stats", nil, h.adminToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Asia/Kolkata", h.orders.statsTZ)
	// 20:00 UTC is already the 11th in Kolkata.
	assert.Equal(t, time.Date(2024, 5, 12, 0, 0, 0, 0, loc), h.orders.statsTo)
	assert.Equal(t, time.Date(2024, 4, 12, 0, 0, 0, 0, loc), h.orders.statsFrom)
	assert.Contains(t, w.Body.String(), `"average_order_value":750`)

	w = h.do(http.MethodGet, "/api/admin/stats?from=2024-01-01&to=2024-01-31", nil, h.adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, loc), h.orders.statsFrom)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, loc), h.orders.statsTo)
}

func TestAdminSettings(t *testing.T) {
	h := newHarness(t)
	s := models.DefaultSettings()
	s.DeliveryCharge = 75
	s.CODEnabled = false

	w := h.do(http.MethodPut, "/api/admin/settings", s, h.adminToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 75.0, h.settings.settings.DeliveryCharge)
	assert.False(t, h.settings.settings.CODEnabled)
	assert.Contains(t, h.audit.actions(), "settings.update")

	s.DeliverySlots = nil
	w = h.do(http.MethodPut, "/api/admin/settings", s, h.adminToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s = models.DefaultSettings()
	s.DeliveryCharge = -1
	w = h.do(http.MethodPut, "/api/admin/settings", s, h.adminToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 75.0, h.settings.settings.DeliveryCharge)
}

func TestAdminSubscribers(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/api/newsletter", map[string]string{"email": "a@example.com"}, "").Code)

	w := h.do(http.MethodGet, "/api/admin/subscribers", nil, h.adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "a@example.com")

	id := h.subs.subs[0].ID.Hex()
	require.Equal(t, http.StatusOK, h.do(http.MethodDelete, "/api/admin/subscribers/"+id, nil, h.adminToken).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/api/admin/subscribers/"+id, nil, h.adminToken).Code)
}

func TestAuditLogListing(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodPatch, "/api/admin/cakes/"+h.cake.ID.Hex()+"/availability", map[string]bool{"available": false}, h.adminToken)
	h.do(http.MethodPost, "/api/admin/categories", map[string]string{"name": "Cupcakes"}, h.adminToken)

	w := h.do(http.MethodGet, "/api/admin/audit/"+h.cake.ID.Hex(), nil, h.adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[struct {
		Logs []repository.AuditLog `json:"logs"`
	}](t, w)
	require.Len(t, body.Logs, 1)
	assert.Equal(t, "cake.availability", body.Logs[0].Action)

	w = h.do(http.MethodGet, "/api/admin/audit?limit=10", nil, h.adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "category.create")
}

func TestAuditLogListingWithoutStore(t *testing.T) {
	h := newHarness(t, func(d *Deps) { d.Audit = nil })

	w := h.do(http.MethodGet, "/api/admin/audit", nil, h.adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"logs":[],"audit":"disabled"}`, w.Body.String())

	w = h.do(http.MethodPost, "/api/admin/categories", map[string]string{"name": "Cupcakes"}, h.adminToken)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestInstancesWithoutRegistry(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/api/admin/instances", nil, h.adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"instances":[],"registry":"disabled"}`, w.Body.String())
}

func TestCakeSheetRoundTrip(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/api/admin/cakes/export", nil, h.adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "cakes-")
	sheet := w.Body.Bytes()

	parsed, err := catalog.ParseSheet(bytes.NewReader(sheet), map[string]primitive.ObjectID{"birthday": h.category.ID})
	require.NoError(t, err)
	require.Len(t, parsed.Cakes, 1)
	assert.Equal(t, h.category.ID, parsed.Cakes[0].Category, "the category column holds the slug")

	w = h.upload("/api/admin/cakes/import", "file", "cakes.xlsx", sheet)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"created":0,"updated":1,"skipped":[]}`, w.Body.String())
	assert.Equal(t, []string{"Black Forest"}, h.cakes.upserted)
	assert.Equal(t, 1, h.cache.bumps)
	assert.Contains(t, h.audit.actions(), "cake.import")

	w = h.upload("/api/admin/cakes/import", "file", "cakes.csv", []byte("Name\nBlack Forest\n"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.upload("/api/admin/cakes/import", "file", "broken.xlsx", []byte("not a workbook"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCakeImageUpload(t *testing.T) {
	h := newHarness(t)
	path := "/api/admin/cakes/" + h.cake.ID.Hex() + "/images"
	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

	w := h.upload(path, "image", "photo.jpg", png)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	url := decode[map[string]string](t, w)["url"]
	require.True(t, strings.HasPrefix(url, "/uploads/cakes/"), url)
	assert.True(t, strings.HasSuffix(url, ".png"), "extension follows the sniffed type")

	name := strings.TrimPrefix(url, "/uploads/cakes/")
	saved, err := os.ReadFile(filepath.Join(h.cfg.Uploads.Dir, "cakes", name))
	require.NoError(t, err)
	assert.Equal(t, png, saved)

	cake, err := h.cakes.Get(t.Context(), h.cake.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, []string{url}, cake.Images)

	served := h.do(http.MethodGet, url, nil, "")
	assert.Equal(t, http.StatusOK, served.Code)

	w = h.upload(path, "image", "notes.png", []byte("just some text"))
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w = h.upload("/api/admin/cakes/"+primitive.NewObjectID().Hex()+"/images", "image", "photo.png", png)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
