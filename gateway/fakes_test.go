package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/bakery/pkg/checkout"
	"github.com/example/bakery/pkg/delivery"
	"github.com/example/bakery/pkg/models"
	"github.com/example/bakery/pkg/payment"
	"github.com/example/bakery/pkg/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeCakes struct {
	mu        sync.Mutex
	cakes     map[primitive.ObjectID]*models.Cake
	listCalls int
	upserted  []string
}

func newFakeCakes(cakes ...models.Cake) *fakeCakes {
	f := &fakeCakes{cakes: map[primitive.ObjectID]*models.Cake{}}
	for i := range cakes {
		c := cakes[i]
		if c.ID.IsZero() {
			c.ID = primitive.NewObjectID()
		}
		f.cakes[c.ID] = &c
	}
	return f
}

func (f *fakeCakes) sorted() []models.Cake {
	out := make([]models.Cake, 0, len(f.cakes))
	for _, c := range f.cakes {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (f *fakeCakes) List(_ context.Context, _ bson.M, _ bson.D, skip, limit int64) ([]models.Cake, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	all := f.sorted()
	total := int64(len(all))
	if skip >= total {
		return nil, total, nil
	}
	end := skip + limit
	if end > total {
		end = total
	}
	return all[skip:end], total, nil
}

func (f *fakeCakes) All(context.Context) ([]models.Cake, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(), nil
}

func (f *fakeCakes) Featured(_ context.Context, limit int64) ([]models.Cake, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Cake
	for _, c := range f.sorted() {
		if c.Featured && int64(len(out)) < limit {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCakes) Get(_ context.Context, idOrSlug string) (*models.Cake, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cakes {
		if c.ID.Hex() == idOrSlug || c.Slug == idOrSlug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCakes) GetByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Cake, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[primitive.ObjectID]models.Cake{}
	for _, id := range ids {
		if c, ok := f.cakes[id]; ok {
			out[id] = *c
		}
	}
	return out, nil
}

func (f *fakeCakes) Create(_ context.Context, cake *models.Cake) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cake.ID = primitive.NewObjectID()
	if cake.Slug == "" {
		cake.Slug = models.Slugify(cake.Name)
	}
	cp := *cake
	f.cakes[cake.ID] = &cp
	return nil
}

func (f *fakeCakes) Update(_ context.Context, id primitive.ObjectID, cake *models.Cake) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.cakes[id]; !ok {
		return repository.ErrNotFound
	}
	cake.ID = id
	cp := *cake
	f.cakes[id] = &cp
	return nil
}

func (f *fakeCakes) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.cakes[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.cakes, id)
	return nil
}

func (f *fakeCakes) SetAvailable(_ context.Context, id primitive.ObjectID, available bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cakes[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.Available = available
	return nil
}

func (f *fakeCakes) AddImage(_ context.Context, id primitive.ObjectID, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cakes[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.Images = append(c.Images, url)
	return nil
}

func (f *fakeCakes) AddReview(_ context.Context, id primitive.ObjectID, review models.Review) (*models.Cake, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cakes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if c.HasReviewFrom(review.UserID) {
		return nil, models.ErrAlreadyReviewed
	}
	c.Reviews = append(c.Reviews, review)
	c.ReviewCount, c.AverageRating = models.RatingSummary(c.Reviews)
	cp := *c
	return &cp, nil
}

func (f *fakeCakes) UpsertByName(_ context.Context, cake *models.Cake) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, cake.Name)
	for _, c := range f.cakes {
		if c.Name == cake.Name {
			c.Prices = cake.Prices
			return false, nil
		}
	}
	cp := *cake
	cp.ID = primitive.NewObjectID()
	f.cakes[cp.ID] = &cp
	return true, nil
}

func (f *fakeCakes) CountByCategory(_ context.Context, categoryID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, c := range f.cakes {
		if c.Category == categoryID {
			n++
		}
	}
	return n, nil
}

type fakeCategories struct {
	mu         sync.Mutex
	categories []models.Category
}

func (f *fakeCategories) List(_ context.Context, activeOnly bool) ([]models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Category
	for _, c := range f.categories {
		if !activeOnly || c.Status == models.CategoryActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCategories) Get(_ context.Context, idOrSlug string) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.categories {
		if c.ID.Hex() == idOrSlug || c.Slug == idOrSlug {
			cp := c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCategories) Create(_ context.Context, c *models.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.categories {
		if existing.Slug == c.Slug {
			return repository.ErrConflict
		}
	}
	c.ID = primitive.NewObjectID()
	f.categories = append(f.categories, *c)
	return nil
}

func (f *fakeCategories) Update(_ context.Context, id primitive.ObjectID, c *models.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.categories {
		if f.categories[i].ID == id {
			c.ID = id
			f.categories[i] = *c
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeCategories) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.categories {
		if f.categories[i].ID == id {
			f.categories = append(f.categories[:i], f.categories[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{users: map[primitive.ObjectID]*models.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Get(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	cp.Addresses = append([]models.Address(nil), u.Addresses...)
	return &cp, nil
}

func (f *fakeUsers) UpsertFromProvider(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == models.NormalizeEmail(u.Email) {
			existing.Picture = u.Picture
			cp := *existing
			return &cp, nil
		}
	}
	created := *u
	created.ID = primitive.NewObjectID()
	created.Email = models.NormalizeEmail(u.Email)
	created.Role = models.RoleUser
	f.users[created.ID] = &created
	cp := created
	return &cp, nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, id primitive.ObjectID, name, phone, picture string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.Name, u.Phone, u.Picture = name, phone, picture
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) SaveAddresses(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.Addresses = append([]models.Address(nil), u.Addresses...)
	return nil
}

func (f *fakeUsers) AddToWishlist(_ context.Context, id, cakeID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	for _, w := range u.Wishlist {
		if w == cakeID {
			return nil
		}
	}
	u.Wishlist = append(u.Wishlist, cakeID)
	return nil
}

func (f *fakeUsers) RemoveFromWishlist(_ context.Context, id, cakeID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	kept := u.Wishlist[:0]
	for _, w := range u.Wishlist {
		if w != cakeID {
			kept = append(kept, w)
		}
	}
	u.Wishlist = kept
	return nil
}

func (f *fakeUsers) List(_ context.Context, skip, limit int64) ([]models.User, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

type fakeAdmins struct {
	admins map[string]*models.Admin
}

func (f *fakeAdmins) GetByEmail(_ context.Context, email string) (*models.Admin, error) {
	a, ok := f.admins[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return a, nil
}

func (f *fakeAdmins) EnsureAdmin(_ context.Context, a *models.Admin) (bool, error) {
	if _, ok := f.admins[a.Email]; ok {
		return false, nil
	}
	a.ID = primitive.NewObjectID()
	f.admins[a.Email] = a
	return true, nil
}

type fakeCarts struct {
	mu    sync.Mutex
	carts map[primitive.ObjectID]models.Cart
}

func newFakeCarts() *fakeCarts {
	return &fakeCarts{carts: map[primitive.ObjectID]models.Cart{}}
}

func (f *fakeCarts) Get(_ context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.carts[userID]
	if !ok {
		return &models.Cart{UserID: userID}, nil
	}
	c.Items = append([]models.CartItem(nil), c.Items...)
	c.Addons = append([]models.CartAddon(nil), c.Addons...)
	return &c, nil
}

func (f *fakeCarts) Save(_ context.Context, cart *models.Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.carts[cart.UserID] = *cart
	return nil
}

func (f *fakeCarts) Clear(_ context.Context, userID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.carts, userID)
	return nil
}

type fakeSubscribers struct {
	mu   sync.Mutex
	subs []models.Subscriber
}

func (f *fakeSubscribers) Exists(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subs {
		if s.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSubscribers) Create(_ context.Context, sub *models.Subscriber) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub.ID = primitive.NewObjectID()
	f.subs = append(f.subs, *sub)
	return nil
}

func (f *fakeSubscribers) List(_ context.Context, skip, limit int64) ([]models.Subscriber, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Subscriber(nil), f.subs...), int64(len(f.subs)), nil
}

func (f *fakeSubscribers) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.subs {
		if f.subs[i].ID == id {
			f.subs = append(f.subs[:i], f.subs[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type recordingSubscriptions struct {
	mu     sync.Mutex
	emails []string
}

func (r *recordingSubscriptions) Subscribed(email string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emails = append(r.emails, email)
}

type fakeSettings struct {
	settings models.Settings
}

func (f *fakeSettings) Get(context.Context) (*models.Settings, error) {
	s := f.settings
	return &s, nil
}

func (f *fakeSettings) Put(_ context.Context, s *models.Settings) error {
	f.settings = *s
	return nil
}

type fakeOrders struct {
	orders     []models.Order
	lastFilter repository.OrderFilter
	statsFrom  time.Time
	statsTo    time.Time
	statsTZ    string
}

func (f *fakeOrders) Get(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	for _, o := range f.orders {
		if o.ID == id {
			cp := o
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeOrders) GetForUser(ctx context.Context, id, userID primitive.ObjectID) (*models.Order, error) {
	o, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrders) ListForUser(_ context.Context, userID primitive.ObjectID, skip, limit int64) ([]models.Order, int64, error) {
	var out []models.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrders) List(_ context.Context, filter repository.OrderFilter, skip, limit int64) ([]models.Order, int64, error) {
	f.lastFilter = filter
	var out []models.Order
	for _, o := range f.orders {
		if filter.Status == "" || o.Status == filter.Status {
			out = append(out, o)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrders) Stats(_ context.Context, from, to time.Time, tz string) (*models.Stats, error) {
	f.statsFrom, f.statsTo, f.statsTZ = from, to, tz
	return &models.Stats{
		Totals:   models.StatsTotals{Orders: 2, Revenue: 1500, AverageOrderValue: 750},
		ByStatus: map[string]int64{"delivered": 2},
	}, nil
}

type fakeAudit struct {
	mu   sync.Mutex
	logs []repository.AuditLog
}

func (f *fakeAudit) CreateAuditLog(_ context.Context, log *repository.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, *log)
	return nil
}

func (f *fakeAudit) GetAuditLogs(_ context.Context, entityID string, limit int64) ([]*repository.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*repository.AuditLog
	for i := range f.logs {
		if entityID == "" || f.logs[i].EntityID == entityID {
			l := f.logs[i]
			out = append(out, &l)
		}
	}
	return out, nil
}

func (f *fakeAudit) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.logs))
	for _, l := range f.logs {
		out = append(out, l.Action)
	}
	return out
}

// fakeCache stores pages as JSON the way Redis does.
type fakeCache struct {
	mu      sync.Mutex
	version int
	pages   map[string][]byte
	bumps   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{pages: map[string][]byte{}}
}

func (f *fakeCache) key(k string) string {
	return fmt.Sprintf("v%d:%s", f.version, k)
}

func (f *fakeCache) GetCatalogPage(_ context.Context, key string, dest interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.pages[f.key(key)]
	if !ok {
		return repository.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (f *fakeCache) SetCatalogPage(_ context.Context, key string, page interface{}, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := json.Marshal(page)
	if err != nil {
		return err
	}
	f.pages[f.key(key)] = data
	return nil
}

func (f *fakeCache) BumpCatalogVersion(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.version++
	f.bumps++
	return nil
}

type fakeDelivery struct {
	deliverable map[string]string
}

func (f *fakeDelivery) Check(_ context.Context, req delivery.Request) (*delivery.Result, error) {
	if req.Pincode == "" && (req.Lat == nil || req.Lng == nil) {
		return nil, delivery.ErrMissingAddress
	}
	if area, ok := f.deliverable[req.Pincode]; ok {
		return &delivery.Result{Deliverable: true, Area: area, MatchedBy: "pincode"}, nil
	}
	return &delivery.Result{Deliverable: false}, nil
}

// fakeCheckout records calls and answers with canned results.
type fakeCheckout struct {
	priced      *checkout.PricedCart
	placeErr    error
	placement   *checkout.Placement
	placeReq    checkout.PlaceOrderRequest
	webhookErr  error
	webhookBody []byte
	advanceErr  error
	advanced    []models.OrderStatus
}

func (f *fakeCheckout) PriceUserCart(context.Context, primitive.ObjectID) (*models.Cart, *checkout.PricedCart, error) {
	if f.priced == nil {
		return &models.Cart{}, &checkout.PricedCart{Items: []checkout.Line{}, Addons: []checkout.AddonLine{}}, nil
	}
	return &models.Cart{}, f.priced, nil
}

func (f *fakeCheckout) Quote(_ context.Context, _ primitive.ObjectID, couponCode string) (*checkout.Quote, error) {
	return &checkout.Quote{Coupon: couponCode, Totals: models.Totals{Subtotal: 1200, Total: 1200}}, nil
}

func (f *fakeCheckout) ApplyCoupon(_ context.Context, code string, subtotal float64) (*checkout.CouponResult, error) {
	return &checkout.CouponResult{Code: code, Discount: 100, Total: subtotal - 100}, nil
}

func (f *fakeCheckout) PlaceOrder(_ context.Context, _ primitive.ObjectID, req checkout.PlaceOrderRequest) (*checkout.Placement, error) {
	f.placeReq = req
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	return f.placement, nil
}

func (f *fakeCheckout) CreatePayment(context.Context, primitive.ObjectID, primitive.ObjectID) (*payment.Order, error) {
	return &payment.Order{ID: "order_retry", Amount: 120000, Currency: "INR"}, nil
}

func (f *fakeCheckout) Verify(context.Context, primitive.ObjectID, checkout.VerifyRequest) (*models.Order, error) {
	return nil, payment.ErrInvalidSignature
}

func (f *fakeCheckout) Webhook(_ context.Context, body []byte, _ string) error {
	f.webhookBody = body
	return f.webhookErr
}

func (f *fakeCheckout) Cancel(context.Context, primitive.ObjectID, primitive.ObjectID) (*models.Order, error) {
	return nil, repository.ErrConflict
}

func (f *fakeCheckout) Advance(_ context.Context, orderID primitive.ObjectID, to models.OrderStatus, _ string) (*models.Order, error) {
	if f.advanceErr != nil {
		return nil, f.advanceErr
	}
	f.advanced = append(f.advanced, to)
	return &models.Order{ID: orderID, OrderNumber: "BK-1", Status: to}, nil
}

type fakePinger struct {
	err error
}

func (p fakePinger) Ping(context.Context) error {
	return p.err
}
