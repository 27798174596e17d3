package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/01moynul/bazaar-golang/internal/events"
	"github.com/01moynul/bazaar-golang/internal/metrics"
	"github.com/01moynul/bazaar-golang/internal/middleware"
	"github.com/01moynul/bazaar-golang/internal/models"
	"github.com/01moynul/bazaar-golang/internal/permissions"
	"github.com/01moynul/bazaar-golang/internal/pricing"
	"github.com/01moynul/bazaar-golang/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

const (
	sellerID int64 = 10
	buyerID  int64 = 20
	otherID  int64 = 30
)

func seller() permissions.Identity {
	return permissions.Identity{UserID: sellerID, Role: permissions.RoleSeller, IsActive: true}
}

func buyer() permissions.Identity {
	return permissions.Identity{UserID: buyerID, Role: permissions.RoleUser, IsActive: true}
}

func other() permissions.Identity {
	return permissions.Identity{UserID: otherID, Role: permissions.RoleSeller, IsActive: true}
}

// fakeStore overrides only what the handlers under test reach.
type fakeStore struct {
	store.Store

	shops      map[int64]*models.Shop
	addresses  map[int64]*models.Address
	categories map[int64]*models.Category
	products   map[int64]*models.Product
	coupons    map[string]*models.Coupon
	orders     map[int64]*models.Order
	comments   map[int64]*models.Comment
	invoices   []models.Invoice
	wishlist   []models.Wishlist
	nextID     int64

	overdue    int64
	overdueErr error
	overdueAt  time.Time
}

func newFakeStore() *fakeStore {
	price := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }
	return &fakeStore{
		shops: map[int64]*models.Shop{
			1: {ID: 1, OwnerID: sellerID, Name: "Books", Status: models.ShopApproved, Lifecycle: models.Active},
			2: {ID: 2, OwnerID: sellerID, Name: "New", Status: models.ShopPending, Lifecycle: models.Active},
		},
		addresses: map[int64]*models.Address{
			5: {ID: 5, UserID: buyerID, Lifecycle: models.Active},
			6: {ID: 6, UserID: otherID, Lifecycle: models.Active},
		},
		categories: map[int64]*models.Category{
			3: {ID: 3, Name: "Stationery", Slug: "stationery", Lifecycle: models.Active},
			4: {ID: 4, Name: "Retired", Slug: "retired", Lifecycle: models.Deactivated},
		},
		products: map[int64]*models.Product{
			100: {ID: 100, ShopID: 1, Price: price("50.00"), Lifecycle: models.Active},
			101: {ID: 101, ShopID: 1, Price: price("25.00"), Lifecycle: models.Active},
			102: {ID: 102, ShopID: 1, Price: price("9.99"), Lifecycle: models.Deactivated},
			200: {ID: 200, ShopID: 2, Price: price("1.00"), Lifecycle: models.Active},
		},
		coupons: map[string]*models.Coupon{
			"SAVE10": {ID: 7, Code: "SAVE10", DiscountPercent: 10, Active: true, MaxUsage: 5,
				ValidFrom: testNow.AddDate(0, -1, 0), ValidTo: testNow.AddDate(0, 1, 0)},
			"BIG": {ID: 8, Code: "BIG", DiscountPercent: 10, Active: true, MaxUsage: 5, MinOrderAmount: price("200.00"),
				ValidFrom: testNow.AddDate(0, -1, 0), ValidTo: testNow.AddDate(0, 1, 0)},
			"LAST": {ID: 9, Code: "LAST", DiscountPercent: 50, Active: true, MaxUsage: 1,
				ValidFrom: testNow.AddDate(0, -1, 0), ValidTo: testNow.AddDate(0, 1, 0)},
		},
		orders: map[int64]*models.Order{},
		comments: map[int64]*models.Comment{
			40: {ID: 40, UserID: otherID, ProductID: 100, Text: "Great", Lifecycle: models.Active},
			41: {ID: 41, UserID: otherID, ProductID: 101, Text: "Meh", Lifecycle: models.Active},
			42: {ID: 42, UserID: otherID, ProductID: 100, Text: "Gone", Lifecycle: models.Deactivated},
		},
		nextID: 1000,
	}
}

func (s *fakeStore) GetShop(_ context.Context, id int64) (*models.Shop, error) {
	if sh, ok := s.shops[id]; ok {
		cp := *sh
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) UpdateShop(_ context.Context, sh *models.Shop) error {
	cp := *sh
	s.shops[sh.ID] = &cp
	return nil
}

func (s *fakeStore) GetAddress(_ context.Context, id int64) (*models.Address, error) {
	if a, ok := s.addresses[id]; ok {
		return a, nil
	}
	return nil, store.ErrNotFound
}

// GetProduct returns a copy joined with its shop, like the SQL store.
func (s *fakeStore) GetProduct(_ context.Context, id int64) (*models.Product, error) {
	if p, ok := s.products[id]; ok {
		cp := *p
		cp.Shop = s.shops[p.ShopID]
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) CreateProduct(_ context.Context, p *models.Product) error {
	s.nextID++
	p.ID = s.nextID
	p.Lifecycle = models.Active
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

func (s *fakeStore) UpdateProduct(_ context.Context, p *models.Product) error {
	if _, ok := s.products[p.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *p
	cp.Shop = nil
	s.products[p.ID] = &cp
	return nil
}

func (s *fakeStore) GetCategory(_ context.Context, id int64) (*models.Category, error) {
	if cat, ok := s.categories[id]; ok {
		cp := *cat
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) GetProductsByIDs(_ context.Context, ids []int64) (map[int64]*models.Product, error) {
	out := make(map[int64]*models.Product)
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (s *fakeStore) GetCouponByCode(_ context.Context, code string) (*models.Coupon, error) {
	if c, ok := s.coupons[code]; ok {
		return c, nil
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) redeem(c *models.Coupon) error {
	if !c.Active || c.UsageCount >= c.MaxUsage {
		return store.ErrCouponExhausted
	}
	c.UsageCount++
	return nil
}

func (s *fakeStore) CreateOrder(_ context.Context, o *models.Order) error {
	if o.CouponID != nil {
		if err := s.redeem(o.Coupon); err != nil {
			return err
		}
	}
	s.nextID++
	o.ID = s.nextID
	o.Lifecycle = models.Active
	for i := range o.Items {
		s.nextID++
		o.Items[i].ID = s.nextID
		o.Items[i].OrderID = o.ID
	}
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *fakeStore) GetOrder(_ context.Context, id int64) (*models.Order, error) {
	if o, ok := s.orders[id]; ok {
		cp := *o
		cp.Items = append([]models.OrderItem(nil), o.Items...)
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) putOrder(o *models.Order) {
	cp := *o
	cp.Items = append([]models.OrderItem(nil), o.Items...)
	for i := range cp.Items {
		cp.Items[i].Order = nil
	}
	s.orders[o.ID] = &cp
}

func (s *fakeStore) UpdateOrder(_ context.Context, o *models.Order, replaceItems bool) error {
	if _, ok := s.orders[o.ID]; !ok {
		return store.ErrNotFound
	}
	if replaceItems {
		for i := range o.Items {
			s.nextID++
			o.Items[i].ID = s.nextID
			o.Items[i].OrderID = o.ID
		}
	}
	s.putOrder(o)
	return nil
}

func (s *fakeStore) GetOrderItem(_ context.Context, id int64) (*models.OrderItem, error) {
	for _, o := range s.orders {
		for _, it := range o.Items {
			if it.ID == id {
				cp := it
				return &cp, nil
			}
		}
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) SaveOrderItem(_ context.Context, it *models.OrderItem, o *models.Order) error {
	if _, err := s.GetOrderItem(context.Background(), it.ID); err != nil {
		return err
	}
	s.putOrder(o)
	return nil
}

func (s *fakeStore) CreateInvoice(_ context.Context, inv *models.Invoice) error {
	for _, existing := range s.invoices {
		if existing.OrderID == inv.OrderID {
			return store.ErrDuplicate
		}
	}
	s.nextID++
	inv.ID = s.nextID
	for i := range inv.Items {
		inv.Items[i].InvoiceID = inv.ID
	}
	s.invoices = append(s.invoices, *inv)
	return nil
}

func (s *fakeStore) MarkOverdueInvoices(_ context.Context, now time.Time) (int64, error) {
	s.overdueAt = now
	return s.overdue, s.overdueErr
}

func (s *fakeStore) GetComment(_ context.Context, id int64) (*models.Comment, error) {
	if cm, ok := s.comments[id]; ok {
		cp := *cm
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) CreateComment(_ context.Context, cm *models.Comment) error {
	s.nextID++
	cm.ID = s.nextID
	cm.Lifecycle = models.Active
	cp := *cm
	s.comments[cm.ID] = &cp
	return nil
}

func (s *fakeStore) AttachCoupon(_ context.Context, o *models.Order) error {
	stored := s.orders[o.ID]
	if stored.CouponID != nil {
		return store.ErrConflict
	}
	if err := s.redeem(o.Coupon); err != nil {
		return err
	}
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *fakeStore) CreateWishlist(_ context.Context, w *models.Wishlist) error {
	for _, existing := range s.wishlist {
		if existing.UserID == w.UserID && existing.ProductID == w.ProductID {
			return store.ErrDuplicate
		}
	}
	s.nextID++
	w.ID = s.nextID
	w.Lifecycle = models.Active
	s.wishlist = append(s.wishlist, *w)
	return nil
}

func newTestHandlers(st store.Store) *Handlers {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := func() time.Time { return testNow }
	return &Handlers{
		Store:   st,
		Pricing: pricing.NewEngine(pricing.WithClock(clock)),
		Events:  events.NewLogPublisher(log),
		Metrics: metrics.NewShopMetrics(prometheus.NewRegistry()),
		Log:     log,
		Now:     clock,
	}
}

// serve runs a single route as id.
func serve(t *testing.T, method, route, target string, id permissions.Identity, body any, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.Handle(method, route, func(c *gin.Context) {
		middleware.SetIdentity(c, id)
		c.Next()
	}, handler)

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type orderResponse struct {
	Order  models.Order      `json:"order"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

func decodeOrder(t *testing.T, w *httptest.ResponseRecorder) orderResponse {
	t.Helper()
	var resp orderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func orderBody(coupon string) gin.H {
	return gin.H{
		"shopId":    1,
		"addressId": 5,
		"items": []gin.H{
			{"productId": 100, "count": 2},
			{"productId": 101, "count": 1},
		},
		"couponCode": coupon,
	}
}

func TestCreateOrderWithCoupon(t *testing.T) {
	st := newFakeStore()
	h := newTestHandlers(st)

	w := serve(t, http.MethodPost, "/orders", "/orders", buyer(), orderBody("save10"), h.CreateOrder)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decodeOrder(t, w)
	assert.Equal(t, "12.50", resp.Order.DiscountAmount.StringFixed(2))
	assert.Equal(t, "112.50", resp.Order.TotalPrice.StringFixed(2))
	assert.Equal(t, buyerID, resp.Order.UserID)
	require.Len(t, resp.Order.Items, 2)
	assert.Equal(t, "100.00", resp.Order.Items[0].RowPrice.StringFixed(2))

	assert.Equal(t, 1, st.coupons["SAVE10"].UsageCount)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.Metrics.OrdersCreatedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.Metrics.CouponApplicationsTotal.WithLabelValues(metrics.CouponApplied)))
}

func TestCreateOrderRejections(t *testing.T) {
	tests := []struct {
		name  string
		id    permissions.Identity
		body  gin.H
		field string
	}{
		{"coupon below minimum", buyer(), orderBody("BIG"), "code"},
		{"unknown coupon", buyer(), orderBody("NOPE"), "code"},
		{"pending shop", buyer(), gin.H{"shopId": 2, "addressId": 5, "items": []gin.H{{"productId": 200, "count": 1}}}, "shopId"},
		{"foreign address", buyer(), gin.H{"shopId": 1, "addressId": 6, "items": []gin.H{{"productId": 100, "count": 1}}}, "addressId"},
		{"product of another shop", buyer(), gin.H{"shopId": 1, "addressId": 5, "items": []gin.H{{"productId": 200, "count": 1}}}, "items"},
		{"deactivated product", buyer(), gin.H{"shopId": 1, "addressId": 5, "items": []gin.H{{"productId": 102, "count": 1}}}, "items"},
		{"no items", buyer(), gin.H{"shopId": 1, "addressId": 5, "items": []gin.H{}}, "items"},
		{"zero count", buyer(), gin.H{"shopId": 1, "addressId": 5, "items": []gin.H{{"productId": 100, "count": 0}}}, "count"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newFakeStore()
			h := newTestHandlers(st)

			w := serve(t, http.MethodPost, "/orders", "/orders", tt.id, tt.body, h.CreateOrder)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			resp := decodeOrder(t, w)
			assert.Contains(t, resp.Fields, tt.field)
			assert.Empty(t, st.orders)
		})
	}
}

func TestCreateOrderBelowMinimumReason(t *testing.T) {
	h := newTestHandlers(newFakeStore())

	w := serve(t, http.MethodPost, "/orders", "/orders", buyer(), orderBody("BIG"), h.CreateOrder)
	resp := decodeOrder(t, w)
	assert.Equal(t, "Order total is below the coupon minimum.", resp.Fields["code"])
	assert.Equal(t, 1.0, testutil.ToFloat64(h.Metrics.CouponApplicationsTotal.WithLabelValues(metrics.CouponRejected)))
}

func TestApplyCoupon(t *testing.T) {
	st := newFakeStore()
	h := newTestHandlers(st)

	w := serve(t, http.MethodPost, "/orders", "/orders", buyer(), orderBody(""), h.CreateOrder)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeOrder(t, w).Order
	assert.Equal(t, "125.00", created.TotalPrice.StringFixed(2))
	target := "/orders/" + strconv.FormatInt(created.ID, 10) + "/apply-coupon"

	t.Run("stranger is forbidden", func(t *testing.T) {
		w := serve(t, http.MethodPost, "/orders/:id/apply-coupon", target, other(), gin.H{"code": "SAVE10"}, h.ApplyCoupon)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, 0, st.coupons["SAVE10"].UsageCount)
	})

	t.Run("below minimum keeps the order unchanged", func(t *testing.T) {
		w := serve(t, http.MethodPost, "/orders/:id/apply-coupon", target, buyer(), gin.H{"code": "BIG"}, h.ApplyCoupon)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeOrder(t, w).Fields, "code")
		assert.Nil(t, st.orders[created.ID].CouponID)
	})

	t.Run("applies", func(t *testing.T) {
		w := serve(t, http.MethodPost, "/orders/:id/apply-coupon", target, buyer(), gin.H{"code": "SAVE10"}, h.ApplyCoupon)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decodeOrder(t, w)
		assert.Equal(t, "12.50", resp.Order.DiscountAmount.StringFixed(2))
		assert.Equal(t, "112.50", resp.Order.TotalPrice.StringFixed(2))
		assert.Equal(t, 1, st.coupons["SAVE10"].UsageCount)
	})

	t.Run("second coupon conflicts", func(t *testing.T) {
		w := serve(t, http.MethodPost, "/orders/:id/apply-coupon", target, buyer(), gin.H{"code": "LAST"}, h.ApplyCoupon)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, 0, st.coupons["LAST"].UsageCount)
	})
}

func TestCreateOrderLosesCouponRace(t *testing.T) {
	st := newFakeStore()
	h := newTestHandlers(st)

	// The coupon is valid when checked but exhausted by the time it is redeemed.
	h.Store = &racingStore{fakeStore: st, victim: st.coupons["LAST"]}

	w := serve(t, http.MethodPost, "/orders", "/orders", buyer(), orderBody("LAST"), h.CreateOrder)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Contains(t, decodeOrder(t, w).Fields, "code")
	assert.Empty(t, st.orders)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.Metrics.CouponApplicationsTotal.WithLabelValues(metrics.CouponRaceLost)))
}

// racingStore lets another order redeem victim just before CreateOrder runs.
type racingStore struct {
	*fakeStore
	victim *models.Coupon
}

func (s *racingStore) CreateOrder(ctx context.Context, o *models.Order) error {
	s.victim.UsageCount = s.victim.MaxUsage
	return s.fakeStore.CreateOrder(ctx, o)
}

func TestUpdateShopOwnership(t *testing.T) {
	st := newFakeStore()
	h := newTestHandlers(st)
	st.addresses[7] = &models.Address{ID: 7, UserID: sellerID, Lifecycle: models.Active}
	st.shops[1].AddressID = 7

	body := gin.H{"name": "Renamed", "addressId": 7}

	w := serve(t, http.MethodPut, "/shops/:id", "/shops/1", other(), body, h.UpdateShop)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Books", st.shops[1].Name)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.Metrics.AuthorizationDeniedTotal.WithLabelValues("shop")))

	w = serve(t, http.MethodPut, "/shops/:id", "/shops/1", seller(), body, h.UpdateShop)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Renamed", st.shops[1].Name)

	admin := permissions.Identity{UserID: 1, Role: permissions.RoleAdmin, IsStaff: true, IsActive: true}
	w = serve(t, http.MethodPut, "/shops/:id", "/shops/1", admin, gin.H{"name": "By admin", "addressId": 7}, h.UpdateShop)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestWishlistDuplicate(t *testing.T) {
	h := newTestHandlers(newFakeStore())

	w := serve(t, http.MethodPost, "/wishlist", "/wishlist", buyer(), gin.H{"productId": 100}, h.AddToWishlist)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = serve(t, http.MethodPost, "/wishlist", "/wishlist", buyer(), gin.H{"productId": 100}, h.AddToWishlist)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"Product is already in your wishlist"}`, w.Body.String())

	w = serve(t, http.MethodPost, "/wishlist", "/wishlist", buyer(), gin.H{"productId": 102}, h.AddToWishlist)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestValidationFields(t *testing.T) {
	h := newTestHandlers(newFakeStore())

	w := serve(t, http.MethodPost, "/wishlist", "/wishlist", buyer(), gin.H{}, h.AddToWishlist)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid input","fields":{"productId":"This field is required."}}`, w.Body.String())

	w = serve(t, http.MethodPost, "/wishlist", "/wishlist", buyer(), gin.H{"productId": "x"}, h.AddToWishlist)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeOrder(t, w).Fields, "productId")

	w = serve(t, http.MethodGet, "/orders/:id", "/orders/abc", buyer(), nil, h.GetOrder)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeOrder(t, w).Fields, "id")
}

func TestCategoryTree(t *testing.T) {
	id := func(v int64) *int64 { return &v }
	flat := []models.Category{
		{ID: 3, Name: "Fiction", ParentID: id(1)},
		{ID: 1, Name: "Books"},
		{ID: 4, Name: "Sci-fi", ParentID: id(3)},
		{ID: 2, Name: "Music"},
		{ID: 9, Name: "Orphan", ParentID: id(99)},
	}

	tree := categoryTree(flat)
	require.Len(t, tree, 3)
	assert.Equal(t, "Books", tree[0].Name)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "Fiction", tree[0].Children[0].Name)
	require.Len(t, tree[0].Children[0].Children, 1)
	assert.Equal(t, "Sci-fi", tree[0].Children[0].Children[0].Name)
	assert.Equal(t, "Music", tree[1].Name)
	assert.Equal(t, "Orphan", tree[2].Name)
}

func TestCheckPrice(t *testing.T) {
	assert.NoError(t, checkPrice(decimal.RequireFromString("0")))
	assert.NoError(t, checkPrice(decimal.RequireFromString("19.99")))
	assert.Error(t, checkPrice(decimal.RequireFromString("-1")))
	assert.Error(t, checkPrice(decimal.RequireFromString("1.005")))
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst))
}

func TestUpdateProductKeepsOmittedFields(t *testing.T) {
	st := newFakeStore()
	h := newTestHandlers(st)
	st.products[100].CategoryID = 3
	st.products[100].Name = "Notebook"
	st.products[100].Description = "A5, dotted"

	var resp struct {
		Product models.Product `json:"product"`
	}

	w := serve(t, http.MethodPut, "/products/:id", "/products/100", seller(), gin.H{"categoryId": 3, "name": "Renamed"}, h.UpdateProduct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decodeJSON(t, w, &resp)
	assert.Equal(t, "50.00", resp.Product.Price.StringFixed(2))
	assert.Equal(t, "Renamed", resp.Product.Name)
	assert.Equal(t, "50.00", st.products[100].Price.StringFixed(2))
	assert.Equal(t, "A5, dotted", st.products[100].Description)

	w = serve(t, http.MethodPut, "/products/:id", "/products/100", seller(), gin.H{"price": "12.5"}, h.UpdateProduct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "12.50", st.products[100].Price.StringFixed(2))
	assert.Equal(t, "Renamed", st.products[100].Name)
	assert.Equal(t, int64(3), st.products[100].CategoryID)

	w = serve(t, http.MethodPut, "/products/:id", "/products/100", seller(), gin.H{"price": "-1"}, h.UpdateProduct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "12.50", st.products[100].Price.StringFixed(2))

	w = serve(t, http.MethodPut, "/products/:id", "/products/100", seller(), gin.H{"categoryId": 4}, h.UpdateProduct)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, int64(3), st.products[100].CategoryID)

	w = serve(t, http.MethodPut, "/products/:id", "/products/100", other(), gin.H{"name": "Stolen"}, h.UpdateProduct)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Renamed", st.products[100].Name)
}

func TestCreateProductRequiresPrice(t *testing.T) {
	st := newFakeStore()
	h := newTestHandlers(st)

	w := serve(t, http.MethodPost, "/products", "/products", seller(), gin.H{"shopId": 1, "categoryId": 3, "name": "Pen"}, h.CreateProduct)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Contains(t, decodeOrder(t, w).Fields, "price")
	assert.Len(t, st.products, 4)

	w = serve(t, http.MethodPost, "/products", "/products", seller(), gin.H{"shopId": 1, "categoryId": 3, "name": "Pen", "price": "0"}, h.CreateProduct)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Product models.Product `json:"product"`
	}
	decodeJSON(t, w, &resp)
	assert.True(t, resp.Product.Price.IsZero())
	assert.Len(t, st.products, 5)
}

// seedOrder stores a buyer's order from shop 1: 2 x 50.00 and 1 x 25.00.
func seedOrder(st *fakeStore) *models.Order {
	price := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }
	o := &models.Order{
		ID: 500, UserID: buyerID, ShopID: 1, AddressID: 5,
		TotalPrice: price("125.00"), Lifecycle: models.Active,
		Items: []models.OrderItem{
			{ID: 501, OrderID: 500, ProductID: 100, Count: 2, UnitPrice: price("50.00"), RowPrice: price("100.00"), Lifecycle: models.Active},
			{ID: 502, OrderID: 500, ProductID: 101, Count: 1, UnitPrice: price("25.00"), RowPrice: price("25.00"), Lifecycle: models.Active},
		},
	}
	st.orders[o.ID] = o
	return o
}

func TestUpdateOrderReplacesItems(t *testing.T) {
	st := newFakeStore()
	h := newTestHandlers(st)
	seedOrder(st)

	body := gin.H{"items": []gin.H{{"productId": 100, "count": 1}, {"productId": 101, "count": 2}}}
	w := serve(t, http.MethodPut, "/orders/:id", "/orders/500", buyer(), body, h.UpdateOrder)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeOrder(t, w)
	assert.Equal(t, "100.00", resp.Order.TotalPrice.StringFixed(2))
	assert.True(t, resp.Order.DiscountAmount.IsZero())
	require.Len(t, resp.Order.Items, 2)
	assert.Equal(t, "50.00", resp.Order.Items[1].RowPrice.StringFixed(2))

	stored := st.orders[500]
	assert.Equal(t, "100.00", stored.TotalPrice.StringFixed(2))
	require.Len(t, stored.Items, 2)
	assert.NotEqual(t, int64(501), stored.Items[0].ID)

	w = serve(t, http.MethodPut, "/orders/:id", "/orders/500", buyer(), gin.H{"items": []gin.H{{"productId": 200, "count": 1}}}, h.UpdateOrder)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeOrder(t, w).Fields, "items")
	assert.Equal(t, "100.00", st.orders[500].TotalPrice.StringFixed(2))

	w = serve(t, http.MethodPut, "/orders/:id", "/orders/500", other(), body, h.UpdateOrder)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateOrderDropsCouponBelowMinimum(t *testing.T) {
	st := newFakeStore()
	h := newTestHandlers(st)
	big := st.coupons["BIG"]
	big.UsageCount = 1

	o := seedOrder(st)
	o.Items = o.Items[:1]
	o.Items[0].Count = 4
	o.Items[0].RowPrice = decimal.RequireFromString("200.00")
	o.CouponID, o.Coupon = &big.ID, big
	o.DiscountAmount = decimal.RequireFromString("20.00")
	o.TotalPrice = decimal.RequireFromString("180.00")

	w := serve(t, http.MethodPut, "/orders/:id", "/orders/500", buyer(), gin.H{"items": []gin.H{{"productId": 100, "count": 1}}}, h.UpdateOrder)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeOrder(t, w)
	assert.Empty(t, resp.Fields)
	assert.True(t, resp.Order.DiscountAmount.IsZero())
	assert.Equal(t, "50.00", resp.Order.TotalPrice.StringFixed(2))
	require.NotNil(t, resp.Order.CouponID)
	assert.Equal(t, big.ID, *resp.Order.CouponID)
	assert.Equal(t, 1, big.UsageCount)

	// back above the minimum, the held coupon counts again
	w = serve(t, http.MethodPut, "/orders/:id", "/orders/500", buyer(), gin.H{"items": []gin.H{{"productId": 100, "count": 5}}}, h.UpdateOrder)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp = decodeOrder(t, w)
	assert.Equal(t, "25.00", resp.Order.DiscountAmount.StringFixed(2))
	assert.Equal(t, "225.00", resp.Order.TotalPrice.StringFixed(2))
}

type orderItemResponse struct {
	OrderItem models.OrderItem `json:"orderItem"`
	Order     models.Order     `json:"order"`
}

func TestUpdateOrderItemRepricesFromSnapshot(t *testing.T) {
	st := newFakeStore()
	h := newTestHandlers(st)
	seedOrder(st)
	st.products[101].Price = decimal.RequireFromString("30.00")

	w := serve(t, http.MethodPut, "/order-items/:id", "/order-items/502", other(), gin.H{"count": 3}, h.UpdateOrderItem)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.Metrics.AuthorizationDeniedTotal.WithLabelValues("order_item")))

	w = serve(t, http.MethodPut, "/order-items/:id", "/order-items/502", buyer(), gin.H{"count": 3}, h.UpdateOrderItem)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp orderItemResponse
	decodeJSON(t, w, &resp)
	assert.Equal(t, 3, resp.OrderItem.Count)
	assert.Equal(t, "25.00", resp.OrderItem.UnitPrice.StringFixed(2))
	assert.Equal(t, "75.00", resp.OrderItem.RowPrice.StringFixed(2))
	assert.Equal(t, "175.00", resp.Order.TotalPrice.StringFixed(2))

	stored := st.orders[500]
	assert.Equal(t, "175.00", stored.TotalPrice.StringFixed(2))
	assert.Equal(t, "75.00", stored.Items[1].RowPrice.StringFixed(2))

	w = serve(t, http.MethodPut, "/order-items/:id", "/order-items/502", buyer(), gin.H{"count": 0}, h.UpdateOrderItem)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeOrder(t, w).Fields, "count")
}

func TestDeactivateOrderItemLeavesTotal(t *testing.T) {
	st := newFakeStore()
	h := newTestHandlers(st)
	seedOrder(st)

	w := serve(t, http.MethodDelete, "/order-items/:id", "/order-items/501", buyer(), nil, h.DeactivateOrderItem)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	stored := st.orders[500]
	assert.Equal(t, "25.00", stored.TotalPrice.StringFixed(2))
	assert.Equal(t, models.Deactivated, stored.Items[0].Lifecycle)
	assert.Equal(t, models.Active, stored.Items[1].Lifecycle)

	w = serve(t, http.MethodDelete, "/order-items/:id", "/order-items/501", buyer(), nil, h.DeactivateOrderItem)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(t, http.MethodPut, "/order-items/:id", "/order-items/501", buyer(), gin.H{"count": 2}, h.UpdateOrderItem)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "25.00", st.orders[500].TotalPrice.StringFixed(2))
}

func TestCreateInvoiceFromOrder(t *testing.T) {
	st := newFakeStore()
	h := newTestHandlers(st)
	admin := permissions.Identity{UserID: 1, Role: permissions.RoleAdmin, IsStaff: true, IsActive: true}

	o := seedOrder(st)
	o.Items[1].Lifecycle = models.Deactivated
	o.CouponID, o.Coupon = &st.coupons["SAVE10"].ID, st.coupons["SAVE10"]
	o.DiscountAmount = decimal.RequireFromString("10.00")
	o.TotalPrice = decimal.RequireFromString("90.00")

	body := gin.H{"orderId": 500, "dueDate": testNow.Add(72 * time.Hour)}

	w := serve(t, http.MethodPost, "/invoices/create-from-order", "/invoices/create-from-order", admin,
		gin.H{"orderId": 500, "dueDate": testNow.Add(-time.Hour)}, h.CreateInvoiceFromOrder)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeOrder(t, w).Fields, "dueDate")

	w = serve(t, http.MethodPost, "/invoices/create-from-order", "/invoices/create-from-order", admin, body, h.CreateInvoiceFromOrder)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Invoice models.Invoice `json:"invoice"`
	}
	decodeJSON(t, w, &resp)
	inv := resp.Invoice
	assert.Equal(t, "90.00", inv.TotalAmount.StringFixed(2))
	assert.Equal(t, buyerID, inv.UserID)
	assert.Equal(t, models.PaymentPending, inv.PaymentStatus)
	assert.NotEmpty(t, inv.InvoiceNumber)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, int64(100), inv.Items[0].ProductID)
	assert.Equal(t, 2, inv.Items[0].Quantity)
	assert.Equal(t, "50.00", inv.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "100.00", inv.Items[0].RowTotal.StringFixed(2))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.Metrics.InvoicesCreatedTotal))

	w = serve(t, http.MethodPost, "/invoices/create-from-order", "/invoices/create-from-order", admin, body, h.CreateInvoiceFromOrder)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"Order has already been invoiced"}`, w.Body.String())
	assert.Len(t, st.invoices, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.Metrics.InvoicesCreatedTotal))

	o.Lifecycle = models.Deactivated
	st.invoices = nil
	w = serve(t, http.MethodPost, "/invoices/create-from-order", "/invoices/create-from-order", admin, body, h.CreateInvoiceFromOrder)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProcessOverdueInvoices(t *testing.T) {
	st := newFakeStore()
	h := newTestHandlers(st)
	ctx := context.Background()

	st.overdue = 3
	h.ProcessOverdueInvoices(ctx)
	assert.Equal(t, testNow, st.overdueAt)
	assert.Equal(t, 3.0, testutil.ToFloat64(h.Metrics.InvoicesOverdueTotal))

	st.overdue = 0
	h.ProcessOverdueInvoices(ctx)
	assert.Equal(t, 3.0, testutil.ToFloat64(h.Metrics.InvoicesOverdueTotal))

	st.overdue, st.overdueErr = 5, errors.New("connection refused")
	h.ProcessOverdueInvoices(ctx)
	assert.Equal(t, 3.0, testutil.ToFloat64(h.Metrics.InvoicesOverdueTotal))
}

func TestCreateCommentParent(t *testing.T) {
	tests := []struct {
		name   string
		body   gin.H
		status int
		field  string
	}{
		{"top level", gin.H{"productId": 100, "text": "Nice"}, http.StatusCreated, ""},
		{"reply on the same product", gin.H{"productId": 100, "parentId": 40, "text": "Agreed"}, http.StatusCreated, ""},
		{"parent on another product", gin.H{"productId": 100, "parentId": 41, "text": "Agreed"}, http.StatusBadRequest, "parentId"},
		{"deactivated parent", gin.H{"productId": 100, "parentId": 42, "text": "Agreed"}, http.StatusBadRequest, "parentId"},
		{"missing parent", gin.H{"productId": 100, "parentId": 99, "text": "Agreed"}, http.StatusBadRequest, "parentId"},
		{"deactivated product", gin.H{"productId": 102, "text": "Nice"}, http.StatusBadRequest, "productId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newFakeStore()
			h := newTestHandlers(st)

			w := serve(t, http.MethodPost, "/comments", "/comments", buyer(), tt.body, h.CreateComment)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.field != "" {
				assert.Contains(t, decodeOrder(t, w).Fields, tt.field)
				assert.Len(t, st.comments, 3)
				return
			}

			var resp struct {
				Comment models.Comment `json:"comment"`
			}
			decodeJSON(t, w, &resp)
			assert.Equal(t, buyerID, resp.Comment.UserID)
			assert.Equal(t, int64(100), resp.Comment.ProductID)
			if parent, ok := tt.body["parentId"]; ok {
				require.NotNil(t, resp.Comment.ParentID)
				assert.Equal(t, int64(parent.(int)), *resp.Comment.ParentID)
			}
			assert.Len(t, st.comments, 4)
		})
	}
}

func TestApplyCouponToEmptiedOrder(t *testing.T) {
	st := newFakeStore()
	h := newTestHandlers(st)
	o := seedOrder(st)
	for i := range o.Items {
		o.Items[i].Lifecycle = models.Deactivated
	}
	o.TotalPrice = decimal.Zero

	w := serve(t, http.MethodPost, "/orders/:id/apply-coupon", "/orders/500/apply-coupon", buyer(), gin.H{"code": "SAVE10"}, h.ApplyCoupon)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Contains(t, decodeOrder(t, w).Fields, "items")
	assert.Nil(t, st.orders[500].CouponID)
	assert.Equal(t, 0, st.coupons["SAVE10"].UsageCount)
}
