package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"vending_machine/internal/domain"
	"vending_machine/internal/ledger"
	"vending_machine/internal/utils"
	"vending_machine/internal/vending"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func init() { gin.SetMode(gin.TestMode) }

type testServer struct {
	router  *gin.Engine
	store   *ledger.MemoryStore
	mr      *miniredis.Miniredis
	admin   domain.User
	user    domain.User
	product domain.Product
	slot    domain.Slot
}

func newTestServer(t *testing.T, credit string, quantity int, opts ...func(*Deps)) *testServer {
	t.Helper()
	ctx := context.Background()
	s := &testServer{
		store:   ledger.NewMemoryStore(),
		mr:      miniredis.RunT(t),
		admin:   domain.User{Username: "admin", Role: domain.RoleAdmin},
		user:    domain.User{Username: "alice", Role: domain.RoleUser, Credit: decimal.RequireFromString(credit)},
		product: domain.Product{Name: "Sandwich", Price: decimal.RequireFromString("10.40")},
	}
	require.NoError(t, s.store.CreateUser(ctx, &s.admin))
	require.NoError(t, s.store.CreateUser(ctx, &s.user))
	require.NoError(t, s.store.CreateProduct(ctx, &s.product))
	s.slot = domain.Slot{ProductID: s.product.ID, Quantity: quantity, Row: 2, Column: 3}
	require.NoError(t, s.store.CreateSlot(ctx, &s.slot))

	rdb := redis.NewClient(&redis.Options{Addr: s.mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	logger, _ := logtest.NewNullLogger()

	deps := Deps{
		Store:        s.store,
		Coordinator:  vending.NewCoordinator(s.store, vending.WithLogger(logger)),
		Catalog:      vending.NewCatalog(s.store),
		Redis:        rdb,
		JWTSecret:    testSecret,
		OrderTimeout: time.Second,
		CacheTTL:     time.Minute,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	s.router = gin.New()
	RegisterRoutes(s.router, deps)
	return s
}

func (s *testServer) do(t *testing.T, method, path string, body any, as *domain.User) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		token, err := utils.GenerateJWT(as.ID, testSecret)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) order(t *testing.T, productID, slotID uuid.UUID) *httptest.ResponseRecorder {
	return s.do(t, http.MethodPost, "/order", gin.H{
		"user_id":    s.user.ID.String(),
		"product_id": productID.String(),
		"slot_id":    slotID.String(),
	}, &s.user)
}

func (s *testServer) state(t *testing.T) (decimal.Decimal, int) {
	t.Helper()
	u, err := s.store.GetUser(context.Background(), s.user.ID)
	require.NoError(t, err)
	sl, err := s.store.GetSlot(context.Background(), s.slot.ID)
	require.NoError(t, err)
	return u.Credit, sl.Quantity
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestOrderSuccess(t *testing.T) {
	s := newTestServer(t, "100.00", 5)

	w := s.order(t, s.product.ID, s.slot.ID)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[OrderResponse](t, w)

	orders := s.store.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, orders[0].ID.String(), resp.OrderID)

	credit, quantity := s.state(t)
	assert.True(t, credit.Equal(decimal.RequireFromString("89.60")))
	assert.Equal(t, 4, quantity)
}

func TestOrderBusinessRejections(t *testing.T) {
	tests := []struct {
		name     string
		credit   string
		quantity int
		kind     vending.ErrorKind
		message  string
	}{
		{"out of stock", "100.00", 0, vending.KindOutOfStock, "Sandwich is out of stock."},
		{"insufficient credit", "5.00", 5, vending.KindInsufficientCredit, "you do not have enough credit"},
		{"both, credit wins", "5.00", 0, vending.KindInsufficientCredit, "you do not have enough credit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.credit, tt.quantity)

			w := s.order(t, s.product.ID, s.slot.ID)
			require.Equal(t, http.StatusBadRequest, w.Code)
			resp := decode[ErrorResponse](t, w)
			assert.Equal(t, tt.kind, resp.ErrorKind)
			assert.Equal(t, tt.message, resp.Error)

			credit, quantity := s.state(t)
			assert.True(t, credit.Equal(decimal.RequireFromString(tt.credit)))
			assert.Equal(t, tt.quantity, quantity)
			assert.Empty(t, s.store.Orders())
		})
	}
}

func TestOrderUnknownProductIsGenericFailure(t *testing.T) {
	s := newTestServer(t, "100.00", 5)

	w := s.order(t, uuid.New(), s.slot.ID)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, vending.KindInternal, resp.ErrorKind)
	assert.Equal(t, "Order failed", resp.Error)
	assert.NotContains(t, w.Body.String(), "not found")

	credit, quantity := s.state(t)
	assert.True(t, credit.Equal(decimal.RequireFromString("100.00")))
	assert.Equal(t, 5, quantity)
}

func TestOrderCommitFaultIsGenericFailure(t *testing.T) {
	s := newTestServer(t, "100.00", 5)
	s.store.BeforeCommit = func(ledger.Batch) error { return errors.New("disk full") }

	w := s.order(t, s.product.ID, s.slot.ID)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "disk full")
	assert.Empty(t, s.store.Orders())
}

func TestOrderRequestValidation(t *testing.T) {
	s := newTestServer(t, "100.00", 5)

	w := s.do(t, http.MethodPost, "/order", gin.H{"user_id": s.user.ID.String(), "product_id": "nope", "slot_id": s.slot.ID.String()}, &s.user)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/order", gin.H{"user_id": s.user.ID.String()}, &s.user)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/order", gin.H{
		"user_id": s.user.ID.String(), "product_id": s.product.ID.String(), "slot_id": s.slot.ID.String(),
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Admin token, customer's user_id
	w = s.do(t, http.MethodPost, "/order", gin.H{
		"user_id": s.user.ID.String(), "product_id": s.product.ID.String(), "slot_id": s.slot.ID.String(),
	}, &s.admin)
	assert.Equal(t, http.StatusForbidden, w.Code)

	_, quantity := s.state(t)
	assert.Equal(t, 5, quantity)
}

func TestListSlots(t *testing.T) {
	s := newTestServer(t, "100.00", 5)

	w := s.do(t, http.MethodGet, "/slots", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	slots := decode[[]vending.SlotView](t, w)
	require.Len(t, slots, 1)
	assert.Equal(t, s.slot.ID, slots[0].ID)
	assert.Equal(t, [2]int{3, 2}, slots[0].Coordinates)
	assert.Equal(t, "10.40", slots[0].Product.Price)

	w = s.do(t, http.MethodGet, "/slots?quantity=4", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]vending.SlotView](t, w))

	w = s.do(t, http.MethodGet, "/slots?quantity=5", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]vending.SlotView](t, w), 1)

	for _, q := range []string{"-1", "abc", "1.5"} {
		w = s.do(t, http.MethodGet, "/slots?quantity="+q, nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestListSlotsCacheInvalidatedByOrder(t *testing.T) {
	s := newTestServer(t, "100.00", 5)

	w := s.do(t, http.MethodGet, "/slots", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, s.mr.Exists("slots:g0:all"))

	require.Equal(t, http.StatusCreated, s.order(t, s.product.ID, s.slot.ID).Code)
	assert.False(t, s.mr.Exists("slots:g0:all"))
	gen, err := s.mr.Get("slots:gen")
	require.NoError(t, err)
	assert.Equal(t, "1", gen)

	w = s.do(t, http.MethodGet, "/slots", nil, nil)
	slots := decode[[]vending.SlotView](t, w)
	require.Len(t, slots, 1)
	assert.Equal(t, 4, slots[0].Quantity)
}

// stallingStore parks the first ListSlots call after it has read the store,
// until release is closed.
type stallingStore struct {
	ledger.Store
	read    chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *stallingStore) ListSlots(ctx context.Context, filter ledger.SlotFilter) ([]domain.Slot, error) {
	slots, err := s.Store.ListSlots(ctx, filter)
	s.once.Do(func() {
		close(s.read)
		<-s.release
	})
	return slots, err
}

func TestListSlotsReadOverlappingOrderIsNotServedLater(t *testing.T) {
	stall := &stallingStore{read: make(chan struct{}), release: make(chan struct{})}
	s := newTestServer(t, "100.00", 5, func(d *Deps) {
		stall.Store = d.Store
		d.Catalog = vending.NewCatalog(stall)
	})

	done := make(chan *httptest.ResponseRecorder)
	go func() { done <- s.do(t, http.MethodGet, "/slots", nil, nil) }()
	<-stall.read

	// The order commits and invalidates while the listing above holds a stale read.
	require.Equal(t, http.StatusCreated, s.order(t, s.product.ID, s.slot.ID).Code)
	close(stall.release)
	stale := decode[[]vending.SlotView](t, <-done)
	require.Len(t, stale, 1)
	assert.Equal(t, 5, stale[0].Quantity)

	w := s.do(t, http.MethodGet, "/slots", nil, nil)
	slots := decode[[]vending.SlotView](t, w)
	require.Len(t, slots, 1)
	assert.Equal(t, 4, slots[0].Quantity)
}

func TestCacheInvalidationFailureIsLogged(t *testing.T) {
	hook := logtest.NewGlobal()
	t.Cleanup(hook.Reset)
	s := newTestServer(t, "100.00", 0)
	s.mr.SetError("READONLY You can't write against a read only replica.")

	w := s.do(t, http.MethodPatch, "/slots/"+s.slot.ID.String()+"/quantity", gin.H{"quantity": 3}, &s.admin)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "Failed to invalidate slot cache" {
			warned = true
			assert.Equal(t, s.slot.ID, e.Data["slot_id"])
		}
	}
	assert.True(t, warned)

	// Listings bypass an unreachable cache and still read the store.
	w = s.do(t, http.MethodGet, "/slots", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode[[]vending.SlotView](t, w)[0].Quantity)
}

func TestOrderAcceptsAnyUUIDSpelling(t *testing.T) {
	s := newTestServer(t, "100.00", 5)

	w := s.do(t, http.MethodPost, "/order", gin.H{
		"user_id":    strings.ToUpper(s.user.ID.String()),
		"product_id": "{" + s.product.ID.String() + "}",
		"slot_id":    "urn:uuid:" + s.slot.ID.String(),
	}, &s.user)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	_, quantity := s.state(t)
	assert.Equal(t, 4, quantity)

	for _, bad := range []gin.H{
		{"user_id": "not-a-uuid", "product_id": s.product.ID, "slot_id": s.slot.ID},
		{"user_id": uuid.Nil, "product_id": s.product.ID, "slot_id": s.slot.ID},
		{"product_id": s.product.ID, "slot_id": s.slot.ID},
	} {
		w = s.do(t, http.MethodPost, "/order", bad, &s.user)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t, "100.00", 5)

	w := s.do(t, http.MethodPost, "/login", gin.H{"username": "alice"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[AuthResponse](t, w)
	assert.Equal(t, s.user.ID.String(), resp.User.ID)
	assert.Equal(t, "100.00", resp.User.Credit)
	claims, err := utils.ParseJWT(resp.Token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, s.user.ID, claims.UserID)

	w = s.do(t, http.MethodPost, "/login", gin.H{"username": "mallory"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/login", gin.H{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetUserCredit(t *testing.T) {
	s := newTestServer(t, "0.00", 5)
	path := "/users/" + s.user.ID.String() + "/credit"

	w := s.do(t, http.MethodPatch, path, gin.H{"credit": "25.50"}, &s.admin)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
	credit, _ := s.state(t)
	assert.True(t, credit.Equal(decimal.RequireFromString("25.50")))

	for _, bad := range []any{"-1.00", "10000.00", "1.234", nil} {
		w = s.do(t, http.MethodPatch, path, gin.H{"credit": bad}, &s.admin)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}

	w = s.do(t, http.MethodPatch, path, gin.H{"credit": "1.00"}, &s.user)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPatch, "/users/"+uuid.NewString()+"/credit", gin.H{"credit": "1.00"}, &s.admin)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetSlotQuantity(t *testing.T) {
	s := newTestServer(t, "100.00", 0)
	path := "/slots/" + s.slot.ID.String() + "/quantity"

	s.do(t, http.MethodGet, "/slots", nil, nil)
	require.True(t, s.mr.Exists("slots:g0:all"))

	w := s.do(t, http.MethodPatch, path, gin.H{"quantity": 7}, &s.admin)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
	_, quantity := s.state(t)
	assert.Equal(t, 7, quantity)
	assert.False(t, s.mr.Exists("slots:g0:all"))

	w = s.do(t, http.MethodGet, "/slots", nil, nil)
	slots := decode[[]vending.SlotView](t, w)
	require.Len(t, slots, 1)
	assert.Equal(t, 7, slots[0].Quantity)
	assert.True(t, s.mr.Exists("slots:g1:all"))

	for _, bad := range []any{-1, 101, nil} {
		w = s.do(t, http.MethodPatch, path, gin.H{"quantity": bad}, &s.admin)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}

	w = s.do(t, http.MethodPatch, "/slots/"+uuid.NewString()+"/quantity", gin.H{"quantity": 1}, &s.admin)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthcheck(t *testing.T) {
	s := newTestServer(t, "100.00", 5)

	w := s.do(t, http.MethodGet, "/healthcheck", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	s.mr.Close()
	w = s.do(t, http.MethodGet, "/healthcheck", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
