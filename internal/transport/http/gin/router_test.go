package httpgin

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/moodcafe/internal/bus"
	"github.com/kirinyoku/moodcafe/internal/domain"
	"github.com/kirinyoku/moodcafe/internal/idgen"
	"github.com/kirinyoku/moodcafe/internal/repository/memory"
	"github.com/kirinyoku/moodcafe/internal/service"
	"github.com/kirinyoku/moodcafe/internal/service/payment"
	"github.com/kirinyoku/moodcafe/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeIdem struct {
	mu   sync.Mutex
	vals map[string]string
}

func newFakeIdem() *fakeIdem {
	return &fakeIdem{vals: make(map[string]string)}
}

func (f *fakeIdem) AcquireLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.vals[key]; ok {
		return false, nil
	}
	f.vals[key] = "LOCK"
	return true, nil
}

func (f *fakeIdem) SaveResult(_ context.Context, key, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vals[key] = "RES:" + payload
	return nil
}

func (f *fakeIdem) GetResult(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vals[key]
	if !ok || !strings.HasPrefix(v, "RES:") {
		return "", false, nil
	}
	return strings.TrimPrefix(v, "RES:"), true, nil
}

func (f *fakeIdem) Release(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.vals, key)
	return nil
}

type denyLimiter struct{ retry time.Duration }

func (d denyLimiter) Allow(context.Context, string) (bool, int64, time.Duration, error) {
	return false, 11, d.retry, nil
}

type testEnv struct {
	router *gin.Engine
	svcs   *service.Services
	bus    *bus.Bus
}

func newTestEnv(t *testing.T, mutate func(*Options)) *testEnv {
	t.Helper()

	ids, err := idgen.New(1)
	require.NoError(t, err)

	b := bus.New()
	svcs := service.NewServices(store.New(memory.NewShared().Context(), nil), b, ids, service.Config{})
	require.NoError(t, svcs.Booking.Init(context.Background()))
	require.NoError(t, svcs.Admin.Init(context.Background(), ""))

	opts := Options{
		Services:   svcs,
		Bus:        b,
		AdminToken: testToken,
		UploadsDir: t.TempDir(),
	}
	if mutate != nil {
		mutate(&opts)
	}

	return &testEnv{router: NewRouter(opts), svcs: svcs, bus: b}
}

func (e *testEnv) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var rdr *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func adminHeaders() map[string]string {
	return map[string]string{adminTokenHeader: testToken}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestPingAndHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodGet, "/api/ping", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = env.do(http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestListZones_ETag(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodGet, "/api/zones", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	zones := decode[[]domain.Zone](t, w)
	assert.Len(t, zones, 4)

	tag := w.Header().Get("ETag")
	require.NotEmpty(t, tag)

	w = env.do(http.MethodGet, "/api/zones", nil, map[string]string{"If-None-Match": tag})
	assert.Equal(t, http.StatusNotModified, w.Code)

	w = env.do(http.MethodGet, "/api/zones", nil, map[string]string{"If-None-Match": `"other", ` + tag})
	assert.Equal(t, http.StatusNotModified, w.Code)
}

func TestEventsETagChangesAfterSale(t *testing.T) {
	env := newTestEnv(t, nil)

	before := env.do(http.MethodGet, "/api/events", nil, nil).Header().Get("ETag")

	w := env.do(http.MethodPost, "/api/bookings/event", BookEventRequest{EventID: "e1", UserName: "Bob", TicketCount: 2}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(http.MethodGet, "/api/events", nil, map[string]string{"If-None-Match": before})
	assert.Equal(t, http.StatusOK, w.Code)
	events := decode[[]domain.Event](t, w)
	assert.Equal(t, 2, events[0].Booked)
}

func TestBookZone(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		req  BookZoneRequest
		code int
	}{
		{name: "ok", req: BookZoneRequest{ZoneID: "z1", UserName: "Alice", Email: "a@x.com", Date: "2025-12-01", Time: "18:00", Seats: 2}, code: http.StatusCreated},
		{name: "over capacity", req: BookZoneRequest{ZoneID: "z1", UserName: "Alice", Seats: 3}, code: http.StatusConflict},
		{name: "unknown zone", req: BookZoneRequest{ZoneID: "z9", UserName: "Alice", Seats: 1}, code: http.StatusNotFound},
		{name: "zero seats", req: BookZoneRequest{ZoneID: "z1", UserName: "Alice"}, code: http.StatusBadRequest},
		{name: "missing name", req: BookZoneRequest{ZoneID: "z1", Seats: 1}, code: http.StatusBadRequest},
		{name: "bad email", req: BookZoneRequest{ZoneID: "z1", UserName: "A", Email: "nope", Seats: 1}, code: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/api/bookings/zone", tt.req, nil)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}

	w := env.do(http.MethodGet, "/api/bookings", nil, nil)
	bookings := decode[[]domain.Booking](t, w)
	require.Len(t, bookings, 1)
	assert.Equal(t, 998.0, bookings[0].Total)
	assert.Equal(t, domain.BookingConfirmed, bookings[0].Status)
}

func TestBookEvent_Full(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPost, "/api/bookings/event", BookEventRequest{EventID: "e1", UserName: "Bob", TicketCount: 20}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(http.MethodPost, "/api/bookings/event", BookEventRequest{EventID: "e1", UserName: "Bob", TicketCount: 1}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, decode[ErrorResponse](t, w).Error, "event is full")
}

func TestBooking_Idempotency(t *testing.T) {
	idem := newFakeIdem()
	env := newTestEnv(t, func(o *Options) { o.Idempotency = idem })

	hdr := map[string]string{"Idempotency-Key": "abc"}
	req := BookZoneRequest{ZoneID: "z3", UserName: "Carol", Seats: 4}

	first := env.do(http.MethodPost, "/api/bookings/zone", req, hdr)
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, "abc", first.Header().Get("Idempotency-Key"))

	second := env.do(http.MethodPost, "/api/bookings/zone", req, hdr)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	bookings, err := env.svcs.Booking.Bookings(context.Background())
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
}

func TestBooking_IdempotencyReleasedOnFailure(t *testing.T) {
	idem := newFakeIdem()
	env := newTestEnv(t, func(o *Options) { o.Idempotency = idem })

	hdr := map[string]string{"Idempotency-Key": "k1"}

	w := env.do(http.MethodPost, "/api/bookings/zone", BookZoneRequest{ZoneID: "z2", UserName: "D", Seats: 5}, hdr)
	require.Equal(t, http.StatusConflict, w.Code)

	w = env.do(http.MethodPost, "/api/bookings/zone", BookZoneRequest{ZoneID: "z2", UserName: "D", Seats: 1}, hdr)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestBooking_RateLimited(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.BookingLimiter = denyLimiter{retry: 2400 * time.Millisecond} })

	w := env.do(http.MethodPost, "/api/bookings/zone", BookZoneRequest{ZoneID: "z1", UserName: "A", Seats: 1}, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))

	// reads are not limited
	w = env.do(http.MethodGet, "/api/bookings", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdmin_RequiresToken(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, hdr := range []map[string]string{nil, {adminTokenHeader: "wrong"}} {
		w := env.do(http.MethodGet, "/api/data", nil, hdr)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
	}

	w := env.do(http.MethodGet, "/api/data", nil, adminHeaders())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdmin_EmptyTokenRejectsAll(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.AdminToken = "" })

	w := env.do(http.MethodGet, "/api/users", nil, map[string]string{adminTokenHeader: ""})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdmin_UserCRUD(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPost, "/api/users", CreateUserRequest{Name: "Eve", Email: "eve@x.com", Role: "customer"}, adminHeaders())
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[UserResponse](t, w)
	assert.True(t, created.OK)
	assert.Equal(t, domain.UserActive, created.User.Status)

	path := "/api/users/" + jsonID(created.User.ID)

	w = env.do(http.MethodPatch, path, map[string]any{"role": "admin"}, adminHeaders())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", decode[UserResponse](t, w).User.Role)

	w = env.do(http.MethodDelete, path, nil, adminHeaders())
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodDelete, path, nil, adminHeaders())
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPatch, "/api/users/abc", map[string]any{}, adminHeaders())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/users", nil, adminHeaders())
	assert.Empty(t, decode[[]domain.User](t, w))
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodGet, "/api/ping", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	h := w.Header()
	assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", h.Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", h.Get("Referrer-Policy"))
	assert.Equal(t, "off", h.Get("X-DNS-Prefetch-Control"))
	assert.Equal(t, "none", h.Get("X-Permitted-Cross-Domain-Policies"))
	assert.Empty(t, h.Get("Strict-Transport-Security"), "HSTS over plain HTTP")
}

func TestAdmin_DeleteWithFloatDecodedIDs(t *testing.T) {
	env := newTestEnv(t, nil)

	// JSON clients decode ids as float64; every id must survive that.
	ids := make(map[string]float64)
	for i := 0; i < 50; i++ {
		name := "u" + strconv.Itoa(i)
		w := env.do(http.MethodPost, "/api/users", CreateUserRequest{Name: name}, adminHeaders())
		require.Equal(t, http.StatusCreated, w.Code)

		var body struct {
			User struct {
				ID float64 `json:"id"`
			} `json:"user"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		ids[name] = body.User.ID
	}

	for i := 0; i < 50; i++ {
		name := "u" + strconv.Itoa(i)
		path := "/api/users/" + strconv.FormatFloat(ids[name], 'f', -1, 64)

		w := env.do(http.MethodDelete, path, nil, adminHeaders())
		require.Equal(t, http.StatusOK, w.Code, name)

		users := decode[[]domain.User](t, env.do(http.MethodGet, "/api/users", nil, adminHeaders()))
		require.Len(t, users, 49-i)
		for _, u := range users {
			require.NotEqual(t, name, u.Name, "deleted the wrong user")
		}
	}

	w := env.do(http.MethodPost, "/api/menu", CreateMenuItemRequest{Name: "Latte", Price: 180}, adminHeaders())
	require.Equal(t, http.StatusCreated, w.Code)
	var menu struct {
		Item struct {
			ID float64 `json:"id"`
		} `json:"item"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &menu))

	menuPath := "/api/menu/" + strconv.FormatFloat(menu.Item.ID, 'f', -1, 64)
	w = env.do(http.MethodDelete, menuPath, nil, adminHeaders())
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodDelete, menuPath, nil, adminHeaders())
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decode[ErrorResponse](t, w).Error, "not found")
}

func TestAdmin_MenuMultipartUpload(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, func(o *Options) { o.UploadsDir = dir })

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", "Cold Brew"))
	require.NoError(t, mw.WriteField("price", "220"))
	require.NoError(t, mw.WriteField("category", "coffee"))
	fw, err := mw.CreateFormFile("photo", "brew.JPG")
	require.NoError(t, err)
	_, err = fw.Write([]byte("fake image"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/menu", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(adminTokenHeader, testToken)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	item := decode[MenuItemResponse](t, w).Item
	assert.Equal(t, 220.0, item.Price)
	require.True(t, strings.HasPrefix(item.Photo, "/uploads/"))
	assert.True(t, strings.HasSuffix(item.Photo, ".jpg"))

	saved, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(item.Photo, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, "fake image", string(saved))

	w = env.do(http.MethodGet, item.Photo, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodDelete, "/api/menu/"+jsonID(item.ID), nil, adminHeaders())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdmin_OrdersAndStats(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPost, "/api/orders", CreateOrderRequest{User: "Frank", Total: 150, Items: []domain.OrderItem{{Name: "Latte"}}}, adminHeaders())
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, domain.OrderCompleted, decode[OrderResponse](t, w).Order.Status)

	w = env.do(http.MethodGet, "/api/data", nil, adminHeaders())
	data := decode[domain.AdminData](t, w)
	assert.Equal(t, 150.0, data.Stats.Revenue)
	assert.Equal(t, 1, data.Stats.TotalOrders)

	w = env.do(http.MethodGet, "/api/orders", nil, adminHeaders())
	assert.Len(t, decode[[]domain.Order](t, w), 1)
}

func TestBookingShowsUpAsOrder(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPost, "/api/bookings/zone", BookZoneRequest{ZoneID: "z4", UserName: "Gus", Seats: 6}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(http.MethodGet, "/api/orders", nil, adminHeaders())
	orders := decode[[]domain.Order](t, w)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.OrderSourceBooking, orders[0].Source)
	assert.Equal(t, 4794.0, orders[0].Total)
}

func TestExportCredentials(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.svcs.Admin.AddUser(context.Background(), domain.User{Name: "Hal", Email: "hal@x.com", Role: "customer", JoinDate: "2025-01-02"})
	require.NoError(t, err)

	w := env.do(http.MethodGet, "/api/export/credentials", nil, adminHeaders())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "credentials_export.csv")

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,name,email,role,joinDate,status", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], `,"Hal","hal@x.com","customer","2025-01-02","active"`))
}

func TestCreateIntent(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPost, "/api/payments/create-intent", CreateIntentRequest{Amount: 0}, adminHeaders())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/api/payments/create-intent", CreateIntentRequest{Amount: 12.5, Currency: "usd"}, adminHeaders())
	require.Equal(t, http.StatusOK, w.Code)

	intent := decode[payment.Intent](t, w)
	assert.Equal(t, payment.ModeDemo, intent.Mode)
	assert.Equal(t, int64(1250), intent.Amount)
	assert.True(t, strings.HasPrefix(intent.ClientSecret, "pi_demo_client_secret_"))
}

func TestCreateIntent_EmptyBody(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPost, "/api/payments/create-intent", nil, adminHeaders())
	require.Equal(t, http.StatusOK, w.Code)

	body := decode[map[string]any](t, w)
	assert.Equal(t, payment.ModeDemo, body["mode"])
	assert.Regexp(t, `^pi_demo_client_secret_\d+$`, body["clientSecret"])
	assert.NotContains(t, body, "amount")

	w = env.do(http.MethodPost, "/api/payments/create-intent", map[string]any{}, adminHeaders())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPost, "/api/activity", ActivityRequest{Type: domain.ActivityLogin, UserID: "u1"}, nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = env.do(http.MethodPost, "/api/activity", map[string]string{"type": "dance", "userId": "u1"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/api/metrics/pageview", nil, nil)
	assert.True(t, decode[PageViewResponse](t, w).Counted)
	w = env.do(http.MethodPost, "/api/metrics/pageview", nil, nil)
	assert.False(t, decode[PageViewResponse](t, w).Counted)

	w = env.do(http.MethodGet, "/api/metrics", nil, nil)
	m := decode[domain.Metrics](t, w)
	assert.Equal(t, 1, m.ActiveUsers)
	assert.Equal(t, int64(1), m.PageViews)
}

func TestErrorTracking_RecordsPanics(t *testing.T) {
	env := newTestEnv(t, nil)
	env.router.GET("/boom", func(*gin.Context) { panic("kaboom") })

	w := env.do(http.MethodGet, "/boom", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	errs := env.svcs.Monitor.Snapshot().RecentErrors
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "GET /boom: 500")
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
