package httpgin

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/moodcafe/internal/bus"
	"github.com/kirinyoku/moodcafe/internal/domain"
	"github.com/kirinyoku/moodcafe/internal/service"
	"github.com/kirinyoku/moodcafe/internal/service/payment"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/ulule/limiter/v3"
)

type Options struct {
	Services   *service.Services
	Bus        *bus.Bus
	Logger     *slog.Logger
	AdminToken string
	UploadsDir string

	// Optional; both need Redis.
	Idempotency    IdempotencyStore
	BookingLimiter BookingLimiter

	// RateLimiter is the global per-IP budget; nil disables it.
	RateLimiter *limiter.Limiter
}

func NewRouter(opts Options, middlewares ...gin.HandlerFunc) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	svcs := opts.Services

	r := gin.New()

	r.Use(
		ErrorTrackingMiddleware(svcs.Monitor),
		gin.Recovery(),
		LoggingMiddleware(opts.Logger),
		RequestIDMiddleware(),
		SecurityHeadersMiddleware(),
		CORS(),
	)
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if opts.UploadsDir != "" {
		r.Static("/uploads", opts.UploadsDir)
	}

	api := r.Group("/api")
	if opts.RateLimiter != nil {
		api.Use(RateLimitMiddleware(opts.RateLimiter))
	}

	api.GET("/ping", handlePing())

	// Public API
	api.GET("/zones", handleListZones(svcs))
	api.GET("/events", handleListEvents(svcs))
	api.GET("/bookings", handleListBookings(svcs))

	bookings := api.Group("/bookings")
	if opts.BookingLimiter != nil {
		bookings.Use(BookingRateLimitMiddleware(opts.BookingLimiter))
	}
	bookings.POST("/zone", handleBookZone(svcs, opts.Idempotency))
	bookings.POST("/event", handleBookEvent(svcs, opts.Idempotency))

	api.GET("/metrics", handleGetMetrics(svcs))
	api.GET("/metrics/stream", handleMetricsStream(svcs, opts.Bus))
	api.POST("/metrics/pageview", handlePageView(svcs))
	api.POST("/activity", handleActivity(opts.Bus))

	// Admin-API
	admin := api.Group("", AdminTokenMiddleware(opts.AdminToken))
	{
		admin.GET("/data", handleGetData(svcs))

		admin.GET("/users", handleListUsers(svcs))
		admin.POST("/users", handleCreateUser(svcs))
		admin.PATCH("/users/:id", handleUpdateUser(svcs))
		admin.DELETE("/users/:id", handleRemoveUser(svcs))

		admin.GET("/menu", handleListMenu(svcs))
		admin.POST("/menu", handleCreateMenuItem(svcs, opts.UploadsDir))
		admin.PATCH("/menu/:id", handleUpdateMenuItem(svcs))
		admin.DELETE("/menu/:id", handleRemoveMenuItem(svcs))

		admin.GET("/orders", handleListOrders(svcs))
		admin.POST("/orders", handleCreateOrder(svcs))

		admin.GET("/export/credentials", handleExportCredentials(svcs))
		admin.POST("/payments/create-intent", handleCreateIntent(svcs))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  Liveness probe
// @Success  200  {object}  OKResponse
// @Router   /api/ping [get]
func handlePing() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, OKResponse{OK: true})
	}
}

// @Summary  List zones
// @Success  200  {array}  domain.Zone
// @Router   /api/zones [get]
func handleListZones(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		zones, err := svcs.Booking.Zones(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, zones, "no-cache", true)
	}
}

// @Summary  List events with booked counters
// @Success  200  {array}  domain.Event
// @Router   /api/events [get]
func handleListEvents(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		events, err := svcs.Booking.Events(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		// booked changes with every sale, so clients always revalidate
		writeJSONWithCache(c, http.StatusOK, events, "no-cache", true)
	}
}

// @Summary  List bookings
// @Success  200  {array}  domain.Booking
// @Router   /api/bookings [get]
func handleListBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookings, err := svcs.Booking.Bookings(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, bookings)
	}
}

// @Summary  Book a zone (idempotent)
// @Param    req body  BookZoneRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} domain.Booking
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse "zone not found"
// @Failure  409 {object} ErrorResponse "exceeds zone capacity / idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /api/bookings/zone [post]
func handleBookZone(svcs *service.Services, idem IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BookZoneRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		withIdempotency(c, idem, string(domain.BookingZone), func() (any, error) {
			return svcs.Booking.BookZone(c.Request.Context(), bookingZoneRequest(req))
		})
	}
}

// @Summary  Buy event tickets (idempotent)
// @Param    req body  BookEventRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} domain.Booking
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse "event not found"
// @Failure  409 {object} ErrorResponse "event is full / idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /api/bookings/event [post]
func handleBookEvent(svcs *service.Services, idem IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BookEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		withIdempotency(c, idem, string(domain.BookingEvent), func() (any, error) {
			return svcs.Booking.BookEvent(c.Request.Context(), bookingEventRequest(req))
		})
	}
}

// @Summary  Current metrics snapshot
// @Success  200  {object}  domain.Metrics
// @Router   /api/metrics [get]
func handleGetMetrics(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, svcs.Monitor.Snapshot())
	}
}

// @Summary  Count a page view (throttled)
// @Success  200  {object}  PageViewResponse
// @Router   /api/metrics/pageview [post]
func handlePageView(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, PageViewResponse{Counted: svcs.Monitor.RecordPageView()})
	}
}

// @Summary  Report login/logout
// @Param    req body  ActivityRequest true "payload"
// @Success  202  {object}  OKResponse
// @Failure  400  {object}  ErrorResponse
// @Router   /api/activity [post]
func handleActivity(b *bus.Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ActivityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		b.Publish(c.Request.Context(), bus.Message{
			Type:    domain.TypeUserActivity,
			Payload: domain.UserActivity{Type: req.Type, UserID: req.UserID},
		})

		c.JSON(http.StatusAccepted, OKResponse{OK: true})
	}
}

// @Summary  Full admin document
// @Security AdminToken
// @Success  200  {object}  domain.AdminData
// @Failure  401  {object}  ErrorResponse
// @Router   /api/data [get]
func handleGetData(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := svcs.Admin.Data(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, data)
	}
}

// @Summary  List users
// @Security AdminToken
// @Success  200  {array}  domain.User
// @Router   /api/users [get]
func handleListUsers(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := svcs.Admin.Data(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, data.Users)
	}
}

// @Summary  Create user
// @Security AdminToken
// @Param    req body  CreateUserRequest true "payload"
// @Success  201 {object} UserResponse
// @Router   /api/users [post]
func handleCreateUser(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		u, err := svcs.Admin.AddUser(c.Request.Context(), domain.User{
			Name:     req.Name,
			Email:    req.Email,
			Role:     req.Role,
			JoinDate: req.JoinDate,
			Status:   req.Status,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, UserResponse{OK: true, User: u})
	}
}

// @Summary  Update user fields
// @Security AdminToken
// @Param    id  path  int  true  "User ID"
// @Param    req body  domain.UserUpdate true "fields to change"
// @Success  200 {object} UserResponse
// @Failure  404 {object} ErrorResponse
// @Router   /api/users/{id} [patch]
func handleUpdateUser(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var upd domain.UserUpdate
		if err := c.ShouldBindJSON(&upd); err != nil {
			badRequest(c, err.Error())
			return
		}
		u, err := svcs.Admin.UpdateUser(c.Request.Context(), id, upd)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, UserResponse{OK: true, User: u})
	}
}

// @Summary      Delete user
// @Description  Deleting an unknown id is not a no-op: it answers 404 and writes nothing.
// @Security     AdminToken
// @Param        id  path  int  true  "User ID"
// @Success      200 {object} OKResponse
// @Failure      404 {object} ErrorResponse "unknown id"
// @Router   /api/users/{id} [delete]
func handleRemoveUser(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svcs.Admin.RemoveUser(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, OKResponse{OK: true})
	}
}

// @Summary  List menu items
// @Security AdminToken
// @Success  200  {array}  domain.MenuItem
// @Router   /api/menu [get]
func handleListMenu(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := svcs.Admin.Data(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, data.MenuItems)
	}
}

// @Summary  Create menu item
// @Security AdminToken
// @Accept   json,mpfd
// @Param    name        formData  string  true   "name"
// @Param    price       formData  number  false  "price"
// @Param    photo       formData  file    false  "photo"
// @Success  201 {object} MenuItemResponse
// @Router   /api/menu [post]
func handleCreateMenuItem(svcs *service.Services, uploadsDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateMenuItemRequest
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		if fh, err := c.FormFile("photo"); err == nil {
			photo, err := saveUpload(c, fh, uploadsDir)
			if err != nil {
				respondErr(c, err)
				return
			}
			req.Photo = photo
		}

		item, err := svcs.Admin.AddMenuItem(c.Request.Context(), domain.MenuItem{
			Name:        req.Name,
			Description: req.Description,
			Price:       req.Price,
			Category:    req.Category,
			Photo:       req.Photo,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, MenuItemResponse{OK: true, Item: item})
	}
}

// @Summary  Update menu item fields
// @Security AdminToken
// @Param    id  path  int  true  "Menu item ID"
// @Param    req body  domain.MenuItemUpdate true "fields to change"
// @Success  200 {object} MenuItemResponse
// @Failure  404 {object} ErrorResponse
// @Router   /api/menu/{id} [patch]
func handleUpdateMenuItem(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var upd domain.MenuItemUpdate
		if err := c.ShouldBindJSON(&upd); err != nil {
			badRequest(c, err.Error())
			return
		}
		item, err := svcs.Admin.UpdateMenuItem(c.Request.Context(), id, upd)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, MenuItemResponse{OK: true, Item: item})
	}
}

// @Summary      Delete menu item
// @Description  Deleting an unknown id is not a no-op: it answers 404 and writes nothing.
// @Security     AdminToken
// @Param        id  path  int  true  "Menu item ID"
// @Success      200 {object} OKResponse
// @Failure      404 {object} ErrorResponse "unknown id"
// @Router   /api/menu/{id} [delete]
func handleRemoveMenuItem(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svcs.Admin.RemoveMenuItem(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, OKResponse{OK: true})
	}
}

// @Summary  List orders
// @Security AdminToken
// @Success  200  {array}  domain.Order
// @Router   /api/orders [get]
func handleListOrders(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := svcs.Admin.Data(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, data.Orders)
	}
}

// @Summary  Create order
// @Security AdminToken
// @Param    req body  CreateOrderRequest true "payload"
// @Success  201 {object} OrderResponse
// @Router   /api/orders [post]
func handleCreateOrder(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		o, err := svcs.Admin.AddOrder(c.Request.Context(), domain.Order{
			User:   req.User,
			Total:  req.Total,
			Date:   req.Date,
			Status: req.Status,
			Items:  req.Items,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, OrderResponse{OK: true, Order: o})
	}
}

// @Summary  Export users as CSV
// @Security AdminToken
// @Produce  text/csv
// @Success  200 {string} string "csv"
// @Router   /api/export/credentials [get]
func handleExportCredentials(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", `attachment; filename="credentials_export.csv"`)
		c.Status(http.StatusOK)

		if err := svcs.Admin.ExportUsersCSV(c.Request.Context(), c.Writer); err != nil {
			// headers are already out; all we can do is record it
			_ = c.Error(err)
		}
	}
}

// @Summary      Create a demo payment intent
// @Description  An empty body returns a bare demo client secret. A body must carry amount > 0.
// @Security     AdminToken
// @Param        req body  CreateIntentRequest false "payload"
// @Success  200 {object} payment.Intent
// @Failure  400 {object} ErrorResponse "invalid amount"
// @Router   /api/payments/create-intent [post]
func handleCreateIntent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateIntentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			if errors.Is(err, io.EOF) {
				c.JSON(http.StatusOK, svcs.Payment.Stub())
				return
			}
			badRequest(c, err.Error())
			return
		}
		intent, err := svcs.Payment.CreateIntent(req.Amount, req.Currency)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, intent)
	}
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: rootMessage(err)})
	case errors.Is(err, domain.ErrCapacityExceeded), errors.Is(err, domain.ErrEventFull):
		c.JSON(http.StatusConflict, ErrorResponse{Error: rootMessage(err)})
	case errors.Is(err, domain.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: domain.ErrInvalidQuantity.Error()})
	case errors.Is(err, payment.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: payment.ErrInvalidAmount.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

// rootMessage strips the "op: " prefixes added on the way up.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
