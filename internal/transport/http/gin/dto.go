package httpgin

import (
	"github.com/kirinyoku/moodcafe/internal/domain"
)

type BookZoneRequest struct {
	ZoneID   string `json:"zoneId" binding:"required"`
	UserName string `json:"userName" binding:"required"`
	Email    string `json:"email" binding:"omitempty,email"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Seats    int    `json:"seats"`
}

type BookEventRequest struct {
	EventID     string `json:"eventId" binding:"required"`
	UserName    string `json:"userName" binding:"required"`
	Email       string `json:"email" binding:"omitempty,email"`
	TicketCount int    `json:"ticketCount"`
}

type ActivityRequest struct {
	Type   domain.ActivityType `json:"type" binding:"required,oneof=login logout"`
	UserID string              `json:"userId" binding:"required"`
}

type CreateUserRequest struct {
	Name     string            `json:"name" binding:"required"`
	Email    string            `json:"email"`
	Role     string            `json:"role"`
	JoinDate string            `json:"joinDate"`
	Status   domain.UserStatus `json:"status"`
}

// CreateMenuItemRequest is bound from JSON or from a multipart form with an
// optional "photo" file.
type CreateMenuItemRequest struct {
	Name        string  `json:"name" form:"name" binding:"required"`
	Description string  `json:"description" form:"description"`
	Price       float64 `json:"price" form:"price" binding:"gte=0"`
	Category    string  `json:"category" form:"category"`
	Photo       string  `json:"photo" form:"-"`
}

type CreateOrderRequest struct {
	User   string             `json:"user" binding:"required"`
	Total  float64            `json:"total" binding:"gte=0"`
	Date   string             `json:"date"`
	Status domain.OrderStatus `json:"status"`
	Items  []domain.OrderItem `json:"items"`
}

type CreateIntentRequest struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type UserResponse struct {
	OK   bool        `json:"ok"`
	User domain.User `json:"user"`
}

type MenuItemResponse struct {
	OK   bool            `json:"ok"`
	Item domain.MenuItem `json:"item"`
}

type OrderResponse struct {
	OK    bool         `json:"ok"`
	Order domain.Order `json:"order"`
}

type PageViewResponse struct {
	Counted bool `json:"counted"`
}
