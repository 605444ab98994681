package domain

import (
	"time"
)

type BookingKind string

const (
	BookingZone  BookingKind = "zone"
	BookingEvent BookingKind = "event"
)

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

type Zone struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Capacity    int     `json:"capacity"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
}

type Event struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	Capacity    int     `json:"capacity"`
	Price       float64 `json:"price"`
	Booked      int     `json:"booked"`
}

// Remaining returns how many tickets can still be sold.
func (e Event) Remaining() int {
	if e.Booked >= e.Capacity {
		return 0
	}
	return e.Capacity - e.Booked
}

// Booking is a historical record: the zone name / event title and the total
// are snapshots taken when the booking was made.
type Booking struct {
	ID          int64         `json:"id"`
	Kind        BookingKind   `json:"type"`
	ZoneID      string        `json:"zoneId,omitempty"`
	ZoneName    string        `json:"zoneName,omitempty"`
	EventID     string        `json:"eventId,omitempty"`
	EventTitle  string        `json:"eventTitle,omitempty"`
	UserName    string        `json:"userName"`
	Email       string        `json:"email"`
	Date        string        `json:"date,omitempty"`
	Time        string        `json:"time,omitempty"`
	Seats       int           `json:"seats,omitempty"`
	TicketCount int           `json:"ticketCount,omitempty"`
	Total       float64       `json:"total"`
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// BookingData is the single persisted document owned by the booking ledger.
type BookingData struct {
	Bookings []Booking `json:"bookings"`
	Zones    []Zone    `json:"zones"`
	Events   []Event   `json:"events"`
}

type MenuItemStatus string

const (
	MenuItemAvailable   MenuItemStatus = "available"
	MenuItemUnavailable MenuItemStatus = "unavailable"
)

type MenuItem struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Price       float64        `json:"price"`
	Category    string         `json:"category"`
	Photo       string         `json:"photo"`
	Orders      int            `json:"orders"`
	Status      MenuItemStatus `json:"status,omitempty"`
}

type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

type User struct {
	ID       int64      `json:"id"`
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Role     string     `json:"role"`
	JoinDate string     `json:"joinDate"`
	Status   UserStatus `json:"status"`
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderConfirmed OrderStatus = "confirmed"
)

type OrderSource string

const (
	OrderSourceAdmin   OrderSource = "admin"
	OrderSourceBooking OrderSource = "booking"
)

type OrderItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity,omitempty"`
	Price    float64 `json:"price,omitempty"`
}

type Order struct {
	ID     int64       `json:"id"`
	User   string      `json:"user"`
	Total  float64     `json:"total"`
	Date   string      `json:"date"`
	Status OrderStatus `json:"status"`
	Items  []OrderItem `json:"items,omitempty"`
	Source OrderSource `json:"source,omitempty"`
}

type Settings struct {
	IsMaintenanceMode     bool    `json:"isMaintenanceMode"`
	AllowNewRegistrations bool    `json:"allowNewRegistrations"`
	FeaturedItems         []int64 `json:"featuredItems"`
}

// Stats is derived from AdminData and is recomputed on every save.
type Stats struct {
	TotalUsers  int     `json:"totalUsers"`
	TotalOrders int     `json:"totalOrders"`
	Revenue     float64 `json:"revenue"`
	ActiveUsers int     `json:"activeUsers"`
}

// AdminData is the single persisted document owned by the admin ledger.
type AdminData struct {
	MenuItems []MenuItem `json:"menuItems"`
	Users     []User     `json:"users"`
	Orders    []Order    `json:"orders"`
	Settings  Settings   `json:"settings"`
	Stats     Stats      `json:"stats"`
}

type MenuItemUpdate struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	Price       *float64        `json:"price,omitempty"`
	Category    *string         `json:"category,omitempty"`
	Photo       *string         `json:"photo,omitempty"`
	Status      *MenuItemStatus `json:"status,omitempty"`
}

func (u MenuItemUpdate) Apply(m MenuItem) MenuItem {
	if u.Name != nil {
		m.Name = *u.Name
	}
	if u.Description != nil {
		m.Description = *u.Description
	}
	if u.Price != nil {
		m.Price = *u.Price
	}
	if u.Category != nil {
		m.Category = *u.Category
	}
	if u.Photo != nil {
		m.Photo = *u.Photo
	}
	if u.Status != nil {
		m.Status = *u.Status
	}
	return m
}

type UserUpdate struct {
	Name     *string     `json:"name,omitempty"`
	Email    *string     `json:"email,omitempty"`
	Role     *string     `json:"role,omitempty"`
	JoinDate *string     `json:"joinDate,omitempty"`
	Status   *UserStatus `json:"status,omitempty"`
}

func (u UserUpdate) Apply(usr User) User {
	if u.Name != nil {
		usr.Name = *u.Name
	}
	if u.Email != nil {
		usr.Email = *u.Email
	}
	if u.Role != nil {
		usr.Role = *u.Role
	}
	if u.JoinDate != nil {
		usr.JoinDate = *u.JoinDate
	}
	if u.Status != nil {
		usr.Status = *u.Status
	}
	return usr
}

type ItemCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type ErrorEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// Metrics is the consolidated snapshot republished by the monitor.
type Metrics struct {
	ActiveUsers  int          `json:"activeUsers"`
	PageViews    int64        `json:"pageViews"`
	PeakHours    [24]int      `json:"peakHours"`
	PopularItems []ItemCount  `json:"popularItems"`
	RecentErrors []ErrorEntry `json:"recentErrors"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}
