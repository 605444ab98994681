package domain

// Broadcast types. Subscribers must ignore types they do not know.
const (
	TypeBookingDataUpdate = "bookingDataUpdate"
	TypeDataUpdate        = "dataUpdate"
	TypeUserAdd           = "userAdd"
	TypeUserUpdate        = "userUpdate"
	TypeUserRemove        = "userRemove"
	TypeOrderAdd          = "orderAdd"
	TypeMenuAdd           = "menuAdd"
	TypeMenuUpdate        = "menuUpdate"
	TypeMenuRemove        = "menuRemove"
	TypeUserActivity      = "userActivity"
	TypeMetricsUpdate     = "metricsUpdate"
)

type DataUpdatePayload struct {
	Data AdminData `json:"data"`
}

type UserAddPayload struct {
	User User `json:"user"`
}

type UserUpdatePayload struct {
	UserID  int64      `json:"userId"`
	Updates UserUpdate `json:"updates"`
}

type UserRemovePayload struct {
	UserID int64 `json:"userId"`
}

type OrderAddPayload struct {
	Order Order `json:"order"`
}

type MenuAddPayload struct {
	Item MenuItem `json:"item"`
}

type MenuUpdatePayload struct {
	ItemID  int64          `json:"itemId"`
	Updates MenuItemUpdate `json:"updates"`
}

type MenuRemovePayload struct {
	ItemID int64 `json:"itemId"`
}

type ActivityType string

const (
	ActivityLogin  ActivityType = "login"
	ActivityLogout ActivityType = "logout"
)

type UserActivity struct {
	Type   ActivityType `json:"type"`
	UserID string       `json:"userId"`
}
