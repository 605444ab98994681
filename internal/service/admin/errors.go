package admin

import (
	"fmt"

	"github.com/kirinyoku/moodcafe/internal/domain"
)

type MenuItemNotFoundError struct {
	ItemID int64
}

func (e MenuItemNotFoundError) Error() string {
	return fmt.Sprintf("menu item not found: %d", e.ItemID)
}

func (e MenuItemNotFoundError) Is(target error) bool {
	return target == domain.ErrNotFound
}

type UserNotFoundError struct {
	UserID int64
}

func (e UserNotFoundError) Error() string {
	return fmt.Sprintf("user not found: %d", e.UserID)
}

func (e UserNotFoundError) Is(target error) bool {
	return target == domain.ErrNotFound
}
