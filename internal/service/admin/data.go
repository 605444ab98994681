package admin

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/kirinyoku/moodcafe/internal/domain"
)

const activeUserShare = 0.12

func DefaultSettings() domain.Settings {
	return domain.Settings{
		IsMaintenanceMode:     false,
		AllowNewRegistrations: true,
		FeaturedItems:         []int64{},
	}
}

// DefaultData is what a missing or unreadable admin document decodes to.
func DefaultData() domain.AdminData {
	return domain.AdminData{
		MenuItems: []domain.MenuItem{},
		Users:     []domain.User{},
		Orders:    []domain.Order{},
		Settings:  DefaultSettings(),
	}
}

// RecalculateStats derives the summary block from the current collections.
func RecalculateStats(data domain.AdminData) domain.Stats {
	var revenue float64
	for _, o := range data.Orders {
		revenue += o.Total
	}

	users := len(data.Users)
	active := int(math.Floor(float64(users) * activeUserShare))

	return domain.Stats{
		TotalUsers:  users,
		TotalOrders: len(data.Orders),
		Revenue:     revenue,
		ActiveUsers: min(users, active),
	}
}

// readSeedFile loads an initial admin document. Settings in the file are
// ignored and replaced with the defaults.
func readSeedFile(path string) (domain.AdminData, error) {
	const op = "service.admin.readSeedFile"

	b, err := os.ReadFile(path)
	if err != nil {
		return domain.AdminData{}, fmt.Errorf("%s: %w", op, err)
	}

	data := DefaultData()
	if err := json.Unmarshal(b, &data); err != nil {
		return domain.AdminData{}, fmt.Errorf("%s: %w", op, err)
	}

	data.Settings = DefaultSettings()
	normalize(&data)

	return data, nil
}

func normalize(data *domain.AdminData) {
	if data.MenuItems == nil {
		data.MenuItems = []domain.MenuItem{}
	}
	if data.Users == nil {
		data.Users = []domain.User{}
	}
	if data.Orders == nil {
		data.Orders = []domain.Order{}
	}
	if data.Settings.FeaturedItems == nil {
		data.Settings.FeaturedItems = []int64{}
	}
}
