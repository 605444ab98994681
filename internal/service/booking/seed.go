package booking

import "github.com/kirinyoku/moodcafe/internal/domain"

const zoneImage = "https://images.unsplash.com/photo-1552664730-d307ca884978?w=400"

// SeedData is written once, when the bookings document does not exist yet.
func SeedData() domain.BookingData {
	return domain.BookingData{
		Bookings: []domain.Booking{},
		Zones: []domain.Zone{
			{ID: "z1", Name: "Couple Pod A1", Description: "Intimate 2-person space with mood lighting", Capacity: 2, Price: 499, Image: zoneImage},
			{ID: "z2", Name: "Silent Pod S2", Description: "Quiet focus zone for work/meditation", Capacity: 1, Price: 299, Image: zoneImage},
			{ID: "z3", Name: "Game Arena G3", Description: "Interactive gaming space with projection", Capacity: 4, Price: 699, Image: zoneImage},
			{ID: "z4", Name: "Social Table ST4", Description: "Group gathering table with smart menu", Capacity: 6, Price: 799, Image: zoneImage},
		},
		Events: []domain.Event{
			{ID: "e1", Title: "Weekend Wine Tasting", Description: "Curated wine pairing experience", Date: "2025-11-16", Time: "18:00", Capacity: 20, Price: 1999, Booked: 0},
			{ID: "e2", Title: "Coffee Masters Workshop", Description: "Learn latte art & brewing techniques", Date: "2025-11-18", Time: "10:00", Capacity: 15, Price: 999, Booked: 0},
		},
	}
}

// emptyData is what a missing or unreadable document decodes to.
func emptyData() domain.BookingData {
	return domain.BookingData{
		Bookings: []domain.Booking{},
		Zones:    []domain.Zone{},
		Events:   []domain.Event{},
	}
}
