package itinerary

import (
	"time"

	"tripdesk/internal/domain"
)

type DayInput struct {
	DayNumber  int      `json:"day_number" binding:"required,gte=1"`
	Title      string   `json:"title"`
	Activities []string `json:"activities"`
}

type CreateRequest struct {
	TravelerID    int64      `json:"traveler_id"`
	Destination   string     `json:"destination" binding:"required"`
	StartDate     time.Time  `json:"start_date" binding:"required"`
	EndDate       time.Time  `json:"end_date" binding:"required"`
	TravelerCount int        `json:"traveler_count" binding:"required,gte=1"`
	Days          []DayInput `json:"days"`
}

type UpdateRequest struct {
	Destination   string     `json:"destination"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	TravelerCount int        `json:"traveler_count"`
	Days          []DayInput `json:"days"`
}

type StatusRequest struct {
	Status domain.ItineraryStatus `json:"status" binding:"required"`
}

func toDays(in []DayInput) []domain.Day {
	days := make([]domain.Day, 0, len(in))
	for _, d := range in {
		days = append(days, domain.Day{
			DayNumber:  d.DayNumber,
			Title:      d.Title,
			Activities: d.Activities,
		})
	}
	return days
}
