package domain

import "time"

// MarketIntelligence is an externally maintained reference rate for a
// service type in a location. Used to override parser price estimates
// when a sample exists.
type MarketIntelligence struct {
	ID          int64       `json:"id"`
	ServiceType ServiceType `json:"service_type"`
	Location    string      `json:"location"`
	MedianRate  float64     `json:"median_rate"`
	SampleSize  int         `json:"sample_size"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
