package domain

import "time"

// VendorProfile is long-lived reference data describing a supplier the
// agency can negotiate with.
type VendorProfile struct {
	ID               int64         `json:"id"`
	UserID           int64         `json:"user_id"`
	CompanyName      string        `json:"company_name" validate:"required"`
	Specializations  []ServiceType `json:"specializations"`
	CoverageAreas    []string      `json:"coverage_areas"`
	AvgResponseHours float64       `json:"avg_response_hours"`
	SuccessRate      float64       `json:"success_rate"` // percentage 0-100
	PreferredPartner bool          `json:"preferred_partner"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// Specializes reports whether the vendor covers the given service type.
func (v *VendorProfile) Specializes(t ServiceType) bool {
	for _, s := range v.Specializations {
		if s == t {
			return true
		}
	}
	return false
}

// Covers reports whether the vendor operates in the given location.
func (v *VendorProfile) Covers(location string) bool {
	for _, a := range v.CoverageAreas {
		if a == location {
			return true
		}
	}
	return false
}
