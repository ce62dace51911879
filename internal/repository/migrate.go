package repository

import "gorm.io/gorm"

// Migrate creates or updates the schema for every table the
// repositories use, plus the partial unique index that keeps one active
// negotiation per item and vendor.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&userModel{},
		&itineraryModel{},
		&itemModel{},
		&vendorModel{},
		&vendorServiceModel{},
		&negotiationModel{},
		&marketModel{},
		&notificationModel{},
		&workflowModel{},
	); err != nil {
		return err
	}

	// Partial index: only non-terminal rows participate, so a closed
	// negotiation never blocks a retry with the same vendor.
	return db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_one_active_negotiation
		ON negotiations (itinerary_item_id, vendor_id)
		WHERE status IN ('pending', 'negotiating')
	`).Error
}
