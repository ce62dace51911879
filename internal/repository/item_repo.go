package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"tripdesk/internal/domain"
)

type ItemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

type itemModel struct {
	ID                 int64           `gorm:"column:id;primaryKey"`
	ItineraryID        int64           `gorm:"column:itinerary_id;index"`
	DayNumber          int             `gorm:"column:day_number"`
	ActivityText       string          `gorm:"column:activity_text"`
	ServiceType        string          `gorm:"column:service_type"`
	EstimatedPrice     float64         `gorm:"column:estimated_price"`
	Participants       int             `gorm:"column:participants"`
	MarketRate         *float64        `gorm:"column:market_rate"`
	SuggestedVendorIDs json.RawMessage `gorm:"column:suggested_vendor_ids;type:jsonb"`
	IsNegotiable       bool            `gorm:"column:is_negotiable"`
	Priority           string          `gorm:"column:priority"`
	CreatedAt          time.Time       `gorm:"column:created_at"`
}

func (itemModel) TableName() string { return "itinerary_items" }

func toDomainItem(m itemModel) (*domain.ItineraryItem, error) {
	var vendorIDs []int64
	if len(m.SuggestedVendorIDs) > 0 {
		if err := json.Unmarshal(m.SuggestedVendorIDs, &vendorIDs); err != nil {
			return nil, err
		}
	}
	return &domain.ItineraryItem{
		ID:                 m.ID,
		ItineraryID:        m.ItineraryID,
		DayNumber:          m.DayNumber,
		ActivityText:       m.ActivityText,
		ServiceType:        domain.ServiceType(m.ServiceType),
		EstimatedPrice:     m.EstimatedPrice,
		Participants:       m.Participants,
		MarketRate:         m.MarketRate,
		SuggestedVendorIDs: vendorIDs,
		IsNegotiable:       m.IsNegotiable,
		Priority:           domain.ItemPriority(m.Priority),
		CreatedAt:          m.CreatedAt,
	}, nil
}

func toItemModel(it *domain.ItineraryItem) (itemModel, error) {
	var vendorIDs json.RawMessage
	if len(it.SuggestedVendorIDs) > 0 {
		b, err := json.Marshal(it.SuggestedVendorIDs)
		if err != nil {
			return itemModel{}, err
		}
		vendorIDs = b
	}
	return itemModel{
		ID:                 it.ID,
		ItineraryID:        it.ItineraryID,
		DayNumber:          it.DayNumber,
		ActivityText:       it.ActivityText,
		ServiceType:        string(it.ServiceType),
		EstimatedPrice:     it.EstimatedPrice,
		Participants:       it.Participants,
		MarketRate:         it.MarketRate,
		SuggestedVendorIDs: vendorIDs,
		IsNegotiable:       it.IsNegotiable,
		Priority:           string(it.Priority),
		CreatedAt:          it.CreatedAt,
	}, nil
}

// BulkCreate writes all parsed items in one insert. Items are immutable
// after this point apart from the advisory suggested vendor list.
func (r *ItemRepository) BulkCreate(ctx context.Context, items []domain.ItineraryItem) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]itemModel, 0, len(items))
	for i := range items {
		m, err := toItemModel(&items[i])
		if err != nil {
			return err
		}
		rows = append(rows, m)
	}
	tx := r.db.WithContext(ctx).Create(&rows)
	if tx.Error != nil {
		return tx.Error
	}
	for i := range rows {
		it, err := toDomainItem(rows[i])
		if err != nil {
			return err
		}
		items[i] = *it
	}
	return nil
}

func (r *ItemRepository) GetByID(ctx context.Context, id int64) (*domain.ItineraryItem, error) {
	var m itemModel
	tx := r.db.WithContext(ctx).First(&m, id)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, tx.Error
	}
	return toDomainItem(m)
}

func (r *ItemRepository) GetByIDs(ctx context.Context, ids []int64) ([]domain.ItineraryItem, error) {
	var rows []itemModel
	tx := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return r.toDomainList(rows)
}

func (r *ItemRepository) ListByItinerary(ctx context.Context, itineraryID int64) ([]domain.ItineraryItem, error) {
	var rows []itemModel
	tx := r.db.WithContext(ctx).
		Where("itinerary_id = ?", itineraryID).
		Order("day_number ASC, id ASC").
		Find(&rows)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return r.toDomainList(rows)
}

// CountByItinerary backs the parser's idempotency check.
func (r *ItemRepository) CountByItinerary(ctx context.Context, itineraryID int64) (int64, error) {
	var cnt int64
	tx := r.db.WithContext(ctx).Model(&itemModel{}).Where("itinerary_id = ?", itineraryID).Count(&cnt)
	if tx.Error != nil {
		return 0, tx.Error
	}
	return cnt, nil
}

func (r *ItemRepository) SetSuggestedVendors(ctx context.Context, itemID int64, vendorIDs []int64) error {
	b, err := json.Marshal(vendorIDs)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&itemModel{}).
		Where("id = ?", itemID).
		Update("suggested_vendor_ids", json.RawMessage(b)).Error
}

func (r *ItemRepository) toDomainList(rows []itemModel) ([]domain.ItineraryItem, error) {
	out := make([]domain.ItineraryItem, 0, len(rows))
	for _, m := range rows {
		it, err := toDomainItem(m)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, nil
}
