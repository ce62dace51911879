package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"tripdesk/internal/domain"
)

type MarketRepository struct {
	db *gorm.DB
}

func NewMarketRepository(db *gorm.DB) *MarketRepository {
	return &MarketRepository{db: db}
}

type marketModel struct {
	ID          int64     `gorm:"column:id;primaryKey"`
	ServiceType string    `gorm:"column:service_type;index:idx_market_type_location"`
	Location    string    `gorm:"column:location;index:idx_market_type_location"`
	MedianRate  float64   `gorm:"column:median_rate"`
	SampleSize  int       `gorm:"column:sample_size"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (marketModel) TableName() string { return "market_intelligence" }

// GetRate returns the reference rate for a service type in a location,
// or ErrNotFound when no sample exists.
func (r *MarketRepository) GetRate(ctx context.Context, serviceType domain.ServiceType, location string) (*domain.MarketIntelligence, error) {
	var m marketModel
	tx := r.db.WithContext(ctx).
		Where("service_type = ? AND location = ?", string(serviceType), location).
		First(&m)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, tx.Error
	}
	return &domain.MarketIntelligence{
		ID:          m.ID,
		ServiceType: domain.ServiceType(m.ServiceType),
		Location:    m.Location,
		MedianRate:  m.MedianRate,
		SampleSize:  m.SampleSize,
		UpdatedAt:   m.UpdatedAt,
	}, nil
}

func (r *MarketRepository) Upsert(ctx context.Context, mi *domain.MarketIntelligence) error {
	m := marketModel{
		ServiceType: string(mi.ServiceType),
		Location:    mi.Location,
		MedianRate:  mi.MedianRate,
		SampleSize:  mi.SampleSize,
		UpdatedAt:   time.Now(),
	}

	var existing marketModel
	tx := r.db.WithContext(ctx).
		Where("service_type = ? AND location = ?", m.ServiceType, m.Location).
		First(&existing)
	if tx.Error == nil {
		m.ID = existing.ID
		return r.db.WithContext(ctx).Save(&m).Error
	}
	if !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return tx.Error
	}
	return r.db.WithContext(ctx).Create(&m).Error
}
