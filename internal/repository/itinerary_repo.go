package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"tripdesk/internal/domain"
)

type ItineraryRepository struct {
	db *gorm.DB
}

func NewItineraryRepository(db *gorm.DB) *ItineraryRepository {
	return &ItineraryRepository{db: db}
}

type itineraryModel struct {
	ID             int64           `gorm:"column:id;primaryKey"`
	AgentID        int64           `gorm:"column:agent_id;index"`
	TravelerID     int64           `gorm:"column:traveler_id;index"`
	Destination    string          `gorm:"column:destination"`
	StartDate      time.Time       `gorm:"column:start_date"`
	EndDate        time.Time       `gorm:"column:end_date"`
	TravelerCount  int             `gorm:"column:traveler_count"`
	Days           json.RawMessage `gorm:"column:days;type:jsonb"`
	Status         string          `gorm:"column:status"`
	ApprovalStatus string          `gorm:"column:approval_status"`
	CreatedAt      time.Time       `gorm:"column:created_at"`
	UpdatedAt      time.Time       `gorm:"column:updated_at"`
}

func (itineraryModel) TableName() string { return "itineraries" }

func toDomainItinerary(m itineraryModel) (*domain.Itinerary, error) {
	var days []domain.Day
	if len(m.Days) > 0 {
		if err := json.Unmarshal(m.Days, &days); err != nil {
			return nil, err
		}
	}
	return &domain.Itinerary{
		ID:             m.ID,
		AgentID:        m.AgentID,
		TravelerID:     m.TravelerID,
		Destination:    m.Destination,
		StartDate:      m.StartDate,
		EndDate:        m.EndDate,
		TravelerCount:  m.TravelerCount,
		Days:           days,
		Status:         domain.ItineraryStatus(m.Status),
		ApprovalStatus: domain.ApprovalStatus(m.ApprovalStatus),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}, nil
}

func toItineraryModel(i *domain.Itinerary) (itineraryModel, error) {
	days, err := json.Marshal(i.Days)
	if err != nil {
		return itineraryModel{}, err
	}
	return itineraryModel{
		ID:             i.ID,
		AgentID:        i.AgentID,
		TravelerID:     i.TravelerID,
		Destination:    i.Destination,
		StartDate:      i.StartDate,
		EndDate:        i.EndDate,
		TravelerCount:  i.TravelerCount,
		Days:           days,
		Status:         string(i.Status),
		ApprovalStatus: string(i.ApprovalStatus),
		CreatedAt:      i.CreatedAt,
		UpdatedAt:      i.UpdatedAt,
	}, nil
}

func (r *ItineraryRepository) Create(ctx context.Context, i *domain.Itinerary) error {
	m, err := toItineraryModel(i)
	if err != nil {
		return err
	}
	tx := r.db.WithContext(ctx).Create(&m)
	if tx.Error != nil {
		return tx.Error
	}
	out, err := toDomainItinerary(m)
	if err != nil {
		return err
	}
	*i = *out
	return nil
}

func (r *ItineraryRepository) GetByID(ctx context.Context, id int64) (*domain.Itinerary, error) {
	var m itineraryModel
	tx := r.db.WithContext(ctx).First(&m, id)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, tx.Error
	}
	return toDomainItinerary(m)
}

func (r *ItineraryRepository) Update(ctx context.Context, i *domain.Itinerary) error {
	m, err := toItineraryModel(i)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&itineraryModel{}).
		Where("id = ?", m.ID).
		Updates(map[string]any{
			"destination":    m.Destination,
			"start_date":     m.StartDate,
			"end_date":       m.EndDate,
			"traveler_count": m.TravelerCount,
			"days":           m.Days,
			"status":         m.Status,
			"updated_at":     time.Now(),
		}).Error
}

func (r *ItineraryRepository) UpdateStatus(ctx context.Context, id int64, status domain.ItineraryStatus) error {
	return r.db.WithContext(ctx).
		Model(&itineraryModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": string(status), "updated_at": time.Now()}).Error
}

func (r *ItineraryRepository) UpdateApprovalStatus(ctx context.Context, id int64, status domain.ApprovalStatus) error {
	return r.db.WithContext(ctx).
		Model(&itineraryModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"approval_status": string(status), "updated_at": time.Now()}).Error
}

func (r *ItineraryRepository) ListByAgent(ctx context.Context, agentID int64, limit, offset int) ([]domain.Itinerary, error) {
	return r.list(ctx, "agent_id = ?", agentID, limit, offset)
}

func (r *ItineraryRepository) ListByTraveler(ctx context.Context, travelerID int64, limit, offset int) ([]domain.Itinerary, error) {
	return r.list(ctx, "traveler_id = ?", travelerID, limit, offset)
}

func (r *ItineraryRepository) list(ctx context.Context, cond string, arg int64, limit, offset int) ([]domain.Itinerary, error) {
	var rows []itineraryModel
	tx := r.db.WithContext(ctx).
		Where(cond, arg).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows)
	if tx.Error != nil {
		return nil, tx.Error
	}

	out := make([]domain.Itinerary, 0, len(rows))
	for _, m := range rows {
		it, err := toDomainItinerary(m)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, nil
}
