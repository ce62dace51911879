package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tripdesk/internal/domain"
)

type WorkflowRepository struct {
	db *gorm.DB
}

func NewWorkflowRepository(db *gorm.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

type workflowModel struct {
	ID                    int64     `gorm:"column:id;primaryKey"`
	ItineraryID           int64     `gorm:"column:itinerary_id;uniqueIndex"`
	RunID                 string    `gorm:"column:run_id"`
	Phase                 string    `gorm:"column:phase;index"`
	Percent               int       `gorm:"column:percent"`
	ActiveNegotiations    int       `gorm:"column:active_negotiations"`
	CompletedNegotiations int       `gorm:"column:completed_negotiations"`
	EstimatedSavings      float64   `gorm:"column:estimated_savings"`
	LastNotifiedPhase     string    `gorm:"column:last_notified_phase"`
	Note                  string    `gorm:"column:note"`
	ErrorText             string    `gorm:"column:error_text"`
	ExpiresAt             time.Time `gorm:"column:expires_at;index"`
	CreatedAt             time.Time `gorm:"column:created_at"`
	UpdatedAt             time.Time `gorm:"column:updated_at"`
}

func (workflowModel) TableName() string { return "workflow_progress" }

func toDomainWorkflow(m workflowModel) *domain.WorkflowProgress {
	return &domain.WorkflowProgress{
		ID:                    m.ID,
		ItineraryID:           m.ItineraryID,
		RunID:                 m.RunID,
		Phase:                 domain.WorkflowPhase(m.Phase),
		Percent:               m.Percent,
		ActiveNegotiations:    m.ActiveNegotiations,
		CompletedNegotiations: m.CompletedNegotiations,
		EstimatedSavings:      m.EstimatedSavings,
		LastNotifiedPhase:     domain.WorkflowPhase(m.LastNotifiedPhase),
		Note:                  m.Note,
		ErrorText:             m.ErrorText,
		ExpiresAt:             m.ExpiresAt,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

func toWorkflowModel(p *domain.WorkflowProgress) workflowModel {
	return workflowModel{
		ID:                    p.ID,
		ItineraryID:           p.ItineraryID,
		RunID:                 p.RunID,
		Phase:                 string(p.Phase),
		Percent:               p.Percent,
		ActiveNegotiations:    p.ActiveNegotiations,
		CompletedNegotiations: p.CompletedNegotiations,
		EstimatedSavings:      p.EstimatedSavings,
		LastNotifiedPhase:     string(p.LastNotifiedPhase),
		Note:                  p.Note,
		ErrorText:             p.ErrorText,
		ExpiresAt:             p.ExpiresAt,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

// Upsert writes the progress row, replacing any previous run for the
// same itinerary. One itinerary has at most one workflow row.
func (r *WorkflowRepository) Upsert(ctx context.Context, p *domain.WorkflowProgress) error {
	m := toWorkflowModel(p)
	m.UpdatedAt = time.Now()
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "itinerary_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"run_id", "phase", "percent", "active_negotiations",
			"completed_negotiations", "estimated_savings",
			"last_notified_phase", "note", "error_text", "expires_at", "updated_at",
		}),
	}).Create(&m)
	if tx.Error != nil {
		return tx.Error
	}
	*p = *toDomainWorkflow(m)
	return nil
}

func (r *WorkflowRepository) GetByItinerary(ctx context.Context, itineraryID int64) (*domain.WorkflowProgress, error) {
	var m workflowModel
	tx := r.db.WithContext(ctx).Where("itinerary_id = ?", itineraryID).First(&m)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, tx.Error
	}
	return toDomainWorkflow(m), nil
}

// ListActive returns non-terminal, non-expired runs. Used at boot to
// re-attach pollers after a restart.
func (r *WorkflowRepository) ListActive(ctx context.Context, now time.Time) ([]domain.WorkflowProgress, error) {
	var rows []workflowModel
	tx := r.db.WithContext(ctx).
		Where("phase NOT IN ? AND expires_at > ?",
			[]string{string(domain.PhaseCompleted), string(domain.PhaseFailed)}, now).
		Find(&rows)
	if tx.Error != nil {
		return nil, tx.Error
	}
	out := make([]domain.WorkflowProgress, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainWorkflow(m))
	}
	return out, nil
}

// DeleteExpired removes rows past their 24h expiry. Used by the sweeper.
func (r *WorkflowRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&workflowModel{})
	return tx.RowsAffected, tx.Error
}
