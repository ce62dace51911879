package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"tripdesk/internal/domain"
)

// ErrDuplicateNegotiation means an active negotiation already exists
// for the same item and vendor (unique index idx_one_active_negotiation).
var ErrDuplicateNegotiation = errors.New("active negotiation already exists for item and vendor")

type NegotiationRepository struct {
	db *gorm.DB
}

func NewNegotiationRepository(db *gorm.DB) *NegotiationRepository {
	return &NegotiationRepository{db: db}
}

type negotiationModel struct {
	ID              int64           `gorm:"column:id;primaryKey"`
	ItineraryItemID int64           `gorm:"column:itinerary_item_id;index"`
	ItineraryID     int64           `gorm:"column:itinerary_id;index"`
	VendorID        int64           `gorm:"column:vendor_id;index"`
	AgentID         int64           `gorm:"column:agent_id;index"`
	OriginalPrice   float64         `gorm:"column:original_price"`
	TargetPrice     float64         `gorm:"column:target_price"`
	CurrentOffer    *float64        `gorm:"column:current_offer"`
	FinalPrice      *float64        `gorm:"column:final_price"`
	AutoApproval    float64         `gorm:"column:auto_approval_threshold"`
	Status          string          `gorm:"column:status;index"`
	Messages        json.RawMessage `gorm:"column:messages;type:jsonb"`
	Deadline        *time.Time      `gorm:"column:deadline"`
	CreatedAt       time.Time       `gorm:"column:created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at"`
}

func (negotiationModel) TableName() string { return "negotiations" }

func toDomainNegotiation(m negotiationModel) (*domain.Negotiation, error) {
	var msgs []domain.Message
	if len(m.Messages) > 0 {
		if err := json.Unmarshal(m.Messages, &msgs); err != nil {
			return nil, err
		}
	}
	return &domain.Negotiation{
		ID:                    m.ID,
		ItineraryItemID:       m.ItineraryItemID,
		VendorID:              m.VendorID,
		AgentID:               m.AgentID,
		OriginalPrice:         m.OriginalPrice,
		TargetPrice:           m.TargetPrice,
		CurrentOffer:          m.CurrentOffer,
		FinalPrice:            m.FinalPrice,
		AutoApprovalThreshold: m.AutoApproval,
		Status:                domain.NegotiationStatus(m.Status),
		Messages:              msgs,
		Deadline:              m.Deadline,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}, nil
}

// Create inserts a pending negotiation. The partial unique index on
// (itinerary_item_id, vendor_id) for non-terminal rows turns the
// concurrent double-create race into ErrDuplicateNegotiation.
func (r *NegotiationRepository) Create(ctx context.Context, itineraryID int64, n *domain.Negotiation) error {
	msgs, err := json.Marshal(n.Messages)
	if err != nil {
		return err
	}
	m := negotiationModel{
		ItineraryItemID: n.ItineraryItemID,
		ItineraryID:     itineraryID,
		VendorID:        n.VendorID,
		AgentID:         n.AgentID,
		OriginalPrice:   n.OriginalPrice,
		TargetPrice:     n.TargetPrice,
		CurrentOffer:    n.CurrentOffer,
		AutoApproval:    n.AutoApprovalThreshold,
		Status:          string(n.Status),
		Messages:        msgs,
		Deadline:        n.Deadline,
	}
	tx := r.db.WithContext(ctx).Create(&m)
	if tx.Error != nil {
		var pgErr *pgconn.PgError
		if errors.As(tx.Error, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "idx_one_active_negotiation" {
			return ErrDuplicateNegotiation
		}
		return tx.Error
	}

	out, err := toDomainNegotiation(m)
	if err != nil {
		return err
	}
	*n = *out
	return nil
}

func (r *NegotiationRepository) GetByID(ctx context.Context, id int64) (*domain.Negotiation, error) {
	var m negotiationModel
	tx := r.db.WithContext(ctx).First(&m, id)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, tx.Error
	}
	return toDomainNegotiation(m)
}

func (r *NegotiationRepository) ListByItinerary(ctx context.Context, itineraryID int64) ([]domain.Negotiation, error) {
	return r.list(ctx, "itinerary_id = ?", itineraryID)
}

func (r *NegotiationRepository) ListByVendor(ctx context.Context, vendorID int64) ([]domain.Negotiation, error) {
	return r.list(ctx, "vendor_id = ?", vendorID)
}

func (r *NegotiationRepository) ListByAgent(ctx context.Context, agentID int64) ([]domain.Negotiation, error) {
	return r.list(ctx, "agent_id = ?", agentID)
}

func (r *NegotiationRepository) list(ctx context.Context, cond string, arg int64) ([]domain.Negotiation, error) {
	var rows []negotiationModel
	tx := r.db.WithContext(ctx).Where(cond, arg).Order("created_at ASC").Find(&rows)
	if tx.Error != nil {
		return nil, tx.Error
	}
	out := make([]domain.Negotiation, 0, len(rows))
	for _, m := range rows {
		n, err := toDomainNegotiation(m)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, nil
}

// AppendMessage adds one message to the ordered log and, when the
// message carries a price, records it as the current offer.
func (r *NegotiationRepository) AppendMessage(ctx context.Context, id int64, msg domain.Message) (*domain.Negotiation, error) {
	n, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	n.Messages = append(n.Messages, msg)
	msgs, err := json.Marshal(n.Messages)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{
		"messages":   json.RawMessage(msgs),
		"updated_at": time.Now(),
	}
	if msg.PriceOffer != nil {
		updates["current_offer"] = *msg.PriceOffer
	}

	tx := r.db.WithContext(ctx).Model(&negotiationModel{}).Where("id = ?", id).Updates(updates)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return r.GetByID(ctx, id)
}

func (r *NegotiationRepository) UpdateStatus(ctx context.Context, id int64, status domain.NegotiationStatus) error {
	return r.db.WithContext(ctx).
		Model(&negotiationModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": string(status), "updated_at": time.Now()}).Error
}

func (r *NegotiationRepository) SetFinalPrice(ctx context.Context, id int64, price float64) error {
	return r.db.WithContext(ctx).
		Model(&negotiationModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"final_price": price,
			"status":      string(domain.NegotiationAccepted),
			"updated_at":  time.Now(),
		}).Error
}

// StatusCounts summarizes an itinerary's negotiations for the workflow
// poller.
type StatusCounts struct {
	Total       int
	Pending     int
	Negotiating int
	Accepted    int
	Rejected    int
	Expired     int
}

// Terminal returns how many negotiations reached a final status.
func (c StatusCounts) Terminal() int {
	return c.Accepted + c.Rejected + c.Expired
}

func (r *NegotiationRepository) CountByStatus(ctx context.Context, itineraryID int64) (StatusCounts, error) {
	type row struct {
		Status string
		Cnt    int
	}
	var rows []row
	tx := r.db.WithContext(ctx).
		Model(&negotiationModel{}).
		Select("status, COUNT(1) AS cnt").
		Where("itinerary_id = ?", itineraryID).
		Group("status").
		Scan(&rows)
	if tx.Error != nil {
		return StatusCounts{}, tx.Error
	}

	var c StatusCounts
	for _, r := range rows {
		c.Total += r.Cnt
		switch domain.NegotiationStatus(r.Status) {
		case domain.NegotiationPending:
			c.Pending = r.Cnt
		case domain.NegotiationNegotiating:
			c.Negotiating = r.Cnt
		case domain.NegotiationAccepted:
			c.Accepted = r.Cnt
		case domain.NegotiationRejected:
			c.Rejected = r.Cnt
		case domain.NegotiationExpired:
			c.Expired = r.Cnt
		}
	}
	return c, nil
}

// ExpirePastDeadline marks stale open negotiations expired. Used by the
// sweeper job.
func (r *NegotiationRepository) ExpirePastDeadline(ctx context.Context, now time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).
		Model(&negotiationModel{}).
		Where("status IN ? AND deadline IS NOT NULL AND deadline < ?",
			[]string{string(domain.NegotiationPending), string(domain.NegotiationNegotiating)}, now).
		Updates(map[string]any{"status": string(domain.NegotiationExpired), "updated_at": now})
	return tx.RowsAffected, tx.Error
}
