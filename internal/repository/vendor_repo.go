package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"

	"tripdesk/internal/domain"
)

type VendorRepository struct {
	db *gorm.DB
}

func NewVendorRepository(db *gorm.DB) *VendorRepository {
	return &VendorRepository{db: db}
}

type vendorModel struct {
	ID               int64           `gorm:"column:id;primaryKey"`
	UserID           int64           `gorm:"column:user_id;index"`
	CompanyName      string          `gorm:"column:company_name"`
	CoverageAreas    json.RawMessage `gorm:"column:coverage_areas;type:jsonb"`
	AvgResponseHours float64         `gorm:"column:avg_response_hours"`
	SuccessRate      float64         `gorm:"column:success_rate"`
	PreferredPartner bool            `gorm:"column:preferred_partner"`
	CreatedAt        time.Time       `gorm:"column:created_at"`
	UpdatedAt        time.Time       `gorm:"column:updated_at"`
}

func (vendorModel) TableName() string { return "vendor_profiles" }

type vendorServiceModel struct {
	ID          int64  `gorm:"column:id;primaryKey"`
	VendorID    int64  `gorm:"column:vendor_id;index"`
	ServiceType string `gorm:"column:service_type"`
}

func (vendorServiceModel) TableName() string { return "vendor_services" }

func toDomainVendor(m vendorModel, services []string) (*domain.VendorProfile, error) {
	var areas []string
	if len(m.CoverageAreas) > 0 {
		if err := json.Unmarshal(m.CoverageAreas, &areas); err != nil {
			return nil, err
		}
	}
	specs := make([]domain.ServiceType, 0, len(services))
	for _, s := range services {
		specs = append(specs, domain.ServiceType(s))
	}
	return &domain.VendorProfile{
		ID:               m.ID,
		UserID:           m.UserID,
		CompanyName:      m.CompanyName,
		Specializations:  specs,
		CoverageAreas:    areas,
		AvgResponseHours: m.AvgResponseHours,
		SuccessRate:      m.SuccessRate,
		PreferredPartner: m.PreferredPartner,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}, nil
}

func (r *VendorRepository) Create(ctx context.Context, v *domain.VendorProfile) error {
	areas, err := json.Marshal(v.CoverageAreas)
	if err != nil {
		return err
	}
	m := vendorModel{
		UserID:           v.UserID,
		CompanyName:      v.CompanyName,
		CoverageAreas:    areas,
		AvgResponseHours: v.AvgResponseHours,
		SuccessRate:      v.SuccessRate,
		PreferredPartner: v.PreferredPartner,
	}
	tx := r.db.WithContext(ctx).Create(&m)
	if tx.Error != nil {
		return tx.Error
	}

	for _, s := range v.Specializations {
		svc := vendorServiceModel{VendorID: m.ID, ServiceType: string(s)}
		if err := r.db.WithContext(ctx).Create(&svc).Error; err != nil {
			return err
		}
	}

	v.ID = m.ID
	v.CreatedAt = m.CreatedAt
	v.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *VendorRepository) GetByID(ctx context.Context, id int64) (*domain.VendorProfile, error) {
	var m vendorModel
	tx := r.db.WithContext(ctx).First(&m, id)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, tx.Error
	}
	services, err := r.servicesFor(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	return toDomainVendor(m, services)
}

func (r *VendorRepository) GetByUserID(ctx context.Context, userID int64) (*domain.VendorProfile, error) {
	var m vendorModel
	tx := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&m)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, tx.Error
	}
	services, err := r.servicesFor(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	return toDomainVendor(m, services)
}

// SearchFilter narrows vendor lookup. Zero values mean "no constraint".
type SearchFilter struct {
	ServiceType      domain.ServiceType
	MinSuccessRate   float64
	PreferredOnly    bool
	ExcludeVendorIDs []int64
}

// Search builds the vendor query dynamically with squirrel: the
// specialization join and optional quality filters run in SQL; coverage
// areas live in jsonb, so location filtering happens in the matcher.
func (r *VendorRepository) Search(ctx context.Context, f SearchFilter) ([]domain.VendorProfile, error) {
	b := sq.Select("vp.id", "vp.user_id", "vp.company_name", "vp.coverage_areas",
		"vp.avg_response_hours", "vp.success_rate", "vp.preferred_partner",
		"vp.created_at", "vp.updated_at").
		From("vendor_profiles vp").
		OrderBy("vp.preferred_partner DESC", "vp.success_rate DESC")

	if f.ServiceType != "" {
		b = b.Join("vendor_services vs ON vs.vendor_id = vp.id").
			Where(sq.Eq{"vs.service_type": string(f.ServiceType)})
	}
	if f.MinSuccessRate > 0 {
		b = b.Where(sq.GtOrEq{"vp.success_rate": f.MinSuccessRate})
	}
	if f.PreferredOnly {
		b = b.Where(sq.Eq{"vp.preferred_partner": true})
	}
	if len(f.ExcludeVendorIDs) > 0 {
		b = b.Where(sq.NotEq{"vp.id": f.ExcludeVendorIDs})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	var rows []vendorModel
	tx := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows)
	if tx.Error != nil {
		return nil, tx.Error
	}

	out := make([]domain.VendorProfile, 0, len(rows))
	for _, m := range rows {
		services, err := r.servicesFor(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		v, err := toDomainVendor(m, services)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

func (r *VendorRepository) List(ctx context.Context, limit, offset int) ([]domain.VendorProfile, error) {
	var rows []vendorModel
	tx := r.db.WithContext(ctx).
		Order("company_name ASC").
		Limit(limit).
		Offset(offset).
		Find(&rows)
	if tx.Error != nil {
		return nil, tx.Error
	}

	out := make([]domain.VendorProfile, 0, len(rows))
	for _, m := range rows {
		services, err := r.servicesFor(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		v, err := toDomainVendor(m, services)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

func (r *VendorRepository) servicesFor(ctx context.Context, vendorID int64) ([]string, error) {
	var rows []vendorServiceModel
	tx := r.db.WithContext(ctx).Where("vendor_id = ?", vendorID).Find(&rows)
	if tx.Error != nil {
		return nil, tx.Error
	}
	out := make([]string, 0, len(rows))
	for _, s := range rows {
		out = append(out, s.ServiceType)
	}
	return out, nil
}
