package estate

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/estate-backend/internal/platform/dbctx"
	"github.com/yungbote/estate-backend/internal/platform/logger"
)

type EstateRepo interface {
	Create(dbc dbctx.Context, row *EstateRow) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*EstateRow, error)
	GetByDeceasedID(dbc dbctx.Context, deceasedID uuid.UUID) (*EstateRow, error)
	ExistsForDeceased(dbc dbctx.Context, deceasedID uuid.UUID) (bool, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*EstateRow, error)
	ListByStatus(dbc dbctx.Context, status string, limit int) ([]*EstateRow, error)
}

type estateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEstateRepo(db *gorm.DB, log *logger.Logger) EstateRepo {
	return &estateRepo{db: db, log: log.With("repo", "EstateRepo")}
}

func (r *estateRepo) Create(dbc dbctx.Context, row *EstateRow) error {
	if row == nil || row.ID == uuid.Nil {
		return fmt.Errorf("missing estate id")
	}
	if row.DeceasedID == uuid.Nil {
		return fmt.Errorf("missing deceased_id")
	}
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = now
	}
	return dbc.DB(r.db).Create(row).Error
}

// GetByID returns (nil, nil) when no estate has id.
func (r *estateRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*EstateRow, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	return r.first(dbc, "id = ?", id)
}

// GetByDeceasedID returns (nil, nil) when the deceased has no estate.
func (r *estateRepo) GetByDeceasedID(dbc dbctx.Context, deceasedID uuid.UUID) (*EstateRow, error) {
	if deceasedID == uuid.Nil {
		return nil, fmt.Errorf("missing deceased_id")
	}
	return r.first(dbc, "deceased_id = ?", deceasedID)
}

func (r *estateRepo) ExistsForDeceased(dbc dbctx.Context, deceasedID uuid.UUID) (bool, error) {
	if deceasedID == uuid.Nil {
		return false, fmt.Errorf("missing deceased_id")
	}
	var n int64
	if err := dbc.DB(r.db).
		Model(&EstateRow{}).
		Where("deceased_id = ?", deceasedID).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *estateRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*EstateRow, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByID required dbc.Tx")
	}
	var out EstateRow
	if err := dbc.Tx.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *estateRepo) ListByStatus(dbc dbctx.Context, status string, limit int) ([]*EstateRow, error) {
	if status == "" {
		return nil, fmt.Errorf("missing status")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*EstateRow
	if err := dbc.DB(r.db).
		Model(&EstateRow{}).
		Where("status = ?", status).
		Order("updated_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *estateRepo) first(dbc dbctx.Context, query string, args ...any) (*EstateRow, error) {
	var out EstateRow
	err := dbc.DB(r.db).Where(query, args...).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
