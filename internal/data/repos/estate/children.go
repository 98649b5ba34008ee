package estate

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/estate-backend/internal/platform/dbctx"
	"github.com/yungbote/estate-backend/internal/platform/logger"
)

type childTable interface {
	AssetRow | DebtRow | GiftRow | DependantRow
}

// ChildRepo reads and rewrites the rows of one owned-child table.
type ChildRepo[R childTable] interface {
	ListByEstate(dbc dbctx.Context, estateID uuid.UUID) ([]*R, error)
	ReplaceForEstate(dbc dbctx.Context, estateID uuid.UUID, rows []*R) error
}

type AssetRepo = ChildRepo[AssetRow]
type DebtRepo = ChildRepo[DebtRow]
type GiftRepo = ChildRepo[GiftRow]
type DependantRepo = ChildRepo[DependantRow]

type childRepo[R childTable] struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssetRepo(db *gorm.DB, log *logger.Logger) AssetRepo {
	return &childRepo[AssetRow]{db: db, log: log.With("repo", "AssetRepo")}
}

func NewDebtRepo(db *gorm.DB, log *logger.Logger) DebtRepo {
	return &childRepo[DebtRow]{db: db, log: log.With("repo", "DebtRepo")}
}

func NewGiftRepo(db *gorm.DB, log *logger.Logger) GiftRepo {
	return &childRepo[GiftRow]{db: db, log: log.With("repo", "GiftRepo")}
}

func NewDependantRepo(db *gorm.DB, log *logger.Logger) DependantRepo {
	return &childRepo[DependantRow]{db: db, log: log.With("repo", "DependantRepo")}
}

func (r *childRepo[R]) ListByEstate(dbc dbctx.Context, estateID uuid.UUID) ([]*R, error) {
	if estateID == uuid.Nil {
		return nil, fmt.Errorf("missing estate_id")
	}
	var out []*R
	if err := dbc.DB(r.db).
		Model(new(R)).
		Where("estate_id = ?", estateID).
		Order("position ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ReplaceForEstate deletes the estate's rows and inserts rows in their place. It must run
// inside the caller's transaction.
func (r *childRepo[R]) ReplaceForEstate(dbc dbctx.Context, estateID uuid.UUID, rows []*R) error {
	if estateID == uuid.Nil {
		return fmt.Errorf("missing estate_id")
	}
	if dbc.Tx == nil {
		return fmt.Errorf("ReplaceForEstate required dbc.Tx")
	}
	txx := dbc.DB(r.db)
	if err := txx.Where("estate_id = ?", estateID).Delete(new(R)).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return txx.CreateInBatches(rows, 100).Error
}
