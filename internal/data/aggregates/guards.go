package aggregates

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/yungbote/estate-backend/internal/platform/dbctx"
	"gorm.io/gorm"
)

// CASGuard advances an aggregate root's version with compare-and-set.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

func (g CASGuard) baseDB(dbc dbctx.Context) (*gorm.DB, error) {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx), nil
	}
	if g.db != nil {
		return g.db.WithContext(dbc.Ctx), nil
	}
	return nil, ValidationError("missing db transaction context")
}

// AdvanceVersion applies updates to the row id in table and sets version to
// expected+1, only when the stored version is still expected. It reports whether the
// row was written. The guard owns the id and version columns, so updates may not set
// them.
func (g CASGuard) AdvanceVersion(dbc dbctx.Context, table string, id uuid.UUID, expected int64, updates map[string]any) (bool, error) {
	db, err := g.baseDB(dbc)
	if err != nil {
		return false, err
	}
	table = strings.TrimSpace(table)
	if table == "" || id == uuid.Nil {
		return false, ValidationError("table and id are required to advance a version")
	}
	if expected < 1 {
		return false, ValidationError(fmt.Sprintf("expected version must be >= 1, got %d", expected))
	}
	cols := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		if k == "id" || k == "version" {
			return false, ValidationError("updates may not set column " + k)
		}
		cols[k] = v
	}
	cols["version"] = expected + 1
	res := db.Table(table).
		Where("id = ? AND version = ?", id, expected).
		Updates(cols)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RequireCASSuccess turns a compare-and-set that wrote nothing into a conflict.
func RequireCASSuccess(ok bool, message string) error {
	if ok {
		return nil
	}
	return ConflictError(strings.TrimSpace(message))
}

// RequireVersionMatch reports a conflict when the stored version moved past the one
// the caller loaded.
func RequireVersionMatch(stored, expected int64) error {
	if expected < 0 {
		return ValidationError("expected version must be >= 0")
	}
	if stored != expected {
		return ConflictError(fmt.Sprintf("stored version %d does not match expected %d; reload and retry", stored, expected))
	}
	return nil
}
