package aggregates

import (
	"context"

	domainagg "github.com/yungbote/estate-backend/internal/domain/aggregates"
	"github.com/yungbote/estate-backend/internal/platform/dbctx"
	"gorm.io/gorm"
)

const opTx = "Estate.Store.Tx"

// TxRunner opens the single transaction an estate save writes its root row, child rows
// and outbox rows in.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

// NewGormTxRunner runs estate writes in gorm transactions. Called with a db that is
// already inside a transaction, gorm nests the write in a savepoint.
func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, opTx, "estate transaction runner has no db", nil)
	}
	// A save whose caller already gave up must not open a transaction.
	if err := ctx.Err(); err != nil {
		return domainagg.NewError(domainagg.CodeRetryable, opTx, "context ended before the estate transaction began", err)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}
