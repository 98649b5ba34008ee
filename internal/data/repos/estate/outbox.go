package estate

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/estate-backend/internal/platform/dbctx"
	"github.com/yungbote/estate-backend/internal/platform/logger"
)

const maxLastErrorLen = 1024

type OutboxRepo interface {
	Append(dbc dbctx.Context, rows []*OutboxRow) error
	ClaimUnpublished(dbc dbctx.Context, limit, maxAttempts int) ([]*OutboxRow, error)
	ListByEstate(dbc dbctx.Context, estateID uuid.UUID, limit int) ([]*OutboxRow, error)
	MarkPublished(dbc dbctx.Context, ids []uuid.UUID, at time.Time) error
	MarkFailed(dbc dbctx.Context, id uuid.UUID, cause string) error
}

type outboxRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOutboxRepo(db *gorm.DB, log *logger.Logger) OutboxRepo {
	return &outboxRepo{db: db, log: log.With("repo", "OutboxRepo")}
}

func (r *outboxRepo) Append(dbc dbctx.Context, rows []*OutboxRow) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
	}
	return dbc.DB(r.db).CreateInBatches(rows, 100).Error
}

// ClaimUnpublished returns the oldest unpublished events that have failed fewer than
// maxAttempts times (all of them when maxAttempts <= 0). Inside a transaction the rows
// are locked with SKIP LOCKED so concurrent relays do not publish the same event.
func (r *outboxRepo) ClaimUnpublished(dbc dbctx.Context, limit, maxAttempts int) ([]*OutboxRow, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := dbc.DB(r.db).
		Model(&OutboxRow{}).
		Where("published_at IS NULL").
		Order("created_at ASC, estate_version ASC, sequence ASC").
		Limit(limit)
	if maxAttempts > 0 {
		q = q.Where("attempts < ?", maxAttempts)
	}
	if dbc.Tx != nil {
		q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}
	var out []*OutboxRow
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *outboxRepo) ListByEstate(dbc dbctx.Context, estateID uuid.UUID, limit int) ([]*OutboxRow, error) {
	if estateID == uuid.Nil {
		return nil, fmt.Errorf("missing estate_id")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []*OutboxRow
	if err := dbc.DB(r.db).
		Model(&OutboxRow{}).
		Where("estate_id = ?", estateID).
		Order("estate_version ASC, sequence ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *outboxRepo) MarkPublished(dbc dbctx.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return dbc.DB(r.db).
		Model(&OutboxRow{}).
		Where("id IN ? AND published_at IS NULL", ids).
		Updates(map[string]interface{}{
			"published_at": at,
			"last_error":   "",
		}).Error
}

func (r *outboxRepo) MarkFailed(dbc dbctx.Context, id uuid.UUID, cause string) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	cause = truncateCause(strings.TrimSpace(cause))
	return dbc.DB(r.db).
		Model(&OutboxRow{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": cause,
		}).Error
}

// truncateCause cuts cause to maxLastErrorLen bytes without splitting a rune.
func truncateCause(cause string) string {
	if len(cause) <= maxLastErrorLen {
		return cause
	}
	cut := maxLastErrorLen
	for cut > 0 && !utf8.RuneStart(cause[cut]) {
		cut--
	}
	return cause[:cut]
}
