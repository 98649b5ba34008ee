package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"gorm.io/gorm"

	eventbus "github.com/yungbote/estate-backend/internal/clients/redis"
	estaterepos "github.com/yungbote/estate-backend/internal/data/repos/estate"
	"github.com/yungbote/estate-backend/internal/observability"
	"github.com/yungbote/estate-backend/internal/platform/dbctx"
	"github.com/yungbote/estate-backend/internal/platform/logger"
)

// Publisher delivers one committed event. eventbus.EventBus satisfies it.
type Publisher interface {
	Publish(ctx context.Context, msg eventbus.EventMessage) error
}

type RelayConfig struct {
	DB          *gorm.DB
	Outbox      estaterepos.OutboxRepo
	Publisher   Publisher
	Log         *logger.Logger
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
	Now         func() time.Time
}

// Relay moves committed outbox rows to the event bus. Within one estate events are
// published in (version, sequence) order; a failed event holds back the rest of its
// estate's batch until a later pass.
type Relay struct {
	db          *gorm.DB
	outbox      estaterepos.OutboxRepo
	pub         Publisher
	log         *logger.Logger
	interval    time.Duration
	batchSize   int
	maxAttempts int
	now         func() time.Time
}

func NewRelay(cfg RelayConfig) (*Relay, error) {
	if cfg.DB == nil || cfg.Outbox == nil || cfg.Publisher == nil || cfg.Log == nil {
		return nil, errors.New("outbox relay requires db, outbox repo, publisher and logger")
	}
	r := &Relay{
		db:          cfg.DB,
		outbox:      cfg.Outbox,
		pub:         cfg.Publisher,
		log:         cfg.Log.With("service", "OutboxRelay"),
		interval:    cfg.Interval,
		batchSize:   cfg.BatchSize,
		maxAttempts: cfg.MaxAttempts,
		now:         cfg.Now,
	}
	if r.interval <= 0 {
		r.interval = 2 * time.Second
	}
	if r.batchSize <= 0 {
		r.batchSize = 100
	}
	if r.now == nil {
		r.now = func() time.Time { return time.Now().UTC() }
	}
	return r, nil
}

// Run publishes on every tick until ctx is done. A full batch is followed
// immediately by another pass.
func (r *Relay) Run(ctx context.Context) error {
	r.log.Info("outbox relay started", "interval", r.interval.String(), "batch", r.batchSize)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		for {
			n, err := r.PublishBatch(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				r.log.Warn("outbox batch failed", "error", err)
				break
			}
			if n < r.batchSize {
				break
			}
		}
		select {
		case <-ctx.Done():
			r.log.Info("outbox relay stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// PublishBatch claims one batch, publishes it and records the outcome in the same
// transaction. It returns the number of rows claimed.
func (r *Relay) PublishBatch(ctx context.Context) (int, error) {
	var claimed int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		rows, err := r.outbox.ClaimUnpublished(dbc, r.batchSize, r.maxAttempts)
		if err != nil {
			return err
		}
		claimed = len(rows)
		if claimed == 0 {
			return nil
		}

		var published []uuid.UUID
		held := map[uuid.UUID]bool{}
		for _, row := range rows {
			if held[row.EstateID] {
				continue
			}
			if err := r.pub.Publish(ctx, message(row)); err != nil {
				held[row.EstateID] = true
				observability.Current().IncOutboxFailed(row.EventType)
				r.log.Warn("outbox publish failed", "event_id", row.ID, "estate_id", row.EstateID, "type", row.EventType, "attempt", row.Attempts+1, "error", err)
				if markErr := r.outbox.MarkFailed(dbc, row.ID, err.Error()); markErr != nil {
					return markErr
				}
				continue
			}
			observability.Current().IncOutboxPublished(row.EventType)
			published = append(published, row.ID)
		}
		return r.outbox.MarkPublished(dbc, published, r.now())
	})
	if err != nil {
		return 0, err
	}
	return claimed, nil
}

func message(row *estaterepos.OutboxRow) eventbus.EventMessage {
	return eventbus.EventMessage{
		ID:            row.ID,
		EstateID:      row.EstateID,
		EstateVersion: row.EstateVersion,
		Sequence:      row.Sequence,
		Type:          row.EventType,
		Actor:         row.Actor,
		CorrelationID: row.CorrelationID,
		OccurredAt:    row.OccurredAt,
		Payload:       json.RawMessage(row.Payload),
	}
}
