package app

import (
	"fmt"

	"gorm.io/gorm"

	eventbus "github.com/yungbote/estate-backend/internal/clients/redis"
	"github.com/yungbote/estate-backend/internal/data/aggregates"
	"github.com/yungbote/estate-backend/internal/observability"
	"github.com/yungbote/estate-backend/internal/platform/config"
	"github.com/yungbote/estate-backend/internal/platform/logger"
	"github.com/yungbote/estate-backend/internal/services/estates"
	"github.com/yungbote/estate-backend/internal/services/outbox"
)

type Services struct {
	Store   *aggregates.EstateStore
	Estates estates.Service
	// Relay is nil when no event bus is configured.
	Relay *outbox.Relay
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg config.Config, reposet Repos, metrics *observability.Metrics, bus eventbus.EventBus) (Services, error) {
	log.Info("Wiring services...")
	store := aggregates.NewEstateStore(aggregates.EstateStoreDeps{
		Base: aggregates.BaseDeps{
			DB:    db,
			Log:   log,
			Hooks: aggregates.NewObservabilityHooks(metrics),
		},
		Estates:    reposet.Estate,
		Assets:     reposet.Asset,
		Debts:      reposet.Debt,
		Gifts:      reposet.Gift,
		Dependants: reposet.Dependant,
		Outbox:     reposet.Outbox,
		Policy:     cfg.Policy,
	})
	out := Services{
		Store: store,
		Estates: estates.NewService(estates.Deps{
			Repo:    store,
			Log:     log,
			Policy:  cfg.Policy,
			Retries: cfg.CommandRetries,
		}),
	}
	if bus == nil {
		return out, nil
	}
	relay, err := outbox.NewRelay(outbox.RelayConfig{
		DB:          db,
		Outbox:      reposet.Outbox,
		Publisher:   bus,
		Log:         log,
		Interval:    cfg.OutboxPollInterval,
		BatchSize:   cfg.OutboxBatchSize,
		MaxAttempts: cfg.OutboxMaxAttempts,
	})
	if err != nil {
		return Services{}, fmt.Errorf("init outbox relay: %w", err)
	}
	out.Relay = relay
	return out, nil
}
