package app

import (
	"gorm.io/gorm"

	estaterepos "github.com/yungbote/estate-backend/internal/data/repos/estate"
	"github.com/yungbote/estate-backend/internal/platform/logger"
)

type Repos struct {
	Estate    estaterepos.EstateRepo
	Asset     estaterepos.AssetRepo
	Debt      estaterepos.DebtRepo
	Gift      estaterepos.GiftRepo
	Dependant estaterepos.DependantRepo
	Outbox    estaterepos.OutboxRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Estate:    estaterepos.NewEstateRepo(db, log),
		Asset:     estaterepos.NewAssetRepo(db, log),
		Debt:      estaterepos.NewDebtRepo(db, log),
		Gift:      estaterepos.NewGiftRepo(db, log),
		Dependant: estaterepos.NewDependantRepo(db, log),
		Outbox:    estaterepos.NewOutboxRepo(db, log),
	}
}
