package aggregates_test

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/estate-backend/internal/data/aggregates"
	aggtest "github.com/yungbote/estate-backend/internal/data/aggregates/testutil"
	estaterepos "github.com/yungbote/estate-backend/internal/data/repos/estate"
	repotest "github.com/yungbote/estate-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/estate-backend/internal/domain/aggregates"
	"github.com/yungbote/estate-backend/internal/domain/estate"
	"github.com/yungbote/estate-backend/internal/platform/dbctx"
	"gorm.io/gorm"
)

func storeWithRunner(t *testing.T, tx *gorm.DB, runner aggregates.TxRunner, hooks aggregates.Hooks) *aggregates.EstateStore {
	t.Helper()
	log := repotest.Logger(t)
	return aggregates.NewEstateStore(aggregates.EstateStoreDeps{
		Base: aggregates.BaseDeps{
			DB:       tx,
			Log:      log,
			Runner:   runner,
			Hooks:    hooks,
			CASGuard: aggregates.NewCASGuard(tx),
		},
		Estates:    estaterepos.NewEstateRepo(tx, log),
		Assets:     estaterepos.NewAssetRepo(tx, log),
		Debts:      estaterepos.NewDebtRepo(tx, log),
		Gifts:      estaterepos.NewGiftRepo(tx, log),
		Dependants: estaterepos.NewDependantRepo(tx, log),
		Outbox:     estaterepos.NewOutboxRepo(tx, log),
		Policy:     estate.DefaultPolicy(),
	})
}

func TestEstateStoreSaveRollsBackOnCommitFailure(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	ctx := context.Background()

	commitErr := errors.New("connection reset during commit")
	runner := &aggtest.InjectedTxRunner{DB: tx, FailCommit: commitErr}
	hooks := &aggtest.HooksRecorder{}
	failing := storeWithRunner(t, tx, runner, hooks)

	e := repotest.NewEstate(t, "1000")
	repotest.AddLand(t, e, "5000")
	pending := len(e.PendingEvents())

	err := failing.Save(ctx, e)
	if !errors.Is(err, commitErr) {
		t.Fatalf("Save: want commit error got=%v", err)
	}
	if !domainagg.IsCode(err, domainagg.CodeInternal) {
		t.Fatalf("Save code: want=internal got=%q", domainagg.CodeOf(err))
	}
	if runner.RollbackCalls != 1 || runner.CommitCalls != 0 {
		t.Fatalf("runner counters: commit=%d rollback=%d", runner.CommitCalls, runner.RollbackCalls)
	}
	if e.Version() != 0 || len(e.PendingEvents()) != pending {
		t.Fatalf("failed save marked estate committed: version=%d pending=%d", e.Version(), len(e.PendingEvents()))
	}
	if st := hooks.Statuses(aggregates.OpSave); len(st) != 1 || st[0] != string(domainagg.CodeInternal) {
		t.Fatalf("save statuses: got=%v", st)
	}
	if n := hooks.AppendedTotal(); n != 0 {
		t.Fatalf("rolled back save reported %d appended events", n)
	}

	healthy := storeWithRunner(t, tx, aggregates.NewGormTxRunner(tx), nil)
	got, err := healthy.FindByID(ctx, e.ID())
	if err != nil || got != nil {
		t.Fatalf("rolled back estate is visible: got=%v err=%v", got, err)
	}
	rows, err := estaterepos.NewOutboxRepo(tx, repotest.Logger(t)).ListByEstate(dbctx.Context{Ctx: ctx}, e.ID(), 10)
	if err != nil {
		t.Fatalf("ListByEstate: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("outbox rows after rollback: want=0 got=%d", len(rows))
	}

	if err := healthy.Save(ctx, e); err != nil {
		t.Fatalf("retry Save: %v", err)
	}
	if e.Version() != 1 {
		t.Fatalf("retry version: want=1 got=%d", e.Version())
	}
}
