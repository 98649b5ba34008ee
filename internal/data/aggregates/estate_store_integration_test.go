package aggregates

import (
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"gorm.io/gorm"

	estaterepos "github.com/yungbote/estate-backend/internal/data/repos/estate"
	repotest "github.com/yungbote/estate-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/estate-backend/internal/domain/aggregates"
	"github.com/yungbote/estate-backend/internal/domain/estate"
	"github.com/yungbote/estate-backend/internal/platform/dbctx"
)

func newTestEstateStore(t *testing.T, tx *gorm.DB, hooks Hooks) *EstateStore {
	t.Helper()
	log := repotest.Logger(t)
	return NewEstateStore(EstateStoreDeps{
		Base: BaseDeps{
			DB:       tx,
			Log:      log,
			Runner:   NewGormTxRunner(tx),
			CASGuard: NewCASGuard(tx),
			Hooks:    hooks,
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

// seedRichEstate builds an estate that exercises every owned child kind.
func seedRichEstate(t *testing.T) *estate.Estate {
	t.Helper()
	e := repotest.NewEstate(t, "200000")
	land := repotest.AddLand(t, e, "1000000")
	owner, err := e.AddAssetCoOwner(land.ID, estate.CoOwnerInput{
		OwnerIdentity:   "ID-22334455",
		OwnerName:       "Co-owner",
		SharePercentage: repotest.Pct("30"),
		OwnershipType:   estate.TenancyInCommon,
	})
	if err != nil {
		t.Fatalf("add co-owner: %v", err)
	}
	if err := e.VerifyAssetCoOwner(land.ID, owner.ID, nil); err != nil {
		t.Fatalf("verify co-owner: %v", err)
	}
	plot := repotest.AddLand(t, e, "300000")
	if _, err := e.StartLiquidation(plot.ID, estate.LiquidationInput{
		Type:         estate.LiquidationPrivateSale,
		Reason:       "pay funeral costs",
		TargetAmount: repotest.KES("300000"),
		ReservePrice: repotest.KES("250000"),
	}); err != nil {
		t.Fatalf("start liquidation: %v", err)
	}
	repotest.AddDebt(t, e, estate.DebtTypeFuneralExpenses, "50000")
	repotest.AddDebt(t, e, estate.DebtTypePersonalLoan, "80000")
	if _, err := e.RecordGift(estate.GiftInput{
		RecipientID:         uuid.New(),
		Description:         "Matatu given to eldest son",
		AssetType:           estate.AssetTypeVehicle,
		ValueAtTimeOfGift:   repotest.KES("150000"),
		DateGiven:           repotest.Clock.AddDate(-2, 0, 0),
		IsSubjectToHotchpot: true,
	}); err != nil {
		t.Fatalf("record gift: %v", err)
	}
	if _, err := e.RegisterDependant(estate.DependantInput{
		Name:         "A. Kamau",
		Relationship: estate.RelationshipChild,
		IsMinor:      true,
	}); err != nil {
		t.Fatalf("register dependant: %v", err)
	}
	if err := e.Freeze("caveat lodged"); err != nil {
		t.Fatalf("freeze: %v", err)
	}
	if err := e.Unfreeze("caveat withdrawn"); err != nil {
		t.Fatalf("unfreeze: %v", err)
	}
	return e
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(raw)
}

func TestEstateStoreSaveAndLoadRoundTrip(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	hooks := &spyHooks{}
	store := newTestEstateStore(t, tx, hooks)
	ctx := context.Background()

	e := seedRichEstate(t)
	before := e.Snapshot()
	pending := len(e.PendingEvents())
	if pending == 0 {
		t.Fatalf("expected buffered events before save")
	}

	if err := store.Save(ctx, e); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if e.Version() != 1 {
		t.Fatalf("version after insert: want=1 got=%d", e.Version())
	}
	if n := len(e.PendingEvents()); n != 0 {
		t.Fatalf("pending after save: want=0 got=%d", n)
	}

	loaded, err := store.FindByID(ctx, e.ID())
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if loaded == nil {
		t.Fatalf("FindByID returned nil for saved estate")
	}
	after := loaded.Snapshot()
	if after.Version != 1 {
		t.Fatalf("loaded version: want=1 got=%d", after.Version)
	}
	if !after.CashOnHand.Equal(before.CashOnHand) || !after.CashReserved.Equal(before.CashReserved) {
		t.Fatalf("cash: want=%s/%s got=%s/%s", before.CashOnHand, before.CashReserved, after.CashOnHand, after.CashReserved)
	}
	checks := []struct {
		name      string
		want, got any
	}{
		{"assets", before.Assets, after.Assets},
		{"debts", before.Debts, after.Debts},
		{"gifts", before.Gifts, after.Gifts},
		{"dependants", before.Dependants, after.Dependants},
		{"freeze history", before.FreezeHistory, after.FreezeHistory},
	}
	for _, c := range checks {
		if w, g := mustJSON(t, c.want), mustJSON(t, c.got); w != g {
			t.Fatalf("%s: want=%s got=%s", c.name, w, g)
		}
	}

	wantNet, err := e.CalculateNetWorth()
	if err != nil {
		t.Fatalf("net worth: %v", err)
	}
	gotNet, err := loaded.CalculateNetWorth()
	if err != nil {
		t.Fatalf("loaded net worth: %v", err)
	}
	if !gotNet.Equal(wantNet) {
		t.Fatalf("net worth: want=%s got=%s", wantNet, gotNet)
	}

	rows, err := estaterepos.NewOutboxRepo(tx, repotest.Logger(t)).ListByEstate(dbctx.Context{Ctx: ctx}, e.ID(), 500)
	if err != nil {
		t.Fatalf("ListByEstate outbox: %v", err)
	}
	if len(rows) != pending {
		t.Fatalf("outbox rows: want=%d got=%d", pending, len(rows))
	}
	for i, row := range rows {
		if row.EstateVersion != 1 || row.Sequence != i+1 || row.PublishedAt != nil {
			t.Fatalf("outbox row %d: version=%d sequence=%d published=%v", i, row.EstateVersion, row.Sequence, row.PublishedAt)
		}
		if row.Actor != "executor-1" || row.CorrelationID != "corr-1" {
			t.Fatalf("outbox row %d metadata: actor=%s correlation=%s", i, row.Actor, row.CorrelationID)
		}
	}
	if rows[0].EventType != string(estate.EventEstateRegistered) {
		t.Fatalf("first event: want=%s got=%s", estate.EventEstateRegistered, rows[0].EventType)
	}

	if len(hooks.Operations) == 0 || hooks.Operations[0].Name != OpSave || hooks.Operations[0].Status != "success" {
		t.Fatalf("save hook: got=%+v", hooks.Operations)
	}
	appended := 0
	for _, n := range hooks.Events {
		appended += n
	}
	if appended != pending || hooks.Events[string(estate.EventEstateRegistered)] != 1 {
		t.Fatalf("appended events: want=%d got=%v", pending, hooks.Events)
	}
}

func TestEstateStoreStaleVersionConflicts(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	hooks := &spyHooks{}
	store := newTestEstateStore(t, tx, hooks)
	ctx := context.Background()

	e := repotest.NewEstate(t, "1000")
	if err := store.Save(ctx, e); err != nil {
		t.Fatalf("Save: %v", err)
	}

	first, err := store.FindByID(ctx, e.ID())
	if err != nil {
		t.Fatalf("load first: %v", err)
	}
	second, err := store.FindByID(ctx, e.ID())
	if err != nil {
		t.Fatalf("load second: %v", err)
	}
	first.SetCommandMetadata(repotest.Meta())
	second.SetCommandMetadata(repotest.Meta())

	if err := first.RecordCashReceipt(repotest.KES("500"), "bank", "EQ-1"); err != nil {
		t.Fatalf("first receipt: %v", err)
	}
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if first.Version() != 2 {
		t.Fatalf("first version: want=2 got=%d", first.Version())
	}

	if err := second.RecordCashReceipt(repotest.KES("700"), "bank", "KCB-9"); err != nil {
		t.Fatalf("second receipt: %v", err)
	}
	err = store.Save(ctx, second)
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("stale save: want conflict got=%v", err)
	}
	if second.Version() != 1 || len(second.PendingEvents()) == 0 {
		t.Fatalf("stale estate was marked committed: version=%d pending=%d", second.Version(), len(second.PendingEvents()))
	}
	if len(hooks.Conflicts) != 1 || hooks.Conflicts[0] != "Estate.Store.Save" {
		t.Fatalf("conflict hooks: got=%+v", hooks.Conflicts)
	}

	reloaded, err := store.FindByID(ctx, e.ID())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Version() != 2 || reloaded.CashOnHand().String() != repotest.KES("1500").String() {
		t.Fatalf("reloaded: version=%d cash=%s", reloaded.Version(), reloaded.CashOnHand())
	}
}

func TestEstateStoreRejectsSecondEstateForDeceased(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	store := newTestEstateStore(t, tx, nil)
	ctx := context.Background()

	e := repotest.NewEstate(t, "0")
	if err := store.Save(ctx, e); err != nil {
		t.Fatalf("Save: %v", err)
	}
	dup, err := estate.NewEstate(estate.EstateInput{
		DeceasedID: e.DeceasedID(),
		Name:       "Duplicate",
	}, estate.DefaultPolicy(), repotest.Meta())
	if err != nil {
		t.Fatalf("new duplicate: %v", err)
	}
	err = store.Save(ctx, dup)
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("duplicate save: want conflict got=%v", err)
	}
	if !errors.Is(err, estate.ErrDuplicateEstate) {
		t.Fatalf("duplicate save: want ErrDuplicateEstate got=%v", err)
	}

	exists, err := store.ExistsForDeceased(ctx, e.DeceasedID())
	if err != nil || !exists {
		t.Fatalf("ExistsForDeceased: exists=%v err=%v", exists, err)
	}
	found, err := store.FindByDeceasedID(ctx, e.DeceasedID())
	if err != nil {
		t.Fatalf("FindByDeceasedID: %v", err)
	}
	if found == nil || found.ID() != e.ID() {
		t.Fatalf("FindByDeceasedID: want=%s got=%v", e.ID(), found)
	}
}

func TestEstateStoreMissReturnsNil(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	store := newTestEstateStore(t, tx, nil)
	ctx := context.Background()

	got, err := store.FindByID(ctx, uuid.New())
	if err != nil || got != nil {
		t.Fatalf("FindByID miss: got=%v err=%v", got, err)
	}
	got, err = store.FindByDeceasedID(ctx, uuid.New())
	if err != nil || got != nil {
		t.Fatalf("FindByDeceasedID miss: got=%v err=%v", got, err)
	}
	exists, err := store.ExistsForDeceased(ctx, uuid.New())
	if err != nil || exists {
		t.Fatalf("ExistsForDeceased miss: exists=%v err=%v", exists, err)
	}
	_, err = store.FindByID(ctx, uuid.Nil)
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("nil id: want validation got=%v", err)
	}
}

func TestEstateStoreRewritesChildrenOnUpdate(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	store := newTestEstateStore(t, tx, nil)
	ctx := context.Background()

	e := repotest.NewEstate(t, "0")
	a := repotest.AddLand(t, e, "100")
	b := repotest.AddLand(t, e, "200")
	if err := store.Save(ctx, e); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := e.ChangeAssetStatus(a.ID, estate.AssetDeleted, "duplicate entry"); err != nil {
		t.Fatalf("delete asset: %v", err)
	}
	if err := e.RevalueAsset(b.ID, repotest.KES("250"), "valuer", "market"); err != nil {
		t.Fatalf("revalue: %v", err)
	}
	if err := store.Save(ctx, e); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	rows, err := estaterepos.NewAssetRepo(tx, repotest.Logger(t)).ListByEstate(dbctx.Context{Ctx: ctx}, e.ID())
	if err != nil {
		t.Fatalf("ListByEstate: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("asset rows: want=2 got=%d", len(rows))
	}
	if rows[0].ID != a.ID || rows[0].Status != string(estate.AssetDeleted) || rows[0].Position != 0 {
		t.Fatalf("first row: got id=%s status=%s position=%d", rows[0].ID, rows[0].Status, rows[0].Position)
	}
	loaded, err := store.FindByID(ctx, e.ID())
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	got, ok := loaded.Asset(b.ID)
	if !ok || got.CurrentValue.String() != repotest.KES("250").String() || len(got.Valuations) != 2 {
		t.Fatalf("revalued asset: got=%+v", got)
	}
}
