package aggregates

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	estaterepos "github.com/yungbote/estate-backend/internal/data/repos/estate"
	domainagg "github.com/yungbote/estate-backend/internal/domain/aggregates"
	"github.com/yungbote/estate-backend/internal/domain/estate"
	"github.com/yungbote/estate-backend/internal/platform/dbctx"
)

type EstateStoreDeps struct {
	Base       BaseDeps
	Estates    estaterepos.EstateRepo
	Assets     estaterepos.AssetRepo
	Debts      estaterepos.DebtRepo
	Gifts      estaterepos.GiftRepo
	Dependants estaterepos.DependantRepo
	Outbox     estaterepos.OutboxRepo
	// Policy is attached to every estate the store loads.
	Policy estate.Policy
}

// EstateStore persists whole Estate aggregates: the root row, one row per owned child
// and the buffered events, all in one transaction guarded by the root version.
type EstateStore struct {
	deps EstateStoreDeps
}

var _ estate.Repository = (*EstateStore)(nil)

func NewEstateStore(deps EstateStoreDeps) *EstateStore {
	deps.Base = deps.Base.withDefaults()
	if deps.Policy.Currency == "" {
		deps.Policy = estate.DefaultPolicy()
	}
	if deps.Base.Log != nil {
		deps.Base.Log = deps.Base.Log.With("aggregate", "EstateStore")
	}
	return &EstateStore{deps: deps}
}

func (s *EstateStore) Contract() domainagg.Contract {
	return domainagg.Contract{
		Name:             "Estate.EstateStore",
		WriteTxOwnership: domainagg.WriteTxOwnedByAggregate,
		ReadPolicy:       domainagg.ReadPolicyWholeAggregate,
		Concurrency:      domainagg.ConcurrencyOptimisticVersion,
		Notes:            "Owns atomic root/children/outbox writes with compare-and-set on estates.version.",
	}
}

func (s *EstateStore) FindByID(ctx context.Context, id uuid.UUID) (*estate.Estate, error) {
	const op = OpFindByID
	if id == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "estate id is required", nil)
	}
	var out *estate.Estate
	err := executeRead(ctx, s.deps.Base, op, func(dbc dbctx.Context) error {
		row, err := s.deps.Estates.GetByID(dbc, id)
		if err != nil || row == nil {
			return err
		}
		out, err = s.load(dbc, row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *EstateStore) FindByDeceasedID(ctx context.Context, deceasedID uuid.UUID) (*estate.Estate, error) {
	const op = OpFindByDeceasedID
	if deceasedID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "deceased id is required", nil)
	}
	var out *estate.Estate
	err := executeRead(ctx, s.deps.Base, op, func(dbc dbctx.Context) error {
		row, err := s.deps.Estates.GetByDeceasedID(dbc, deceasedID)
		if err != nil || row == nil {
			return err
		}
		out, err = s.load(dbc, row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *EstateStore) ExistsForDeceased(ctx context.Context, deceasedID uuid.UUID) (bool, error) {
	const op = OpExistsForDeceased
	if deceasedID == uuid.Nil {
		return false, domainagg.NewError(domainagg.CodeValidation, op, "deceased id is required", nil)
	}
	var exists bool
	err := executeRead(ctx, s.deps.Base, op, func(dbc dbctx.Context) error {
		var err error
		exists, err = s.deps.Estates.ExistsForDeceased(dbc, deceasedID)
		return err
	})
	return exists, err
}

// Save inserts an estate at version 0 or compare-and-sets the stored version from
// e.Version() to e.Version()+1. Children are rewritten and pending events appended to the
// outbox in the same transaction. On success the estate is marked committed.
func (s *EstateStore) Save(ctx context.Context, e *estate.Estate) error {
	const op = OpSave
	if e == nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "estate is required", nil)
	}
	snap := e.Snapshot()
	events := e.PendingEvents()
	next := snap.Version + 1

	ctx, span := tracer.Start(ctx, "EstateStore.Save", trace.WithAttributes(
		attribute.String("estate.id", snap.ID.String()),
		attribute.Int64("estate.expected_version", snap.Version),
		attribute.Int("estate.pending_events", len(events)),
	))
	defer span.End()

	err := executeWrite(ctx, s.deps.Base, op, func(dbc dbctx.Context) error {
		rows, err := encodeSnapshot(snap)
		if err != nil {
			return err
		}
		rows.header.Version = next
		if snap.Version == 0 {
			if err := s.insertRoot(dbc, rows.header); err != nil {
				return err
			}
		} else {
			if err := s.updateRoot(dbc, rows.header, snap.Version); err != nil {
				return err
			}
		}
		if err := s.writeChildren(dbc, snap.ID, rows); err != nil {
			return err
		}
		outbox, err := outboxRows(events, next)
		if err != nil {
			return err
		}
		return s.deps.Outbox.Append(dbc, outbox)
	})
	if err != nil {
		span.RecordError(err)
		if s.deps.Base.Log != nil && domainagg.IsCode(err, domainagg.CodeInternal) {
			s.deps.Base.Log.Error("estate save failed", "estate_id", snap.ID, "version", snap.Version, "error", err)
		}
		return err
	}

	e.MarkCommitted(next)
	span.SetAttributes(attribute.Int64("estate.version", next))
	appended := map[estate.EventType]int{}
	for _, ev := range events {
		appended[ev.Type]++
	}
	for typ, n := range appended {
		s.deps.Base.Hooks.EventsAppended(string(typ), n)
	}
	return nil
}

func (s *EstateStore) insertRoot(dbc dbctx.Context, row *estaterepos.EstateRow) error {
	exists, err := s.deps.Estates.ExistsForDeceased(dbc, row.DeceasedID)
	if err != nil {
		return err
	}
	if exists {
		return duplicateEstate(row.DeceasedID)
	}
	if err := s.deps.Estates.Create(dbc, row); err != nil {
		// A concurrent registration can still win the unique index.
		if isDuplicateDeceased(err) {
			return errors.Join(duplicateEstate(row.DeceasedID), err)
		}
		return err
	}
	return nil
}

func (s *EstateStore) updateRoot(dbc dbctx.Context, row *estaterepos.EstateRow, expected int64) error {
	ok, err := s.deps.Base.CASGuard.AdvanceVersion(dbc, row.TableName(), row.ID, expected, map[string]any{
		"name":                row.Name,
		"status":              row.Status,
		"is_frozen":           row.IsFrozen,
		"cash_on_hand_minor":  row.CashOnHandMinor,
		"cash_reserved_minor": row.CashReservedMinor,
		"tax_compliance":      row.TaxCompliance,
		"state":               row.State,
		"updated_at":          row.UpdatedAt,
	})
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	current, err := s.deps.Estates.GetByID(dbc, row.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return domainagg.NewError(domainagg.CodeNotFound, OpSave, "estate "+row.ID.String()+" no longer exists", nil)
	}
	if err := RequireVersionMatch(current.Version, expected); err != nil {
		return err
	}
	return RequireCASSuccess(false, "estate "+row.ID.String()+" was modified concurrently; reload and retry")
}

func (s *EstateStore) writeChildren(dbc dbctx.Context, estateID uuid.UUID, rows estateRows) error {
	if err := s.deps.Assets.ReplaceForEstate(dbc, estateID, rows.assets); err != nil {
		return err
	}
	if err := s.deps.Debts.ReplaceForEstate(dbc, estateID, rows.debts); err != nil {
		return err
	}
	if err := s.deps.Gifts.ReplaceForEstate(dbc, estateID, rows.gifts); err != nil {
		return err
	}
	return s.deps.Dependants.ReplaceForEstate(dbc, estateID, rows.dependants)
}

func (s *EstateStore) load(dbc dbctx.Context, header *estaterepos.EstateRow) (*estate.Estate, error) {
	rows := estateRows{header: header}
	var err error
	if rows.assets, err = s.deps.Assets.ListByEstate(dbc, header.ID); err != nil {
		return nil, err
	}
	if rows.debts, err = s.deps.Debts.ListByEstate(dbc, header.ID); err != nil {
		return nil, err
	}
	if rows.gifts, err = s.deps.Gifts.ListByEstate(dbc, header.ID); err != nil {
		return nil, err
	}
	if rows.dependants, err = s.deps.Dependants.ListByEstate(dbc, header.ID); err != nil {
		return nil, err
	}
	snap, err := decodeSnapshot(rows)
	if err != nil {
		return nil, err
	}
	e, err := estate.Restore(snap, s.deps.Policy)
	if err != nil {
		return nil, InvariantError("stored estate " + header.ID.String() + " failed restore: " + err.Error())
	}
	return e, nil
}

func duplicateEstate(deceasedID uuid.UUID) error {
	return domainagg.Errorf(domainagg.CodeConflict, OpSave, estate.ErrDuplicateEstate, "an estate already exists for deceased %s", deceasedID)
}
