package aggregates

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	estaterepos "github.com/yungbote/estate-backend/internal/data/repos/estate"
	"github.com/yungbote/estate-backend/internal/domain/estate"
	"github.com/yungbote/estate-backend/internal/domain/money"
)

// estateState holds the root fields kept in EstateRow.State.
type estateState struct {
	FreezeReason  string                `json:"freeze_reason,omitempty"`
	FreezeHistory []estate.FreezeRecord `json:"freeze_history,omitempty"`
	CashOnHand    money.Money           `json:"cash_on_hand"`
	CashReserved  money.Money           `json:"cash_reserved"`
	TaxReference  string                `json:"tax_reference,omitempty"`
}

type estateRows struct {
	header     *estaterepos.EstateRow
	assets     []*estaterepos.AssetRow
	debts      []*estaterepos.DebtRow
	gifts      []*estaterepos.GiftRow
	dependants []*estaterepos.DependantRow
}

func encodeSnapshot(s estate.Snapshot) (estateRows, error) {
	state, err := json.Marshal(estateState{
		FreezeReason:  s.FreezeReason,
		FreezeHistory: s.FreezeHistory,
		CashOnHand:    s.CashOnHand,
		CashReserved:  s.CashReserved,
		TaxReference:  s.TaxReference,
	})
	if err != nil {
		return estateRows{}, err
	}
	out := estateRows{
		header: &estaterepos.EstateRow{
			ID:                s.ID,
			DeceasedID:        s.DeceasedID,
			Name:              s.Name,
			Currency:          s.Currency,
			Status:            string(s.Status),
			IsFrozen:          s.IsFrozen,
			CashOnHandMinor:   s.CashOnHand.Minor(),
			CashReservedMinor: s.CashReserved.Minor(),
			TaxCompliance:     string(s.TaxCompliance),
			State:             datatypes.JSON(state),
			Version:           s.Version,
			CreatedAt:         s.CreatedAt,
			UpdatedAt:         s.UpdatedAt,
		},
		assets:     make([]*estaterepos.AssetRow, 0, len(s.Assets)),
		debts:      make([]*estaterepos.DebtRow, 0, len(s.Debts)),
		gifts:      make([]*estaterepos.GiftRow, 0, len(s.Gifts)),
		dependants: make([]*estaterepos.DependantRow, 0, len(s.Dependants)),
	}
	for i := range s.Assets {
		a := &s.Assets[i]
		row, err := childRow(s, i, a.ID, string(a.Type()), string(a.Status), a, a.CreatedAt, a.UpdatedAt)
		if err != nil {
			return estateRows{}, err
		}
		out.assets = append(out.assets, &estaterepos.AssetRow{ChildRow: row})
	}
	for i := range s.Debts {
		d := &s.Debts[i]
		row, err := childRow(s, i, d.ID, string(d.Type), string(d.Status), d, d.CreatedAt, d.UpdatedAt)
		if err != nil {
			return estateRows{}, err
		}
		out.debts = append(out.debts, &estaterepos.DebtRow{ChildRow: row, Tier: int(d.Priority.Tier)})
	}
	for i := range s.Gifts {
		g := &s.Gifts[i]
		row, err := childRow(s, i, g.ID, string(g.AssetType), string(g.Status), g, g.CreatedAt, g.UpdatedAt)
		if err != nil {
			return estateRows{}, err
		}
		out.gifts = append(out.gifts, &estaterepos.GiftRow{ChildRow: row, RecipientID: g.RecipientID})
	}
	for i := range s.Dependants {
		d := &s.Dependants[i]
		row, err := childRow(s, i, d.ID, string(d.Relationship), string(d.ClaimStatus), d, d.CreatedAt, d.UpdatedAt)
		if err != nil {
			return estateRows{}, err
		}
		out.dependants = append(out.dependants, &estaterepos.DependantRow{ChildRow: row})
	}
	return out, nil
}

func childRow(s estate.Snapshot, pos int, id uuid.UUID, kind, status string, v any, createdAt, updatedAt time.Time) (estaterepos.ChildRow, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return estaterepos.ChildRow{}, err
	}
	return estaterepos.ChildRow{
		ID:        id,
		EstateID:  s.ID,
		Position:  pos,
		Kind:      kind,
		Status:    status,
		Payload:   datatypes.JSON(payload),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

func decodeSnapshot(rows estateRows) (estate.Snapshot, error) {
	h := rows.header
	var state estateState
	if err := json.Unmarshal(h.State, &state); err != nil {
		return estate.Snapshot{}, InvariantError("estate state is unreadable: " + err.Error())
	}
	s := estate.Snapshot{
		ID:            h.ID,
		DeceasedID:    h.DeceasedID,
		Name:          h.Name,
		Currency:      h.Currency,
		Status:        estate.EstateStatus(h.Status),
		IsFrozen:      h.IsFrozen,
		FreezeReason:  state.FreezeReason,
		FreezeHistory: state.FreezeHistory,
		CashOnHand:    state.CashOnHand,
		CashReserved:  state.CashReserved,
		TaxCompliance: estate.TaxCompliance(h.TaxCompliance),
		TaxReference:  state.TaxReference,
		Assets:        make([]estate.Asset, len(rows.assets)),
		Debts:         make([]estate.Debt, len(rows.debts)),
		Gifts:         make([]estate.GiftInterVivos, len(rows.gifts)),
		Dependants:    make([]estate.Dependant, len(rows.dependants)),
		Version:       h.Version,
		CreatedAt:     h.CreatedAt,
		UpdatedAt:     h.UpdatedAt,
	}
	for i, r := range rows.assets {
		if err := decodeChild("asset", r.Payload, &s.Assets[i]); err != nil {
			return estate.Snapshot{}, err
		}
	}
	for i, r := range rows.debts {
		if err := decodeChild("debt", r.Payload, &s.Debts[i]); err != nil {
			return estate.Snapshot{}, err
		}
	}
	for i, r := range rows.gifts {
		if err := decodeChild("gift", r.Payload, &s.Gifts[i]); err != nil {
			return estate.Snapshot{}, err
		}
	}
	for i, r := range rows.dependants {
		if err := decodeChild("dependant", r.Payload, &s.Dependants[i]); err != nil {
			return estate.Snapshot{}, err
		}
	}
	return s, nil
}

func decodeChild(kind string, payload datatypes.JSON, dst any) error {
	if err := json.Unmarshal(payload, dst); err != nil {
		return InvariantError(kind + " payload is unreadable: " + err.Error())
	}
	return nil
}

func outboxRows(events []estate.Event, version int64) ([]*estaterepos.OutboxRow, error) {
	out := make([]*estaterepos.OutboxRow, 0, len(events))
	for _, ev := range events {
		body := ev.Payload
		if body == nil {
			body = map[string]any{}
		}
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		out = append(out, &estaterepos.OutboxRow{
			ID:            ev.ID,
			EstateID:      ev.EstateID,
			EstateVersion: version,
			Sequence:      ev.Sequence,
			EventType:     string(ev.Type),
			Actor:         ev.Metadata.Actor,
			CorrelationID: ev.Metadata.CorrelationID,
			Payload:       datatypes.JSON(payload),
			OccurredAt:    ev.OccurredAt,
		})
	}
	return out, nil
}
