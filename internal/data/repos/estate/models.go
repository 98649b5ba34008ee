package estate

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EstateRow is the aggregate root header. State holds the root fields that are not
// queried (freeze history, tax reference); the scalar columns are denormalized for lookups.
type EstateRow struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DeceasedID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_estates_deceased" json:"deceased_id"`
	Name              string         `gorm:"column:name;not null" json:"name"`
	Currency          string         `gorm:"column:currency;size:3;not null" json:"currency"`
	Status            string         `gorm:"column:status;not null;index" json:"status"`
	IsFrozen          bool           `gorm:"column:is_frozen;not null" json:"is_frozen"`
	CashOnHandMinor   int64          `gorm:"column:cash_on_hand_minor;not null" json:"cash_on_hand_minor"`
	CashReservedMinor int64          `gorm:"column:cash_reserved_minor;not null" json:"cash_reserved_minor"`
	TaxCompliance     string         `gorm:"column:tax_compliance;not null" json:"tax_compliance"`
	State             datatypes.JSON `gorm:"column:state;not null" json:"state"`
	Version           int64          `gorm:"column:version;not null" json:"version"`
	CreatedAt         time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;index" json:"updated_at"`
}

func (EstateRow) TableName() string { return "estates" }

// ChildRow is the shape shared by every owned-child table. Position preserves the
// aggregate's insertion order; Payload is the child's JSON document.
type ChildRow struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	EstateID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"estate_id"`
	Position  int            `gorm:"column:position;not null" json:"position"`
	Kind      string         `gorm:"column:kind;not null" json:"kind"`
	Status    string         `gorm:"column:status;not null;index" json:"status"`
	Payload   datatypes.JSON `gorm:"column:payload;not null" json:"payload"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

// AssetRow stores one asset; Kind is the asset type.
type AssetRow struct {
	ChildRow
}

func (AssetRow) TableName() string { return "estate_assets" }

// DebtRow stores one debt; Kind is the debt type and Tier its waterfall rank.
type DebtRow struct {
	ChildRow
	Tier int `gorm:"column:tier;not null;index" json:"tier"`
}

func (DebtRow) TableName() string { return "estate_debts" }

// GiftRow stores one gift inter vivos; Kind is the gifted asset type.
type GiftRow struct {
	ChildRow
	RecipientID uuid.UUID `gorm:"type:uuid;not null;index" json:"recipient_id"`
}

func (GiftRow) TableName() string { return "estate_gifts" }

// DependantRow stores one dependant; Kind is the relationship.
type DependantRow struct {
	ChildRow
}

func (DependantRow) TableName() string { return "estate_dependants" }

// OutboxRow is one committed domain event waiting to be published.
type OutboxRow struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	EstateID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"estate_id"`
	EstateVersion int64          `gorm:"column:estate_version;not null" json:"estate_version"`
	Sequence      int            `gorm:"column:sequence;not null" json:"sequence"`
	EventType     string         `gorm:"column:event_type;not null;index" json:"event_type"`
	Actor         string         `gorm:"column:actor" json:"actor,omitempty"`
	CorrelationID string         `gorm:"column:correlation_id;index" json:"correlation_id,omitempty"`
	Payload       datatypes.JSON `gorm:"column:payload;not null" json:"payload"`
	OccurredAt    time.Time      `gorm:"not null" json:"occurred_at"`
	CreatedAt     time.Time      `gorm:"not null;index" json:"created_at"`
	PublishedAt   *time.Time     `gorm:"index" json:"published_at,omitempty"`
	Attempts      int            `gorm:"column:attempts;not null" json:"attempts"`
	LastError     string         `gorm:"column:last_error" json:"last_error,omitempty"`
}

func (OutboxRow) TableName() string { return "estate_outbox" }

// OutboxTable is the outbox table name, for collectors that query it directly.
const OutboxTable = "estate_outbox"

// Models lists every table the estate store owns, for migration.
func Models() []any {
	return []any{
		&EstateRow{},
		&AssetRow{},
		&DebtRow{},
		&GiftRow{},
		&DependantRow{},
		&OutboxRow{},
	}
}
