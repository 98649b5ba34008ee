package estate

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists whole Estate aggregates. Lookups return (nil, nil) when no estate
// matches. Save commits the snapshot and the buffered events atomically, compares the
// estate's version against the stored one and, on success, calls MarkCommitted with the
// new version. A stale version fails with a conflict error.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Estate, error)
	FindByDeceasedID(ctx context.Context, deceasedID uuid.UUID) (*Estate, error)
	ExistsForDeceased(ctx context.Context, deceasedID uuid.UUID) (bool, error)
	Save(ctx context.Context, e *Estate) error
}
