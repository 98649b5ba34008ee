package estates

import (
	"context"
	"sync"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/estate-backend/internal/domain/aggregates"
	"github.com/yungbote/estate-backend/internal/domain/estate"
)

// memRepo keeps snapshots in memory with the same version rules as the store.
// conflicts rejects that many saves as if another writer had won the race.
type memRepo struct {
	mu        sync.Mutex
	policy    estate.Policy
	rows      map[uuid.UUID]estate.Snapshot
	events    []estate.Event
	saves     int
	conflicts int
	loadErr   error
}

func newMemRepo() *memRepo {
	return &memRepo{policy: estate.DefaultPolicy(), rows: map[uuid.UUID]estate.Snapshot{}}
}

func (r *memRepo) FindByID(_ context.Context, id uuid.UUID) (*estate.Estate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	snap, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	return estate.Restore(snap, r.policy)
}

func (r *memRepo) FindByDeceasedID(_ context.Context, deceasedID uuid.UUID) (*estate.Estate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, snap := range r.rows {
		if snap.DeceasedID == deceasedID {
			return estate.Restore(snap, r.policy)
		}
	}
	return nil, nil
}

func (r *memRepo) ExistsForDeceased(ctx context.Context, deceasedID uuid.UUID) (bool, error) {
	e, err := r.FindByDeceasedID(ctx, deceasedID)
	return e != nil, err
}

func (r *memRepo) Save(_ context.Context, e *estate.Estate) error {
	const op = "memRepo.Save"
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	expected := e.Version()
	stored, exists := r.rows[e.ID()]
	switch {
	case r.conflicts > 0:
		r.conflicts--
		return domainagg.NewError(domainagg.CodeConflict, op, "version moved", nil)
	case !exists && expected != 0, exists && stored.Version != expected:
		return domainagg.NewError(domainagg.CodeConflict, op, "stale version", nil)
	}
	snap := e.Snapshot()
	snap.Version = expected + 1
	r.rows[e.ID()] = snap
	r.events = append(r.events, e.PendingEvents()...)
	e.MarkCommitted(snap.Version)
	return nil
}

func (r *memRepo) eventTypes() []estate.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]estate.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}
