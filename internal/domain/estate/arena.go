package estate

import "github.com/google/uuid"

// arena is an insertion-ordered collection of owned children keyed by id. Iteration
// order is stable so ledger computations are deterministic.
type arena[T any] struct {
	order []uuid.UUID
	byID  map[uuid.UUID]*T
}

func newArena[T any]() arena[T] {
	return arena[T]{byID: map[uuid.UUID]*T{}}
}

func (a *arena[T]) put(id uuid.UUID, v *T) {
	if a.byID == nil {
		a.byID = map[uuid.UUID]*T{}
	}
	if _, ok := a.byID[id]; !ok {
		a.order = append(a.order, id)
	}
	a.byID[id] = v
}

func (a *arena[T]) get(id uuid.UUID) (*T, bool) {
	v, ok := a.byID[id]
	return v, ok
}

func (a *arena[T]) has(id uuid.UUID) bool {
	_, ok := a.byID[id]
	return ok
}

func (a *arena[T]) len() int { return len(a.order) }

func (a *arena[T]) each(fn func(*T)) {
	for _, id := range a.order {
		fn(a.byID[id])
	}
}

func (a *arena[T]) values() []*T {
	out := make([]*T, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.byID[id])
	}
	return out
}
