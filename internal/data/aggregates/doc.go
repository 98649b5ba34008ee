// Package aggregates persists the estate aggregate.
//
// EstateStore implements estate.Repository over the table repos in
// internal/data/repos/estate. A save writes the estate row, every owned child row and
// the buffered domain events to the outbox in one transaction, guarded by a
// compare-and-set on estates.version. Loads always read the whole aggregate.
package aggregates
