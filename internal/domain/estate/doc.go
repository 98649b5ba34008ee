// Package estate implements the estate ledger and the statutory debt waterfall.
//
// An Estate is loaded whole, mutated through its methods, and saved whole. Each
// mutation validates before it assigns, so a failed call leaves the aggregate as it
// was. Successful mutations buffer Events that the caller persists with the snapshot
// and publishes after commit.
package estate
