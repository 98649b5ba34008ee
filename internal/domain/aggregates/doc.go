// Package aggregates defines domain-facing aggregate contracts.
//
// These contracts avoid persistence/transport implementation details and describe the
// write boundary of the estate ledger: one Estate is loaded, mutated in memory and saved
// as a single atomic snapshot guarded by its version.
package aggregates
