// Package pipeline drives the training pipeline.
//
// A Driver runs its stages strictly in order, handing every stage the same
// resolved *config.Config. The first stage error stops the run and later
// stages are never invoked. There is no retry.
//
// Ordering:
// Stage events are stamped from a per-run logical Clock, never wall time.
// Run IDs are UUIDv7, so the ledger sorts runs by creation.
//
// Process-wide state:
// Before-stage hooks run once per run, after the run is recorded and before
// the first stage. Credential export into the process environment happens
// there, so every stage (and every child process) sees it.
package pipeline
