// Package store provides the SQLite-backed run ledger.
//
// The ledger records, for every pipeline run:
//   - Runs: profile, config fingerprint and canonical config, final status
//   - Stage events: started/succeeded/failed transitions per stage
//
// # Ordering
//
// Stage events are ordered by the run's logical seq counter, never by wall
// time. Runs are ordered by ID; run IDs are UUIDv7 and therefore sort by
// creation. Timestamps are stored for humans only.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads while a run is writing
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: stage events must reference an existing run
package store
