// Package testutil provides deterministic fixtures for pipeline tests:
// resolved configurations from inline YAML, fixed run IDs, and stub stages
// that record what they were called with.
package testutil
