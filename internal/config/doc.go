// Package config resolves a named profile into an immutable, validated
// pipeline configuration.
//
// Resolution composes layers, later layers winning:
//
//  1. defaults declared in the embedded CUE schema (#Config)
//  2. entries of the profile's `defaults:` list, in order
//  3. the profile body (<dir>/<profile>.yaml)
//  4. command-line overrides (key=value, +key=value, ~key)
//
// The merged tree is unified with the closed #Config definition, so unknown
// fields, violated constraints and missing values fail before anything runs.
// The result is decoded into Settings and exposed through Config, which never
// hands out references to its internal state.
//
// Load is a plain function of its inputs. It does not read flags or the
// process environment, so it can be exercised directly from tests.
package config
