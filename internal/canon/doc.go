// Package canon produces canonical JSON for resolved pipeline configuration
// and derives content-addressed fingerprints from it.
//
// Canonical form follows RFC 8785 where it matters for identity:
//   - object keys sorted by UTF-16 code units
//   - strings NFC normalized, no HTML escaping
//   - numbers in shortest round-trip form
//
// Two configurations that resolve to the same tree always produce the same
// bytes, and therefore the same fingerprint, regardless of which profile
// files or overrides produced them.
package canon
