// Package secrets resolves the tracking-service credentials a run needs and
// publishes them to the process environment for external collaborators.
//
// Credential values are never part of source or profile files. A profile
// only names the environment variables (tracking.username_env and
// tracking.password_env); the values are looked up, in order, in:
//
//   - the process environment
//   - a dotenv file (read, not loaded into the environment)
//   - a secret file named by <VAR>_FILE, e.g. a mounted container secret
//
// Credentials redact the password whenever they are formatted or logged.
package secrets
