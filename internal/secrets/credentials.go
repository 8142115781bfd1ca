package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// fileSuffix marks a variable whose value is a path to the secret.
const fileSuffix = "_FILE"

// Binding names the environment variables the tracking collaborator reads.
type Binding struct {
	UsernameVar string
	PasswordVar string
}

// Credentials are the resolved tracking credentials.
type Credentials struct {
	Username string
	Password string
}

// IsZero reports whether neither value was resolved.
func (c Credentials) IsZero() bool {
	return c.Username == "" && c.Password == ""
}

// String redacts the password.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Username:%q Password:%s}", c.Username, redact(c.Password))
}

// LogValue implements slog.LogValuer so credentials never reach logs in clear.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", c.Username),
		slog.String("password", redact(c.Password)),
	)
}

func redact(s string) string {
	if s == "" {
		return "<unset>"
	}
	return "<redacted>"
}

// MissingError lists credential variables that could not be resolved.
type MissingError struct {
	Vars []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing credentials: %s (set them in the environment, an env file, or <VAR>_FILE)", strings.Join(e.Vars, ", "))
}

// Resolve looks up both credential values. When required is false, missing
// values are left empty; when true, any missing value is a *MissingError.
func Resolve(b Binding, src Source, required bool) (Credentials, error) {
	var creds Credentials
	var missing []string

	user, ok, err := lookupValue(src, b.UsernameVar)
	if err != nil {
		return Credentials{}, err
	}
	if !ok {
		missing = append(missing, b.UsernameVar)
	}
	creds.Username = user

	pass, ok, err := lookupValue(src, b.PasswordVar)
	if err != nil {
		return Credentials{}, err
	}
	if !ok {
		missing = append(missing, b.PasswordVar)
	}
	creds.Password = pass

	if required && len(missing) > 0 {
		return Credentials{}, &MissingError{Vars: missing}
	}
	return creds, nil
}

// lookupValue resolves key directly, then through key_FILE.
// An empty value counts as unset.
func lookupValue(src Source, key string) (string, bool, error) {
	if v, ok := src.Lookup(key); ok && v != "" {
		return v, true, nil
	}
	path, ok := src.Lookup(key + fileSuffix)
	if !ok || path == "" {
		return "", false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, fmt.Errorf("read %s%s: %w", key, fileSuffix, err)
	}
	v := strings.TrimRight(string(data), "\r\n")
	return v, v != "", nil
}
