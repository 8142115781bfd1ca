package secrets

import (
	"fmt"
	"os"
)

// Exporter publishes credentials into the process environment.
type Exporter struct {
	Binding Binding

	// Setenv defaults to os.Setenv.
	Setenv func(key, value string) error
}

// Export sets both variables. Empty values are skipped so an unset
// credential stays unset rather than becoming an empty string.
func (e Exporter) Export(creds Credentials) error {
	setenv := e.Setenv
	if setenv == nil {
		setenv = os.Setenv
	}
	pairs := []struct{ key, value string }{
		{e.Binding.UsernameVar, creds.Username},
		{e.Binding.PasswordVar, creds.Password},
	}
	for _, p := range pairs {
		if p.value == "" {
			continue
		}
		if err := setenv(p.key, p.value); err != nil {
			return fmt.Errorf("export %s: %w", p.key, err)
		}
	}
	return nil
}
