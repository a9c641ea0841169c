package credentials

import (
	"fmt"
	"os"
)

// Setenv matches os.Setenv.
type Setenv func(key, value string) error

// Export writes every present field under both the AZ_* and AZURE_* names.
// Absent fields are skipped, so at most six variables are written.
func Export(creds Credentials, setenv Setenv) error {
	for _, scheme := range Schemes {
		pairs := []struct {
			key   string
			value string
		}{
			{scheme.TenantIDKey(), creds.TenantID},
			{scheme.ClientIDKey(), creds.ClientID},
			{scheme.ClientSecretKey(), creds.ClientSecret},
		}

		for _, p := range pairs {
			if p.value == "" {
				continue
			}
			if err := setenv(p.key, p.value); err != nil {
				return fmt.Errorf("failed to export %s: %w", p.key, err)
			}
		}
	}

	return nil
}

// ExportToEnvironment exports creds into the process environment.
//
// The process environment is shared by every goroutine and nothing is ever
// unset, so values outlive the call that exported them.
func ExportToEnvironment(creds Credentials) error {
	return Export(creds, os.Setenv)
}
