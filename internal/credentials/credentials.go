// Package credentials resolves Azure service principal credentials from
// explicit values, a JSON settings file and the environment.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog/log"
)

// Scheme is an environment variable naming convention for the credential fields.
type Scheme string

const (
	SchemeAZ    Scheme = "AZ"
	SchemeAzure Scheme = "AZURE"
)

// Schemes lists the naming conventions in resolution order. Values found under
// an earlier scheme win.
var Schemes = []Scheme{SchemeAZ, SchemeAzure}

// TenantIDKey returns the environment variable name for the tenant id.
func (s Scheme) TenantIDKey() string { return string(s) + "_TENANT_ID" }

// ClientIDKey returns the environment variable name for the client id.
func (s Scheme) ClientIDKey() string { return string(s) + "_CLIENT_ID" }

// ClientSecretKey returns the environment variable name for the client secret.
func (s Scheme) ClientSecretKey() string { return string(s) + "_CLIENT_SECRET" }

// Credentials holds a service principal. An empty field is absent and leaves
// the decision to Azure's default credential chain.
type Credentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

// Complete reports whether all three fields are present.
func (c Credentials) Complete() bool {
	return c.TenantID != "" && c.ClientID != "" && c.ClientSecret != ""
}

// Empty reports whether no field is present.
func (c Credentials) Empty() bool {
	return c.TenantID == "" && c.ClientID == "" && c.ClientSecret == ""
}

// Redacted returns a copy that is safe to log.
func (c Credentials) Redacted() Credentials {
	if c.ClientSecret != "" {
		c.ClientSecret = "********"
	}
	return c
}

// LookupEnv matches os.LookupEnv.
type LookupEnv func(key string) (string, bool)

type resolveOptions struct {
	lookupEnv LookupEnv
}

// Option configures Resolve.
type Option func(*resolveOptions)

// WithLookupEnv replaces the process environment as the last resolution source.
func WithLookupEnv(lookup LookupEnv) Option {
	return func(o *resolveOptions) {
		if lookup != nil {
			o.lookupEnv = lookup
		}
	}
}

// Resolve builds Credentials field by field. For each field the first source
// holding a value wins:
//
//  1. the explicit value
//  2. the settings file, if settingsPath is set and the file exists
//  3. the environment
//
// The lookup runs once with the AZ_* names and again with the AZURE_* names,
// the second pass treating the first pass's result as its explicit value, so an
// AZ_* value always takes precedence.
//
// A missing settings file, a missing key or a null value is not an error, and
// an empty string in the settings file is skipped like an absent key. A
// settings file that is not a JSON object is an error.
func Resolve(explicit Credentials, settingsPath string, opts ...Option) (Credentials, error) {
	o := resolveOptions{lookupEnv: os.LookupEnv}
	for _, opt := range opts {
		opt(&o)
	}

	settings := &settingsFile{path: settingsPath}

	creds := explicit
	for _, scheme := range Schemes {
		var err error

		creds.TenantID, err = loadSetting(scheme.TenantIDKey(), creds.TenantID, settings, o.lookupEnv)
		if err != nil {
			return Credentials{}, err
		}

		creds.ClientID, err = loadSetting(scheme.ClientIDKey(), creds.ClientID, settings, o.lookupEnv)
		if err != nil {
			return Credentials{}, err
		}

		creds.ClientSecret, err = loadSetting(scheme.ClientSecretKey(), creds.ClientSecret, settings, o.lookupEnv)
		if err != nil {
			return Credentials{}, err
		}
	}

	log.Debug().
		Str("tenant_id", creds.TenantID).
		Str("client_id", creds.ClientID).
		Bool("client_secret_set", creds.ClientSecret != "").
		Str("settings_path", settingsPath).
		Msg("resolved service principal")

	return creds, nil
}

func loadSetting(name, value string, settings *settingsFile, lookupEnv LookupEnv) (string, error) {
	if value != "" {
		return value, nil
	}

	fromFile, err := settings.lookup(name)
	if err != nil {
		return "", err
	}
	if fromFile != "" {
		return fromFile, nil
	}

	if fromEnv, ok := lookupEnv(name); ok {
		return fromEnv, nil
	}

	return "", nil
}

// settingsFile reads the JSON settings document at most once.
type settingsFile struct {
	path     string
	loaded   bool
	settings map[string]any
}

func (f *settingsFile) lookup(name string) (string, error) {
	if f.path == "" {
		return "", nil
	}

	if !f.loaded {
		settings, err := readSettings(f.path)
		if err != nil {
			return "", err
		}
		f.settings = settings
		f.loaded = true
	}

	if f.settings == nil {
		return "", nil
	}

	raw, ok := f.settings[name]
	if !ok {
		log.Warn().Str("secret_name", name).Str("settings_path", f.path).Msg("secret not found in settings file")
		return "", nil
	}

	if raw == nil {
		log.Warn().Str("secret_name", name).Str("settings_path", f.path).Msg("secret is null in settings file")
		return "", nil
	}

	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("settings file %s: field '%s' must be a string, got %T", f.path, name, raw)
	}

	return value, nil
}

// readSettings returns nil settings when the file does not exist.
func readSettings(path string) (map[string]any, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand settings path %s: %w", path, err)
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debug().Str("settings_path", expanded).Msg("settings file set but does not exist")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read settings file %s: %w", expanded, err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", expanded, err)
	}

	settings, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("settings file %s must contain a JSON object, got %T", expanded, doc)
	}

	return settings, nil
}
