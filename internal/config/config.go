// Package config loads qrscan configuration from CUE.
//
// The embedded schema supplies defaults and constraints. A user file is
// unified with it, so a file only needs the fields it changes and a typo
// in a field name is an error rather than a silently ignored key.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/qrscan/internal/reconcile"
	"github.com/roach88/qrscan/internal/scan"
)

//go:embed schema.cue
var schemaCUE string

// DefaultPath is the config file the CLI looks for when --config is not set.
const DefaultPath = "qrscan.cue"

// Config is the effective configuration of a scanning session.
type Config struct {
	OpenSchemes       []string `json:"open_schemes"`
	RepromptOnDismiss bool     `json:"reprompt_on_dismiss"`
	Prompt            string   `json:"prompt"`
	Output            string   `json:"output"`
	Database          string   `json:"database"`
}

// Defaults returns the schema defaults.
func Defaults() Config {
	cfg, err := Parse([]byte("{}"), "defaults")
	if err != nil {
		// The embedded schema is fixed at build time.
		panic(fmt.Sprintf("config: embedded schema: %v", err))
	}
	return cfg
}

// Load reads and validates the config file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("config file not found: %s", path)}
	}
	if err != nil {
		return Config{}, &LoadError{Code: ErrCodeReadFailed, Message: err.Error()}
	}
	return Parse(data, path)
}

// LoadOrDefault is Load, except that a missing file yields Defaults.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	var le *LoadError
	if errors.As(err, &le) && le.Code == ErrCodeNotFound {
		return Defaults(), nil
	}
	return cfg, err
}

// Parse unifies src with the schema and decodes the result. filename is
// used in error positions. JSON is valid CUE, so a stored session config
// parses the same way.
func Parse(src []byte, filename string) (Config, error) {
	ctx := cuecontext.New()
	schema, err := compileSchema(ctx)
	if err != nil {
		return Config{}, err
	}

	user := ctx.CompileBytes(src, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return Config{}, fromCUE(ErrCodeSyntax, err)
	}

	return decode(schema.Unify(user))
}

// FromJSON parses a config recorded in the session log.
func FromJSON(data string) (Config, error) {
	return Parse([]byte(data), "session config")
}

// Validate checks c against the schema. Use it after applying CLI overrides.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	schema, err := compileSchema(ctx)
	if err != nil {
		return err
	}
	_, err = decode(schema.Unify(ctx.Encode(c)))
	return err
}

func compileSchema(ctx *cue.Context) (cue.Value, error) {
	v := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, fromCUE(ErrCodeSyntax, err)
	}
	return v.LookupPath(cue.ParsePath("#Config")), nil
}

func decode(v cue.Value) (Config, error) {
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fromCUE(ErrCodeInvalid, err)
	}
	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, fromCUE(ErrCodeInvalid, err)
	}
	if cfg.OpenSchemes == nil {
		cfg.OpenSchemes = []string{}
	}
	return cfg, nil
}

// ReconcilerOptions translates the config into reconciler options.
func (c Config) ReconcilerOptions() []reconcile.Option {
	return []reconcile.Option{
		reconcile.WithOpener(reconcile.NewSchemeOpener(c.OpenSchemes...)),
		reconcile.WithRepromptOnDismiss(c.RepromptOnDismiss),
	}
}

// Canonical returns the fields that affect reconciler output, in the form
// scan.MarshalCanonical accepts. Output and database are presentation
// concerns and are left out, so the same scan written to a different file
// keeps the same config hash.
func (c Config) Canonical() map[string]any {
	schemes := make([]any, len(c.OpenSchemes))
	for i, s := range c.OpenSchemes {
		schemes[i] = s
	}
	return map[string]any{
		"open_schemes":        schemes,
		"reprompt_on_dismiss": c.RepromptOnDismiss,
		"prompt":              c.Prompt,
	}
}

// Record returns the canonical JSON and hash stored with a session.
func (c Config) Record() (hash, js string, err error) {
	m := c.Canonical()
	b, err := scan.MarshalCanonical(m)
	if err != nil {
		return "", "", fmt.Errorf("config record: %w", err)
	}
	hash, err = scan.ConfigHash(m)
	if err != nil {
		return "", "", fmt.Errorf("config record: %w", err)
	}
	return hash, string(b), nil
}
