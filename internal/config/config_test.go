package config

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qrscan/internal/reconcile"
	"github.com/roach88/qrscan/internal/scan"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "qrscan.cue")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, []string{"http", "https"}, cfg.OpenSchemes)
	assert.False(t, cfg.RepromptOnDismiss)
	assert.Equal(t, "never", cfg.Prompt)
	assert.Equal(t, "text", cfg.Output)
	assert.Equal(t, "", cfg.Database)
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `
open_schemes: ["https", "mailto"]
reprompt_on_dismiss: true
prompt: "ask"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"https", "mailto"}, cfg.OpenSchemes)
	assert.True(t, cfg.RepromptOnDismiss)
	assert.Equal(t, "ask", cfg.Prompt)
	assert.Equal(t, "text", cfg.Output, "unset fields keep their default")
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.cue"))

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ErrCodeNotFound, le.Code)
}

func TestLoadOrDefault_Missing(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.cue"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoad_SchemaViolation(t *testing.T) {
	path := writeConfig(t, "prompt: \"sometimes\"\n")

	_, err := Load(path)

	var le *LoadError
	require.True(t, errors.As(err, &le), "got %v", err)
	assert.Equal(t, ErrCodeInvalid, le.Code)
}

func TestLoad_UnknownField(t *testing.T) {
	path := writeConfig(t, "open_scheme: [\"ftp\"]\n")

	_, err := Load(path)

	var le *LoadError
	require.True(t, errors.As(err, &le), "got %v", err)
	assert.Equal(t, ErrCodeInvalid, le.Code)
}

func TestLoad_SyntaxErrorHasPosition(t *testing.T) {
	path := writeConfig(t, "prompt: \"ask\"\noutput: [\n")

	_, err := Load(path)

	var le *LoadError
	require.True(t, errors.As(err, &le), "got %v", err)
	assert.Equal(t, ErrCodeSyntax, le.Code)
	assert.True(t, le.Pos.IsValid())
	assert.Contains(t, le.Error(), "qrscan.cue:")
}

func TestLoad_BadScheme(t *testing.T) {
	path := writeConfig(t, "open_schemes: [\"not a scheme\"]\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Prompt = "always"
	cfg.Output = "json"
	assert.NoError(t, cfg.Validate())

	cfg.Output = "xml"
	assert.Error(t, cfg.Validate())
}

func TestRecord_RoundTrip(t *testing.T) {
	cfg := Defaults()
	cfg.RepromptOnDismiss = true
	cfg.Database = "/tmp/a.db"

	hash, js, err := cfg.Record()
	require.NoError(t, err)
	assert.Equal(t, `{"open_schemes":["http","https"],"prompt":"never","reprompt_on_dismiss":true}`, js)

	want, err := scan.ConfigHash(cfg.Canonical())
	require.NoError(t, err)
	assert.Equal(t, want, hash)

	back, err := FromJSON(js)
	require.NoError(t, err)
	assert.Equal(t, cfg.OpenSchemes, back.OpenSchemes)
	assert.True(t, back.RepromptOnDismiss)
	assert.Equal(t, "", back.Database, "presentation fields are not recorded")
}

func TestRecord_IgnoresPresentationFields(t *testing.T) {
	a := Defaults()
	b := Defaults()
	b.Output = "json"
	b.Database = "other.db"

	ha, _, err := a.Record()
	require.NoError(t, err)
	hb, _, err := b.Record()
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}

func TestFromJSON_Empty(t *testing.T) {
	cfg, err := FromJSON("{}")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestReconcilerOptions(t *testing.T) {
	cfg := Defaults()
	cfg.OpenSchemes = []string{"mailto"}
	cfg.RepromptOnDismiss = true

	r := reconcile.New(cfg.ReconcilerOptions()...)

	cmds := r.Process(scan.Found("mailto://someone@example.com", scan.Rect{}))
	require.Len(t, cmds, 3)
	assert.Equal(t, scan.KindPromptOpenURL, cmds[2].Kind)

	cmds = r.Process(scan.Found("https://example.com", scan.Rect{}))
	assert.Len(t, cmds, 2, "https is not in the allow-list")

	assert.True(t, r.Dismissed("mailto://someone@example.com"))

	u, _ := url.Parse("mailto://x")
	assert.True(t, reconcile.NewSchemeOpener(cfg.OpenSchemes...).CanOpen(u))
}
