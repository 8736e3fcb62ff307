package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	config := NewDefaultConfig()
	require.NoError(t, config.Validate())

	assert.Equal(t, 100, config.Search.MaxLeads)
	assert.Equal(t, 50, config.Search.MaxPages)
	assert.Equal(t, "directory", config.Search.Sources)
	assert.Equal(t, "normal", config.Search.CheckDepth)
	assert.Equal(t, 180, config.Stealth.SessionMinutes)
	assert.Equal(t, "https://www.gelbeseiten.de", config.Scraper.DirectoryBaseURL)
	assert.Equal(t, "default", config.Export.CSVColumns)
}

func TestLoadFromFilesOverride(t *testing.T) {
	dir := t.TempDir()

	base := filepath.Join(dir, "base.toml")
	require.NoError(t, os.WriteFile(base, []byte(`
[search]
branche = "Klempner"
stadt = "Dortmund"
max_leads = 25
`), 0644))

	override := filepath.Join(dir, "override.toml")
	require.NoError(t, os.WriteFile(override, []byte(`
[search]
stadt = "Essen"

[stealth]
enabled = true
session_minutes = 60
`), 0644))

	config, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, "Klempner", config.Search.Branche)
	assert.Equal(t, "Essen", config.Search.Stadt)
	assert.Equal(t, 25, config.Search.MaxLeads)
	assert.True(t, config.Stealth.Enabled)
	assert.Equal(t, 60, config.Stealth.SessionMinutes)
	// Untouched defaults survive both files.
	assert.Equal(t, 50, config.Search.MaxPages)
}

func TestLoadFromFilesMissing(t *testing.T) {
	_, err := LoadFromFiles("/nonexistent/prospect.toml")
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	config := NewDefaultConfig()
	config.Search.Sources = "carrier-pigeon"
	assert.Error(t, config.Validate())

	config = NewDefaultConfig()
	config.Proxy.Enabled = true
	config.Proxy.File = ""
	assert.Error(t, config.Validate())
}

func TestRequireSearchTerms(t *testing.T) {
	config := NewDefaultConfig()
	assert.Error(t, config.RequireSearchTerms())

	config.Search.Stadt = "Dortmund"
	assert.Error(t, config.RequireSearchTerms())

	config.Search.Branche = "Klempner"
	assert.NoError(t, config.RequireSearchTerms())

	config.Search.Branche = ""
	config.Search.AllBranchen = true
	assert.NoError(t, config.RequireSearchTerms())

	config.Search.AllBranchen = false
	config.Search.Kategorie = "handwerk"
	assert.NoError(t, config.RequireSearchTerms())
}

func TestDurationsParseFromTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "delays.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[search]
branche = "Klempner"
stadt = "Dortmund"

[rate_limit]
directory_min_delay = "2s"
directory_max_delay = "4s"
`), 0644))

	config, err := LoadFromFiles(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, config.RateLimit.DirectoryMinDelay)
	assert.Equal(t, 4*time.Second, config.RateLimit.DirectoryMaxDelay)
}

func TestLoadTradeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "branchen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
branchen:
  - Friseur
  - Restaurant
kategorien:
  beauty:
    - Friseur
`), 0644))

	tf, err := LoadTradeFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Friseur", "Restaurant"}, tf.Branchen)
	assert.Equal(t, []string{"Friseur"}, tf.Kategorien["beauty"])
}

func TestLoadTradeFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("branchen: []\n"), 0644))

	_, err := LoadTradeFile(path)
	assert.Error(t, err)
}
