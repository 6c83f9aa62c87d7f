package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir mirrors t.Chdir from Go 1.24, which is unavailable on this toolchain.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Errorf("restoring working directory: %v", err)
		}
	})
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "meta-llama/llama-3.2-3b-instruct", cfg.OpenRouter.Model)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.OpenRouter.BaseURL)
	assert.Empty(t, cfg.OpenRouter.Key)
	assert.Contains(t, cfg.Scrape.ListingURL, "eprocure.gov.in")
	assert.Equal(t, 10, cfg.Scrape.MaxRows)
	assert.Equal(t, 5, cfg.Scrape.MinColumns)
	assert.Equal(t, 2, cfg.Scrape.Columns.ClosingDate)
	assert.Equal(t, 4, cfg.Scrape.Columns.TitleRef)
	assert.Equal(t, 5, cfg.Scrape.Columns.Ministry)
	assert.Equal(t, 1.0, cfg.Enrich.RequestsPerSec)
	assert.Equal(t, 5, cfg.Enrich.CooldownSecs)
	assert.Equal(t, "output/tenders_clean.csv", cfg.Sink.Path)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
openrouter:
  key: file-key
scrape:
  max_rows: 25
  columns:
    title_ref: 3
sink:
  path: /tmp/artifacts/tenders.csv
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	chdir(t, dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "file-key", cfg.OpenRouter.Key)
	assert.Equal(t, 25, cfg.Scrape.MaxRows)
	assert.Equal(t, 3, cfg.Scrape.Columns.TitleRef)
	assert.Equal(t, 2, cfg.Scrape.Columns.ClosingDate, "unset keys keep defaults")
	assert.Equal(t, "/tmp/artifacts/tenders.csv", cfg.Sink.Path)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("openrouter:\n  key: file-key\n"), 0o644))
	chdir(t, dir)

	t.Setenv("TENDER_OPENROUTER_KEY", "env-key")
	t.Setenv("TENDER_SCRAPE_MAX_ROWS", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.OpenRouter.Key, "the secrets layer wins over the file")
	assert.Equal(t, 3, cfg.Scrape.MaxRows)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("{{{{ not yaml"), 0o644))
	chdir(t, dir)

	_, err := Load()
	require.Error(t, err)
}
