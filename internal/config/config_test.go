package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesFixedScript(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://localhost:3000", cfg.Target.BaseURL)
	assert.Equal(t, "/cart", cfg.Target.CartPath)
	assert.Equal(t, "Elegant Jewelry", cfg.Checks.HomeHeading)
	assert.Equal(t, "Shop", cfg.Checks.ShopLink)
	assert.Equal(t, "Our Collection", cfg.Checks.ShopText)
	assert.Equal(t, 5*time.Second, cfg.Timing.HomeSettle.Std())
	assert.Equal(t, 5*time.Second, cfg.Timing.ShopSettle.Std())
	assert.Equal(t, 2*time.Second, cfg.Timing.CartSettle.Std())
	assert.True(t, cfg.Browser.Headless)
	assert.Empty(t, cfg.History.Path)
	require.NoError(t, cfg.Validate())
}

func TestURL(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "http://localhost:3000/", cfg.URL("/"))
	assert.Equal(t, "http://localhost:3000/cart", cfg.URL("/cart"))

	cfg.Target.BaseURL = "http://127.0.0.1:8080/"
	assert.Equal(t, "http://127.0.0.1:8080/cart", cfg.URL("cart"))
}

func TestScreenshotPath(t *testing.T) {
	cfg := Default()
	cfg.Output.Dir = "/tmp/shots"
	assert.Equal(t, "/tmp/shots/home.png", cfg.ScreenshotPath("home"))
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shopcheck.toml")
	err := os.WriteFile(path, []byte(`
[target]
base_url = "http://127.0.0.1:4000"

[timing]
home_settle = "250ms"
assert_timeout = "1s"

[output]
dir = "/tmp/out"
full_page = true
`), 0600)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:4000", cfg.Target.BaseURL)
	assert.Equal(t, "/cart", cfg.Target.CartPath, "unset fields keep defaults")
	assert.Equal(t, 250*time.Millisecond, cfg.Timing.HomeSettle.Std())
	assert.Equal(t, time.Second, cfg.Timing.AssertTimeout.Std())
	assert.Equal(t, 5*time.Second, cfg.Timing.ShopSettle.Std())
	assert.Equal(t, "/tmp/out", cfg.Output.Dir)
	assert.True(t, cfg.Output.FullPage)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shopcheck.toml")
	require.NoError(t, os.WriteFile(path, []byte("[timing]\nhome_settle = \"soon\"\n"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.True(t, os.IsNotExist(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.Target.BaseURL = "" }},
		{"non-http base url", func(c *Config) { c.Target.BaseURL = "ftp://example.com" }},
		{"relative cart path", func(c *Config) { c.Target.CartPath = "cart" }},
		{"empty heading", func(c *Config) { c.Checks.HomeHeading = "" }},
		{"zero assert timeout", func(c *Config) { c.Timing.AssertTimeout = 0 }},
		{"negative settle", func(c *Config) { c.Timing.CartSettle = Duration(-time.Second) }},
		{"no output dir", func(c *Config) { c.Output.Dir = "" }},
		{"zero window", func(c *Config) { c.Browser.WindowWidth = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "shopcheck.toml")

	cfg := Default()
	cfg.Timing.CartSettle = Duration(1500 * time.Millisecond)
	cfg.History.Path = "/var/lib/shopcheck/history.db"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
