package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// Config holds all runner configuration
type Config struct {
	Version int           `toml:"version"`
	Target  TargetConfig  `toml:"target"`
	Checks  ChecksConfig  `toml:"checks"`
	Timing  TimingConfig  `toml:"timing"`
	Output  OutputConfig  `toml:"output"`
	Browser BrowserConfig `toml:"browser"`
	History HistoryConfig `toml:"history"`
}

type TargetConfig struct {
	BaseURL  string `toml:"base_url" validate:"required,http_url"`
	CartPath string `toml:"cart_path" validate:"required,startswith=/"`
}

// ChecksConfig names the page content each assertion looks for.
type ChecksConfig struct {
	HomeHeading string `toml:"home_heading" validate:"required"`
	ShopLink    string `toml:"shop_link" validate:"required"`
	ShopText    string `toml:"shop_text" validate:"required"`
	// ExactNames requires role names to equal HomeHeading and ShopLink
	// instead of containing them.
	ExactNames bool `toml:"exact_names"`
}

type TimingConfig struct {
	HomeSettle      Duration `toml:"home_settle" validate:"gte=0"`
	ShopSettle      Duration `toml:"shop_settle" validate:"gte=0"`
	CartSettle      Duration `toml:"cart_settle" validate:"gte=0"`
	AssertTimeout   Duration `toml:"assert_timeout" validate:"gt=0"`
	NavigateTimeout Duration `toml:"navigate_timeout" validate:"gt=0"`
}

type OutputConfig struct {
	Dir      string `toml:"dir" validate:"required"`
	FullPage bool   `toml:"full_page"`
}

type BrowserConfig struct {
	Headless     bool   `toml:"headless"`
	NoSandbox    bool   `toml:"no_sandbox"`
	ExecPath     string `toml:"exec_path"`
	WindowWidth  int    `toml:"window_width" validate:"gt=0"`
	WindowHeight int    `toml:"window_height" validate:"gt=0"`
}

// HistoryConfig points at the sqlite run log. An empty path disables it.
type HistoryConfig struct {
	Path string `toml:"path"`
}

// Duration is a time.Duration that reads and writes TOML strings like "5s".
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Default returns the fixed smoke-check configuration
func Default() *Config {
	return &Config{
		Version: 1,
		Target: TargetConfig{
			BaseURL:  "http://localhost:3000",
			CartPath: "/cart",
		},
		Checks: ChecksConfig{
			HomeHeading: "Elegant Jewelry",
			ShopLink:    "Shop",
			ShopText:    "Our Collection",
		},
		Timing: TimingConfig{
			HomeSettle:      Duration(5 * time.Second),
			ShopSettle:      Duration(5 * time.Second),
			CartSettle:      Duration(2 * time.Second),
			AssertTimeout:   Duration(5 * time.Second),
			NavigateTimeout: Duration(30 * time.Second),
		},
		Output: OutputConfig{
			Dir: "/home/jules/verification",
		},
		Browser: BrowserConfig{
			Headless:     true,
			WindowWidth:  1280,
			WindowHeight: 720,
		},
	}
}

// URL joins the target base URL with path
func (c *Config) URL(path string) string {
	return strings.TrimRight(c.Target.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// ScreenshotPath returns the output file for a named screenshot
func (c *Config) ScreenshotPath(name string) string {
	return filepath.Join(c.Output.Dir, name+".png")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load reads config from path, filling unset fields from Default
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes config to path
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
