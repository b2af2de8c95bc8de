// Package browser provides shared chromedp allocator configuration for smoke runs.
package browser

import (
	"os/exec"

	"github.com/chromedp/chromedp"

	"github.com/ibeckermayer/shopcheck/internal/config"
)

// Options returns chromedp allocator options for the given browser config.
// All runs should use this so local and scheduled runs render identically.
func Options(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),

		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)

	if cfg.Headless {
		opts = append(opts, chromedp.Flag("disable-gpu", true))
	}

	// Containers usually need both of these
	if cfg.NoSandbox {
		opts = append(opts,
			chromedp.NoSandbox,
			chromedp.Flag("disable-dev-shm-usage", true),
		)
	}

	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	return opts
}

// candidates are the binary names chromedp itself probes on Linux and macOS.
var candidates = []string{
	"headless_shell",
	"headless-shell",
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"google-chrome-beta",
	"google-chrome-unstable",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
}

// Find returns the first Chrome binary on PATH, or "" if none is installed.
func Find() string {
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}
