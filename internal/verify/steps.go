package verify

import (
	"time"

	"github.com/ibeckermayer/shopcheck/internal/config"
)

// Kind identifies what a step does.
type Kind string

const (
	KindNavigate      Kind = "navigate"
	KindWait          Kind = "wait"
	KindAssertVisible Kind = "assert-visible"
	KindClick         Kind = "click"
	KindScreenshot    Kind = "screenshot"
)

// Step is one entry of the verification script. Only the fields relevant to
// Kind are set.
type Step struct {
	Kind    Kind
	URL     string
	Delay   time.Duration
	Locator Locator
	Path    string
}

func Navigate(url string) Step { return Step{Kind: KindNavigate, URL: url} }

// Wait is a blind sleep. Nothing on the page is checked.
func Wait(d time.Duration) Step { return Step{Kind: KindWait, Delay: d} }

func AssertVisible(l Locator) Step { return Step{Kind: KindAssertVisible, Locator: l} }

// Click clicks the first element matching l.
func Click(l Locator) Step { return Step{Kind: KindClick, Locator: l} }

func Screenshot(path string) Step { return Step{Kind: KindScreenshot, Path: path} }

func (s Step) String() string {
	switch s.Kind {
	case KindNavigate:
		return "navigate " + s.URL
	case KindWait:
		return "wait " + s.Delay.String()
	case KindAssertVisible, KindClick:
		return string(s.Kind) + " " + s.Locator.String()
	case KindScreenshot:
		return "screenshot " + s.Path
	}
	return string(s.Kind)
}

// Script returns the fixed home -> shop -> cart check. Order matters: the
// shop page is reached by clicking through from home, the cart directly.
func Script(cfg *config.Config) []Step {
	role := ByRole
	if cfg.Checks.ExactNames {
		role = ByRoleExact
	}

	return []Step{
		Navigate(cfg.URL("/")),
		Wait(cfg.Timing.HomeSettle.Std()),
		AssertVisible(role("heading", cfg.Checks.HomeHeading)),
		Screenshot(cfg.ScreenshotPath("home")),

		Click(role("link", cfg.Checks.ShopLink)),
		Wait(cfg.Timing.ShopSettle.Std()),
		AssertVisible(ByText(cfg.Checks.ShopText)),
		Screenshot(cfg.ScreenshotPath("shop")),

		Navigate(cfg.URL(cfg.Target.CartPath)),
		Wait(cfg.Timing.CartSettle.Std()),
		Screenshot(cfg.ScreenshotPath("cart")),
	}
}
