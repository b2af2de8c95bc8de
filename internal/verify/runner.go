// Package verify runs the storefront smoke check in a headless browser.
package verify

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/ibeckermayer/shopcheck/internal/browser"
	"github.com/ibeckermayer/shopcheck/internal/config"
	"github.com/ibeckermayer/shopcheck/internal/types"
)

// errorShotTimeout bounds the failure screenshot so a wedged browser cannot
// hold the run open.
const errorShotTimeout = 15 * time.Second

// Runner executes the verification script against the configured target
type Runner struct {
	cfg   *config.Config
	steps []Step

	// launched, if set, receives the browser process right after start.
	// Tests use it to check the process is gone once Run returns.
	launched func(*os.Process)
}

// New creates a runner for the fixed script built from cfg
func New(cfg *config.Config) *Runner {
	return &Runner{cfg: cfg, steps: Script(cfg)}
}

// Run executes every step in order. Failures never escape: they end the
// sequence, trigger an error screenshot and are reported in the returned Run.
func (r *Runner) Run(ctx context.Context) types.Run {
	run := types.Run{StartedAt: time.Now()}
	log.Printf("[verify] Running %d steps against %s", len(r.steps), r.cfg.Target.BaseURL)

	err := r.run(ctx, &run)

	run.FinishedAt = time.Now()
	if err != nil {
		run.Message = types.FailurePrefix + err.Error()
		return run
	}

	run.Succeeded = true
	run.Message = types.SuccessMessage
	return run
}

func (r *Runner) run(ctx context.Context, run *types.Run) error {
	// Registered first so it runs after both cancels below
	defer log.Println("[verify] Browser released")

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, browser.Options(r.cfg.Browser)...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	// An empty Run starts the browser and opens the page
	if err := chromedp.Run(browserCtx); err != nil {
		err = fmt.Errorf("failed to launch browser: %w", err)
		log.Printf("[verify] Failed: %v", err)
		return err
	}
	if r.launched != nil {
		if c := chromedp.FromContext(browserCtx); c != nil && c.Browser != nil {
			r.launched(c.Browser.Process())
		}
	}

	for i, step := range r.steps {
		if err := r.exec(browserCtx, step, run); err != nil {
			err = fmt.Errorf("step %d (%s): %w", i+1, step, err)
			log.Printf("[verify] Failed: %v", err)
			r.captureError(browserCtx, run)
			return err
		}
	}

	log.Printf("[verify] Succeeded in %v", time.Since(run.StartedAt))
	return nil
}

func (r *Runner) exec(ctx context.Context, step Step, run *types.Run) error {
	assertTimeout := r.cfg.Timing.AssertTimeout.Std()

	switch step.Kind {
	case KindNavigate:
		navCtx, cancel := context.WithTimeout(ctx, r.cfg.Timing.NavigateTimeout.Std())
		defer cancel()
		return chromedp.Run(navCtx, chromedp.Navigate(step.URL))

	case KindWait:
		return chromedp.Run(ctx, chromedp.Sleep(step.Delay))

	case KindAssertVisible:
		return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			return assertVisible(ctx, step.Locator, assertTimeout)
		}))

	case KindClick:
		return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			return click(ctx, step.Locator, assertTimeout)
		}))

	case KindScreenshot:
		if err := r.screenshot(ctx, step.Path); err != nil {
			return err
		}
		run.Screenshots = append(run.Screenshots, step.Path)
		return nil
	}

	return fmt.Errorf("unknown step kind %q", step.Kind)
}

func (r *Runner) screenshot(ctx context.Context, path string) error {
	var buf []byte

	var action chromedp.Action = chromedp.CaptureScreenshot(&buf)
	if r.cfg.Output.FullPage {
		// quality 100 keeps the capture lossless PNG
		action = chromedp.FullScreenshot(&buf, 100)
	}

	if err := chromedp.Run(ctx, action); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create screenshot dir: %w", err)
	}

	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("failed to write screenshot: %w", err)
	}

	return nil
}

// captureError saves the page state at failure time. Its own failure is only
// logged so the original error is what gets reported.
func (r *Runner) captureError(ctx context.Context, run *types.Run) {
	shotCtx, cancel := context.WithTimeout(ctx, errorShotTimeout)
	defer cancel()

	path := r.cfg.ScreenshotPath("error")
	if err := r.screenshot(shotCtx, path); err != nil {
		log.Printf("[verify] Failed to capture error screenshot: %v", err)
		return
	}
	run.ErrorScreenshot = path
}
