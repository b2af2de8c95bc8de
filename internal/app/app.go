package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/ibeckermayer/shopcheck/internal/types"
)

// Verifier performs one verification run
type Verifier interface {
	Run(ctx context.Context) types.Run
}

// Recorder persists run outcomes
type Recorder interface {
	SaveRun(r *types.Run) error
}

// App ties a verifier to the status output and optional history.
type App struct {
	// mu serializes runs; the browser is never shared between two.
	mu       sync.Mutex
	verifier Verifier
	history  Recorder // nil disables history
	out      io.Writer
}

// New creates a new App instance. history may be nil.
func New(v Verifier, history Recorder, out io.Writer) *App {
	return &App{
		verifier: v,
		history:  history,
		out:      out,
	}
}

// RunOnce performs a verification run and prints its status line.
func (a *App) RunOnce(ctx context.Context) types.Run {
	a.mu.Lock()
	defer a.mu.Unlock()

	run := a.verifier.Run(ctx)
	fmt.Fprintln(a.out, run.Message)

	if a.history != nil {
		if err := a.history.SaveRun(&run); err != nil {
			log.Printf("[store] Failed to record run: %v", err)
		} else {
			log.Printf("[store] Recorded run %d", run.ID)
		}
	}

	return run
}

// Job runs a verification and reports failure as an error, for the scheduler.
func (a *App) Job(ctx context.Context) error {
	run := a.RunOnce(ctx)
	if !run.Succeeded {
		return errors.New(run.Message)
	}
	return nil
}
