package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ibeckermayer/shopcheck/internal/config"
)

func TestOptionsAddsContainerFlags(t *testing.T) {
	base := config.Default().Browser
	boxed := base
	boxed.NoSandbox = true
	boxed.ExecPath = "/usr/bin/chromium"

	assert.Len(t, Options(boxed), len(Options(base))+3)
}

func TestOptionsHeadful(t *testing.T) {
	headless := config.Default().Browser
	headful := headless
	headful.Headless = false

	// disable-gpu is only added for headless runs
	assert.Len(t, Options(headful), len(Options(headless))-1)
}
