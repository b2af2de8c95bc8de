package main

import (
	"context"
	"log"
	"os"

	"github.com/ibeckermayer/shopcheck/internal/app"
	"github.com/ibeckermayer/shopcheck/internal/config"
	"github.com/ibeckermayer/shopcheck/internal/verify"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Fixed target and output paths; no flags, env or config file
	cfg := config.Default()

	a := app.New(verify.New(cfg), nil, os.Stdout)
	a.RunOnce(context.Background())
}
