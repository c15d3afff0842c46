package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"hooknotify/internal/app"
	"hooknotify/internal/config"
)

func main() {
	var (
		cfgPath string
		serve   bool
	)
	flag.StringVar(&cfgPath, "config", config.DefaultPath(), "path to config file (yaml or json)")
	flag.BoolVar(&serve, "serve", false, "run the HTTP ingest server instead of reading one event from stdin")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
	defer a.Close()

	if serve {
		if err := a.Serve(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			os.Exit(1)
		}
		return
	}

	// Hook mode: never fail the caller. A notification engine that breaks
	// the agent it is observing is worse than one that drops an alert.
	if err := a.HandleStdin(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "hooknotify:", err)
	}
}
