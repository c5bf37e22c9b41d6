// Package main is the entry point for the Nightscout autotune CLI
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/mrcode/nightscout-autotune/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := app.New().Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
