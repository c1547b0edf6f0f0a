// cmd/crawler/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/celltrack/crawler/internal/cli"
)

func main() {
	// Interrupt cancels the context so workers can wind down and the
	// session tokens still get persisted on the way out.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.Execute(ctx)
}
