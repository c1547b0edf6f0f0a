// Package cli provides the command-line interface for the crawler.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/celltrack/crawler/internal/app"
)

// ctxKey keeps the Application entry off other packages' context keys.
type ctxKey struct{}

// SetApp attaches the Application to the command's context so the
// RunE and PostRun hooks of the same invocation can reach it.
func SetApp(cmd *cobra.Command, a *app.Application) {
	if cmd == nil {
		return
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, ctxKey{}, a))
}

// GetAppFromCmd retrieves the Application attached by SetApp, or nil
// when the command was never initialized (help, completion).
func GetAppFromCmd(cmd *cobra.Command) *app.Application {
	if cmd == nil || cmd.Context() == nil {
		return nil
	}
	a, _ := cmd.Context().Value(ctxKey{}).(*app.Application)
	return a
}
