// Command advfind finds and highlights text in HTML documents and live
// pages.
//
// Usage:
//
//	advfind search page.html --term bank --term river --out marked.html
//	advfind proximity https://example.com --term1 alpha --term2 beta --distance 3
//	advfind count page.html --term bank
//	advfind export page.html --term bank
//	advfind watch page.html --term bank --out marked.html
//	advfind serve --addr :8086
//	advfind mcp page.html
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error("advfind: fatal", "error", err)
		os.Exit(1)
	}
}
