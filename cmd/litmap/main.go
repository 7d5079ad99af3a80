package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kailas-cloud/litmap/internal/version"
)

func main() {
	// a missing .env is fine, the environment may be set already
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd(version.String()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "litmap:", err)
		os.Exit(1)
	}
}
