// Package main starts the pulseritas storefront service.
//
// This process owns the catalog database, the image store, and the paginated
// gallery HTTP surface for both visitors and the admin.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	servercmd "github.com/pulseritas/storefront/internal/cmd/server"
)

func main() {
	log.SetPrefix("[SERVER] ")
	cfg, err := servercmd.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := servercmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
