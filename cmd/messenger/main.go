package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/kornilov-ux/MyMessenger/internal/cli"
	"github.com/kornilov-ux/MyMessenger/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()

	app, err := cli.NewApp(cfg)
	if err != nil {
		log.Fatalf("error initializing app: %s", err)
	}
	defer app.Close()

	app.Main(ctx)
}
