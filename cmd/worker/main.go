package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/roomcraft/roomcraft-backend/config"
	"github.com/roomcraft/roomcraft-backend/internal/bootstrap"
)

const usage = `usage: worker <command>

commands:
  supervise          run the engine headless: recover projects and sweep deadlines
  due                list projects whose wait deadline has passed
  purge <project-id> delete a project's artifacts and its record`

func main() {
	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	if err := run(os.Args[1], os.Args[2:]); err != nil {
		log.Printf("[error] operation=worker.%s error=%v", os.Args[1], err)
		os.Exit(1)
	}
}

func run(command string, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Close(closeCtx); err != nil {
			log.Printf("[error] operation=worker.close error=%v", err)
		}
	}()

	switch command {
	case "supervise":
		return RunSupervise(ctx, app, cfg.Engine.SweepSchedule)
	case "due":
		return RunDue(ctx, app.Store, os.Stdout)
	case "purge":
		if len(args) < 1 {
			return fmt.Errorf("usage: worker purge <project-id>")
		}
		return RunPurge(ctx, app.Engine, args[0])
	default:
		return fmt.Errorf("unknown command: %s\n\n%s", command, usage)
	}
}
