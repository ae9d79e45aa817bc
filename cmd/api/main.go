package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/roomcraft/roomcraft-backend/config"
	"github.com/roomcraft/roomcraft-backend/internal/bootstrap"
	"github.com/roomcraft/roomcraft-backend/internal/scheduler"
)

const serviceName = "roomcraft-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	if err := app.Engine.Start(ctx); err != nil {
		log.Fatalf("engine start: %v", err)
	}

	sweeper := scheduler.NewScheduler(app.Engine, cfg.Engine.SweepSchedule)
	if err := sweeper.Start(); err != nil {
		log.Fatalf("scheduler: %v", err)
	}

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: serviceName,
		Version:     cfg.App.Version,
		CORSOrigins: cfg.Server.CORSOrigins,
		Store:       app.Engine,
		Gateway:     app.Gateway,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Println("[info] operation=api.shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[error] operation=api.shutdown error=%v", err)
		}
	}()

	log.Printf("[info] operation=api.start service=%s version=%s env=%s port=%s store=%s",
		serviceName, cfg.App.Version, cfg.App.Environment, cfg.Server.Port, cfg.Store.Backend)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("[error] operation=api.listen error=%v", err)
	}

	sweeper.Stop()
	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Close(closeCtx); err != nil {
		log.Printf("[error] operation=api.close error=%v", err)
	}
}
