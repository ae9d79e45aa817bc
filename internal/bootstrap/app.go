package bootstrap

import (
	"context"
	"errors"

	"github.com/roomcraft/roomcraft-backend/config"
	"github.com/roomcraft/roomcraft-backend/internal/redesign/activities"
	"github.com/roomcraft/roomcraft-backend/internal/redesign/engine"
	"github.com/roomcraft/roomcraft-backend/internal/redesign/service"
)

// App is the assembled redesign backend shared by the api and worker binaries.
type App struct {
	Store      engine.Store
	Activities *activities.Collaborators
	Engine     *engine.Engine
	Gateway    *service.Gateway

	closeStore func() error
}

// NewApp opens the store and wires collaborators, engine and gateway. The
// engine is not started.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	store, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	acts, err := BuildActivities(ctx, cfg)
	if err != nil {
		closeStore()
		return nil, err
	}

	eng := engine.New(store, acts, engine.Config{
		AbandonAfter:      cfg.Engine.AbandonAfter,
		CompletedGrace:    cfg.Engine.CompletedGrace,
		TerminalRetention: cfg.Engine.TerminalRetention,
		AnalysisTimeout:   cfg.Engine.AnalysisTimeout,
		PurgeTimeout:      cfg.Engine.PurgeTimeout,
	})

	return &App{
		Store:      store,
		Activities: acts,
		Engine:     eng,
		Gateway:    service.NewGateway(eng, acts.IntakeEnabled()),
		closeStore: closeStore,
	}, nil
}

// Close stops the engine and releases the store connection.
func (a *App) Close(ctx context.Context) error {
	return errors.Join(a.Engine.Stop(ctx), a.closeStore())
}
