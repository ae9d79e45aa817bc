package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/roomcraft/roomcraft-backend/internal/bootstrap"
	"github.com/roomcraft/roomcraft-backend/internal/redesign/domain"
	"github.com/roomcraft/roomcraft-backend/internal/scheduler"
)

// store is the slice of the project store the commands use.
type store interface {
	Get(ctx context.Context, id string) (*domain.Project, error)
	Delete(ctx context.Context, id string) error
	DueDeadlines(ctx context.Context, now time.Time) ([]string, error)
}

// retirer purges and deletes a project through the engine, so subscribers
// see the deletion.
type retirer interface {
	Retire(ctx context.Context, id string) error
}

// RunSupervise recovers every project and sweeps deadlines until ctx ends.
func RunSupervise(ctx context.Context, app *bootstrap.App, schedule string) error {
	if err := app.Engine.Start(ctx); err != nil {
		return err
	}

	sweeper := scheduler.NewScheduler(app.Engine, schedule)
	if err := sweeper.Start(); err != nil {
		return err
	}
	log.Println("[info] operation=worker.supervise status=running")

	<-ctx.Done()
	sweeper.Stop()
	return nil
}

// RunDue writes one line per overdue project: id, phase and deadline.
func RunDue(ctx context.Context, s store, w io.Writer) error {
	ids, err := s.DueDeadlines(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("due deadlines: %w", err)
	}

	for _, id := range ids {
		p, err := s.Get(ctx, id)
		if err != nil {
			fmt.Fprintf(w, "%s\t-\t-\n", id)
			continue
		}
		deadline := "-"
		if p.WaitDeadline != nil {
			deadline = p.WaitDeadline.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", id, p.Phase, deadline)
	}
	return nil
}

// RunPurge removes a project's artifacts, then its record. A failed purge is
// logged by the engine and the record is still deleted.
func RunPurge(ctx context.Context, r retirer, id string) error {
	if err := r.Retire(ctx, id); err != nil {
		return fmt.Errorf("retire project %s: %w", id, err)
	}
	log.Printf("[info] project_id=%s operation=worker.purge status=deleted", id)
	return nil
}
