package engine

import (
	"context"
	"time"

	"github.com/roomcraft/roomcraft-backend/internal/redesign/domain"
)

// Store persists one record per project and supports an atomic
// read-modify-write of a single project.
type Store interface {
	Create(ctx context.Context, p *domain.Project) error
	Get(ctx context.Context, id string) (*domain.Project, error)

	// Update loads the project, passes it to fn and writes the result back
	// atomically. If fn returns an error nothing is written and the error is
	// returned as-is. fn may be called more than once on conflict.
	Update(ctx context.Context, id string, fn func(p *domain.Project) error) (*domain.Project, error)

	Delete(ctx context.Context, id string) error

	// ListActive returns the ids of every stored project.
	ListActive(ctx context.Context) ([]string, error)

	// DueDeadlines returns ids whose wait deadline is at or before now.
	DueDeadlines(ctx context.Context, now time.Time) ([]string, error)

	Ping(ctx context.Context) error
}

// Notifier is implemented by stores that publish a message for every
// committed change to a project.
type Notifier interface {
	Subscribe(ctx context.Context, id string) (<-chan struct{}, error)
}

// Activities are the external collaborators the engine drives.
type Activities interface {
	Analyze(ctx context.Context, in domain.AnalysisInput) (domain.AnalysisOutput, error)
	Intake(ctx context.Context, in domain.IntakeInput) (domain.IntakeOutput, error)
	Generate(ctx context.Context, in domain.GenerationInput) (domain.GenerationOutput, error)
	Edit(ctx context.Context, in domain.EditInput) (domain.EditOutput, error)
	Shop(ctx context.Context, in domain.ShoppingInput) (domain.ShoppingOutput, error)
	Purge(ctx context.Context, projectID string) error
}
