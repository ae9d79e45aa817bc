package activities

import (
	"context"

	"github.com/roomcraft/roomcraft-backend/internal/redesign/domain"
	"github.com/roomcraft/roomcraft-backend/internal/redesign/engine"
)

var _ engine.Activities = (*Collaborators)(nil)

// IntakeClient runs one intake conversation turn.
type IntakeClient interface {
	Intake(ctx context.Context, in domain.IntakeInput) (domain.IntakeOutput, error)
}

// Collaborators routes each activity to its client.
type Collaborators struct {
	upstream *Upstream
	intake   IntakeClient
	purger   *Purger
}

// NewCollaborators wires the clients. intake may be nil when no agent is
// configured; intake turns then fail as unavailable.
func NewCollaborators(upstream *Upstream, intake IntakeClient, purger *Purger) *Collaborators {
	return &Collaborators{upstream: upstream, intake: intake, purger: purger}
}

// IntakeEnabled reports whether an intake agent is configured.
func (c *Collaborators) IntakeEnabled() bool {
	return c.intake != nil
}

func (c *Collaborators) Analyze(ctx context.Context, in domain.AnalysisInput) (domain.AnalysisOutput, error) {
	return c.upstream.Analyze(ctx, in)
}

func (c *Collaborators) Intake(ctx context.Context, in domain.IntakeInput) (domain.IntakeOutput, error) {
	if c.intake == nil {
		return domain.IntakeOutput{}, &domain.CollaboratorError{Kind: domain.ErrorKindUnavailable, Message: "intake agent is not configured"}
	}
	return c.intake.Intake(ctx, in)
}

func (c *Collaborators) Generate(ctx context.Context, in domain.GenerationInput) (domain.GenerationOutput, error) {
	return c.upstream.Generate(ctx, in)
}

func (c *Collaborators) Edit(ctx context.Context, in domain.EditInput) (domain.EditOutput, error) {
	return c.upstream.Edit(ctx, in)
}

func (c *Collaborators) Shop(ctx context.Context, in domain.ShoppingInput) (domain.ShoppingOutput, error) {
	return c.upstream.Shop(ctx, in)
}

func (c *Collaborators) Purge(ctx context.Context, projectID string) error {
	return c.purger.Purge(ctx, projectID)
}
