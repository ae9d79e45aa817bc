package engine

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/roomcraft/roomcraft-backend/internal/redesign/domain"
	"github.com/roomcraft/roomcraft-backend/internal/redesign/machine"
)

// supervise keeps the persisted wait fields in step with the phase. It runs
// inside the same read-modify-write as the change it follows, so a deadline
// is never observed without the phase that armed it.
//
//   - phases awaiting a person get ABANDON_AFTER, re-armed by any accepted
//     user signal and on entry
//   - completed gets COMPLETED_GRACE from its completion time
//   - cancelled and abandoned get TERMINAL_RETENTION once purged
//   - everything else has no deadline
func (e *Engine) supervise(p *domain.Project, out machine.Outcome, now time.Time) {
	switch {
	case p.Phase.AwaitsUser():
		if out.UserActivity || p.WaitPhase != p.Phase || p.WaitDeadline == nil {
			arm(p, now.Add(e.cfg.AbandonAfter))
		}
	case p.Phase == domain.PhaseCompleted:
		if p.WaitPhase != p.Phase || p.WaitDeadline == nil {
			from := now
			if p.CompletedAt != nil {
				from = *p.CompletedAt
			}
			arm(p, from.Add(e.cfg.CompletedGrace))
		}
	case p.Phase.Terminal():
		if p.PurgedAt == nil {
			disarm(p)
		}
	default:
		disarm(p)
	}
}

func arm(p *domain.Project, deadline time.Time) {
	p.WaitDeadline = &deadline
	p.WaitPhase = p.Phase
	p.WaitToken++
}

func disarm(p *domain.Project) {
	if p.WaitDeadline == nil && p.WaitPhase == p.Phase {
		return
	}
	p.WaitDeadline = nil
	p.WaitPhase = p.Phase
	p.WaitToken++
}

// purge calls the purge collaborator, retrying transient failures for at most
// PURGE_TIMEOUT. A failure is logged and otherwise ignored.
func (e *Engine) purge(projectID string) error {
	ctx, cancel := context.WithTimeout(e.ctx, e.cfg.PurgeTimeout)
	defer cancel()

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = e.cfg.PurgeTimeout

	err := backoff.Retry(func() error {
		err := e.activities.Purge(ctx, projectID)
		var ce *domain.CollaboratorError
		if errors.As(err, &ce) && !ce.Retryable {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(bo, ctx))

	recordPurge(err)
	if err != nil {
		logWarnf(projectID, "supervisor.purge", "best-effort purge failed error=%v", err)
		return err
	}
	logInfof(projectID, "supervisor.purge", "purged")
	return nil
}
