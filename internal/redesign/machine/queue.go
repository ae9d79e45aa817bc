package machine

import "github.com/roomcraft/roomcraft-backend/internal/redesign/domain"

// The action queue holds iteration edits in submission order. The head is
// only removed once its edit has succeeded, so a failed action keeps its
// place in front of anything submitted while the error is showing.

// enqueueAction appends an annotation or feedback action.
func enqueueAction(p *domain.Project, sig domain.Signal) error {
	if !inPhase(p, domain.PhaseIteration, domain.PhaseIterationError) || p.Approved {
		return domain.Reject(sig.Kind, p.Phase, domain.CodeWrongPhase)
	}
	for _, a := range p.PendingActions {
		if a.ID == sig.Action.ID {
			return nil
		}
	}
	// Queued actions are reserved slots: the cap can never be overshot.
	if p.IterationCount+len(p.PendingActions) >= domain.MaxIterations {
		return domain.Reject(sig.Kind, p.Phase, domain.CodeIterationLimit)
	}

	action := *sig.Action
	action.Regions = append([]domain.AnnotationRegion(nil), sig.Action.Regions...)
	action.SubmittedAt = sig.At
	p.PendingActions = append(p.PendingActions, action)
	return nil
}

// queueHead returns the next action to apply.
func queueHead(p *domain.Project) (domain.EditAction, bool) {
	if len(p.PendingActions) == 0 {
		return domain.EditAction{}, false
	}
	return p.PendingActions[0], true
}

// popQueue removes the head after a successful edit.
func popQueue(p *domain.Project) {
	if len(p.PendingActions) == 0 {
		return
	}
	p.PendingActions = append([]domain.EditAction(nil), p.PendingActions[1:]...)
	if len(p.PendingActions) == 0 {
		p.PendingActions = nil
	}
}

func clearQueue(p *domain.Project) {
	p.PendingActions = nil
}

// RemainingSlots reports how many more actions may be queued.
func RemainingSlots(p *domain.Project) int {
	n := domain.MaxIterations - p.IterationCount - len(p.PendingActions)
	if n < 0 {
		return 0
	}
	return n
}
