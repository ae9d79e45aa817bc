package machine

import (
	"time"

	"github.com/roomcraft/roomcraft-backend/internal/redesign/domain"
)

// Result is the outcome of one activity call, tagged with the epoch and
// action it was launched for. Exactly one of the output fields or Err is set.
type Result struct {
	Kind     domain.ActivityKind
	Epoch    int64
	ActionID string

	Analysis   *domain.AnalysisOutput
	Intake     *domain.IntakeOutput
	Generation *domain.GenerationOutput
	Edit       *domain.EditOutput
	Shopping   *domain.ShoppingOutput

	Err *domain.ActivityError
}

// ApplyResult folds r into p. It returns false, leaving p untouched, when the
// result is stale: the project has moved to another epoch (restart, cancel,
// approve, streaming claim) or the action is no longer at the queue head.
func ApplyResult(p *domain.Project, r Result, now time.Time) (Outcome, bool) {
	out := Outcome{From: p.Phase}
	if r.Epoch != p.Epoch || p.Phase.Terminal() {
		return out, false
	}

	var applied bool
	switch r.Kind {
	case domain.ActivityAnalysis:
		applied = applyAnalysis(p, r, now)
	case domain.ActivityIntake:
		applied = applyIntake(p, r, now)
	case domain.ActivityGeneration:
		applied = applyGeneration(p, r, now)
	case domain.ActivityEdit:
		applied = applyEdit(p, r, now)
	case domain.ActivityShopping:
		applied = applyShopping(p, r, now)
	}
	if !applied {
		return out, false
	}
	p.UpdatedAt = now
	out.To = p.Phase
	return out, true
}

// fail records err and moves the current activity phase to its error phase.
func fail(p *domain.Project, activity domain.ActivityKind, err domain.ActivityError, now time.Time) {
	next, ok := p.Phase.ErrorPhase()
	if !ok {
		return
	}
	enter(p, next, now)
	err.Activity = activity
	p.Error = &err
}

// Room analysis is enrichment only: a failure still advances to intake.
func applyAnalysis(p *domain.Project, r Result, now time.Time) bool {
	if p.Phase != domain.PhaseAnalyzing {
		return false
	}
	if r.Err == nil && r.Analysis != nil {
		a := r.Analysis.Analysis
		p.RoomAnalysis = &a
	}
	enter(p, domain.PhaseIntake, now)
	return true
}

func applyIntake(p *domain.Project, r Result, now time.Time) bool {
	cc := p.ConversationContext
	if p.Phase != domain.PhaseIntake || cc == nil || cc.PendingMessage == "" {
		return false
	}
	msg := cc.PendingMessage
	cc.PendingMessage = ""

	if r.Err != nil || r.Intake == nil {
		e := domain.ActivityError{Kind: domain.ErrorKindInvalidOutput, Message: "empty intake response", Retryable: true}
		if r.Err != nil {
			e = *r.Err
		}
		e.Activity = domain.ActivityIntake
		p.Error = &e
		return true
	}

	cc.Turns = append(cc.Turns,
		domain.ConversationTurn{Role: "user", Text: msg, At: now},
		domain.ConversationTurn{Role: "assistant", Text: r.Intake.AgentMessage, At: now},
	)
	if r.Intake.PartialBrief != nil {
		cc.PartialBrief = r.Intake.PartialBrief.Clone()
	}
	p.Error = nil
	if r.Intake.Done {
		p.DesignBrief = cc.PartialBrief.Clone()
		enter(p, domain.PhaseGeneration, now)
	}
	return true
}

func applyGeneration(p *domain.Project, r Result, now time.Time) bool {
	if p.Phase != domain.PhaseGeneration {
		return false
	}
	if r.Err != nil {
		fail(p, domain.ActivityGeneration, *r.Err, now)
		return true
	}
	if r.Generation == nil || len(r.Generation.Options) != 2 {
		fail(p, domain.ActivityGeneration, domain.ActivityError{
			Kind:      domain.ErrorKindInvalidOutput,
			Message:   "generation must return exactly 2 options",
			Retryable: true,
		}, now)
		return true
	}
	p.GeneratedOptions = append([]domain.GeneratedOption(nil), r.Generation.Options...)
	p.SelectedOptionIndex = nil
	enter(p, domain.PhaseSelection, now)
	return true
}

func applyEdit(p *domain.Project, r Result, now time.Time) bool {
	head, ok := queueHead(p)
	if p.Phase != domain.PhaseIteration || !ok || head.ID != r.ActionID {
		return false
	}
	if r.Err != nil {
		fail(p, domain.ActivityEdit, *r.Err, now)
		return true
	}
	if r.Edit == nil || r.Edit.ImageRef == "" {
		fail(p, domain.ActivityEdit, domain.ActivityError{
			Kind:      domain.ErrorKindInvalidOutput,
			Message:   "edit returned no image",
			Retryable: true,
		}, now)
		return true
	}

	popQueue(p)
	p.RevisionHistory = append(p.RevisionHistory, domain.RevisionRecord{
		ID:             head.ID,
		Timestamp:      now,
		Kind:           head.Kind,
		Instructions:   head.Instructions(),
		ResultImageRef: r.Edit.ImageRef,
	})
	p.IterationCount++
	p.CurrentImage = r.Edit.ImageRef
	p.Error = nil

	if p.IterationCount >= domain.MaxIterations && !p.Approved {
		clearQueue(p)
		enter(p, domain.PhaseApproval, now)
	}
	return true
}

func applyShopping(p *domain.Project, r Result, now time.Time) bool {
	if p.Phase != domain.PhaseShopping {
		return false
	}
	if r.Err != nil {
		fail(p, domain.ActivityShopping, *r.Err, now)
		return true
	}
	if r.Shopping == nil {
		fail(p, domain.ActivityShopping, domain.ActivityError{
			Kind:      domain.ErrorKindInvalidOutput,
			Message:   "shopping returned no list",
			Retryable: true,
		}, now)
		return true
	}
	list := r.Shopping.List
	list.Items = append([]domain.ProductMatch(nil), list.Items...)
	list.Unmatched = append([]domain.UnmatchedItem(nil), list.Unmatched...)
	p.ShoppingList = &list
	enter(p, domain.PhaseCompleted, now)
	return true
}
