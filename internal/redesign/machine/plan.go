package machine

import "github.com/roomcraft/roomcraft-backend/internal/redesign/domain"

// Plan is an activity call the current state requires. Inputs are built from
// stored fields only, so re-planning after a retry reproduces the same call.
type Plan struct {
	Kind     domain.ActivityKind
	Epoch    int64
	ActionID string

	Analysis   *domain.AnalysisInput
	Intake     *domain.IntakeInput
	Generation *domain.GenerationInput
	Edit       *domain.EditInput
	Shopping   *domain.ShoppingInput
}

// NextPlan returns the activity p is waiting on, or nil when it is waiting on
// a person (or on nothing).
func NextPlan(p *domain.Project) *Plan {
	if p.Phase.Terminal() {
		return nil
	}
	plan := &Plan{Epoch: p.Epoch}

	switch p.Phase {
	case domain.PhaseAnalyzing:
		plan.Kind = domain.ActivityAnalysis
		plan.Analysis = &domain.AnalysisInput{
			SchemaVersion: domain.ActivitySchemaVersion,
			ProjectID:     p.ID,
			RoomPhotoRefs: p.PhotoRefs(domain.PhotoKindRoom),
			ScanData:      cloneScan(p.ScanData),
		}

	case domain.PhaseIntake:
		cc := p.ConversationContext
		if cc == nil || cc.PendingMessage == "" {
			return nil
		}
		plan.Kind = domain.ActivityIntake
		plan.Intake = &domain.IntakeInput{
			SchemaVersion: domain.ActivitySchemaVersion,
			ProjectID:     p.ID,
			Message:       cc.PendingMessage,
			History:       append([]domain.ConversationTurn(nil), cc.Turns...),
			PartialBrief:  cc.PartialBrief.Clone(),
			Photos:        append([]domain.Photo(nil), p.Photos...),
			ScanData:      cloneScan(p.ScanData),
			RoomAnalysis:  p.RoomAnalysis,
		}

	case domain.PhaseGeneration:
		if p.Streaming {
			return nil
		}
		plan.Kind = domain.ActivityGeneration
		plan.Generation = &domain.GenerationInput{
			SchemaVersion:        domain.ActivitySchemaVersion,
			ProjectID:            p.ID,
			RoomPhotoRefs:        p.PhotoRefs(domain.PhotoKindRoom),
			InspirationPhotoRefs: p.PhotoRefs(domain.PhotoKindInspiration),
			Brief:                p.DesignBrief.Clone(),
			ScanData:             cloneScan(p.ScanData),
		}

	case domain.PhaseIteration:
		head, ok := queueHead(p)
		if !ok || p.Approved || p.IterationCount >= domain.MaxIterations {
			return nil
		}
		plan.Kind = domain.ActivityEdit
		plan.ActionID = head.ID
		plan.Edit = &domain.EditInput{
			SchemaVersion: domain.ActivitySchemaVersion,
			ProjectID:     p.ID,
			CurrentImage:  p.CurrentImage,
			Action:        head,
			History:       append([]domain.RevisionRecord(nil), p.RevisionHistory...),
			Brief:         p.DesignBrief.Clone(),
		}

	case domain.PhaseShopping:
		if p.Streaming {
			return nil
		}
		plan.Kind = domain.ActivityShopping
		plan.Shopping = &domain.ShoppingInput{
			SchemaVersion:     domain.ActivitySchemaVersion,
			ProjectID:         p.ID,
			FinalImage:        p.CurrentImage,
			OriginalPhotoRefs: p.PhotoRefs(domain.PhotoKindRoom),
			Brief:             p.DesignBrief.Clone(),
			Revisions:         append([]domain.RevisionRecord(nil), p.RevisionHistory...),
			ScanData:          cloneScan(p.ScanData),
		}

	default:
		return nil
	}
	return plan
}

func cloneScan(s *domain.ScanData) *domain.ScanData {
	if s == nil {
		return nil
	}
	c := *s
	c.Walls = append([]domain.Wall(nil), s.Walls...)
	c.Openings = append([]domain.Opening(nil), s.Openings...)
	c.Furniture = append([]domain.FurnitureItem(nil), s.Furniture...)
	return &c
}
