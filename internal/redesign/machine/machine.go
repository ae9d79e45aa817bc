// Package machine is the project state machine. Every function here is a pure
// mutation of a *domain.Project: no I/O, no clocks, no goroutines. The engine
// runs these functions inside an atomic read-modify-write of the store.
package machine

import (
	"time"

	"github.com/roomcraft/roomcraft-backend/internal/redesign/domain"
)

// Outcome describes what a committed signal or result changed.
type Outcome struct {
	From         domain.Phase
	To           domain.Phase
	Purge        bool
	UserActivity bool
}

// PhaseChanged reports whether the phase moved.
func (o Outcome) PhaseChanged() bool {
	return o.From != o.To
}

// Apply validates sig against the current phase and mutates p. A rejected
// signal returns a *domain.RejectionError and a signal missing its payload a
// *domain.ValidationError; either way p is left unchanged.
func Apply(p *domain.Project, sig domain.Signal) (Outcome, error) {
	out := Outcome{
		From:         p.Phase,
		UserActivity: sig.Kind != domain.SignalDeliverStreamedResult,
	}
	if p.Phase.Terminal() {
		return out, domain.Reject(sig.Kind, p.Phase, domain.CodeTerminal)
	}
	if err := requirePayload(sig); err != nil {
		return out, err
	}

	var err error
	switch sig.Kind {
	case domain.SignalAddPhoto:
		err = addPhoto(p, sig)
	case domain.SignalRemovePhoto:
		err = removePhoto(p, sig)
	case domain.SignalConfirmPhotos:
		err = confirmPhotos(p, sig)
	case domain.SignalSubmitScan:
		err = submitScan(p, sig)
	case domain.SignalSkipScan:
		err = skipScan(p, sig)
	case domain.SignalIntakeMessage:
		err = intakeMessage(p, sig)
	case domain.SignalSubmitBrief, domain.SignalSkipIntake:
		err = completeIntake(p, sig)
	case domain.SignalSelectOption:
		err = selectOption(p, sig)
	case domain.SignalSubmitAnnotation, domain.SignalSubmitFeedback:
		err = enqueueAction(p, sig)
	case domain.SignalApprove:
		err = approve(p, sig)
	case domain.SignalRetry:
		err = retry(p, sig)
	case domain.SignalStartOver:
		err = startOver(p, sig)
	case domain.SignalCancel:
		err = cancel(p, sig)
	case domain.SignalClaimStreaming:
		err = claimStreaming(p, sig)
	case domain.SignalDeliverStreamedResult:
		err = deliverStreamed(p, sig)
	default:
		err = domain.Reject(sig.Kind, p.Phase, domain.CodeUnknownSignal)
	}
	if err != nil {
		return out, err
	}

	p.UpdatedAt = sig.At
	out.To = p.Phase
	out.Purge = p.Phase == domain.PhaseCancelled
	return out, nil
}

func requirePayload(sig domain.Signal) error {
	switch sig.Kind {
	case domain.SignalAddPhoto:
		if sig.Photo == nil {
			return domain.Invalid("photo", "is required")
		}
	case domain.SignalSubmitScan:
		if sig.Scan == nil {
			return domain.Invalid("scan", "is required")
		}
	case domain.SignalSubmitAnnotation, domain.SignalSubmitFeedback:
		if sig.Action == nil {
			return domain.Invalid("action", "is required")
		}
	case domain.SignalDeliverStreamedResult:
		if sig.Streamed == nil {
			return domain.Invalid("result", "is required")
		}
	}
	return nil
}

// enter moves p into next. Entering a phase always starts a new epoch and
// clears the error and any streaming claim.
func enter(p *domain.Project, next domain.Phase, now time.Time) {
	p.Phase = next
	p.Epoch++
	p.Error = nil
	p.Streaming = false
	if next == domain.PhaseCompleted {
		t := now
		p.CompletedAt = &t
	}
}

func inPhase(p *domain.Project, phases ...domain.Phase) bool {
	for _, ph := range phases {
		if p.Phase == ph {
			return true
		}
	}
	return false
}

func addPhoto(p *domain.Project, sig domain.Signal) error {
	if !inPhase(p, domain.PhasePhotos, domain.PhaseScan) {
		return domain.Reject(sig.Kind, p.Phase, domain.CodeWrongPhase)
	}
	for _, ph := range p.Photos {
		if ph.ID == sig.Photo.ID {
			return nil
		}
	}
	if len(p.Photos) >= domain.MaxPhotos {
		return domain.Reject(sig.Kind, p.Phase, domain.CodePhotoLimit)
	}
	if sig.Photo.Kind == domain.PhotoKindInspiration && p.InspirationPhotoCount() >= domain.MaxInspirationPhotos {
		return domain.Reject(sig.Kind, p.Phase, domain.CodePhotoLimit)
	}

	photo := *sig.Photo
	photo.AddedAt = sig.At
	p.Photos = append(p.Photos, photo)
	return nil
}

func removePhoto(p *domain.Project, sig domain.Signal) error {
	if !inPhase(p, domain.PhasePhotos, domain.PhaseScan) {
		return domain.Reject(sig.Kind, p.Phase, domain.CodeWrongPhase)
	}
	idx := -1
	for i, ph := range p.Photos {
		if ph.ID == sig.PhotoID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.Reject(sig.Kind, p.Phase, domain.CodeUnknownPhoto)
	}
	// Once confirmed, the room photo set may not drop below the minimum.
	if p.Phase == domain.PhaseScan && p.Photos[idx].Kind == domain.PhotoKindRoom &&
		p.RoomPhotoCount() <= domain.MinRoomPhotos {
		return domain.Reject(sig.Kind, p.Phase, domain.CodeNotEnoughPhotos)
	}

	p.Photos = append(p.Photos[:idx:idx], p.Photos[idx+1:]...)
	return nil
}

func confirmPhotos(p *domain.Project, sig domain.Signal) error {
	if p.Phase != domain.PhasePhotos {
		return domain.Reject(sig.Kind, p.Phase, domain.CodeWrongPhase)
	}
	if p.RoomPhotoCount() < domain.MinRoomPhotos {
		return domain.Reject(sig.Kind, p.Phase, domain.CodeNotEnoughPhotos)
	}
	enter(p, domain.PhaseScan, sig.At)
	return nil
}

func submitScan(p *domain.Project, sig domain.Signal) error {
	if p.Phase != domain.PhaseScan {
		return domain.Reject(sig.Kind, p.Phase, domain.CodeWrongPhase)
	}
	if p.ScanData != nil {
		return domain.Reject(sig.Kind, p.Phase, domain.CodeScanAlreadySet)
	}
	scan := *sig.Scan
	p.ScanData = &scan
	enter(p, domain.PhaseAnalyzing, sig.At)
	return nil
}

func skipScan(p *domain.Project, sig domain.Signal) error {
	if p.Phase != domain.PhaseScan {
		return domain.Reject(sig.Kind, p.Phase, domain.CodeWrongPhase)
	}
	enter(p, domain.PhaseAnalyzing, sig.At)
	return nil
}

func intakeMessage(p *domain.Project, sig domain.Signal) error {
	if p.Phase != domain.PhaseIntake {
		return domain.Reject(sig.Kind, p.Phase, domain.CodeWrongPhase)
	}
	if p.ConversationContext != nil && p.ConversationContext.PendingMessage != "" {
		return domain.Reject(sig.Kind, p.Phase, domain.CodeBusy)
	}
	if p.ConversationContext == nil {
		p.ConversationContext = &domain.ConversationContext{}
	}
	p.ConversationContext.PendingMessage = sig.Message
	p.Error = nil
	return nil
}

func completeIntake(p *domain.Project, sig domain.Signal) error {
	if p.Phase != domain.PhaseIntake {
		return domain.Reject(sig.Kind, p.Phase, domain.CodeWrongPhase)
	}
	p.DesignBrief = sig.Brief.Clone()
	if p.ConversationContext != nil {
		p.ConversationContext.PendingMessage = ""
	}
	enter(p, domain.PhaseGeneration, sig.At)
	return nil
}

func selectOption(p *domain.Project, sig domain.Signal) error {
	if p.Phase != domain.PhaseSelection {
		return domain.Reject(sig.Kind, p.Phase, domain.CodeWrongPhase)
	}
	if len(p.GeneratedOptions) != 2 || sig.OptionIndex < 0 || sig.OptionIndex >= len(p.GeneratedOptions) {
		return domain.Reject(sig.Kind, p.Phase, domain.CodeBadOptionIndex)
	}
	idx := sig.OptionIndex
	p.SelectedOptionIndex = &idx
	p.CurrentImage = p.GeneratedOptions[idx].ImageRef
	enter(p, domain.PhaseIteration, sig.At)
	return nil
}

func approve(p *domain.Project, sig domain.Signal) error {
	if !inPhase(p, domain.PhaseIteration, domain.PhaseApproval) {
		return domain.Reject(sig.Kind, p.Phase, domain.CodeWrongPhase)
	}
	p.Approved = true
	clearQueue(p)
	enter(p, domain.PhaseShopping, sig.At)
	return nil
}

func retry(p *domain.Project, sig domain.Signal) error {
	next, ok := p.Phase.RetryPhase()
	if !ok {
		return domain.Reject(sig.Kind, p.Phase, domain.CodeWrongPhase)
	}
	if p.Error != nil && !p.Error.Retryable {
		return domain.Reject(sig.Kind, p.Phase, domain.CodeNotRetryable)
	}
	enter(p, next, sig.At)
	return nil
}

func startOver(p *domain.Project, sig domain.Signal) error {
	if !p.Phase.Restartable() {
		return domain.Reject(sig.Kind, p.Phase, domain.CodeWrongPhase)
	}
	p.DesignBrief = nil
	p.ConversationContext = nil
	p.GeneratedOptions = nil
	p.SelectedOptionIndex = nil
	p.CurrentImage = ""
	p.RevisionHistory = nil
	p.IterationCount = 0
	p.Approved = false
	p.ShoppingList = nil
	clearQueue(p)
	enter(p, domain.PhaseIntake, sig.At)
	return nil
}

func cancel(p *domain.Project, sig domain.Signal) error {
	p.Cancelled = true
	clearQueue(p)
	if p.ConversationContext != nil {
		p.ConversationContext.PendingMessage = ""
	}
	enter(p, domain.PhaseCancelled, sig.At)
	return nil
}

func claimStreaming(p *domain.Project, sig domain.Signal) error {
	if !inPhase(p, domain.PhaseGeneration, domain.PhaseShopping) {
		return domain.Reject(sig.Kind, p.Phase, domain.CodeWrongPhase)
	}
	if p.Streaming {
		return domain.Reject(sig.Kind, p.Phase, domain.CodeAlreadyClaimed)
	}
	p.Streaming = true
	// Any call already in flight now belongs to an older epoch.
	p.Epoch++
	return nil
}

func deliverStreamed(p *domain.Project, sig domain.Signal) error {
	if !inPhase(p, domain.PhaseGeneration, domain.PhaseShopping) {
		return domain.Reject(sig.Kind, p.Phase, domain.CodeWrongPhase)
	}
	if !p.Streaming {
		return domain.Reject(sig.Kind, p.Phase, domain.CodeNotStreaming)
	}

	r := Result{Epoch: p.Epoch, Err: sig.Streamed.Error}
	switch p.Phase {
	case domain.PhaseGeneration:
		if sig.Streamed.Shopping != nil {
			return domain.Reject(sig.Kind, p.Phase, domain.CodeStreamMismatch)
		}
		r.Kind = domain.ActivityGeneration
		r.Generation = sig.Streamed.Generation
	case domain.PhaseShopping:
		if sig.Streamed.Generation != nil {
			return domain.Reject(sig.Kind, p.Phase, domain.CodeStreamMismatch)
		}
		r.Kind = domain.ActivityShopping
		r.Shopping = sig.Streamed.Shopping
	}
	if r.Err != nil {
		e := *r.Err
		e.Activity = r.Kind
		r.Err = &e
	}
	ApplyResult(p, r, sig.At)
	return nil
}

// Abandon ends a project whose bounded wait expired.
func Abandon(p *domain.Project, now time.Time) Outcome {
	out := Outcome{From: p.Phase}
	clearQueue(p)
	if p.ConversationContext != nil {
		p.ConversationContext.PendingMessage = ""
	}
	enter(p, domain.PhaseAbandoned, now)
	p.UpdatedAt = now
	out.To = p.Phase
	out.Purge = true
	return out
}
