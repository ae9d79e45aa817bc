// Package service is the signal/query gateway in front of the project engine.
// It validates client payloads, assigns ids and forwards signals.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/roomcraft/roomcraft-backend/internal/redesign/domain"
)

// ErrIntakeUnavailable is returned for intake messages when no agent is configured.
var ErrIntakeUnavailable = errors.New("intake agent unavailable")

// Engine is the part of the project engine the gateway drives.
type Engine interface {
	Create(ctx context.Context, id string) (*domain.Project, error)
	Signal(ctx context.Context, id string, sig domain.Signal) error
	Query(ctx context.Context, id string) (*domain.Project, error)
	Watch(ctx context.Context, id string) (<-chan struct{}, error)
}

// Gateway handles client operations on projects
type Gateway struct {
	engine        Engine
	intakeEnabled bool
}

// NewGateway creates a new gateway
func NewGateway(engine Engine, intakeEnabled bool) *Gateway {
	return &Gateway{engine: engine, intakeEnabled: intakeEnabled}
}

// NewProjectID returns a fresh project id.
func NewProjectID() string {
	return "prj_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// CreateProject starts a project in the photos phase.
func (g *Gateway) CreateProject(ctx context.Context) (*domain.Project, error) {
	recordCall()
	logger := NewLogger(ctx)
	id := NewProjectID()

	p, err := g.engine.Create(ctx, id)
	if err != nil {
		recordError()
		logger.LogError("create_project", err)
		return nil, err
	}
	recordProjectCreated()
	logger.LogInfof("create_project", "project_id=%s", id)
	return p, nil
}

// GetProject returns the current snapshot.
func (g *Gateway) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	recordCall()
	return g.engine.Query(ctx, id)
}

// Watch notifies after every committed change of the project.
func (g *Gateway) Watch(ctx context.Context, id string) (<-chan struct{}, error) {
	return g.engine.Watch(ctx, id)
}

// AddPhoto registers an uploaded photo and returns its id.
func (g *Gateway) AddPhoto(ctx context.Context, id string, req PhotoRequest) (string, error) {
	if err := g.invalid(ctx, "add_photo", id, validatePhoto(req)); err != nil {
		return "", err
	}
	photo := &domain.Photo{
		ID:         uuid.NewString(),
		Kind:       req.Kind,
		StorageRef: strings.TrimSpace(req.StorageRef),
		Note:       strings.TrimSpace(req.Note),
	}
	if err := g.send(ctx, id, domain.Signal{Kind: domain.SignalAddPhoto, Photo: photo}); err != nil {
		return "", err
	}
	return photo.ID, nil
}

func (g *Gateway) RemovePhoto(ctx context.Context, id, photoID string) error {
	if photoID == "" {
		return g.invalid(ctx, "remove_photo", id, domain.Invalid("photo_id", "is required"))
	}
	return g.send(ctx, id, domain.Signal{Kind: domain.SignalRemovePhoto, PhotoID: photoID})
}

func (g *Gateway) ConfirmPhotos(ctx context.Context, id string) error {
	return g.send(ctx, id, domain.Signal{Kind: domain.SignalConfirmPhotos})
}

func (g *Gateway) SubmitScan(ctx context.Context, id string, scan *domain.ScanData) error {
	if err := g.invalid(ctx, "submit_scan", id, validateScan(scan)); err != nil {
		return err
	}
	return g.send(ctx, id, domain.Signal{Kind: domain.SignalSubmitScan, Scan: scan})
}

func (g *Gateway) SkipScan(ctx context.Context, id string) error {
	return g.send(ctx, id, domain.Signal{Kind: domain.SignalSkipScan})
}

// SendIntakeMessage queues one user message for the intake agent. The reply
// shows up in the project's conversation context.
func (g *Gateway) SendIntakeMessage(ctx context.Context, id, message string) error {
	msg, err := validateIntakeMessage(message)
	if err := g.invalid(ctx, "intake_message", id, err); err != nil {
		return err
	}
	if !g.intakeEnabled {
		return ErrIntakeUnavailable
	}
	return g.send(ctx, id, domain.Signal{Kind: domain.SignalIntakeMessage, Message: msg})
}

// SubmitBrief finishes intake with a client-built brief, which may be nil.
func (g *Gateway) SubmitBrief(ctx context.Context, id string, brief *domain.DesignBrief) error {
	return g.send(ctx, id, domain.Signal{Kind: domain.SignalSubmitBrief, Brief: brief})
}

func (g *Gateway) SkipIntake(ctx context.Context, id string) error {
	return g.send(ctx, id, domain.Signal{Kind: domain.SignalSkipIntake})
}

func (g *Gateway) SelectOption(ctx context.Context, id string, index int) error {
	if err := g.invalid(ctx, "select_option", id, validateOptionIndex(index)); err != nil {
		return err
	}
	return g.send(ctx, id, domain.Signal{Kind: domain.SignalSelectOption, OptionIndex: index})
}

// SubmitAnnotation queues a region edit and returns the action id, which
// becomes the revision id once applied.
func (g *Gateway) SubmitAnnotation(ctx context.Context, id string, regions []domain.AnnotationRegion) (string, error) {
	clean, err := validateAnnotation(regions)
	if err := g.invalid(ctx, "submit_annotation", id, err); err != nil {
		return "", err
	}
	action := &domain.EditAction{ID: uuid.NewString(), Kind: domain.EditKindAnnotation, Regions: clean}
	if err := g.send(ctx, id, domain.Signal{Kind: domain.SignalSubmitAnnotation, Action: action}); err != nil {
		return "", err
	}
	return action.ID, nil
}

// SubmitFeedback queues a text edit and returns the action id.
func (g *Gateway) SubmitFeedback(ctx context.Context, id, feedback string) (string, error) {
	text, err := validateFeedback(feedback)
	if err := g.invalid(ctx, "submit_feedback", id, err); err != nil {
		return "", err
	}
	action := &domain.EditAction{ID: uuid.NewString(), Kind: domain.EditKindFeedback, Feedback: text}
	if err := g.send(ctx, id, domain.Signal{Kind: domain.SignalSubmitFeedback, Action: action}); err != nil {
		return "", err
	}
	return action.ID, nil
}

func (g *Gateway) Approve(ctx context.Context, id string) error {
	return g.send(ctx, id, domain.Signal{Kind: domain.SignalApprove})
}

func (g *Gateway) Retry(ctx context.Context, id string) error {
	return g.send(ctx, id, domain.Signal{Kind: domain.SignalRetry})
}

func (g *Gateway) StartOver(ctx context.Context, id string) error {
	return g.send(ctx, id, domain.Signal{Kind: domain.SignalStartOver})
}

func (g *Gateway) Cancel(ctx context.Context, id string) error {
	return g.send(ctx, id, domain.Signal{Kind: domain.SignalCancel})
}

func (g *Gateway) ClaimStreaming(ctx context.Context, id string) error {
	return g.send(ctx, id, domain.Signal{Kind: domain.SignalClaimStreaming})
}

func (g *Gateway) DeliverStreamedResult(ctx context.Context, id string, res *domain.StreamedResult) error {
	if err := g.invalid(ctx, "deliver_streamed_result", id, validateStreamed(res)); err != nil {
		return err
	}
	return g.send(ctx, id, domain.Signal{Kind: domain.SignalDeliverStreamedResult, Streamed: res})
}

// invalid records and logs a validation failure. It returns err unchanged.
func (g *Gateway) invalid(ctx context.Context, operation, id string, err error) error {
	if err == nil {
		return nil
	}
	recordCall()
	recordValidationFailure()
	NewLogger(ctx).LogWarnf(operation, "project_id=%s invalid payload error=%v", id, err)
	return err
}

func (g *Gateway) send(ctx context.Context, id string, sig domain.Signal) error {
	recordCall()
	logger := NewLogger(ctx)
	operation := string(sig.Kind)

	err := g.engine.Signal(ctx, id, sig)
	switch {
	case err == nil:
		logger.LogInfof(operation, "project_id=%s accepted", id)
	case errors.Is(err, domain.ErrSignalRejected):
		recordRejection()
		logger.LogInfof(operation, "project_id=%s rejected error=%v", id, err)
	case errors.Is(err, domain.ErrProjectNotFound):
		logger.LogInfof(operation, "project_id=%s not found", id)
	default:
		recordError()
		logger.LogError(operation, err)
	}
	return err
}
