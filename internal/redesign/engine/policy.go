package engine

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/roomcraft/roomcraft-backend/internal/redesign/domain"
	"github.com/roomcraft/roomcraft-backend/internal/redesign/machine"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Result is the outcome of one activity call: a value or a classified error.
type Result[T any] struct {
	Value T
	Err   *domain.ActivityError
}

// OK reports whether the call succeeded.
func (r Result[T]) OK() bool { return r.Err == nil }

var tracer = otel.Tracer("github.com/roomcraft/roomcraft-backend/internal/redesign/engine")

// invoke runs one collaborator call exactly once and classifies its failure.
// There are no automatic retries: a failed call surfaces as an error phase
// and the user decides whether to retry.
func invoke[In, Out any](ctx context.Context, projectID string, kind domain.ActivityKind, in In, fn func(context.Context, In) (Out, error)) Result[Out] {
	ctx, span := tracer.Start(ctx, "activity."+string(kind),
		trace.WithAttributes(
			attribute.String("project.id", projectID),
			attribute.String("activity.kind", string(kind)),
		),
	)
	defer span.End()

	start := time.Now()
	out, err := fn(ctx, in)
	recordActivityCall(time.Since(start), err != nil)
	if err == nil {
		return Result[Out]{Value: out}
	}

	ae := Classify(err)
	ae.Activity = kind
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(
		attribute.String("error.kind", ae.Kind),
		attribute.Bool("error.retryable", ae.Retryable),
	)
	logWarnf(projectID, "activity."+string(kind), "kind=%s retryable=%t error=%v", ae.Kind, ae.Retryable, err)
	return Result[Out]{Err: ae}
}

// Classify maps a collaborator error onto the persisted error shape.
// Collaborators that know better return *domain.CollaboratorError; anything
// else is treated as transient so the user can try again.
func Classify(err error) *domain.ActivityError {
	var ce *domain.CollaboratorError
	if errors.As(err, &ce) {
		return &domain.ActivityError{Kind: ce.Kind, Message: ce.Message, Retryable: ce.Retryable}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.ActivityError{Kind: domain.ErrorKindTimeout, Message: "collaborator timed out", Retryable: true}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &domain.ActivityError{Kind: domain.ErrorKindTimeout, Message: "collaborator timed out", Retryable: true}
	}
	return &domain.ActivityError{Kind: domain.ErrorKindUnknown, Message: err.Error(), Retryable: true}
}

// execute performs the call described by plan and tags the outcome with the
// plan's epoch and action.
func (e *Engine) execute(ctx context.Context, projectID string, plan *machine.Plan) machine.Result {
	r := machine.Result{Kind: plan.Kind, Epoch: plan.Epoch, ActionID: plan.ActionID}

	switch plan.Kind {
	case domain.ActivityAnalysis:
		actx, cancel := context.WithTimeout(ctx, e.cfg.AnalysisTimeout)
		defer cancel()
		res := invoke(actx, projectID, plan.Kind, *plan.Analysis, e.activities.Analyze)
		r.Analysis, r.Err = valueOrNil(res)
	case domain.ActivityIntake:
		res := invoke(ctx, projectID, plan.Kind, *plan.Intake, e.activities.Intake)
		r.Intake, r.Err = valueOrNil(res)
	case domain.ActivityGeneration:
		res := invoke(ctx, projectID, plan.Kind, *plan.Generation, e.activities.Generate)
		r.Generation, r.Err = valueOrNil(res)
	case domain.ActivityEdit:
		res := invoke(ctx, projectID, plan.Kind, *plan.Edit, e.activities.Edit)
		r.Edit, r.Err = valueOrNil(res)
	case domain.ActivityShopping:
		res := invoke(ctx, projectID, plan.Kind, *plan.Shopping, e.activities.Shop)
		r.Shopping, r.Err = valueOrNil(res)
	}
	return r
}

func valueOrNil[T any](r Result[T]) (*T, *domain.ActivityError) {
	if !r.OK() {
		return nil, r.Err
	}
	v := r.Value
	return &v, nil
}
