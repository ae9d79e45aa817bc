package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/roomcraft/roomcraft-backend/internal/redesign/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	mu      sync.Mutex
	created []string
	signals []domain.Signal
	reject  string // rejection code for every signal
	err     error
}

func (f *fakeEngine) Create(ctx context.Context, id string) (*domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, id)
	return &domain.Project{ID: id, Phase: domain.PhasePhotos}, nil
}

func (f *fakeEngine) Signal(ctx context.Context, id string, sig domain.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.reject != "" {
		return domain.Reject(sig.Kind, domain.PhasePhotos, f.reject)
	}
	f.signals = append(f.signals, sig)
	return nil
}

func (f *fakeEngine) Query(ctx context.Context, id string) (*domain.Project, error) {
	if id == "prj_missing" {
		return nil, domain.ErrProjectNotFound
	}
	return &domain.Project{ID: id, Phase: domain.PhaseIntake}, nil
}

func (f *fakeEngine) Watch(ctx context.Context, id string) (<-chan struct{}, error) {
	ch := make(chan struct{})
	close(ch)
	return ch, nil
}

func (f *fakeEngine) last() domain.Signal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signals[len(f.signals)-1]
}

func (f *fakeEngine) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.signals)
}

func TestGateway_CreateProject(t *testing.T) {
	ResetMetrics()
	eng := &fakeEngine{}
	g := NewGateway(eng, true)

	p, err := g.CreateProject(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p.ID, "prj_"))
	assert.Len(t, p.ID, len("prj_")+32)
	assert.Equal(t, []string{p.ID}, eng.created)
	assert.Equal(t, int64(1), GetMetrics().ProjectsCreated)

	other, err := g.CreateProject(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, p.ID, other.ID)
}

func TestGateway_AddPhotoAssignsID(t *testing.T) {
	eng := &fakeEngine{}
	g := NewGateway(eng, true)

	photoID, err := g.AddPhoto(context.Background(), "prj_1", PhotoRequest{Kind: domain.PhotoKindRoom, StorageRef: " u/1.jpg ", Note: " window "})
	require.NoError(t, err)
	assert.NotEmpty(t, photoID)

	sig := eng.last()
	assert.Equal(t, domain.SignalAddPhoto, sig.Kind)
	require.NotNil(t, sig.Photo)
	assert.Equal(t, photoID, sig.Photo.ID)
	assert.Equal(t, "u/1.jpg", sig.Photo.StorageRef)
	assert.Equal(t, "window", sig.Photo.Note)
}

func TestGateway_InvalidPayloadNeverReachesEngine(t *testing.T) {
	ResetMetrics()
	eng := &fakeEngine{}
	g := NewGateway(eng, true)
	ctx := context.Background()

	_, err := g.AddPhoto(ctx, "prj_1", PhotoRequest{Kind: "poster", StorageRef: "x"})
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.True(t, errors.Is(g.SubmitScan(ctx, "prj_1", &domain.ScanData{Width: 80, Length: 3, Height: 2}), domain.ErrValidation))
	assert.True(t, errors.Is(g.SendIntakeMessage(ctx, "prj_1", ""), domain.ErrValidation))
	assert.True(t, errors.Is(g.SelectOption(ctx, "prj_1", 5), domain.ErrValidation))
	_, err = g.SubmitFeedback(ctx, "prj_1", "meh")
	assert.True(t, errors.Is(err, domain.ErrValidation))
	_, err = g.SubmitAnnotation(ctx, "prj_1", nil)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.True(t, errors.Is(g.DeliverStreamedResult(ctx, "prj_1", &domain.StreamedResult{}), domain.ErrValidation))
	assert.True(t, errors.Is(g.RemovePhoto(ctx, "prj_1", ""), domain.ErrValidation))

	assert.Zero(t, eng.count())
	assert.Equal(t, int64(8), GetMetrics().ValidationFailures)
}

func TestGateway_EditActions(t *testing.T) {
	eng := &fakeEngine{}
	g := NewGateway(eng, true)
	ctx := context.Background()

	feedbackID, err := g.SubmitFeedback(ctx, "prj_1", "  brighter walls please ")
	require.NoError(t, err)
	sig := eng.last()
	assert.Equal(t, domain.SignalSubmitFeedback, sig.Kind)
	assert.Equal(t, feedbackID, sig.Action.ID)
	assert.Equal(t, domain.EditKindFeedback, sig.Action.Kind)
	assert.Equal(t, "brighter walls please", sig.Action.Feedback)

	annotationID, err := g.SubmitAnnotation(ctx, "prj_1", []domain.AnnotationRegion{
		{RegionID: 1, CenterX: 0.4, CenterY: 0.6, Radius: 0.2, Instruction: "swap the sofa for a green one"},
	})
	require.NoError(t, err)
	assert.NotEqual(t, feedbackID, annotationID)
	sig = eng.last()
	assert.Equal(t, domain.EditKindAnnotation, sig.Action.Kind)
	assert.Len(t, sig.Action.Regions, 1)
}

func TestGateway_IntakeMessage(t *testing.T) {
	eng := &fakeEngine{}
	ctx := context.Background()

	err := NewGateway(eng, false).SendIntakeMessage(ctx, "prj_1", "hello there")
	assert.True(t, errors.Is(err, ErrIntakeUnavailable))
	assert.Zero(t, eng.count())

	require.NoError(t, NewGateway(eng, true).SendIntakeMessage(ctx, "prj_1", "  hello there "))
	assert.Equal(t, "hello there", eng.last().Message)
}

func TestGateway_ForwardsSimpleSignals(t *testing.T) {
	eng := &fakeEngine{}
	g := NewGateway(eng, true)
	ctx := context.Background()

	steps := []struct {
		call func() error
		kind domain.SignalKind
	}{
		{func() error { return g.ConfirmPhotos(ctx, "p") }, domain.SignalConfirmPhotos},
		{func() error { return g.SkipScan(ctx, "p") }, domain.SignalSkipScan},
		{func() error { return g.SkipIntake(ctx, "p") }, domain.SignalSkipIntake},
		{func() error { return g.SubmitBrief(ctx, "p", &domain.DesignBrief{RoomType: "den"}) }, domain.SignalSubmitBrief},
		{func() error { return g.SelectOption(ctx, "p", 1) }, domain.SignalSelectOption},
		{func() error { return g.Approve(ctx, "p") }, domain.SignalApprove},
		{func() error { return g.Retry(ctx, "p") }, domain.SignalRetry},
		{func() error { return g.StartOver(ctx, "p") }, domain.SignalStartOver},
		{func() error { return g.Cancel(ctx, "p") }, domain.SignalCancel},
		{func() error { return g.ClaimStreaming(ctx, "p") }, domain.SignalClaimStreaming},
		{func() error { return g.RemovePhoto(ctx, "p", "ph1") }, domain.SignalRemovePhoto},
		{func() error {
			return g.DeliverStreamedResult(ctx, "p", &domain.StreamedResult{Shopping: &domain.ShoppingOutput{}})
		}, domain.SignalDeliverStreamedResult},
		{func() error {
			return g.SubmitScan(ctx, "p", &domain.ScanData{Width: 3, Length: 4, Height: 2.5})
		}, domain.SignalSubmitScan},
	}
	for _, s := range steps {
		require.NoError(t, s.call())
		assert.Equal(t, s.kind, eng.last().Kind)
	}
	assert.Equal(t, 1, eng.signals[4].OptionIndex)
	assert.Equal(t, "ph1", eng.signals[10].PhotoID)
}

func TestGateway_RejectionsPassThrough(t *testing.T) {
	ResetMetrics()
	eng := &fakeEngine{reject: domain.CodeWrongPhase}
	g := NewGateway(eng, true)

	err := g.Approve(context.Background(), "prj_1")
	var rej *domain.RejectionError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, domain.CodeWrongPhase, rej.Code)
	assert.Equal(t, int64(1), GetMetrics().Rejections)

	eng.reject = ""
	eng.err = domain.ErrProjectNotFound
	assert.True(t, errors.Is(g.Cancel(context.Background(), "prj_1"), domain.ErrProjectNotFound))

	_, err = g.GetProject(context.Background(), "prj_missing")
	assert.True(t, errors.Is(err, domain.ErrProjectNotFound))
}
