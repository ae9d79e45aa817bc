package engine_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/roomcraft/roomcraft-backend/internal/redesign/domain"
	"github.com/roomcraft/roomcraft-backend/internal/redesign/engine"
)

// fakeClock only moves when Advance is called.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) engine.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	if d <= 0 {
		t.fired = true
		go f()
		return t
	}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []func()
	pending := c.timers[:0]
	for _, t := range c.timers {
		switch {
		case t.stopped || t.fired:
		case !t.at.After(c.now):
			t.fired = true
			due = append(due, t.f)
		default:
			pending = append(pending, t)
		}
	}
	c.timers = pending
	c.mu.Unlock()

	for _, f := range due {
		go f()
	}
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// fakeActivities succeeds unless told otherwise.
type fakeActivities struct {
	mu sync.Mutex

	gate        chan struct{} // when set, Generate blocks until it is closed
	genCalls    int
	genFailures int // leading Generate calls that fail
	genError    *domain.CollaboratorError

	editGate  chan struct{}
	editCalls []string
	failEdit  map[string]int // action id -> remaining failures

	intakeDone   bool
	shopCalls    int
	shopFailures int // leading Shop calls that fail
	purges       map[string]int
}

func newFakeActivities() *fakeActivities {
	return &fakeActivities{
		failEdit: make(map[string]int),
		purges:   make(map[string]int),
	}
}

func (f *fakeActivities) Analyze(ctx context.Context, in domain.AnalysisInput) (domain.AnalysisOutput, error) {
	return domain.AnalysisOutput{Analysis: domain.RoomAnalysis{Summary: "bright living room", RoomType: "living room"}}, nil
}

func (f *fakeActivities) Intake(ctx context.Context, in domain.IntakeInput) (domain.IntakeOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.IntakeOutput{
		AgentMessage: "What mood are you after?",
		PartialBrief: &domain.DesignBrief{RoomType: "living room", PainPoints: []string{in.Message}},
		Done:         f.intakeDone,
	}, nil
}

func (f *fakeActivities) Generate(ctx context.Context, in domain.GenerationInput) (domain.GenerationOutput, error) {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.GenerationOutput{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.genCalls++
	if f.genCalls <= f.genFailures {
		err := f.genError
		if err == nil {
			err = &domain.CollaboratorError{Kind: domain.ErrorKindRateLimited, Message: "slow down", Retryable: true, StatusCode: 429}
		}
		return domain.GenerationOutput{}, err
	}
	caption := fmt.Sprintf("call-%d", f.genCalls)
	return domain.GenerationOutput{Options: []domain.GeneratedOption{
		{ImageRef: "gen/a.png", Caption: caption},
		{ImageRef: "gen/b.png", Caption: caption},
	}}, nil
}

func (f *fakeActivities) Edit(ctx context.Context, in domain.EditInput) (domain.EditOutput, error) {
	f.mu.Lock()
	gate := f.editGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.EditOutput{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.editCalls = append(f.editCalls, in.Action.ID)
	if f.failEdit[in.Action.ID] > 0 {
		f.failEdit[in.Action.ID]--
		return domain.EditOutput{}, &domain.CollaboratorError{Kind: domain.ErrorKindTransient, Message: "upstream 503", Retryable: true, StatusCode: 503}
	}
	return domain.EditOutput{ImageRef: "edit/" + in.Action.ID + ".png"}, nil
}

func (f *fakeActivities) Shop(ctx context.Context, in domain.ShoppingInput) (domain.ShoppingOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shopCalls++
	if f.shopCalls <= f.shopFailures {
		return domain.ShoppingOutput{}, &domain.CollaboratorError{Kind: domain.ErrorKindTransient, Message: "catalog 503", Retryable: true, StatusCode: 503}
	}
	return domain.ShoppingOutput{List: domain.ShoppingList{
		Items:     []domain.ProductMatch{{CategoryGroup: "lighting", ProductName: "Arc lamp", Retailer: "Lumen", Price: 89, ConfidenceScore: 0.8}},
		TotalCost: 89,
	}}, nil
}

func (f *fakeActivities) Purge(ctx context.Context, projectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purges[projectID]++
	return nil
}

func (f *fakeActivities) purgeCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.purges[id]
}

func (f *fakeActivities) generateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.genCalls
}

func (f *fakeActivities) setGate(ch chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = ch
}

func (f *fakeActivities) editCallIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.editCalls...)
}

func (f *fakeActivities) shopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shopCalls
}
