package engine

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/roomcraft/roomcraft-backend/internal/redesign/domain"
	"github.com/roomcraft/roomcraft-backend/internal/redesign/machine"
)

type eventKind int

const (
	evSignal eventKind = iota
	evResult
	evTimer
	evSweep
	evRetire
	evGone
)

type event struct {
	kind   eventKind
	signal domain.Signal
	result machine.Result
	token  int64
	reply  chan error
}

const (
	mailboxSize = 64

	// storeRetryDelay spaces out attempts to commit after a store failure.
	storeRetryDelay = 2 * time.Second
)

// actor serialises every change to one project. Signals, activity results and
// timer firings all arrive through the mailbox and are handled one at a time.
type actor struct {
	id      string
	engine  *Engine
	mailbox chan event
	done    chan struct{}

	snapshot atomic.Pointer[domain.Project]

	// Owned by the run goroutine.
	inflight   *machine.Plan
	timer      Timer
	timerToken int64

	// gone is set once the store reports the record missing.
	gone bool
}

func newActor(e *Engine, p *domain.Project) *actor {
	a := &actor{
		id:      p.ID,
		engine:  e,
		mailbox: make(chan event, mailboxSize),
		done:    make(chan struct{}),
	}
	a.snapshot.Store(p)
	return a
}

func (a *actor) run() {
	recordActorLoaded(1)
	defer func() {
		a.stopTimer()
		a.engine.remove(a)
		recordActorLoaded(-1)
		close(a.done)
		a.engine.wg.Done()
	}()

	a.resume(a.snapshot.Load())

	for {
		select {
		case <-a.engine.ctx.Done():
			return
		case ev := <-a.mailbox:
			if a.handle(ev) {
				return
			}
		}
	}
}

// post delivers ev unless the actor or the engine has already stopped.
func (a *actor) post(ev event) {
	select {
	case a.mailbox <- ev:
	case <-a.done:
	case <-a.engine.ctx.Done():
	}
}

// handle processes one event and reports whether the actor should stop,
// either because it retired the project or because the record is gone.
func (a *actor) handle(ev event) bool {
	switch ev.kind {
	case evSignal:
		ev.reply <- a.applySignal(ev.signal)
	case evResult:
		a.applyResult(ev.result)
	case evTimer:
		if ev.token != a.timerToken {
			return false
		}
		if a.expire() {
			return true
		}
	case evSweep:
		a.armTimer(a.snapshot.Load())
	case evRetire:
		err := a.retire(a.snapshot.Load())
		ev.reply <- err
		return err == nil
	case evGone:
		_, err := a.engine.store.Get(a.engine.ctx, a.id)
		a.lost(err)
	}
	return a.gone
}

// lost reports whether err means the record was deleted by someone else, and
// marks the actor for shutdown if so.
func (a *actor) lost(err error) bool {
	if !errors.Is(err, domain.ErrProjectNotFound) {
		return false
	}
	if !a.gone {
		logWarnf(a.id, "engine.actor", "record deleted elsewhere, stopping")
	}
	a.gone = true
	return true
}

// resume restores supervision for a freshly loaded project: finish an
// interrupted purge, re-arm the wait and restart any required activity.
func (a *actor) resume(p *domain.Project) {
	if (p.Phase == domain.PhaseCancelled || p.Phase == domain.PhaseAbandoned) && p.PurgedAt == nil {
		p = a.purgeTerminal(p)
	}
	a.armTimer(p)
	a.drive(p)
}

func (a *actor) applySignal(sig domain.Signal) error {
	e := a.engine
	sig.At = e.clock.Now()

	var out machine.Outcome
	updated, err := e.store.Update(e.ctx, a.id, func(p *domain.Project) error {
		o, err := machine.Apply(p, sig)
		if err != nil {
			return err
		}
		e.supervise(p, o, sig.At)
		out = o
		return nil
	})
	recordSignal(err)
	if err != nil {
		if a.lost(err) {
			return err
		}
		if errors.Is(err, domain.ErrSignalRejected) || errors.Is(err, domain.ErrValidation) {
			logInfof(a.id, "signal."+string(sig.Kind), "rejected error=%v", err)
		} else {
			logErrorf(a.id, "signal."+string(sig.Kind), "commit failed error=%v", err)
		}
		return err
	}

	if out.PhaseChanged() {
		logInfof(a.id, "signal."+string(sig.Kind), "phase=%s->%s", out.From, out.To)
	}
	if out.To == domain.PhaseCancelled {
		recordCancellation()
	}
	a.commit(updated, out)
	return nil
}

func (a *actor) applyResult(r machine.Result) {
	e := a.engine
	now := e.clock.Now()

	var out machine.Outcome
	updated, err := e.store.Update(e.ctx, a.id, func(p *domain.Project) error {
		o, ok := machine.ApplyResult(p, r, now)
		if !ok {
			return domain.ErrUnchanged
		}
		e.supervise(p, o, now)
		out = o
		return nil
	})

	switch {
	case errors.Is(err, domain.ErrUnchanged):
		a.inflight = nil
		recordStaleResult()
		logInfof(a.id, "activity."+string(r.Kind), "discarded stale result epoch=%d", r.Epoch)
		a.drive(a.snapshot.Load())
	case a.lost(err):
		a.inflight = nil
	case err != nil:
		// Keep the slot so no duplicate call starts; try the commit again.
		logErrorf(a.id, "activity."+string(r.Kind), "commit failed error=%v", err)
		e.clock.AfterFunc(storeRetryDelay, func() {
			a.post(event{kind: evResult, result: r})
		})
	default:
		a.inflight = nil
		if out.PhaseChanged() {
			logInfof(a.id, "activity."+string(r.Kind), "phase=%s->%s", out.From, out.To)
		}
		a.commit(updated, out)
	}
}

// commit publishes a written project and reacts to it.
func (a *actor) commit(p *domain.Project, out machine.Outcome) {
	a.snapshot.Store(p)
	a.armTimer(p)
	if out.Purge {
		p = a.purgeTerminal(p)
	}
	a.drive(p)
}

// drive starts the activity the project is waiting on, unless a call is
// already in flight. A call started under an older epoch must come back
// before the next one starts.
func (a *actor) drive(p *domain.Project) {
	if a.inflight != nil || p == nil {
		return
	}
	plan := machine.NextPlan(p)
	if plan == nil {
		return
	}
	a.inflight = plan
	logInfof(a.id, "activity."+string(plan.Kind), "started epoch=%d action=%s", plan.Epoch, plan.ActionID)

	e := a.engine
	go func() {
		r := e.execute(e.ctx, a.id, plan)
		a.post(event{kind: evResult, result: r})
	}()
}

// purgeTerminal runs the purge for a cancelled or abandoned project, then
// records it and arms the retention deadline.
func (a *actor) purgeTerminal(p *domain.Project) *domain.Project {
	e := a.engine
	_ = e.purge(a.id)

	now := e.clock.Now()
	updated, err := e.store.Update(e.ctx, a.id, func(cur *domain.Project) error {
		if cur.PurgedAt != nil {
			return domain.ErrUnchanged
		}
		t := now
		cur.PurgedAt = &t
		arm(cur, now.Add(e.cfg.TerminalRetention))
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrUnchanged) {
			logErrorf(a.id, "supervisor.purge", "record purge failed error=%v", err)
		}
		return p
	}
	a.snapshot.Store(updated)
	a.armTimer(updated)
	return updated
}

// expire handles a fired wait deadline and reports whether the project was
// retired.
func (a *actor) expire() bool {
	e := a.engine
	p := a.snapshot.Load()
	now := e.clock.Now()

	if p.WaitDeadline == nil {
		return false
	}
	if now.Before(*p.WaitDeadline) {
		a.armTimer(p)
		return false
	}

	if p.Phase.Terminal() {
		if err := a.retire(p); err != nil {
			a.retryTimer(time.Minute)
			return false
		}
		return true
	}
	if !p.Phase.AwaitsUser() {
		return false
	}

	token := p.WaitToken
	var out machine.Outcome
	updated, err := e.store.Update(e.ctx, a.id, func(cur *domain.Project) error {
		// A signal committed before the timer fired re-armed the wait.
		if cur.WaitToken != token || !cur.Phase.AwaitsUser() {
			return domain.ErrUnchanged
		}
		out = machine.Abandon(cur, now)
		e.supervise(cur, out, now)
		return nil
	})
	if errors.Is(err, domain.ErrUnchanged) {
		fresh, gerr := e.store.Get(e.ctx, a.id)
		if gerr == nil {
			a.snapshot.Store(fresh)
			a.armTimer(fresh)
		}
		a.lost(gerr)
		return false
	}
	if a.lost(err) {
		return false
	}
	if err != nil {
		logErrorf(a.id, "supervisor.abandon", "commit failed error=%v", err)
		a.retryTimer(storeRetryDelay)
		return false
	}

	recordAbandonment()
	logInfof(a.id, "supervisor.abandon", "phase=%s->%s", out.From, out.To)
	a.commit(updated, out)
	return false
}

// retire removes the project for good. Completed projects are purged first;
// cancelled and abandoned ones were purged when they ended.
func (a *actor) retire(p *domain.Project) error {
	return a.engine.retireRecord(a.engine.ctx, p)
}

func (a *actor) armTimer(p *domain.Project) {
	a.stopTimer()
	if p == nil || p.WaitDeadline == nil {
		return
	}
	d := p.WaitDeadline.Sub(a.engine.clock.Now())
	if d < 0 {
		d = 0
	}
	a.setTimer(d, p.WaitToken)
}

// retryTimer re-fires the current wait after d without changing its token.
func (a *actor) retryTimer(d time.Duration) {
	a.stopTimer()
	a.setTimer(d, a.timerToken)
}

func (a *actor) setTimer(d time.Duration, token int64) {
	a.timerToken = token
	a.timer = a.engine.clock.AfterFunc(d, func() {
		a.post(event{kind: evTimer, token: token})
	})
}

func (a *actor) stopTimer() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}
