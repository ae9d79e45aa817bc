// Package engine runs one actor per project on top of the pure state machine.
// Actors persist every change through the Store, call collaborators through
// the retry/error policy and supervise bounded waits with timers.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/roomcraft/roomcraft-backend/internal/redesign/domain"
	"github.com/roomcraft/roomcraft-backend/internal/redesign/machine"
)

// Config holds the supervisor's durations.
type Config struct {
	AbandonAfter      time.Duration
	CompletedGrace    time.Duration
	TerminalRetention time.Duration
	AnalysisTimeout   time.Duration
	PurgeTimeout      time.Duration
}

// DefaultConfig returns the production durations.
func DefaultConfig() Config {
	return Config{
		AbandonAfter:      48 * time.Hour,
		CompletedGrace:    24 * time.Hour,
		TerminalRetention: time.Hour,
		AnalysisTimeout:   90 * time.Second,
		PurgeTimeout:      30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.AbandonAfter <= 0 {
		c.AbandonAfter = d.AbandonAfter
	}
	if c.CompletedGrace <= 0 {
		c.CompletedGrace = d.CompletedGrace
	}
	if c.TerminalRetention <= 0 {
		c.TerminalRetention = d.TerminalRetention
	}
	if c.AnalysisTimeout <= 0 {
		c.AnalysisTimeout = d.AnalysisTimeout
	}
	if c.PurgeTimeout <= 0 {
		c.PurgeTimeout = d.PurgeTimeout
	}
	return c
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithPollInterval sets how often Watch polls stores that cannot notify.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) { e.pollInterval = d }
}

// Engine owns the project actors.
type Engine struct {
	store        Store
	activities   Activities
	cfg          Config
	clock        Clock
	pollInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	actors  map[string]*actor
	stopped bool
}

// New creates an engine. Call Start to recover persisted projects.
func New(store Store, activities Activities, cfg Config, opts ...Option) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		store:        store,
		activities:   activities,
		cfg:          cfg.withDefaults(),
		clock:        systemClock{},
		pollInterval: 2 * time.Second,
		ctx:          ctx,
		cancel:       cancel,
		actors:       make(map[string]*actor),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start loads every stored project so that waits are re-armed (expired ones
// fire immediately), interrupted purges finish and required activities run.
func (e *Engine) Start(ctx context.Context) error {
	ids, err := e.store.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	recovered := 0
	for _, id := range ids {
		if _, err := e.load(ctx, id); err != nil {
			if !errors.Is(err, domain.ErrProjectNotFound) {
				logErrorf(id, "engine.recover", "error=%v", err)
			}
			continue
		}
		recovered++
	}
	log.Printf("[info] operation=engine.start recovered=%d", recovered)
	return nil
}

// Stop ends all actors. In-flight activity results are dropped; they are
// re-run on the next Start.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Create stores a new project in the photos phase and starts its wait.
func (e *Engine) Create(ctx context.Context, id string) (*domain.Project, error) {
	now := e.clock.Now()
	p := &domain.Project{
		ID:        id,
		Phase:     domain.PhasePhotos,
		CreatedAt: now,
		UpdatedAt: now,
	}
	e.supervise(p, machine.Outcome{To: p.Phase, UserActivity: true}, now)

	if err := e.store.Create(ctx, p); err != nil {
		return nil, err
	}
	stored, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := e.spawn(stored); err != nil {
		return nil, err
	}
	logInfof(id, "engine.create", "phase=%s", p.Phase)
	return stored.Clone(), nil
}

// Signal delivers sig to the project and waits until it has been applied or
// rejected. A rejection is a *domain.RejectionError.
func (e *Engine) Signal(ctx context.Context, id string, sig domain.Signal) error {
	return e.deliver(ctx, id, event{kind: evSignal, signal: sig})
}

// Query returns the committed state of the project. It never waits on an
// activity. A loaded actor whose record has been deleted elsewhere is dropped.
func (e *Engine) Query(ctx context.Context, id string) (*domain.Project, error) {
	p, err := e.store.Get(ctx, id)
	if errors.Is(err, domain.ErrProjectNotFound) {
		e.evict(id)
	}
	return p, err
}

// Retire purges and deletes a project immediately, whatever its phase. A
// loaded actor does the work itself and stops; otherwise the record is
// retired without loading it, so no activity is started for it.
func (e *Engine) Retire(ctx context.Context, id string) error {
	e.mu.Lock()
	_, loaded := e.actors[id]
	stopped := e.stopped
	e.mu.Unlock()
	if stopped {
		return domain.ErrEngineStopped
	}
	if loaded {
		return e.deliver(ctx, id, event{kind: evRetire})
	}

	p, err := e.store.Get(ctx, id)
	if err != nil {
		return err
	}
	return e.retireRecord(ctx, p)
}

// Sweep wakes every project whose deadline has passed. Loaded actors re-check
// their timer; unloaded projects are loaded, which fires the expired wait.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	ids, err := e.store.DueDeadlines(ctx, e.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("due deadlines: %w", err)
	}
	for _, id := range ids {
		e.mu.Lock()
		a, ok := e.actors[id]
		e.mu.Unlock()
		if ok {
			a.post(event{kind: evSweep})
			continue
		}
		if _, err := e.load(ctx, id); err != nil && !errors.Is(err, domain.ErrProjectNotFound) {
			logErrorf(id, "engine.sweep", "error=%v", err)
		}
	}
	return len(ids), nil
}

// Watch returns a channel that receives a value after changes to the
// project. Stores that publish changes are used directly; otherwise the
// channel ticks every poll interval. It is closed when ctx ends.
func (e *Engine) Watch(ctx context.Context, id string) (<-chan struct{}, error) {
	if n, ok := e.store.(Notifier); ok {
		return n.Subscribe(ctx, id)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(e.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()
	return ch, nil
}

// Ping checks the store.
func (e *Engine) Ping(ctx context.Context) error {
	return e.store.Ping(ctx)
}

func (e *Engine) deliver(ctx context.Context, id string, ev event) error {
	ev.reply = make(chan error, 1)

	// A second attempt covers an actor that retired between lookup and send.
	for attempt := 0; attempt < 2; attempt++ {
		a, err := e.load(ctx, id)
		if err != nil {
			return err
		}

		select {
		case a.mailbox <- ev:
		case <-a.done:
			continue
		case <-ctx.Done():
			return ctx.Err()
		}

		select {
		case err := <-ev.reply:
			return err
		case <-a.done:
			select {
			case err := <-ev.reply:
				return err
			default:
				return e.goneErr()
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return e.goneErr()
}

func (e *Engine) goneErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return domain.ErrEngineStopped
	}
	return domain.ErrProjectNotFound
}

func (e *Engine) load(ctx context.Context, id string) (*actor, error) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return nil, domain.ErrEngineStopped
	}
	if a, ok := e.actors[id]; ok {
		e.mu.Unlock()
		return a, nil
	}
	e.mu.Unlock()

	p, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.spawn(p)
}

func (e *Engine) spawn(p *domain.Project) (*actor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return nil, domain.ErrEngineStopped
	}
	if a, ok := e.actors[p.ID]; ok {
		return a, nil
	}
	a := newActor(e, p)
	e.actors[p.ID] = a
	e.wg.Add(1)
	go a.run()
	return a, nil
}

func (e *Engine) remove(a *actor) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cur, ok := e.actors[a.id]; ok && cur == a {
		delete(e.actors, a.id)
	}
}

// evict asks a loaded actor to stop once it sees its record is gone.
func (e *Engine) evict(id string) {
	e.mu.Lock()
	a, ok := e.actors[id]
	e.mu.Unlock()
	if ok {
		go a.post(event{kind: evGone})
	}
}

// retireRecord purges a project that was not purged yet and deletes it.
func (e *Engine) retireRecord(ctx context.Context, p *domain.Project) error {
	if p.PurgedAt == nil {
		_ = e.purge(p.ID)
	}
	if err := e.store.Delete(ctx, p.ID); err != nil && !errors.Is(err, domain.ErrProjectNotFound) {
		logErrorf(p.ID, "supervisor.retire", "delete failed error=%v", err)
		return err
	}
	recordRetired()
	logInfof(p.ID, "supervisor.retire", "phase=%s", p.Phase)
	return nil
}
