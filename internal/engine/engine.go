// Package engine orchestrates classification, debouncing, and
// persistence for the stream of incoming notification events.
package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/quelld/quell/internal/dedup"
	"github.com/quelld/quell/internal/match"
	"github.com/quelld/quell/internal/model"
	"github.com/quelld/quell/internal/rules"
	"github.com/quelld/quell/internal/service"
)

// Config holds processor tuning options.
type Config struct {
	// Now overrides the clock, for tests.
	Now            func() time.Time
	DebounceWindow time.Duration
	QueueSize      int
}

// Deps are the processor's collaborators.
type Deps struct {
	Rules       *rules.Repository
	Classifier  *match.Classifier
	Sink        service.Sink
	Blocked     service.HistoryStore
	Allowed     service.HistoryStore
	Unmonitored service.UnmonitoredStore
	Stats       service.StatsStore
	Observer    service.Observer
}

// Processor is the event processor. Events arrive one at a time on the
// delivery path; classification and cancellation happen synchronously,
// persistence is offloaded to a single sequential worker.
type Processor struct {
	deps      Deps
	actions   *ActionRegistry
	debouncer *dedup.Debouncer
	worker    *worker
	now       func() time.Time
}

// NewProcessor creates a processor with the given collaborators.
func NewProcessor(deps Deps, config Config) *Processor {
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &Processor{
		deps:      deps,
		actions:   NewActionRegistry(),
		debouncer: dedup.NewDebouncer(config.DebounceWindow),
		worker:    newWorker(config.QueueSize),
		now:       now,
	}
}

// Actions returns the processor's action registry.
func (p *Processor) Actions() *ActionRegistry {
	return p.actions
}

// Start launches the persistence worker.
func (p *Processor) Start(ctx context.Context) {
	p.worker.start(ctx)
}

// Stop drains pending persistence work and stops the worker.
func (p *Processor) Stop() {
	p.worker.stop()
}

// Run consumes events from source until the stream ends or the context
// is canceled.
func (p *Processor) Run(ctx context.Context, source service.Source) error {
	for {
		evt, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		p.Process(ctx, evt)
	}
}

// Process classifies one event and records the outcome. It never
// propagates a fault back to the delivery path: an error anywhere in
// here would otherwise disable the whole pipeline for the rest of the
// process lifetime, so everything internal degrades to a logged no-op.
func (p *Processor) Process(ctx context.Context, evt *model.Notification) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event processing panicked", "panic", r)
		}
	}()

	if evt == nil {
		return
	}
	if evt.Blank() {
		slog.Info("ignoring notification with no title and text", "package", evt.PackageName)
		return
	}

	now := p.now()

	ruleSet, err := p.deps.Rules.Rules(ctx)
	if err != nil {
		// A rule set that cannot load must not stall the stream; classify
		// against nothing and let the next event retry the load.
		slog.Error("failed to load rules, classifying with empty rule set", "error", err)
		p.deps.Rules.Invalidate()
		ruleSet = nil
	}

	decision := p.deps.Classifier.Classify(evt.PackageName, evt.Title, evt.Text, ruleSet, now)

	slog.Debug("classified notification",
		"package", evt.PackageName,
		"app", evt.Label(),
		"blocked", decision.Blocked)

	// Cancel first, before any persistence, to keep the user-visible
	// delay minimal.
	if decision.Blocked {
		if evt.WasOngoing {
			slog.Warn("blocking an ongoing notification; cancellation may not be honored",
				"package", evt.PackageName, "id", evt.ID)
		}
		if err := p.deps.Sink.Cancel(ctx, evt.ID); err != nil {
			slog.Error("failed to cancel notification", "package", evt.PackageName, "error", err)
		}
	}

	// Hit counts update on every event, duplicate or not. The decision
	// and the snapshot it was computed from are captured here; concurrent
	// rule edits are last-writer-wins.
	if matched := decision.MatchedIndexes(); len(matched) > 0 {
		for _, i := range matched {
			ruleSet[i].HitCount++
		}
		p.deps.Rules.Stage(ruleSet)
		p.worker.enqueue("save rule hits", func(jobCtx context.Context) error {
			return p.deps.Rules.Persist(jobCtx)
		})
	}

	key := evt.DedupKey()
	if p.debouncer.IsDuplicate(key, now) {
		slog.Debug("ignoring duplicate for history and stats", "package", evt.PackageName)
		p.debouncer.Sweep(now)
		return
	}
	p.debouncer.Record(key, now)

	if evt.ID != "" && evt.Action != "" {
		p.actions.Save(evt.ID, evt.Action)
	}

	entry := *evt
	p.worker.enqueue("record history", func(jobCtx context.Context) error {
		if err := p.record(jobCtx, &entry, decision.Blocked); err != nil {
			return err
		}
		if p.deps.Observer != nil {
			p.deps.Observer.HistoryChanged()
		}
		return nil
	})

	p.debouncer.Sweep(now)
}

// record appends the event to the appropriate history log and bumps the
// blocked counter for genuinely new blocked entries.
func (p *Processor) record(ctx context.Context, evt *model.Notification, blocked bool) error {
	evt.AppLabel = evt.Label()

	if blocked {
		isNew, err := p.deps.Blocked.SaveNotification(ctx, evt)
		if err != nil {
			return err
		}
		if isNew {
			if err := p.deps.Stats.IncrementBlocked(ctx); err != nil {
				slog.Error("failed to increment blocked total", "error", err)
			}
		}
		return nil
	}

	unmonitored, err := p.deps.Unmonitored.Contains(ctx, evt.PackageName)
	if err != nil {
		return err
	}
	if unmonitored {
		return nil
	}
	_, err = p.deps.Allowed.SaveNotification(ctx, evt)
	return err
}
