// Package reload keeps the query engine's name index in step with the data
// files.
//
// Change detection runs in the background (fsnotify, a fingerprint poll job
// and an optional cron schedule) but only raises a dirty flag. The index is
// rebuilt synchronously by Refresh, which the REPL calls between queries, so
// a query never races a rebuild. A failed rebuild leaves the previous index
// in place.
package reload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"airportsearch/internal/index"
	"airportsearch/internal/logging"
	"airportsearch/internal/notify"
	"airportsearch/internal/record"

	"golang.org/x/time/rate"
)

// Source is a record source backed by files.
type Source interface {
	record.Source
	Patterns() []string
	Fingerprint() (string, error)
}

// Opener produces an index for a source; *index.Builder satisfies it.
type Opener interface {
	Open(ctx context.Context, src record.Source) (*index.NameIndex, error)
}

// Target receives rebuilt indexes; *query.Engine satisfies it.
type Target interface {
	SetIndex(idx *index.NameIndex)
}

// Config configures a Reloader.
type Config struct {
	Source Source
	Opener Opener
	Target Target

	// Fingerprint identifies the data the target's current index was built
	// from. Empty means unknown; the first refresh then always rebuilds.
	Fingerprint string

	// Watch enables fsnotify change detection.
	Watch bool

	// PollInterval re-checks the fingerprint periodically. Zero disables.
	PollInterval time.Duration

	// RebuildCron forces a rebuild on a cron schedule. Empty disables.
	RebuildCron string

	// MinRebuildInterval spaces out rebuilds of data that keeps changing.
	// A refresh inside the interval keeps the index stale for a later
	// refresh. Zero disables the limit.
	MinRebuildInterval time.Duration

	Logger *slog.Logger
}

// Reloader tracks whether the index is stale and rebuilds it on request.
type Reloader struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	current string // fingerprint of the active index
	reason  string // why the index was last marked dirty

	dirty atomic.Bool
	force atomic.Bool
	stale *notify.Signal

	limiter *rate.Limiter
	sched   *Scheduler // nil without poll or cron jobs
}

// New creates a Reloader. Jobs are registered here and start with Run.
func New(cfg Config) (*Reloader, error) {
	if cfg.Source == nil || cfg.Opener == nil || cfg.Target == nil {
		return nil, errors.New("reload: source, opener and target are required")
	}
	r := &Reloader{
		cfg:     cfg,
		logger:  logging.Default(cfg.Logger).With("component", "reload"),
		current: cfg.Fingerprint,
		stale:   notify.NewSignal(),
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	if cfg.MinRebuildInterval > 0 {
		r.limiter = rate.NewLimiter(rate.Every(cfg.MinRebuildInterval), 1)
	}

	if cfg.PollInterval <= 0 && cfg.RebuildCron == "" {
		return r, nil
	}

	sched, err := newScheduler(r.logger)
	if err != nil {
		return nil, err
	}
	if cfg.PollInterval > 0 {
		err = sched.AddIntervalJob("poll-fingerprint", cfg.PollInterval, r.poll)
	}
	if err == nil && cfg.RebuildCron != "" {
		err = sched.AddCronJob("rebuild", cfg.RebuildCron, func() { r.ForceRebuild("schedule") })
	}
	if err != nil {
		_ = sched.Stop()
		return nil, err
	}
	r.sched = sched
	return r, nil
}

// Jobs lists the scheduled jobs.
func (r *Reloader) Jobs() []JobInfo {
	if r.sched == nil {
		return nil
	}
	return r.sched.ListJobs()
}

// Close releases the scheduler of a Reloader that is never Run.
func (r *Reloader) Close() error {
	if r.sched == nil {
		return nil
	}
	return r.sched.Stop()
}

// MarkDirty flags the index as possibly stale.
func (r *Reloader) MarkDirty(reason string) {
	r.mu.Lock()
	r.reason = reason
	r.mu.Unlock()
	if !r.dirty.Swap(true) {
		r.logger.Debug("index marked stale", "reason", reason)
		r.stale.Notify()
	}
}

// Stale returns a channel that is closed the next time a clean index is
// marked stale.
func (r *Reloader) Stale() <-chan struct{} {
	return r.stale.C()
}

// ForceRebuild flags the index for a rebuild even if the data fingerprint
// has not changed.
func (r *Reloader) ForceRebuild(reason string) {
	r.force.Store(true)
	r.MarkDirty(reason)
}

// Dirty reports whether a refresh is pending.
func (r *Reloader) Dirty() bool {
	return r.dirty.Load()
}

// Fingerprint returns the fingerprint of the data behind the active index.
func (r *Reloader) Fingerprint() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Refresh rebuilds and swaps in the index if it was marked dirty and the data
// has changed (or a rebuild was forced). It reports whether a new index was
// installed. On error the previous index stays active.
func (r *Reloader) Refresh(ctx context.Context) (bool, error) {
	if !r.dirty.Swap(false) {
		return false, nil
	}
	force := r.force.Swap(false)

	r.mu.Lock()
	reason, current := r.reason, r.current
	r.mu.Unlock()

	fp, err := r.cfg.Source.Fingerprint()
	if err != nil {
		r.logger.Warn("cannot fingerprint data, keeping current index", "error", err)
		return false, fmt.Errorf("refresh index: %w", err)
	}
	if !force && fp == current {
		r.logger.Debug("data unchanged, index kept", "reason", reason)
		return false, nil
	}
	if !r.limiter.Allow() {
		r.logger.Debug("rebuild deferred by rate limit", "reason", reason)
		if force {
			r.force.Store(true)
		}
		r.dirty.Store(true)
		return false, nil
	}

	start := time.Now()
	idx, err := r.cfg.Opener.Open(ctx, r.cfg.Source)
	if err != nil {
		r.logger.Warn("index rebuild failed, keeping current index", "reason", reason, "error", err)
		return false, fmt.Errorf("refresh index: %w", err)
	}
	r.cfg.Target.SetIndex(idx)

	r.mu.Lock()
	r.current = fp
	r.mu.Unlock()

	r.logger.Info("name index reloaded",
		"reason", reason,
		"entries", idx.Len(),
		"duration", time.Since(start))
	return true, nil
}

// poll marks the index dirty when the data fingerprint has moved.
func (r *Reloader) poll() {
	fp, err := r.cfg.Source.Fingerprint()
	if err != nil {
		r.logger.Debug("poll: cannot fingerprint data", "error", err)
		return
	}
	if fp != r.Fingerprint() {
		r.MarkDirty("fingerprint changed")
	}
}

// Run drives change detection until ctx is done. It always returns nil on
// cancellation; a watcher setup failure is returned as an error.
func (r *Reloader) Run(ctx context.Context) error {
	if r.sched != nil {
		r.sched.Start()
		defer func() {
			if err := r.sched.Stop(); err != nil {
				r.logger.Warn("scheduler shutdown", "error", err)
			}
		}()
	}

	if !r.cfg.Watch {
		<-ctx.Done()
		return nil
	}
	if err := r.watch(ctx); err != nil {
		return fmt.Errorf("watch data files: %w", err)
	}
	return nil
}
