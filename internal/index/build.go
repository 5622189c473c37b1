package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"airportsearch/internal/callgroup"
	"airportsearch/internal/logging"
	"airportsearch/internal/record"
	"airportsearch/internal/sysmetrics"

	"golang.org/x/sync/errgroup"
)

// Build scans every row of src and indexes (name, id) under the name's
// bucket. Duplicate names within a bucket keep the first id seen. Rows without
// a numeric id or a name are counted and skipped. A source error aborts the
// build; no partial index is returned.
//
// Sources implementing record.Partitioned are scanned part by part
// concurrently and merged in part order, which gives the same result as a
// sequential scan.
func Build(ctx context.Context, src record.Source, logger *slog.Logger) (*NameIndex, error) {
	return build(ctx, src, runtime.GOMAXPROCS(0), logging.Default(logger).With("component", "name-index"))
}

func build(ctx context.Context, src record.Source, parallelism int, logger *slog.Logger) (*NameIndex, error) {
	before := sysmetrics.Take()

	var idx *NameIndex
	var err error
	if p, ok := src.(record.Partitioned); ok && parallelism > 1 {
		idx, err = buildPartitioned(ctx, p, parallelism)
	} else {
		idx, err = scanInto(ctx, src)
	}
	if err != nil {
		return nil, fmt.Errorf("build name index: %w", err)
	}

	after := sysmetrics.Take()
	logger.Info("name index built",
		"entries", idx.entries,
		"buckets", len(idx.buckets),
		"skipped", idx.skipped,
		"duplicates", idx.duplicates,
		"duration", after.At.Sub(before.At),
		"cpu_percent", int(after.CPUPercent(before)),
		"memory_inuse", after.MemoryInuse)
	if idx.skipped > 0 {
		logger.Warn("rows without a usable id or name were not indexed", "count", idx.skipped)
	}
	return idx, nil
}

func scanInto(ctx context.Context, src record.Source) (*NameIndex, error) {
	idx := newNameIndex()
	for row, err := range src.Scan(ctx) {
		if err != nil {
			return nil, err
		}
		idx.insert(row)
	}
	return idx, nil
}

func buildPartitioned(ctx context.Context, src record.Partitioned, parallelism int) (*NameIndex, error) {
	parts, err := src.Partitions()
	if err != nil {
		return nil, err
	}
	if len(parts) == 1 {
		return scanInto(ctx, parts[0])
	}

	partials := make([]*NameIndex, len(parts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, part := range parts {
		g.Go(func() error {
			idx, err := scanInto(gctx, part)
			if err != nil {
				return err
			}
			partials[i] = idx
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx := partials[0]
	for _, part := range partials[1:] {
		idx.merge(part)
	}
	return idx, nil
}

// Fingerprinter is implemented by sources that can identify the current state
// of their data, such as record.FileSource.
type Fingerprinter interface {
	Fingerprint() (string, error)
}

// BuilderConfig configures a Builder.
type BuilderConfig struct {
	// SnapshotDir enables snapshots when non-empty. Only sources implementing
	// Fingerprinter are snapshotted.
	SnapshotDir string

	// Parallelism bounds concurrent partition scans. Zero means GOMAXPROCS.
	Parallelism int

	Logger *slog.Logger
}

// Builder produces name indexes, reusing snapshots when the data has not
// changed and sharing one build between concurrent callers for the same data.
type Builder struct {
	cfg    BuilderConfig
	group  callgroup.Group[string, *NameIndex]
	logger *slog.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(cfg BuilderConfig) *Builder {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = runtime.GOMAXPROCS(0)
	}
	return &Builder{
		cfg:    cfg,
		logger: logging.Default(cfg.Logger).With("component", "name-index"),
	}
}

// Open returns the index for src. A matching snapshot is loaded when one
// exists; otherwise the index is built from a full scan and a snapshot saved.
// Snapshot problems are logged and never fail Open; build errors do.
//
// If a build for the same data is already in flight, Open waits for it and
// shares the result. Cancelling ctx returns early without aborting the
// shared build.
func (b *Builder) Open(ctx context.Context, src record.Source) (*NameIndex, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var fingerprint string
	if fp, ok := src.(Fingerprinter); ok {
		var err error
		fingerprint, err = fp.Fingerprint()
		if err != nil {
			return nil, fmt.Errorf("build name index: %w", err)
		}
	}

	ch := b.group.DoChan(fingerprint, func() (*NameIndex, error) {
		return b.open(context.WithoutCancel(ctx), src, fingerprint)
	})

	select {
	case r := <-ch:
		return r.Val, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *Builder) open(ctx context.Context, src record.Source, fingerprint string) (*NameIndex, error) {
	if b.cfg.SnapshotDir == "" || fingerprint == "" {
		return build(ctx, src, b.cfg.Parallelism, b.logger)
	}

	path := SnapshotPath(b.cfg.SnapshotDir, fingerprint)
	idx, err := LoadSnapshot(path, fingerprint)
	switch {
	case err == nil:
		b.logger.Info("name index loaded from snapshot", "path", path, "entries", idx.Len())
		return idx, nil
	case errors.Is(err, ErrIndexNotFound):
		b.logger.Debug("no snapshot for current data", "path", path)
	default:
		b.logger.Warn("ignoring unreadable snapshot", "path", path, "error", err)
	}

	idx, err = build(ctx, src, b.cfg.Parallelism, b.logger)
	if err != nil {
		return nil, err
	}
	if err := SaveSnapshot(path, fingerprint, idx); err != nil {
		b.logger.Warn("failed to save snapshot", "path", path, "error", err)
		return idx, nil
	}
	b.logger.Info("name index snapshot saved", "path", path)
	if n, err := PruneSnapshots(b.cfg.SnapshotDir, fingerprint); err != nil {
		b.logger.Warn("failed to prune stale snapshots", "error", err)
	} else if n > 0 {
		b.logger.Debug("pruned stale snapshots", "count", n)
	}
	return idx, nil
}
