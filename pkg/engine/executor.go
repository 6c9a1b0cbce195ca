package engine

import (
	"context"
	"fmt"

	"github.com/Kheopsian/Seederr/internal/logger"
)

// Executor carries out a single relocation operation with rollback-safe
// sequencing. No code path here deletes or modifies a master-tier file.
type Executor struct {
	source   TorrentSource
	transfer FileTransfer
	stat     StorageStat
	paths    TierPaths
}

// NewExecutor creates an executor over the given collaborators.
func NewExecutor(source TorrentSource, transfer FileTransfer, stat StorageStat, paths TierPaths) *Executor {
	return &Executor{
		source:   source,
		transfer: transfer,
		stat:     stat,
		paths:    paths,
	}
}

// Execute runs one operation and updates its status in place. In dry-run mode
// every step is computed and logged with its intended source, destination and
// verb, but no filesystem mutation or client call is issued and the status is
// reported as would-be-completed.
//
// Failures are scoped to the operation: the status becomes FAILED, the error
// is recorded on the operation and returned, and the payload is re-evaluated
// fresh next cycle from whatever the client then reports.
func (e *Executor) Execute(ctx context.Context, op *Operation, dryRun bool) error {
	op.Status = StatusInProgress

	var err error
	switch op.Kind {
	case OpPromote:
		err = e.promote(ctx, op, dryRun)
	case OpRelegate:
		err = e.relegate(ctx, op, dryRun)
	case OpCleanup:
		err = e.cleanup(ctx, op, dryRun)
	default:
		err = fmt.Errorf("unknown operation kind %q", op.Kind)
	}

	if err != nil {
		op.Status = StatusFailed
		op.Err = err
		return err
	}
	op.Status = StatusCompleted
	return nil
}

// promote copies master -> cache, verifies, then repoints the client. The
// master copy is left untouched on every path through this function.
func (e *Executor) promote(ctx context.Context, op *Operation, dryRun bool) error {
	if dryRun {
		logger.InfoCtx(ctx, "would promote",
			logger.KeyHash, op.Hash,
			logger.KeyName, op.Name,
			logger.KeyScore, op.Score,
			logger.KeySource, op.SourcePath,
			logger.KeyDest, op.DestPath,
		)
		return nil
	}

	// Headroom check: a promotion must never overfill the cache volume.
	capacity, err := e.stat.CapacityBytes(e.paths.CacheRoot)
	if err != nil {
		return fmt.Errorf("stat cache capacity: %w", err)
	}
	used, err := e.stat.UsedBytes(e.paths.CacheRoot)
	if err != nil {
		return fmt.Errorf("stat cache usage: %w", err)
	}
	if used+uint64(op.Size) > capacity {
		return fmt.Errorf("promote %s (%d bytes, %d used of %d): %w",
			op.Hash, op.Size, used, capacity, ErrInsufficientSpace)
	}

	logger.InfoCtx(ctx, "promoting",
		logger.KeyHash, op.Hash,
		logger.KeyName, op.Name,
		logger.KeyScore, op.Score,
		logger.KeySource, op.SourcePath,
		logger.KeyDest, op.DestPath,
	)

	if err := e.transfer.Copy(ctx, op.SourcePath, op.DestPath); err != nil {
		return fmt.Errorf("copy to cache: %w", err)
	}
	if err := e.transfer.Verify(op.SourcePath, op.DestPath); err != nil {
		// Abort before the repoint: the client keeps serving from master
		// and the partial cache copy is collected as an orphan later.
		return fmt.Errorf("verify cache copy: %w", err)
	}

	if err := e.repoint(ctx, op.Hash, op.TargetBase); err != nil {
		// The cache copy stays in place; the client still reports master,
		// so the next cycle either retries or cleans the orphan up.
		return fmt.Errorf("repoint to cache: %w", err)
	}

	return nil
}

// relegate repoints the client back to master first and deletes the cache
// copy only after the repoint succeeded, so the client is never left pointing
// at a path about to be removed.
func (e *Executor) relegate(ctx context.Context, op *Operation, dryRun bool) error {
	if dryRun {
		logger.InfoCtx(ctx, "would relegate",
			logger.KeyHash, op.Hash,
			logger.KeyName, op.Name,
			logger.KeyScore, op.Score,
			logger.KeySource, op.SourcePath,
			logger.KeyDest, op.DestPath,
		)
		return nil
	}

	logger.InfoCtx(ctx, "relegating",
		logger.KeyHash, op.Hash,
		logger.KeyName, op.Name,
		logger.KeyScore, op.Score,
		logger.KeySource, op.SourcePath,
		logger.KeyDest, op.DestPath,
	)

	// The master copy must exist and match before the cache copy can go.
	if err := e.transfer.Verify(op.SourcePath, op.DestPath); err != nil {
		return fmt.Errorf("verify master copy: %w", err)
	}

	if err := e.repoint(ctx, op.Hash, op.TargetBase); err != nil {
		return fmt.Errorf("repoint to master: %w", err)
	}

	if err := e.transfer.Remove(op.SourcePath); err != nil {
		// Repoint already succeeded: placement is correct, only the
		// leftover copy remains. It is collected as an orphan next cycle.
		return fmt.Errorf("remove cache copy: %w", err)
	}

	return nil
}

// cleanup removes an orphaned cache copy. The client already reports master,
// so no repoint call is needed.
func (e *Executor) cleanup(ctx context.Context, op *Operation, dryRun bool) error {
	if dryRun {
		logger.InfoCtx(ctx, "would clean up orphaned cache copy",
			logger.KeyHash, op.Hash,
			logger.KeyName, op.Name,
			logger.KeySource, op.SourcePath,
		)
		return nil
	}

	logger.InfoCtx(ctx, "cleaning up orphaned cache copy",
		logger.KeyHash, op.Hash,
		logger.KeyName, op.Name,
		logger.KeySource, op.SourcePath,
	)

	if err := e.transfer.Remove(op.SourcePath); err != nil {
		return fmt.Errorf("remove orphaned cache copy: %w", err)
	}
	return nil
}

// repoint pauses the torrent, repoints its save location and resumes it.
// Pausing lets the client release file handles before the switch; resume is
// attempted even when the repoint fails so a torrent is never left paused.
func (e *Executor) repoint(ctx context.Context, hash, newBase string) error {
	if err := e.source.Pause(ctx, hash); err != nil {
		return fmt.Errorf("pause: %w", err)
	}

	repointErr := e.source.SetSaveLocation(ctx, hash, newBase)

	if err := e.source.Resume(ctx, hash); err != nil {
		logger.WarnCtx(ctx, "failed to resume torrent after repoint",
			logger.KeyHash, hash, logger.KeyError, err)
	}

	if repointErr != nil {
		return repointErr
	}
	return nil
}
