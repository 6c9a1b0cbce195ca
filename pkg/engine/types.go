// Package engine implements the rebalancing decision-and-execution core:
// scoring torrent payloads by swarm-health signals, selecting the working set
// that fits the cache tier, and executing promotions and relegations under a
// per-cycle operation budget without ever touching the master copy.
package engine

import (
	"context"
	"time"
)

// Tier identifies one of the two storage tiers.
type Tier string

const (
	// TierCache is the fast, bounded tier holding disposable duplicates.
	TierCache Tier = "CACHE"

	// TierMaster is the slow, permanent tier. The master copy of a payload
	// is authoritative and is never deleted by this system.
	TierMaster Tier = "MASTER"
)

// TierPaths holds the root directories of the two tiers. A payload's current
// tier is always derived from the client-reported save path matching one of
// these roots, never from locally remembered state.
type TierPaths struct {
	CacheRoot  string
	MasterRoot string
}

// TierOf returns the tier whose root contains the given save path.
// Paths outside the cache root are treated as master.
func (p TierPaths) TierOf(savePath string) Tier {
	if pathHasRoot(savePath, p.CacheRoot) {
		return TierCache
	}
	return TierMaster
}

// Root returns the root directory of the given tier.
func (p TierPaths) Root(t Tier) string {
	if t == TierCache {
		return p.CacheRoot
	}
	return p.MasterRoot
}

// Payload is one cycle's snapshot of a single torrent, as reported by the
// torrent source. The hash is the stable identity; everything else may change
// between cycles.
type Payload struct {
	Hash        string  // stable content hash (identity)
	Name        string  // display name
	Category    string  // category label, preserved as a subdirectory across tiers
	Size        int64   // total payload size in bytes
	Seeders     int     // seeders in the swarm
	Leechers    int     // leechers in the swarm
	UploadRate  float64 // instantaneous upload rate, bytes/sec
	Uploaded    int64   // total bytes uploaded since the torrent was added
	SavePath    string  // client-reported base directory
	ContentPath string  // client-reported absolute path of the payload content
	AddedOn     int64   // unix timestamp the torrent was added
	Tier        Tier    // derived from SavePath against the tier roots
}

// MetricRecord is the persisted per-payload scoring history: an EMA-smoothed
// long-term upload rate plus the counters needed to derive the next delta.
type MetricRecord struct {
	Hash         string
	SmoothedRate float64 // EMA of the upload rate, bytes/sec
	InstantRate  float64 // delta-derived rate of the last observation, bytes/sec
	LastUploaded int64   // total-uploaded counter at the last observation
	LastChecked  time.Time
}

// ScoredPayload pairs a payload with its score for this cycle.
type ScoredPayload struct {
	Payload
	Score float64
}

// OpKind is the kind of a relocation operation.
type OpKind string

const (
	// OpPromote copies a payload from master to cache and repoints the client.
	OpPromote OpKind = "PROMOTE"

	// OpRelegate repoints the client back to master and deletes the cache copy.
	OpRelegate OpKind = "RELEGATE"

	// OpCleanup deletes an orphaned cache copy whose client-reported location
	// is already master. No repoint call is involved.
	OpCleanup OpKind = "CLEANUP"
)

// OpStatus is the lifecycle state of a relocation operation. Operations are
// never persisted beyond a single cycle; a FAILED payload simply stays in its
// prior tier and is re-evaluated next cycle.
type OpStatus string

const (
	StatusPending    OpStatus = "PENDING"
	StatusInProgress OpStatus = "IN_PROGRESS"
	StatusCompleted  OpStatus = "COMPLETED"
	StatusFailed     OpStatus = "FAILED"
)

// Operation is a transient work item produced by the reconciler and consumed
// by the executor within the same cycle.
type Operation struct {
	Kind     OpKind
	Hash     string
	Name     string
	Category string
	Size     int64
	Score    float64

	SourcePath string // current content path
	DestPath   string // content path after the move
	TargetBase string // base directory handed to the repoint call

	Status OpStatus
	Err    error
}

// TorrentSource is the external torrent-client API the engine polls once per
// cycle and instructs to repoint save locations.
type TorrentSource interface {
	// ListPayloads returns a snapshot of all known payloads. Malformed
	// entries are skipped by the implementation, not surfaced as errors.
	ListPayloads(ctx context.Context) ([]Payload, error)

	// SetSaveLocation repoints a payload's save location to newPath.
	// A nil error is the only affirmative success signal; the executor
	// never assumes a repoint took effect without it.
	SetSaveLocation(ctx context.Context, hash, newPath string) error

	// Pause stops a torrent so file handles are released before a repoint.
	Pause(ctx context.Context, hash string) error

	// Resume restarts a torrent after a repoint.
	Resume(ctx context.Context, hash string) error
}

// MetricStore persists per-payload scoring history across cycles.
type MetricStore interface {
	// Get returns the record for a payload, or (nil, nil) if absent.
	Get(ctx context.Context, hash string) (*MetricRecord, error)

	// Upsert creates or updates the record for an observed payload.
	Upsert(ctx context.Context, p Payload, rec MetricRecord) error

	// Delete removes the record for a payload.
	Delete(ctx context.Context, hash string) error

	// PruneStale deletes records not updated since the given time and
	// returns how many were removed.
	PruneStale(ctx context.Context, olderThan time.Time) (int64, error)
}

// StorageStat reports volume capacity and usage. Read fresh each cycle so
// external changes in disk usage are observed promptly.
type StorageStat interface {
	CapacityBytes(path string) (uint64, error)
	UsedBytes(path string) (uint64, error)
}

// FileTransfer performs the physical file operations of a relocation. All
// methods must preserve the category subdirectory structure implied by the
// given paths.
type FileTransfer interface {
	// Copy duplicates src (file or directory tree) to dst, preserving
	// name, size, permissions and modification time.
	Copy(ctx context.Context, src, dst string) error

	// Verify checks that dst is a complete copy of src (per-file size
	// match at minimum).
	Verify(src, dst string) error

	// Remove deletes the file or directory tree at path.
	Remove(path string) error

	// Exists reports whether path exists.
	Exists(path string) (bool, error)
}

// CycleMetrics receives engine instrumentation. Implementations are optional;
// the orchestrator checks for nil before every call.
type CycleMetrics interface {
	ObserveCycle(result string, d time.Duration)
	ObserveOperation(kind, status string, bytes int64)
	SetTierStats(tier string, payloads int, bytes uint64)
	SetCacheUsage(capacity, used uint64)
}
