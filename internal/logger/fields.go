package logger

// Standard field keys used across the decision trail. Keeping them in one
// place makes log queries stable across packages.
const (
	KeyCycleID    = "cycle_id"
	KeyPhase      = "phase"
	KeyDryRun     = "dry_run"
	KeyHash       = "hash"
	KeyName       = "name"
	KeyCategory   = "category"
	KeyTier       = "tier"
	KeyTargetTier = "target_tier"
	KeyOp         = "op"
	KeyStatus     = "status"
	KeyScore      = "score"
	KeySize       = "size"
	KeySource     = "src"
	KeyDest       = "dst"
	KeyError      = "error"
	KeyDurationMs = "duration_ms"
)
