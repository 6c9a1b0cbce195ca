// Package storage provides the volume statistics and physical file transfer
// collaborators consumed by the rebalancing engine.
package storage

import (
	"fmt"

	"github.com/shirou/gopsutil/v4/disk"
)

// DiskStat reports volume capacity and usage by statting the filesystem the
// given path lives on. An optional per-path capacity override supports
// deployments where the mount reported to the process does not reflect the
// real volume size (remote testing, bind mounts into containers).
type DiskStat struct {
	overrides map[string]uint64
}

// NewDiskStat creates a stat provider with no overrides.
func NewDiskStat() *DiskStat {
	return &DiskStat{overrides: make(map[string]uint64)}
}

// OverrideCapacity pins the reported total capacity for a path. A zero value
// removes the override.
func (s *DiskStat) OverrideCapacity(path string, capacity uint64) {
	if capacity == 0 {
		delete(s.overrides, path)
		return
	}
	s.overrides[path] = capacity
}

// CapacityBytes returns the total size of the volume containing path.
func (s *DiskStat) CapacityBytes(path string) (uint64, error) {
	if c, ok := s.overrides[path]; ok {
		return c, nil
	}
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, fmt.Errorf("stat volume %q: %w", path, err)
	}
	return usage.Total, nil
}

// UsedBytes returns the used size of the volume containing path.
func (s *DiskStat) UsedBytes(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, fmt.Errorf("stat volume %q: %w", path, err)
	}
	return usage.Used, nil
}
