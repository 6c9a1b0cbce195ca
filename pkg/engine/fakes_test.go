package engine

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// fakeSource is an in-memory TorrentSource recording every call.
type fakeSource struct {
	mu       sync.Mutex
	payloads []Payload
	listErr  error

	setCalls    []string // "hash->path"
	pauseCalls  []string
	resumeCalls []string

	setErr    error
	pauseErr  error
	resumeErr error
}

func (s *fakeSource) ListPayloads(ctx context.Context) ([]Payload, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.payloads, nil
}

func (s *fakeSource) SetSaveLocation(ctx context.Context, hash, newPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.setCalls = append(s.setCalls, hash+"->"+newPath)
	return nil
}

func (s *fakeSource) Pause(ctx context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pauseErr != nil {
		return s.pauseErr
	}
	s.pauseCalls = append(s.pauseCalls, hash)
	return nil
}

func (s *fakeSource) Resume(ctx context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resumeCalls = append(s.resumeCalls, hash)
	return s.resumeErr
}

func (s *fakeSource) clientCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.setCalls) + len(s.pauseCalls) + len(s.resumeCalls)
}

// fakeStore is an in-memory MetricStore.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]MetricRecord
	getErr  error
	putErr  error
	upserts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]MetricRecord)}
}

func (s *fakeStore) Get(ctx context.Context, hash string) (*MetricRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	rec, ok := s.records[hash]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *fakeStore) Upsert(ctx context.Context, p Payload, rec MetricRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.records[p.Hash] = rec
	s.upserts++
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, hash)
	return nil
}

func (s *fakeStore) PruneStale(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pruned int64
	for hash, rec := range s.records {
		if rec.LastChecked.Before(olderThan) {
			delete(s.records, hash)
			pruned++
		}
	}
	return pruned, nil
}

// fakeStat reports fixed capacity and usage.
type fakeStat struct {
	capacity uint64
	used     uint64
	statErr  error
}

func (s *fakeStat) CapacityBytes(path string) (uint64, error) {
	if s.statErr != nil {
		return 0, s.statErr
	}
	return s.capacity, nil
}

func (s *fakeStat) UsedBytes(path string) (uint64, error) {
	if s.statErr != nil {
		return 0, s.statErr
	}
	return s.used, nil
}

// fakeTransfer tracks the set of existing paths and records mutations.
type fakeTransfer struct {
	mu     sync.Mutex
	exists map[string]bool

	copies    []string // "src->dst"
	removes   []string
	verifies  []string
	copyErr   error
	verifyErr error
	removeErr error
}

func newFakeTransfer(existing ...string) *fakeTransfer {
	t := &fakeTransfer{exists: make(map[string]bool)}
	for _, p := range existing {
		t.exists[p] = true
	}
	return t
}

func (t *fakeTransfer) Copy(ctx context.Context, src, dst string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.copyErr != nil {
		return t.copyErr
	}
	if !t.exists[src] {
		return fmt.Errorf("source %q does not exist", src)
	}
	t.exists[dst] = true
	t.copies = append(t.copies, src+"->"+dst)
	return nil
}

func (t *fakeTransfer) Verify(src, dst string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.verifyErr != nil {
		return t.verifyErr
	}
	if !t.exists[dst] {
		return fmt.Errorf("copy %q does not exist", dst)
	}
	t.verifies = append(t.verifies, dst)
	return nil
}

func (t *fakeTransfer) Remove(path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.removeErr != nil {
		return t.removeErr
	}
	delete(t.exists, path)
	t.removes = append(t.removes, path)
	return nil
}

func (t *fakeTransfer) Exists(path string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exists[path], nil
}

func (t *fakeTransfer) mutations() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.copies) + len(t.removes)
}

var testTierPaths = TierPaths{
	CacheRoot:  "/cache/torrents",
	MasterRoot: "/master/torrents",
}

// cachedPayload builds a payload resident on the cache tier.
func cachedPayload(hash, category string, size int64) Payload {
	return Payload{
		Hash:        hash,
		Name:        "payload-" + hash,
		Category:    category,
		Size:        size,
		SavePath:    "/cache/torrents/" + category,
		ContentPath: "/cache/torrents/" + category + "/payload-" + hash,
		Tier:        TierCache,
	}
}

// masterPayload builds a payload resident on the master tier.
func masterPayload(hash, category string, size int64) Payload {
	return Payload{
		Hash:        hash,
		Name:        "payload-" + hash,
		Category:    category,
		Size:        size,
		SavePath:    "/master/torrents/" + category,
		ContentPath: "/master/torrents/" + category + "/payload-" + hash,
		Tier:        TierMaster,
	}
}
