package engine

import "errors"

var (
	// ErrSourceUnavailable indicates the torrent source could not be
	// reached; the current cycle is aborted without any state mutation.
	ErrSourceUnavailable = errors.New("torrent source unavailable")

	// ErrStoreUnavailable indicates the metric store could not be reached.
	// Within a running cycle this only aborts the persist phase.
	ErrStoreUnavailable = errors.New("metric store unavailable")

	// ErrInsufficientSpace indicates the cache tier has no headroom for a
	// promotion. The operation fails; the payload stays on master.
	ErrInsufficientSpace = errors.New("insufficient space on cache tier")

	// ErrVerifyFailed indicates a copied payload did not match its source.
	ErrVerifyFailed = errors.New("copy verification failed")
)
