package ports

import (
	"context"
	"time"
)

// FingerprintStore detects duplicate inbound messages within a sliding time
// window. CheckAndRecord is a single atomic step so that concurrent sources
// cannot both pass the check for the same fingerprint.
type FingerprintStore interface {
	// CheckAndRecord reports whether the fingerprint was already seen within
	// the window, recording it when it was not.
	CheckAndRecord(ctx context.Context, fingerprint string, at time.Time) (duplicate bool, err error)
}
