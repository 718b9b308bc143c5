package ratelimit

import (
	"math/rand/v2"
	"time"
)

// SongDownloadSleep returns a randomized pause inserted between two
// consecutive song downloads. The catalog throttles aggressively on
// bursty request patterns, so the interval is jittered rather than fixed.
func SongDownloadSleep() time.Duration {
	const (
		from = 1
		to   = 3
	)
	millis := (rand.IntN(to-from)+from)*1000 + rand.N(1000) //nolint:gosec
	return time.Duration(millis) * time.Millisecond
}
