// Package timegetter contains the default [domain.TimeGetter]
// implementation. It exists as its own seam so tests can inject a fixed
// or stepped clock instead of depending on wall-clock time.
package timegetter

import (
	"time"

	"github.com/webbestmaster/nedb/domain"
)

// TimeGetter implements [domain.TimeGetter] using the system clock.
type TimeGetter struct{}

// NewTimeGetter returns a new implementation of [domain.TimeGetter].
func NewTimeGetter() domain.TimeGetter {
	return &TimeGetter{}
}

// GetTime implements [domain.TimeGetter].
func (*TimeGetter) GetTime() time.Time {
	return time.Now()
}
