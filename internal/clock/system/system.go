// Package system provides a real clock implementation.
package system

import (
	"time"

	"github.com/C41M50N/readr-convex-hackathon/internal/content"
)

// Clock implements content.Clock using time.Now.
type Clock struct{}

var _ content.Clock = (*Clock)(nil)

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time in UTC so persisted timestamps are uniform
// across stores.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
