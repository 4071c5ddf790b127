// Package gpio drives relay outputs. The real implementation uses the Linux GPIO
// character device; the fake records writes for tests.
package gpio

import (
	"context"
	"errors"
)

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("gpio: relay driver closed")

// Writer switches relay channels. Channel numbers are BCM GPIO offsets.
type Writer interface {
	// SetChannel drives a channel on or off. It is idempotent.
	SetChannel(ctx context.Context, channel uint8, on bool) error

	// Close releases GPIO resources. Callers force channels off first.
	Close() error
}

// Options configure the real relay driver.
type Options struct {
	Chip      string
	Channels  []uint8
	ActiveLow bool
}
