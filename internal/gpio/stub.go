//go:build !linux

package gpio

import (
	"context"
	"errors"
)

// RealWriter is not available on non-Linux platforms.
type RealWriter struct{}

func NewRealWriter(Options) (*RealWriter, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

func (w *RealWriter) SetChannel(context.Context, uint8, bool) error {
	return errors.New("gpio: not supported")
}

func (w *RealWriter) Close() error { return nil }
