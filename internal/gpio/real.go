//go:build linux

package gpio

import (
	"context"
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "thermostat"

// RealWriter drives relays through a GPIO chip.
type RealWriter struct {
	mu     sync.Mutex
	chip   *gpiocdev.Chip
	lines  map[uint8]*gpiocdev.Line
	closed bool
}

// NewRealWriter requests every channel as an output driven inactive.
func NewRealWriter(opts Options) (*RealWriter, error) {
	chip, err := gpiocdev.NewChip(opts.Chip, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %q: %w", opts.Chip, err)
	}

	w := &RealWriter{chip: chip, lines: make(map[uint8]*gpiocdev.Line, len(opts.Channels))}
	for _, ch := range opts.Channels {
		reqOpts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
		if opts.ActiveLow {
			reqOpts = append(reqOpts, gpiocdev.AsActiveLow)
		}
		line, err := chip.RequestLine(int(ch), reqOpts...)
		if err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("request relay channel %d: %w", ch, err)
		}
		w.lines[ch] = line
	}
	return w, nil
}

func (w *RealWriter) SetChannel(ctx context.Context, channel uint8, on bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	line, ok := w.lines[channel]
	if !ok {
		return fmt.Errorf("relay channel %d not configured", channel)
	}
	v := 0
	if on {
		v = 1
	}
	if err := line.SetValue(v); err != nil {
		return fmt.Errorf("set relay channel %d: %w", channel, err)
	}
	return nil
}

// Close drives every line inactive, then releases lines and the chip.
func (w *RealWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	var errs []error
	for ch, line := range w.lines {
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("release channel %d: %w", ch, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel %d: %w", ch, err))
		}
	}
	if w.chip != nil {
		if err := w.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
