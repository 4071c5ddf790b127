package gpio

import (
	"context"
	"sync"
)

// Write is one recorded SetChannel call.
type Write struct {
	Channel uint8
	On      bool
}

// FakeWriter records relay writes for test assertions.
type FakeWriter struct {
	mu     sync.Mutex
	state  map[uint8]bool
	writes []Write
	closed bool

	// Err, if set, is returned by SetChannel without recording.
	Err error
	// Block, if set, makes SetChannel wait for ctx to expire.
	Block bool
}

func NewFakeWriter() *FakeWriter {
	return &FakeWriter{state: make(map[uint8]bool)}
}

func (f *FakeWriter) SetChannel(ctx context.Context, channel uint8, on bool) error {
	f.mu.Lock()
	block, err := f.Block, f.Err
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	f.state[channel] = on
	f.writes = append(f.writes, Write{Channel: channel, On: on})
	return nil
}

func (f *FakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// On reports the last value written to channel.
func (f *FakeWriter) On(channel uint8) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state[channel]
}

// AnyOn reports whether any channel is currently driven on.
func (f *FakeWriter) AnyOn() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, on := range f.state {
		if on {
			return true
		}
	}
	return false
}

func (f *FakeWriter) Writes() []Write {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Write(nil), f.writes...)
}

func (f *FakeWriter) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FakeWriter) SetBlock(b bool) {
	f.mu.Lock()
	f.Block = b
	f.mu.Unlock()
}
