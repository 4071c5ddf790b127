package mqtt

import (
	"sync"

	"multizone_thermostat/internal/models"
)

// FakePublisher records published telemetry for test assertions.
type FakePublisher struct {
	mu       sync.Mutex
	statuses []models.StatusSnapshot
	events   []models.Event
	closed   bool

	// PublishError, if set, is returned by every publish.
	PublishError error
}

func NewFakePublisher() *FakePublisher { return &FakePublisher{} }

func (f *FakePublisher) PublishStatus(s models.StatusSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.statuses = append(f.statuses, s)
	return nil
}

func (f *FakePublisher) PublishEvent(e models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.events = append(f.events, e)
	return nil
}

func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *FakePublisher) Statuses() []models.StatusSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.StatusSnapshot(nil), f.statuses...)
}

func (f *FakePublisher) Events() []models.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Event(nil), f.events...)
}

// EventTypes lists the types of recorded events in order.
func (f *FakePublisher) EventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.Type
	}
	return out
}

func (f *FakePublisher) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
