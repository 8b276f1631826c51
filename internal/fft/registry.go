// SPDX-License-Identifier: MIT
package fft

import (
	"sync"
	"time"

	"shaderfx/internal/log"
)

// Registry deduplicates analysis components by Descriptor. At most one live
// component exists per descriptor; every Request for it while it is alive
// shares that instance. The registry itself does not keep components alive:
// once the last Handle is released the component is torn down and the next
// Request starts a fresh one.
type Registry struct {
	host    Host
	clock   func() time.Time
	metrics *Metrics

	mu      sync.RWMutex
	entries map[descriptorKey]*Component
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source used for damping. Offline replays use
// it to run on sample time instead of wall time.
func WithClock(clock func() time.Time) Option {
	return func(r *Registry) {
		r.clock = clock
	}
}

// WithMetrics records pipeline metrics.
func WithMetrics(m *Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// NewRegistry returns an empty registry whose components subscribe to host.
func NewRegistry(host Host, opts ...Option) *Registry {
	r := &Registry{
		host:    host,
		clock:   time.Now,
		entries: make(map[descriptorKey]*Component),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Request returns a handle to the component for d, creating and subscribing
// it if no live one exists. The caller must Release the handle.
func (r *Registry) Request(d Descriptor) *Handle {
	key := d.key()

	r.mu.RLock()
	if c, ok := r.entries[key]; ok && c.acquire() {
		r.mu.RUnlock()
		return &Handle{c: c}
	}
	r.mu.RUnlock()

	r.mu.Lock()
	// Another requester may have created it in between.
	if c, ok := r.entries[key]; ok && c.acquire() {
		r.mu.Unlock()
		return &Handle{c: c}
	}

	r.prune()

	c := newComponent(d, r.host, r.clock, r.metrics)
	r.entries[key] = c
	r.metrics.componentCreated()
	r.mu.Unlock()

	log.Debugf("FFT: created component %s", d)

	// Opening a device stream can be slow; other descriptors must not wait.
	c.connect()
	return &Handle{c: c}
}

// Len returns the number of live components.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, c := range r.entries {
		if c.alive() {
			n++
		}
	}
	return n
}

// Components returns the live components, in no particular order.
func (r *Registry) Components() []*Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Component, 0, len(r.entries))
	for _, c := range r.entries {
		if c.alive() {
			out = append(out, c)
		}
	}
	return out
}

// prune drops entries whose component has been torn down. Callers hold r.mu.
func (r *Registry) prune() {
	for key, c := range r.entries {
		if !c.alive() {
			delete(r.entries, key)
		}
	}
}
