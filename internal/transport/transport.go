// SPDX-License-Identifier: MIT
package transport

import "errors"

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport closed")

// Transport delivers rendered frames to an outside consumer. Implementations
// must be safe for concurrent use and must not block the video tick: slow
// consumers lose frames rather than stall rendering.
type Transport interface {
	Send(data any) error
	Close() error
}

// Multi fans a frame out to several transports. Send keeps going after a
// failure and returns the joined errors.
type Multi []Transport

func (m Multi) Send(data any) error {
	var errs []error
	for _, t := range m {
		if err := t.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, t := range m {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Transport = Multi(nil)
