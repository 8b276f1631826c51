// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"sync/atomic"

	"shaderfx/internal/log"
)

// LoggingTransport writes every frame to the debug log as JSON. It is the
// fallback sink when no network transport is enabled.
type LoggingTransport struct {
	sent   atomic.Uint64
	closed atomic.Bool
}

func NewLoggingTransport() *LoggingTransport {
	log.Infof("Transport: using logging transport")
	return &LoggingTransport{}
}

// Send logs data at debug level. Encoding is skipped entirely when debug
// output is disabled.
func (lt *LoggingTransport) Send(data any) error {
	if lt.closed.Load() {
		return ErrClosed
	}
	n := lt.sent.Add(1)
	if !log.Enabled(log.LevelDebug) {
		return nil
	}
	payload, err := json.Marshal(data)
	if err != nil {
		log.Debugf("Transport: frame %d (%T): %+v (marshal error: %v)", n, data, data, err)
		return nil
	}
	log.Debugf("Transport: frame %d: %s", n, payload)
	return nil
}

// Sent returns the number of frames accepted so far.
func (lt *LoggingTransport) Sent() uint64 {
	return lt.sent.Load()
}

func (lt *LoggingTransport) Close() error {
	if lt.closed.Swap(true) {
		return nil
	}
	log.Debugf("Transport: logging transport closed after %d frames", lt.sent.Load())
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
