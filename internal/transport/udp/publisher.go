// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"errors"
	"sync"
	"time"

	"shaderfx/internal/log"
)

// Spectrum is one named FFT texture ready for publishing.
type Spectrum struct {
	Name   string
	Values []float32
}

// Source supplies the spectra to publish on each tick. The returned slices
// are only read until the next call.
type Source interface {
	Spectra() []Spectrum
}

// PacketSender is the transport the publisher writes datagrams to.
type PacketSender interface {
	Send(data []byte) error
}

// UDPPublisher periodically pulls the current FFT textures from a Source and
// sends each one as a packet. It runs in its own goroutine between Start and
// Stop.
type UDPPublisher struct {
	sender   PacketSender
	source   Source
	interval time.Duration
	now      func() time.Time

	ticker   *time.Ticker
	doneChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	sequenceNum  uint32
	packetBuffer bytes.Buffer
	truncated    map[string]int // Spectrum length last warned about, per name.
}

// NewUDPPublisher creates a publisher. An interval <= 0 defaults to 16ms.
func NewUDPPublisher(interval time.Duration, sender PacketSender, source Source) (*UDPPublisher, error) {
	if sender == nil {
		return nil, errors.New("UDPPublisher: UDP sender cannot be nil")
	}
	if source == nil {
		return nil, errors.New("UDPPublisher: spectrum source cannot be nil")
	}
	if interval <= 0 {
		interval = 16 * time.Millisecond
		log.Warnf("UDPPublisher: invalid interval provided, defaulting to %s", interval)
	}

	log.Infof("UDPPublisher: initializing (interval: %s)", interval)
	return &UDPPublisher{
		sender:    sender,
		source:    source,
		interval:  interval,
		now:       time.Now,
		truncated: make(map[string]int),
	}, nil
}

// Start launches the publishing goroutine. Calling Start while running is a
// no-op.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		log.Warnf("UDPPublisher: Start called but already running")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ticker.C:
				p.Publish()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the goroutine to exit and waits for it. Safe to call more
// than once.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	close(p.doneChan)
	p.ticker.Stop()
	p.ticker = nil
	p.mu.Unlock()

	p.wg.Wait()
	log.Debugf("UDPPublisher: stopped after %d packets", p.sequenceNum)
	return nil
}

// Publish sends one packet per spectrum currently offered by the source and
// returns the number sent. It must not run concurrently with itself; the
// publishing goroutine is its only caller while started.
func (p *UDPPublisher) Publish() int {
	sent := 0
	timestamp := p.now().UnixNano()
	for _, s := range p.source.Spectra() {
		values := s.Values
		if len(values) > MaxValues {
			if p.truncated[s.Name] != len(values) {
				log.Warnf("UDPPublisher: truncating %s from %d to %d values", s.Name, len(values), MaxValues)
				p.truncated[s.Name] = len(values)
			}
			values = values[:MaxValues]
		}

		p.sequenceNum++
		err := EncodePacket(&p.packetBuffer, Packet{
			Sequence:  p.sequenceNum,
			Timestamp: timestamp,
			Name:      s.Name,
			Values:    values,
		})
		if err != nil {
			log.Errorf("UDPPublisher: error packing %s: %v", s.Name, err)
			continue
		}
		// The sender logs its own failures.
		if err := p.sender.Send(p.packetBuffer.Bytes()); err == nil {
			sent++
		}
	}
	return sent
}

// Close stops the publisher.
func (p *UDPPublisher) Close() error {
	return p.Stop()
}

var _ interface{ Close() error } = (*UDPPublisher)(nil)
