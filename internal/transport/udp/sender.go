// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"shaderfx/internal/log"
)

// ErrSenderClosed is returned by Send after Close.
var ErrSenderClosed = errors.New("UDP sender is closed")

// UDPSender writes datagrams to a single target address.
type UDPSender struct {
	conn       *net.UDPConn
	targetAddr *net.UDPAddr
	mu         sync.Mutex // Protects conn during Close.
	closed     bool
	failures   atomic.Uint64
}

// NewUDPSender dials targetAddress, given as "host:port".
func NewUDPSender(targetAddress string) (*UDPSender, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP target address '%s': %w", targetAddress, err)
	}

	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial UDP for target '%s': %w", targetAddress, err)
	}

	log.Infof("UDPSender: connection established to %s", conn.RemoteAddr())
	return &UDPSender{conn: conn, targetAddr: udpAddr}, nil
}

// Target returns the resolved destination.
func (s *UDPSender) Target() *net.UDPAddr {
	return s.targetAddr
}

// Send transmits data as one datagram. Only the first failure is logged;
// a missing receiver otherwise floods the log at frame rate.
func (s *UDPSender) Send(data []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSenderClosed
	}
	_, err := s.conn.Write(data)
	s.mu.Unlock()

	if err != nil {
		if s.failures.Add(1) == 1 {
			log.Warnf("UDPSender: error sending packet to %s: %v", s.targetAddr, err)
		}
		return fmt.Errorf("failed to send UDP packet: %w", err)
	}
	return nil
}

// Failures returns the number of failed sends.
func (s *UDPSender) Failures() uint64 {
	return s.failures.Load()
}

func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	log.Debugf("UDPSender: closing connection to %s", s.targetAddr)
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close UDP connection: %w", err)
	}
	return nil
}

var _ interface{ Close() error } = (*UDPSender)(nil)
