// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

/*
UDP Packet Structure (BigEndian), one packet per spectrum texture

+-------------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description               |
|-------------------|----------------|--------------|---------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing  |
| Timestamp         | int64          | 8            | Nanoseconds since epoch   |
| Name Length       | uint8          | 1            | Length of the name (L)    |
| Name              | []byte         | L            | Uniform name, UTF-8       |
| Value Count       | uint16         | 2            | Number of floats (N)      |
| Values            | []float32      | N * 4        | Spectrum magnitudes       |
+-------------------------------------------------------------------------------+
*/

const (
	headerSize  = 4 + 8 + 1 + 2
	maxNameLen  = math.MaxUint8
	maxDatagram = 65507 // IPv4 UDP payload limit.

	// MaxValues is the largest spectrum that fits one datagram with a
	// maximum length name.
	MaxValues = (maxDatagram - headerSize - maxNameLen) / 4
)

var ErrShortPacket = errors.New("short UDP packet")

// Packet is the decoded form of one datagram.
type Packet struct {
	Sequence  uint32
	Timestamp int64
	Name      string
	Values    []float32
}

// EncodePacket resets buf and writes one packet into it. Names longer than
// 255 bytes and spectra longer than MaxValues are rejected.
func EncodePacket(buf *bytes.Buffer, p Packet) error {
	if len(p.Name) > maxNameLen {
		return fmt.Errorf("name %q exceeds %d bytes", p.Name, maxNameLen)
	}
	if len(p.Values) > MaxValues {
		return fmt.Errorf("spectrum of %d values exceeds %d", len(p.Values), MaxValues)
	}

	buf.Reset()
	buf.Grow(headerSize + len(p.Name) + 4*len(p.Values))

	var scratch [8]byte
	binary.BigEndian.PutUint32(scratch[:4], p.Sequence)
	buf.Write(scratch[:4])
	binary.BigEndian.PutUint64(scratch[:], uint64(p.Timestamp))
	buf.Write(scratch[:])
	buf.WriteByte(uint8(len(p.Name)))
	buf.WriteString(p.Name)
	binary.BigEndian.PutUint16(scratch[:2], uint16(len(p.Values)))
	buf.Write(scratch[:2])
	for _, v := range p.Values {
		binary.BigEndian.PutUint32(scratch[:4], math.Float32bits(v))
		buf.Write(scratch[:4])
	}
	return nil
}

// DecodePacket parses a datagram produced by EncodePacket.
func DecodePacket(data []byte) (Packet, error) {
	var p Packet
	if len(data) < headerSize {
		return p, ErrShortPacket
	}
	p.Sequence = binary.BigEndian.Uint32(data[0:4])
	p.Timestamp = int64(binary.BigEndian.Uint64(data[4:12]))
	nameLen := int(data[12])
	rest := data[13:]
	if len(rest) < nameLen+2 {
		return p, ErrShortPacket
	}
	p.Name = string(rest[:nameLen])
	rest = rest[nameLen:]
	count := int(binary.BigEndian.Uint16(rest[:2]))
	rest = rest[2:]
	if len(rest) < 4*count {
		return p, ErrShortPacket
	}
	p.Values = make([]float32, count)
	for i := range p.Values {
		p.Values[i] = math.Float32frombits(binary.BigEndian.Uint32(rest[4*i:]))
	}
	return p, nil
}
