// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"tuner/internal/pitch"
)

/*
UDP Packet Structure (BigEndian)

+--------------------------------------------------------------------------+
| Field            | Data Type | Size (Bytes) | Description                |
|------------------|-----------|--------------|----------------------------|
| Sequence Number  | uint32    | 4            | Estimate sequence number   |
| Timestamp        | int64     | 8            | Nanoseconds since epoch    |
| Frequency        | float32   | 4            | Detected frequency in Hz   |
| Cents            | int16     | 2            | Deviation from the note    |
| Nearest          | int16     | 2            | Note number (A4 = 69)      |
| Name Length      | uint8     | 1            | Length N of the note name  |
| Name             | []byte    | N            | Note name, e.g. "A#2"      |
+--------------------------------------------------------------------------+
*/

// headerSize is the packet length without the name.
const headerSize = 4 + 8 + 4 + 2 + 2 + 1

// ErrShortPacket is returned when a packet is truncated.
var ErrShortPacket = errors.New("short packet")

// Packet is the decoded form of one datagram.
type Packet struct {
	Seq       uint32
	Timestamp int64
	Frequency float32
	Cents     int16
	Nearest   int16
	Name      string
}

// PacketFromEstimate converts an estimate to its wire form.
func PacketFromEstimate(est pitch.Estimate) Packet {
	return Packet{
		Seq:       uint32(est.Seq),
		Timestamp: est.Time.UnixNano(),
		Frequency: float32(est.Frequency),
		Cents:     int16(est.Cents),
		Nearest:   int16(est.Nearest),
		Name:      est.Note,
	}
}

// AppendBinary appends the encoded packet to b. Names longer than 255 bytes
// are truncated.
func (p Packet) AppendBinary(b []byte) []byte {
	name := p.Name
	if len(name) > math.MaxUint8 {
		name = name[:math.MaxUint8]
	}
	b = binary.BigEndian.AppendUint32(b, p.Seq)
	b = binary.BigEndian.AppendUint64(b, uint64(p.Timestamp))
	b = binary.BigEndian.AppendUint32(b, math.Float32bits(p.Frequency))
	b = binary.BigEndian.AppendUint16(b, uint16(p.Cents))
	b = binary.BigEndian.AppendUint16(b, uint16(p.Nearest))
	b = append(b, uint8(len(name)))
	return append(b, name...)
}

// ParsePacket decodes one datagram.
func ParsePacket(b []byte) (Packet, error) {
	if len(b) < headerSize {
		return Packet{}, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(b))
	}
	p := Packet{
		Seq:       binary.BigEndian.Uint32(b[0:4]),
		Timestamp: int64(binary.BigEndian.Uint64(b[4:12])),
		Frequency: math.Float32frombits(binary.BigEndian.Uint32(b[12:16])),
		Cents:     int16(binary.BigEndian.Uint16(b[16:18])),
		Nearest:   int16(binary.BigEndian.Uint16(b[18:20])),
	}
	n := int(b[20])
	if len(b) < headerSize+n {
		return Packet{}, fmt.Errorf("%w: name needs %d bytes, have %d", ErrShortPacket, n, len(b)-headerSize)
	}
	p.Name = string(b[headerSize : headerSize+n])
	return p, nil
}
