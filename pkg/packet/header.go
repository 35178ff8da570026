package packet

import (
	"encoding/binary"
	"fmt"
)

const (
	// HeaderSize is the packed wire size of Header: Type(1) + RoutingSize(1) + PayloadSize(2).
	HeaderSize = 4

	// MaxSize is the maximum size of a complete packet.
	MaxSize = 512

	// MaxRoutingSize is the space at the end of a packet reserved for routing.
	MaxRoutingSize = 8

	// MaxPayloadSize is the largest payload that still leaves room for a full trailer.
	MaxPayloadSize = MaxSize - HeaderSize - MaxRoutingSize
)

// Header is the fixed descriptor at the start of every packet.
// Wire format: [Type(1B)][RoutingSize(1B)][PayloadSize(2B, little endian)]
type Header struct {
	Type        Type
	RoutingSize uint8
	PayloadSize uint16
}

// TotalSize returns the size of the whole packet described by h. The fields
// are not validated.
func (h Header) TotalSize() int {
	return HeaderSize + int(h.PayloadSize) + int(h.RoutingSize)
}

// RoutingOffset is where the routing trailer starts, counted from the first
// header byte. It moves with PayloadSize.
func (h Header) RoutingOffset() int {
	return HeaderSize + int(h.PayloadSize)
}

// StreamID returns the stream number carried by a stream data packet.
// ok is false for every other packet type.
func (h Header) StreamID() (id int, ok bool) {
	return h.Type.StreamID()
}

// Validate checks the header fields against the size limits.
func (h Header) Validate() error {
	if h.RoutingSize > MaxRoutingSize {
		return fmt.Errorf("%w: routing size %d > %d", ErrTooManyHops, h.RoutingSize, MaxRoutingSize)
	}
	if h.PayloadSize > MaxPayloadSize {
		return fmt.Errorf("%w: payload size %d > %d", ErrPayloadTooLarge, h.PayloadSize, MaxPayloadSize)
	}
	if h.TotalSize() > MaxSize {
		return fmt.Errorf("%w: %d bytes", ErrPacketTooLarge, h.TotalSize())
	}
	return nil
}

// PutHeader writes h into the first HeaderSize bytes of b.
func PutHeader(b []byte, h Header) {
	_ = b[HeaderSize-1]
	b[0] = byte(h.Type)
	b[1] = h.RoutingSize
	binary.LittleEndian.PutUint16(b[2:4], h.PayloadSize)
}

// EncodeHeader returns the wire form of h.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	PutHeader(buf, h)
	return buf
}

// DecodeHeader reads a header from the first HeaderSize bytes of b. It does
// not validate the sizes; see Header.Validate.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header needs %d bytes, got %d", ErrTruncated, HeaderSize, len(b))
	}
	return Header{
		Type:        Type(b[0]),
		RoutingSize: b[1],
		PayloadSize: binary.LittleEndian.Uint16(b[2:4]),
	}, nil
}
