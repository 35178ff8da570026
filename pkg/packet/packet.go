package packet

import (
	"encoding/binary"
	"fmt"
)

// Packet is a complete TIO packet held in a fixed MaxSize buffer laid out
// exactly as on the wire: header, payload, routing trailer.
//
// The trailer has no fixed offset. It always starts right after the live
// payload bytes, so changing the payload size moves it logically without
// moving any stored bytes. Set the payload first, then the route.
//
// A Packet is not safe for concurrent use.
type Packet struct {
	buf [MaxSize]byte
}

// New creates a packet of type t carrying a copy of payload and no routing.
func New(t Type, payload []byte) (*Packet, error) {
	p := &Packet{}
	p.SetType(t)
	if err := p.SetPayload(payload); err != nil {
		return nil, err
	}
	return p, nil
}

// Decode parses a packet from its wire form.
func Decode(data []byte) (*Packet, error) {
	p := &Packet{}
	if err := p.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return p, nil
}

// Header returns a copy of the current header fields.
func (p *Packet) Header() Header {
	return Header{
		Type:        Type(p.buf[0]),
		RoutingSize: p.buf[1],
		PayloadSize: binary.LittleEndian.Uint16(p.buf[2:4]),
	}
}

// Type returns the packet type.
func (p *Packet) Type() Type { return Type(p.buf[0]) }

// SetType sets the packet type.
func (p *Packet) SetType(t Type) { p.buf[0] = byte(t) }

// RoutingSize returns the number of hops currently in the trailer.
func (p *Packet) RoutingSize() int { return int(p.buf[1]) }

func (p *Packet) setRoutingSize(n int) { p.buf[1] = byte(n) }

// PayloadSize returns the number of live payload bytes.
func (p *Packet) PayloadSize() int { return int(binary.LittleEndian.Uint16(p.buf[2:4])) }

func (p *Packet) setPayloadSize(n int) { binary.LittleEndian.PutUint16(p.buf[2:4], uint16(n)) }

// TotalSize returns HeaderSize + PayloadSize + RoutingSize.
func (p *Packet) TotalSize() int {
	return HeaderSize + p.PayloadSize() + p.RoutingSize()
}

// StreamID returns the stream number for stream data packets.
func (p *Packet) StreamID() (int, bool) {
	return p.Type().StreamID()
}

// PayloadData returns the live payload bytes. The slice aliases the packet
// and its capacity ends at the payload, so appending to it never overwrites
// the trailer.
func (p *Packet) PayloadData() []byte {
	end := HeaderSize + p.PayloadSize()
	return p.buf[HeaderSize:end:end]
}

// PayloadBuffer returns the whole payload region (MaxPayloadSize bytes) for
// in-place writes. Follow it with SetPayloadSize.
func (p *Packet) PayloadBuffer() []byte {
	return p.buf[HeaderSize : HeaderSize+MaxPayloadSize]
}

// RoutingOffset returns the offset of the first trailer byte from the start
// of the packet. It is derived from the current payload size on every call.
func (p *Packet) RoutingOffset() int {
	return HeaderSize + p.PayloadSize()
}

// RoutingData returns the live trailer bytes, index 0 being the first hop
// pushed. Do not keep the slice across a payload size change.
func (p *Packet) RoutingData() []byte {
	off := p.RoutingOffset()
	end := off + p.RoutingSize()
	return p.buf[off:end:end]
}

// SetPayloadSize sets the number of live payload bytes without touching the
// buffer contents.
func (p *Packet) SetPayloadSize(n int) error {
	if n < 0 || n > MaxPayloadSize {
		return fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, n, MaxPayloadSize)
	}
	p.setPayloadSize(n)
	return nil
}

// SetPayload copies data into the payload region and sets the payload size.
func (p *Packet) SetPayload(data []byte) error {
	if err := p.SetPayloadSize(len(data)); err != nil {
		return err
	}
	copy(p.buf[HeaderSize:], data)
	return nil
}

// SetRouting replaces the trailer with route, for example the output of
// ParseRoutingPath.
func (p *Packet) SetRouting(route []byte) error {
	if len(route) > MaxRoutingSize {
		return fmt.Errorf("%w: %d > %d", ErrTooManyHops, len(route), MaxRoutingSize)
	}
	copy(p.buf[p.RoutingOffset():], route)
	p.setRoutingSize(len(route))
	return nil
}

// Route returns a copy of the trailer.
func (p *Packet) Route() Route {
	return Route(append([]byte(nil), p.RoutingData()...))
}

// Bytes returns the wire form of the packet. The slice aliases the packet.
func (p *Packet) Bytes() []byte {
	return p.buf[:p.TotalSize()]
}

// AppendBinary appends the wire form of the packet to b.
func (p *Packet) AppendBinary(b []byte) ([]byte, error) {
	if err := p.Header().Validate(); err != nil {
		return b, err
	}
	return append(b, p.Bytes()...), nil
}

// MarshalBinary returns a copy of the wire form of the packet.
func (p *Packet) MarshalBinary() ([]byte, error) {
	return p.AppendBinary(make([]byte, 0, p.TotalSize()))
}

// UnmarshalBinary replaces p with the packet encoded in data. data must hold
// exactly one packet. p is left unchanged on error.
func (p *Packet) UnmarshalBinary(data []byte) error {
	h, err := DecodeHeader(data)
	if err != nil {
		return err
	}
	if err := h.Validate(); err != nil {
		return err
	}
	switch total := h.TotalSize(); {
	case len(data) < total:
		return fmt.Errorf("%w: header declares %d bytes, got %d", ErrTruncated, total, len(data))
	case len(data) > total:
		return fmt.Errorf("%w: header declares %d bytes, got %d", ErrSizeMismatch, total, len(data))
	}
	copy(p.buf[:], data)
	return nil
}

// Reset clears the header. Stored bytes are left in place.
func (p *Packet) Reset() {
	PutHeader(p.buf[:], Header{})
}

// Clone returns an independent copy of p.
func (p *Packet) Clone() *Packet {
	cp := *p
	return &cp
}

func (p *Packet) String() string {
	return fmt.Sprintf("%s payload=%d route=%s", p.Type(), p.PayloadSize(), FormatRoute(p.RoutingData()))
}
