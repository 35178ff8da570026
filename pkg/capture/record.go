// Package capture records TIO packets seen by a transport into a
// length-prefixed stream of encoded records.
package capture

import (
	"fmt"
	"net"
	"time"

	"github.com/appnet-org/tio/pkg/packet"
)

// Direction tells whether a packet was received or sent.
type Direction uint8

const (
	DirectionIn  Direction = 1
	DirectionOut Direction = 2
)

func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "in"
	case DirectionOut:
		return "out"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// Record is one captured packet.
type Record struct {
	Time      time.Time
	Direction Direction
	Peer      string
	Type      packet.Type
	Payload   []byte
	Routing   []byte
}

// NewRecord copies the interesting parts of p into a Record.
func NewRecord(now time.Time, dir Direction, peer *net.UDPAddr, p *packet.Packet) Record {
	r := Record{
		Time:      now,
		Direction: dir,
		Type:      p.Type(),
		Payload:   cloneBytes(p.PayloadData()),
		Routing:   cloneBytes(p.RoutingData()),
	}
	if peer != nil {
		r.Peer = peer.String()
	}
	return r
}

// Packet rebuilds the captured packet.
func (r Record) Packet() (*packet.Packet, error) {
	p, err := packet.New(r.Type, r.Payload)
	if err != nil {
		return nil, err
	}
	if err := p.SetRouting(r.Routing); err != nil {
		return nil, err
	}
	return p, nil
}

func (r Record) String() string {
	return fmt.Sprintf("%s %s %s %s payload=%d route=%s",
		r.Time.Format(time.RFC3339Nano), r.Direction, r.Peer, r.Type, len(r.Payload), packet.FormatRoute(r.Routing))
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return append([]byte(nil), b...)
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
