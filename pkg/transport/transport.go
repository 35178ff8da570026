// Package transport carries TIO packets over UDP, one packet per datagram.
package transport

import (
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/appnet-org/tio/pkg/logging"
	"github.com/appnet-org/tio/pkg/packet"
	"github.com/appnet-org/tio/pkg/transport/balancer"
	"github.com/colega/zeropool"
	"go.uber.org/zap"
)

// ErrOversized is returned for datagrams larger than packet.MaxSize.
var ErrOversized = errors.New("transport: datagram exceeds maximum packet size")

// receive buffers are one byte larger than a packet so oversized datagrams
// are detected instead of silently truncated
const datagramBufferSize = packet.MaxSize + 1

// Stats is a snapshot of transport counters.
type Stats struct {
	PacketsSent     uint64
	PacketsReceived uint64
	BytesSent       uint64
	BytesReceived   uint64
	Dropped         uint64
}

type UDPTransport struct {
	conn     *net.UDPConn
	resolver *balancer.Resolver
	chain    *HandlerChain
	buffers  zeropool.Pool[[]byte]

	packetsSent     atomic.Uint64
	packetsReceived atomic.Uint64
	bytesSent       atomic.Uint64
	bytesReceived   atomic.Uint64
	dropped         atomic.Uint64
}

func NewUDPTransport(address string) (*UDPTransport, error) {
	return NewUDPTransportWithResolver(address, balancer.DefaultResolver())
}

// NewUDPTransportWithResolver creates a UDP transport bound to address that
// resolves destination names with resolver.
func NewUDPTransportWithResolver(address string, resolver *balancer.Resolver) (*UDPTransport, error) {
	udpAddr, err := resolver.ResolveUDPTarget(address)
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}

	t := &UDPTransport{
		conn:     conn,
		resolver: resolver,
		chain:    NewHandlerChain("udp"),
		buffers: zeropool.New(func() []byte {
			return make([]byte, datagramBufferSize)
		}),
	}

	logging.Debug("UDP transport listening", zap.Stringer("addr", conn.LocalAddr()))
	return t, nil
}

// Resolve turns an address string into a UDP address using the transport's resolver.
func (t *UDPTransport) Resolve(addr string) (*net.UDPAddr, error) {
	return t.resolver.ResolveUDPTarget(addr)
}

// Send resolves addr and sends p to it.
func (t *UDPTransport) Send(addr string, p *packet.Packet) error {
	udpAddr, err := t.Resolve(addr)
	if err != nil {
		return err
	}
	return t.SendTo(udpAddr, p)
}

// SendTo runs p through the handler chain and writes it as one datagram.
func (t *UDPTransport) SendTo(addr *net.UDPAddr, p *packet.Packet) error {
	if err := p.Header().Validate(); err != nil {
		return err
	}
	if err := t.chain.OnSend(p, addr); err != nil {
		t.dropped.Add(1)
		return err
	}

	n, err := t.conn.WriteToUDP(p.Bytes(), addr)
	if err != nil {
		return fmt.Errorf("write to %s: %w", addr, err)
	}
	t.packetsSent.Add(1)
	t.bytesSent.Add(uint64(n))
	return nil
}

// Receive blocks until a valid packet arrives and returns it with its sender.
// Malformed datagrams and packets rejected by the handler chain are returned
// as errors; the transport stays usable. After Close it returns net.ErrClosed.
func (t *UDPTransport) Receive() (*packet.Packet, *net.UDPAddr, error) {
	buf := t.buffers.Get()
	defer t.buffers.Put(buf)

	n, addr, err := t.conn.ReadFromUDP(buf)
	if err != nil {
		return nil, nil, err
	}
	t.bytesReceived.Add(uint64(n))

	if n > packet.MaxSize {
		t.dropped.Add(1)
		return nil, addr, fmt.Errorf("%w: from %s", ErrOversized, addr)
	}

	p, err := packet.Decode(buf[:n])
	if err != nil {
		t.dropped.Add(1)
		return nil, addr, fmt.Errorf("decode from %s: %w", addr, err)
	}

	if err := t.chain.OnReceive(p, addr); err != nil {
		t.dropped.Add(1)
		return nil, addr, err
	}

	t.packetsReceived.Add(1)
	return p, addr, nil
}

// Chain returns the handler chain applied to every packet.
func (t *UDPTransport) Chain() *HandlerChain {
	return t.chain
}

// Stats returns the current counters.
func (t *UDPTransport) Stats() Stats {
	return Stats{
		PacketsSent:     t.packetsSent.Load(),
		PacketsReceived: t.packetsReceived.Load(),
		BytesSent:       t.bytesSent.Load(),
		BytesReceived:   t.bytesReceived.Load(),
		Dropped:         t.dropped.Load(),
	}
}

// SetReadDeadline bounds the next Receive calls.
func (t *UDPTransport) SetReadDeadline(deadline time.Time) error {
	return t.conn.SetReadDeadline(deadline)
}

// LocalAddr returns the local UDP address of the transport
func (t *UDPTransport) LocalAddr() *net.UDPAddr {
	return t.conn.LocalAddr().(*net.UDPAddr)
}

func (t *UDPTransport) Close() error {
	return t.conn.Close()
}
