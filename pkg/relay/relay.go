// Package relay forwards source-routed TIO packets between UDP peers.
//
// A packet travelling away from the host carries its remaining path in the
// routing trailer. Each relay pops one hop, looks the hop up in a static
// table and forwards the packet; a packet that arrives with an empty trailer
// has reached its last relay and is handed to the deliver address.
//
// A packet arriving from one of the table's addresses travels back toward
// the host. The relay pushes the hop of the peer it came from and sends the
// packet upstream, so the host receives the full return path.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/appnet-org/tio/pkg/logging"
	"github.com/appnet-org/tio/pkg/packet"
	"github.com/appnet-org/tio/pkg/transport"
	"go.uber.org/zap"
)

var (
	ErrNoRoute   = errors.New("relay: no route for hop")
	ErrNoDeliver = errors.New("relay: routing trailer empty and no deliver address")

	// ErrDuplicatePeer means two hops resolve to one address, which would
	// make the return hop for that peer ambiguous.
	ErrDuplicatePeer = errors.New("relay: peer address used by more than one hop")
)

const statsJob JobKey = "stats"

// Options configures a Relay. Addresses are resolved once, in New.
type Options struct {
	// Routes maps a hop to the address of the peer behind it.
	Routes map[byte]string
	// Deliver receives packets whose trailer is empty on arrival.
	Deliver string
	// Upstream receives packets coming back from a peer in Routes. Return
	// traffic is forwarded like any other packet when it is empty.
	Upstream string
	// StatsInterval enables periodic stats logging when positive.
	StatsInterval time.Duration
}

// Stats counts what the relay did with received packets.
type Stats struct {
	Forwarded uint64
	Delivered uint64
	Returned  uint64
	Dropped   uint64
}

type Relay struct {
	t        *transport.UDPTransport
	routes   map[byte]*net.UDPAddr
	reverse  map[string]byte
	deliver  *net.UDPAddr
	upstream *net.UDPAddr
	interval time.Duration
	sched    *Scheduler

	forwarded atomic.Uint64
	delivered atomic.Uint64
	returned  atomic.Uint64
	dropped   atomic.Uint64
}

// New creates a relay sending and receiving on t.
func New(t *transport.UDPTransport, opts Options) (*Relay, error) {
	r := &Relay{
		t:        t,
		routes:   make(map[byte]*net.UDPAddr, len(opts.Routes)),
		reverse:  make(map[string]byte, len(opts.Routes)),
		interval: opts.StatsInterval,
		sched:    NewScheduler(),
	}

	for hop, addr := range opts.Routes {
		udpAddr, err := t.Resolve(addr)
		if err != nil {
			return nil, fmt.Errorf("route %d: %w", hop, err)
		}
		key := udpAddr.String()
		if other, dup := r.reverse[key]; dup {
			return nil, fmt.Errorf("%w: hops %d and %d both map to %s", ErrDuplicatePeer, other, hop, key)
		}
		r.routes[hop] = udpAddr
		r.reverse[key] = hop
	}

	var err error
	if opts.Deliver != "" {
		if r.deliver, err = t.Resolve(opts.Deliver); err != nil {
			return nil, fmt.Errorf("deliver: %w", err)
		}
	}
	if opts.Upstream != "" {
		if r.upstream, err = t.Resolve(opts.Upstream); err != nil {
			return nil, fmt.Errorf("upstream: %w", err)
		}
	}
	return r, nil
}

// Next pops the next hop from p and returns the address it maps to. An
// empty trailer maps to the deliver address. p is unchanged on error.
func (r *Relay) Next(p *packet.Packet) (*net.UDPAddr, error) {
	hop, err := p.PopHop()
	if errors.Is(err, packet.ErrRoutingEmpty) {
		if r.deliver == nil {
			return nil, ErrNoDeliver
		}
		return r.deliver, nil
	}

	addr, ok := r.routes[hop]
	if !ok {
		// restore the trailer so the caller sees the packet as it arrived
		_, _ = p.PushHop(hop)
		return nil, fmt.Errorf("%w %d", ErrNoRoute, hop)
	}
	return addr, nil
}

// Return pushes the hop of the peer p came from and returns the upstream
// address. ok is false when from is not a known peer or no upstream is set.
func (r *Relay) Return(p *packet.Packet, from *net.UDPAddr) (addr *net.UDPAddr, ok bool, err error) {
	if r.upstream == nil || from == nil {
		return nil, false, nil
	}
	hop, known := r.reverse[from.String()]
	if !known {
		return nil, false, nil
	}
	if _, err := p.PushHop(hop); err != nil {
		return nil, true, err
	}
	return r.upstream, true, nil
}

// Handle routes one received packet and sends it on.
func (r *Relay) Handle(p *packet.Packet, from *net.UDPAddr) error {
	route := packet.FormatRoute(p.RoutingData())

	var counter *atomic.Uint64
	next, upstream, err := r.Return(p, from)
	switch {
	case err != nil:
	case upstream:
		counter = &r.returned
	case p.RoutingSize() == 0:
		counter = &r.delivered
		next, err = r.Next(p)
	default:
		counter = &r.forwarded
		next, err = r.Next(p)
	}
	if err != nil {
		r.dropped.Add(1)
		logging.Warn("Dropping packet",
			zap.Stringer("from", from),
			zap.Stringer("type", p.Type()),
			zap.String("route", route),
			zap.Error(err))
		return err
	}

	logging.Debug("Forwarding packet",
		zap.Stringer("from", from),
		zap.Stringer("to", next),
		zap.Stringer("type", p.Type()),
		zap.String("routeIn", route),
		zap.String("routeOut", packet.FormatRoute(p.RoutingData())))

	if err := r.t.SendTo(next, p); err != nil {
		r.dropped.Add(1)
		return err
	}
	counter.Add(1)
	return nil
}

// Run receives and forwards packets until ctx is cancelled. Cancelling ctx
// closes the transport.
func (r *Relay) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = r.t.Close() })
	defer stop()

	if r.interval > 0 {
		r.sched.Every(statsJob, r.interval, r.logStats)
		defer r.sched.Cancel(statsJob)
	}

	logging.Info("Relay started",
		zap.Stringer("listen", r.t.LocalAddr()),
		zap.Int("routes", len(r.routes)),
		zap.Stringer("deliver", r.deliver),
		zap.Stringer("upstream", r.upstream))

	for {
		p, from, err := r.t.Receive()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			logging.Debug("Receive failed", zap.Stringer("from", from), zap.Error(err))
			continue
		}
		_ = r.Handle(p, from)
	}
}

// Stats returns the relay counters.
func (r *Relay) Stats() Stats {
	return Stats{
		Forwarded: r.forwarded.Load(),
		Delivered: r.delivered.Load(),
		Returned:  r.returned.Load(),
		Dropped:   r.dropped.Load(),
	}
}

func (r *Relay) logStats() {
	s := r.Stats()
	ts := r.t.Stats()
	logging.Info("Relay stats",
		zap.Uint64("forwarded", s.Forwarded),
		zap.Uint64("delivered", s.Delivered),
		zap.Uint64("returned", s.Returned),
		zap.Uint64("dropped", s.Dropped+ts.Dropped),
		zap.Uint64("bytesIn", ts.BytesReceived),
		zap.Uint64("bytesOut", ts.BytesSent))
}

// Close stops background jobs and closes the transport.
func (r *Relay) Close() error {
	r.sched.Stop()
	if err := r.t.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
