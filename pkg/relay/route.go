package relay

import "github.com/appnet-org/tio/pkg/packet"

// BuildRoute turns a traversal path, listed first relay first, into trailer
// order so that the first relay pops the first hop.
func BuildRoute(traversal []byte) (packet.Route, error) {
	if len(traversal) > packet.MaxRoutingSize {
		return nil, packet.ErrTooManyHops
	}
	route := make(packet.Route, len(traversal))
	for i, hop := range traversal {
		route[len(traversal)-1-i] = hop
	}
	return route, nil
}

// ParseTraversal parses a path such as "/1/3/" listed in travel order and
// returns it in trailer order.
func ParseTraversal(path string) (packet.Route, error) {
	hops, err := packet.ParseRoute(path)
	if err != nil {
		return nil, err
	}
	return BuildRoute(hops)
}

// Traversal returns the hops left in p in travel order.
func Traversal(p *packet.Packet) []byte {
	rd := p.RoutingData()
	out := make([]byte, len(rd))
	for i, hop := range rd {
		out[len(rd)-1-i] = hop
	}
	return out
}
