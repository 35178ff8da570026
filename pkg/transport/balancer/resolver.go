package balancer

import (
	"fmt"
	"math/rand/v2"
	"net"
	"strconv"
	"strings"

	"github.com/appnet-org/tio/pkg/logging"
	"go.uber.org/zap"
)

// Balancer picks one address among those a host name resolved to.
type Balancer interface {
	Name() string
	Pick(host string, ips []net.IP) net.IP
}

// RandomBalancer picks a random address.
type RandomBalancer struct{}

func NewRandomBalancer() *RandomBalancer { return &RandomBalancer{} }

func (*RandomBalancer) Name() string { return "random" }

func (*RandomBalancer) Pick(_ string, ips []net.IP) net.IP {
	if len(ips) == 0 {
		return nil
	}
	return ips[rand.IntN(len(ips))]
}

// FirstBalancer picks the first IPv4 address, or the first address if there
// is no IPv4 one.
type FirstBalancer struct{}

func NewFirstBalancer() *FirstBalancer { return &FirstBalancer{} }

func (*FirstBalancer) Name() string { return "first" }

func (*FirstBalancer) Pick(_ string, ips []net.IP) net.IP {
	for _, ip := range ips {
		if ip.To4() != nil {
			return ip
		}
	}
	if len(ips) > 0 {
		return ips[0]
	}
	return nil
}

// ByName returns the balancer registered under name.
func ByName(name string) (Balancer, error) {
	switch name {
	case "", "random":
		return NewRandomBalancer(), nil
	case "first":
		return NewFirstBalancer(), nil
	default:
		return nil, fmt.Errorf("unknown balancer %q", name)
	}
}

// Resolver turns relay and device addresses into UDP addresses. Host names
// resolving to several IPs are narrowed down by the balancer.
type Resolver struct {
	balancer Balancer
	lookup   func(host string) ([]net.IP, error)
}

func NewResolver(balancer Balancer) *Resolver {
	return &Resolver{
		balancer: balancer,
		lookup:   net.LookupIP,
	}
}

// ResolveUDPTarget resolves "host:port", ":port" or "". A missing host
// means the IPv4 wildcard, so the last two forms are listen addresses.
func (r *Resolver) ResolveUDPTarget(addr string) (*net.UDPAddr, error) {
	host, port, err := splitTarget(addr)
	if err != nil {
		return nil, err
	}
	if host == "" {
		return &net.UDPAddr{IP: net.IPv4zero, Port: port}, nil
	}
	if ip := net.ParseIP(host); ip != nil {
		return &net.UDPAddr{IP: ip, Port: port}, nil
	}

	ips, err := r.lookup(host)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", host, err)
	}
	ip := r.balancer.Pick(host, ips)
	if ip == nil {
		return nil, fmt.Errorf("resolve %s: no usable address among %d", host, len(ips))
	}

	logging.Debug("Resolved peer",
		zap.String("target", addr),
		zap.Stringer("ip", ip),
		zap.Int("candidates", len(ips)),
		zap.String("balancer", r.balancer.Name()))
	return &net.UDPAddr{IP: ip, Port: port}, nil
}

func splitTarget(addr string) (host string, port int, err error) {
	if addr == "" {
		return "", 0, nil
	}

	var portStr string
	if p, ok := strings.CutPrefix(addr, ":"); ok && !strings.Contains(p, ":") {
		portStr = p
	} else if host, portStr, err = net.SplitHostPort(addr); err != nil {
		return "", 0, fmt.Errorf("invalid address %q: %w", addr, err)
	}

	port, err = strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 0xffff {
		return "", 0, fmt.Errorf("invalid address %q: bad port %q", addr, portStr)
	}
	return host, port, nil
}

// DefaultResolver resolves with a RandomBalancer.
func DefaultResolver() *Resolver {
	return NewResolver(NewRandomBalancer())
}
