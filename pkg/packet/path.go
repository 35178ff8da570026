package packet

import (
	"fmt"
	"strconv"
	"strings"
)

// RoutingFormatBufSize is the buffer size that always fits a formatted route:
// up to three digits and a separator per hop, the leading separator, and one
// spare byte kept for firmware interop (NUL terminator).
const RoutingFormatBufSize = MaxRoutingSize*4 + 2

// Route is a sequence of hops in trailer order: index 0 was pushed first and
// the last element is popped next.
type Route []byte

// ParseRoute parses a routing path such as "/3/1/" into a Route.
func ParseRoute(path string) (Route, error) {
	var hops [MaxRoutingSize]byte
	n, err := ParseRoutingPath(path, hops[:])
	if err != nil {
		return nil, err
	}
	r := make(Route, n)
	copy(r, hops[:n])
	return r, nil
}

func (r Route) String() string {
	return FormatRoute(r)
}

// ParseRoutingPath parses a path of '/' separated decimal hops into routing,
// which must hold at least MaxRoutingSize bytes. The leading and trailing '/'
// are optional and "" or "/" is the empty route. Hops are stored in the order
// they appear. It returns the number of hops; routing is not modified on error.
func ParseRoutingPath(path string, routing []byte) (int, error) {
	if len(routing) < MaxRoutingSize {
		return 0, fmt.Errorf("%w: routing needs %d bytes, got %d", ErrShortBuffer, MaxRoutingSize, len(routing))
	}

	s := strings.TrimPrefix(path, "/")
	s = strings.TrimSuffix(s, "/")
	if s == "" {
		if len(path) > 1 {
			return 0, fmt.Errorf("%w %q: empty segment", ErrMalformedPath, path)
		}
		return 0, nil
	}

	var hops [MaxRoutingSize]byte
	n := 0
	for _, seg := range strings.Split(s, "/") {
		if n == MaxRoutingSize {
			return 0, fmt.Errorf("%w: %q has more than %d segments", ErrTooManyHops, path, MaxRoutingSize)
		}
		hop, err := parseHop(seg)
		if err != nil {
			return 0, fmt.Errorf("%w %q: %v", ErrMalformedPath, path, err)
		}
		hops[n] = hop
		n++
	}

	copy(routing, hops[:n])
	return n, nil
}

func parseHop(seg string) (byte, error) {
	if seg == "" {
		return 0, fmt.Errorf("empty segment")
	}
	for i := 0; i < len(seg); i++ {
		if seg[i] < '0' || seg[i] > '9' {
			return 0, fmt.Errorf("segment %q is not a decimal number", seg)
		}
	}
	v, err := strconv.ParseUint(seg, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("segment %q out of range 0-255", seg)
	}
	return byte(v), nil
}

// FormattedLen returns the number of bytes FormatRoutingPath writes for routing.
func FormattedLen(routing []byte) int {
	n := 1
	for _, h := range routing {
		switch {
		case h >= 100:
			n += 4
		case h >= 10:
			n += 3
		default:
			n += 2
		}
	}
	return n
}

// FormatRoutingPath writes routing as "/h0/h1/.../" into buf and returns the
// number of bytes written. An empty route formats as "/". Nothing is written
// when buf is too small; RoutingFormatBufSize bytes always suffice.
func FormatRoutingPath(routing []byte, buf []byte) (int, error) {
	if len(routing) > MaxRoutingSize {
		return 0, fmt.Errorf("%w: %d > %d", ErrTooManyHops, len(routing), MaxRoutingSize)
	}
	if need := FormattedLen(routing); len(buf) < need {
		return 0, fmt.Errorf("%w: path needs %d bytes, got %d", ErrShortBuffer, need, len(buf))
	}
	return len(AppendRoutingPath(buf[:0], routing)), nil
}

// AppendRoutingPath appends the formatted form of routing to dst.
func AppendRoutingPath(dst []byte, routing []byte) []byte {
	dst = append(dst, '/')
	for _, h := range routing {
		dst = strconv.AppendUint(dst, uint64(h), 10)
		dst = append(dst, '/')
	}
	return dst
}

// FormatRoute returns the formatted form of routing.
func FormatRoute(routing []byte) string {
	var buf [RoutingFormatBufSize]byte
	return string(AppendRoutingPath(buf[:0], routing))
}
