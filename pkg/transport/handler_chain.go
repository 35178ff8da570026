package transport

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/appnet-org/tio/pkg/logging"
	"github.com/appnet-org/tio/pkg/packet"
	"go.uber.org/zap"
)

// Handler inspects or rewrites packets as they pass through a transport.
// Returning an error drops the packet.
type Handler interface {
	OnReceive(p *packet.Packet, addr *net.UDPAddr) error
	OnSend(p *packet.Packet, addr *net.UDPAddr) error
}

// HandlerChain runs a list of handlers in order.
type HandlerChain struct {
	name     string
	mu       sync.RWMutex
	handlers []Handler
}

// NewHandlerChain creates a new handler chain
func NewHandlerChain(name string, handlers ...Handler) *HandlerChain {
	return &HandlerChain{
		name:     name,
		handlers: handlers,
	}
}

func (hc *HandlerChain) AddHandler(handler Handler) {
	hc.mu.Lock()
	hc.handlers = append(hc.handlers, handler)
	hc.mu.Unlock()
}

// RemoveHandler removes a handler from the chain
func (hc *HandlerChain) RemoveHandler(handler Handler) bool {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	for i, h := range hc.handlers {
		if h == handler {
			hc.handlers = append(hc.handlers[:i:i], hc.handlers[i+1:]...)
			return true
		}
	}
	return false
}

// Handlers returns a copy of the handlers slice
func (hc *HandlerChain) Handlers() []Handler {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	handlers := make([]Handler, len(hc.handlers))
	copy(handlers, hc.handlers)
	return handlers
}

// OnReceive processes a packet through the receive chain
func (hc *HandlerChain) OnReceive(p *packet.Packet, addr *net.UDPAddr) error {
	for i, handler := range hc.Handlers() {
		if err := handler.OnReceive(p, addr); err != nil {
			logging.Debug("Handler rejected received packet",
				zap.String("chainName", hc.name),
				zap.Int("handlerIndex", i),
				zap.Error(err))
			return fmt.Errorf("handler %d in chain %s failed: %w", i, hc.name, err)
		}
	}
	return nil
}

// OnSend processes a packet through the send chain
func (hc *HandlerChain) OnSend(p *packet.Packet, addr *net.UDPAddr) error {
	for i, handler := range hc.Handlers() {
		if err := handler.OnSend(p, addr); err != nil {
			logging.Debug("Handler rejected outgoing packet",
				zap.String("chainName", hc.name),
				zap.Int("handlerIndex", i),
				zap.Error(err))
			return fmt.Errorf("handler %d in chain %s failed: %w", i, hc.name, err)
		}
	}
	return nil
}

// LoggingHandler logs every packet at debug level.
type LoggingHandler struct {
	Name string
}

func (l LoggingHandler) OnReceive(p *packet.Packet, addr *net.UDPAddr) error {
	logging.Debug("Received packet",
		zap.String("transport", l.Name),
		zap.Stringer("from", addr),
		zap.Stringer("type", p.Type()),
		zap.Int("payloadSize", p.PayloadSize()),
		zap.String("route", packet.FormatRoute(p.RoutingData())))
	return nil
}

func (l LoggingHandler) OnSend(p *packet.Packet, addr *net.UDPAddr) error {
	logging.Debug("Sending packet",
		zap.String("transport", l.Name),
		zap.Stringer("to", addr),
		zap.Stringer("type", p.Type()),
		zap.Int("payloadSize", p.PayloadSize()),
		zap.String("route", packet.FormatRoute(p.RoutingData())))
	return nil
}

var ErrFiltered = errors.New("transport: packet type filtered")

// TypeFilter drops packets whose type is not allowed.
type TypeFilter struct {
	allow func(packet.Type) bool
}

// NewTypeFilter creates a filter passing only packets for which allow returns true.
func NewTypeFilter(allow func(packet.Type) bool) *TypeFilter {
	return &TypeFilter{allow: allow}
}

func (f *TypeFilter) check(p *packet.Packet) error {
	if f.allow != nil && !f.allow(p.Type()) {
		return fmt.Errorf("%w: %s", ErrFiltered, p.Type())
	}
	return nil
}

func (f *TypeFilter) OnReceive(p *packet.Packet, _ *net.UDPAddr) error { return f.check(p) }

func (f *TypeFilter) OnSend(p *packet.Packet, _ *net.UDPAddr) error { return f.check(p) }
