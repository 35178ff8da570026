package capture

import (
	"net"
	"time"

	"github.com/appnet-org/tio/pkg/logging"
	"github.com/appnet-org/tio/pkg/packet"
	"go.uber.org/zap"
)

// Handler is a transport handler that records every packet it sees. Capture
// failures are logged and never drop the packet.
type Handler struct {
	w   *Writer
	now func() time.Time
}

// NewHandler creates a handler writing to w.
func NewHandler(w *Writer) *Handler {
	return &Handler{w: w, now: time.Now}
}

func (h *Handler) OnReceive(p *packet.Packet, addr *net.UDPAddr) error {
	h.record(DirectionIn, addr, p)
	return nil
}

func (h *Handler) OnSend(p *packet.Packet, addr *net.UDPAddr) error {
	h.record(DirectionOut, addr, p)
	return nil
}

func (h *Handler) record(dir Direction, addr *net.UDPAddr, p *packet.Packet) {
	if err := h.w.Write(NewRecord(h.now(), dir, addr, p)); err != nil {
		logging.Warn("Failed to capture packet",
			zap.Stringer("direction", dir),
			zap.Stringer("type", p.Type()),
			zap.Error(err))
	}
}
