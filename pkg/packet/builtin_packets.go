// This file defines the builtin packet types understood by the firmware and the
// names they are logged under.
package packet

import (
	"fmt"
	"strconv"
)

// Type is the packet type tag carried in the first header byte.
type Type uint8

// Builtin packet types
const (
	TypeInvalid    Type = 0
	TypeLog        Type = 1 // Log messages
	TypeRPCRequest Type = 2
	TypeRPCReply   Type = 3
	TypeRPCError   Type = 4
	TypeStreamDesc Type = 5 // Description of data in a stream
	TypeUser       Type = 6 // First user-defined type

	// TypeStream0 is the data type of stream 0. Stream N uses TypeStream0+N.
	TypeStream0 Type = 128
)

// MaxStreamID is the highest stream number a type tag can encode.
const MaxStreamID = 255 - int(TypeStream0)

// StreamType returns the packet type carrying data for stream n.
func StreamType(n int) (Type, error) {
	if n < 0 || n > MaxStreamID {
		return TypeInvalid, fmt.Errorf("packet: stream id %d out of range [0, %d]", n, MaxStreamID)
	}
	return TypeStream0 + Type(n), nil
}

// StreamID returns t-TypeStream0 when t is a stream data type.
func (t Type) StreamID() (int, bool) {
	if t < TypeStream0 {
		return 0, false
	}
	return int(t - TypeStream0), true
}

// IsStream reports whether t carries stream data.
func (t Type) IsStream() bool {
	return t >= TypeStream0
}

func (t Type) String() string {
	if name, ok := DefaultRegistry.Name(t); ok {
		return name
	}
	return "type" + strconv.Itoa(int(t))
}

var builtinTypes = []struct {
	id   Type
	name string
}{
	{TypeLog, "log"},
	{TypeRPCRequest, "rpc_request"},
	{TypeRPCReply, "rpc_reply"},
	{TypeRPCError, "rpc_error"},
	{TypeStreamDesc, "stream_desc"},
}
