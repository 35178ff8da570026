package capture

import (
	"fmt"

	"github.com/appnet-org/tio/pkg/packet"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the protobuf record message:
//
//	message Record {
//	  int64  time_unix_nano = 1;
//	  uint32 direction      = 2;
//	  string peer           = 3;
//	  uint32 type           = 4;
//	  bytes  payload        = 5;
//	  bytes  routing        = 6;
//	}
const (
	fieldTime      protowire.Number = 1
	fieldDirection protowire.Number = 2
	fieldPeer      protowire.Number = 3
	fieldType      protowire.Number = 4
	fieldPayload   protowire.Number = 5
	fieldRouting   protowire.Number = 6
)

type protoCodec struct{}

// Proto returns a codec writing records in protobuf wire format.
func Proto() Codec { return protoCodec{} }

func (protoCodec) Name() string { return "proto" }

func (protoCodec) Marshal(r Record) ([]byte, error) {
	b := make([]byte, 0, 32+len(r.Payload)+len(r.Routing)+len(r.Peer))
	if n := unixNano(r.Time); n != 0 {
		b = protowire.AppendTag(b, fieldTime, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(n))
	}
	b = protowire.AppendTag(b, fieldDirection, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Direction))
	if r.Peer != "" {
		b = protowire.AppendTag(b, fieldPeer, protowire.BytesType)
		b = protowire.AppendString(b, r.Peer)
	}
	b = protowire.AppendTag(b, fieldType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Type))
	if len(r.Payload) > 0 {
		b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
		b = protowire.AppendBytes(b, r.Payload)
	}
	if len(r.Routing) > 0 {
		b = protowire.AppendTag(b, fieldRouting, protowire.BytesType)
		b = protowire.AppendBytes(b, r.Routing)
	}
	return b, nil
}

func (protoCodec) Unmarshal(data []byte) (Record, error) {
	var r Record
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return Record{}, fmt.Errorf("capture: proto tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case typ == protowire.VarintType && (num == fieldTime || num == fieldDirection || num == fieldType):
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return Record{}, fmt.Errorf("capture: proto field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
			switch num {
			case fieldTime:
				r.Time = fromUnixNano(int64(v))
			case fieldDirection:
				r.Direction = Direction(v)
			case fieldType:
				if v > 0xff {
					return Record{}, fmt.Errorf("capture: proto packet type %d out of range", v)
				}
				r.Type = packet.Type(v)
			}
		case typ == protowire.BytesType && (num == fieldPeer || num == fieldPayload || num == fieldRouting):
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return Record{}, fmt.Errorf("capture: proto field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
			switch num {
			case fieldPeer:
				r.Peer = string(v)
			case fieldPayload:
				r.Payload = cloneBytes(v)
			case fieldRouting:
				r.Routing = cloneBytes(v)
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return Record{}, fmt.Errorf("capture: proto field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return r, nil
}
