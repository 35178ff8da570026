package capture

import (
	"capnproto.org/go/capnp/v3"

	"github.com/appnet-org/tio/pkg/packet"
)

// Struct layout of a capnp record:
//
//	struct Record {
//	  timeUnixNano @0 :Int64;  # data word 0
//	  direction    @1 :UInt8;  # data byte 8
//	  type         @2 :UInt8;  # data byte 9
//	  peer         @3 :Text;   # pointer 0
//	  payload      @4 :Data;   # pointer 1
//	  routing      @5 :Data;   # pointer 2
//	}
var capnpRecordSize = capnp.ObjectSize{DataSize: 16, PointerCount: 3}

type capnpCodec struct{}

// Capnp returns a codec writing each record as a single-segment Cap'n Proto message.
func Capnp() Codec { return capnpCodec{} }

func (capnpCodec) Name() string { return "capnp" }

func (capnpCodec) Marshal(r Record) ([]byte, error) {
	msg, seg, err := capnp.NewMessage(capnp.SingleSegment(nil))
	if err != nil {
		return nil, err
	}
	st, err := capnp.NewRootStruct(seg, capnpRecordSize)
	if err != nil {
		return nil, err
	}

	st.SetUint64(0, uint64(unixNano(r.Time)))
	st.SetUint8(8, uint8(r.Direction))
	st.SetUint8(9, uint8(r.Type))
	if err := st.SetText(0, r.Peer); err != nil {
		return nil, err
	}
	if len(r.Payload) > 0 {
		if err := st.SetData(1, r.Payload); err != nil {
			return nil, err
		}
	}
	if len(r.Routing) > 0 {
		if err := st.SetData(2, r.Routing); err != nil {
			return nil, err
		}
	}
	return msg.Marshal()
}

func (capnpCodec) Unmarshal(data []byte) (Record, error) {
	msg, err := capnp.Unmarshal(data)
	if err != nil {
		return Record{}, err
	}
	root, err := msg.Root()
	if err != nil {
		return Record{}, err
	}
	st := root.Struct()

	peer, err := st.Ptr(0)
	if err != nil {
		return Record{}, err
	}
	payload, err := st.Ptr(1)
	if err != nil {
		return Record{}, err
	}
	routing, err := st.Ptr(2)
	if err != nil {
		return Record{}, err
	}

	return Record{
		Time:      fromUnixNano(int64(st.Uint64(0))),
		Direction: Direction(st.Uint8(8)),
		Type:      packet.Type(st.Uint8(9)),
		Peer:      peer.Text(),
		Payload:   cloneBytes(payload.Data()),
		Routing:   cloneBytes(routing.Data()),
	}, nil
}
