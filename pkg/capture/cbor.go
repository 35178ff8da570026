package capture

import (
	cbor "github.com/fxamacker/cbor/v2"

	"github.com/appnet-org/tio/pkg/packet"
)

type cborRecord struct {
	TimeUnixNano int64  `cbor:"1,keyasint,omitempty"`
	Direction    uint8  `cbor:"2,keyasint"`
	Peer         string `cbor:"3,keyasint,omitempty"`
	Type         uint8  `cbor:"4,keyasint"`
	Payload      []byte `cbor:"5,keyasint,omitempty"`
	Routing      []byte `cbor:"6,keyasint,omitempty"`
}

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// CBOR returns a codec writing records as canonical CBOR maps with integer keys.
func CBOR() (Codec, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return nil, err
	}
	return cborCodec{enc: em, dec: dm}, nil
}

func (cborCodec) Name() string { return "cbor" }

func (c cborCodec) Marshal(r Record) ([]byte, error) {
	return c.enc.Marshal(cborRecord{
		TimeUnixNano: unixNano(r.Time),
		Direction:    uint8(r.Direction),
		Peer:         r.Peer,
		Type:         uint8(r.Type),
		Payload:      r.Payload,
		Routing:      r.Routing,
	})
}

func (c cborCodec) Unmarshal(data []byte) (Record, error) {
	var w cborRecord
	if err := c.dec.Unmarshal(data, &w); err != nil {
		return Record{}, err
	}
	return Record{
		Time:      fromUnixNano(w.TimeUnixNano),
		Direction: Direction(w.Direction),
		Peer:      w.Peer,
		Type:      packet.Type(w.Type),
		Payload:   cloneBytes(w.Payload),
		Routing:   cloneBytes(w.Routing),
	}, nil
}
