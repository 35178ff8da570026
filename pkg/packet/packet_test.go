package packet

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderEncodeDecode(t *testing.T) {
	h := Header{Type: TypeRPCRequest, RoutingSize: 2, PayloadSize: 0x0102}
	b := EncodeHeader(h)
	require.Equal(t, []byte{0x02, 0x02, 0x02, 0x01}, b)

	got, err := DecodeHeader(b)
	require.NoError(t, err)
	require.Equal(t, h, got)

	_, err = DecodeHeader(b[:3])
	require.ErrorIs(t, err, ErrTruncated)
}

func TestHeaderValidate(t *testing.T) {
	require.NoError(t, Header{PayloadSize: MaxPayloadSize, RoutingSize: MaxRoutingSize}.Validate())
	require.ErrorIs(t, Header{RoutingSize: MaxRoutingSize + 1}.Validate(), ErrTooManyHops)
	require.ErrorIs(t, Header{PayloadSize: MaxPayloadSize + 1}.Validate(), ErrPayloadTooLarge)
}

func TestTotalSize(t *testing.T) {
	for _, payload := range []int{0, 1, 100, MaxPayloadSize} {
		for routing := 0; routing <= MaxRoutingSize; routing++ {
			h := Header{PayloadSize: uint16(payload), RoutingSize: uint8(routing)}
			require.Equal(t, HeaderSize+payload+routing, h.TotalSize())
			require.LessOrEqual(t, h.TotalSize(), MaxSize)
		}
	}
	require.Equal(t, MaxSize, Header{PayloadSize: MaxPayloadSize, RoutingSize: MaxRoutingSize}.TotalSize())
}

func TestNewPacket(t *testing.T) {
	p, err := New(TypeLog, []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, TypeLog, p.Type())
	require.Equal(t, 5, p.PayloadSize())
	require.Equal(t, 0, p.RoutingSize())
	require.Equal(t, []byte("hello"), p.PayloadData())
	require.Equal(t, HeaderSize+5, p.TotalSize())

	_, err = New(TypeLog, make([]byte, MaxPayloadSize+1))
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestPayloadDataDoesNotOverrunTrailer(t *testing.T) {
	p, err := New(TypeUser, []byte{1, 2, 3})
	require.NoError(t, err)
	_, err = p.PushHop(9)
	require.NoError(t, err)

	data := p.PayloadData()
	require.Equal(t, 3, cap(data))
	_ = append(data, 0xff)
	require.Equal(t, []byte{9}, p.RoutingData())
}

func TestRoutingOffsetFollowsPayloadSize(t *testing.T) {
	p := &Packet{}
	for _, n := range []int{0, 1, 7, 250, MaxPayloadSize} {
		require.NoError(t, p.SetPayloadSize(n))
		require.Equal(t, HeaderSize+n, p.RoutingOffset())

		_, err := p.PushHop(byte(n))
		require.NoError(t, err)
		require.Equal(t, byte(n), p.Bytes()[HeaderSize+n])
		hop, err := p.PopHop()
		require.NoError(t, err)
		require.Equal(t, byte(n), hop)
	}
}

func TestSetPayloadSizeLimits(t *testing.T) {
	p := &Packet{}
	require.ErrorIs(t, p.SetPayloadSize(MaxPayloadSize+1), ErrPayloadTooLarge)
	require.ErrorIs(t, p.SetPayloadSize(-1), ErrPayloadTooLarge)
	require.Equal(t, 0, p.PayloadSize())

	copy(p.PayloadBuffer(), "abc")
	require.NoError(t, p.SetPayloadSize(3))
	require.Equal(t, []byte("abc"), p.PayloadData())

	// a full trailer still leaves room for the largest payload
	require.NoError(t, p.SetRouting([]byte{1, 2, 3, 4, 5, 6, 7, 8}))
	require.NoError(t, p.SetPayloadSize(MaxPayloadSize))
	require.Equal(t, MaxSize, p.TotalSize())

	require.ErrorIs(t, p.SetPayload(make([]byte, MaxPayloadSize+1)), ErrPayloadTooLarge)
	require.Equal(t, MaxPayloadSize, p.PayloadSize())
}

func TestStreamID(t *testing.T) {
	for i := 0; i < 256; i++ {
		h := Header{Type: Type(i)}
		id, ok := h.StreamID()
		if i < int(TypeStream0) {
			require.False(t, ok, "type %d", i)
			continue
		}
		require.True(t, ok, "type %d", i)
		require.Equal(t, i-128, id)
	}
}

func TestStreamType(t *testing.T) {
	st, err := StreamType(3)
	require.NoError(t, err)
	require.Equal(t, Type(131), st)
	require.Equal(t, "stream3", st.String())

	_, err = StreamType(MaxStreamID + 1)
	require.Error(t, err)
}

func TestMarshalUnmarshal(t *testing.T) {
	p, err := New(TypeRPCReply, []byte{0xaa, 0xbb})
	require.NoError(t, err)
	require.NoError(t, p.SetRouting([]byte{3, 1}))

	wire, err := p.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, []byte{3, 2, 2, 0, 0xaa, 0xbb, 3, 1}, wire)

	got, err := Decode(wire)
	require.NoError(t, err)
	require.Equal(t, p.Header(), got.Header())
	require.Equal(t, p.PayloadData(), got.PayloadData())
	require.Equal(t, p.RoutingData(), got.RoutingData())
}

func TestUnmarshalRejectsBadInput(t *testing.T) {
	p, err := New(TypeLog, []byte("keep"))
	require.NoError(t, err)
	before := p.Clone()

	cases := []struct {
		name string
		data []byte
		err  error
	}{
		{"short header", []byte{1, 0}, ErrTruncated},
		{"truncated payload", []byte{1, 0, 4, 0, 'a'}, ErrTruncated},
		{"trailing bytes", []byte{1, 0, 1, 0, 'a', 'b'}, ErrSizeMismatch},
		{"routing too long", append([]byte{1, 9, 0, 0}, make([]byte, 9)...), ErrTooManyHops},
		{"payload too long", []byte{1, 0, 0xff, 0x01}, ErrPayloadTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, p.UnmarshalBinary(tc.data), tc.err)
			require.Equal(t, before.Bytes(), p.Bytes())
		})
	}
}

func TestAppendBinary(t *testing.T) {
	p, err := New(TypeLog, []byte("x"))
	require.NoError(t, err)

	out, err := p.AppendBinary([]byte("pre"))
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("pre")))
	require.Equal(t, p.Bytes(), out[3:])
}

func TestCloneIsIndependent(t *testing.T) {
	p, err := New(TypeLog, []byte("x"))
	require.NoError(t, err)
	cp := p.Clone()
	_, err = cp.PushHop(4)
	require.NoError(t, err)
	require.Equal(t, 0, p.RoutingSize())
	require.Equal(t, 1, cp.RoutingSize())
}

func TestPacketString(t *testing.T) {
	p, err := New(TypeRPCRequest, []byte("ping"))
	require.NoError(t, err)
	require.NoError(t, p.SetRouting([]byte{3, 1}))
	require.Equal(t, "rpc_request payload=4 route=/3/1/", p.String())
}
