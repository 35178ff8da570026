package packet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushPopRoundTrip(t *testing.T) {
	p, err := New(TypeRPCRequest, []byte("payload"))
	require.NoError(t, err)
	require.NoError(t, p.SetRouting([]byte{1, 2}))

	n, err := p.PushHop(42)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	hop, err := p.PopHop()
	require.NoError(t, err)
	require.Equal(t, byte(42), hop)
	require.Equal(t, 2, p.RoutingSize())
	require.Equal(t, []byte("payload"), p.PayloadData())
}

func TestPopIsLIFO(t *testing.T) {
	p := &Packet{}
	for _, h := range []byte{10, 20, 30} {
		_, err := p.PushHop(h)
		require.NoError(t, err)
	}

	next, ok := p.NextHop()
	require.True(t, ok)
	require.Equal(t, byte(30), next)

	for _, want := range []byte{30, 20, 10} {
		hop, err := p.PopHop()
		require.NoError(t, err)
		require.Equal(t, want, hop)
	}
}

func TestPushFullTrailer(t *testing.T) {
	p := &Packet{}
	for i := 0; i < MaxRoutingSize; i++ {
		n, err := p.PushHop(byte(i + 1))
		require.NoError(t, err)
		require.Equal(t, i+1, n)
	}

	n, err := p.PushHop(99)
	require.ErrorIs(t, err, ErrRoutingFull)
	require.Equal(t, MaxRoutingSize, n)
	require.Equal(t, MaxRoutingSize, p.RoutingSize())
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, p.RoutingData())
}

func TestPushFullPacket(t *testing.T) {
	p, err := New(TypeUser, make([]byte, MaxPayloadSize))
	require.NoError(t, err)
	for i := 0; i < MaxRoutingSize; i++ {
		_, err := p.PushHop(byte(i))
		require.NoError(t, err)
	}
	require.Equal(t, MaxSize, p.TotalSize())

	n, err := p.PushHop(0xff)
	require.ErrorIs(t, err, ErrRoutingFull)
	require.Equal(t, MaxRoutingSize, n)
	require.Equal(t, MaxSize, p.TotalSize())
	require.Equal(t, []byte{0, 1, 2, 3, 4, 5, 6, 7}, p.RoutingData())
}

func TestPopEmptyTrailer(t *testing.T) {
	p, err := New(TypeLog, []byte("abc"))
	require.NoError(t, err)
	before := p.Header()

	_, err = p.PopHop()
	require.ErrorIs(t, err, ErrRoutingEmpty)
	require.Equal(t, before, p.Header())

	_, ok := p.NextHop()
	require.False(t, ok)
}

func TestSetRoutingTooLong(t *testing.T) {
	p := &Packet{}
	require.ErrorIs(t, p.SetRouting(make([]byte, MaxRoutingSize+1)), ErrTooManyHops)
	require.Equal(t, 0, p.RoutingSize())
}
