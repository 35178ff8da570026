package packet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRoutingPath(t *testing.T) {
	cases := []struct {
		path string
		want []byte
	}{
		{"/3/1/", []byte{3, 1}},
		{"3/1", []byte{3, 1}},
		{"/3/1", []byte{3, 1}},
		{"3/1/", []byte{3, 1}},
		{"", []byte{}},
		{"/", []byte{}},
		{"0", []byte{0}},
		{"/255/", []byte{255}},
		{"/007/", []byte{7}},
		{"/1/2/3/4/5/6/7/8/", []byte{1, 2, 3, 4, 5, 6, 7, 8}},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			var routing [MaxRoutingSize]byte
			n, err := ParseRoutingPath(tc.path, routing[:])
			require.NoError(t, err)
			require.Equal(t, len(tc.want), n)
			require.Equal(t, tc.want, routing[:n])
		})
	}
}

func TestParseRoutingPathErrors(t *testing.T) {
	cases := []struct {
		path string
		err  error
	}{
		{"/256/", ErrMalformedPath},
		{"/1/2/3/4/5/6/7/8/9/", ErrTooManyHops},
		{"//", ErrMalformedPath},
		{"/1//2/", ErrMalformedPath},
		{"///1", ErrMalformedPath},
		{"/a/", ErrMalformedPath},
		{"/-1/", ErrMalformedPath},
		{"/+1/", ErrMalformedPath},
		{"/1 /", ErrMalformedPath},
		{"/99999999999999999999/", ErrMalformedPath},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			routing := []byte{0xee, 0xee, 0xee, 0xee, 0xee, 0xee, 0xee, 0xee}
			_, err := ParseRoutingPath(tc.path, routing)
			require.ErrorIs(t, err, tc.err)
			require.Equal(t, []byte{0xee, 0xee, 0xee, 0xee, 0xee, 0xee, 0xee, 0xee}, routing)
		})
	}
}

func TestParseRoutingPathShortBuffer(t *testing.T) {
	_, err := ParseRoutingPath("/1/", make([]byte, MaxRoutingSize-1))
	require.ErrorIs(t, err, ErrShortBuffer)
}

func TestFormatRoutingPath(t *testing.T) {
	buf := make([]byte, RoutingFormatBufSize)

	n, err := FormatRoutingPath([]byte{3, 1}, buf)
	require.NoError(t, err)
	require.Equal(t, "/3/1/", string(buf[:n]))

	n, err = FormatRoutingPath(nil, buf)
	require.NoError(t, err)
	require.Equal(t, "/", string(buf[:n]))

	worst := []byte{255, 255, 255, 255, 255, 255, 255, 255}
	n, err = FormatRoutingPath(worst, buf)
	require.NoError(t, err)
	require.Equal(t, "/255/255/255/255/255/255/255/255/", string(buf[:n]))
	require.Less(t, n, RoutingFormatBufSize)
}

func TestFormatRoutingPathErrors(t *testing.T) {
	buf := []byte("xxxx")
	_, err := FormatRoutingPath([]byte{3, 1}, buf)
	require.ErrorIs(t, err, ErrShortBuffer)
	require.Equal(t, "xxxx", string(buf))

	_, err = FormatRoutingPath(make([]byte, MaxRoutingSize+1), make([]byte, 64))
	require.ErrorIs(t, err, ErrTooManyHops)
}

func TestRoutingPathRoundTrip(t *testing.T) {
	routes := [][]byte{
		{},
		{0},
		{3, 1},
		{9, 10, 99, 100, 255},
		{255, 0, 255, 0, 255, 0, 255, 0},
	}
	for i := 0; i < 256; i++ {
		routes = append(routes, []byte{byte(i), byte(255 - i), byte(i / 2)})
	}

	for _, hops := range routes {
		s := FormatRoute(hops)
		got, err := ParseRoute(s)
		require.NoError(t, err)
		require.Equal(t, Route(hops), got, s)
		require.Equal(t, s, got.String())
	}

	for _, s := range []string{"3/1", "/3/1", "3/1/"} {
		r, err := ParseRoute(s)
		require.NoError(t, err)
		require.Equal(t, "/3/1/", r.String())
	}
}

func TestFormattedLen(t *testing.T) {
	require.Equal(t, 1, FormattedLen(nil))
	require.Equal(t, len("/3/1/"), FormattedLen([]byte{3, 1}))
	require.Equal(t, len("/10/100/9/"), FormattedLen([]byte{10, 100, 9}))
}
