package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint16(t *testing.T) {
	buf := []byte{0x12, 0x34, 0x00}
	v, err := Uint16(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), v)

	_, err = Uint16(buf, 2)
	assert.Equal(t, ErrTruncated, err)
}

func TestUint32(t *testing.T) {
	buf := []byte{0, 0, 1, 0}
	v, err := Uint32(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(256), v)

	_, err = Uint32(buf, 1)
	assert.Equal(t, ErrTruncated, err)
}

func TestIPv4(t *testing.T) {
	buf := []byte{192, 168, 1, 1}
	s, err := IPv4(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.1", s)

	_, err = IPv4(buf[:3], 0)
	assert.Equal(t, ErrTruncated, err)
}

func TestIPv6(t *testing.T) {
	buf := []byte{0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}
	s, err := IPv6(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "2001:db8::1", s)

	_, err = IPv6(buf[:10], 0)
	require.Error(t, err)
	assert.Equal(t, "wire: invalid IPv6 address length", err.Error())
}

func TestBytes(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	out, err := Bytes(buf, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 3}, out)

	// Mutating the returned copy must not affect buf.
	out[0] = 99
	assert.Equal(t, byte(2), buf[1])

	_, err = Bytes(buf, 3, 5)
	assert.Equal(t, ErrTruncated, err)
}
