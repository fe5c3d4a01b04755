// Package wire provides pure, bounds-checked readers over a byte slice:
// fixed-width big-endian integers and IPv4/IPv6 address bytes. Every reader
// declares the minimum slice length it requires and returns an error instead
// of panicking when the slice is too short. Grounded on the inline
// binary.BigEndian bounds checks in straticus1-dnsscienced's DNS packet
// parser, factored out into standalone functions so both the name decoder
// and the message parser can share them.
package wire

import (
	"encoding/binary"
	"errors"
	"net"
)

// ErrTruncated indicates the slice is shorter than the reader requires.
var ErrTruncated = errors.New("wire: truncated input")

// Uint16 reads a big-endian uint16 at offset.
func Uint16(buf []byte, offset int) (uint16, error) {
	if offset < 0 || offset+2 > len(buf) {
		return 0, ErrTruncated
	}
	return binary.BigEndian.Uint16(buf[offset : offset+2]), nil
}

// Uint32 reads a big-endian uint32 at offset.
func Uint32(buf []byte, offset int) (uint32, error) {
	if offset < 0 || offset+4 > len(buf) {
		return 0, ErrTruncated
	}
	return binary.BigEndian.Uint32(buf[offset : offset+4]), nil
}

// IPv4 reads exactly 4 bytes at offset and renders them as a dotted-quad.
func IPv4(buf []byte, offset int) (string, error) {
	if offset < 0 || offset+4 > len(buf) {
		return "", ErrTruncated
	}
	ip := net.IPv4(buf[offset], buf[offset+1], buf[offset+2], buf[offset+3])
	return ip.String(), nil
}

// IPv6 reads exactly 16 bytes at offset and renders them in lower-cased
// colon-hex form. The error text correctly says "IPv6" (see DESIGN.md for
// the IPv4/IPv6 copy-paste bug this corrects).
func IPv6(buf []byte, offset int) (string, error) {
	if offset < 0 || offset+16 > len(buf) {
		return "", errors.New("wire: invalid IPv6 address length")
	}
	ip := make(net.IP, 16)
	copy(ip, buf[offset:offset+16])
	return ip.String(), nil
}

// Bytes returns a copy of n bytes starting at offset, so callers never hold
// a slice into the caller-owned backing array longer than necessary.
func Bytes(buf []byte, offset, n int) ([]byte, error) {
	if offset < 0 || n < 0 || offset+n > len(buf) {
		return nil, ErrTruncated
	}
	out := make([]byte, n)
	copy(out, buf[offset:offset+n])
	return out, nil
}
