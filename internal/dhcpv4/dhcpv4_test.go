package dhcpv4

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildMessage(msgType byte, includeCookie bool) []byte {
	buf := make([]byte, bootpHeaderSize)
	buf[0] = 1 // BOOTREQUEST
	copy(buf[12:16], []byte{10, 0, 0, 5})   // ciaddr
	copy(buf[16:20], []byte{10, 0, 0, 100}) // yiaddr
	copy(buf[20:24], []byte{10, 0, 0, 1})   // siaddr
	copy(buf[24:28], []byte{10, 0, 0, 1})   // giaddr
	copy(buf[28:34], []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x01})

	if includeCookie {
		buf = append(buf, 0x63, 0x82, 0x53, 0x63)
	}
	buf = append(buf, optionMsg, 0x01, msgType)
	buf = append(buf, optionEnd)
	return buf
}

func TestParseDiscover(t *testing.T) {
	payload := buildMessage(1, true)
	rec, ok := Parse(payload, time.Unix(0, 0))
	require.True(t, ok)

	assert.EqualValues(t, 1, rec.MessageType)
	assert.Equal(t, "de:ad:be:ef:00:01", rec.ClientMAC)
	assert.Equal(t, "10.0.0.100", rec.YourAddress)
}

func TestParseRejectsMissingCookie(t *testing.T) {
	payload := buildMessage(1, false)
	_, ok := Parse(payload, time.Unix(0, 0))
	assert.False(t, ok)
}

func TestParseRejectsTooShort(t *testing.T) {
	_, ok := Parse([]byte{1, 2, 3}, time.Unix(0, 0))
	assert.False(t, ok)
}

func TestParseRejectsMissingMessageTypeOption(t *testing.T) {
	buf := make([]byte, bootpHeaderSize)
	buf = append(buf, 0x63, 0x82, 0x53, 0x63)
	buf = append(buf, optionEnd)
	_, ok := Parse(buf, time.Unix(0, 0))
	assert.False(t, ok)
}
