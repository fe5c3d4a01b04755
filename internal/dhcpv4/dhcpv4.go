// Package dhcpv4 provides a minimal, shape-level DHCPv4 decoder: just
// enough of RFC 2131 to recognise a well-formed BOOTP/DHCP message and
// extract its message type and addresses. Full option parsing is out of
// scope; this is one of the classifier's two independent parser attempts
// per datagram. Grounded on straticus1-dnsscienced/internal/packet's
// bounds-checked header decode style, narrowed to BOOTP's fixed layout.
package dhcpv4

import (
	"time"

	"github.com/l7tap/l7tap/internal/model"
	"github.com/l7tap/l7tap/internal/wire"
)

const (
	bootpHeaderSize = 236
	magicCookie     = 0x63825363

	optionEnd = 255
	optionPad = 0
	optionMsg = 53
)

// Parse attempts to decode payload as a DHCPv4 message. It returns false
// for anything that doesn't match the fixed BOOTP header plus magic
// cookie plus a message-type option — the caller treats this the same as
// a DNS-parse rejection: the datagram simply isn't tagged.
func Parse(payload []byte, ts time.Time) (*model.DHCPv4Record, bool) {
	if len(payload) < bootpHeaderSize+4 {
		return nil, false
	}

	cookie, err := wire.Uint32(payload, bootpHeaderSize)
	if err != nil || cookie != magicCookie {
		return nil, false
	}

	clientMAC, err := wire.Bytes(payload, 28, 6)
	if err != nil {
		return nil, false
	}
	yourIP, err := wire.IPv4(payload, 16)
	if err != nil {
		return nil, false
	}
	serverIP, err := wire.IPv4(payload, 20)
	if err != nil {
		return nil, false
	}
	gatewayIP, err := wire.IPv4(payload, 24)
	if err != nil {
		return nil, false
	}
	clientIP, err := wire.IPv4(payload, 12)
	if err != nil {
		return nil, false
	}

	msgType, ok := findMessageType(payload[bootpHeaderSize+4:])
	if !ok {
		return nil, false
	}

	return &model.DHCPv4Record{
		MessageType:    msgType,
		ClientMAC:      formatMAC(clientMAC),
		ClientAddress:  clientIP,
		YourAddress:    yourIP,
		ServerAddress:  serverIP,
		GatewayAddress: gatewayIP,
		Timestamp:      ts,
	}, true
}

// findMessageType scans the variable-length options area for option 53
// (DHCP Message Type). It stops at option 255 (End) or when it runs out
// of bytes to read a further option header.
func findMessageType(options []byte) (model.DHCPv4MessageType, bool) {
	cursor := 0
	for cursor < len(options) {
		code := options[cursor]
		if code == optionEnd {
			return 0, false
		}
		if code == optionPad {
			cursor++
			continue
		}
		if cursor+1 >= len(options) {
			return 0, false
		}
		length := int(options[cursor+1])
		valStart := cursor + 2
		if valStart+length > len(options) {
			return 0, false
		}
		if code == optionMsg {
			if length != 1 {
				return 0, false
			}
			return model.DHCPv4MessageType(options[valStart]), true
		}
		cursor = valStart + length
	}
	return 0, false
}

func formatMAC(b []byte) string {
	const hex = "0123456789abcdef"
	out := make([]byte, 0, len(b)*3-1)
	for i, c := range b {
		if i > 0 {
			out = append(out, ':')
		}
		out = append(out, hex[c>>4], hex[c&0x0F])
	}
	return string(out)
}
