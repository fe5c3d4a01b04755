// Package dnsmsg implements the DNS name decoder and message parser:
// RFC 1035 compression with cycle-safe pointer chasing, and a bit-exact,
// security-hardened subset of the wire format limited to the header plus
// question/answer sections. Grounded on
// straticus1-dnsscienced/internal/packet/parser.go's Parser, narrowed from
// that teacher's full QD/AN/NS/AR parser down to this core's QD/AN-only,
// 512-count-capped, 13-byte-minimum contract.
package dnsmsg

import (
	"net"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/l7tap/l7tap/internal/entropy"
	"github.com/l7tap/l7tap/internal/model"
	"github.com/l7tap/l7tap/internal/wire"
)

const (
	headerSize  = 12
	minPayload  = 13
	maxQDOrAN   = 512
	answerExtra = 10 // TYPE(2) CLASS(2) TTL(4) RDLENGTH(2)
)

// Parse consumes dg's full payload and produces a structured DNS message,
// or rejects it. Rejection is silent: the caller (the classifier) simply
// does not tag the datagram as DNS.
func Parse(dg *model.Datagram) (*model.DNSMessage, error) {
	payload := dg.Payload
	if len(payload) < minPayload {
		return nil, ErrTruncatedPayload
	}

	txid, err := wire.Uint16(payload, 0)
	if err != nil {
		return nil, ErrTruncatedPayload
	}

	qr := payload[2]&0x80 != 0

	qdCount, err := wire.Uint16(payload, 4)
	if err != nil {
		return nil, ErrTruncatedPayload
	}
	anCount, err := wire.Uint16(payload, 6)
	if err != nil {
		return nil, ErrTruncatedPayload
	}

	if qdCount > maxQDOrAN || anCount > maxQDOrAN {
		return nil, ErrCountTooLarge
	}
	if qdCount == 0 && anCount == 0 {
		return nil, errEmptyMessage
	}

	cursor := headerSize

	var queries []model.DNSData
	if qdCount > 0 {
		queries = make([]model.DNSData, 0, qdCount)
		for i := 0; i < int(qdCount); i++ {
			if len(payload) < cursor+5 {
				return nil, ErrTruncatedPayload
			}

			local := payload[cursor:]
			name, consumed, err := decodeName(local, local)
			if err != nil {
				return nil, err
			}
			cursor += consumed

			if len(payload) < cursor+4 {
				return nil, ErrTruncatedPayload
			}
			typeVal, _ := wire.Uint16(payload, cursor)
			classVal, _ := wire.Uint16(payload, cursor+2)
			cursor += 4

			class, ok := mapClass(classVal)
			if !ok {
				return nil, ErrUnknownClass
			}

			queries = append(queries, model.DNSData{
				Name:       name,
				NameETLD:   etldOf(name),
				Type:       model.DNSRRType(typeVal),
				Class:      class,
				HasEntropy: true,
				Entropy:    entropy.Shannon(name),
			})
		}
	}

	var responses []model.DNSData
	if anCount > 0 {
		responses = make([]model.DNSData, 0, anCount)
		for i := 0; i < int(anCount); i++ {
			if len(payload) < cursor+5 {
				return nil, ErrTruncatedPayload
			}

			local := payload[cursor:]
			name, consumed, err := decodeName(local, payload)
			if err != nil {
				return nil, err
			}
			cursor += consumed
			postName := cursor

			if len(payload) < postName+answerExtra {
				return nil, ErrTruncatedPayload
			}
			typeVal, _ := wire.Uint16(payload, postName)
			classVal, _ := wire.Uint16(payload, postName+2)
			ttl, _ := wire.Uint32(payload, postName+4)
			rdlen, _ := wire.Uint16(payload, postName+8)

			if len(payload) < postName+answerExtra+int(rdlen) {
				return nil, ErrTruncatedPayload
			}
			rdata := payload[postName+answerExtra : postName+answerExtra+int(rdlen)]

			class, ok := mapClass(classVal)
			if !ok {
				return nil, ErrUnknownClass
			}
			rrType := model.DNSRRType(typeVal)

			value, err := decodeRdata(rrType, rdata, payload)
			if err != nil {
				return nil, err
			}

			data := model.DNSData{
				Name:     name,
				NameETLD: etldOf(name),
				Class:    class,
				Type:     rrType,
				Value:    value,
				HasTTL:   true,
				TTL:      ttl,
			}
			if value != "" {
				data.ValueETLD = etldOf(value)
				if rrType.IsTextLike() {
					data.HasEntropy = true
					data.Entropy = entropy.Shannon(value)
				}
			}

			responses = append(responses, data)

			cursor = postName + answerExtra + int(rdlen)
		}
	}

	msg := &model.DNSMessage{
		HasTransactionID: txid != 0,
		TransactionID:    txid,
		QuestionCount:    qdCount,
		AnswerCount:      anCount,
		Queries:          queries,
		Responses:        responses,

		SourceMAC:          dg.SourceMAC,
		DestinationMAC:     dg.DestinationMAC,
		SourceAddress:      dg.SourceAddress,
		DestinationAddress: dg.DestinationAddress,
		SourcePort:         dg.SourcePort,
		DestinationPort:    dg.DestinationPort,

		Size:      len(payload),
		Timestamp: dg.Timestamp,
	}
	if qr {
		msg.Type = model.QueryResponse
	} else {
		msg.Type = model.Query
	}

	return msg, nil
}

// decodeRdata decodes RDATA by record type. Unrecognised types fall into
// the "other" row: value stays absent and the record is still accepted,
// per DNSData.Type's pass-through-numeric contract.
func decodeRdata(rrType model.DNSRRType, rdata, fullPayload []byte) (string, error) {
	switch rrType {
	case model.TypeA:
		if len(rdata) != 4 {
			return "", ErrBadRdata
		}
		v, err := wire.IPv4(rdata, 0)
		if err != nil {
			return "", ErrBadRdata
		}
		return strings.ToLower(v), nil

	case model.TypeAAAA:
		if len(rdata) != 16 {
			return "", ErrBadRdata
		}
		v, err := wire.IPv6(rdata, 0)
		if err != nil {
			return "", ErrBadRdata
		}
		return strings.ToLower(v), nil

	case model.TypeCNAME, model.TypeNS, model.TypePTR:
		name, _, err := decodeName(rdata, fullPayload)
		if err != nil {
			return "", err
		}
		return name, nil

	case model.TypeMX:
		if len(rdata) < 3 {
			return "", ErrBadRdata
		}
		name, _, err := decodeName(rdata[2:], fullPayload)
		if err != nil {
			return "", err
		}
		return name, nil

	case model.TypeTXT:
		name, _, err := decodeName(rdata, fullPayload)
		if err != nil {
			return "", err
		}
		return name, nil

	default:
		return "", nil
	}
}

func mapClass(v uint16) (model.DNSClass, bool) {
	switch model.DNSClass(v) {
	case model.ClassIN, model.ClassCS, model.ClassCH, model.ClassHS, model.ClassANY:
		return model.DNSClass(v), true
	default:
		return 0, false
	}
}

// etldOf returns the effective-TLD-plus-one of s, or "" when s is a literal
// IPv4/IPv6 address or has no public-suffix match. Grounded on
// golang.org/x/net/publicsuffix, the same package the amass DNS-subdomain
// plugin in the example pack uses for this computation.
func etldOf(s string) string {
	if s == "" {
		return ""
	}
	candidate := strings.TrimSuffix(s, ".")
	if net.ParseIP(candidate) != nil {
		return ""
	}
	etld, err := publicsuffix.EffectiveTLDPlusOne(candidate)
	if err != nil {
		return ""
	}
	return etld
}
