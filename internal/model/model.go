// Package model holds the shared data types that flow through the L7
// classification pipeline: the inbound Datagram envelope, the closed set of
// protocol tags a classifier may attach to it, and the decoded record shapes
// produced by the DNS and DHCPv4 parsers.
package model

import (
	"sync"
	"time"
)

// L7SessionTag names the Layer-7 protocol family a payload was recognised as.
type L7SessionTag int

const (
	Dns L7SessionTag = iota
	Dhcpv4
	Unencrypted
)

func (t L7SessionTag) String() string {
	switch t {
	case Dns:
		return "dns"
	case Dhcpv4:
		return "dhcpv4"
	case Unencrypted:
		return "unencrypted"
	default:
		return "unknown"
	}
}

// TagSet guards a datagram's protocol-family labels against concurrent
// mutation. Mutation is limited to Merge; no reader observes a partially
// updated set.
type TagSet struct {
	mu  sync.Mutex
	set map[L7SessionTag]struct{}
}

// NewTagSet returns an empty, ready-to-use TagSet.
func NewTagSet() *TagSet {
	return &TagSet{set: make(map[L7SessionTag]struct{})}
}

// Merge appends tags to the set. Safe for concurrent use.
func (t *TagSet) Merge(tags []L7SessionTag) {
	if len(tags) == 0 {
		return
	}
	t.mu.Lock()
	for _, tag := range tags {
		t.set[tag] = struct{}{}
	}
	t.mu.Unlock()
}

// Snapshot returns the current tags as a slice. The result is a copy and may
// be read freely without racing further mutation.
func (t *TagSet) Snapshot() []L7SessionTag {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]L7SessionTag, 0, len(t.set))
	for tag := range t.set {
		out = append(out, tag)
	}
	return out
}

// Has reports whether tag is present.
func (t *TagSet) Has(tag L7SessionTag) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.set[tag]
	return ok
}

// Datagram is one received UDP payload plus its L2/L3 envelope and
// observation timestamp. Session tables take ownership of it after
// registration; the classifier only ever appends to Tags.
type Datagram struct {
	SourceMAC      string
	DestinationMAC string

	SourceAddress      string
	DestinationAddress string
	SourcePort         uint16
	DestinationPort    uint16

	Payload   []byte
	Timestamp time.Time

	Tags *TagSet
}

// NewDatagram builds a Datagram with a ready TagSet.
func NewDatagram(payload []byte, ts time.Time) *Datagram {
	return &Datagram{Payload: payload, Timestamp: ts, Tags: NewTagSet()}
}

// TCPSegmentRecord is the minimal shape the TCP table registers. Full
// reassembly is an external collaborator's concern; this core only ever
// forwards what it was handed.
type TCPSegmentRecord struct {
	SourceAddress      string
	DestinationAddress string
	SourcePort         uint16
	DestinationPort    uint16
	SYN, ACK, FIN, RST bool
	PayloadLen         int
	Timestamp          time.Time
}

// SocksTunnelRecord is the minimal shape the SOCKS table registers.
type SocksTunnelRecord struct {
	SourceAddress      string
	DestinationAddress string
	SourcePort         uint16
	DestinationPort    uint16
	TargetHost         string
	TargetPort         uint16
	Timestamp          time.Time
}

// SshSessionRecord is the minimal shape the SSH table registers.
type SshSessionRecord struct {
	SourceAddress      string
	DestinationAddress string
	SourcePort         uint16
	DestinationPort    uint16
	ClientBanner       string
	ServerBanner       string
	Timestamp          time.Time
}

// DHCPv4MessageType is the DHCP message type option (53) value.
type DHCPv4MessageType uint8

const (
	DHCPDiscover DHCPv4MessageType = 1
	DHCPOffer    DHCPv4MessageType = 2
	DHCPRequest  DHCPv4MessageType = 3
	DHCPDecline  DHCPv4MessageType = 4
	DHCPAck      DHCPv4MessageType = 5
	DHCPNak      DHCPv4MessageType = 6
	DHCPRelease  DHCPv4MessageType = 7
	DHCPInform   DHCPv4MessageType = 8
)

// DHCPv4Record is the shape-level decode of a DHCPv4 message: enough of the
// wire format to drive the classifier's second parser attempt and the
// DHCPv4 downstream pipeline.
type DHCPv4Record struct {
	MessageType    DHCPv4MessageType
	ClientMAC      string
	ClientAddress  string
	YourAddress    string
	ServerAddress  string
	GatewayAddress string
	Timestamp      time.Time
}

// EstimatedSize approximates the in-memory footprint of the record, mirroring
// the size hint the DNS path reports from payload length.
func (d *DHCPv4Record) EstimatedSize() int {
	return 4 + len(d.ClientMAC) + len(d.ClientAddress) + len(d.YourAddress) +
		len(d.ServerAddress) + len(d.GatewayAddress)
}

// DNSType distinguishes a query from a response.
type DNSType int

const (
	Query DNSType = iota
	QueryResponse
)

// DNSRRType is the enumerated DNS resource record type this core
// understands by name; any other on-wire value passes through unchanged
// as its raw numeric DNSRRType (the core itself never needs to echo
// unknown types back out).
type DNSRRType uint16

const (
	TypeA     DNSRRType = 1
	TypeNS    DNSRRType = 2
	TypeCNAME DNSRRType = 5
	TypePTR   DNSRRType = 12
	TypeMX    DNSRRType = 15
	TypeTXT   DNSRRType = 16
	TypeAAAA  DNSRRType = 28
)

// IsTextLike reports whether the RR type's value is a name-shaped string
// whose Shannon entropy is meaningful.
func (t DNSRRType) IsTextLike() bool {
	switch t {
	case TypeCNAME, TypeNS, TypePTR, TypeMX, TypeTXT:
		return true
	default:
		return false
	}
}

// DNSClass is the enumerated DNS class.
type DNSClass uint16

const (
	ClassIN  DNSClass = 1
	ClassCS  DNSClass = 2
	ClassCH  DNSClass = 3
	ClassHS  DNSClass = 4
	ClassANY DNSClass = 255
)

// DNSData is one question or one answer record.
type DNSData struct {
	Name     string
	NameETLD string // absent is represented as ""
	Type     DNSRRType
	Class    DNSClass

	Value     string // absent is represented as ""
	ValueETLD string // absent is represented as ""

	HasEntropy bool
	Entropy    float64

	HasTTL bool
	TTL    uint32
}

// DNSMessage is the structured output of the DNS message parser.
type DNSMessage struct {
	HasTransactionID bool
	TransactionID    uint16
	Type             DNSType

	QuestionCount uint16
	AnswerCount   uint16
	Queries       []DNSData
	Responses     []DNSData

	SourceMAC          string
	DestinationMAC     string
	SourceAddress      string
	DestinationAddress string
	SourcePort         uint16
	DestinationPort    uint16

	Size      int
	Timestamp time.Time
}
