// Package classifier implements the L7 Classifier & Router: the hot-path
// component that takes one already-assembled UDP datagram, attempts each
// registered Layer-7 parser independently, forwards anything decoded to
// that protocol's downstream pipeline, merges the resulting tags into the
// datagram's tag set, and registers the datagram into the UDP session
// table. Grounded on the Rust original's UDPProcessor::process /
// tag_and_route (see DESIGN.md) and on
// straticus1-dnsscienced/internal/worker/pool.go's panic-recovering unit
// of work, adapted from "submit to an owned pool" to "classify inline on
// a caller-supplied goroutine" — the classifier owns no goroutines of its
// own, only the shared state spec §5 describes.
package classifier

import (
	"context"
	"time"

	"github.com/l7tap/l7tap/internal/bus"
	"github.com/l7tap/l7tap/internal/dhcpv4"
	"github.com/l7tap/l7tap/internal/dnsmsg"
	"github.com/l7tap/l7tap/internal/metrics"
	"github.com/l7tap/l7tap/internal/model"
	"github.com/l7tap/l7tap/internal/tables"
)

// UDPTable is the subset of tables.UDPTable the classifier depends on,
// so tests can supply a fake without pulling in the sharded-map
// implementation.
type UDPTable interface {
	Register(ctx context.Context, dg *model.Datagram, dns *model.DNSMessage)
}

// Classifier wires the two independent parser attempts to their
// downstream pipelines and to the UDP session table. It holds no
// mutable state of its own; every piece of shared state it touches
// (the datagram's tag set, the table, the pipelines, the metrics
// registry) guards its own concurrent access.
type Classifier struct {
	dnsPipeline  *bus.Pipeline
	dhcpPipeline *bus.Pipeline
	udpTable     UDPTable
}

// New builds a Classifier. Any of the arguments may be a pipeline/table
// this process owns; the classifier never closes or resizes them.
func New(dnsPipeline, dhcpPipeline *bus.Pipeline, udpTable UDPTable) *Classifier {
	return &Classifier{
		dnsPipeline:  dnsPipeline,
		dhcpPipeline: dhcpPipeline,
		udpTable:     udpTable,
	}
}

// Process classifies one datagram. It never panics and never blocks
// indefinitely: parser failures are recovered at this boundary (the
// datagram simply isn't tagged for that protocol), and pipeline sends
// are non-blocking. ctx is accepted for a caller's own cancellation
// bookkeeping; the classifier performs no blocking I/O and does not
// itself check ctx mid-flight, matching spec §5's "no per-datagram
// timeout inside the core."
func (c *Classifier) Process(ctx context.Context, dg *model.Datagram) {
	start := time.Now()

	var localTags []model.L7SessionTag
	var dnsMsg *model.DNSMessage
	sawDNS, sawDHCP := false, false

	if msg, err := dnsmsg.Parse(dg); err == nil {
		dnsMsg = msg
		sawDNS = true
		localTags = append(localTags, model.Dns, model.Unencrypted)
		c.dnsPipeline.TrySend(bus.Item{Payload: msg, SizeBytes: msg.Size})
	}

	if rec, ok := dhcpv4.Parse(dg.Payload, dg.Timestamp); ok {
		sawDHCP = true
		localTags = append(localTags, model.Dhcpv4, model.Unencrypted)
		c.dhcpPipeline.TrySend(bus.Item{Payload: rec, SizeBytes: rec.EstimatedSize()})
	}

	dg.Tags.Merge(localTags)

	if c.udpTable != nil {
		c.udpTable.Register(ctx, dg, dnsMsg)
	}

	metrics.ObserveTagAndRoute(outcomeLabel(sawDNS, sawDHCP), time.Since(start))
}

// outcomeLabel names the metrics.ObserveTagAndRoute "outcome" label for
// one Process call. DNS and DHCPv4 attempts are independent (spec §4.4
// item 3: matching one never skips the other), so "both" is a real,
// if practically rare, outcome.
func outcomeLabel(sawDNS, sawDHCP bool) string {
	switch {
	case sawDNS && sawDHCP:
		return "both"
	case sawDNS:
		return "dns"
	case sawDHCP:
		return "dhcpv4"
	default:
		return "unrecognized"
	}
}

// ensure tables.UDPTable satisfies the classifier's narrower interface
// at compile time.
var _ UDPTable = (*tables.UDPTable)(nil)
