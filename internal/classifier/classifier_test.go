package classifier

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l7tap/l7tap/internal/bus"
	"github.com/l7tap/l7tap/internal/model"
)

func encodeName(name string) []byte {
	var out []byte
	start := 0
	for i := 0; i <= len(name); i++ {
		if i == len(name) || name[i] == '.' {
			label := name[start:i]
			out = append(out, byte(len(label)))
			out = append(out, label...)
			start = i + 1
		}
	}
	out = append(out, 0)
	return out
}

func dnsQueryPayload(name string) []byte {
	payload := []byte{
		0x12, 0x34, // txid
		0x01, 0x00, // flags: query
		0x00, 0x01, // qdcount
		0x00, 0x00, // ancount
		0x00, 0x00,
		0x00, 0x00,
	}
	payload = append(payload, encodeName(name)...)
	payload = append(payload, 0x00, 0x01, 0x00, 0x01) // type A, class IN
	return payload
}

func dhcpDiscoverPayload() []byte {
	buf := make([]byte, 236)
	buf[0] = 1
	copy(buf[12:16], []byte{10, 0, 0, 5})
	copy(buf[16:20], []byte{10, 0, 0, 100})
	copy(buf[20:24], []byte{10, 0, 0, 1})
	copy(buf[24:28], []byte{10, 0, 0, 1})
	copy(buf[28:34], []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x01})
	buf = append(buf, 0x63, 0x82, 0x53, 0x63) // magic cookie
	buf = append(buf, 53, 0x01, 0x01)         // DHCPDISCOVER
	buf = append(buf, 255)                   // end option
	return buf
}

type fakeTable struct {
	mu  sync.Mutex
	n   int
	dns int
}

func (f *fakeTable) Register(ctx context.Context, dg *model.Datagram, dns *model.DNSMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	if dns != nil {
		f.dns++
	}
}

func (f *fakeTable) counts() (total, withDNS int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n, f.dns
}

func newTestClassifier() (*Classifier, *bus.Pipeline, *bus.Pipeline, *fakeTable) {
	dnsPipe := bus.New("dns", 8, nil)
	dhcpPipe := bus.New("dhcpv4", 8, nil)
	tbl := &fakeTable{}
	return New(dnsPipe, dhcpPipe, tbl), dnsPipe, dhcpPipe, tbl
}

func TestProcessTagsAndRoutesDNS(t *testing.T) {
	c, dnsPipe, dhcpPipe, tbl := newTestClassifier()
	dg := model.NewDatagram(dnsQueryPayload("a.test"), time.Unix(0, 0))

	c.Process(context.Background(), dg)

	tags := dg.Tags.Snapshot()
	assert.True(t, dg.Tags.Has(model.Dns), "expected Dns tag, got %v", tags)
	assert.True(t, dg.Tags.Has(model.Unencrypted), "expected Unencrypted tag, got %v", tags)
	assert.False(t, dg.Tags.Has(model.Dhcpv4))

	assert.Equal(t, 1, dnsPipe.Len())
	assert.Equal(t, 0, dhcpPipe.Len())

	total, withDNS := tbl.counts()
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, withDNS)
}

func TestProcessTagsAndRoutesDHCPv4(t *testing.T) {
	c, dnsPipe, dhcpPipe, tbl := newTestClassifier()
	dg := model.NewDatagram(dhcpDiscoverPayload(), time.Unix(0, 0))

	c.Process(context.Background(), dg)

	assert.True(t, dg.Tags.Has(model.Dhcpv4))
	assert.True(t, dg.Tags.Has(model.Unencrypted))
	assert.False(t, dg.Tags.Has(model.Dns))

	assert.Equal(t, 1, dhcpPipe.Len())
	assert.Equal(t, 0, dnsPipe.Len())

	total, withDNS := tbl.counts()
	assert.Equal(t, 1, total)
	assert.Equal(t, 0, withDNS)
}

func TestProcessRandomPayloadStillRegisters(t *testing.T) {
	c, dnsPipe, dhcpPipe, tbl := newTestClassifier()
	payload := make([]byte, 200)
	for i := range payload {
		payload[i] = byte(i * 37)
	}
	dg := model.NewDatagram(payload, time.Unix(0, 0))

	c.Process(context.Background(), dg)

	assert.Empty(t, dg.Tags.Snapshot())
	assert.Equal(t, 0, dnsPipe.Len())
	assert.Equal(t, 0, dhcpPipe.Len())

	total, _ := tbl.counts()
	assert.Equal(t, 1, total)
}

func TestProcessPreservesExistingTags(t *testing.T) {
	c, _, _, _ := newTestClassifier()
	dg := model.NewDatagram(dnsQueryPayload("b.test"), time.Unix(0, 0))
	dg.Tags.Merge([]model.L7SessionTag{model.Unencrypted})

	c.Process(context.Background(), dg)

	require.True(t, dg.Tags.Has(model.Unencrypted))
	assert.True(t, dg.Tags.Has(model.Dns))
}
