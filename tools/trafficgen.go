// Command trafficgen fires synthetic DNS and DHCPv4 datagrams at an
// l7tap UDP listener to exercise its classify-and-route path under
// load. Adapted from straticus1-dnsscienced/tools/bench_throughput.go:
// that tool measured round-trip QPS against an active DNS server, but
// l7tap is a one-way sink (it never replies), so this variant only
// measures send rate and reports what the classifier's own /stats
// endpoint counted, closing the loop without expecting a response
// packet.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/miekg/dns"
)

var (
	target   = flag.String("target", "127.0.0.1:5353", "l7tap UDP listen address")
	statsURL = flag.String("stats", "http://127.0.0.1:9090/stats", "l7tap /stats endpoint")
	workers  = flag.Int("workers", 10, "Number of concurrent senders")
	domain   = flag.String("domain", "example.com.", "Domain to query in DNS packets")
	duration = flag.Duration("duration", 10*time.Second, "Test duration")
	mix      = flag.Float64("dhcp-fraction", 0.2, "Fraction of packets sent as DHCPv4 DISCOVERs instead of DNS queries")
)

func dnsPacket(domain string) []byte {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(domain), dns.TypeA)
	b, err := m.Pack()
	if err != nil {
		log.Fatalf("pack dns query: %v", err)
	}
	return b
}

// dhcpDiscoverPacket builds a minimal BOOTP DISCOVER, shape-compatible
// with internal/dhcpv4.Parse: fixed header, magic cookie, option 53.
func dhcpDiscoverPacket() []byte {
	buf := make([]byte, 236)
	buf[0] = 1 // BOOTREQUEST
	buf[1] = 1 // htype: ethernet
	buf[2] = 6 // hlen
	copy(buf[28:34], []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x01})
	buf = append(buf, 0x63, 0x82, 0x53, 0x63) // magic cookie
	buf = append(buf, 53, 0x01, 0x01)         // option 53: DHCPDISCOVER
	buf = append(buf, 255)                    // end option
	return buf
}

type statsSnapshot struct {
	UDPTableSize        int `json:"udp_table_size"`
	DNSPipelineDepth    int `json:"dns_pipeline_depth"`
	DHCPv4PipelineDepth int `json:"dhcpv4_pipeline_depth"`
}

func fetchStats() (statsSnapshot, error) {
	var snap statsSnapshot
	resp, err := http.Get(*statsURL)
	if err != nil {
		return snap, err
	}
	defer resp.Body.Close()
	err = json.NewDecoder(resp.Body).Decode(&snap)
	return snap, err
}

func main() {
	flag.Parse()

	log.Printf("Sending synthetic traffic to %s with %d workers for %v (dhcp fraction %.2f)",
		*target, *workers, *duration, *mix)

	dnsPkt := dnsPacket(*domain)
	dhcpPkt := dhcpDiscoverPacket()

	var sent, errors uint64
	start := time.Now()
	done := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			conn, err := net.Dial("udp", *target)
			if err != nil {
				log.Printf("dial error: %v", err)
				return
			}
			defer conn.Close()

			n := 0
			for {
				select {
				case <-done:
					return
				default:
					pkt := dnsPkt
					if float64(n%100)/100.0 < *mix {
						pkt = dhcpPkt
					}
					if _, err := conn.Write(pkt); err != nil {
						atomic.AddUint64(&errors, 1)
					} else {
						atomic.AddUint64(&sent, 1)
					}
					n++
				}
			}
		}(i)
	}

	time.Sleep(*duration)
	close(done)
	wg.Wait()

	totalTime := time.Since(start)
	pps := float64(sent) / totalTime.Seconds()

	fmt.Printf("\n--- Send-side results ---\n")
	fmt.Printf("Packets sent:   %d\n", sent)
	fmt.Printf("Send errors:    %d\n", errors)
	fmt.Printf("Duration:       %.2fs\n", totalTime.Seconds())
	fmt.Printf("PPS:            %.2f\n", pps)

	if snap, err := fetchStats(); err == nil {
		fmt.Printf("\n--- l7tap /stats after run ---\n")
		fmt.Printf("UDP table size:        %d\n", snap.UDPTableSize)
		fmt.Printf("DNS pipeline depth:    %d\n", snap.DNSPipelineDepth)
		fmt.Printf("DHCPv4 pipeline depth: %d\n", snap.DHCPv4PipelineDepth)
	} else {
		log.Printf("could not fetch stats from %s: %v", *statsURL, err)
	}
}
