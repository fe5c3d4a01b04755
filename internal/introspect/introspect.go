// Package introspect serves a JSON /stats snapshot of the running
// process: session-table sizes, downstream-pipeline queue depths, and
// classifier worker-pool statistics. It is read-only and carries no
// decoding or classification logic, so it does not expand the core's
// non-goals (spec §1: "no active probing, no packet injection").
// Grounded on straticus1-dnsscienced/cmd/dnsscience-grpc/main.go's
// metrics HTTP server goroutine, extended with a second handler for
// this process-level status object; encoding/json is the standard
// library's own serializer and is used here rather than a third-party
// one (see DESIGN.md — none of the example repos pulls in a dedicated
// JSON library for a status object this small).
package introspect

import (
	"encoding/json"
	"net/http"

	"github.com/l7tap/l7tap/internal/worker"
)

// Snapshot is the process-level status object.
type Snapshot struct {
	UDPTableSize        int          `json:"udp_table_size"`
	TCPTableSize        int          `json:"tcp_table_size"`
	SocksTableSize      int          `json:"socks_table_size"`
	SSHTableSize        int          `json:"ssh_table_size"`
	DNSPipelineDepth    int          `json:"dns_pipeline_depth"`
	DHCPv4PipelineDepth int          `json:"dhcpv4_pipeline_depth"`
	Workers             worker.Stats `json:"workers"`
}

// SnapshotFunc produces a fresh Snapshot on each call. Callers supply a
// closure over their own tables/pipelines/pool rather than this package
// holding references to them, so introspect has no dependency on the
// concrete table/pipeline types.
type SnapshotFunc func() Snapshot

// Handler returns an http.Handler serving the latest Snapshot as JSON.
func Handler(snapshot SnapshotFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snapshot()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
