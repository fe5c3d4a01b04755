// Package config loads cmd/l7tap's YAML-driven tunables: listen
// addresses, worker/shard counts, and pipeline capacities. None of the
// core's decoding bounds are configurable (spec §6: "Configuration
// inputs: none in the core; all bounds ... are constants") — this
// package only covers the ambient process-wiring knobs around it.
// Grounded on straticus1-dnsscienced/cmd/dnsscience-grpc/config.go's
// ConfigFile/LoadConfig (os.ReadFile + yaml.Unmarshal), extended with
// defaulting so a missing or empty path still yields a usable config.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the process-level configuration for cmd/l7tap.
type Config struct {
	// UDPListen is the address the datagram listener binds, e.g. ":5353".
	UDPListen string `yaml:"udp_listen"`

	// Workers is the number of classifier worker goroutines draining the
	// upstream datagram queue (spec §5: "Multiple classifier workers may
	// run concurrently"). Zero means the worker pool picks its own
	// runtime.NumCPU()-based default.
	Workers int `yaml:"workers"`

	// QueueSize bounds the upstream datagram queue between the listener
	// and the classifier workers.
	QueueSize int `yaml:"queue_size"`

	// DNSPipelineCapacity and DHCPv4PipelineCapacity bound the two
	// downstream bus.Pipeline channels (spec §6).
	DNSPipelineCapacity    int `yaml:"dns_pipeline_capacity"`
	DHCPv4PipelineCapacity int `yaml:"dhcpv4_pipeline_capacity"`

	// UDPTableShards/TCPTableShards/SocksTableShards/SSHTableShards set
	// each session table's shard count (rounded up to a power of two).
	UDPTableShards   int `yaml:"udp_table_shards"`
	TCPTableShards   int `yaml:"tcp_table_shards"`
	SocksTableShards int `yaml:"socks_table_shards"`
	SSHTableShards   int `yaml:"ssh_table_shards"`

	// StatsListen is the address the introspection HTTP server (/metrics,
	// /stats) binds.
	StatsListen string `yaml:"stats_listen"`

	// GRPCListen, GRPCTLSCert, GRPCTLSKey, and GRPCAPIKeys configure the
	// optional introspection gRPC server (api/grpc/server). Leaving
	// GRPCListen empty disables it.
	GRPCListen  string   `yaml:"grpc_listen"`
	GRPCTLSCert string   `yaml:"grpc_tls_cert"`
	GRPCTLSKey  string   `yaml:"grpc_tls_key"`
	GRPCAPIKeys []string `yaml:"grpc_api_keys"`
}

// Default returns a Config with conservative, process-usable defaults.
func Default() Config {
	return Config{
		UDPListen:              ":5353",
		Workers:                0, // worker pool default
		QueueSize:              4096,
		DNSPipelineCapacity:    1024,
		DHCPv4PipelineCapacity: 1024,
		UDPTableShards:         64,
		TCPTableShards:         64,
		SocksTableShards:       16,
		SSHTableShards:         16,
		StatsListen:            ":9090",
		GRPCListen:             "",
	}
}

// Load reads a YAML config file at path and overlays it onto Default().
// An empty path returns Default() unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var overlay Config
	if err := yaml.Unmarshal(b, &overlay); err != nil {
		return Config{}, err
	}
	applyOverlay(&cfg, overlay)
	return cfg, nil
}

// applyOverlay copies every non-zero-value field of overlay onto cfg, so
// a config file only needs to name the settings it changes.
func applyOverlay(cfg *Config, overlay Config) {
	if overlay.UDPListen != "" {
		cfg.UDPListen = overlay.UDPListen
	}
	if overlay.Workers != 0 {
		cfg.Workers = overlay.Workers
	}
	if overlay.QueueSize != 0 {
		cfg.QueueSize = overlay.QueueSize
	}
	if overlay.DNSPipelineCapacity != 0 {
		cfg.DNSPipelineCapacity = overlay.DNSPipelineCapacity
	}
	if overlay.DHCPv4PipelineCapacity != 0 {
		cfg.DHCPv4PipelineCapacity = overlay.DHCPv4PipelineCapacity
	}
	if overlay.UDPTableShards != 0 {
		cfg.UDPTableShards = overlay.UDPTableShards
	}
	if overlay.TCPTableShards != 0 {
		cfg.TCPTableShards = overlay.TCPTableShards
	}
	if overlay.SocksTableShards != 0 {
		cfg.SocksTableShards = overlay.SocksTableShards
	}
	if overlay.SSHTableShards != 0 {
		cfg.SSHTableShards = overlay.SSHTableShards
	}
	if overlay.StatsListen != "" {
		cfg.StatsListen = overlay.StatsListen
	}
	if overlay.GRPCListen != "" {
		cfg.GRPCListen = overlay.GRPCListen
	}
	if overlay.GRPCTLSCert != "" {
		cfg.GRPCTLSCert = overlay.GRPCTLSCert
	}
	if overlay.GRPCTLSKey != "" {
		cfg.GRPCTLSKey = overlay.GRPCTLSKey
	}
	if len(overlay.GRPCAPIKeys) > 0 {
		cfg.GRPCAPIKeys = overlay.GRPCAPIKeys
	}
}
