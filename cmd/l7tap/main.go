// Command l7tap wires the L7 classification and DNS decoder core to a
// live UDP socket: every packet received is treated as one already-
// assembled UDP datagram (spec §1's "already-decoded UDP datagrams"),
// classified, and registered into the session tables. Link/IPv4/TCP
// assembly, the SOCKS/SSH detectors, and the real DNS/DHCPv4 pipeline
// consumers are external collaborators per spec §1; the pipeline
// consumers are stubbed here (drained and discarded) so the process runs
// end to end.
package main

import (
	"crypto/rand"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcmiddleware "github.com/l7tap/l7tap/api/grpc/middleware"
	grpcserver "github.com/l7tap/l7tap/api/grpc/server"
	"github.com/l7tap/l7tap/internal/bus"
	"github.com/l7tap/l7tap/internal/classifier"
	"github.com/l7tap/l7tap/internal/config"
	"github.com/l7tap/l7tap/internal/introspect"
	"github.com/l7tap/l7tap/internal/metrics"
	"github.com/l7tap/l7tap/internal/model"
	"github.com/l7tap/l7tap/internal/tables"
	"github.com/l7tap/l7tap/internal/worker"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config file")
	udpListen := flag.String("udp", "", "UDP listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *udpListen != "" {
		cfg.UDPListen = *udpListen
	}

	udpTable := tables.NewUDPTable(cfg.UDPTableShards)
	tcpTable := tables.NewTCPTable(cfg.TCPTableShards, shardKey())
	socksTable := tables.NewSocksTable(cfg.SocksTableShards, shardKey())
	sshTable := tables.NewSSHTable(cfg.SSHTableShards, shardKey())

	dnsPipeline := bus.New("dns", cfg.DNSPipelineCapacity, metrics.RecordPipelineDrop)
	dhcpPipeline := bus.New("dhcpv4", cfg.DHCPv4PipelineCapacity, metrics.RecordPipelineDrop)
	go drainPipeline(dnsPipeline)
	go drainPipeline(dhcpPipeline)

	clsfr := classifier.New(dnsPipeline, dhcpPipeline, udpTable)

	pool := worker.NewPool(worker.Config{
		Workers:   cfg.Workers,
		QueueSize: cfg.QueueSize,
		PanicHandler: func(r interface{}) {
			log.Printf("classifier worker recovered from panic: %v", r)
		},
	}, clsfr)
	defer pool.Close()

	stopStats := startIntrospectionServers(cfg, udpTable, tcpTable, socksTable, sshTable, dnsPipeline, dhcpPipeline, pool)
	defer stopStats()

	conn, err := net.ListenPacket("udp", cfg.UDPListen)
	if err != nil {
		log.Fatalf("listen udp %s: %v", cfg.UDPListen, err)
	}
	defer conn.Close()
	log.Printf("l7tap listening on %s", cfg.UDPListen)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutting down")
		conn.Close()
	}()

	serve(conn, pool)
}

// serve reads datagrams off conn until it's closed, submitting each one
// to the worker pool for classification. Spec §5: "Multiple classifier
// workers may run concurrently, each consuming from an upstream queue of
// datagrams" — pool.TrySubmit is that upstream queue's non-blocking
// enqueue.
func serve(conn net.PacketConn, pool *worker.Pool) {
	buf := make([]byte, 65535)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			return
		}
		payload := make([]byte, n)
		copy(payload, buf[:n])
		dg := model.NewDatagram(payload, time.Now())

		if err := pool.TrySubmit(dg); err != nil {
			// Upstream queue full: drop, matching spec §4.4's
			// "never block the classifier" contract extended to the
			// submission point itself.
			continue
		}
	}
}

// drainPipeline stands in for the DNS/DHCPv4 pipelines' real downstream
// consumers (spec §1: "treated as bounded channels"). It only drains so
// the bounded channel never fills from lack of a reader.
func drainPipeline(p *bus.Pipeline) {
	for range p.Receive() {
	}
}

func shardKey() [16]byte {
	var k [16]byte
	if _, err := rand.Read(k[:]); err != nil {
		log.Fatalf("generate shard key: %v", err)
	}
	return k
}

func startIntrospectionServers(cfg config.Config, udpTable *tables.UDPTable, tcpTable *tables.TCPTable, socksTable *tables.SocksTable, sshTable *tables.SSHTable, dnsPipeline, dhcpPipeline *bus.Pipeline, pool *worker.Pool) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/stats", introspect.Handler(func() introspect.Snapshot {
		return introspect.Snapshot{
			UDPTableSize:        udpTable.Len(),
			TCPTableSize:        tcpTable.Len(),
			SocksTableSize:      socksTable.Len(),
			SSHTableSize:        sshTable.Len(),
			DNSPipelineDepth:    dnsPipeline.Len(),
			DHCPv4PipelineDepth: dhcpPipeline.Len(),
			Workers:             pool.GetStats(),
		}
	}))

	statsSrv := &http.Server{Addr: cfg.StatsListen, Handler: mux}
	go func() {
		log.Printf("stats/metrics listening on %s", cfg.StatsListen)
		if err := statsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("stats server error: %v", err)
		}
	}()

	var grpcSrv *grpc.Server
	var grpcLn net.Listener
	if cfg.GRPCListen != "" {
		gcfg := grpcserver.Config{
			ListenAddr:  cfg.GRPCListen,
			TLSCertFile: cfg.GRPCTLSCert,
			TLSKeyFile:  cfg.GRPCTLSKey,
			APIKeys:     cfg.GRPCAPIKeys,
		}
		deps := grpcserver.Deps{
			Unary:  []grpc.UnaryServerInterceptor{grpcmiddleware.UnaryLoggingMetrics()},
			Stream: []grpc.StreamServerInterceptor{grpcmiddleware.StreamLoggingMetrics()},
			Register: func(s *grpc.Server) {
				h := health.NewServer()
				healthpb.RegisterHealthServer(s, h)
				reflection.Register(s)
			},
		}
		srv, ln, err := grpcserver.New(gcfg, deps)
		if err != nil {
			log.Printf("grpc server disabled: %v", err)
		} else {
			grpcSrv, grpcLn = srv, ln
			go func() {
				log.Printf("grpc listening on %s", ln.Addr())
				if err := srv.Serve(ln); err != nil {
					log.Printf("grpc serve error: %v", err)
				}
			}()
		}
	}

	return func() {
		_ = statsSrv.Close()
		if grpcSrv != nil {
			grpcSrv.GracefulStop()
			_ = grpcLn.Close()
		}
	}
}
