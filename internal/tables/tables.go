// Package tables implements the session registrars the classifier feeds:
// sharded in-memory maps keyed by flow, one sync.RWMutex per shard.
// Grounded on straticus1-dnsscienced/internal/cache/sharded.go's
// ShardedCache/shard design (hash & mask shard selection, one lock per
// shard, never nested). Flow-key hashing follows
// internal/packet/parser.go's HashQuery FNV-1a technique for the UDP/DNS
// table, and internal/cookie/cookie.go's SipHash-2-4 usage for the
// connection-oriented TCP/SOCKS/SSH tables, so an off-path attacker who
// can predict flow 4-tuples cannot engineer shard hot-spotting across
// them.
package tables

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"log"
	"sync"
	"time"

	"github.com/dchest/siphash"
	"golang.org/x/time/rate"

	"github.com/l7tap/l7tap/internal/metrics"
	"github.com/l7tap/l7tap/internal/model"
)

// maxLockAttempts bounds the TryLock spin below so that a shard held by a
// caller that never releases (or a canceled ctx sitting under contention)
// still gives up in bounded work, matching spec §5's "no internal sleep."
const maxLockAttempts = 4096

// acquireShard spins on mu.TryLock, checking ctx between attempts, until
// either the lock is acquired or the attempt budget/ctx gives out. It never
// sleeps: spec §5 describes lock acquisition as a suspension point with no
// timeout of its own, but a context-aware caller can still bound the wait.
func acquireShard(ctx context.Context, mu *sync.RWMutex) bool {
	for attempt := 0; attempt < maxLockAttempts; attempt++ {
		if mu.TryLock() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		default:
		}
	}
	return false
}

const defaultShardCount = 64 // power of 2, for hash & mask

// HashFlow hashes a 4-tuple with FNV-1a, the same technique
// packet.HashQuery uses for DNS cache keys, applied here to UDP/DNS
// session-table sharding.
func HashFlow(srcAddr, dstAddr string, srcPort, dstPort uint16) uint64 {
	h := fnv.New64a()
	h.Write([]byte(srcAddr))
	h.Write([]byte(dstAddr))
	binary.Write(h, binary.BigEndian, srcPort)
	binary.Write(h, binary.BigEndian, dstPort)
	return h.Sum64()
}

// shardKey is a process-lifetime random SipHash key held by one
// connection-oriented table. cmd/l7tap generates a separate key for each
// table at process start with crypto/rand and passes it to that table's
// constructor, so distinct tables land the same flow in unrelated shards.
type shardKey [16]byte

func hashFlowSip(key shardKey, srcAddr, dstAddr string, srcPort, dstPort uint16) uint64 {
	h := siphash.New(key[:])
	h.Write([]byte(srcAddr))
	h.Write([]byte(dstAddr))
	var portBuf [4]byte
	binary.BigEndian.PutUint16(portBuf[0:2], srcPort)
	binary.BigEndian.PutUint16(portBuf[2:4], dstPort)
	h.Write(portBuf[:])
	return h.Sum64()
}

// dropLimiter rate-limits the "lock unavailable, dropping" log line per
// table (onLimit still runs on every drop), adapted from engine.RateLimiter's per-key token bucket — applied
// here to log-message suppression rather than per-client query
// throttling.
type dropLimiter struct {
	limiter *rate.Limiter
	onLimit func(table string)
	table   string
}

func newDropLimiter(table string, onLimit func(string)) *dropLimiter {
	return &dropLimiter{
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		onLimit: onLimit,
		table:   table,
	}
}

func (d *dropLimiter) noteDrop() {
	if d.onLimit != nil {
		d.onLimit(d.table)
	}
	if d.limiter.Allow() {
		log.Printf("tables: %s shard lock unavailable, dropping item", d.table)
	}
}

// UDPEntry is what the classifier registers per datagram: the raw
// envelope plus the decoded DNS message, when the classifier's DNS
// parse attempt succeeded. Per spec, registration happens exactly once
// per datagram regardless of whether any parser matched.
type UDPEntry struct {
	Datagram *model.Datagram
	DNS      *model.DNSMessage // nil when the datagram wasn't decoded as DNS
}

type udpShard struct {
	mu      sync.RWMutex
	entries map[uint64]*UDPEntry
}

// UDPTable registers every classified datagram, keyed by flow 4-tuple
// hashed with FNV-1a.
type UDPTable struct {
	shards []*udpShard
	mask   uint64
	drop   *dropLimiter
}

// NewUDPTable creates a UDPTable with the given shard count (rounded up
// to the next power of two, minimum 1).
func NewUDPTable(shardCount int) *UDPTable {
	n := nextPowerOfTwo(shardCount)
	shards := make([]*udpShard, n)
	for i := range shards {
		shards[i] = &udpShard{entries: make(map[uint64]*UDPEntry)}
	}
	return &UDPTable{
		shards: shards,
		mask:   uint64(n - 1),
		drop:   newDropLimiter("udp", metrics.RecordTableLockDrop),
	}
}

// Register inserts dg (plus its decoded DNS message, if any) under its
// flow hash, overwriting any prior entry for the same flow. dns may be
// nil: the core registers every datagram, not just ones a parser
// matched. If the shard's lock can't be acquired within the attempt
// budget (or ctx ends first), the registration is dropped rather than
// retried: the table's drop hook counts it, and a log line is written at
// most once per second per table.
func (t *UDPTable) Register(ctx context.Context, dg *model.Datagram, dns *model.DNSMessage) {
	hash := HashFlow(dg.SourceAddress, dg.DestinationAddress, dg.SourcePort, dg.DestinationPort)
	shard := t.shards[hash&t.mask]
	if !acquireShard(ctx, &shard.mu) {
		t.drop.noteDrop()
		return
	}
	shard.entries[hash] = &UDPEntry{Datagram: dg, DNS: dns}
	shard.mu.Unlock()
}

// Len returns the total number of registered entries across all shards.
func (t *UDPTable) Len() int {
	total := 0
	for _, s := range t.shards {
		s.mu.RLock()
		total += len(s.entries)
		s.mu.RUnlock()
	}
	return total
}

type tcpShard struct {
	mu      sync.RWMutex
	entries map[uint64]*model.TCPSegmentRecord
}

// TCPTable registers TCP segment shapes, keyed by flow 4-tuple hashed
// with SipHash-2-4 under a process-lifetime random key.
type TCPTable struct {
	shards []*tcpShard
	mask   uint64
	key    shardKey
	drop   *dropLimiter
}

func NewTCPTable(shardCount int, key [16]byte) *TCPTable {
	n := nextPowerOfTwo(shardCount)
	shards := make([]*tcpShard, n)
	for i := range shards {
		shards[i] = &tcpShard{entries: make(map[uint64]*model.TCPSegmentRecord)}
	}
	return &TCPTable{
		shards: shards,
		mask:   uint64(n - 1),
		key:    key,
		drop:   newDropLimiter("tcp", metrics.RecordTableLockDrop),
	}
}

func (t *TCPTable) Register(ctx context.Context, rec *model.TCPSegmentRecord) {
	hash := hashFlowSip(t.key, rec.SourceAddress, rec.DestinationAddress, rec.SourcePort, rec.DestinationPort)
	shard := t.shards[hash&t.mask]
	if !acquireShard(ctx, &shard.mu) {
		t.drop.noteDrop()
		return
	}
	shard.entries[hash] = rec
	shard.mu.Unlock()
}

func (t *TCPTable) Len() int {
	total := 0
	for _, s := range t.shards {
		s.mu.RLock()
		total += len(s.entries)
		s.mu.RUnlock()
	}
	return total
}

type socksShard struct {
	mu      sync.RWMutex
	entries map[uint64]*model.SocksTunnelRecord
}

// SocksTable registers SOCKS tunnel shapes, keyed the same way as TCPTable.
type SocksTable struct {
	shards []*socksShard
	mask   uint64
	key    shardKey
	drop   *dropLimiter
}

func NewSocksTable(shardCount int, key [16]byte) *SocksTable {
	n := nextPowerOfTwo(shardCount)
	shards := make([]*socksShard, n)
	for i := range shards {
		shards[i] = &socksShard{entries: make(map[uint64]*model.SocksTunnelRecord)}
	}
	return &SocksTable{
		shards: shards,
		mask:   uint64(n - 1),
		key:    key,
		drop:   newDropLimiter("socks", metrics.RecordTableLockDrop),
	}
}

func (t *SocksTable) Register(ctx context.Context, rec *model.SocksTunnelRecord) {
	hash := hashFlowSip(t.key, rec.SourceAddress, rec.DestinationAddress, rec.SourcePort, rec.DestinationPort)
	shard := t.shards[hash&t.mask]
	if !acquireShard(ctx, &shard.mu) {
		t.drop.noteDrop()
		return
	}
	shard.entries[hash] = rec
	shard.mu.Unlock()
}

func (t *SocksTable) Len() int {
	total := 0
	for _, s := range t.shards {
		s.mu.RLock()
		total += len(s.entries)
		s.mu.RUnlock()
	}
	return total
}

type sshShard struct {
	mu      sync.RWMutex
	entries map[uint64]*model.SshSessionRecord
}

// SSHTable registers SSH session shapes, keyed the same way as TCPTable.
type SSHTable struct {
	shards []*sshShard
	mask   uint64
	key    shardKey
	drop   *dropLimiter
}

func NewSSHTable(shardCount int, key [16]byte) *SSHTable {
	n := nextPowerOfTwo(shardCount)
	shards := make([]*sshShard, n)
	for i := range shards {
		shards[i] = &sshShard{entries: make(map[uint64]*model.SshSessionRecord)}
	}
	return &SSHTable{
		shards: shards,
		mask:   uint64(n - 1),
		key:    key,
		drop:   newDropLimiter("ssh", metrics.RecordTableLockDrop),
	}
}

func (t *SSHTable) Register(ctx context.Context, rec *model.SshSessionRecord) {
	hash := hashFlowSip(t.key, rec.SourceAddress, rec.DestinationAddress, rec.SourcePort, rec.DestinationPort)
	shard := t.shards[hash&t.mask]
	if !acquireShard(ctx, &shard.mu) {
		t.drop.noteDrop()
		return
	}
	shard.entries[hash] = rec
	shard.mu.Unlock()
}

func (t *SSHTable) Len() int {
	total := 0
	for _, s := range t.shards {
		s.mu.RLock()
		total += len(s.entries)
		s.mu.RUnlock()
	}
	return total
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
