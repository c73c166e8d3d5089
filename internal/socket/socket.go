// Package socket owns the UDP listener: it reads packets into pooled
// buffers, decodes and shards them by source address onto per-worker
// request channels, and drains a shared outbound channel back onto the
// wire.
package socket

import (
	"hash/fnv"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"udptracker/internal/handler"
	"udptracker/internal/socket/bytepool"
	"udptracker/internal/stats"
	"udptracker/internal/tracelog"
	"udptracker/internal/wire"
)

func init() {
	prometheus.MustRegister(promResponseDurationMilliseconds)
}

var promResponseDurationMilliseconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "udptracker_response_duration_milliseconds",
		Help:    "Time a writer spends encoding a response and writing it to the socket.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 16),
	},
	[]string{"action"},
)

// Config holds the socket layer's tunables.
type Config struct {
	ListenAddr     string
	ReadBufferSize int
	WriterCount    int
}

// Socket owns the UDP connection and the goroutines feeding and draining
// the shard request/outbound channels.
type Socket struct {
	cfg      Config
	conn     *net.UDPConn
	shards   []chan<- handler.Job
	counters *stats.Counters

	closing chan struct{}
	wg      sync.WaitGroup
}

// New binds a UDP socket per cfg. shards is indexed by the same hash used
// to route requests: shards[i] is the inbound channel owned by worker i.
func New(cfg Config, shards []chan<- handler.Job, counters *stats.Counters) (*Socket, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", cfg.ListenAddr)
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}

	if cfg.ReadBufferSize > 0 {
		conn.SetReadBuffer(cfg.ReadBufferSize)
	}

	return &Socket{
		cfg:      cfg,
		conn:     conn,
		shards:   shards,
		counters: counters,
		closing:  make(chan struct{}),
	}, nil
}

// ShardFor returns the shard index a given address routes to. Exposed so
// the writer side of the pipeline and tests can agree on the same
// assignment the read loop uses.
func ShardFor(addr *net.UDPAddr, numShards int) int {
	h := fnv.New32a()
	h.Write(addr.IP)
	var portBytes [2]byte
	portBytes[0] = byte(addr.Port >> 8)
	portBytes[1] = byte(addr.Port)
	h.Write(portBytes[:])
	return int(h.Sum32()) % numShards
}

// Serve reads packets until Close is called, blocking the caller.
func (s *Socket) Serve() error {
	pool := bytepool.New(2048, 2048)

	for {
		select {
		case <-s.closing:
			return nil
		default:
		}

		buf := pool.Get()
		s.conn.SetReadDeadline(time.Now().Add(time.Second))
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			pool.Put(buf)
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			select {
			case <-s.closing:
				return nil
			default:
			}
			return err
		}

		s.counters.ReadableEvents.Add(1)
		s.counters.RequestsReceived.Add(1)
		s.counters.BytesReceived.Add(uint64(n))

		req, err := wire.Decode(buf[:n])
		pool.Put(buf)
		if err != nil {
			tracelog.Debug("socket: malformed packet dropped", tracelog.Fields{"addr": addr.String()})
			continue
		}

		// Unmap() so a v4-mapped address from a dual-stack socket
		// (::ffff:a.b.c.d) is carried through the handler as a plain
		// 4-byte IPv4 address rather than a 16-byte IPv6 one. The
		// encoder picks its peer-entry width from this distinction.
		addrPort := netip.AddrPortFrom(addr.AddrPort().Addr().Unmap(), addr.AddrPort().Port())
		idx := ShardFor(addr, len(s.shards))

		select {
		case s.shards[idx] <- handler.Job{Request: req, Addr: addrPort}:
		default:
			tracelog.Warn("socket: shard queue full, dropping request", tracelog.Fields{"shard": idx})
		}
	}
}

// RunWriters drains outbound and writes each response to the wire,
// spawning cfg.WriterCount goroutines. It blocks until outbound is closed
// and drained.
func (s *Socket) RunWriters(outbound <-chan handler.Outbound) {
	n := s.cfg.WriterCount
	if n < 1 {
		n = 1
	}

	s.wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer s.wg.Done()
			s.writeLoop(outbound)
		}()
	}
	s.wg.Wait()
}

func (s *Socket) writeLoop(outbound <-chan handler.Outbound) {
	for o := range outbound {
		start := time.Now()

		payload := wire.Encode(o.Response)
		udpAddr := net.UDPAddrFromAddrPort(o.Addr)

		n, err := s.conn.WriteToUDP(payload, udpAddr)
		if err != nil {
			tracelog.Warn("socket: write failed", tracelog.Err(err))
			continue
		}

		s.counters.ResponsesSent.Add(1)
		s.counters.BytesSent.Add(uint64(n))

		promResponseDurationMilliseconds.
			WithLabelValues(actionLabel(o.Response.Kind)).
			Observe(float64(time.Since(start).Microseconds()) / 1000)
	}
}

func actionLabel(kind wire.ResponseKind) string {
	switch kind {
	case wire.KindConnectResp:
		return "connect"
	case wire.KindAnnounceResp:
		return "announce"
	case wire.KindScrapeResp:
		return "scrape"
	default:
		return "error"
	}
}

// Close stops the read loop and closes the underlying connection.
func (s *Socket) Close() error {
	close(s.closing)
	s.conn.SetReadDeadline(time.Now())
	return s.conn.Close()
}
