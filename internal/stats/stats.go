// Package stats implements the process-wide atomic counters updated on the
// I/O path and the periodic sampler that reads and resets them, derives
// per-second rates, and walks all TorrentData for a peers-per-torrent
// histogram.
package stats

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"udptracker/internal/swarm"
	"udptracker/internal/tracelog"
)

func init() {
	prometheus.MustRegister(
		promRequestsPerSecond,
		promResponsesPerSecond,
		promBytesReceivedPerSecond,
		promBytesSentPerSecond,
		promInfohashesCount,
		promSeedersCount,
		promLeechersCount,
	)
}

var (
	promRequestsPerSecond = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "udptracker_requests_per_second",
		Help: "Requests received per second, sampled over the statistics interval.",
	})
	promResponsesPerSecond = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "udptracker_responses_per_second",
		Help: "Responses sent per second, sampled over the statistics interval.",
	})
	promBytesReceivedPerSecond = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "udptracker_bytes_received_per_second",
		Help: "Bytes received per second, sampled over the statistics interval.",
	})
	promBytesSentPerSecond = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "udptracker_bytes_sent_per_second",
		Help: "Bytes sent per second, sampled over the statistics interval.",
	})
	promInfohashesCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "udptracker_infohashes_count",
		Help: "Distinct info hashes currently tracked across all shards.",
	})
	promSeedersCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "udptracker_seeders_count",
		Help: "Seeders currently tracked across all shards.",
	})
	promLeechersCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "udptracker_leechers_count",
		Help: "Leechers currently tracked across all shards.",
	})
)

// Counters are the process-wide atomics incremented on the hot path.
// No ordering between counters is relied on: each is read and reset on its
// own, so rate reports are approximate by design.
type Counters struct {
	RequestsReceived atomic.Uint64
	ResponsesSent    atomic.Uint64
	BytesReceived    atomic.Uint64
	BytesSent        atomic.Uint64
	ReadableEvents   atomic.Uint64
}

// swapToZero atomically reads and resets v, returning the pre-reset value.
func swapToZero(v *atomic.Uint64) uint64 {
	return v.Swap(0)
}

// Sampler periodically drains Counters and walks shard torrent maps to
// print and export statistics.
type Sampler struct {
	Counters *Counters
	Shards   []*swarm.HandlerData
	Interval time.Duration
}

// Run blocks, sampling once per Interval, until stop is closed.
func (s *Sampler) Run(stop <-chan struct{}) {
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-t.C:
			s.sample()
		}
	}
}

func (s *Sampler) sample() {
	interval := s.Interval.Seconds()

	requests := float64(swapToZero(&s.Counters.RequestsReceived))
	responses := float64(swapToZero(&s.Counters.ResponsesSent))
	bytesIn := float64(swapToZero(&s.Counters.BytesReceived))
	bytesOut := float64(swapToZero(&s.Counters.BytesSent))
	readableEvents := float64(swapToZero(&s.Counters.ReadableEvents))

	requestsPerSecond := requests / interval
	responsesPerSecond := responses / interval
	bytesInPerSecond := bytesIn / interval
	bytesOutPerSecond := bytesOut / interval

	requestsPerReadableEvent := 0.0
	if readableEvents != 0 {
		requestsPerReadableEvent = requests / readableEvents
	}

	promRequestsPerSecond.Set(requestsPerSecond)
	promResponsesPerSecond.Set(responsesPerSecond)
	promBytesReceivedPerSecond.Set(bytesInPerSecond)
	promBytesSentPerSecond.Set(bytesOutPerSecond)

	tracelog.Info(fmt.Sprintf(
		"stats: %.2f requests/second, %.2f responses/second, %.2f requests/readable event",
		requestsPerSecond, responsesPerSecond, requestsPerReadableEvent,
	))
	tracelog.Info(fmt.Sprintf(
		"bandwidth: %.2f Mbit/s in, %.2f Mbit/s out",
		bytesInPerSecond*8/1_000_000, bytesOutPerSecond*8/1_000_000,
	))

	hist := newHistogram()
	var numInfohashes, numSeeders, numLeechers uint64

	for _, shard := range s.Shards {
		shard.Lock()
		walkTorrents(shard.Torrents.IPv4, hist, &numInfohashes, &numSeeders, &numLeechers)
		walkTorrents(shard.Torrents.IPv6, hist, &numInfohashes, &numSeeders, &numLeechers)
		shard.Unlock()
	}

	promInfohashesCount.Set(float64(numInfohashes))
	promSeedersCount.Set(float64(numSeeders))
	promLeechersCount.Set(float64(numLeechers))

	if hist.count > 0 {
		tracelog.Info(fmt.Sprintf(
			"peers per torrent: min: %d, p50: %d, p75: %d, p90: %d, p99: %d, p999: %d, max: %d",
			hist.min(), hist.percentile(50), hist.percentile(75), hist.percentile(90),
			hist.percentile(99), hist.percentile(99.9), hist.max(),
		))
	}
}

func walkTorrents(tm swarm.TorrentMap, hist *histogram, numInfohashes, numSeeders, numLeechers *uint64) {
	for _, td := range tm {
		*numInfohashes++
		*numSeeders += uint64(td.NumSeeders)
		*numLeechers += uint64(td.NumLeechers)
		hist.add(uint64(td.NumSeeders + td.NumLeechers))
	}
}
