// Package handler implements the batched request-dispatch pipeline and the
// announce/scrape state machine that mutate a shard's swarm.HandlerData.
package handler

import (
	"net/netip"
	"time"

	"udptracker/internal/wire"
)

// Config holds the subset of tracker configuration a Worker needs.
type Config struct {
	// MaxRequestsPerIter upper-bounds how many requests one batch collects.
	MaxRequestsPerIter int
	// ChannelRecvTimeout is the bounded wait used while collecting the
	// rest of a batch before probing the shard mutex.
	ChannelRecvTimeout time.Duration
	// MaxResponsePeers caps how many peers an Announce ever returns.
	MaxResponsePeers int
	// PeerAnnounceInterval is the announce_interval value, in seconds,
	// returned to clients.
	PeerAnnounceInterval uint32
	// TrackCompleted enables the optional per-torrent completed-download
	// counter reported by scrape. Off by default.
	TrackCompleted bool
}

// Job is a decoded request paired with its source address, as published by
// the socket layer onto a shard's inbound channel.
type Job struct {
	Request wire.Request
	Addr    netip.AddrPort
}

// Outbound is an encoded-ready response paired with its destination
// address, published back to the socket layer.
type Outbound struct {
	Response wire.Response
	Addr     netip.AddrPort
}
