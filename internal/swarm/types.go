// Package swarm implements the per-shard connection table and torrent/peer
// maps that back the tracker's announce and scrape state machine.
//
// A single swarm.HandlerData is meant to be owned by exactly one shard: all
// of its fields are guarded by its embedded mutex, and callers are expected
// to hold that mutex (or use the opportunistic TryLock batching pattern in
// package handler) before touching anything reachable from it.
package swarm

import (
	"encoding/hex"
	"net/netip"
	"time"
)

// ConnectionID is the opaque 64-bit cookie issued to a client on Connect.
type ConnectionID uint64

// ConnectionKey binds a ConnectionID to the endpoint it was issued to, so a
// stolen cookie is useless from a different source address.
type ConnectionKey struct {
	ID   ConnectionID
	Addr netip.AddrPort
}

// InfoHash is a 20-byte torrent identifier.
type InfoHash [20]byte

// String returns the hex encoding of the hash.
func (ih InfoHash) String() string {
	return hex.EncodeToString(ih[:])
}

// InfoHashFromBytes builds an InfoHash from a byte slice.
//
// It panics if b is not 20 bytes long.
func InfoHashFromBytes(b []byte) InfoHash {
	if len(b) != 20 {
		panic("infohash must be 20 bytes")
	}
	var ih InfoHash
	copy(ih[:], b)
	return ih
}

// PeerID is a 20-byte client-chosen peer identifier.
type PeerID [20]byte

// PeerIDFromBytes builds a PeerID from a byte slice.
//
// It panics if b is not 20 bytes long.
func PeerIDFromBytes(b []byte) PeerID {
	if len(b) != 20 {
		panic("peer ID must be 20 bytes")
	}
	var id PeerID
	copy(id[:], b)
	return id
}

// PeerStatus is derived from an announce's event and bytes-left fields.
type PeerStatus uint8

const (
	// Leeching means the peer is still downloading.
	Leeching PeerStatus = iota
	// Seeding means the peer has the complete file (bytes_left == 0).
	Seeding
	// Stopped means the peer announced event=stopped and should not be
	// resident in any PeerMap.
	Stopped
)

func (s PeerStatus) String() string {
	switch s {
	case Leeching:
		return "leeching"
	case Seeding:
		return "seeding"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// PeerMapKey identifies a peer within a single torrent's swarm. Identity is
// (IP, PeerID); the announced port is intentionally excluded.
type PeerMapKey struct {
	IP     netip.Addr
	PeerID PeerID
}

// Peer is a resident record of an announcing client.
type Peer struct {
	IP           netip.Addr
	Port         uint16
	Status       PeerStatus
	LastAnnounce time.Time
}

// Expired reports whether the peer has not announced within ttl of now.
func (p Peer) Expired(now time.Time, ttl time.Duration) bool {
	return p.LastAnnounce.Add(ttl).Compare(now) <= 0
}
