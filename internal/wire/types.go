// Package wire implements the BEP 15 (BitTorrent UDP tracker) request and
// response framing. It is the decoded-request/encoded-response boundary
// between the socket layer and the rest of the tracker core.
package wire

import "udptracker/internal/swarm"

// Event mirrors the BEP 15 announce event field.
type Event uint8

const (
	EventNone Event = iota
	EventCompleted
	EventStarted
	EventStopped
)

// ConnectRequest is the decoded body of a Connect action.
type ConnectRequest struct {
	TransactionID uint32
}

// AnnounceRequest is the decoded body of an Announce action. The requester's
// address family is not carried on the wire; it is derived from the source
// UDPAddr the packet arrived on.
type AnnounceRequest struct {
	TransactionID uint32
	ConnectionID  swarm.ConnectionID
	InfoHash      swarm.InfoHash
	PeerID        swarm.PeerID
	Downloaded    uint64
	Left          uint64
	Uploaded      uint64
	Event         Event
	Key           uint32
	PeersWanted   int32
	Port          uint16
}

// ScrapeRequest is the decoded body of a Scrape action.
type ScrapeRequest struct {
	TransactionID uint32
	ConnectionID  swarm.ConnectionID
	InfoHashes    []swarm.InfoHash
}

// RequestKind tags which request variant a Request carries.
type RequestKind uint8

const (
	KindConnect RequestKind = iota
	KindAnnounce
	KindScrape
)

// Request is the tagged union of decoded request variants routed from the
// socket layer to a handler shard.
type Request struct {
	Kind     RequestKind
	Connect  *ConnectRequest
	Announce *AnnounceRequest
	Scrape   *ScrapeRequest
}

// ConnectResponse is the reply to a Connect action.
type ConnectResponse struct {
	TransactionID uint32
	ConnectionID  swarm.ConnectionID
}

// AnnounceResponse is the reply to an Announce action.
type AnnounceResponse struct {
	TransactionID uint32
	Interval      uint32
	Leechers      int32
	Seeders       int32
	Peers         []swarm.Peer
}

// TorrentScrapeStatistics is one torrent's entry in a ScrapeResponse.
type TorrentScrapeStatistics struct {
	Seeders   int32
	Completed int32
	Leechers  int32
}

// ScrapeResponse is the reply to a Scrape action.
type ScrapeResponse struct {
	TransactionID uint32
	Stats         []TorrentScrapeStatistics
}

// ErrorResponse is returned for any request-level failure that is not a
// malformed/unparseable packet (those are dropped silently by the socket
// layer and never reach here).
type ErrorResponse struct {
	TransactionID uint32
	Message       string
}

// ResponseKind tags which response variant a Response carries.
type ResponseKind uint8

const (
	KindConnectResp ResponseKind = iota
	KindAnnounceResp
	KindScrapeResp
	KindErrorResp
)

// Response is the tagged union of response variants a handler shard emits
// back toward the socket layer for encoding and transmission.
type Response struct {
	Kind     ResponseKind
	Connect  *ConnectResponse
	Announce *AnnounceResponse
	Scrape   *ScrapeResponse
	Error    *ErrorResponse
}

// NewConnectionInvalidError builds the canned error sent for an unknown or
// expired connection cookie.
func NewConnectionInvalidError(transactionID uint32) Response {
	return Response{
		Kind: KindErrorResp,
		Error: &ErrorResponse{
			TransactionID: transactionID,
			Message:       "Connection invalid or expired",
		},
	}
}
