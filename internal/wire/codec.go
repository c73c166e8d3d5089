package wire

import (
	"encoding/binary"
	"errors"

	"udptracker/internal/swarm"
)

// Action IDs as defined by BEP 15.
const (
	actionConnect  uint32 = 0
	actionAnnounce uint32 = 1
	actionScrape   uint32 = 2
	actionError    uint32 = 3
)

// initialConnectionID is the fixed magic value a client sends on Connect.
var initialConnectionID = [8]byte{0, 0, 0x04, 0x17, 0x27, 0x10, 0x19, 0x80}

var (
	// ErrMalformedPacket is returned for anything shorter than a header or
	// otherwise structurally invalid. Callers must drop the datagram
	// silently and never respond to it. The socket layer counts such a
	// datagram only in its general received-request counters; no separate
	// counter records malformed packets.
	ErrMalformedPacket = errors.New("wire: malformed packet")
	errMalformedEvent  = errors.New("wire: malformed event id")
)

const headerLen = 16

// Decode parses a raw datagram into a Request. The first 8 bytes are the
// connection ID; callers check it against their connection table themselves
// (Decode only validates the Connect magic value, per BEP 15).
func Decode(packet []byte) (Request, error) {
	if len(packet) < headerLen {
		return Request{}, ErrMalformedPacket
	}

	action := binary.BigEndian.Uint32(packet[8:12])
	txID := binary.BigEndian.Uint32(packet[12:16])

	switch action {
	case actionConnect:
		var connID [8]byte
		copy(connID[:], packet[0:8])
		if connID != initialConnectionID {
			return Request{}, ErrMalformedPacket
		}
		return Request{
			Kind:    KindConnect,
			Connect: &ConnectRequest{TransactionID: txID},
		}, nil

	case actionAnnounce:
		req, err := decodeAnnounce(packet, txID)
		if err != nil {
			return Request{}, err
		}
		return Request{Kind: KindAnnounce, Announce: req}, nil

	case actionScrape:
		req, err := decodeScrape(packet, txID)
		if err != nil {
			return Request{}, err
		}
		return Request{Kind: KindScrape, Scrape: req}, nil

	default:
		return Request{}, ErrMalformedPacket
	}
}

const announceLen = 98

func decodeAnnounce(packet []byte, txID uint32) (*AnnounceRequest, error) {
	if len(packet) < announceLen {
		return nil, ErrMalformedPacket
	}

	connID := binary.BigEndian.Uint64(packet[0:8])
	infoHash := swarm.InfoHashFromBytes(packet[16:36])
	peerID := swarm.PeerIDFromBytes(packet[36:56])
	downloaded := binary.BigEndian.Uint64(packet[56:64])
	left := binary.BigEndian.Uint64(packet[64:72])
	uploaded := binary.BigEndian.Uint64(packet[72:80])
	eventID := binary.BigEndian.Uint32(packet[80:84])
	if eventID > 3 {
		return nil, errMalformedEvent
	}
	key := binary.BigEndian.Uint32(packet[88:92])
	numWant := int32(binary.BigEndian.Uint32(packet[92:96]))
	port := binary.BigEndian.Uint16(packet[96:98])

	return &AnnounceRequest{
		TransactionID: txID,
		ConnectionID:  swarm.ConnectionID(connID),
		InfoHash:      infoHash,
		PeerID:        peerID,
		Downloaded:    downloaded,
		Left:          left,
		Uploaded:      uploaded,
		Event:         Event(eventID),
		Key:           key,
		PeersWanted:   numWant,
		Port:          port,
	}, nil
}

func decodeScrape(packet []byte, txID uint32) (*ScrapeRequest, error) {
	if len(packet) < headerLen || (len(packet)-headerLen)%20 != 0 {
		return nil, ErrMalformedPacket
	}

	connID := binary.BigEndian.Uint64(packet[0:8])
	n := (len(packet) - headerLen) / 20

	req := &ScrapeRequest{
		TransactionID: txID,
		ConnectionID:  swarm.ConnectionID(connID),
		InfoHashes:    make([]swarm.InfoHash, 0, n),
	}

	for i := 0; i < n; i++ {
		off := headerLen + i*20
		req.InfoHashes = append(req.InfoHashes, swarm.InfoHashFromBytes(packet[off:off+20]))
	}

	return req, nil
}

// EncodeConnect encodes a ConnectResponse.
func EncodeConnect(r *ConnectResponse) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint32(buf[0:4], actionConnect)
	binary.BigEndian.PutUint32(buf[4:8], r.TransactionID)
	binary.BigEndian.PutUint64(buf[8:16], uint64(r.ConnectionID))
	return buf
}

// EncodeAnnounce encodes an AnnounceResponse. Each peer is serialized with
// the width of its own (unmapped) address: 6 bytes for IPv4, 18 for IPv6.
// All peers in one response normally share the requester's family, per the
// TorrentMap split in package swarm.
func EncodeAnnounce(r *AnnounceResponse) []byte {
	buf := make([]byte, 20, 20+len(r.Peers)*18)
	binary.BigEndian.PutUint32(buf[0:4], actionAnnounce)
	binary.BigEndian.PutUint32(buf[4:8], r.TransactionID)
	binary.BigEndian.PutUint32(buf[8:12], r.Interval)
	binary.BigEndian.PutUint32(buf[12:16], uint32(r.Leechers))
	binary.BigEndian.PutUint32(buf[16:20], uint32(r.Seeders))

	for _, p := range r.Peers {
		// Unmap defensively: a v4-mapped address (::ffff:a.b.c.d) must
		// still serialize as a 6-byte IPv4 peer entry, not an 18-byte
		// IPv6 one, regardless of how it reached this point.
		buf = append(buf, p.IP.Unmap().AsSlice()...)
		var portBuf [2]byte
		binary.BigEndian.PutUint16(portBuf[:], p.Port)
		buf = append(buf, portBuf[:]...)
	}

	return buf
}

// EncodeScrape encodes a ScrapeResponse.
func EncodeScrape(r *ScrapeResponse) []byte {
	buf := make([]byte, 8, 8+len(r.Stats)*12)
	binary.BigEndian.PutUint32(buf[0:4], actionScrape)
	binary.BigEndian.PutUint32(buf[4:8], r.TransactionID)

	for _, s := range r.Stats {
		var entry [12]byte
		binary.BigEndian.PutUint32(entry[0:4], uint32(s.Seeders))
		binary.BigEndian.PutUint32(entry[4:8], uint32(s.Completed))
		binary.BigEndian.PutUint32(entry[8:12], uint32(s.Leechers))
		buf = append(buf, entry[:]...)
	}

	return buf
}

// EncodeError encodes an ErrorResponse. The message is appended verbatim as
// the remainder of the packet, per BEP 15.
func EncodeError(r *ErrorResponse) []byte {
	buf := make([]byte, 8, 8+len(r.Message))
	binary.BigEndian.PutUint32(buf[0:4], actionError)
	binary.BigEndian.PutUint32(buf[4:8], r.TransactionID)
	buf = append(buf, r.Message...)
	return buf
}

// Encode dispatches to the right Encode* function for r.Kind.
func Encode(r Response) []byte {
	switch r.Kind {
	case KindConnectResp:
		return EncodeConnect(r.Connect)
	case KindAnnounceResp:
		return EncodeAnnounce(r.Announce)
	case KindScrapeResp:
		return EncodeScrape(r.Scrape)
	case KindErrorResp:
		return EncodeError(r.Error)
	default:
		panic("wire: unknown response kind")
	}
}
