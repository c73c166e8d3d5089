package handler

import (
	"math/rand"
	"net/netip"
	"time"

	"udptracker/internal/swarm"
	"udptracker/internal/wire"
)

type announceJob struct {
	req  *wire.AnnounceRequest
	addr netip.AddrPort
}

// peerStatusFor derives a peer's status from the announce's event and
// bytes-left fields.
func peerStatusFor(event wire.Event, left uint64) swarm.PeerStatus {
	switch {
	case event == wire.EventStopped:
		return swarm.Stopped
	case event == wire.EventCompleted || left == 0:
		return swarm.Seeding
	default:
		return swarm.Leeching
	}
}

// handleAnnounce processes one batch of Announce requests against data,
// which must already be locked by the caller.
func handleAnnounce(data *swarm.HandlerData, cfg Config, peerRand *rand.Rand, now time.Time, reqs []announceJob, out []Outbound) []Outbound {
	for _, j := range reqs {
		req := j.req

		key := swarm.ConnectionKey{ID: req.ConnectionID, Addr: j.addr}
		if !data.Connections.Valid(key) {
			out = append(out, Outbound{
				Response: wire.NewConnectionInvalidError(req.TransactionID),
				Addr:     j.addr,
			})
			continue
		}

		torrents := data.Torrents.IPv4
		if j.addr.Addr().Is6() && !j.addr.Addr().Is4In6() {
			torrents = data.Torrents.IPv6
		}

		td := torrents.GetOrCreate(req.InfoHash)

		status := peerStatusFor(req.Event, req.Left)
		peerKey := swarm.PeerMapKey{IP: j.addr.Addr(), PeerID: req.PeerID}

		var prev swarm.Peer
		var hadPrev bool

		if status == swarm.Stopped {
			prev, hadPrev = td.Peers.Remove(peerKey)
		} else {
			prev, hadPrev = td.Peers.Upsert(peerKey, swarm.Peer{
				IP:           j.addr.Addr(),
				Port:         req.Port,
				Status:       status,
				LastAnnounce: now,
			})
		}

		if cfg.TrackCompleted && status == swarm.Seeding && (!hadPrev || prev.Status != swarm.Seeding) {
			td.Completed++
		}

		applyCounterDelta(td, status, hadPrev, prev.Status)

		maxWant := int(req.PeersWanted)
		if maxWant < 0 {
			maxWant = 0
		}
		if maxWant > cfg.MaxResponsePeers {
			maxWant = cfg.MaxResponsePeers
		}

		peers := swarm.Sample(peerRand, td.Peers, maxWant)

		out = append(out, Outbound{
			Response: wire.Response{
				Kind: wire.KindAnnounceResp,
				Announce: &wire.AnnounceResponse{
					TransactionID: req.TransactionID,
					Interval:      cfg.PeerAnnounceInterval,
					Leechers:      int32(td.NumLeechers),
					Seeders:       int32(td.NumSeeders),
					Peers:         peers,
				},
			},
			Addr: j.addr,
		})
	}

	return out
}

// applyCounterDelta keeps num_seeders/num_leechers consistent with the
// status transition just applied to the PeerMap.
func applyCounterDelta(td *swarm.TorrentData, newStatus swarm.PeerStatus, hadPrev bool, prevStatus swarm.PeerStatus) {
	switch newStatus {
	case swarm.Leeching:
		td.NumLeechers++
	case swarm.Seeding:
		td.NumSeeders++
	case swarm.Stopped:
	}

	if hadPrev {
		switch prevStatus {
		case swarm.Leeching:
			td.NumLeechers--
		case swarm.Seeding:
			td.NumSeeders--
		}
	}
}
