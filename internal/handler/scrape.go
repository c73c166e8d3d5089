package handler

import (
	"net/netip"

	"udptracker/internal/swarm"
	"udptracker/internal/wire"
)

type scrapeJob struct {
	req  *wire.ScrapeRequest
	addr netip.AddrPort
}

// handleScrape processes one batch of Scrape requests against data, which
// must already be locked by the caller.
func handleScrape(data *swarm.HandlerData, reqs []scrapeJob, out []Outbound) []Outbound {
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

		stats := make([]wire.TorrentScrapeStatistics, 0, len(req.InfoHashes))
		for _, ih := range req.InfoHashes {
			td, ok := torrents[ih]
			if !ok {
				stats = append(stats, wire.TorrentScrapeStatistics{})
				continue
			}
			stats = append(stats, wire.TorrentScrapeStatistics{
				Seeders:   int32(td.NumSeeders),
				Completed: int32(td.Completed),
				Leechers:  int32(td.NumLeechers),
			})
		}

		out = append(out, Outbound{
			Response: wire.Response{
				Kind: wire.KindScrapeResp,
				Scrape: &wire.ScrapeResponse{
					TransactionID: req.TransactionID,
					Stats:         stats,
				},
			},
			Addr: j.addr,
		})
	}

	return out
}
