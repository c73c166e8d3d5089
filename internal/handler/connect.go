package handler

import (
	"net/netip"
	"time"

	"udptracker/internal/swarm"
	"udptracker/internal/wire"
)

// handleConnect processes one batch of Connect requests against data, which
// must already be locked by the caller: draw a fresh connection ID, bind it
// to the source address, and reply unconditionally.
func handleConnect(data *swarm.HandlerData, now time.Time, reqs []connectJob, out []Outbound) []Outbound {
	for _, j := range reqs {
		id := nextConnectionID()

		key := swarm.ConnectionKey{ID: id, Addr: j.addr}
		data.Connections.Insert(key, now)

		out = append(out, Outbound{
			Response: wire.Response{
				Kind: wire.KindConnectResp,
				Connect: &wire.ConnectResponse{
					TransactionID: j.req.TransactionID,
					ConnectionID:  id,
				},
			},
			Addr: j.addr,
		})
	}

	return out
}

type connectJob struct {
	req  *wire.ConnectRequest
	addr netip.AddrPort
}
