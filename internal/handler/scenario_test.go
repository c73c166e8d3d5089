package handler

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"udptracker/internal/swarm"
	"udptracker/internal/wire"
)

// TestAnnounceScrapeScenario walks the literal end-to-end sequence through
// one shard: connect two peers, announce a leecher then a seeder, stop the
// leecher, and scrape both info hashes, checking the response at each step.
func TestAnnounceScrapeScenario(t *testing.T) {
	data := swarm.NewHandlerData()
	peerRand := rand.New(rand.NewSource(1))
	cfg := Config{MaxResponsePeers: 50, PeerAnnounceInterval: 1800}

	addr1 := testAddr("10.0.0.1:6881")
	addr2 := testAddr("10.0.0.2:6881")
	hashH := swarm.InfoHash{0xAA}
	hashH2 := swarm.InfoHash{0xBB}
	peer1 := swarm.PeerID{1}
	peer2 := swarm.PeerID{2}

	now := time.Now()

	// 1. Connect from 10.0.0.1:6881, transaction_id=42.
	connOut := handleConnect(data, now,
		[]connectJob{{req: &wire.ConnectRequest{TransactionID: 42}, addr: addr1}}, nil)
	require.Len(t, connOut, 1)
	require.Equal(t, wire.KindConnectResp, connOut[0].Response.Kind)
	require.EqualValues(t, 42, connOut[0].Response.Connect.TransactionID)
	connID1 := connOut[0].Response.Connect.ConnectionID
	require.True(t, data.Connections.Valid(swarm.ConnectionKey{ID: connID1, Addr: addr1}))

	// A second Connect for 10.0.0.2:6881, used by steps 3 and 5.
	connOut2 := handleConnect(data, now,
		[]connectJob{{req: &wire.ConnectRequest{TransactionID: 43}, addr: addr2}}, nil)
	connID2 := connOut2[0].Response.Connect.ConnectionID

	// 2. Announce from 10.0.0.1:6881: first peer in the swarm, leeching.
	// The peer is inserted before sampling, so the only peer returned is
	// the requester itself.
	announce1 := &wire.AnnounceRequest{
		TransactionID: 100,
		ConnectionID:  connID1,
		InfoHash:      hashH,
		PeerID:        peer1,
		Port:          6881,
		Event:         wire.EventStarted,
		Left:          100,
		PeersWanted:   50,
	}
	out1 := handleAnnounce(data, cfg, peerRand, now, []announceJob{{req: announce1, addr: addr1}}, nil)
	require.Len(t, out1, 1)
	resp1 := out1[0].Response.Announce
	require.EqualValues(t, 1, resp1.Leechers)
	require.EqualValues(t, 0, resp1.Seeders)
	require.Len(t, resp1.Peers, 1)
	require.Equal(t, addr1.Addr(), resp1.Peers[0].IP)

	// 3. Announce from 10.0.0.2:6881 using connID2: a seeder (left=0).
	announce2 := &wire.AnnounceRequest{
		TransactionID: 101,
		ConnectionID:  connID2,
		InfoHash:      hashH,
		PeerID:        peer2,
		Port:          6881,
		Event:         wire.EventStarted,
		Left:          0,
		PeersWanted:   50,
	}
	out2 := handleAnnounce(data, cfg, peerRand, now, []announceJob{{req: announce2, addr: addr2}}, nil)
	require.Len(t, out2, 1)
	resp2 := out2[0].Response.Announce
	require.EqualValues(t, 1, resp2.Leechers)
	require.EqualValues(t, 1, resp2.Seeders)
	require.Len(t, resp2.Peers, 1)
	require.Equal(t, addr1.Addr(), resp2.Peers[0].IP)
	require.EqualValues(t, 6881, resp2.Peers[0].Port)

	// 4. Announce from 10.0.0.1:6881, event=Stopped.
	stopReq := &wire.AnnounceRequest{
		TransactionID: 102,
		ConnectionID:  connID1,
		InfoHash:      hashH,
		PeerID:        peer1,
		Event:         wire.EventStopped,
		PeersWanted:   50,
	}
	out3 := handleAnnounce(data, cfg, peerRand, now, []announceJob{{req: stopReq, addr: addr1}}, nil)
	require.Len(t, out3, 1)
	resp3 := out3[0].Response.Announce
	require.EqualValues(t, 0, resp3.Leechers)
	require.EqualValues(t, 1, resp3.Seeders)

	td := data.Torrents.IPv4[hashH]
	_, stillPresent := td.Peers.Get(swarm.PeerMapKey{IP: addr1.Addr(), PeerID: peer1})
	require.False(t, stillPresent)

	// 5. Scrape from 10.0.0.2:6881 for [H, H'].
	scrapeReq := &wire.ScrapeRequest{
		TransactionID: 103,
		ConnectionID:  connID2,
		InfoHashes:    []swarm.InfoHash{hashH, hashH2},
	}
	scrapeOut := handleScrape(data, []scrapeJob{{req: scrapeReq, addr: addr2}}, nil)
	require.Len(t, scrapeOut, 1)
	stats := scrapeOut[0].Response.Scrape.Stats
	require.Len(t, stats, 2)
	require.EqualValues(t, 1, stats[0].Seeders)
	require.EqualValues(t, 0, stats[0].Leechers)
	require.EqualValues(t, 0, stats[1].Seeders)
	require.EqualValues(t, 0, stats[1].Leechers)

	// 6. Announce using a connection_id never issued.
	badReq := &wire.AnnounceRequest{TransactionID: 104, ConnectionID: 0xDEADBEEF, InfoHash: hashH, PeerID: peer1}
	badOut := handleAnnounce(data, cfg, peerRand, now, []announceJob{{req: badReq, addr: addr1}}, nil)
	require.Len(t, badOut, 1)
	require.Equal(t, wire.KindErrorResp, badOut[0].Response.Kind)
	require.Equal(t, "Connection invalid or expired", badOut[0].Response.Error.Message)

	seedersAfter := data.Torrents.IPv4[hashH].NumSeeders
	leechersAfter := data.Torrents.IPv4[hashH].NumLeechers
	require.EqualValues(t, 1, seedersAfter)
	require.EqualValues(t, 0, leechersAfter)
}
