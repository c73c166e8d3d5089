package handler

import (
	"math/rand"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"udptracker/internal/swarm"
	"udptracker/internal/wire"
)

func testAddr(s string) netip.AddrPort {
	return netip.MustParseAddrPort(s)
}

func TestPeerStatusFor(t *testing.T) {
	require.Equal(t, swarm.Stopped, peerStatusFor(wire.EventStopped, 100))
	require.Equal(t, swarm.Seeding, peerStatusFor(wire.EventCompleted, 100))
	require.Equal(t, swarm.Seeding, peerStatusFor(wire.EventNone, 0))
	require.Equal(t, swarm.Leeching, peerStatusFor(wire.EventStarted, 100))
}

func TestHandleAnnounceRequiresValidConnection(t *testing.T) {
	data := swarm.NewHandlerData()
	addr := testAddr("1.2.3.4:6881")

	req := &wire.AnnounceRequest{TransactionID: 1, ConnectionID: 99, Left: 100}
	out := handleAnnounce(data, Config{MaxResponsePeers: 50}, rand.New(rand.NewSource(1)), time.Now(), []announceJob{{req: req, addr: addr}}, nil)

	require.Len(t, out, 1)
	require.Equal(t, wire.KindErrorResp, out[0].Response.Kind)
}

func TestHandleAnnounceTracksCounters(t *testing.T) {
	data := swarm.NewHandlerData()
	addr := testAddr("1.2.3.4:6881")
	now := time.Now()

	connKey := swarm.ConnectionKey{ID: 7, Addr: addr}
	data.Connections.Insert(connKey, now)

	req := &wire.AnnounceRequest{
		TransactionID: 1,
		ConnectionID:  7,
		InfoHash:      swarm.InfoHash{1, 2, 3},
		PeerID:        swarm.PeerID{9},
		Left:          0,
		PeersWanted:   50,
	}

	cfg := Config{MaxResponsePeers: 50}
	out := handleAnnounce(data, cfg, rand.New(rand.NewSource(1)), now, []announceJob{{req: req, addr: addr}}, nil)

	require.Len(t, out, 1)
	require.Equal(t, wire.KindAnnounceResp, out[0].Response.Kind)

	td := data.Torrents.IPv4[req.InfoHash]
	require.NotNil(t, td)
	require.Equal(t, 1, td.NumSeeders)
	require.Equal(t, 0, td.NumLeechers)
}

func TestHandleAnnounceStoppedRemovesPeer(t *testing.T) {
	data := swarm.NewHandlerData()
	addr := testAddr("1.2.3.4:6881")
	now := time.Now()

	connKey := swarm.ConnectionKey{ID: 7, Addr: addr}
	data.Connections.Insert(connKey, now)

	ih := swarm.InfoHash{1}
	startReq := &wire.AnnounceRequest{TransactionID: 1, ConnectionID: 7, InfoHash: ih, PeerID: swarm.PeerID{9}, Left: 100}
	handleAnnounce(data, Config{MaxResponsePeers: 50}, rand.New(rand.NewSource(1)), now, []announceJob{{req: startReq, addr: addr}}, nil)

	stopReq := &wire.AnnounceRequest{TransactionID: 2, ConnectionID: 7, InfoHash: ih, PeerID: swarm.PeerID{9}, Event: wire.EventStopped}
	handleAnnounce(data, Config{MaxResponsePeers: 50}, rand.New(rand.NewSource(1)), now, []announceJob{{req: stopReq, addr: addr}}, nil)

	td := data.Torrents.IPv4[ih]
	require.Equal(t, 0, td.NumLeechers)
	require.Equal(t, 0, td.Peers.Len())
}
