package handler

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"udptracker/internal/swarm"
	"udptracker/internal/wire"
)

func TestWorkerProcessesConnectAndReplies(t *testing.T) {
	data := swarm.NewHandlerData()
	requests := make(chan Job, 4)
	outbound := make(chan Outbound, 4)

	cfg := Config{
		MaxRequestsPerIter: 10,
		ChannelRecvTimeout: 10 * time.Millisecond,
		MaxResponsePeers:   50,
	}
	w := NewWorker(0, data, cfg, requests, outbound)
	go w.Run()

	addr := netip.MustParseAddrPort("1.2.3.4:6881")
	requests <- Job{
		Request: wire.Request{Kind: wire.KindConnect, Connect: &wire.ConnectRequest{TransactionID: 5}},
		Addr:    addr,
	}

	select {
	case out := <-outbound:
		require.Equal(t, wire.KindConnectResp, out.Response.Kind)
		require.EqualValues(t, 5, out.Response.Connect.TransactionID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for connect response")
	}

	close(requests)
}

func TestWorkerBatchesUntilTimeoutThenLocks(t *testing.T) {
	data := swarm.NewHandlerData()
	requests := make(chan Job, 4)
	outbound := make(chan Outbound, 4)

	cfg := Config{
		MaxRequestsPerIter: 10,
		ChannelRecvTimeout: 5 * time.Millisecond,
		MaxResponsePeers:   50,
	}
	w := NewWorker(0, data, cfg, requests, outbound)
	go w.Run()

	addr := netip.MustParseAddrPort("5.6.7.8:6881")
	for i := 0; i < 3; i++ {
		requests <- Job{
			Request: wire.Request{Kind: wire.KindConnect, Connect: &wire.ConnectRequest{TransactionID: uint32(i)}},
			Addr:    addr,
		}
	}

	seen := 0
	for seen < 3 {
		select {
		case <-outbound:
			seen++
		case <-time.After(time.Second):
			t.Fatalf("only saw %d/3 responses", seen)
		}
	}

	close(requests)
}
