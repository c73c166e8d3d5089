package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"udptracker/internal/swarm"
	"udptracker/internal/wire"
)

func TestHandleConnectBindsConnectionToAddr(t *testing.T) {
	data := swarm.NewHandlerData()
	addr := testAddr("1.2.3.4:6881")
	now := time.Now()

	req := &wire.ConnectRequest{TransactionID: 1}
	out := handleConnect(data, now, []connectJob{{req: req, addr: addr}}, nil)

	require.Len(t, out, 1)
	require.Equal(t, wire.KindConnectResp, out[0].Response.Kind)

	id := out[0].Response.Connect.ConnectionID
	require.True(t, data.Connections.Valid(swarm.ConnectionKey{ID: id, Addr: addr}))
}

func TestHandleConnectDifferentAddrsGetDifferentCookies(t *testing.T) {
	data := swarm.NewHandlerData()
	now := time.Now()

	req1 := &wire.ConnectRequest{TransactionID: 1}
	req2 := &wire.ConnectRequest{TransactionID: 2}

	out := handleConnect(data, now, []connectJob{
		{req: req1, addr: testAddr("1.2.3.4:1")},
		{req: req2, addr: testAddr("1.2.3.4:2")},
	}, nil)

	require.Len(t, out, 2)
	require.NotEqual(t, out[0].Response.Connect.ConnectionID, out[1].Response.Connect.ConnectionID)
}
