package swarm

import (
	"math/rand"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"
)

func fillPeerMap(n int) *PeerMap {
	m := NewPeerMap()
	for i := 0; i < n; i++ {
		var id PeerID
		id[0] = byte(i)
		id[1] = byte(i >> 8)
		key := PeerMapKey{IP: netip.AddrFrom4([4]byte{10, 0, byte(i >> 8), byte(i)}), PeerID: id}
		m.Upsert(key, Peer{Port: uint16(i)})
	}
	return m
}

func TestSampleReturnsEverythingWhenUnderCapacity(t *testing.T) {
	m := fillPeerMap(3)
	rng := rand.New(rand.NewSource(1))

	peers := Sample(rng, m, 5)
	require.Len(t, peers, 3)
}

func TestSampleCapsAtK(t *testing.T) {
	m := fillPeerMap(100)
	rng := rand.New(rand.NewSource(1))

	peers := Sample(rng, m, 30)
	require.Len(t, peers, 30)
}

func TestSampleZeroWanted(t *testing.T) {
	m := fillPeerMap(10)
	rng := rand.New(rand.NewSource(1))

	require.Nil(t, Sample(rng, m, 0))
}

func TestSampleBoundaryNEqualsKPlusOne(t *testing.T) {
	for _, n := range []int{5, 6} {
		m := fillPeerMap(n)
		rng := rand.New(rand.NewSource(42))
		k := n - 1

		// Exercise the windowed path many times to catch any
		// out-of-bounds index without relying on a single draw.
		for i := 0; i < 200; i++ {
			peers := Sample(rng, m, k)
			require.Len(t, peers, k)
		}
	}
}

func TestSampleNeverPanicsAcrossSizes(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for n := 0; n <= 40; n++ {
		m := fillPeerMap(n)
		for k := 0; k <= 10; k++ {
			require.NotPanics(t, func() {
				Sample(rng, m, k)
			})
		}
	}
}
