package swarm

import "math/rand"

// Sample draws up to k peers from m for inclusion in an announce response.
//
// If m holds k or fewer peers, all of them are returned in dense (insertion,
// modulo swap-remove permutation) order. Otherwise two randomized windows
// are taken — one from the first half of the map, one from the second — so
// that the response isn't dominated by peers that happen to sit next to
// each other (which tend to have announced around the same time and so be
// more homogeneous than a single contiguous window would suggest).
func Sample(rng *rand.Rand, m *PeerMap, k int) []Peer {
	n := m.Len()

	if k <= 0 {
		return nil
	}

	if n <= k {
		peers := make([]Peer, 0, n)
		for i := 0; i < n; i++ {
			_, p := m.At(i)
			peers = append(peers, p)
		}
		return peers
	}

	halfLen := n / 2
	firstLen := k / 2
	secondLen := k/2 + k%2

	// offset ∈ [0, ⌊n/2⌋ + (n mod 2) − ⌊k/2⌋)
	firstSpan := halfLen + n%2 - firstLen
	offsetFirst := 0
	if firstSpan > 0 {
		offsetFirst = rng.Intn(firstSpan)
	}

	// offset ∈ [⌊n/2⌋, n − ⌊k/2⌋)
	secondSpan := n - firstLen - halfLen
	offsetSecond := halfLen
	if secondSpan > 0 {
		offsetSecond = halfLen + rng.Intn(secondSpan)
	}

	peers := make([]Peer, 0, k)
	for i := offsetFirst; i < offsetFirst+firstLen; i++ {
		_, p := m.At(i)
		peers = append(peers, p)
	}
	for i := offsetSecond; i < offsetSecond+secondLen; i++ {
		_, p := m.At(i)
		peers = append(peers, p)
	}

	return peers
}
