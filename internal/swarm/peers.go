package swarm

// PeerMap is an insertion-ordered mapping from PeerMapKey to Peer with O(1)
// lookup, insert, remove, and indexed access. It pairs a dense slice (for
// positional indexing, needed by Sample) with a hash index from key to
// position in that slice, and uses swap-remove on deletion to keep removal
// O(1) at the cost of permuting insertion order — sampling tolerates any
// permutation of that order.
type PeerMap struct {
	index map[PeerMapKey]int
	dense []peerSlot
}

type peerSlot struct {
	key  PeerMapKey
	peer Peer
}

// NewPeerMap returns an empty PeerMap.
func NewPeerMap() *PeerMap {
	return &PeerMap{index: make(map[PeerMapKey]int)}
}

// Len returns the number of resident peers.
func (m *PeerMap) Len() int {
	return len(m.dense)
}

// Get looks up the peer at key.
func (m *PeerMap) Get(key PeerMapKey) (Peer, bool) {
	i, ok := m.index[key]
	if !ok {
		return Peer{}, false
	}
	return m.dense[i].peer, true
}

// At returns the key/peer pair at the given dense position.
func (m *PeerMap) At(i int) (PeerMapKey, Peer) {
	s := m.dense[i]
	return s.key, s.peer
}

// Upsert inserts or overwrites the peer at key, preserving its existing
// position if already present. It returns the previous peer and whether one
// existed.
func (m *PeerMap) Upsert(key PeerMapKey, peer Peer) (prev Peer, existed bool) {
	if i, ok := m.index[key]; ok {
		prev = m.dense[i].peer
		m.dense[i].peer = peer
		return prev, true
	}

	m.index[key] = len(m.dense)
	m.dense = append(m.dense, peerSlot{key: key, peer: peer})
	return Peer{}, false
}

// Remove deletes the peer at key via swap-remove: the last element takes its
// slot, so iteration order is not preserved across deletions.
func (m *PeerMap) Remove(key PeerMapKey) (Peer, bool) {
	i, ok := m.index[key]
	if !ok {
		return Peer{}, false
	}

	removed := m.dense[i].peer
	last := len(m.dense) - 1

	if i != last {
		m.dense[i] = m.dense[last]
		m.index[m.dense[i].key] = i
	}
	m.dense = m.dense[:last]
	delete(m.index, key)

	return removed, true
}

// Shrink releases memory held by prior growth: the dense slice is
// reallocated to fit its contents when it is non-empty and its capacity is
// more than twice its length, and the index map is replaced only when it is
// empty. Only the cleaner calls this.
func (m *PeerMap) Shrink() {
	if cap(m.dense) > len(m.dense)*2 && len(m.dense) > 0 {
		dense := make([]peerSlot, len(m.dense))
		copy(dense, m.dense)
		m.dense = dense
	}
	if len(m.index) == 0 {
		m.index = make(map[PeerMapKey]int)
	}
}
