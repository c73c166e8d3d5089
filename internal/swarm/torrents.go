package swarm

// TorrentData is the per-InfoHash record of a swarm: its peers and the
// seeder/leecher counters kept consistent with PeerMap contents.
type TorrentData struct {
	Peers       *PeerMap
	NumSeeders  int
	NumLeechers int

	// Completed counts transitions into Seeding from any non-Seeding
	// status. It is only maintained when the optional completed-download
	// counter is enabled (see handler.Config.TrackCompleted); scrape
	// reports zero otherwise.
	Completed int
}

func newTorrentData() *TorrentData {
	return &TorrentData{Peers: NewPeerMap()}
}

// TorrentMap maps InfoHash to TorrentData. Separate instances are kept for
// IPv4 and IPv6 swarms so a response only lists peers reachable with the
// requester's address family.
type TorrentMap map[InfoHash]*TorrentData

// GetOrCreate returns the TorrentData for ih, creating an empty one if
// absent.
func (tm TorrentMap) GetOrCreate(ih InfoHash) *TorrentData {
	td, ok := tm[ih]
	if !ok {
		td = newTorrentData()
		tm[ih] = td
	}
	return td
}
