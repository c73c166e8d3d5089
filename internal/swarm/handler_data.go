package swarm

import "sync"

// HandlerData is the mutable state owned by a single shard: a connection
// table and a pair of torrent maps (one per address family), all guarded by
// one mutex. A single shard-wide lock keeps batched updates cheap without
// the bookkeeping a per-torrent lock would need.
type HandlerData struct {
	sync.Mutex

	Connections ConnectionTable
	Torrents    struct {
		IPv4 TorrentMap
		IPv6 TorrentMap
	}
}

// NewHandlerData returns an empty, ready-to-use HandlerData for one shard.
func NewHandlerData() *HandlerData {
	hd := &HandlerData{
		Connections: make(ConnectionTable),
	}
	hd.Torrents.IPv4 = make(TorrentMap)
	hd.Torrents.IPv6 = make(TorrentMap)
	return hd
}
