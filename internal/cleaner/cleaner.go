// Package cleaner implements the periodic expiry of connections and peers
// and the access-list refresh/filter applied during each sweep.
package cleaner

import (
	"runtime"
	"time"

	"udptracker/internal/accesslist"
	"udptracker/internal/swarm"
	"udptracker/internal/tracelog"
)

// Config holds the cleaner's tunables.
type Config struct {
	ConnectionTTL  time.Duration
	PeerTTL        time.Duration
	Interval       time.Duration
	AccessListType accesslist.Type
	AccessListPath string
}

// Cleaner periodically sweeps every shard's HandlerData.
type Cleaner struct {
	cfg    Config
	shards []*swarm.HandlerData
	list   *accesslist.List
}

// New returns a Cleaner over the given shards.
func New(cfg Config, shards []*swarm.HandlerData) *Cleaner {
	return &Cleaner{
		cfg:    cfg,
		shards: shards,
		list:   accesslist.New(),
	}
}

// Run blocks, sweeping every shard once per cfg.Interval, until stop is
// closed.
func (c *Cleaner) Run(stop <-chan struct{}) {
	t := time.NewTicker(c.cfg.Interval)
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-t.C:
			c.sweep()
		}
	}
}

func (c *Cleaner) sweep() {
	now := time.Now()

	if c.cfg.AccessListType != accesslist.Ignore && c.cfg.AccessListPath != "" {
		if err := c.list.ReloadFromPath(c.cfg.AccessListPath); err != nil {
			tracelog.Error("cleaner: access list reload failed", tracelog.Err(err))
		}
	}

	for _, shard := range c.shards {
		c.sweepShard(shard, now)
		runtime.Gosched()
	}
}

func (c *Cleaner) sweepShard(data *swarm.HandlerData, now time.Time) {
	data.Lock()
	defer data.Unlock()

	data.Connections.Expire(now, c.cfg.ConnectionTTL)
	data.Connections.Shrink()

	cleanTorrentMap(data.Torrents.IPv4, c.list, c.cfg.AccessListType, now, c.cfg.PeerTTL)
	cleanTorrentMap(data.Torrents.IPv6, c.list, c.cfg.AccessListType, now, c.cfg.PeerTTL)
}

// cleanTorrentMap expires stale peers in every torrent, then drops any
// torrent left with an empty PeerMap or whose InfoHash the access list no
// longer permits.
func cleanTorrentMap(tm swarm.TorrentMap, list *accesslist.List, listType accesslist.Type, now time.Time, peerTTL time.Duration) {
	for ih, td := range tm {
		cleanPeers(td, now, peerTTL)

		keep := td.Peers.Len() > 0 && list.Allows(listType, ih)
		if !keep {
			delete(tm, ih)
		} else {
			td.Peers.Shrink()
		}
	}
}

func cleanPeers(td *swarm.TorrentData, now time.Time, peerTTL time.Duration) {
	// PeerMap deletion permutes order via swap-remove, so collect the
	// expired keys first and then remove them, rather than mutating while
	// walking dense positions.
	var expired []swarm.PeerMapKey

	for i := 0; i < td.Peers.Len(); i++ {
		key, peer := td.Peers.At(i)
		if peer.Expired(now, peerTTL) {
			expired = append(expired, key)
		}
	}

	for _, key := range expired {
		peer, ok := td.Peers.Remove(key)
		if !ok {
			continue
		}
		switch peer.Status {
		case swarm.Seeding:
			td.NumSeeders--
		case swarm.Leeching:
			td.NumLeechers--
		}
	}
}
