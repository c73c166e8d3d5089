// Package accesslist implements an operator-supplied torrent whitelist or
// blacklist: a newline-delimited file of hex-encoded 20-byte info_hashes,
// reloaded by the cleaner on every pass.
package accesslist

import (
	"bufio"
	"encoding/hex"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"udptracker/internal/swarm"
)

// Type selects the filtering mode.
type Type string

const (
	// Allow means only listed hashes are served.
	Allow Type = "allow"
	// Deny means listed hashes are refused.
	Deny Type = "deny"
	// Ignore disables filtering entirely.
	Ignore Type = "ignore"
)

// List is a thread-safe, reloadable set of info hashes.
type List struct {
	mu      sync.RWMutex
	entries map[swarm.InfoHash]struct{}
}

// New returns an empty List.
func New() *List {
	return &List{entries: make(map[swarm.InfoHash]struct{})}
}

// Allows reports whether ih passes the filter for the given type.
// With Ignore, everything passes regardless of the List's contents.
func (l *List) Allows(t Type, ih swarm.InfoHash) bool {
	if t == Ignore {
		return true
	}

	l.mu.RLock()
	_, present := l.entries[ih]
	l.mu.RUnlock()

	if t == Allow {
		return present
	}
	return !present
}

// ReloadFromPath replaces the List's contents with the hashes parsed from
// path, one hex-encoded 20-byte hash per line. Blank lines and lines
// starting with '#' are ignored. On error the List's previous contents are
// left untouched.
func (l *List) ReloadFromPath(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "accesslist: open")
	}
	defer f.Close()

	entries := make(map[swarm.InfoHash]struct{})

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		b, err := hex.DecodeString(line)
		if err != nil {
			return errors.Wrapf(err, "accesslist: invalid hex hash %q", line)
		}
		if len(b) != 20 {
			return errors.Errorf("accesslist: hash %q is not 20 bytes", line)
		}

		entries[swarm.InfoHashFromBytes(b)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "accesslist: scan")
	}

	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()

	return nil
}
