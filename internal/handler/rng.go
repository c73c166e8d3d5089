package handler

import (
	"crypto/rand"
	"encoding/binary"
	"math/big"
	mathrand "math/rand"

	"udptracker/internal/swarm"
)

// newPeerRand returns the per-worker RNG used for peer sampling, seeded from
// the OS CSPRNG once at worker startup and then owned exclusively by that
// worker, rather than hitting the OS RNG on every request. Sampling only
// needs statistical spread across a swarm, not unpredictability, so a cheap
// math/rand generator is fine here.
func newPeerRand() *mathrand.Rand {
	return mathrand.New(mathrand.NewSource(cryptoSeed()))
}

func cryptoSeed() int64 {
	n, err := rand.Int(rand.Reader, big.NewInt(0).SetUint64(^uint64(0)>>1))
	if err != nil {
		// The OS CSPRNG failing is not a condition we can recover from
		// cleanly on the request path; a worker without usable entropy
		// must not start.
		panic("handler: failed to seed RNG from OS entropy: " + err.Error())
	}
	return n.Int64()
}

// nextConnectionID draws a fresh 64-bit connection cookie directly from the
// OS CSPRNG. Unlike peer sampling, connection IDs must be unpredictable:
// binding a cookie to its issuing address only blunts reflection abuse if
// the cookie itself can't be guessed or reconstructed from other observed
// cookies, which rules out seeding a math/rand generator once and drawing
// from its recoverable output stream.
func nextConnectionID() swarm.ConnectionID {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("handler: failed to draw connection ID from OS entropy: " + err.Error())
	}
	return swarm.ConnectionID(binary.BigEndian.Uint64(b[:]))
}
