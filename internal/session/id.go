package session

import (
	"encoding/binary"
	"encoding/hex"
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/blake2b"
)

// counter disambiguates sessions that start within the same
// nanosecond, which a busy listener can easily produce.
var counter uint64

// newCorrelationID derives a short, non-sequential identifier for a
// session's log lines from its remote address, start time and an
// internal counter, hashed with blake2b so the id doesn't leak the raw
// counter value to operators reading logs.
func newCorrelationID(remote net.Addr) string {
	n := atomic.AddUint64(&counter, 1)

	var seed [24]byte
	binary.BigEndian.PutUint64(seed[0:8], uint64(time.Now().UnixNano()))
	binary.BigEndian.PutUint64(seed[8:16], n)
	if remote != nil {
		copy(seed[16:24], remote.String())
	}

	sum := blake2b.Sum256(seed[:])
	return hex.EncodeToString(sum[:6])
}
