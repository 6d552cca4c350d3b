package pipeline

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// Job IDs are ULIDs: 48-bit millisecond timestamp then 80 bits of entropy,
// Crockford Base32 encoded into 26 characters so they sort by creation time.

var (
	ulidMu  sync.Mutex
	lastTS  uint64
	lastSeq uint16
)

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// NewJobID returns a new ULID.
func NewJobID() string {
	return newULID(time.Now())
}

func newULID(now time.Time) string {
	ulidMu.Lock()
	defer ulidMu.Unlock()

	ts := uint64(now.UnixMilli())
	if ts == lastTS {
		lastSeq++
	} else {
		lastTS = ts
		lastSeq = 0
	}

	var b [16]byte
	b[0] = byte(ts >> 40)
	b[1] = byte(ts >> 32)
	b[2] = byte(ts >> 24)
	b[3] = byte(ts >> 16)
	b[4] = byte(ts >> 8)
	b[5] = byte(ts)
	rand.Read(b[6:])
	// The sequence keeps IDs from the same millisecond distinct and ordered.
	binary.BigEndian.PutUint16(b[6:8], lastSeq)

	return encodeULID(b)
}

// encodeULID writes 128 bits as 26 base32 digits. The first digit carries
// only the top 3 bits, as if the value were left-padded with two zero bits.
func encodeULID(b [16]byte) string {
	var out [26]byte
	for i := range out {
		pos := i*5 - 2
		var v byte
		for k := range 5 {
			bit := pos + k
			if bit < 0 {
				continue
			}
			v = v<<1 | (b[bit/8]>>(7-uint(bit%8)))&1
		}
		out[i] = crockford[v]
	}
	return string(out[:])
}
