package synth

import (
	crand "crypto/rand"
	"encoding/binary"
	"time"
)

// randomSeed returns a non-zero seed from the system entropy source.
func randomSeed() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano()) | 1
	}
	if s := binary.LittleEndian.Uint64(b[:]); s != 0 {
		return s
	}
	return 1
}
