package utils

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"sync/atomic"
	"time"
)

var idCounter uint32

// GenerateID generates a 12-byte ObjectID-like string (24 hex characters).
// IDs sort roughly by creation time, which keeps conversation turns and
// tool call ids readable in logs.
func GenerateID() string {
	var b [12]byte
	binary.BigEndian.PutUint32(b[0:4], uint32(time.Now().Unix()))
	_, _ = rand.Read(b[4:9])
	c := atomic.AddUint32(&idCounter, 1) % 0xFFFFFF
	b[9] = byte(c >> 16)
	b[10] = byte(c >> 8)
	b[11] = byte(c)
	return hex.EncodeToString(b[:])
}
