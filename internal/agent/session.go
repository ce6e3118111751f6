package agent

import (
	"crypto/rand"
	"strconv"
	"time"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewSessionID returns "session_<unix-ms>_<9 base36 chars>". One id is
// generated per Channel and never persisted.
func NewSessionID() string {
	return newSessionID(time.Now())
}

func newSessionID(now time.Time) string {
	buf := make([]byte, 9)
	_, _ = rand.Read(buf) // never fails as of Go 1.24
	for i, b := range buf {
		buf[i] = base36[int(b)%len(base36)]
	}
	return "session_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + string(buf)
}
