// Package objectid generates and validates the 24-character hexadecimal
// identifiers used for companies, jobs, applications and profiles.
package objectid

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"
	"time"
)

var (
	pattern = regexp.MustCompile(`^[a-fA-F0-9]{24}$`)

	processUnique = func() [5]byte {
		var b [5]byte
		_, _ = rand.Read(b[:])
		return b
	}()

	counter = func() *atomic.Uint32 {
		var b [4]byte
		_, _ = rand.Read(b[:])
		c := new(atomic.Uint32)
		c.Store(binary.BigEndian.Uint32(b[:]))
		return c
	}()
)

// New returns a fresh id: 4 bytes of unix seconds, 5 process-unique bytes
// and a 3-byte counter, hex encoded.
func New() string {
	return newAt(time.Now())
}

func newAt(t time.Time) string {
	var b [12]byte
	binary.BigEndian.PutUint32(b[0:4], uint32(t.Unix()))
	copy(b[4:9], processUnique[:])
	n := counter.Add(1)
	b[9] = byte(n >> 16)
	b[10] = byte(n >> 8)
	b[11] = byte(n)
	return hex.EncodeToString(b[:])
}

// Clean URL-decodes raw and strips brackets and surrounding whitespace.
func Clean(raw string) string {
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	raw = strings.NewReplacer("[", "", "]", "").Replace(raw)
	return strings.TrimSpace(raw)
}

// Valid reports whether id has the 24-hex shape.
func Valid(id string) bool {
	return pattern.MatchString(id)
}

// Parse cleans raw and reports whether the result is a valid id.
func Parse(raw string) (string, bool) {
	id := Clean(raw)
	if !Valid(id) {
		return "", false
	}
	return strings.ToLower(id), true
}

// ParseList splits a comma-separated list and keeps only valid ids.
func ParseList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if id, ok := Parse(part); ok {
			out = append(out, id)
		}
	}
	return out
}
