// Package idgen generates the identifiers stamped on marks and sessions.
// Constructors accept a Generator so callers (and tests) choose the
// strategy.
package idgen

import (
	"crypto/rand"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 produces RFC 9562 UUID v7 strings: time-sortable and globally
// unique.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// NanoID produces random base-36 IDs of the given length.
func NanoID(length int) Generator {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	return func() string {
		buf := make([]byte, length)
		if _, err := rand.Read(buf); err != nil {
			panic("idgen: crypto/rand failed: " + err.Error())
		}
		for i := range buf {
			buf[i] = alphabet[int(buf[i])%len(alphabet)]
		}
		return string(buf)
	}
}

// Sequence produces "1", "2", ... Each call to Sequence starts its own
// counter; the generator is safe for concurrent use.
func Sequence() Generator {
	var n atomic.Int64
	return func() string {
		return strconv.FormatInt(n.Add(1), 10)
	}
}

// Prefixed prepends prefix to every ID of gen.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Default is UUIDv7.
var Default Generator = UUIDv7()

// New produces an ID with the Default generator.
func New() string {
	return Default()
}

// Valid reports whether s is a UUID.
func Valid(s string) bool {
	return uuid.Validate(s) == nil
}
