package ids

import (
	mathrand "math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// Generator produces record identifiers. Services take one so tests can pin ids.
type Generator func() string

// New returns a monotonic ULID; ids created in the same millisecond still sort by creation.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Sequence returns a Generator yielding prefix-1, prefix-2, ...
func Sequence(prefix string) Generator {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}
