package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ID is a lexicographically sortable ULID string.
type ID string

// Zero represents the zero value ID, don't use this unless its a placeholder.
const Zero ID = ""

// ErrInvalid reports a malformed ULID string.
var ErrInvalid = errors.New("idx: invalid ulid")

var (
	genOnce sync.Once
	genMu   sync.Mutex
	entropy *ulid.MonotonicEntropy
)

// New returns a new ULID-based ID using the current time in UTC and a
// monotonic entropy source.
func New() ID {
	genOnce.Do(func() {
		entropy = ulid.Monotonic(rand.Reader, 0)
	})

	genMu.Lock()
	defer genMu.Unlock()

	u := ulid.MustNew(ulid.Timestamp(time.Now().UTC()), entropy)
	return ID(u.String())
}

// Parse parses a ULID string into an ID and validates its form.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalid
	}

	if _, err := ulid.ParseStrict(s); err != nil {
		return Zero, ErrInvalid
	}

	return ID(s), nil
}

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool { return id == Zero }

// String returns the canonical string form.
func (id ID) String() string { return string(id) }
