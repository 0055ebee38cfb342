package idgen

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

const (
	PrefixConversation = "conv"
	PrefixArtifact     = "art"
	PrefixMessage      = "msg"
	PrefixEvent        = "evt"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// NewULID returns "<prefix>_<ulid>", sortable by creation time.
func NewULID(prefix string) string {
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	entropyMu.Unlock()
	return prefix + "_" + strings.ToLower(id.String())
}

// NewUUID returns "<prefix>_<uuid v4>".
func NewUUID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// HasPrefix reports whether value looks like an id minted with prefix.
func HasPrefix(value, prefix string) bool {
	value = strings.TrimSpace(value)
	return strings.HasPrefix(value, prefix+"_") && len(value) > len(prefix)+1
}
