package domain

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// IDGenerator 產生卡片與交易的唯一 ID
type IDGenerator interface {
	NewCardID() string
	NewTransactionID(at time.Time) string
}

// DefaultIDs 卡片使用 UUID，交易使用 ULID (依時間排序，同一毫秒內單調遞增)
type DefaultIDs struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewDefaultIDs() *DefaultIDs {
	return &DefaultIDs{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (g *DefaultIDs) NewCardID() string {
	return uuid.NewString()
}

func (g *DefaultIDs) NewTransactionID(at time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), g.entropy).String()
}

var _ IDGenerator = (*DefaultIDs)(nil)
