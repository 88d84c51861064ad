package registry

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	bridgeerr "goswapbridge/errors"
)

// RequestLedger remembers signed request bodies while their signature is
// still valid, so the same body cannot be submitted twice.
type RequestLedger interface {
	// Claim holds key for ttl. It fails with ErrReplayDetected while key is
	// already held, atomically with respect to concurrent callers.
	Claim(key common.Hash, ttl time.Duration) error
}

// MemoryRequestLedger keeps claimed keys in a map and drops them once
// expired.
type MemoryRequestLedger struct {
	mu     sync.Mutex
	claims map[common.Hash]time.Time
	now    func() time.Time
}

var _ RequestLedger = (*MemoryRequestLedger)(nil)

func NewMemoryRequestLedger() *MemoryRequestLedger {
	return &MemoryRequestLedger{claims: make(map[common.Hash]time.Time), now: time.Now}
}

func (l *MemoryRequestLedger) Claim(key common.Hash, ttl time.Duration) error {
	if ttl <= 0 {
		return bridgeerr.ErrInvalidParameter.New("request already expired")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, until := range l.claims {
		if !until.After(now) {
			delete(l.claims, k)
		}
	}
	if _, ok := l.claims[key]; ok {
		return bridgeerr.ErrReplayDetected.Newf("request %s already submitted", key.Hex())
	}
	l.claims[key] = now.Add(ttl)
	return nil
}
