package registry

import (
	"github.com/ethereum/go-ethereum/common"

	bridgeerr "goswapbridge/errors"
)

// ReplayLedger is the set of consumed reference ids. An id is inserted once
// at settlement, refund or quorum withdrawal and never removed, except by
// Release when the operation that inserted it is rolled back as a whole.
type ReplayLedger interface {
	IsConsumed(ref common.Hash) (bool, error)
	// Consume inserts ref and records fingerprint, the hash of the full
	// request that consumed it. It fails with ErrReplayDetected if ref is
	// already present, atomically with respect to concurrent callers.
	Consume(ref common.Hash, fingerprint common.Hash) error
	Release(ref common.Hash) error
	// Fingerprint returns the request hash recorded when ref was consumed.
	Fingerprint(ref common.Hash) (common.Hash, bool, error)
}

// MemoryReplayLedger keeps consumed references in a map.
type MemoryReplayLedger struct {
	consumed map[common.Hash]common.Hash
}

var _ ReplayLedger = (*MemoryReplayLedger)(nil)

func NewMemoryReplayLedger() *MemoryReplayLedger {
	return &MemoryReplayLedger{consumed: make(map[common.Hash]common.Hash)}
}

func (l *MemoryReplayLedger) IsConsumed(ref common.Hash) (bool, error) {
	_, ok := l.consumed[ref]
	return ok, nil
}

func (l *MemoryReplayLedger) Consume(ref common.Hash, fingerprint common.Hash) error {
	if _, ok := l.consumed[ref]; ok {
		return bridgeerr.ErrReplayDetected.Newf("reference %s", ref.Hex())
	}
	l.consumed[ref] = fingerprint
	return nil
}

func (l *MemoryReplayLedger) Release(ref common.Hash) error {
	delete(l.consumed, ref)
	return nil
}

func (l *MemoryReplayLedger) Fingerprint(ref common.Hash) (common.Hash, bool, error) {
	fp, ok := l.consumed[ref]
	return fp, ok, nil
}
