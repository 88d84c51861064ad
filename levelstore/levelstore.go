// Package levelstore is the single-node alternative to the Redis store: the
// replay ledger, the event log and registry snapshots in one leveldb.
package levelstore

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	bridgeerr "goswapbridge/errors"
	"goswapbridge/custody"
	"goswapbridge/registry"
	"goswapbridge/types"
)

var (
	consumedPrefix = []byte("Bridge-Consumed-")
	eventPrefix    = []byte("Bridge-Event-")
	requestPrefix  = []byte("Bridge-Request-")
	snapshotKey    = []byte("Bridge-Registry")
	custodyKey     = []byte("Bridge-Custody")
)

type Store struct {
	db *leveldb.DB
	// mu makes Consume and Claim a check-and-set.
	mu  sync.Mutex
	now func() time.Time
}

var (
	_ registry.ReplayLedger  = (*Store)(nil)
	_ registry.RequestLedger = (*Store)(nil)
	_ registry.SnapshotStore = (*Store)(nil)
	_ custody.Store          = (*Store)(nil)
)

func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, bridgeerr.Wrapf(bridgeerr.ErrStore, "could not open leveldb storage file: %v", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// OpenMemory opens a store that lives in memory only.
func OpenMemory() (*Store, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, bridgeerr.Wrapf(bridgeerr.ErrStore, "could not open leveldb memory storage: %v", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func consumedKey(ref common.Hash) []byte {
	return append(append([]byte{}, consumedPrefix...), ref.Bytes()...)
}

func requestKey(key common.Hash) []byte {
	return append(append([]byte{}, requestPrefix...), key.Bytes()...)
}

func eventKindPrefix(kind types.EventKind) []byte {
	return []byte(fmt.Sprintf("%s%s-", eventPrefix, kind))
}

func eventKey(ev *types.Event) []byte {
	return []byte(fmt.Sprintf("%s%s-%020d-%020d-%s", eventPrefix, ev.Kind, ev.Time, ev.Seq, ev.ID))
}

func storeErr(op string, err error) error {
	return bridgeerr.Wrapf(bridgeerr.ErrStore, "leveldb %s: %v", op, err)
}

func (s *Store) IsConsumed(ref common.Hash) (bool, error) {
	ok, err := s.db.Has(consumedKey(ref), nil)
	if err != nil {
		return false, storeErr("has", err)
	}
	return ok, nil
}

func (s *Store) Consume(ref common.Hash, fingerprint common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.IsConsumed(ref)
	if err != nil {
		return err
	}
	if ok {
		return bridgeerr.ErrReplayDetected.Newf("reference %s", ref.Hex())
	}
	if err := s.db.Put(consumedKey(ref), fingerprint.Bytes(), nil); err != nil {
		return storeErr("put", err)
	}
	return nil
}

func (s *Store) Release(ref common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Delete(consumedKey(ref), nil); err != nil {
		return storeErr("delete", err)
	}
	return nil
}

func (s *Store) Fingerprint(ref common.Hash) (common.Hash, bool, error) {
	data, err := s.db.Get(consumedKey(ref), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return common.Hash{}, false, nil
	}
	if err != nil {
		return common.Hash{}, false, storeErr("get", err)
	}
	return common.BytesToHash(data), true, nil
}

// Claim stores the expiry of key next to it. An expired claim is
// overwritten, and Prune removes the ones nobody reclaims.
func (s *Store) Claim(key common.Hash, ttl time.Duration) error {
	if ttl <= 0 {
		return bridgeerr.ErrInvalidParameter.New("request already expired")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	data, err := s.db.Get(requestKey(key), nil)
	switch {
	case err == nil:
		if len(data) == 8 && int64(binary.BigEndian.Uint64(data)) > now.UnixNano() {
			return bridgeerr.ErrReplayDetected.Newf("request %s already submitted", key.Hex())
		}
	case !errors.Is(err, leveldb.ErrNotFound):
		return storeErr("get", err)
	}

	until := make([]byte, 8)
	binary.BigEndian.PutUint64(until, uint64(now.Add(ttl).UnixNano()))
	if err := s.db.Put(requestKey(key), until, nil); err != nil {
		return storeErr("put", err)
	}
	return nil
}

// Prune deletes expired request claims and returns how many it removed.
func (s *Store) Prune() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UnixNano()
	batch := new(leveldb.Batch)
	iter := s.db.NewIterator(util.BytesPrefix(requestPrefix), nil)
	for iter.Next() {
		v := iter.Value()
		if len(v) != 8 || int64(binary.BigEndian.Uint64(v)) <= now {
			batch.Delete(append([]byte{}, iter.Key()...))
		}
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return 0, storeErr("iterate", err)
	}
	if err := s.db.Write(batch, nil); err != nil {
		return 0, storeErr("write", err)
	}
	return batch.Len(), nil
}

func (s *Store) Append(ev *types.Event) error {
	if ev == nil || ev.Kind == "" {
		return bridgeerr.ErrInvalidParameter.New("event without kind")
	}
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return bridgeerr.Wrap(err, "cannot marshal event")
	}
	if err := s.db.Put(eventKey(ev), data, nil); err != nil {
		return storeErr("put", err)
	}
	return nil
}

// List returns events of kind, or all events when kind is empty, ordered by
// time and sequence.
func (s *Store) List(kind types.EventKind) ([]*types.Event, error) {
	prefix := eventPrefix
	if kind != "" {
		prefix = eventKindPrefix(kind)
	}

	events := make([]*types.Event, 0)
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	for iter.Next() {
		var ev types.Event
		if err := json.Unmarshal(iter.Value(), &ev); err != nil {
			iter.Release()
			return nil, bridgeerr.Wrapf(err, "decode event %s", iter.Key())
		}
		events = append(events, &ev)
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return nil, storeErr("iterate", err)
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Time != events[j].Time {
			return events[i].Time < events[j].Time
		}
		return events[i].Seq < events[j].Seq
	})
	return events, nil
}

func (s *Store) SaveSnapshot(snap *registry.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return bridgeerr.Wrap(err, "cannot marshal registry snapshot")
	}
	if err := s.db.Put(snapshotKey, data, nil); err != nil {
		return storeErr("put", err)
	}
	return nil
}

func (s *Store) LoadSnapshot() (*registry.Snapshot, error) {
	data, err := s.db.Get(snapshotKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get", err)
	}
	var snap registry.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, bridgeerr.Wrap(err, "cannot decode registry snapshot")
	}
	return &snap, nil
}

func (s *Store) SaveBalances(balances []custody.Balance) error {
	data, err := json.Marshal(balances)
	if err != nil {
		return bridgeerr.Wrap(err, "cannot marshal custody balances")
	}
	if err := s.db.Put(custodyKey, data, nil); err != nil {
		return storeErr("put", err)
	}
	return nil
}

func (s *Store) LoadBalances() ([]custody.Balance, error) {
	data, err := s.db.Get(custodyKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get", err)
	}
	var balances []custody.Balance
	if err := json.Unmarshal(data, &balances); err != nil {
		return nil, bridgeerr.Wrap(err, "cannot decode custody balances")
	}
	return balances, nil
}
