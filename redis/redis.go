package redis

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gomodule/redigo/redis"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	bridgeerr "goswapbridge/errors"
	"goswapbridge/custody"
	"goswapbridge/registry"
	"goswapbridge/types"
)

const (
	consumedHashKey = "bridge:consumed"
	snapshotKey     = "bridge:registry"
	custodyKey      = "bridge:custody"
)

func requestKey(key common.Hash) string {
	return fmt.Sprintf("bridge:request:%s", key.Hex())
}

func eventKey(kind types.EventKind, id string) string {
	return fmt.Sprintf("swapevent:%s:%s", kind, id)
}

func eventSetKey(kind types.EventKind) string {
	return fmt.Sprintf("swapevents:%s", kind)
}

func timeoutDialOptions() []redis.DialOption {
	return []redis.DialOption{
		redis.DialConnectTimeout(5 * time.Second),
		redis.DialReadTimeout(5 * time.Second),
		redis.DialWriteTimeout(5 * time.Second),
	}
}

func NewPool(host string, port int) *redis.Pool {
	redisAddr := fmt.Sprintf("%s:%d", host, port)
	return &redis.Pool{
		MaxIdle: 5,
		Dial:    func() (redis.Conn, error) { return redis.Dial("tcp", redisAddr, timeoutDialOptions()...) },
	}
}

// Store keeps the replay ledger, the event log and registry snapshots in
// Redis.
type Store struct {
	pool *redis.Pool
	log  *logrus.Entry
}

var (
	_ registry.ReplayLedger  = (*Store)(nil)
	_ registry.RequestLedger = (*Store)(nil)
	_ registry.SnapshotStore = (*Store)(nil)
	_ custody.Store          = (*Store)(nil)
)

func New(pool *redis.Pool, log *logrus.Entry) *Store {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Store{pool: pool, log: log.WithField("component", "redis")}
}

func (s *Store) fail(op string, err error) error {
	s.log.WithError(err).Errorf("error Redis %s", op)
	return bridgeerr.Wrapf(bridgeerr.ErrStore, "redis %s: %s", op, err.Error())
}

func (s *Store) IsConsumed(ref common.Hash) (bool, error) {
	conn := s.pool.Get()
	defer conn.Close()

	ok, err := redis.Bool(conn.Do("HEXISTS", consumedHashKey, ref.Hex()))
	if err != nil {
		return false, s.fail("HEXISTS", err)
	}
	return ok, nil
}

// Consume relies on HSETNX so that two engines sharing one Redis cannot both
// consume the same reference.
func (s *Store) Consume(ref common.Hash, fingerprint common.Hash) error {
	conn := s.pool.Get()
	defer conn.Close()

	set, err := redis.Int(conn.Do("HSETNX", consumedHashKey, ref.Hex(), fingerprint.Hex()))
	if err != nil {
		return s.fail("HSETNX", err)
	}
	if set == 0 {
		return bridgeerr.ErrReplayDetected.Newf("reference %s", ref.Hex())
	}
	return nil
}

func (s *Store) Release(ref common.Hash) error {
	conn := s.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("HDEL", consumedHashKey, ref.Hex()); err != nil {
		return s.fail("HDEL", err)
	}
	return nil
}

// Fingerprint returns the request hash recorded when ref was consumed.
func (s *Store) Fingerprint(ref common.Hash) (common.Hash, bool, error) {
	conn := s.pool.Get()
	defer conn.Close()

	fp, err := redis.String(conn.Do("HGET", consumedHashKey, ref.Hex()))
	if errors.Is(err, redis.ErrNil) {
		return common.Hash{}, false, nil
	}
	if err != nil {
		return common.Hash{}, false, s.fail("HGET", err)
	}
	return common.HexToHash(fp), true, nil
}

// Claim sets a key with NX and an expiry, so Redis drops it once the signed
// body could no longer be accepted anyway.
func (s *Store) Claim(key common.Hash, ttl time.Duration) error {
	if ttl <= 0 {
		return bridgeerr.ErrInvalidParameter.New("request already expired")
	}
	conn := s.pool.Get()
	defer conn.Close()

	reply, err := conn.Do("SET", requestKey(key), 1, "NX", "PX", ttl.Milliseconds())
	if err != nil {
		return s.fail("SET", err)
	}
	if reply == nil {
		return bridgeerr.ErrReplayDetected.Newf("request %s already submitted", key.Hex())
	}
	return nil
}

// Append stores ev as JSON and indexes it in the set of its kind.
func (s *Store) Append(ev *types.Event) error {
	conn := s.pool.Get()
	defer conn.Close()

	if ev == nil {
		return bridgeerr.ErrInvalidParameter.New("null event to store")
	}
	if ev.Kind == "" {
		return bridgeerr.ErrInvalidParameter.New("event cannot have empty kind")
	}
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	recordKey := eventKey(ev.Kind, ev.ID)

	evJSON, err := json.Marshal(ev)
	if err != nil {
		return bridgeerr.Wrap(err, "cannot marshal event to JSON")
	}

	if _, err := conn.Do("SET", recordKey, evJSON); err != nil {
		return s.fail("SET", err)
	}

	// also add the key to the corresponding SET
	if _, err := conn.Do("SADD", eventSetKey(ev.Kind), recordKey); err != nil {
		return s.fail("SADD", err)
	}
	return nil
}

// List returns the events of kind, or of every kind when kind is empty,
// ordered by time and sequence.
func (s *Store) List(kind types.EventKind) ([]*types.Event, error) {
	kinds := []types.EventKind{kind}
	if kind == "" {
		kinds = types.EventKinds
	}

	events := make([]*types.Event, 0)
	for _, k := range kinds {
		found, err := s.scanKind(k)
		if err != nil {
			return nil, err
		}
		events = append(events, found...)
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Time != events[j].Time {
			return events[i].Time < events[j].Time
		}
		return events[i].Seq < events[j].Seq
	})
	return events, nil
}

func (s *Store) scanKind(kind types.EventKind) ([]*types.Event, error) {
	conn := s.pool.Get()
	defer conn.Close()

	events := make([]*types.Event, 0)

	// scan every event of this kind
	var cursor int64
	for {
		values, err := redis.Values(conn.Do("SSCAN", eventSetKey(kind), cursor))
		if err != nil {
			return nil, s.fail("SSCAN", err)
		}

		var keys []string
		if _, err := redis.Scan(values, &cursor, &keys); err != nil {
			return nil, s.fail("SSCAN", err)
		}

		for _, key := range keys {
			raw, err := redis.Bytes(conn.Do("GET", key))
			if errors.Is(err, redis.ErrNil) {
				s.log.WithField("key", key).Warn("indexed event is missing")
				continue
			}
			if err != nil {
				return nil, s.fail("GET", err)
			}

			var ev types.Event
			if err := json.Unmarshal(raw, &ev); err != nil {
				return nil, bridgeerr.Wrapf(err, "decode event %s", key)
			}
			events = append(events, &ev)
		}

		if cursor == 0 {
			break
		}
	}
	return events, nil
}

func (s *Store) SaveSnapshot(snap *registry.Snapshot) error {
	conn := s.pool.Get()
	defer conn.Close()

	data, err := json.Marshal(snap)
	if err != nil {
		return bridgeerr.Wrap(err, "cannot marshal registry snapshot")
	}
	if _, err := conn.Do("SET", snapshotKey, data); err != nil {
		return s.fail("SET", err)
	}
	return nil
}

func (s *Store) LoadSnapshot() (*registry.Snapshot, error) {
	conn := s.pool.Get()
	defer conn.Close()

	data, err := redis.Bytes(conn.Do("GET", snapshotKey))
	if errors.Is(err, redis.ErrNil) {
		return nil, nil
	}
	if err != nil {
		return nil, s.fail("GET", err)
	}

	var snap registry.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, bridgeerr.Wrap(err, "cannot decode registry snapshot")
	}
	return &snap, nil
}

func (s *Store) SaveBalances(balances []custody.Balance) error {
	conn := s.pool.Get()
	defer conn.Close()

	data, err := json.Marshal(balances)
	if err != nil {
		return bridgeerr.Wrap(err, "cannot marshal custody balances")
	}
	if _, err := conn.Do("SET", custodyKey, data); err != nil {
		return s.fail("SET", err)
	}
	return nil
}

func (s *Store) LoadBalances() ([]custody.Balance, error) {
	conn := s.pool.Get()
	defer conn.Close()

	data, err := redis.Bytes(conn.Do("GET", custodyKey))
	if errors.Is(err, redis.ErrNil) {
		return nil, nil
	}
	if err != nil {
		return nil, s.fail("GET", err)
	}

	var balances []custody.Balance
	if err := json.Unmarshal(data, &balances); err != nil {
		return nil, bridgeerr.Wrap(err, "cannot decode custody balances")
	}
	return balances, nil
}

// Ping checks the connection, used by the health endpoint.
func (s *Store) Ping() error {
	conn := s.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("PING"); err != nil {
		return s.fail("PING", err)
	}
	return nil
}
