// Package bridge is the authorization-and-settlement engine. Every entry
// point runs as one atomic step under the engine lock: it either applies all
// of its effects or none.
package bridge

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"goswapbridge/custody"
	bridgeerr "goswapbridge/errors"
	"goswapbridge/registry"
	"goswapbridge/signer"
	"goswapbridge/venue"
)

const (
	DefaultDomainName    = "OmnichainSwapProxy"
	DefaultDomainVersion = "1"

	DefaultVenueTimeout  = 10 * time.Second
	DefaultVenueGasLimit = 1_000_000
)

type Options struct {
	// ChainID is the local chain. Settlements must target it and escrow
	// requests must not.
	ChainID uint64
	// Address is the custody account and the EIP-712 verifying contract.
	Address common.Address

	DomainName    string
	DomainVersion string

	// Owner seeds a fresh registry when neither Registry nor a saved
	// snapshot is available.
	Owner     common.Address
	Registry  *registry.Registry
	Snapshots registry.SnapshotStore

	Replay registry.ReplayLedger
	Ledger *custody.Ledger
	// Balances restores Ledger on start and receives it after every
	// accepted balance change.
	Balances custody.Store
	Venues   *venue.Directory
	Events EventLog

	VenueTimeout  time.Duration
	VenueGasLimit uint64

	Metrics *Metrics
	Logger  *logrus.Entry
}

type Engine struct {
	mu sync.Mutex

	chainID uint64
	address common.Address
	domain  signer.Domain

	registry  *registry.Registry
	snapshots registry.SnapshotStore
	replay    registry.ReplayLedger
	ledger    *custody.Ledger
	balances  custody.Store
	venues    *venue.Directory
	events    EventLog

	venueTimeout  time.Duration
	venueGasLimit uint64

	metrics *Metrics
	log     *logrus.Entry
	now     func() time.Time
	seq     uint64
}

func New(opts Options) (*Engine, error) {
	if opts.ChainID == 0 {
		return nil, bridgeerr.ErrInvalidParameter.New("zero chain id")
	}
	if opts.Address == (common.Address{}) {
		return nil, bridgeerr.ErrInvalidParameter.New("zero custody address")
	}

	e := &Engine{
		chainID:       opts.ChainID,
		address:       opts.Address,
		registry:      opts.Registry,
		snapshots:     opts.Snapshots,
		replay:        opts.Replay,
		ledger:        opts.Ledger,
		balances:      opts.Balances,
		venues:        opts.Venues,
		events:        opts.Events,
		venueTimeout:  opts.VenueTimeout,
		venueGasLimit: opts.VenueGasLimit,
		metrics:       opts.Metrics,
		log:           opts.Logger,
		now:           time.Now,
	}
	e.domain = signer.Domain{
		Name:              opts.DomainName,
		Version:           opts.DomainVersion,
		ChainID:           opts.ChainID,
		VerifyingContract: opts.Address,
	}
	if e.domain.Name == "" {
		e.domain.Name = DefaultDomainName
	}
	if e.domain.Version == "" {
		e.domain.Version = DefaultDomainVersion
	}

	if e.log == nil {
		e.log = logrus.NewEntry(logrus.StandardLogger())
	}
	e.log = e.log.WithField("component", "bridge")

	if e.registry == nil {
		reg, err := e.loadRegistry(opts.Owner)
		if err != nil {
			return nil, err
		}
		e.registry = reg
	}
	if e.replay == nil {
		e.replay = registry.NewMemoryReplayLedger()
	}
	if e.ledger == nil {
		e.ledger = custody.NewLedger()
	}
	if err := e.loadBalances(); err != nil {
		return nil, err
	}
	if e.venues == nil {
		e.venues = venue.NewDirectory()
	}
	if e.events == nil {
		e.events = NewMemoryEventLog()
	}
	if e.venueTimeout == 0 {
		e.venueTimeout = DefaultVenueTimeout
	}
	if e.venueGasLimit == 0 {
		e.venueGasLimit = DefaultVenueGasLimit
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(nil)
	}
	return e, nil
}

func (e *Engine) loadRegistry(owner common.Address) (*registry.Registry, error) {
	if e.snapshots != nil {
		snap, err := e.snapshots.LoadSnapshot()
		if err != nil {
			return nil, bridgeerr.Wrap(err, "load registry snapshot")
		}
		if snap != nil {
			e.log.WithField("owner", snap.Owner.Hex()).Info("registry restored from snapshot")
			return registry.Restore(snap)
		}
	}
	if owner == (common.Address{}) {
		return nil, bridgeerr.ErrInvalidParameter.New("zero owner")
	}
	return registry.New(owner), nil
}

func (e *Engine) loadBalances() error {
	if e.balances == nil {
		return nil
	}
	saved, err := e.balances.LoadBalances()
	if err != nil {
		return bridgeerr.Wrap(err, "load custody balances")
	}
	if saved == nil {
		return nil
	}
	if err := e.ledger.Load(saved); err != nil {
		return err
	}
	e.log.WithField("entries", len(saved)).Info("custody ledger restored")
	return nil
}

// saveBalances writes the ledger after an accepted operation. Failure is
// logged.
func (e *Engine) saveBalances() {
	if e.balances == nil {
		return
	}
	if err := e.balances.SaveBalances(e.ledger.Balances()); err != nil {
		e.log.WithError(err).Error("cannot save custody balances")
	}
}

// persist saves the registry after an accepted setter. Failure is logged.
func (e *Engine) persist() {
	if e.snapshots == nil {
		return
	}
	if err := e.snapshots.SaveSnapshot(e.registry.Snapshot()); err != nil {
		e.log.WithError(err).Error("cannot save registry snapshot")
	}
}

// observe logs and counts the result of an entry point. Use with defer.
func (e *Engine) observe(op string, caller common.Address, err *error) {
	e.metrics.Operations.WithLabelValues(op, resultLabel(*err)).Inc()

	entry := e.log.WithFields(logrus.Fields{"op": op, "caller": caller.Hex()})
	if *err != nil {
		entry.WithField("code", bridgeerr.Code(*err)).Warnf("rejected: %s", (*err).Error())
		return
	}
	entry.Debug("accepted")
}

func (e *Engine) ChainID() uint64 {
	return e.chainID
}

func (e *Engine) Address() common.Address {
	return e.address
}

// Ledger exposes the balance book for funding accounts and for in-process
// venues that settle against it.
func (e *Engine) Ledger() *custody.Ledger {
	return e.ledger
}

func (e *Engine) Venues() *venue.Directory {
	return e.venues
}

func (e *Engine) Events() EventLog {
	return e.events
}

func requirePositive(amount *big.Int, what string) error {
	if amount == nil || amount.Sign() <= 0 {
		return bridgeerr.ErrInvalidParameter.Newf("%s must be positive", what)
	}
	return nil
}

func requireNonZero(addr common.Address, what string) error {
	if addr == (common.Address{}) {
		return bridgeerr.ErrInvalidParameter.Newf("zero %s", what)
	}
	return nil
}

func (e *Engine) requireNotConsumed(ref common.Hash) error {
	if ref == (common.Hash{}) {
		return bridgeerr.ErrInvalidParameter.New("zero reference id")
	}
	consumed, err := e.replay.IsConsumed(ref)
	if err != nil {
		return bridgeerr.Wrap(bridgeerr.ErrStore, err.Error())
	}
	if consumed {
		return bridgeerr.ErrReplayDetected.Newf("reference %s", ref.Hex())
	}
	return nil
}
