package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"goswapbridge/bridge"
	"goswapbridge/config"
	"goswapbridge/custody"
	"goswapbridge/levelstore"
	"goswapbridge/redis"
	"goswapbridge/registry"
	"goswapbridge/venue"
	"goswapbridge/workers"
	"goswapbridge/workers/handlers"
)

func main() {
	app := cli.NewApp()
	app.Name = "goswapbridge"
	app.Usage = "cross-chain swap bridge settlement engine"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Value: "config.yml",
			Usage: "path to the yaml configuration",
		},
		cli.StringFlag{
			Name:  "log-dir",
			Value: "logs",
			Usage: "directory for dated log files, empty logs to stderr",
		},
	}
	app.Action = serve

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("goswapbridge stopped")
	}
}

func openLog(dir string) (*os.File, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	name := filepath.Join(dir, fmt.Sprintf("log_%s.txt", time.Now().Format("2006-01-02")))
	return os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
}

// stores groups the persistence backends selected by configuration.
type stores struct {
	replay    registry.ReplayLedger
	requests  registry.RequestLedger
	events    bridge.EventLog
	snapshots registry.SnapshotStore
	balances  custody.Store
	health    func() error

	// prune drops expired request claims where the store does not expire
	// them itself
	prune func() (int, error)
	close func() error
}

func openStores(cfg *config.Configuration, log *logrus.Entry) (*stores, error) {
	switch cfg.Server.Store {
	case config.StoreRedis:
		s := redis.New(redis.NewPool(cfg.Server.RedisHost, cfg.Server.RedisPort), log.WithField("component", "redis"))
		// without persistence do not continue
		if err := s.Ping(); err != nil {
			return nil, err
		}
		return &stores{replay: s, events: s, snapshots: s, health: s.Ping, close: func() error { return nil }}, nil
	case config.StoreLevelDB:
		s, err := levelstore.Open(cfg.Server.LevelDBPath)
		if err != nil {
			return nil, err
		}
		return &stores{replay: s, requests: s, events: s, snapshots: s, balances: s, prune: s.Prune, close: s.Close}, nil
	default:
		return &stores{close: func() error { return nil }}, nil
	}
}

func serve(c *cli.Context) error {
	f, err := openLog(c.String("log-dir"))
	if err != nil {
		return fmt.Errorf("error opening log file for writing: %v", err)
	}
	if f != nil {
		defer f.Close()
		logrus.SetOutput(f)
	}

	config.Init(c.String("config"))
	cfg := &config.Config
	if cfg.Server.LogLevel != "" {
		level, err := logrus.ParseLevel(cfg.Server.LogLevel)
		if err != nil {
			return err
		}
		logrus.SetLevel(level)
	}
	log := logrus.WithField("app", "goswapbridge")
	log.WithField("store", cfg.Server.Store).Info("Starting swap bridge")

	st, err := openStores(cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	fresh := true
	if st.snapshots != nil {
		snap, err := st.snapshots.LoadSnapshot()
		if err != nil {
			return err
		}
		fresh = snap == nil
	}

	address, _ := config.ParseAddress(cfg.Bridge.Address)
	owner, _ := config.ParseAddress(cfg.Bridge.Owner)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	engine, err := bridge.New(bridge.Options{
		ChainID:       cfg.Bridge.ChainID,
		Address:       address,
		DomainName:    cfg.Bridge.DomainName,
		DomainVersion: cfg.Bridge.DomainVersion,
		Owner:         owner,
		Snapshots:     st.snapshots,
		Replay:        st.replay,
		Balances:      st.balances,
		Events:        st.events,
		VenueTimeout:  cfg.VenueTimeout(),
		VenueGasLimit: cfg.Venue.GasLimit,
		Metrics:       bridge.NewMetrics(reg),
		Logger:        log,
	})
	if err != nil {
		return err
	}

	if cfg.Venue.Address != "" {
		venueAdr, _ := config.ParseAddress(cfg.Venue.Address)
		if cfg.Venue.RPCURL != "" {
			engine.Venues().Register(venueAdr, venue.NewRPCClient(cfg.Venue.RPCURL, venueAdr, cfg.VenueTimeout()))
		}
	}
	if fresh {
		if err := bootstrap(engine, cfg, owner); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(cfg.EVM.RPCList) > 0 && len(cfg.EVM.Tokens) > 0 {
		tokens := make([]common.Address, 0, len(cfg.EVM.Tokens))
		for _, t := range cfg.EVM.Tokens {
			tokens = append(tokens, common.HexToAddress(t))
		}
		rec := workers.NewReconciler(engine, cfg.EVM.RPCList, tokens, reg, log.WithField("component", "reconcile"))
		go workers.Worker_reconcile(ctx, rec, cfg.ReconcileEvery())
	}

	if st.prune != nil {
		go workers.Worker_prune(ctx, st.prune, handlers.MaxRequestTTL, log.WithField("component", "prune"))
	}

	h := handlers.New(engine, st.health, cfg.EVM.RPCList, log.WithField("component", "http"))
	h.Confirmations = cfg.EVM.Confirmations
	if st.requests != nil {
		h.Requests = st.requests
	}
	return workers.Worker_HTTP(ctx, cfg, workers.NewRouter(h, reg), log)
}

// bootstrap applies the configured registry settings to a registry that was
// not restored from a snapshot.
func bootstrap(engine *bridge.Engine, cfg *config.Configuration, owner common.Address) error {
	if cfg.Bridge.StableToken != "" {
		token := common.HexToAddress(cfg.Bridge.StableToken)
		if err := engine.SetWhitelistToken(owner, token, true); err != nil {
			return err
		}
		if err := engine.SetStableToken(owner, token); err != nil {
			return err
		}
	}
	ceiling, err := cfg.RefundCeilingWei()
	if err != nil {
		return err
	}
	if ceiling.Sign() > 0 {
		if err := engine.SetRefundCeiling(owner, ceiling); err != nil {
			return err
		}
	}
	if cfg.Venue.Address != "" {
		if err := engine.SetVenue(owner, common.HexToAddress(cfg.Venue.Address)); err != nil {
			return err
		}
	}
	return nil
}
