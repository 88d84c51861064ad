package workers

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"goswapbridge/EVMRPC"
	"goswapbridge/bridge"
)

// Drift is a token whose on-chain balance differs from engine custody.
type Drift struct {
	Token   common.Address
	Custody *big.Int
	Onchain *big.Int
}

// Reconciler compares engine custody with the custody address balance on
// chain.
type Reconciler struct {
	engine  *bridge.Engine
	rpcList []string
	tokens  []common.Address
	log     *logrus.Entry
	drift   *prometheus.GaugeVec
}

func NewReconciler(engine *bridge.Engine, rpcList []string, tokens []common.Address, reg prometheus.Registerer, log *logrus.Entry) *Reconciler {
	drift := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "swapbridge",
		Name:      "custody_drift",
		Help:      "On-chain balance minus engine custody, per token.",
	}, []string{"token"})
	if reg != nil {
		reg.MustRegister(drift)
	}
	return &Reconciler{engine: engine, rpcList: rpcList, tokens: tokens, log: log, drift: drift}
}

// Reconcile runs one pass over every token. Tokens whose balance cannot be
// read are skipped; the last read error is returned.
func (r *Reconciler) Reconcile(ctx context.Context) ([]Drift, error) {
	var (
		drifts  []Drift
		lastErr error
	)
	for _, token := range r.tokens {
		onchain, err := EVMRPC.TokenBalance(ctx, r.rpcList, token, r.engine.Address())
		if err != nil {
			r.log.WithError(err).WithField("token", token.Hex()).Error("Error getting on-chain balance")
			lastErr = err
			continue
		}
		custody := r.engine.CustodyBalance(token)

		diff := new(big.Int).Sub(onchain, custody)
		f, _ := new(big.Float).SetInt(diff).Float64()
		r.drift.WithLabelValues(token.Hex()).Set(f)

		if diff.Sign() != 0 {
			r.log.WithFields(logrus.Fields{
				"token":   token.Hex(),
				"custody": custody.String(),
				"onchain": onchain.String(),
			}).Warn("custody drift")
			drifts = append(drifts, Drift{Token: token, Custody: custody, Onchain: onchain})
		}
	}
	return drifts, lastErr
}

// Worker_reconcile runs Reconcile every interval until ctx is cancelled.
func Worker_reconcile(ctx context.Context, r *Reconciler, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Reconcile(ctx)
		}
	}
}
