package bridge

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"

	bridgeerr "goswapbridge/errors"
	"goswapbridge/signer"
	"goswapbridge/types"
	"goswapbridge/venue"
)

const (
	PathAllowance = "allowance"
	PathQuorum    = "quorum"
)

// Settlement describes how an accepted SettlementRequest was discharged.
type Settlement struct {
	Path      string
	Outcome   types.Outcome
	Token     common.Address
	Delivered *big.Int
	// VenueErr is the reason the venue call failed, nil when forwarded.
	VenueErr error
	Event    *types.Event
}

// SettleSwap delivers the destination leg of a swap. With no signatures the
// caller must be a relayer with enough allowance for SrcToken; otherwise the
// signatures must form a validator quorum over the request. Once authorized,
// the reference id is consumed and the venue is called. Proceeds go to
// req.To, or on any venue failure req.To receives req.Amount of SrcToken
// instead. Only a failed refund transfer rejects an authorized request, and
// then nothing of the call remains applied.
func (e *Engine) SettleSwap(ctx context.Context, caller common.Address, req types.SettlementRequest) (res *Settlement, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.observe("settle_swap", caller, &err)

	if err := e.registry.RequireNotPaused(); err != nil {
		return nil, err
	}
	if err := e.registry.RequireWhitelistedToken(req.SrcToken); err != nil {
		return nil, err
	}
	if err := e.checkSettlement(&req); err != nil {
		return nil, err
	}
	if err := e.requireNotConsumed(req.ReferenceID); err != nil {
		return nil, err
	}

	digest, err := e.domain.SwapDigest(&req)
	if err != nil {
		return nil, err
	}

	path := PathAllowance
	if len(req.Signatures) > 0 {
		path = PathQuorum
		if _, err := signer.VerifyQuorum(e.registry, digest, rawSignatures(req.Signatures)); err != nil {
			return nil, err
		}
	} else if e.registry.Allowance(caller, req.SrcToken).Cmp(req.Amount) < 0 {
		return nil, bridgeerr.ErrNotRelayerOrInsufficientApproval.Newf("allowance of %s for %s below %s", caller.Hex(), req.SrcToken.Hex(), req.Amount)
	}

	j := e.begin()
	defer func() { e.finish(j, err) }()

	if err := e.consume(j, req.ReferenceID, digest); err != nil {
		return nil, err
	}
	if path == PathAllowance {
		if err := e.registry.ConsumeAllowance(caller, req.SrcToken, req.Amount); err != nil {
			return nil, err
		}
		j.append(func() { e.registry.ReleaseAllowance(caller, req.SrcToken, req.Amount) })
	}

	venueAddr := e.registry.Venue()
	exec, _ := e.venues.Resolve(venueAddr)
	// the venue is bounded by venueTimeout only; a caller going away must not
	// turn a completed swap into a refund
	out := venue.Isolate(context.WithoutCancel(ctx), e.ledger, exec, venue.Call{
		Venue:    venueAddr,
		Payer:    e.address,
		SrcToken: req.SrcToken,
		DstToken: req.DstToken,
		Amount:   req.Amount,
		Payload:  req.VenueCalldata,
		GasLimit: e.venueGasLimit,
	}, e.venueTimeout)

	res = &Settlement{Path: path}
	if !out.Failed() {
		res.Outcome, res.Token, res.Delivered = types.OutcomeForwarded, out.Token, out.Delivered
		if err := e.ledger.Transfer(out.Token, e.address, req.To, out.Delivered); err != nil {
			return nil, err
		}
	} else {
		res.Outcome, res.Token, res.Delivered = types.OutcomeRefunded, req.SrcToken, new(big.Int).Set(req.Amount)
		res.VenueErr = out.Err
		if err := e.ledger.Transfer(req.SrcToken, e.address, req.To, req.Amount); err != nil {
			return nil, bridgeerr.Wrap(err, "refund after venue failure")
		}
		e.log.WithFields(logrus.Fields{
			"reference": req.ReferenceID.Hex(),
			"venue":     venueAddr.Hex(),
		}).WithError(out.Err).Warn("venue call failed, refunded source token")
	}

	e.metrics.Settlements.WithLabelValues(path, string(res.Outcome)).Inc()

	payload := types.SwapSettled{
		Request:   req,
		Path:      path,
		Outcome:   res.Outcome,
		Delivered: res.Delivered,
		Token:     res.Token,
	}
	if res.VenueErr != nil {
		payload.VenueError = res.VenueErr.Error()
	}
	res.Event = e.emit(types.EventSwapSettled, caller, payload)
	return res, nil
}

func (e *Engine) checkSettlement(req *types.SettlementRequest) error {
	if err := requireNonZero(req.To, "recipient"); err != nil {
		return err
	}
	if err := requirePositive(req.Amount, "amount"); err != nil {
		return err
	}
	if req.FromChainID == e.chainID {
		return bridgeerr.ErrInvalidParameter.New("source is the local chain")
	}
	if !e.registry.IsWhitelistedChain(req.FromChainID) {
		return bridgeerr.ErrInvalidParameter.Newf("chain %d not whitelisted", req.FromChainID)
	}
	if req.DstChainID != e.chainID {
		return bridgeerr.ErrInvalidParameter.Newf("destination chain %d, local chain %d", req.DstChainID, e.chainID)
	}
	return nil
}

// consume inserts ref into the replay ledger and journals its release.
func (e *Engine) consume(j *journal, ref, fingerprint common.Hash) error {
	if err := e.replay.Consume(ref, fingerprint); err != nil {
		return err
	}
	j.append(func() {
		if err := e.replay.Release(ref); err != nil {
			e.log.WithError(err).WithField("reference", ref.Hex()).Error("cannot release reference")
		}
	})
	return nil
}

func rawSignatures(sigs []hexutil.Bytes) [][]byte {
	out := make([][]byte, len(sigs))
	for i, s := range sigs {
		out[i] = s
	}
	return out
}
