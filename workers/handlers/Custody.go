package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"goswapbridge/EVMRPC"
	bridgeerr "goswapbridge/errors"
	"goswapbridge/types"
)

func (h *Handlers) RefundStableCoin(w http.ResponseWriter, r *http.Request) {
	var req types.RefundRequest
	if err := decodeBody(r, &req); err != nil {
		responseInvalid(w, "body", "Cannot unmarshal input JSON")
		return
	}
	ev, err := h.Engine.RefundStableCoin(caller(r), req)
	if err != nil {
		responseError(w, err)
		return
	}
	responseOK(w, ev)
}

func (h *Handlers) WithdrawTokens(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := decodeBody(r, &req); err != nil {
		responseInvalid(w, "body", "Cannot unmarshal input JSON")
		return
	}
	ev, err := h.Engine.WithdrawTokens(caller(r), req.Token, req.To, req.Amount)
	if err != nil {
		responseError(w, err)
		return
	}
	responseOK(w, ev)
}

func (h *Handlers) WithdrawNative(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := decodeBody(r, &req); err != nil {
		responseInvalid(w, "body", "Cannot unmarshal input JSON")
		return
	}
	ev, err := h.Engine.WithdrawNative(caller(r), req.To, req.Amount)
	if err != nil {
		responseError(w, err)
		return
	}
	responseOK(w, ev)
}

func (h *Handlers) WithdrawWithSignatures(w http.ResponseWriter, r *http.Request) {
	var req types.WithdrawalRequest
	if err := decodeBody(r, &req); err != nil {
		responseInvalid(w, "body", "Cannot unmarshal input JSON")
		return
	}
	ev, err := h.Engine.WithdrawTokensWithSignatures(caller(r), req)
	if err != nil {
		responseError(w, err)
		return
	}
	responseOK(w, ev)
}

// Deposit credits custody with funds that arrived on chain. Only the owner
// may record them over HTTP.
func (h *Handlers) Deposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := decodeBody(r, &req); err != nil {
		responseInvalid(w, "body", "Cannot unmarshal input JSON")
		return
	}
	if caller(r) != h.Engine.Owner() {
		responseError(w, bridgeerr.ErrAccessDenied.New("deposit"))
		return
	}
	if err := h.Engine.Deposit(caller(r), req.Token, req.Amount); err != nil {
		responseError(w, err)
		return
	}
	responseOK(w, &APIBalanceResponse{
		Token:   req.Token,
		Holder:  h.Engine.Address(),
		Balance: h.Engine.CustodyBalance(req.Token),
	})
}

func (h *Handlers) RescueTokens(w http.ResponseWriter, r *http.Request) {
	var req rescueRequest
	if err := decodeBody(r, &req); err != nil {
		responseInvalid(w, "body", "Cannot unmarshal input JSON")
		return
	}
	ev, err := h.Engine.RescueTokens(caller(r), req.Token)
	if err != nil {
		responseError(w, err)
		return
	}
	responseOK(w, ev)
}

func (h *Handlers) RescueNative(w http.ResponseWriter, r *http.Request) {
	ev, err := h.Engine.RescueNative(caller(r))
	if err != nil {
		responseError(w, err)
		return
	}
	responseOK(w, ev)
}

// Fund credits the caller with a confirmed on-chain deposit to the custody
// account.
func (h *Handlers) Fund(w http.ResponseWriter, r *http.Request) {
	var req fundRequest
	if err := decodeBody(r, &req); err != nil {
		responseInvalid(w, "body", "Cannot unmarshal input JSON")
		return
	}
	if !h.Engine.IsWhitelistedToken(req.Token) {
		responseError(w, bridgeerr.ErrNotWhitelistedToken.Newf("%s", req.Token.Hex()))
		return
	}
	from := caller(r)
	dep, err := EVMRPC.VerifyDeposit(r.Context(), h.RPCList, req.TxHash, req.Token, from, h.Engine.Address(), h.Confirmations)
	if err != nil {
		h.Log.WithError(err).WithFields(logrus.Fields{"tx": req.TxHash.Hex(), "from": from.Hex()}).Warn("Deposit not verified")
		if bridgeerr.Root(err) == nil {
			err = bridgeerr.ErrInvalidParameter.Newf("deposit %s not verified: %s", req.TxHash.Hex(), err.Error())
		}
		responseError(w, err)
		return
	}
	ev, err := h.Engine.Fund(from, dep.Token, dep.TxHash, dep.Amount)
	if err != nil {
		responseError(w, err)
		return
	}
	responseOK(w, ev)
}
