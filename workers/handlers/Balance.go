package handlers

import (
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi"

	"goswapbridge/EVMRPC"
	"goswapbridge/config"
)

// CustodyBalance reports the engine's custody balance of {token}, or the
// balance of {holder} when given. Clients asking for text/plain get the bare
// number, like the old balance endpoints.
func (h *Handlers) CustodyBalance(w http.ResponseWriter, r *http.Request) {
	token, err := config.ParseAddress(chi.URLParam(r, "token"))
	if err != nil {
		responseInvalid(w, "token", err.Error())
		return
	}
	holder := h.Engine.Address()
	if s := chi.URLParam(r, "holder"); s != "" {
		if holder, err = config.ParseAddress(s); err != nil {
			responseInvalid(w, "holder", err.Error())
			return
		}
	}
	h.writeBalance(w, r, token, holder, h.Engine.BalanceOf(token, holder))
}

// OnchainBalance reads the custody address balance of {token} from the
// configured EVM RPC endpoints.
func (h *Handlers) OnchainBalance(w http.ResponseWriter, r *http.Request) {
	token, err := config.ParseAddress(chi.URLParam(r, "token"))
	if err != nil {
		responseInvalid(w, "token", err.Error())
		return
	}
	balance, err := EVMRPC.TokenBalance(r.Context(), h.RPCList, token, h.Engine.Address())
	if err != nil {
		h.Log.WithError(err).Error("Error getting on-chain balance")
		responsePlain(w, []byte("error"), http.StatusBadGateway)
		return
	}
	h.writeBalance(w, r, token, h.Engine.Address(), balance)
}

func (h *Handlers) writeBalance(w http.ResponseWriter, r *http.Request, token, holder common.Address, balance *big.Int) {
	if strings.HasPrefix(r.Header.Get("Accept"), "text/plain") {
		responsePlain(w, []byte(balance.String()), http.StatusOK)
		return
	}
	responseOK(w, &APIBalanceResponse{Token: token, Holder: holder, Balance: balance})
}
