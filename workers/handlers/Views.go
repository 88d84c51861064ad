package handlers

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-chi/chi"

	"goswapbridge/config"
)

func (h *Handlers) Validators(w http.ResponseWriter, r *http.Request) {
	responseOK(w, map[string]interface{}{
		"validators": h.Engine.Validators(),
		"threshold":  h.Engine.Threshold(),
	})
}

func (h *Handlers) Allowance(w http.ResponseWriter, r *http.Request) {
	relayer, err := config.ParseAddress(chi.URLParam(r, "relayer"))
	if err != nil {
		responseInvalid(w, "relayer", err.Error())
		return
	}
	token, err := config.ParseAddress(chi.URLParam(r, "token"))
	if err != nil {
		responseInvalid(w, "token", err.Error())
		return
	}
	responseOK(w, map[string]interface{}{
		"relayer":   relayer,
		"token":     token,
		"allowance": h.Engine.Allowance(relayer, token),
	})
}

func (h *Handlers) Consumed(w http.ResponseWriter, r *http.Request) {
	raw, err := hexutil.Decode(chi.URLParam(r, "ref"))
	if err != nil || len(raw) != common.HashLength {
		responseInvalid(w, "ref", "Reference id must be 32 bytes of hex")
		return
	}
	ref := common.BytesToHash(raw)
	fp, consumed, err := h.Engine.Fingerprint(ref)
	if err != nil {
		responseError(w, err)
		return
	}
	data := map[string]interface{}{"referenceId": ref, "consumed": consumed}
	if consumed {
		data["fingerprint"] = fp
	}
	responseOK(w, data)
}

func (h *Handlers) WhitelistedToken(w http.ResponseWriter, r *http.Request) {
	token, err := config.ParseAddress(chi.URLParam(r, "token"))
	if err != nil {
		responseInvalid(w, "token", err.Error())
		return
	}
	responseOK(w, map[string]interface{}{"token": token, "whitelisted": h.Engine.IsWhitelistedToken(token)})
}

func (h *Handlers) WhitelistedChain(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUint(chi.URLParam(r, "chainId"))
	if !ok {
		responseInvalid(w, "chainId", "Chain id must be a decimal number")
		return
	}
	responseOK(w, map[string]interface{}{"chainId": id, "whitelisted": h.Engine.IsWhitelistedChain(id)})
}
