package handlers

import (
	"net/http"

	"github.com/go-chi/chi"
)

// Admin dispatches owner setters by the path after /admin/. The engine checks ownership.
func (h *Handlers) Admin(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if err := decodeBody(r, &req); err != nil {
		responseInvalid(w, "body", "Cannot unmarshal input JSON")
		return
	}

	e, from := h.Engine, caller(r)
	var err error
	switch op := chi.URLParam(r, "*"); op {
	case "owner":
		err = e.TransferOwnership(from, req.Address)
	case "withdrawer":
		err = e.SetWithdrawer(from, req.Address)
	case "validators":
		err = e.SetValidators(from, req.Addresses, req.Enabled)
	case "validator/add":
		err = e.AddValidator(from, req.Address)
	case "validator/remove":
		err = e.RemoveValidator(from, req.Address)
	case "threshold":
		err = e.SetThreshold(from, req.Threshold)
	case "pause":
		err = e.Pause(from)
	case "unpause":
		err = e.Unpause(from)
	case "allowance":
		err = e.SetAllowance(from, req.Address, req.Token, req.Amount)
	case "refund-ceiling":
		err = e.SetRefundCeiling(from, req.Amount)
	case "token":
		err = e.SetWhitelistToken(from, req.Token, req.Enabled)
	case "chains":
		err = e.SetWhitelistChains(from, req.Chains, req.Enabled)
	case "venue":
		err = e.SetVenue(from, req.Address)
	case "stable-token":
		err = e.SetStableToken(from, req.Token)
	default:
		responseJSON(w, &APIResponse{Status: "error", Field: "op", Message: "Unknown operation " + op}, http.StatusNotFound)
		return
	}
	if err != nil {
		responseError(w, err)
		return
	}
	responseOK(w, e.Snapshot())
}
