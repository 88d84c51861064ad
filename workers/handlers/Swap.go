package handlers

import (
	"net/http"

	"goswapbridge/types"
)

// RequestSwap escrows the caller's source tokens and records the intent.
func (h *Handlers) RequestSwap(w http.ResponseWriter, r *http.Request) {
	var req types.SwapIntent
	if err := decodeBody(r, &req); err != nil {
		responseInvalid(w, "body", "Cannot unmarshal input JSON")
		return
	}

	ev, err := h.Engine.RequestSwap(caller(r), req)
	if err != nil {
		responseError(w, err)
		return
	}
	responseOK(w, ev)
}

// SettleSwap delivers the destination leg of a swap. The reply reports
// which branch discharged it; a venue failure is a refunded outcome, not an
// error.
func (h *Handlers) SettleSwap(w http.ResponseWriter, r *http.Request) {
	var req types.SettlementRequest
	if err := decodeBody(r, &req); err != nil {
		responseInvalid(w, "body", "Cannot unmarshal input JSON")
		return
	}

	res, err := h.Engine.SettleSwap(r.Context(), caller(r), req)
	if err != nil {
		responseError(w, err)
		return
	}
	out := &APISettlementResponse{
		Path:      res.Path,
		Outcome:   res.Outcome,
		Token:     res.Token,
		Delivered: res.Delivered,
		Event:     res.Event,
	}
	if res.VenueErr != nil {
		out.VenueError = res.VenueErr.Error()
	}
	responseOK(w, out)
}
