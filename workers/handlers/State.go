package handlers

import (
	"net/http"
)

func (h *Handlers) State(w http.ResponseWriter, r *http.Request) {
	e := h.Engine
	responseJSON(w, &APIStateResponse{
		Status:        "ok",
		ChainID:       e.ChainID(),
		Address:       e.Address(),
		Owner:         e.Owner(),
		Withdrawer:    e.Withdrawer(),
		Paused:        e.Paused(),
		Threshold:     e.Threshold(),
		Validators:    len(e.Validators()),
		RefundCeiling: e.RefundCeiling(),
	}, http.StatusOK)
}

// Config returns the full registry snapshot.
func (h *Handlers) Config(w http.ResponseWriter, r *http.Request) {
	responseOK(w, h.Engine.Snapshot())
}

func (h *Handlers) Domain(w http.ResponseWriter, r *http.Request) {
	sep, err := h.Engine.DomainSeparator()
	if err != nil {
		responseError(w, err)
		return
	}
	responseOK(w, map[string]interface{}{
		"chainId":           h.Engine.ChainID(),
		"verifyingContract": h.Engine.Address(),
		"separator":         sep,
	})
}
