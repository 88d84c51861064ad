package handlers

import (
	"net/http"

	"github.com/go-chi/chi"

	"goswapbridge/types"
)

// Events lists recorded events, all kinds when {kind} is absent.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	kind := types.EventKind(chi.URLParam(r, "kind"))
	if kind != "" && !knownKind(kind) {
		responseInvalid(w, "kind", "Unknown event kind")
		return
	}

	events, err := h.Engine.Events().List(kind)
	if err != nil {
		h.Log.WithError(err).Error("Error listing events")
		responseError(w, err)
		return
	}
	if events == nil {
		events = []*types.Event{}
	}
	responseOK(w, events)
}

func knownKind(kind types.EventKind) bool {
	for _, k := range types.EventKinds {
		if k == kind {
			return true
		}
	}
	return false
}
