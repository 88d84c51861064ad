package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	bridgeerr "goswapbridge/errors"
)

func responseJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func responsePlain(w http.ResponseWriter, data []byte, code int) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(code)
	w.Write(data)
}

func responseOK(w http.ResponseWriter, data interface{}) {
	responseJSON(w, &APIResponse{Status: "ok", Data: data}, http.StatusOK)
}

func responseInvalid(w http.ResponseWriter, field, message string) {
	responseJSON(w, &APIResponse{
		Status:  "error",
		Field:   field,
		Message: message,
		Code:    bridgeerr.ErrInvalidParameter.Code(),
	}, http.StatusBadRequest)
}

// responseError replies with the status matching the error's registered
// root.
func responseError(w http.ResponseWriter, err error) {
	code := bridgeerr.Code(err)
	responseJSON(w, &APIResponse{
		Status:  "error",
		Message: err.Error(),
		Code:    code,
	}, httpStatus(code))
}

func httpStatus(code uint32) int {
	switch code {
	case bridgeerr.ErrAccessDenied.Code(), bridgeerr.ErrNotRelayerOrInsufficientApproval.Code():
		return http.StatusForbidden
	case bridgeerr.ErrPaused.Code(), bridgeerr.ErrReplayDetected.Code():
		return http.StatusConflict
	case bridgeerr.ErrNotWhitelistedToken.Code(),
		bridgeerr.ErrInvalidParameter.Code(),
		bridgeerr.ErrRefundThresholdExceeded.Code():
		return http.StatusBadRequest
	case bridgeerr.ErrTransferFailed.Code():
		return http.StatusUnprocessableEntity
	case bridgeerr.ErrStore.Code():
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return bridgeerr.Wrap(bridgeerr.ErrInvalidParameter, err.Error())
	}
	return nil
}

func parseUint(s string) (uint64, bool) {
	v, err := strconv.ParseUint(s, 10, 64)
	return v, err == nil
}
