package handlers

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"goswapbridge/types"
)

type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Field   string      `json:"field,omitempty"`
	Code    uint32      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type APIStateResponse struct {
	Status        string         `json:"status"`
	ChainID       uint64         `json:"chainId"`
	Address       common.Address `json:"address"`
	Owner         common.Address `json:"owner"`
	Withdrawer    common.Address `json:"withdrawer"`
	Paused        bool           `json:"paused"`
	Threshold     uint32         `json:"threshold"`
	Validators    int            `json:"validators"`
	RefundCeiling *big.Int       `json:"refundCeiling"`
}

type APIBalanceResponse struct {
	Token   common.Address `json:"token"`
	Holder  common.Address `json:"holder"`
	Balance *big.Int       `json:"balance"`
}

type APISettlementResponse struct {
	Path       string         `json:"path"`
	Outcome    types.Outcome  `json:"outcome"`
	Token      common.Address `json:"token"`
	Delivered  *big.Int       `json:"delivered"`
	VenueError string         `json:"venueError,omitempty"`
	Event      *types.Event   `json:"event"`
}

// envelope carries the expiry every signed request body must contain.
type envelope struct {
	Expires int64 `json:"expires"`
}

type depositRequest struct {
	Token  common.Address `json:"token"`
	Amount *big.Int       `json:"amount"`
}

type fundRequest struct {
	TxHash common.Hash    `json:"txHash"`
	Token  common.Address `json:"token"`
}

type rescueRequest struct {
	Token common.Address `json:"token"`
}

type withdrawRequest struct {
	Token  common.Address `json:"token"`
	To     common.Address `json:"to"`
	Amount *big.Int       `json:"amount"`
}

// adminRequest holds the union of setter arguments; each op reads the
// fields it needs.
type adminRequest struct {
	Address   common.Address   `json:"address"`
	Addresses []common.Address `json:"addresses"`
	Token     common.Address   `json:"token"`
	Chains    []uint64         `json:"chains"`
	Amount    *big.Int         `json:"amount"`
	Threshold uint32           `json:"threshold"`
	Enabled   bool             `json:"enabled"`
}
