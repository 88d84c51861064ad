package venue

import (
	"context"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ybbus/jsonrpc"

	bridgeerr "goswapbridge/errors"
)

// RPCClient is a venue behind a JSON-RPC endpoint. The remote side prices the
// swap; the exchange itself is settled on the ledger against the venue's
// inventory account. A reply received from swap_execute is final: the remote
// side has executed, so the caller's context is not consulted afterwards.
type RPCClient struct {
	Client  jsonrpc.RPCClient
	address common.Address
}

type swapRequest struct {
	SrcToken common.Address `json:"srcToken"`
	DstToken common.Address `json:"dstToken"`
	Amount   *hexutil.Big   `json:"amount"`
	Payload  hexutil.Bytes  `json:"payload"`
	GasLimit hexutil.Uint64 `json:"gasLimit"`
}

type swapReply struct {
	Token     common.Address `json:"token"`
	AmountOut *hexutil.Big   `json:"amountOut"`
}

func NewRPCClient(endpoint string, address common.Address, timeout time.Duration) *RPCClient {
	return &RPCClient{
		Client: jsonrpc.NewClientWithOpts(endpoint, &jsonrpc.RPCClientOpts{
			HTTPClient: &http.Client{Timeout: timeout},
		}),
		address: address,
	}
}

func (c *RPCClient) Address() common.Address {
	return c.address
}

func (c *RPCClient) Execute(ctx context.Context, ledger Ledger, call Call) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var reply swapReply
	if err := c.Client.CallFor(&reply, "swap_execute", c.request(call)); err != nil {
		return Result{}, bridgeerr.Wrap(bridgeerr.ErrVenueFailed, err.Error())
	}
	if reply.Token != call.DstToken || reply.AmountOut == nil {
		return Result{}, bridgeerr.ErrVenueFailed.New("malformed reply")
	}
	out := reply.AmountOut.ToInt()

	if err := ledger.Transfer(call.SrcToken, call.Payer, c.address, call.Amount); err != nil {
		return Result{}, err
	}
	if err := ledger.Transfer(call.DstToken, c.address, call.Payer, out); err != nil {
		return Result{}, err
	}
	return Result{Token: call.DstToken, Amount: out}, nil
}

func (c *RPCClient) request(call Call) swapRequest {
	return swapRequest{
		SrcToken: call.SrcToken,
		DstToken: call.DstToken,
		Amount:   (*hexutil.Big)(call.Amount),
		Payload:  call.Payload,
		GasLimit: hexutil.Uint64(call.GasLimit),
	}
}
