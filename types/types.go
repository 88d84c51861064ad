package types

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// NativeToken stands for the chain's native asset wherever a token address
// is expected.
var NativeToken = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// GeneralAddress is a 32-byte destination identity, wide enough for address
// formats of non-EVM chains. EVM addresses are left-padded.
type GeneralAddress [32]byte

func GeneralAddressFrom(addr common.Address) GeneralAddress {
	var g GeneralAddress
	copy(g[12:], addr.Bytes())
	return g
}

func (g GeneralAddress) IsZero() bool {
	return g == GeneralAddress{}
}

func (g GeneralAddress) Hex() string {
	return hexutil.Encode(g[:])
}

func (g GeneralAddress) MarshalText() ([]byte, error) {
	return hexutil.Bytes(g[:]).MarshalText()
}

func (g *GeneralAddress) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("GeneralAddress", input, g[:])
}

// SwapIntent is an escrow request recorded by the outbound handler. It is
// immutable once emitted; settlement happens on the destination chain.
type SwapIntent struct {
	OrderID       *big.Int       `json:"orderId"`
	User          common.Address `json:"user"`
	SrcToken      common.Address `json:"srcToken"`
	DstToken      hexutil.Bytes  `json:"dstToken"` // opaque descriptor, may be a non-EVM address
	To            GeneralAddress `json:"to"`
	DstChainID    uint64         `json:"dstChainId"`
	Amount        *big.Int       `json:"amount"`
	AttachedValue *big.Int       `json:"attachedValue"`
}

// SettlementRequest is a protocol-relayed instruction to deliver the
// destination leg of a swap. ReferenceID is usually the source chain
// transaction hash.
type SettlementRequest struct {
	SrcToken      common.Address  `json:"srcToken"`
	DstToken      common.Address  `json:"dstToken"`
	To            common.Address  `json:"to"`
	Amount        *big.Int        `json:"amount"`
	FromChainID   uint64          `json:"fromChainId"`
	DstChainID    uint64          `json:"dstChainId"`
	ReferenceID   common.Hash     `json:"referenceId"`
	VenueCalldata hexutil.Bytes   `json:"venueCalldata"`
	Signatures    []hexutil.Bytes `json:"signatures"`
}

// RefundRequest returns stable coin to a user whose source leg could not be
// settled.
type RefundRequest struct {
	Token       common.Address  `json:"token"`
	To          common.Address  `json:"to"`
	Amount      *big.Int        `json:"amount"`
	ReferenceID common.Hash     `json:"referenceId"`
	Signatures  []hexutil.Bytes `json:"signatures"`
}

// WithdrawalRequest moves custody funds under validator quorum.
type WithdrawalRequest struct {
	Token       common.Address  `json:"token"`
	To          common.Address  `json:"to"`
	Amount      *big.Int        `json:"amount"`
	ReferenceID common.Hash     `json:"referenceId"`
	Signatures  []hexutil.Bytes `json:"signatures"`
}

// Outcome tells which branch discharged a settlement.
type Outcome string

const (
	OutcomeForwarded Outcome = "forwarded"
	OutcomeRefunded  Outcome = "refunded"
)

// EventKind names a record emitted by a mutating operation.
type EventKind string

const (
	EventSwapRequested        EventKind = "swap_requested"
	EventSwapSettled          EventKind = "swap_settled"
	EventStableCoinRefunded   EventKind = "stable_coin_refunded"
	EventTokensWithdrawn      EventKind = "tokens_withdrawn"
	EventNativeWithdrawn      EventKind = "native_withdrawn"
	EventDeposited            EventKind = "deposited"
	EventFunded               EventKind = "funded"
	EventRescued              EventKind = "rescued"
	EventPaused               EventKind = "paused"
	EventUnpaused             EventKind = "unpaused"
	EventOwnershipTransferred EventKind = "ownership_transferred"
	EventWithdrawerSet        EventKind = "withdrawer_set"
	EventValidatorsSet        EventKind = "validators_set"
	EventThresholdSet         EventKind = "threshold_set"
	EventAllowanceSet         EventKind = "allowance_set"
	EventRefundCeilingSet     EventKind = "refund_ceiling_set"
	EventTokenWhitelisted     EventKind = "token_whitelisted"
	EventChainsWhitelisted    EventKind = "chains_whitelisted"
	EventVenueSet             EventKind = "venue_set"
	EventStableTokenSet       EventKind = "stable_token_set"
)

// EventKinds lists every kind, used by stores that keep one index per kind.
var EventKinds = []EventKind{
	EventSwapRequested, EventSwapSettled, EventStableCoinRefunded,
	EventTokensWithdrawn, EventNativeWithdrawn, EventDeposited,
	EventFunded, EventRescued,
	EventPaused, EventUnpaused, EventOwnershipTransferred, EventWithdrawerSet,
	EventValidatorsSet, EventThresholdSet, EventAllowanceSet,
	EventRefundCeilingSet, EventTokenWhitelisted, EventChainsWhitelisted,
	EventVenueSet, EventStableTokenSet,
}

// Event is a structured record of a mutating operation, carrying its full
// input and the resolved outcome.
type Event struct {
	ID     string          `json:"id"`
	Seq    uint64          `json:"seq"`
	Kind   EventKind       `json:"kind"`
	Caller common.Address  `json:"caller"`
	Time   int64           `json:"time"`
	Data   json.RawMessage `json:"data"`
}

// SwapSettled is the payload of EventSwapSettled.
type SwapSettled struct {
	Request    SettlementRequest `json:"request"`
	Path       string            `json:"path"` // "allowance" or "quorum"
	Outcome    Outcome           `json:"outcome"`
	Delivered  *big.Int          `json:"delivered"`
	Token      common.Address    `json:"token"`
	VenueError string            `json:"venueError,omitempty"`
}

// Transfer is the payload of refund, withdrawal, deposit, funding and rescue
// events.
type Transfer struct {
	Token       common.Address `json:"token"`
	From        common.Address `json:"from,omitempty"`
	To          common.Address `json:"to"`
	Amount      *big.Int       `json:"amount"`
	ReferenceID common.Hash    `json:"referenceId,omitempty"`
	Quorum      bool           `json:"quorum,omitempty"`
}

// ConfigChange is the payload of every owner setter event.
type ConfigChange struct {
	Addresses []common.Address `json:"addresses,omitempty"`
	Chains    []uint64         `json:"chains,omitempty"`
	Token     common.Address   `json:"token,omitempty"`
	Amount    *big.Int         `json:"amount,omitempty"`
	Value     uint64           `json:"value,omitempty"`
	Enabled   bool             `json:"enabled"`
}
