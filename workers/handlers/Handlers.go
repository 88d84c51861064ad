package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	"goswapbridge/bridge"
	"goswapbridge/registry"
	"goswapbridge/signer"
)

const (
	// SignatureHeader carries the caller's personal_sign signature over the
	// raw request body.
	SignatureHeader = "X-Caller-Signature"

	// MaxRequestTTL bounds how far in the future a signed body may expire.
	MaxRequestTTL = 10 * time.Minute

	// DefaultConfirmations is the depth a funding deposit needs unless
	// configured otherwise.
	DefaultConfirmations = 12

	maxBodyBytes = 1 << 20
)

type callerKey struct{}

// Handlers serves the engine over HTTP.
type Handlers struct {
	Engine *bridge.Engine
	// Health reports the backing store; nil means always healthy.
	Health func() error
	// RPCList serves on-chain balance reads and deposit verification.
	RPCList []string
	// Confirmations a deposit needs before Fund credits it.
	Confirmations uint64
	// Requests holds every accepted signed body until it expires.
	Requests registry.RequestLedger
	Log      *logrus.Entry
	Now      func() time.Time
}

func New(engine *bridge.Engine, health func() error, rpcList []string, log *logrus.Entry) *Handlers {
	return &Handlers{
		Engine:        engine,
		Health:        health,
		RPCList:       rpcList,
		Confirmations: DefaultConfirmations,
		Requests:      registry.NewMemoryRequestLedger(),
		Log:           log,
		Now:           time.Now,
	}
}

// Caller returns the address authenticated by Authenticate.
func Caller(ctx context.Context) (common.Address, bool) {
	addr, ok := ctx.Value(callerKey{}).(common.Address)
	return addr, ok
}

// Authenticate recovers the caller from the body signature and rejects
// expired bodies and bodies already submitted. The body is left readable for
// the next handler.
func (h *Handlers) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			responseInvalid(w, "body", "Unable to read request body")
			return
		}

		sig := r.Header.Get(SignatureHeader)
		if sig == "" {
			responseJSON(w, &APIResponse{Status: "error", Field: SignatureHeader, Message: "Missing signature"}, http.StatusUnauthorized)
			return
		}
		caller, err := signer.RecoverPersonal(body, sig)
		if err != nil {
			responseJSON(w, &APIResponse{Status: "error", Field: SignatureHeader, Message: err.Error()}, http.StatusUnauthorized)
			return
		}

		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			responseInvalid(w, "body", "Invalid JSON")
			return
		}
		now := h.Now()
		expires := time.Unix(env.Expires, 0)
		if !expires.After(now) || expires.After(now.Add(MaxRequestTTL)) {
			responseInvalid(w, "expires", "Request expired or too far in the future")
			return
		}
		// a body is accepted once, whatever the handler makes of it
		if err := h.Requests.Claim(crypto.Keccak256Hash(body), expires.Sub(now)); err != nil {
			responseError(w, err)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, caller)))
	})
}

// caller is only called behind Authenticate.
func caller(r *http.Request) common.Address {
	addr, _ := Caller(r.Context())
	return addr
}
