package workers

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"goswapbridge/bridge"
	"goswapbridge/signer"
	"goswapbridge/types"
	"goswapbridge/venue"
	"goswapbridge/workers/handlers"
)

const (
	localChain  = 8453
	remoteChain = 56

	ownerKey   = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	relayerKey = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
)

var (
	custodyAdr = common.HexToAddress("0x7645f840A483721B4a48dC1D97566AE87DF0A612")
	poolAdr    = common.HexToAddress("0x2626664c2603336E57B271c5C0b26F421741e481")
	recipient  = common.HexToAddress("0x4444444444444444444444444444444444444444")

	usdt = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	weth = common.HexToAddress("0x4200000000000000000000000000000000000006")

	now = time.Unix(1_700_000_000, 0)
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.Out = io.Discard
	return logrus.NewEntry(l)
}

func mustKey(t *testing.T, hex string) *ecdsa.PrivateKey {
	t.Helper()
	k, err := crypto.HexToECDSA(hex)
	require.NoError(t, err)
	return k
}

type api struct {
	engine  *bridge.Engine
	h       *handlers.Handlers
	server  *httptest.Server
	owner   *ecdsa.PrivateKey
	relayer *ecdsa.PrivateKey
	reg     *prometheus.Registry
}

func newAPI(t *testing.T) *api {
	t.Helper()
	a := &api{
		owner:   mustKey(t, ownerKey),
		relayer: mustKey(t, relayerKey),
		reg:     prometheus.NewRegistry(),
	}
	ownerAdr := crypto.PubkeyToAddress(a.owner.PublicKey)
	relayerAdr := crypto.PubkeyToAddress(a.relayer.PublicKey)

	e, err := bridge.New(bridge.Options{
		ChainID: localChain,
		Address: custodyAdr,
		Owner:   ownerAdr,
		Metrics: bridge.NewMetrics(a.reg),
		Logger:  quietLogger(),
	})
	require.NoError(t, err)
	a.engine = e

	require.NoError(t, e.SetWhitelistToken(ownerAdr, usdt, true))
	require.NoError(t, e.SetWhitelistToken(ownerAdr, weth, true))
	require.NoError(t, e.SetWhitelistChains(ownerAdr, []uint64{remoteChain}, true))
	require.NoError(t, e.SetAllowance(ownerAdr, relayerAdr, usdt, big.NewInt(1_000)))

	pool := venue.NewPool(poolAdr, 50_000)
	require.NoError(t, pool.SetRate(usdt, weth, big.NewInt(2), big.NewInt(1)))
	require.NoError(t, e.Ledger().Mint(weth, poolAdr, big.NewInt(1_000_000)))
	e.Venues().Register(poolAdr, pool)
	require.NoError(t, e.SetVenue(ownerAdr, poolAdr))
	require.NoError(t, e.Deposit(ownerAdr, usdt, big.NewInt(10_000)))

	h := handlers.New(e, nil, nil, quietLogger())
	h.Now = func() time.Time { return now }
	a.h = h
	a.server = httptest.NewServer(NewRouter(h, a.reg))
	t.Cleanup(a.server.Close)
	return a
}

// signedBody adds an expiry to v and returns the body with its personal_sign
// signature.
func signedBody(t *testing.T, key *ecdsa.PrivateKey, v interface{}, expires time.Time) ([]byte, string) {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	fields := map[string]json.RawMessage{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	fields["expires"] = json.RawMessage(big.NewInt(expires.Unix()).String())
	body, err := json.Marshal(fields)
	require.NoError(t, err)

	sig, err := crypto.Sign(signer.PersonalHash(body).Bytes(), key)
	require.NoError(t, err)
	sig[64] += 27
	return body, hexutil.Encode(sig)
}

func address(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}

// quorum signs digest with keys the way validators do.
func quorum(t *testing.T, digest common.Hash, keys ...*ecdsa.PrivateKey) []hexutil.Bytes {
	t.Helper()
	out := make([]hexutil.Bytes, 0, len(keys))
	for _, k := range keys {
		sig, err := crypto.Sign(digest.Bytes(), k)
		require.NoError(t, err)
		sig[64] += 27
		out = append(out, sig)
	}
	return out
}

// chainNode answers JSON-RPC methods with fixed results.
func chainNode(t *testing.T, results map[string]interface{}) *httptest.Server {
	t.Helper()
	node := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		result, ok := results[req.Method]
		if !ok {
			http.Error(w, "unsupported", http.StatusBadRequest)
			return
		}
		raw, _ := json.Marshal(result)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"result":` + string(raw) + `}`))
	}))
	t.Cleanup(node.Close)
	return node
}

func (a *api) post(t *testing.T, path string, key *ecdsa.PrivateKey, v interface{}) (int, handlers.APIResponse) {
	t.Helper()
	body, sig := signedBody(t, key, v, now.Add(time.Minute))
	return a.send(t, path, body, sig)
}

func (a *api) send(t *testing.T, path string, body []byte, sig string) (int, handlers.APIResponse) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, a.server.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if sig != "" {
		req.Header.Set(handlers.SignatureHeader, sig)
	}
	return a.do(t, req)
}

func (a *api) get(t *testing.T, path string) (int, handlers.APIResponse) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, a.server.URL+path, nil)
	require.NoError(t, err)
	return a.do(t, req)
}

func (a *api) do(t *testing.T, req *http.Request) (int, handlers.APIResponse) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out handlers.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func settlement(ref string, amount int64, calldata hexutil.Bytes) types.SettlementRequest {
	return types.SettlementRequest{
		SrcToken:      usdt,
		DstToken:      weth,
		To:            recipient,
		Amount:        big.NewInt(amount),
		FromChainID:   remoteChain,
		DstChainID:    localChain,
		ReferenceID:   common.HexToHash(ref),
		VenueCalldata: calldata,
	}
}
