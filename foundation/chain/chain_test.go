package chain_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/inclusion/foundation/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// node implements just enough of the Ethereum JSON-RPC surface to run the
// client against. Responses are driven by the fields on the struct.
type node struct {
	mu          sync.Mutex
	nonce       uint64
	hasReceipt  bool
	status      uint64
	blockNumber uint64
	rejectSends bool
	calls       map[string]int
}

func (n *node) count(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

func (n *node) handler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     json.RawMessage   `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	if n.calls == nil {
		n.calls = make(map[string]int)
	}
	n.calls[req.Method]++
	n.mu.Unlock()

	result := func(result string) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":%s}`, req.ID, result)
	}
	fail := func(code int, msg string) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"error":{"code":%d,"message":%q}}`, req.ID, code, msg)
	}

	switch req.Method {
	case "eth_chainId":
		result(`"0x385"`)

	case "eth_getTransactionCount":
		result(fmt.Sprintf(`"0x%x"`, n.nonce))

	case "eth_getBalance":
		result(`"0xde0b6b3a7640000"`)

	case "eth_sendRawTransaction":
		if n.rejectSends {
			fail(-32000, "insufficient funds for gas * price + value")
			return
		}
		result(`"0x` + strings.Repeat("0", 64) + `"`)

	case "eth_getTransactionReceipt":
		if !n.hasReceipt {
			result("null")
			return
		}
		result(fmt.Sprintf(`{
			"type": "0x0",
			"status": "0x%x",
			"cumulativeGasUsed": "0x5208",
			"logsBloom": "0x%s",
			"logs": [],
			"transactionHash": %s,
			"transactionIndex": "0x0",
			"blockHash": "0x%s",
			"blockNumber": "0x%x",
			"gasUsed": "0x5208",
			"effectiveGasPrice": "0x3b9aca00",
			"contractAddress": null
		}`, n.status, strings.Repeat("0", 512), req.Params[0], strings.Repeat("ab", 32), n.blockNumber))

	default:
		fail(-32601, "method not found")
	}
}

func Test_Receipt(t *testing.T) {
	n := node{nonce: 7, blockNumber: 42, status: types.ReceiptStatusSuccessful}
	srv := httptest.NewServer(http.HandlerFunc(n.handler))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clt, err := chain.New(ctx, srv.URL)
	if err != nil {
		t.Fatalf("Should be able to construct a client: %s", err)
	}
	defer clt.Close()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}
	txHash := common.BytesToHash(crypto.PubkeyToAddress(key.PublicKey).Bytes())

	if _, err := clt.Receipt(ctx, txHash); !errors.Is(err, chain.ErrNotFound) {
		t.Fatalf("Should get ErrNotFound while the transaction is pending: %v", err)
	}

	n.mu.Lock()
	n.hasReceipt = true
	n.mu.Unlock()

	receipt, err := clt.Receipt(ctx, txHash)
	if err != nil {
		t.Fatalf("Should be able to query the receipt once included: %s", err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		t.Errorf("Should see a successful receipt status: got %d", receipt.Status)
	}
	if receipt.BlockNumber.Uint64() != 42 {
		t.Errorf("Should see the block number the node reported: got %d, exp %d", receipt.BlockNumber.Uint64(), 42)
	}
	if got := n.count("eth_getTransactionReceipt"); got != 2 {
		t.Errorf("Should have issued two receipt queries: got %d", got)
	}
}

func Test_SendTransaction(t *testing.T) {
	n := node{}
	srv := httptest.NewServer(http.HandlerFunc(n.handler))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clt, err := chain.New(ctx, srv.URL)
	if err != nil {
		t.Fatalf("Should be able to construct a client: %s", err)
	}
	defer clt.Close()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	to := crypto.PubkeyToAddress(key.PublicKey)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    0,
		To:       &to,
		Value:    big.NewInt(1),
		Gas:      21_000,
		GasPrice: big.NewInt(1_000_000_000),
	})

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(big.NewInt(901)), key)
	if err != nil {
		t.Fatalf("Should be able to sign the transaction: %s", err)
	}

	if err := clt.SendTransaction(ctx, signedTx); err != nil {
		t.Fatalf("Should be able to submit a signed transaction: %s", err)
	}

	n.mu.Lock()
	n.rejectSends = true
	n.mu.Unlock()

	err = clt.SendTransaction(ctx, signedTx)
	if err == nil {
		t.Fatal("Should get an error when the node rejects the transaction")
	}
	if !strings.Contains(err.Error(), "insufficient funds") {
		t.Errorf("Should surface the node's rejection reason: got %q", err)
	}
}

func Test_NodeState(t *testing.T) {
	n := node{nonce: 19}
	srv := httptest.NewServer(http.HandlerFunc(n.handler))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clt, err := chain.New(ctx, srv.URL)
	if err != nil {
		t.Fatalf("Should be able to construct a client: %s", err)
	}
	defer clt.Close()

	if got := clt.URL(); got != srv.URL {
		t.Errorf("Should keep the endpoint URL: got %q, exp %q", got, srv.URL)
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}
	account := crypto.PubkeyToAddress(key.PublicKey)

	nonce, err := clt.PendingNonce(ctx, account)
	if err != nil {
		t.Fatalf("Should be able to query the pending nonce: %s", err)
	}
	if nonce != 19 {
		t.Errorf("Should see the nonce the node reported: got %d, exp %d", nonce, 19)
	}

	id, err := clt.ChainID(ctx)
	if err != nil {
		t.Fatalf("Should be able to query the chain id: %s", err)
	}
	if id.Uint64() != 901 {
		t.Errorf("Should see the chain id the node reported: got %d, exp %d", id.Uint64(), 901)
	}

	balance, err := clt.Balance(ctx, account)
	if err != nil {
		t.Fatalf("Should be able to query the balance: %s", err)
	}
	if balance.Cmp(big.NewInt(1_000_000_000_000_000_000)) != 0 {
		t.Errorf("Should see the balance the node reported: got %s", balance)
	}
}
