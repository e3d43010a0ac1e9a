// Package chain provides JSON-RPC access to an Ethereum compatible endpoint
// for the small set of calls the inclusion workflow depends on.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ErrNotFound is returned when the endpoint has no record of the requested
// item yet. For receipts this means the transaction is not included.
var ErrNotFound = errors.New("not found")

// Client represents a connection to a single JSON-RPC endpoint.
type Client struct {
	url       string
	ethClient *ethclient.Client
}

// New constructs a client for the specified endpoint URL.
func New(ctx context.Context, url string) (*Client, error) {
	ethClient, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial endpoint %q: %w", url, err)
	}

	clt := Client{
		url:       url,
		ethClient: ethClient,
	}

	return &clt, nil
}

// Close releases the underlying RPC connection.
func (clt *Client) Close() {
	clt.ethClient.Close()
}

// URL returns the endpoint URL this client was constructed with.
func (clt *Client) URL() string {
	return clt.url
}

// PendingNonce returns the nonce the endpoint expects next for the specified
// account, taking transactions still in the pending state into account.
func (clt *Client) PendingNonce(ctx context.Context, account common.Address) (uint64, error) {
	nonce, err := clt.ethClient.PendingNonceAt(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("pending nonce: %w", err)
	}

	return nonce, nil
}

// SendTransaction submits the signed transaction to the endpoint. The
// endpoint validates the raw transaction and queues it for inclusion.
func (clt *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := clt.ethClient.SendTransaction(ctx, tx); err != nil {
		return fmt.Errorf("send transaction: %w", err)
	}

	return nil
}

// Receipt returns the endpoint's receipt for the specified transaction hash.
// ErrNotFound is returned for as long as the endpoint has not included the
// transaction in a block.
func (clt *Client) Receipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	receipt, err := clt.ethClient.TransactionReceipt(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("transaction receipt: %w", err)
	}

	return receipt, nil
}

// ChainID returns the chain id the endpoint reports. Useful as a cheap
// connectivity and configuration check.
func (clt *Client) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := clt.ethClient.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}

	return id, nil
}

// Balance returns the latest confirmed balance for the specified account.
func (clt *Client) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := clt.ethClient.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}

	return balance, nil
}
