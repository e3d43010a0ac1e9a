// Package probe implements the transaction inclusion verification workflow.
// A probe signs a transfer with a freshly fetched nonce, submits it through
// the ingress endpoint, then polls the builder and sequencer in parallel
// until both report the transaction or the run deadline expires. The two
// receipts are compared to render a verdict.
package probe

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ardanlabs/inclusion/foundation/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Defaults applied when the configuration leaves these settings unset.
const (
	defaultPollInterval = 250 * time.Millisecond
	defaultTimeout      = 5 * time.Second
	defaultGasLimit     = 21_000
)

// =============================================================================

// EventHandler defines a function that is called when significant events
// occur in the processing of a verification run.
type EventHandler func(v string, args ...any)

// Config represents the configuration required to construct a Probe.
type Config struct {
	IngressURL   string
	BuilderURL   string
	SequencerURL string
	NonceSource  string
	ChainID      uint64
	Sender       *ecdsa.PrivateKey
	Recipient    common.Address
	Value        *big.Int
	GasPrice     *big.Int
	GasLimit     uint64
	PollInterval time.Duration
	Timeout      time.Duration
	EvHandler    EventHandler
}

// Endpoint pairs a chain client with the role the endpoint plays in the
// verification workflow.
type Endpoint struct {
	Name   string
	client *chain.Client
}

// Probe manages the full submit and verify workflow against a configured
// builder and sequencer pair. A probe is safe for concurrent use, but
// concurrent runs race for the sender's nonce. Serialize runs when the
// probe signs with a single key.
type Probe struct {
	cfg       Config
	sender    common.Address
	signer    types.Signer
	ingress   *chain.Client
	builder   Endpoint
	sequencer Endpoint
	nonceSrc  Endpoint
	evHandler EventHandler
}

// New constructs a Probe ready to execute verification runs. The ingress,
// builder and sequencer endpoints are dialed up front so a bad URL fails
// fast. A probe constructed without a sender key can only recheck existing
// transactions.
func New(ctx context.Context, cfg Config) (*Probe, error) {
	if cfg.IngressURL == "" || cfg.BuilderURL == "" || cfg.SequencerURL == "" {
		return nil, errors.New("ingress, builder and sequencer URLs are required")
	}
	if cfg.ChainID == 0 {
		return nil, errors.New("chain id is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.GasLimit == 0 {
		cfg.GasLimit = defaultGasLimit
	}
	if cfg.Value == nil {
		cfg.Value = big.NewInt(0)
	}
	if cfg.GasPrice == nil {
		cfg.GasPrice = GweiToWei(1)
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	ingress, err := chain.New(ctx, cfg.IngressURL)
	if err != nil {
		return nil, fmt.Errorf("dial ingress: %w", err)
	}

	builder, err := chain.New(ctx, cfg.BuilderURL)
	if err != nil {
		ingress.Close()
		return nil, fmt.Errorf("dial builder: %w", err)
	}

	sequencer, err := chain.New(ctx, cfg.SequencerURL)
	if err != nil {
		ingress.Close()
		builder.Close()
		return nil, fmt.Errorf("dial sequencer: %w", err)
	}

	p := Probe{
		cfg:       cfg,
		signer:    types.NewEIP155Signer(new(big.Int).SetUint64(cfg.ChainID)),
		ingress:   ingress,
		builder:   Endpoint{Name: EndpointBuilder, client: builder},
		sequencer: Endpoint{Name: EndpointSequencer, client: sequencer},
		evHandler: ev,
	}

	if cfg.Sender != nil {
		p.sender = crypto.PubkeyToAddress(cfg.Sender.PublicKey)
	}

	// The nonce must come from the endpoint that sequences the sender's
	// transactions or a resubmission will collide with a pending one.
	switch cfg.NonceSource {
	case "", EndpointSequencer:
		p.nonceSrc = p.sequencer
	case EndpointBuilder:
		p.nonceSrc = p.builder
	default:
		p.Close()
		return nil, fmt.Errorf("unknown nonce source %q", cfg.NonceSource)
	}

	return &p, nil
}

// Close releases the endpoint connections.
func (p *Probe) Close() {
	p.ingress.Close()
	p.builder.client.Close()
	p.sequencer.client.Close()
}

// Sender returns the account the probe signs with.
func (p *Probe) Sender() common.Address {
	return p.sender
}

// Builder returns the builder endpoint for direct receipt polling.
func (p *Probe) Builder() Endpoint {
	return p.builder
}

// Sequencer returns the sequencer endpoint for direct receipt polling.
func (p *Probe) Sequencer() Endpoint {
	return p.sequencer
}

// Ping queries the chain id from the builder and sequencer endpoints and
// checks both against the configured chain id. Useful as a readiness check.
func (p *Probe) Ping(ctx context.Context) error {
	for _, ep := range []Endpoint{p.builder, p.sequencer} {
		id, err := ep.client.ChainID(ctx)
		if err != nil {
			return fmt.Errorf("endpoint %s: %w", ep.Name, err)
		}
		if id.Uint64() != p.cfg.ChainID {
			return fmt.Errorf("endpoint %s: chain id mismatch: got %d, exp %d", ep.Name, id.Uint64(), p.cfg.ChainID)
		}
	}

	return nil
}

// =============================================================================

// BuildTransaction constructs and signs a transfer using the configured
// value and recipient. The nonce is fetched fresh from the nonce source on
// every call, so two calls against the same chain state produce byte
// identical transactions.
func (p *Probe) BuildTransaction(ctx context.Context) (*types.Transaction, error) {
	return p.buildTransfer(ctx, p.cfg.Value, p.cfg.Recipient)
}

// Submit sends the signed transaction to the ingress endpoint and reports
// the canonical hash the network will track the transaction by. A submission
// error means nothing entered the network under this nonce.
func (p *Probe) Submit(ctx context.Context, tx *types.Transaction) (Submission, error) {
	if err := p.ingress.SendTransaction(ctx, tx); err != nil {
		return Submission{}, fmt.Errorf("%w: ingress[%s]: %w", ErrSubmission, p.ingress.URL(), err)
	}

	sub := Submission{
		Hash:        tx.Hash(),
		Nonce:       tx.Nonce(),
		SubmittedAt: time.Now().UTC(),
	}

	p.evHandler("probe: submit: tx[%s] nonce[%d] ingress[%s]", sub.Hash, sub.Nonce, p.ingress.URL())

	return sub, nil
}

// AwaitReceipt polls the endpoint for the transaction receipt until the
// receipt is found, the query fails, or the context expires. The first
// lookup happens immediately, then once per poll interval. An endpoint
// that simply does not know the transaction yet is not an error.
func (p *Probe) AwaitReceipt(ctx context.Context, ep Endpoint, sub Submission) (Receipt, error) {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		// A pending tick and the deadline can fire together. Never start
		// another lookup once the context is done.
		if ctx.Err() != nil {
			return p.pollAborted(ctx, ep, sub)
		}

		receipt, err := ep.client.Receipt(ctx, sub.Hash)

		switch {
		case err == nil:
			rcpt := Receipt{
				Endpoint:   ep.Name,
				Found:      true,
				Success:    receipt.Status == types.ReceiptStatusSuccessful,
				BlockHash:  receipt.BlockHash,
				ObservedAt: time.Now().UTC(),
			}
			if receipt.BlockNumber != nil {
				rcpt.BlockNumber = receipt.BlockNumber.Uint64()
			}
			rcpt.Latency = rcpt.ObservedAt.Sub(sub.SubmittedAt)

			p.evHandler("probe: receipt: endpoint[%s] tx[%s] block[%d] status[0x%x] latency[%s]",
				ep.Name, sub.Hash, rcpt.BlockNumber, receipt.Status, rcpt.Latency)

			return rcpt, nil

		case errors.Is(err, chain.ErrNotFound):
			// The transaction is not included yet. Keep polling.

		case ctx.Err() != nil:
			// The context fired while the query was in flight.
			return p.pollAborted(ctx, ep, sub)

		default:
			return Receipt{Endpoint: ep.Name}, fmt.Errorf("%w: endpoint[%s] tx[%s]: %w", ErrReceiptQuery, ep.Name, sub.Hash, err)
		}

		select {
		case <-ctx.Done():
			return p.pollAborted(ctx, ep, sub)
		case <-ticker.C:
		}
	}
}

// Run executes the full verification workflow end to end using the
// configured transfer value and recipient.
func (p *Probe) Run(ctx context.Context) (Outcome, error) {
	return p.RunTransfer(ctx, p.cfg.Value, p.cfg.Recipient)
}

// RunTransfer executes the full verification workflow end to end for the
// specified transfer value and recipient. The returned outcome carries
// whatever was observed, even when the run fails part way through.
func (p *Probe) RunTransfer(ctx context.Context, value *big.Int, recipient common.Address) (Outcome, error) {
	tx, err := p.buildTransfer(ctx, value, recipient)
	if err != nil {
		return Outcome{Sender: p.sender, Recipient: recipient, Value: value, Verdict: VerdictIncomplete}, err
	}

	sub, err := p.Submit(ctx, tx)
	if err != nil {
		return Outcome{Sender: p.sender, Recipient: recipient, Value: value, Verdict: VerdictIncomplete}, err
	}

	return p.awaitVerdict(ctx, sub, value, recipient)
}

// Recheck looks for receipts of an already submitted transaction on both
// endpoints and renders a verdict without submitting anything new. Latency
// numbers are measured from the start of the recheck.
func (p *Probe) Recheck(ctx context.Context, txHash common.Hash) (Outcome, error) {
	sub := Submission{
		Hash:        txHash,
		SubmittedAt: time.Now().UTC(),
	}

	p.evHandler("probe: recheck: tx[%s]", txHash)

	return p.awaitVerdict(ctx, sub, nil, common.Address{})
}

// =============================================================================

// buildTransfer constructs and signs a legacy transfer for the specified
// value and recipient with a nonce fetched fresh from the nonce source.
func (p *Probe) buildTransfer(ctx context.Context, value *big.Int, recipient common.Address) (*types.Transaction, error) {
	if p.cfg.Sender == nil {
		return nil, fmt.Errorf("%w: no sender key configured", ErrSigning)
	}

	nonce, err := p.nonceSrc.client.PendingNonce(ctx, p.sender)
	if err != nil {
		return nil, fmt.Errorf("%w: source[%s] account[%s]: %w", ErrNonceFetch, p.nonceSrc.Name, p.sender, err)
	}

	p.evHandler("probe: build: sender[%s] nonce[%d] value[%s] recipient[%s]",
		p.sender, nonce, FormatEther(value), recipient)

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &recipient,
		Value:    value,
		Gas:      p.cfg.GasLimit,
		GasPrice: p.cfg.GasPrice,
	})

	signedTx, err := types.SignTx(tx, p.signer, p.cfg.Sender)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigning, err)
	}

	return signedTx, nil
}

// awaitVerdict polls both endpoints in parallel under a single deadline and
// renders the verdict from the two receipts.
func (p *Probe) awaitVerdict(ctx context.Context, sub Submission, value *big.Int, recipient common.Address) (Outcome, error) {
	outcome := Outcome{
		Hash:        sub.Hash,
		Nonce:       sub.Nonce,
		Sender:      p.sender,
		Recipient:   recipient,
		Value:       value,
		SubmittedAt: sub.SubmittedAt,
		Verdict:     VerdictIncomplete,
	}

	// Both polls share a single deadline. When it fires, any poll still
	// in flight is cancelled.
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	type pollResult struct {
		receipt Receipt
		err     error
	}
	results := make(chan pollResult, 2)

	for _, ep := range []Endpoint{p.builder, p.sequencer} {
		go func(ep Endpoint) {
			receipt, err := p.AwaitReceipt(ctx, ep, sub)
			results <- pollResult{receipt: receipt, err: err}
		}(ep)
	}

	var pollErr error
	for i := 0; i < 2; i++ {
		res := <-results

		switch res.receipt.Endpoint {
		case EndpointBuilder:
			outcome.Builder = res.receipt
		case EndpointSequencer:
			outcome.Sequencer = res.receipt
		}

		// A timeout folds into the verdict. Anything else is terminal for
		// the run, so cancel the peer poll instead of letting it run out
		// the deadline.
		if res.err != nil && !errors.Is(res.err, ErrInclusionTimeout) {
			if pollErr == nil {
				pollErr = res.err
			}
			cancel()
		}
	}

	if pollErr != nil {
		return outcome, pollErr
	}

	outcome.Verdict = Verify(outcome.Builder, outcome.Sequencer)

	p.evHandler("probe: verdict: %s: tx[%s] builder[found:%t success:%t] sequencer[found:%t success:%t]",
		strings.ToUpper(string(outcome.Verdict)), sub.Hash,
		outcome.Builder.Found, outcome.Builder.Success,
		outcome.Sequencer.Found, outcome.Sequencer.Success)

	return outcome, nil
}

// pollAborted renders the right termination for a poll that ended on a
// context signal instead of a receipt.
func (p *Probe) pollAborted(ctx context.Context, ep Endpoint, sub Submission) (Receipt, error) {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		p.evHandler("probe: timeout: endpoint[%s] tx[%s]", ep.Name, sub.Hash)
		return Receipt{Endpoint: ep.Name}, fmt.Errorf("%w: endpoint[%s] tx[%s]", ErrInclusionTimeout, ep.Name, sub.Hash)
	}

	return Receipt{Endpoint: ep.Name}, fmt.Errorf("endpoint[%s] tx[%s]: %w", ep.Name, sub.Hash, ctx.Err())
}
