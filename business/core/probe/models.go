package probe

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// The roles an endpoint can play in the verification workflow.
const (
	EndpointBuilder   = "builder"
	EndpointSequencer = "sequencer"
)

// Verdict represents the terminal result of a verification run.
type Verdict string

// The set of verdicts a run can resolve to.
const (
	VerdictConsistent Verdict = "consistent"
	VerdictDivergent  Verdict = "divergent"
	VerdictIncomplete Verdict = "incomplete"
)

// Submission represents the acceptance of a signed transaction by the
// ingress endpoint.
type Submission struct {
	Hash        common.Hash
	Nonce       uint64
	SubmittedAt time.Time
}

// Receipt represents a single endpoint's view of the transaction after
// submission. Latency is measured from the time of submission.
type Receipt struct {
	Endpoint    string
	Found       bool
	Success     bool
	BlockNumber uint64
	BlockHash   common.Hash
	Latency     time.Duration
	ObservedAt  time.Time
}

// Outcome captures everything observed during a single verification run.
type Outcome struct {
	Hash        common.Hash
	Nonce       uint64
	Sender      common.Address
	Recipient   common.Address
	Value       *big.Int
	SubmittedAt time.Time
	Builder     Receipt
	Sequencer   Receipt
	Verdict     Verdict
}

// Verify compares the builder and sequencer views of the transaction and
// renders the verdict. A verdict on the status fields is only possible once
// both endpoints have reported a receipt.
func Verify(builder Receipt, sequencer Receipt) Verdict {
	switch {
	case !builder.Found || !sequencer.Found:
		return VerdictIncomplete

	case builder.Success == sequencer.Success:
		return VerdictConsistent

	default:
		return VerdictDivergent
	}
}
