package probe

import "errors"

// The set of errors a verification run can fail with. Each stage of the
// workflow wraps its own sentinel so callers can tell the stages apart
// with errors.Is.
var (
	// ErrNonceFetch indicates the nonce source endpoint could not report
	// the sender's next nonce. Nothing was submitted.
	ErrNonceFetch = errors.New("nonce fetch failed")

	// ErrSigning indicates the transfer could not be signed. Nothing was
	// submitted.
	ErrSigning = errors.New("transaction signing failed")

	// ErrSubmission indicates the ingress endpoint rejected the signed
	// transaction. No receipt polling took place.
	ErrSubmission = errors.New("transaction submission failed")

	// ErrReceiptQuery indicates an endpoint failed to answer a receipt
	// query. This is a transport or node failure, not a pending inclusion.
	ErrReceiptQuery = errors.New("receipt query failed")

	// ErrInclusionTimeout indicates an endpoint did not report the
	// transaction before the run deadline expired.
	ErrInclusionTimeout = errors.New("inclusion not observed before timeout")
)
