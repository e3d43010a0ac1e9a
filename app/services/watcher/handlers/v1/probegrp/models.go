package probegrp

import (
	"time"

	"github.com/ardanlabs/inclusion/business/core/probe"
)

// NewRun is what a client can provide to override the configured transfer
// for a single triggered run. Every field is optional.
type NewRun struct {
	Value string `json:"value" validate:"omitempty,numeric"`
	To    string `json:"to" validate:"omitempty,eth_addr"`
}

type receipt struct {
	Endpoint    string `json:"endpoint"`
	Found       bool   `json:"found"`
	Success     bool   `json:"success"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	BlockHash   string `json:"block_hash,omitempty"`
	Latency     string `json:"latency,omitempty"`
	ObservedAt  string `json:"observed_at,omitempty"`
}

type outcome struct {
	Tx          string  `json:"tx"`
	Nonce       uint64  `json:"nonce"`
	Sender      string  `json:"sender"`
	Recipient   string  `json:"recipient"`
	Value       string  `json:"value"`
	SubmittedAt string  `json:"submitted_at,omitempty"`
	Builder     receipt `json:"builder"`
	Sequencer   receipt `json:"sequencer"`
	Verdict     string  `json:"verdict"`
}

type runResult struct {
	Outcome outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`
}

type counts struct {
	Runs       int `json:"runs"`
	Consistent int `json:"consistent"`
	Divergent  int `json:"divergent"`
	Incomplete int `json:"incomplete"`
	Failed     int `json:"failed"`
}

type status struct {
	Sender  string      `json:"sender"`
	LastRun string      `json:"last_run,omitempty"`
	Counts  counts      `json:"counts"`
	History []runResult `json:"history"`
}

func toReceipt(rcpt probe.Receipt) receipt {
	r := receipt{
		Endpoint:    rcpt.Endpoint,
		Found:       rcpt.Found,
		Success:     rcpt.Success,
		BlockNumber: rcpt.BlockNumber,
	}

	if rcpt.Found {
		r.BlockHash = rcpt.BlockHash.String()
		r.Latency = rcpt.Latency.String()
		r.ObservedAt = rcpt.ObservedAt.Format(time.RFC3339Nano)
	}

	return r
}

func toOutcome(oc probe.Outcome) outcome {
	o := outcome{
		Tx:        oc.Hash.String(),
		Nonce:     oc.Nonce,
		Sender:    oc.Sender.String(),
		Recipient: oc.Recipient.String(),
		Value:     probe.FormatEther(oc.Value),
		Builder:   toReceipt(oc.Builder),
		Sequencer: toReceipt(oc.Sequencer),
		Verdict:   string(oc.Verdict),
	}

	if !oc.SubmittedAt.IsZero() {
		o.SubmittedAt = oc.SubmittedAt.Format(time.RFC3339Nano)
	}

	return o
}

func toRunResult(result probe.RunResult) runResult {
	return runResult{
		Outcome: toOutcome(result.Outcome),
		Error:   result.Error,
	}
}

func toStatus(st probe.Status) status {
	history := make([]runResult, len(st.History))
	for i, result := range st.History {
		history[i] = toRunResult(result)
	}

	s := status{
		Sender:  st.Sender.String(),
		Counts:  counts(st.Counts),
		History: history,
	}

	if !st.LastRun.IsZero() {
		s.LastRun = st.LastRun.Format(time.RFC3339Nano)
	}

	return s
}
