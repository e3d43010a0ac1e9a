package cmd

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/ardanlabs/inclusion/business/core/probe"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

// receiptCmd represents the receipt command
var receiptCmd = &cobra.Command{
	Use:   "receipt <hash>",
	Short: "Re-check receipts for a submitted transaction",
	Args:  cobra.ExactArgs(1),
	Run:   receiptRun,
}

func init() {
	rootCmd.AddCommand(receiptCmd)
	receiptCmd.Flags().StringVarP(&ingressURL, "url", "u", "http://localhost:2222", "Url of the ingress endpoint.")
	receiptCmd.Flags().StringVarP(&builderURL, "builder", "b", "http://localhost:2222", "Url of the builder endpoint.")
	receiptCmd.Flags().StringVarP(&sequencerURL, "sequencer", "s", "http://localhost:9545", "Url of the sequencer endpoint.")
	receiptCmd.Flags().Uint64VarP(&chainID, "chain-id", "c", 901, "Chain id the endpoints must report.")
	receiptCmd.Flags().DurationVar(&pollInterval, "interval", 250*time.Millisecond, "Delay between receipt lookups.")
	receiptCmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Deadline for both endpoints to report the receipt.")
}

func receiptRun(cmd *cobra.Command, args []string) {
	hash, err := hexutil.Decode(args[0])
	if err != nil || len(hash) != common.HashLength {
		log.Fatalf("invalid transaction hash %q", args[0])
	}

	ctx := context.Background()

	p, err := newProbe(ctx, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer p.Close()

	out, err := p.Recheck(ctx, common.BytesToHash(hash))
	if err != nil {
		log.Fatal(err)
	}

	if out.Verdict != probe.VerdictConsistent {
		os.Exit(1)
	}
}
