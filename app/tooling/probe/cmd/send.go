package cmd

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/ardanlabs/inclusion/business/core/probe"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	ingressURL   string
	builderURL   string
	sequencerURL string
	nonceSource  string
	chainID      uint64
	to           string
	value        string
	gasPriceGwei int64
	gasLimit     uint64
	pollInterval time.Duration
	timeout      time.Duration
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Submit a transfer and verify its inclusion",
	Run:   sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&ingressURL, "url", "u", "http://localhost:2222", "Url of the ingress endpoint.")
	sendCmd.Flags().StringVarP(&builderURL, "builder", "b", "http://localhost:2222", "Url of the builder endpoint.")
	sendCmd.Flags().StringVarP(&sequencerURL, "sequencer", "s", "http://localhost:9545", "Url of the sequencer endpoint.")
	sendCmd.Flags().StringVar(&nonceSource, "nonce-source", "sequencer", "Endpoint to fetch the nonce from, builder or sequencer.")
	sendCmd.Flags().Uint64VarP(&chainID, "chain-id", "c", 901, "Chain id the endpoints must report.")
	sendCmd.Flags().StringVarP(&to, "to", "t", common.Address{}.String(), "Recipient of the transfer.")
	sendCmd.Flags().StringVarP(&value, "value", "v", "0.01", "Value to send in ether.")
	sendCmd.Flags().Int64Var(&gasPriceGwei, "gas-price", 1, "Gas price in gwei.")
	sendCmd.Flags().Uint64Var(&gasLimit, "gas-limit", 21_000, "Gas limit for the transfer.")
	sendCmd.Flags().DurationVar(&pollInterval, "interval", 250*time.Millisecond, "Delay between receipt lookups.")
	sendCmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Deadline for both endpoints to report the receipt.")
}

func sendRun(cmd *cobra.Command, args []string) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	if !common.IsHexAddress(to) {
		log.Fatalf("invalid recipient address %q", to)
	}

	amount, err := probe.ParseEther(value)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	p, err := newProbe(ctx, privateKey)
	if err != nil {
		log.Fatal(err)
	}
	defer p.Close()

	out, err := p.RunTransfer(ctx, amount, common.HexToAddress(to))
	if err != nil {
		log.Fatal(err)
	}

	if out.Verdict != probe.VerdictConsistent {
		os.Exit(1)
	}
}
