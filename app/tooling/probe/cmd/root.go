// Package cmd contains the probe command line tool.
package cmd

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ardanlabs/inclusion/business/core/probe"
	"github.com/spf13/cobra"
)

var (
	accountName string
	accountPath string
)

const (
	keyExtension = ".ecdsa"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "probe",
	Short: "Verify transaction inclusion across a builder and sequencer pair",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "probe", "Name of the private key to sign with.")
	rootCmd.PersistentFlags().StringVarP(&accountPath, "account-path", "p", "zblock/keys/", "Path to the directory with private keys.")
}

func getPrivateKeyPath() string {
	if !strings.HasSuffix(accountName, keyExtension) {
		accountName += keyExtension
	}

	return filepath.Join(accountPath, accountName)
}

// newProbe constructs a probe from the endpoint flags. A nil sender is fine
// for commands that only read receipts.
func newProbe(ctx context.Context, sender *ecdsa.PrivateKey) (*probe.Probe, error) {
	cfg := probe.Config{
		IngressURL:   ingressURL,
		BuilderURL:   builderURL,
		SequencerURL: sequencerURL,
		NonceSource:  nonceSource,
		ChainID:      chainID,
		Sender:       sender,
		GasPrice:     probe.GweiToWei(gasPriceGwei),
		GasLimit:     gasLimit,
		PollInterval: pollInterval,
		Timeout:      timeout,
		EvHandler: func(v string, args ...any) {
			fmt.Printf(v+"\n", args...)
		},
	}

	return probe.New(ctx, cfg)
}
