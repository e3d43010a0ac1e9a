package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/ardanlabs/inclusion/business/core/probe"
	"github.com/ardanlabs/inclusion/foundation/chain"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print the sender balance as the sequencer sees it",
	Run:   balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVarP(&sequencerURL, "sequencer", "s", "http://localhost:9545", "Url of the sequencer endpoint.")
}

func balanceRun(cmd *cobra.Command, args []string) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	account := crypto.PubkeyToAddress(privateKey.PublicKey)
	fmt.Println("For Account:", account)

	ctx := context.Background()

	clt, err := chain.New(ctx, sequencerURL)
	if err != nil {
		log.Fatal(err)
	}
	defer clt.Close()

	balance, err := clt.Balance(ctx, account)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(probe.FormatEther(balance), "ETH")
}
