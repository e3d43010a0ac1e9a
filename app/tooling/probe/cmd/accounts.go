package cmd

import (
	"fmt"
	"log"

	"github.com/ardanlabs/inclusion/foundation/keystore"
	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List the known keys and their addresses",
	Run:   accountsRun,
}

func init() {
	rootCmd.AddCommand(accountsCmd)
}

func accountsRun(cmd *cobra.Command, args []string) {
	ks, err := keystore.New(accountPath)
	if err != nil {
		log.Fatal(err)
	}

	for _, name := range ks.Names() {
		account, err := ks.Account(name)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Printf("%s\t%s\n", name, account)
	}
}
