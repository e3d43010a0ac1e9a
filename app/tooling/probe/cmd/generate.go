package cmd

import (
	"fmt"
	"log"
	"strings"

	"github.com/ardanlabs/inclusion/foundation/keystore"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new key pair",
	Run:   generateRun,
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func generateRun(cmd *cobra.Command, args []string) {
	ks, err := keystore.New(accountPath)
	if err != nil {
		log.Fatal(err)
	}

	account, err := ks.Create(strings.TrimSuffix(accountName, keyExtension))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(account)
}
