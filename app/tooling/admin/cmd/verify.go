package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	verifyFrom uint64
	verifyTo   uint64
)

type blockCheck struct {
	Number uint64 `json:"number"`
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Validate a range of blocks, chain links included.",
	Run:   verifyRun,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().Uint64Var(&verifyFrom, "from", 0, "First block number to validate.")
	verifyCmd.Flags().Uint64Var(&verifyTo, "to", 0, "Last block number to validate.")
}

func verifyRun(cmd *cobra.Command, args []string) {
	invalid := 0

	for number := verifyFrom; number <= verifyTo; number++ {
		resp, err := http.Get(fmt.Sprintf("%s/v1/blocks/%d/validate", url, number))
		if err != nil {
			log.Fatal(err)
		}

		var check blockCheck
		err = json.NewDecoder(resp.Body).Decode(&check)
		resp.Body.Close()
		if err != nil {
			log.Fatal(err)
		}

		if !check.Valid {
			invalid++
			fmt.Printf("block %d: INVALID: %s\n", check.Number, check.Reason)
			continue
		}

		fmt.Printf("block %d: ok\n", check.Number)
	}

	if invalid > 0 {
		log.Fatalf("%d invalid blocks in range [%d, %d]", invalid, verifyFrom, verifyTo)
	}
}
