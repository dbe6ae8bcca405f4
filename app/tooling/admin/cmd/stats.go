package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

type chainStats struct {
	TotalBlocks       uint64 `json:"total_blocks"`
	TotalTransactions uint64 `json:"total_transactions"`
	PendingCount      int    `json:"pending_count"`
	Difficulty        uint   `json:"difficulty"`
	Head              struct {
		Number    uint64 `json:"number"`
		Hash      string `json:"hash"`
		TimeStamp uint64 `json:"timestamp"`
	} `json:"head"`
	MiningInProgress bool     `json:"mining_in_progress"`
	AuditFlagged     []uint64 `json:"audit_flagged,omitempty"`
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the chain statistics.",
	Run:   statsRun,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func statsRun(cmd *cobra.Command, args []string) {
	resp, err := http.Get(fmt.Sprintf("%s/v1/stats", url))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	var stats chainStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		log.Fatal(err)
	}

	fmt.Println("blocks:      ", stats.TotalBlocks)
	fmt.Println("transactions:", stats.TotalTransactions)
	fmt.Println("pending:     ", stats.PendingCount)
	fmt.Println("difficulty:  ", stats.Difficulty)
	fmt.Println("head:        ", stats.Head.Number, stats.Head.Hash)
	fmt.Println("mining:      ", stats.MiningInProgress)

	if len(stats.AuditFlagged) > 0 {
		fmt.Println("AUDIT FLAGGED BLOCKS:", stats.AuditFlagged)
	}
}
