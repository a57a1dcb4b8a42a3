package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/creativeflow/creative-int/internal/inventory"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show inventory and upload state",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, paths, err := loadWorkspace()
			if err != nil {
				return err
			}

			ledger := inventory.NewLedger(paths)
			records, err := ledger.LoadMaster()
			if err != nil {
				return err
			}

			pending, err := ledger.LoadPending()
			if err != nil {
				return err
			}

			byType := map[string]int{}
			uploaded := 0
			needsReview := 0
			for _, r := range records {
				byType[r.CreativeType]++
				if r.CreativeID != "" {
					uploaded++
				}
				if r.Notes == "NEEDS MANUAL REVIEW" {
					needsReview++
				}
			}

			fmt.Printf("Inventory: %d creative(s) tracked\n", len(records))
			types := make([]string, 0, len(byType))
			for t := range byType {
				types = append(types, t)
			}
			sort.Strings(types)
			for _, t := range types {
				fmt.Printf("  %-14s %d\n", t, byType[t])
			}
			fmt.Printf("Uploaded:  %d with a confirmed creative ID\n", uploaded)
			fmt.Printf("Pending:   %d queued from the last process run\n", len(pending))
			if needsReview > 0 {
				fmt.Printf("Review:    %d file(s) marked NEEDS MANUAL REVIEW\n", needsReview)
			}
			return nil
		},
	}
}
