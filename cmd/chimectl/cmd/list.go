package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chimehook/chimehook/internal/alert"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled alerts",
	Long:  `List every alert waiting in the durable store, earliest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		st, cleanup, err := getStore(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		entries, err := st.Entries(ctx)
		if err != nil {
			return fmt.Errorf("failed to list scheduled alerts: %w", err)
		}

		if outputJSON {
			type row struct {
				DerivedRunID string `json:"derived_run_id"`
				ConnectionID string `json:"connection_id"`
				FireAt       string `json:"fire_at"`
			}
			rows := make([]row, 0, len(entries))
			for _, e := range entries {
				req, err := alert.ParseMember([]byte(e.Member))
				if err != nil {
					continue
				}
				rows = append(rows, row{
					DerivedRunID: req.DerivedRunID,
					ConnectionID: req.ConnectionID,
					FireAt:       time.Unix(int64(e.Score), 0).UTC().Format(time.RFC3339),
				})
			}
			printOutput(rows)
			return nil
		}

		if len(entries) == 0 {
			fmt.Println("No scheduled alerts.")
			return nil
		}
		fmt.Printf("%-32s %-24s %s\n", "RUN", "CONNECTION", "FIRES AT")
		for _, e := range entries {
			req, err := alert.ParseMember([]byte(e.Member))
			if err != nil {
				fmt.Printf("%-32s %-24s (corrupt member)\n", "?", "?")
				continue
			}
			fmt.Printf("%-32s %-24s %s\n",
				req.DerivedRunID,
				req.ConnectionID,
				time.Unix(int64(e.Score), 0).Local().Format(time.RFC3339),
			)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
