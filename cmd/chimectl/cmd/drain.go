package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chimehook/chimehook/internal/drain"
)

// drainCmd represents the drain command
var drainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Run one drain cycle now",
	Long: `Claim every alert that is due right now and deliver each one,
earliest first. Useful for testing and for clearing a backlog without
waiting on the drainer service.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		st, cleanup, err := getStore(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		log := cliLogger()
		d := drain.New(st, getConnections(), getDeliverClient(log), nil, log)

		outcomes, err := d.DrainDue(ctx, time.Now())
		if err != nil {
			fmt.Printf("Some alerts failed: %v\n", err)
		}

		if outputJSON {
			printOutput(outcomes)
			return nil
		}
		delivered := 0
		for _, out := range outcomes {
			if out.Success() {
				delivered++
			}
		}
		fmt.Printf("Drained %d alerts, %d delivered\n", len(outcomes), delivered)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(drainCmd)
}
