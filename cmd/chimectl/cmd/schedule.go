package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chimehook/chimehook/internal/alert"
	"github.com/chimehook/chimehook/internal/scheduler"
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule [entity-id] [run-id]",
	Short: "Schedule a chat alert for a wall-clock time",
	Long: `Store a chat alert to be delivered at the next occurrence of the
given wall-clock time: today if it has not passed yet, tomorrow
otherwise.

Example:
  chimectl schedule billing 2026-08-27T06:00:00+00:00 --at 18:30 --text "daily digest"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		at, _ := cmd.Flags().GetString("at")
		fireAt, err := alert.ParseTimeOfDay(at)
		if err != nil {
			return err
		}

		req, err := buildRequest(cmd, args)
		if err != nil {
			return err
		}
		req.FireAt = &fireAt

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		st, cleanup, err := getStore(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		log := cliLogger()
		sched := scheduler.New(getConnections(), st, getDeliverClient(log), log)

		out, err := sched.Schedule(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to schedule alert: %w", err)
		}

		if outputJSON {
			printOutput(map[string]string{
				"derived_run_id": req.DerivedRunID,
				"fire_at":        out.FireAt.Format(time.RFC3339),
			})
		} else {
			fmt.Printf("Alert scheduled: %s\n", req.DerivedRunID)
			fmt.Printf("  Fires at: %s\n", out.FireAt.Format(time.RFC3339))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().String("at", "", "wall-clock fire time, HH:MM or HH:MM:SS (required)")
	scheduleCmd.Flags().String("payload", "", "raw message payload JSON")
	scheduleCmd.Flags().String("text", "", "plain text message body")
	_ = scheduleCmd.MarkFlagRequired("at")
}
