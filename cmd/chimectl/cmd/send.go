package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chimehook/chimehook/internal/alert"
	"github.com/chimehook/chimehook/internal/card"
	"github.com/chimehook/chimehook/internal/scheduler"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [entity-id] [run-id]",
	Short: "Send a chat alert immediately",
	Long: `Send a chat alert right now through the resolved webhook.

The message body comes from --payload (a raw cardsV2 JSON document) or
--text (a plain text message).

Example:
  chimectl send billing 2026-08-27T06:00:00+00:00 --text "backfill done" --webhook-url https://chat.googleapis.com/v1/spaces/X/messages?key=k`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := buildRequest(cmd, args)
		if err != nil {
			return err
		}

		log := cliLogger()
		sched := scheduler.New(getConnections(), nil, getDeliverClient(log), log)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		out, err := sched.Schedule(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to send alert: %w", err)
		}

		if outputJSON {
			printOutput(out.Delivery)
		} else if out.Delivery.Success() {
			fmt.Printf("Alert delivered: %s\n", req.DerivedRunID)
		} else {
			fmt.Printf("Alert rejected by webhook: status %d\n", out.Delivery.StatusCode)
		}
		return nil
	},
}

// buildRequest assembles an alert request from positional args and the
// shared --payload/--text flags.
func buildRequest(cmd *cobra.Command, args []string) (alert.Request, error) {
	payloadJSON, _ := cmd.Flags().GetString("payload")
	text, _ := cmd.Flags().GetString("text")

	var payload json.RawMessage
	switch {
	case payloadJSON != "" && text != "":
		return alert.Request{}, fmt.Errorf("--payload and --text are mutually exclusive")
	case payloadJSON != "":
		if !json.Valid([]byte(payloadJSON)) {
			return alert.Request{}, fmt.Errorf("invalid payload JSON")
		}
		payload = json.RawMessage(payloadJSON)
	case text != "":
		var err error
		payload, err = card.Text(text)
		if err != nil {
			return alert.Request{}, err
		}
	default:
		return alert.Request{}, fmt.Errorf("one of --payload or --text is required")
	}

	return alert.Request{
		EntityID:     args[0],
		RunID:        args[1],
		ConnectionID: connID,
		Payload:      payload,
	}.Derived(), nil
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().String("payload", "", "raw message payload JSON")
	sendCmd.Flags().String("text", "", "plain text message body")
}
