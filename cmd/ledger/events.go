package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
	applog "ledger/internal/log"

	"github.com/spf13/cobra"
)

func eventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Follow reminder and import events from the broker",
		Long:  "Consumes the ledger queue and prints one JSON line per event until interrupted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if appCfg.AMQPURL == "" {
				return errors.New("events needs AMQP_URL")
			}
			client, err := amqp.NewClient(appCfg.AMQPURL, appCfg.AMQPExchange, appCfg.AMQPQueue)
			if err != nil {
				return err
			}
			defer client.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			err = client.ConsumeEvents(cmd.Context(), func(ctx context.Context, env *amqp.Envelope) error {
				return printEvent(ctx, enc, env)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

// printEvent decodes known payloads so malformed ones are requeued rather
// than printed.
func printEvent(ctx context.Context, enc *json.Encoder, env *amqp.Envelope) error {
	var payload any
	switch env.Type {
	case amqp.EventObligationDue:
		var ev core.ObligationDue
		if err := env.Decode(&ev); err != nil {
			return err
		}
		payload = ev
		logger.InfoContext(ctx, "Obligation due",
			applog.FieldUserID, ev.UserID,
			applog.FieldObligationID, ev.ObligationID,
			"days_left", ev.DaysLeft)
	case amqp.EventImportCompleted:
		var ev core.ImportCompleted
		if err := env.Decode(&ev); err != nil {
			return err
		}
		payload = ev
		logger.InfoContext(ctx, "Import completed", applog.FieldUserID, ev.UserID)
	default:
		logger.WarnContext(ctx, "Unknown event type", "event", env.Type)
		payload = env.Payload
	}

	if err := enc.Encode(struct {
		Type      string `json:"type"`
		Timestamp string `json:"timestamp"`
		Payload   any    `json:"payload"`
	}{env.Type, env.Timestamp.Format(time.RFC3339), payload}); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}
