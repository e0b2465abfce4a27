package cmd

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/frahmantamala/tracker-workorders/internal/core/events"
	"github.com/frahmantamala/tracker-workorders/internal/messaging/rabbitmq"
	"github.com/frahmantamala/tracker-workorders/pkg/logger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish work order events by hand to exercise subscribers and the broker relay.`,
}

var (
	eventWorkOrderID  string
	eventTechnicianID string
	eventActorID      string
)

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a work order event",
	Long: `Publish a work order event on the in-process bus. When rabbitmq is enabled the
event is also relayed to the configured exchange.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishEvent(cmd.Context(), args[0])
	},
}

func publishEvent(ctx context.Context, eventType string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !slices.Contains(events.WorkOrderEventTypes, eventType) {
		return fmt.Errorf("unknown event type %q, expected one of: %s", eventType, strings.Join(events.WorkOrderEventTypes, ", "))
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	bus := events.NewEventBus(lg)
	bus.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
		lg.Info("handler received event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"technician_id", events.TechnicianOf(event))
		return nil
	})

	if cfg.RabbitMQ.Enabled {
		conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQ.URL, rabbitConnectAttempts, lg)
		if err != nil {
			return err
		}
		defer conn.Close()

		publisher, err := rabbitmq.NewPublisher(conn.Chan, cfg.RabbitMQ.Exchange, lg)
		if err != nil {
			return err
		}
		bus.Subscribe(eventType, publisher.Publish)
	}

	event := events.NewWorkOrderEvent(eventType, eventWorkOrderID, eventTechnicianID, eventActorID, "", "")
	lg.Info("publishing event", "event_type", eventType, "event_id", event.EventID())
	if err := bus.PublishSync(ctx, event); err != nil {
		return err
	}
	lg.Info("event published")
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventWorkOrderID, "work-order", "cli-work-order", "work order id carried by the event")
	publishEventCmd.Flags().StringVar(&eventTechnicianID, "technician", "", "technician id carried by the event")
	publishEventCmd.Flags().StringVar(&eventActorID, "actor", "cli", "actor id carried by the event")

	eventCmd.AddCommand(publishEventCmd)
	rootCmd.AddCommand(eventCmd)
}
