package events

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"github.com/streadway/amqp"

	"katalog/internal/app"
	catalogevents "katalog/internal/events"
)

const configFlag = "config"

var eventsFlags = map[string]cobraflags.Flag{
	configFlag: &cobraflags.StringFlag{
		Name:  configFlag,
		Value: "",
		Usage: "Path to a YAML config file",
	},
}

func NewEventsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail catalog events from RabbitMQ and log them",
		RunE:  eventsCommand,
	}
	cobraflags.RegisterMap(cmd, eventsFlags)
	return cmd
}

func eventsCommand(cmd *cobra.Command, _ []string) error {
	rt, err := app.Open(eventsFlags[configFlag].GetString())
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.Config.RabbitMQ.URL == "" {
		return errors.New("RABBITMQ_URL is not set")
	}
	if err := rt.ConnectBroker(); err != nil {
		return err
	}

	done, err := rt.MQ.Consume(func(msg amqp.Delivery) error {
		e, err := catalogevents.Decode(msg.Body)
		if err != nil {
			return err
		}
		rt.Log.Info("catalog event",
			"id", e.ID,
			"type", e.Type,
			"subject_id", e.SubjectID,
			"slug", e.Slug,
			"source_id", e.SourceID,
			"occurred_at", e.OccurredAt,
		)
		return nil
	})
	if err != nil {
		return err
	}
	rt.Log.Info("consuming catalog events", "queue", rt.MQ.Queue())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	select {
	case <-ctx.Done():
	case <-done:
		return errors.New("RabbitMQ delivery channel closed")
	}
	return nil
}
