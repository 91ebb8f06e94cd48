package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"seyon/internal/services"
	"seyon/pkg/rabbitmq"

	"github.com/spf13/cobra"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

func newWatchEventsCmd(app *App) *cobra.Command {
	var bindingKey string
	cmd := &cobra.Command{
		Use:   "watch-events",
		Short: "Print project events published on RabbitMQ until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := app.bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			if cfg.RabbitMQURL == "" {
				return errors.New("RABBITMQ_URL must be set")
			}

			mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			done := make(chan error, 1)
			go func() {
				done <- mqClient.Consume(bindingKey, func(msg amqp.Delivery) error {
					var event services.ProjectEvent
					if err := json.Unmarshal(msg.Body, &event); err != nil {
						return fmt.Errorf("malformed event: %w", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n",
						event.OccurredAt.Format(time.RFC3339), event.Type, event.ProjectID, event.Title)
					return nil
				})
			}()

			select {
			case err := <-done:
				mqClient.Close()
				return err
			case <-ctx.Done():
			}
			if err := mqClient.Close(); err != nil {
				log.Warn("failed to close RabbitMQ client", zap.Error(err))
			}
			return <-done
		},
	}
	cmd.Flags().StringVar(&bindingKey, "binding", "project.#", "routing key pattern to subscribe to")
	return cmd
}
