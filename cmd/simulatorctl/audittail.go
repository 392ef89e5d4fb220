package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/marketing-simulator/internal/config"
	"github.com/magabrotheeeer/marketing-simulator/internal/lib/sl"
	"github.com/magabrotheeeer/marketing-simulator/internal/rabbitmq"
	"github.com/magabrotheeeer/marketing-simulator/internal/security"
)

var auditTailCmd = &cobra.Command{
	Use:   "audit-tail",
	Short: "Print security events from the audit queue",
	RunE: func(cmd *cobra.Command, _ []string) error {
		queue := mustString(cmd, "queue")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.RabbitMQ.URL == "" {
			return errors.New("rabbitmq url is not configured")
		}
		logger := sl.New(cfg.Env)

		conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, 5, 2*time.Second)
		if err != nil {
			return err
		}
		defer conn.Close()

		ch, err := rabbitmq.SetupChannel(conn, cfg.RabbitMQ.Exchange, rabbitmq.SecurityQueues())
		if err != nil {
			return err
		}
		defer ch.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		err = rabbitmq.ConsumerMessage(ctx, logger, ch, queue, func(body []byte) error {
			var e security.Event
			if err := json.Unmarshal(body, &e); err != nil {
				// битое сообщение не возвращаем в очередь
				cmd.PrintErrln("skip malformed event:", err)
				return nil
			}
			cmd.Println(formatEvent(e))
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func formatEvent(e security.Event) string {
	line := fmt.Sprintf("%s %-8s %s", e.Time.Format(time.RFC3339), e.Severity, e.Kind)
	if e.UserID != 0 {
		line += fmt.Sprintf(" user=%d", e.UserID)
	}
	if e.Email != "" {
		line += " email=" + e.Email
	}
	if e.IP != "" {
		line += " ip=" + e.IP
	}
	if len(e.Details) > 0 {
		if details, err := json.Marshal(e.Details); err == nil {
			line += " " + string(details)
		}
	}
	return line
}

func init() {
	auditTailCmd.Flags().String("queue", "security.audit", "queue to read: security.audit or security.critical")
}
