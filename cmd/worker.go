/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vocaciona/apiserver/config"
	"github.com/vocaciona/apiserver/internal/mq"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consumes result-saved events from the message broker",
	Long: `Consumes result-saved events from the configured message broker.
Usage:

	vocaciona worker

Requires MQ_BACKEND to be set; the server publishes an event on the
configured channel every time a test result is stored.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadConfig()

		log := logrus.New()
		log.SetFormatter(&logrus.JSONFormatter{})

		events, err := mq.NewFromConfig(cmd.Context(), cfg.MQ)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect to broker: %v\n", err)
			os.Exit(1)
		}
		if events == nil {
			fmt.Fprintln(os.Stderr, "no broker configured: set MQ_BACKEND to rabbitmq or pubsub")
			os.Exit(1)
		}
		defer func() {
			_ = events.Close()
		}()

		log.WithField("canal", cfg.MQ.Channel).Info("worker consuming")
		err = events.Subscribe(cmd.Context(), cfg.MQ.Channel, func(ctx context.Context, msg mq.Message) error {
			log.WithFields(logrus.Fields{
				"mensaje": msg.ID,
				"evento":  msg.Attributes["evento"],
				"bytes":   len(msg.Data),
			}).Info("evento recibido")
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "worker error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
