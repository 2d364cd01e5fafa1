package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wehubfusion/Conduit/pkg/pipeline/runtime"
	"github.com/wehubfusion/Conduit/pkg/source/natssource"
)

var (
	consumeConfigPath string
	consumeSubject    string
	consumeQueue      string
	consumeMimeType   string
)

var consumeCmd = &cobra.Command{
	Use:   "consume --config pipeline.yaml --subject SUBJECT",
	Short: "Run a pipeline over messages received from NATS",
	Long: "Consume subscribes to a NATS subject (CONDUIT_NATS_URL) and pushes every\n" +
		"message through the pipeline until interrupted.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := runtime.LoadPipelineConfig(consumeConfigPath)
		if err != nil {
			return err
		}
		a, err := setupApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		logger := a.logger.With(zap.String("subject", consumeSubject))
		chain, err := runtime.Build(a.registry, cfg, a.newContext(logger), newJSONSink(cmd.OutOrStdout()))
		if err != nil {
			return err
		}

		conn, err := natssource.Connect(ctx, natssource.DefaultConnectionConfig(a.env.NATSURL), logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := natssource.Close(conn); err != nil {
				logger.Warn("close NATS connection", zap.Error(err))
			}
		}()

		src := &natssource.Source{
			Conn:     conn,
			Subject:  consumeSubject,
			Queue:    consumeQueue,
			Chain:    chain,
			MimeType: consumeMimeType,
			Logger:   logger,
		}
		if err := src.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	consumeCmd.Flags().StringVarP(&consumeConfigPath, "config", "c", "", "pipeline YAML file")
	consumeCmd.Flags().StringVarP(&consumeSubject, "subject", "s", "", "NATS subject to subscribe to")
	consumeCmd.Flags().StringVarP(&consumeQueue, "queue", "q", "", "queue group shared by consumer instances")
	consumeCmd.Flags().StringVar(&consumeMimeType, "mime-type", natssource.DefaultMimeType, "MIME type of messages without a Content-Type header")
	_ = consumeCmd.MarkFlagRequired("config")
	_ = consumeCmd.MarkFlagRequired("subject")
}
