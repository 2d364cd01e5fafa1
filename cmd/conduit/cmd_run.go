package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wehubfusion/Conduit/pkg/pipeline/runtime"
	"github.com/wehubfusion/Conduit/pkg/record"
)

var (
	runConfigPath string
	runParallel   int
)

var runCmd = &cobra.Command{
	Use:   "run --config pipeline.yaml INPUT...",
	Short: "Run a pipeline over input files or blobs",
	Long: "Run builds one chain per input and pushes every item of the input through it.\n" +
		"Inputs are local files or azblob://container/prefix locations, which expand to every\n" +
		"blob under the prefix (CONDUIT_AZURE_STORAGE_CONNECTION_STRING).\n" +
		"Avro container files (.avro) yield one record per datum, JSON lines files\n" +
		"(.json, .jsonl, .ndjson) one record per line, and other inputs a single record.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := runtime.LoadPipelineConfig(runConfigPath)
		if err != nil {
			return err
		}
		a, err := setupApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		inputs, err := resolveInputs(ctx, args, a.blobClient)
		if err != nil {
			return err
		}
		stats, err := runInputs(ctx, a, cfg, inputs, a.parallelism(runParallel), cmd.OutOrStdout())
		a.logger.Info("run finished",
			zap.Int("inputs", len(inputs)),
			zap.Int64("records_read", stats.read),
			zap.Int64("records_passed", stats.passed),
			zap.Int64("records_written", stats.written),
			zap.Error(err))
		return err
	},
}

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "pipeline YAML file")
	runCmd.Flags().IntVarP(&runParallel, "parallel", "p", 0, "number of files processed concurrently (0 = CONDUIT_PARALLEL or a CPU-based default)")
	_ = runCmd.MarkFlagRequired("config")
}

type runStats struct {
	read    int64
	passed  int64
	written int64
}

// runInputs processes inputs concurrently, each with its own chain and
// context. The first fatal error cancels the remaining inputs.
func runInputs(ctx context.Context, a *app, cfg *runtime.PipelineConfig, inputs []input, parallel int, out io.Writer) (runStats, error) {
	sink := newJSONSink(out)
	var read, passed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for _, in := range inputs {
		in := in
		g.Go(func() error {
			return runInput(gctx, a, cfg, in, sink.share(), &read, &passed)
		})
	}
	err := g.Wait()

	return runStats{read: read.Load(), passed: passed.Load(), written: sink.Written()}, err
}

// runInput treats one input as one session holding one transaction.
func runInput(ctx context.Context, a *app, cfg *runtime.PipelineConfig, in input, sink runtime.Command, read, passed *atomic.Int64) error {
	name := in.name
	logger := a.logger.With(zap.String("input", name))
	chain, err := runtime.Build(a.registry, cfg, a.newContext(logger), sink)
	if err != nil {
		return err
	}
	defer func() {
		if err := chain.Notify(runtime.NewNotification(runtime.Shutdown, nil)); err != nil {
			logger.Warn("shutdown notification failed", zap.Error(err))
		}
	}()

	if err := chain.Notify(runtime.NewNotification(runtime.StartSession, name)); err != nil {
		return err
	}
	if err := chain.Notify(runtime.NewNotification(runtime.BeginTransaction, name)); err != nil {
		return err
	}

	err = readInput(ctx, in, func(rec *record.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		read.Add(1)
		ok, err := chain.ProcessContext(ctx, rec)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if ok {
			passed.Add(1)
		}
		return nil
	})
	if err != nil {
		if nerr := chain.Notify(runtime.NewNotification(runtime.RollbackTransaction, name)); nerr != nil {
			logger.Error("rollback notification failed", zap.Error(nerr))
		}
		return err
	}
	return chain.Notify(runtime.NewNotification(runtime.CommitTransaction, name))
}
