// Command conduit runs record pipelines declared in YAML over input files or
// a NATS subject.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	metricsAddr     string
	continueOnError bool
)

var rootCmd = &cobra.Command{
	Use:   "conduit",
	Short: "Embeddable record pipelines",
	Long: "Conduit pushes records through a chain of commands declared in YAML.\n" +
		"Records that reach the end of the chain are written as JSON lines to stdout.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	rootCmd.PersistentFlags().BoolVar(&continueOnError, "continue-on-error", false, "log failing records and keep going instead of aborting")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(consumeCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(commandsCmd)
	rootCmd.Version = version
}

// setupApp reads the environment and builds the shared services.
func setupApp(ctx context.Context) (*app, error) {
	cfg, err := loadEnv()
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, appOptions{
		metricsAddr:     metricsAddr,
		continueOnError: continueOnError,
	})
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
