package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wehubfusion/Conduit/pkg/pipeline/commands"
	"github.com/wehubfusion/Conduit/pkg/pipeline/runtime"
)

var validateConfigPath string

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List the built-in command names",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range commands.NewRegistry().Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate --config pipeline.yaml",
	Short: "Parse and build a pipeline without processing records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		chain, err := validatePipeline(validateConfigPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pipeline %q ok: %v\n", chain.ID(), chain.Names())
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateConfigPath, "config", "c", "", "pipeline YAML file")
	_ = validateCmd.MarkFlagRequired("config")
}

func validatePipeline(path string) (*runtime.Chain, error) {
	cfg, err := runtime.LoadPipelineConfig(path)
	if err != nil {
		return nil, err
	}
	return runtime.Build(commands.NewRegistry(), cfg, runtime.NewContext(), nil)
}
