package cli

import (
	"context"
	"fmt"

	"atscore/internal/config"
	"atscore/internal/errors"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootCmd = &cobra.Command{
	Use:   "atscore",
	Short: "Score resumes for ATS readiness and screen candidates",
	Long: `atscore extracts structured information from resumes, scores them on
twelve ATS categories and filters batches of candidates against recruiter
criteria. It runs as an HTTP API (serve) or directly on local files.`,
	SilenceUsage: true,
}

func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	// Attach the config and logger to the context, making them available to all subcommands
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok && cfg != nil {
		return cfg, nil
	}
	return nil, fmt.Errorf("config not found in command context")
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) (*errors.Logger, error) {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok && logger != nil {
		return logger, nil
	}
	return nil, fmt.Errorf("logger not found in command context")
}

// formatCompletion completes --format from the configured formats.
func formatCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return []string{}, cobra.ShellCompDirectiveError
	}
	return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(screenCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
