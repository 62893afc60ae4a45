package cli

import (
	"context"
	"fmt"

	"atscore/internal/common"
	"atscore/internal/pipeline"

	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score [resume-file]",
	Short: "Score a resume for ATS readiness",
	Long: `Score a PDF or plain-text resume on the twelve ATS categories.

The resume is sent to the AI extractor for structured fields (sections,
contact details, languages) unless --offline is given, in which case only
the raw text is scored. Pass --jd to also score keyword overlap with a job
description.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		scoreConfig.OutputFormat, err = common.ResolveOutputFormat(
			scoreConfig.OutputFormat, cfg.App.DefaultFormat, cfg.App.SupportedFormats)
		return err
	},
	RunE: runScore,
}

var (
	scoreConfig  common.CommandConfig
	scoreJDFile  string
	scoreOffline bool
)

func init() {
	scoreCmd.Flags().StringVarP(&scoreConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	scoreCmd.Flags().StringVar(&scoreConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	scoreCmd.Flags().StringVar(&scoreJDFile, "jd", "", "Job description file used for the JD Match category")
	scoreCmd.Flags().BoolVar(&scoreOffline, "offline", false, "Skip the AI extractor and score the raw text only")

	_ = scoreCmd.RegisterFlagCompletionFunc("format", formatCompletion)
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	st, err := buildStack(cmd.Context(), cfg, logger, stackOptions{Offline: scoreOffline})
	if err != nil {
		return err
	}
	defer st.Close()

	files := common.NewFileProcessor(logger, cfg.App.MaxFileSize)

	createInput := func(args []string) (pipeline.Upload, error) {
		var jd string
		if scoreJDFile != "" {
			text, err := files.ReadText(scoreJDFile)
			if err != nil {
				return pipeline.Upload{}, err
			}
			jd = text
		}
		uploads, err := files.ReadUploads(jd, args...)
		if err != nil {
			return pipeline.Upload{}, err
		}
		return uploads[0], nil
	}

	logDetails := func(input pipeline.Upload, cfg common.CommandConfig) {
		logger.Info("Starting resume scoring",
			"file", input.Filename,
			"bytes", len(input.Content),
			"job_description_chars", len(input.JobDescription),
			"offline", scoreOffline,
			"output_format", cfg.OutputFormat)
	}

	err = common.RunCommand(
		cmd.Context(),
		logger,
		scoreConfig,
		args,
		createInput,
		func(ctx context.Context, up pipeline.Upload) (*pipeline.Result, error) {
			return st.processor.Process(ctx, up)
		},
		logDetails,
	)
	if err != nil {
		return fmt.Errorf("failed to score resume: %w", err)
	}
	logger.Info("Resume scoring completed successfully")
	return nil
}
