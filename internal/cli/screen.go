package cli

import (
	"context"
	"fmt"

	"atscore/internal/common"
	"atscore/internal/pipeline"
	"atscore/internal/screening"
	"atscore/internal/utils"

	"github.com/spf13/cobra"
)

var screenCmd = &cobra.Command{
	Use:   "screen [dir-or-files...]",
	Short: "Screen a batch of resumes against recruiter criteria",
	Long: `Score every resume in the given files and directories and keep the
candidates that pass all the filters. Directories are read non-recursively
for .pdf, .txt and .md files.

Numeric filters are minimums: --cgpa (0-10), --tenth, --twelfth and --ats
(0-100). --skills takes a comma-separated list that must all be present.
--xlsx writes the matches and the processing summary to an Excel workbook.`,
	Args: cobra.MinimumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		screenConfig.OutputFormat, err = common.ResolveOutputFormat(
			screenConfig.OutputFormat, cfg.App.DefaultFormat, cfg.App.SupportedFormats)
		return err
	},
	RunE: runScreen,
}

var (
	screenConfig  common.CommandConfig
	screenFilters = map[string]*string{}
	screenOffline bool
)

func init() {
	screenCmd.Flags().StringVarP(&screenConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	screenCmd.Flags().StringVar(&screenConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	screenCmd.Flags().StringVar(&screenConfig.WorkbookFile, "xlsx", "", "Also export the results to this Excel file")
	screenCmd.Flags().BoolVar(&screenOffline, "offline", false, "Skip the AI extractor (education and skill filters will not match)")

	filters := []struct{ field, usage string }{
		{screening.FieldCGPA, "Minimum bachelor CGPA (0-10)"},
		{screening.FieldTenth, "Minimum 10th grade percentage (0-100)"},
		{screening.FieldTwelfth, "Minimum 12th grade percentage (0-100)"},
		{screening.FieldATS, "Minimum ATS score (0-100)"},
		{screening.FieldSkills, "Comma-separated skills that must all be present"},
		{screening.FieldLanguage, "Language the candidate must speak"},
		{screening.FieldDepartment, "Department the degree must be in"},
		{screening.FieldDegree, "Degree name to match"},
	}
	for _, f := range filters {
		screenFilters[f.field] = screenCmd.Flags().String(f.field, "", f.usage)
	}

	_ = screenCmd.RegisterFlagCompletionFunc("format", formatCompletion)
}

// screenInput is a batch of uploads and the criteria they are checked against.
type screenInput struct {
	uploads  []pipeline.Upload
	criteria screening.Criteria
}

func runScreen(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	form := make(map[string]string, len(screenFilters))
	for field, value := range screenFilters {
		form[field] = *value
	}
	criteria, err := screening.ParseCriteria(form)
	if err != nil {
		return err
	}

	st, err := buildStack(cmd.Context(), cfg, logger, stackOptions{Offline: screenOffline})
	if err != nil {
		return err
	}
	defer st.Close()

	files := common.NewFileProcessor(logger, cfg.App.MaxFileSize)

	createInput := func(args []string) (screenInput, error) {
		paths, err := utils.CollectResumeFiles(args)
		if err != nil {
			return screenInput{}, err
		}
		if len(paths) == 0 {
			return screenInput{}, fmt.Errorf("no resume files found in %v", args)
		}
		uploads, err := files.ReadUploads("", paths...)
		if err != nil {
			return screenInput{}, err
		}
		return screenInput{uploads: uploads, criteria: criteria}, nil
	}

	logDetails := func(input screenInput, cmdCfg common.CommandConfig) {
		logger.Info("Starting resume screening",
			"files", len(input.uploads),
			"workers", cfg.App.Workers,
			"output_format", cmdCfg.OutputFormat)
	}

	err = common.RunCommand(
		cmd.Context(),
		logger,
		screenConfig,
		args,
		createInput,
		func(ctx context.Context, in screenInput) (*pipeline.ScreenResult, error) {
			return st.processor.Screen(ctx, in.uploads, in.criteria)
		},
		logDetails,
	)
	if err != nil {
		return fmt.Errorf("failed to screen resumes: %w", err)
	}
	logger.Info("Resume screening completed successfully")
	return nil
}
