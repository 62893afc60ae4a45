package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atscore/internal/ats"
	"atscore/internal/config"
	"atscore/internal/errors"
	"atscore/internal/pipeline"
)

const sampleResume = `Asha Rao
asha@example.com | +91 98765 43210

Experience
- Built golang services handling 2000 users with docker and kubernetes
- Reduced latency by 40% for the payments team
- Led migration of 12 systems to postgres

Skills: golang, docker, kubernetes, communication, leadership
`

// resetCommand clears flag values and the cached context left by a previous run.
func resetCommand(t *testing.T, cmd *cobra.Command) {
	t.Helper()
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		require.NoError(t, f.Value.Set(f.DefValue))
		f.Changed = false
	})
	cmd.SetContext(nil)
}

func run(t *testing.T, cfg *config.Config, args ...string) error {
	t.Helper()
	for _, cmd := range []*cobra.Command{scoreCmd, screenCmd, versionCmd} {
		resetCommand(t, cmd)
	}
	rootCmd.SetArgs(args)
	return Execute(context.Background(), cfg, errors.NewNopLogger())
}

func writeResume(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestScoreOffline(t *testing.T) {
	dir := t.TempDir()
	resume := writeResume(t, dir, "asha.txt", sampleResume)
	jd := writeResume(t, dir, "jd.txt", "golang kubernetes engineer")
	out := filepath.Join(dir, "score.json")

	err := run(t, config.Default(), "score", resume, "--offline", "--jd", jd, "-o", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var result pipeline.Result
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, "asha.txt", result.Filename)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, []string{ats.DefaultLanguage}, result.Report.Languages)
	assert.Greater(t, result.Report.WordCount, 20)
	assert.Greater(t, result.Report.Breakdown.Get(ats.TechnicalSkills), 0.0)
	assert.Greater(t, result.Report.Breakdown.Get(ats.JDMatch), 0.0)
}

func TestScoreTextFormat(t *testing.T) {
	dir := t.TempDir()
	resume := writeResume(t, dir, "asha.txt", sampleResume)
	out := filepath.Join(dir, "score.txt")

	require.NoError(t, run(t, config.Default(), "score", resume, "--offline", "--format", "text", "-o", out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Technical Skills")
}

func TestScoreRejectsInput(t *testing.T) {
	dir := t.TempDir()
	image := writeResume(t, dir, "photo.png", "not a resume")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unsupported format", []string{"score", image, "--offline", "--format", "xml"}, "unsupported output format"},
		{"unsupported file", []string{"score", image, "--offline"}, "Unsupported resume file"},
		{"missing file", []string{"score", filepath.Join(dir, "nope.pdf"), "--offline"}, "Invalid file"},
		{"missing api key", []string{"score", image}, "AI API key is not configured"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(t, config.Default(), tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestScreenOfflineWithWorkbook(t *testing.T) {
	dir := t.TempDir()
	resumes := filepath.Join(dir, "resumes")
	require.NoError(t, os.Mkdir(resumes, 0o750))
	writeResume(t, resumes, "asha.txt", sampleResume)
	writeResume(t, resumes, "ravi.txt", "Ravi Kumar\nJava developer with five years of experience.\n")
	writeResume(t, resumes, "notes.png", "ignored")

	out := filepath.Join(dir, "screen.json")
	workbook := filepath.Join(dir, "screen.xlsx")

	require.NoError(t, run(t, config.Default(), "screen", resumes, "--offline", "-o", out, "--xlsx", workbook))

	var result struct {
		Count   int `json:"count"`
		Results []struct {
			Filename string `json:"filename"`
		} `json:"results"`
	}
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, 2, result.Count)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "asha.txt", result.Results[0].Filename)

	xlsx, err := os.ReadFile(workbook)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(xlsx, []byte("PK")))
}

func TestScreenFiltersByLanguage(t *testing.T) {
	dir := t.TempDir()
	resume := writeResume(t, dir, "asha.txt", sampleResume)
	out := filepath.Join(dir, "screen.json")

	require.NoError(t, run(t, config.Default(), "screen", resume, "--offline", "--language", "Tamil", "-o", out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"count": 0`)
}

func TestScreenRejectsInvalidCriteria(t *testing.T) {
	resume := writeResume(t, t.TempDir(), "asha.txt", sampleResume)

	err := run(t, config.Default(), "screen", resume, "--offline", "--cgpa", "11")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	defer versionCmd.SetOut(nil)

	require.NoError(t, run(t, config.Default(), "version"))
	assert.True(t, strings.HasPrefix(out.String(), "atscore version "+Version))
}

func TestContextHelpersRequireValues(t *testing.T) {
	_, err := getConfigFromContext(context.Background())
	assert.Error(t, err)
	_, err = getLoggerFromContext(context.Background())
	assert.Error(t, err)
}
