// Package export writes screening results as an Excel workbook.
package export

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"atscore/internal/pipeline"
)

const (
	summarySheet    = "Summary"
	candidatesSheet = "Candidates"
)

var candidateHeaders = []string{
	"Rank", "File", "Name", "ATS Score", "CGPA", "10th %", "12th %", "Degree",
	"Technical Skills", "Soft Skills", "Languages",
}

// WriteScreeningWorkbook writes a Summary sheet and a Candidates sheet
// listing the matches in screening order.
func WriteScreeningWorkbook(w io.Writer, result *pipeline.ScreenResult) error {
	if result == nil {
		result = &pipeline.ScreenResult{}
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to rename summary sheet: %w", err)
	}
	if _, err := f.NewSheet(candidatesSheet); err != nil {
		return fmt.Errorf("failed to create candidates sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeSummary(f, result, headerStyle); err != nil {
		return fmt.Errorf("failed to write summary sheet: %w", err)
	}
	if err := writeCandidates(f, result, headerStyle); err != nil {
		return fmt.Errorf("failed to write candidates sheet: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, result *pipeline.ScreenResult, headerStyle int) error {
	if err := f.SetColWidth(summarySheet, "A", "A", 28); err != nil {
		return err
	}
	if err := f.SetColWidth(summarySheet, "B", "B", 60); err != nil {
		return err
	}

	rows := [][]any{
		{"Screening Report", ""},
		{"Generated", time.Now().UTC().Format("2006-01-02 15:04:05 MST")},
		{"Resumes Processed", result.Processed},
		{"Resumes Skipped", len(result.Skipped)},
		{"Matches", result.Count},
	}
	if avg, ok := averageScore(result); ok {
		rows = append(rows, []any{"Average ATS Score", avg})
	}
	for _, s := range result.Skipped {
		rows = append(rows, []any{"Skipped: " + s.Filename, s.Reason})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.MergeCell(summarySheet, "A1", "B1"); err != nil {
		return err
	}
	return f.SetCellStyle(summarySheet, "A1", "B1", headerStyle)
}

func writeCandidates(f *excelize.File, result *pipeline.ScreenResult, headerStyle int) error {
	header := make([]any, len(candidateHeaders))
	for i, h := range candidateHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(candidatesSheet, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(candidateHeaders), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(candidatesSheet, "A1", last, headerStyle); err != nil {
		return err
	}
	if err := f.SetPanes(candidatesSheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return err
	}

	for i, m := range result.Results {
		edu := m.Education
		row := []any{
			i + 1,
			m.Filename,
			m.Name,
			m.ATSScore,
			edu.Bachelor.CGPA.String(),
			edu.Tenth.Percentage.String(),
			edu.Twelfth.Percentage.String(),
			edu.Bachelor.Degree.String(),
			strings.Join(m.Skills.Technical, ", "),
			strings.Join(m.Skills.Soft, ", "),
			strings.Join(m.Languages, ", "),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(candidatesSheet, cell, &row); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(candidatesSheet, "B", "C", 24); err != nil {
		return err
	}
	return f.SetColWidth(candidatesSheet, "I", "K", 36)
}

func averageScore(result *pipeline.ScreenResult) (float64, bool) {
	if len(result.Results) == 0 {
		return 0, false
	}
	var total float64
	for _, m := range result.Results {
		total += m.ATSScore
	}
	avg := total / float64(len(result.Results))
	return math.Round(avg*100) / 100, true
}
