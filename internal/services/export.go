package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/logger"
	"alfredoptarigan/resume-screener/internal/models"
)

// ResultColumns is the header of every persisted result table.
var ResultColumns = []string{
	"name",
	"file",
	"bi_encoder_%",
	"cross_encoder_%",
	"skills_coverage_%",
	"final_score_%",
	"predicted_match",
	"matching_skills",
	"base_assessment",
	"certificates_found",
	"achievements_found",
	"competitions_won",
	"Role_Fit",
	"Reasoning",
	"Refined_Certifications",
	"Recommended_Skills_To_Add",
	"degraded",
	"error",
}

const (
	summarySheet    = "Summary"
	candidatesSheet = "Ranked Candidates"
)

type Exporter struct {
	log *zap.Logger
}

func NewExporter(log *zap.Logger) *Exporter {
	return &Exporter{log: logger.OrNop(log)}
}

// ResultRecordValues flattens a row into the ResultColumns order.
func ResultRecordValues(row models.ResultRow) []string {
	var reasoning, certs, skills string
	if r := row.Verdict.Refinement; r != nil {
		reasoning = r.Reasoning
		certs = r.RefinedCertifications
		skills = r.RecommendedSkillsToAdd
	}

	return []string{
		row.Name,
		row.File,
		formatPercent(row.BiEncoderPercent),
		formatPercent(row.CrossEncoderPercent),
		formatPercent(row.SkillsCoveragePercent),
		formatPercent(row.FinalScorePercent),
		row.PredictedMatch,
		row.Verdict.Rules.MatchingSkills,
		row.Verdict.Rules.BaseAssessment,
		row.Entities.CertificatesFound,
		row.Entities.AchievementsFound,
		row.Entities.CompetitionsWon,
		row.Verdict.RoleFitLabel(),
		reasoning,
		certs,
		skills,
		strconv.FormatBool(row.Verdict.Degraded),
		row.Error,
	}
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCSV replaces path with the table, creating parent directories as needed.
func (e *Exporter) WriteCSV(path string, table *models.ResultTable) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create result file: %w", err)
	}
	if err := writeCSV(f, table); err != nil {
		return err
	}

	e.log.Info("results written", zap.String("path", path), zap.Int("rows", len(table.Rows)))
	return nil
}

// writeCSV encodes the table into wc and always closes it; a close failure is reported.
func writeCSV(wc io.WriteCloser, table *models.ResultTable) (err error) {
	defer func() {
		if cerr := wc.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close result file: %w", cerr)
		}
	}()

	w := csv.NewWriter(wc)
	if err := w.Write(ResultColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range table.Rows {
		if err := w.Write(ResultRecordValues(row)); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", row.File, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush result file: %w", err)
	}
	return nil
}

// WriteXLSX writes a workbook with a run summary sheet and the ranked table.
func (e *Exporter) WriteXLSX(path string, job models.JobRequest, table *models.ResultTable) error {
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		path += ".xlsx"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(candidatesSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	if err := writeSummarySheet(f, job, table); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := writeCandidatesSheet(f, table); err != nil {
		return fmt.Errorf("failed to create ranked candidates sheet: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	e.log.Info("workbook written", zap.String("path", path), zap.Int("rows", len(table.Rows)))
	return nil
}

func writeSummarySheet(f *excelize.File, job models.JobRequest, table *models.ResultTable) error {
	if err := f.SetColWidth(summarySheet, "A", "A", 25); err != nil {
		return err
	}
	if err := f.SetColWidth(summarySheet, "B", "B", 80); err != nil {
		return err
	}

	yes, degraded, failed := 0, 0, 0
	for _, r := range table.Rows {
		if r.PredictedMatch == models.MatchYes {
			yes++
		}
		if r.Verdict.Degraded {
			degraded++
		}
		if r.Error != "" {
			failed++
		}
	}

	rows := [][]any{
		{"Resume Screening Report"},
		{},
		{"Generated:", table.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Job Description:", job.JobDescription},
		{"Required Skills:", strings.Join(job.RequiredSkills, ", ")},
		{"Candidates Screened:", len(table.Rows)},
		{"Predicted Matches:", yes},
		{"Rule-only Verdicts:", degraded},
		{"Ingestion Errors:", failed},
	}

	for i, values := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &values); err != nil {
			return err
		}
	}

	labelStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	return f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", len(rows)), labelStyle)
}

func writeCandidatesSheet(f *excelize.File, table *models.ResultTable) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return err
	}

	header := make([]any, len(ResultColumns))
	for i, c := range ResultColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(candidatesSheet, "A1", &header); err != nil {
		return err
	}

	lastCol, err := excelize.ColumnNumberToName(len(ResultColumns))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(candidatesSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}

	for i, row := range table.Rows {
		values := []any{
			row.Name,
			row.File,
			row.BiEncoderPercent,
			row.CrossEncoderPercent,
			row.SkillsCoveragePercent,
			row.FinalScorePercent,
		}
		for _, v := range ResultRecordValues(row)[6:] {
			values = append(values, v)
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(candidatesSheet, cell, &values); err != nil {
			return err
		}
	}

	return f.SetPanes(candidatesSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
