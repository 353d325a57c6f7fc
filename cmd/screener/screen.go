package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/config"
	"alfredoptarigan/resume-screener/internal/models"
	"alfredoptarigan/resume-screener/internal/services"
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Screen a folder of resumes",
	Long:  "Reads every PDF, DOCX and TXT resume in --dir, scores it against the job description and writes the ranked table as CSV (and optionally XLSX).",
	RunE:  runScreen,
}

var (
	screenJobDescription     string
	screenJobDescriptionFile string
	screenSkills             string
	screenDir                string
	screenOut                string
)

func init() {
	screenCmd.Flags().StringVar(&screenJobDescription, "job-description", "", "Job description text")
	screenCmd.Flags().StringVar(&screenJobDescriptionFile, "job-description-file", "", "Path to a file holding the job description")
	screenCmd.Flags().StringVarP(&screenSkills, "skills", "s", "", "Comma separated required skills")
	screenCmd.Flags().StringVar(&screenDir, "dir", "", "Folder containing the resumes (required)")
	screenCmd.Flags().StringVarP(&screenOut, "out", "o", "outputs/hybrid_results.csv", "Path of the CSV result file")
	screenCmd.Flags().Bool("xlsx", false, "Also write an XLSX workbook next to the CSV")
	screenCmd.Flags().String("vector-backend", "", "Vector index backend: qdrant or memory")
	screenCmd.Flags().Int("concurrency", 0, "Number of resumes screened in parallel")

	screenCmd.MarkFlagsMutuallyExclusive("job-description", "job-description-file")
	if err := screenCmd.MarkFlagRequired("dir"); err != nil {
		panic(fmt.Sprintf("failed to mark dir flag as required: %v", err))
	}

	mustBind("WRITE_XLSX", screenCmd.Flags().Lookup("xlsx"))
	mustBind("VECTOR_BACKEND", screenCmd.Flags().Lookup("vector-backend"))
	mustBind("SCREENING_CONCURRENCY", screenCmd.Flags().Lookup("concurrency"))

	rootCmd.AddCommand(screenCmd)
}

// mustBind binds a flag to a config key. Unset flags fall through to the environment.
func mustBind(key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("failed to bind %s: %v", key, err))
	}
}

func runScreen(cmd *cobra.Command, _ []string) error {
	jobDescription, err := resolveJobDescription(screenJobDescription, screenJobDescriptionFile)
	if err != nil {
		return err
	}

	cfg := config.LoadFrom(v)

	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	docs, err := services.LoadDocumentsFromDir(screenDir)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no resumes found in %s", screenDir)
	}

	ctx := cmd.Context()
	pipeline, err := services.NewPipeline(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			log.Warn("failed to close pipeline", zap.Error(err))
		}
	}()

	job := models.NewJobRequest(jobDescription, models.ParseSkillList(screenSkills))
	log.Info("screening started", zap.Int("documents", len(docs)), zap.Strings("skills", job.RequiredSkills))

	table, err := pipeline.Screener.Evaluate(ctx, job, docs)
	if err != nil {
		return err
	}

	if err := pipeline.Exporter.WriteCSV(screenOut, table); err != nil {
		return err
	}
	if cfg.Storage.WriteXLSX {
		if err := pipeline.Exporter.WriteXLSX(services.WorkbookPath(screenOut), job, table); err != nil {
			return err
		}
	}

	return printSummary(cmd.OutOrStdout(), table)
}

func resolveJobDescription(text, path string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read job description file: %w", err)
		}
		text = string(data)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("a job description is required (--job-description or --job-description-file)")
	}
	return text, nil
}

func printSummary(w io.Writer, table *models.ResultTable) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tFILE\tFINAL %\tMATCH\tROLE FIT")
	for i, row := range table.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%s\t%s\n",
			i+1, row.Name, row.File, row.FinalScorePercent, row.PredictedMatch, row.Verdict.RoleFitLabel())
	}
	return tw.Flush()
}
