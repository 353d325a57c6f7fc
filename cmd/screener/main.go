// Command screener ranks a folder of resumes against a job description and writes the
// hybrid results table.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/config"
	"alfredoptarigan/resume-screener/internal/logger"
)

var v = config.NewViper()

var rootCmd = &cobra.Command{
	Use:           "screener",
	Short:         "Hybrid resume screener",
	Long:          "Scores resumes against a job description with skill matching, embedding similarity, a cross-encoder and an LLM refinement pass.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		config.LoadEnvFile()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	mustBind("LOG_DEBUG", rootCmd.PersistentFlags().Lookup("debug"))
	mustBind("LOG_JSON", rootCmd.PersistentFlags().Lookup("json"))
}

func newLogger() (*zap.Logger, error) {
	return logger.New(v.GetBool("LOG_JSON"), v.GetBool("LOG_DEBUG"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
