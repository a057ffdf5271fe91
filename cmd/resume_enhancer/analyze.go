package main

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/resume-enhancer/internal/analysis"
	"github.com/jonathan/resume-enhancer/internal/observability"
	"github.com/jonathan/resume-enhancer/internal/session"
	"github.com/spf13/cobra"
)

var (
	analyzeInput cycleInput
	analyzeJSON  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compare a resume with a job description",
	Long: `Send the resume and job description to the language model and print the
analysis report. The missing keywords parsed from the report are listed at the end,
or with --json the report and keywords are printed as a JSON object.`,
	RunE: runAnalyze,
}

func init() {
	addCycleFlags(analyzeCmd, &analyzeInput)
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the result as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	resumeText, err := analyzeInput.resume()
	if err != nil {
		return err
	}

	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	jobDescription, err := analyzeInput.jobDescription(ctx, newJobFetcher(cfg, logger))
	if err != nil {
		return err
	}

	deps, closeDeps, err := newDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDeps()

	sess := session.New("cli", deps)
	result, err := sess.Analyze(ctx, resumeText, jobDescription, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if analyzeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	_, _ = fmt.Fprintln(out, result.Report)
	if cfg.Verbose {
		score, ok := analysis.ExtractATSScore(result.Report)
		observability.NewPrinter(cmd.ErrOrStderr()).PrintAnalysisSummary(result.Keywords, score, ok)
		return nil
	}

	_, _ = fmt.Fprintf(out, "\nMissing keywords (%d):\n", len(result.Keywords))
	for _, kw := range result.Keywords {
		_, _ = fmt.Fprintf(out, "  - %s\n", kw)
	}
	return nil
}
