package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/resume-enhancer/internal/observability"
	"github.com/jonathan/resume-enhancer/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	enhanceInput       cycleInput
	enhanceConfirms    []string
	enhanceInteractive bool
	enhanceOutDir      string
)

var enhanceCmd = &cobra.Command{
	Use:   "enhance",
	Short: "Analyze, confirm experience and generate the enhanced resume",
	Long: `Run a full cycle: analyze the resume against the job description, record the
experience you have for each missing keyword, then generate the enhanced resume and
render it to enhanced_resume_cleaned.html and enhanced_resume.pdf.

Experience is given with --confirm keyword=description (repeatable) or answered
one keyword at a time with --interactive.`,
	Example: `  resume_enhancer enhance -r resume.pdf -j job.txt --confirm "Kubernetes=Ran 3 clusters in production"
  resume_enhancer enhance --resume-text "$(cat resume.txt)" --job-text "$(cat job.txt)" --interactive`,
	RunE: runEnhance,
}

func init() {
	addCycleFlags(enhanceCmd, &enhanceInput)
	enhanceCmd.Flags().StringArrayVar(&enhanceConfirms, "confirm", nil, "Confirmed experience as keyword=description (repeatable)")
	enhanceCmd.Flags().BoolVarP(&enhanceInteractive, "interactive", "i", false, "Ask about each missing keyword on stdin")
	enhanceCmd.Flags().StringVarP(&enhanceOutDir, "out", "o", "", "Output directory for the HTML and PDF (overrides OUTPUT_DIR)")
	enhanceCmd.MarkFlagsMutuallyExclusive("confirm", "interactive")
	rootCmd.AddCommand(enhanceCmd)
}

func runEnhance(cmd *cobra.Command, _ []string) error {
	confirmations, err := parseConfirmations(enhanceConfirms)
	if err != nil {
		return err
	}
	resumeText, err := enhanceInput.resume()
	if err != nil {
		return err
	}

	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("out") {
		cfg.OutputDir = enhanceOutDir
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	jobDescription, err := enhanceInput.jobDescription(ctx, newJobFetcher(cfg, logger))
	if err != nil {
		return err
	}

	deps, closeDeps, err := newDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDeps()

	out := cmd.OutOrStdout()
	printer := observability.NewPrinter(cmd.ErrOrStderr())
	progress := func(event session.ProgressEvent) {
		logger.Info(event.Message, zap.String("step", event.Step), zap.Int("percent", event.Percent))
	}

	sess := session.New("cli", deps)
	analysisResult, err := sess.Analyze(ctx, resumeText, jobDescription, progress)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Found %d missing keyword(s)\n", len(analysisResult.Keywords))

	if enhanceInteractive {
		confirmations, err = askConfirmations(cmd.InOrStdin(), out, analysisResult.Keywords)
		if err != nil {
			return err
		}
	}

	for _, c := range confirmations {
		if err := sess.Answer(c.keyword, true, c.description); err != nil {
			logger.Warn("skipping confirmation", zap.String("keyword", c.keyword), zap.Error(err))
		}
	}
	if err := sess.Confirm(); err != nil {
		return err
	}
	if cfg.Verbose {
		snap := sess.Snapshot()
		printer.PrintConfirmations(snap.MissingKeywords, snap.ConfirmedExperience)
	}

	result, err := sess.Enhance(ctx, progress)
	if err != nil {
		return err
	}

	if cfg.Verbose {
		printer.PrintArtifacts(result.HTMLPath, result.PDFPath, len(result.PDF))
	}
	_, _ = fmt.Fprintf(out, "HTML: %s\nPDF:  %s\n", result.HTMLPath, result.PDFPath)
	return nil
}

type confirmation struct {
	keyword     string
	description string
}

// parseConfirmations splits each keyword=description pair on the first '='
func parseConfirmations(values []string) ([]confirmation, error) {
	confirmations := make([]confirmation, 0, len(values))
	for _, v := range values {
		keyword, description, ok := strings.Cut(v, "=")
		if !ok || strings.TrimSpace(keyword) == "" || strings.TrimSpace(description) == "" {
			return nil, fmt.Errorf("invalid --confirm value %q (expected keyword=description)", v)
		}
		confirmations = append(confirmations, confirmation{
			keyword:     strings.TrimSpace(keyword),
			description: strings.TrimSpace(description),
		})
	}
	return confirmations, nil
}

// askConfirmations asks a yes/no question per keyword and, on yes, reads a
// one-line description. End of input answers no to the remaining keywords.
func askConfirmations(in io.Reader, out io.Writer, keywords []string) ([]confirmation, error) {
	scanner := bufio.NewScanner(in)
	confirmations := make([]confirmation, 0)

	readLine := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		return strings.TrimSpace(scanner.Text()), true
	}

	for _, kw := range keywords {
		_, _ = fmt.Fprintf(out, "Do you have experience with %s? [y/N] ", kw)
		answer, ok := readLine()
		if !ok {
			break
		}
		if !isYes(answer) {
			continue
		}

		_, _ = fmt.Fprintf(out, "Describe your experience with %s: ", kw)
		description, ok := readLine()
		if !ok {
			break
		}
		if description == "" {
			continue
		}
		confirmations = append(confirmations, confirmation{keyword: kw, description: description})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read answers: %w", err)
	}
	return confirmations, nil
}

func isYes(answer string) bool {
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
