package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/resume-enhancer/internal/extraction"
	"github.com/jonathan/resume-enhancer/internal/jobpost"
	"github.com/spf13/cobra"
)

// cycleInput holds the resume and job description flags shared by analyze and enhance
type cycleInput struct {
	resumePath string
	resumeText string
	manual     extraction.ManualFields
	jobPath    string
	jobText    string
	jobURL     string
}

func addCycleFlags(cmd *cobra.Command, in *cycleInput) {
	cmd.Flags().StringVarP(&in.resumePath, "resume", "r", "", "Path to resume file (.pdf or .docx)")
	cmd.Flags().StringVar(&in.resumeText, "resume-text", "", "Resume as plain text")
	cmd.Flags().StringVar(&in.manual.Summary, "summary", "", "Professional summary (manual entry)")
	cmd.Flags().StringVar(&in.manual.Skills, "skills", "", "Skills (manual entry)")
	cmd.Flags().StringVar(&in.manual.Experience, "experience", "", "Experience (manual entry)")
	cmd.Flags().StringVarP(&in.jobPath, "job", "j", "", "Path to job description text file")
	cmd.Flags().StringVar(&in.jobText, "job-text", "", "Job description as plain text")
	cmd.Flags().StringVar(&in.jobURL, "job-url", "", "URL of the job posting to fetch")

	cmd.MarkFlagsMutuallyExclusive("resume", "resume-text")
	cmd.MarkFlagsMutuallyExclusive("job", "job-text", "job-url")
}

// resume returns the resume text from whichever input method was used
func (in *cycleInput) resume() (string, error) {
	manualUsed := in.manual != (extraction.ManualFields{})

	switch {
	case in.resumePath != "" && manualUsed, in.resumeText != "" && manualUsed:
		return "", fmt.Errorf("use either a resume file/text or the manual entry flags, not both")
	case in.resumePath != "":
		data, err := os.ReadFile(in.resumePath)
		if err != nil {
			return "", fmt.Errorf("failed to read resume file %s: %w", in.resumePath, err)
		}
		return extraction.FromUpload(filepath.Base(in.resumePath), data)
	case in.resumeText != "":
		return in.resumeText, nil
	case manualUsed:
		return extraction.FromManual(in.manual), nil
	default:
		return "", fmt.Errorf("a resume is required: use --resume, --resume-text or --summary/--skills/--experience")
	}
}

// jobDescription returns the job description text, fetching the posting
// when --job-url was given
func (in *cycleInput) jobDescription(ctx context.Context, fetcher *jobpost.Fetcher) (string, error) {
	switch {
	case in.jobURL != "":
		posting, err := fetcher.Fetch(ctx, in.jobURL)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(posting.Text) == "" {
			return "", fmt.Errorf("no job description text found at %s", in.jobURL)
		}
		return posting.Text, nil
	case in.jobPath != "":
		data, err := os.ReadFile(in.jobPath)
		if err != nil {
			return "", fmt.Errorf("failed to read job description file %s: %w", in.jobPath, err)
		}
		return string(data), nil
	case in.jobText != "":
		return in.jobText, nil
	default:
		return "", fmt.Errorf("a job description is required: use --job, --job-text or --job-url")
	}
}
