// Package main provides the entry point for the Resume Enhancer CLI and HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	modelName  string
)

var rootCmd = &cobra.Command{
	Use:   "resume_enhancer",
	Short: "Resume Enhancer CLI and HTTP API Server",
	Long: `Resume Enhancer compares a resume with a job description using a language model,
lists the missing keywords, and rewrites the resume with the experience you confirm,
rendering the result to HTML and PDF.

Configuration is read from the environment (a .env file is loaded if present) and,
with --config, from a JSON file. Environment values take priority over the file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.json file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print detailed debug information")
	rootCmd.PersistentFlags().StringVar(&modelName, "model", "", "Model identifier (overrides LLM_MODEL)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
