package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"iracgo/internal/config"
	"iracgo/internal/extract"
	"iracgo/internal/prompt"
)

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file.pdf>",
		Short: "Print the text extracted from a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := extractFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func newPromptCmd(opts *rootOptions) *cobra.Command {
	var role, caseName, docket string

	cmd := &cobra.Command{
		Use:   "prompt <file.pdf>",
		Short: "Render the prompt for a PDF without calling the completion service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Read(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			text, err := extractFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			builder, err := prompt.NewBuilder(cfg.BasicConfig.PromptCharBudget)
			if err != nil {
				return err
			}
			out, err := builder.Render(cmd.Context(), prompt.NewCaseRequest(role, caseName, docket), text)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "student", "student, law_student or paralegal")
	cmd.Flags().StringVar(&caseName, "case-name", "", "case name shown in the prompt")
	cmd.Flags().StringVar(&docket, "docket", "", "docket number")
	return cmd
}

func extractFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	extractor, err := extract.NewExtractor(ctx)
	if err != nil {
		return "", err
	}
	text, err := extractor.Extract(ctx, filepath.Base(path), data)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", path, err)
	}
	return text, nil
}
