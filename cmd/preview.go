package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"crc-quiz-server/cases"
	"crc-quiz-server/exam"
	"crc-quiz-server/models"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Print a generated exam with its answer key",
	Long: `Generate an exam from the case workbook and print every question with
its answer and distractor categories.

Useful for checking a new workbook before it goes live. Nothing is stored.`,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().String("cases", "", "Case workbook (overrides DATA.CASES_PATH)")
	previewCmd.Flags().Int("count", 10, "Number of questions")
	previewCmd.Flags().String("strategy", exam.StrategyCoverage, "coverage or plain")
	previewCmd.Flags().String("indicator", "", "Indicator filter (substring)")
	previewCmd.Flags().String("phase", "", "Phase filter (exact)")
	previewCmd.Flags().Int64("seed", 0, "Seed (default: the strategy's fixed seed)")
}

func runPreview(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("cases")
	if path == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		path = cfg.Data.CasesPath
	}
	rows, err := cases.LoadXLSX(path)
	if err != nil {
		return err
	}

	count, _ := cmd.Flags().GetInt("count")
	strategy, _ := cmd.Flags().GetString("strategy")
	opts := exam.Options{Count: count}
	opts.Indicator, _ = cmd.Flags().GetString("indicator")
	opts.Phase, _ = cmd.Flags().GetString("phase")
	if cmd.Flags().Changed("seed") {
		seed, _ := cmd.Flags().GetInt64("seed")
		opts.Seed = exam.SeedPtr(seed)
	}

	questions, err := exam.Assemble(strategy, rows, opts)
	if err != nil {
		return err
	}
	printQuestions(cmd, questions)
	return nil
}

func printQuestions(cmd *cobra.Command, questions []models.Question) {
	out := cmd.OutOrStdout()
	for _, q := range questions {
		fmt.Fprintf(out, "── %d. [%s %s] %s\n", q.Index, q.Metadata.IndicatorID, q.Metadata.IndicatorName, q.Stem)
		for _, l := range models.Letters {
			mark := " "
			if l == q.Answer {
				mark = "*"
			}
			fmt.Fprintf(out, "  %s%s. %s\n", mark, l, q.Options.Get(l))
		}
		cats := make([]string, len(q.Metadata.ErrorCategories))
		for i, c := range q.Metadata.ErrorCategories {
			cats[i] = string(c)
		}
		fmt.Fprintf(out, "  distractors: %s\n\n", strings.Join(cats, "、"))
	}
	fmt.Fprintf(out, "%d questions\n", len(questions))
}
