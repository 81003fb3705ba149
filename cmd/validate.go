package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/obsidiansec/bountyhound/api/schemas"
	"github.com/obsidiansec/bountyhound/internal/observability"
	"github.com/obsidiansec/bountyhound/internal/validation"
)

// newValidateCmd creates and configures the `validate` command. It runs the
// intake validation workflow over a single bug report against an existing
// corpus, both supplied as JSON files.
func newValidateCmd() *cobra.Command {
	validateCmd := &cobra.Command{
		Use:   "validate [bug.json]",
		Short: "Validates a reported bug against an existing corpus",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			bug, err := readBugReport(args[0])
			if err != nil {
				return err
			}

			var existing []schemas.BugReport
			if corpusPath := viper.GetString("corpus"); corpusPath != "" {
				existing, err = readBugCorpus(corpusPath)
				if err != nil {
					return err
				}
			}

			logger.Info("Validating bug report",
				zap.String("bug_id", bug.ID),
				zap.Int("corpus_size", len(existing)))

			validator := validation.New(logger)
			result := validator.Validate(bug, existing)

			printValidationResult(bug, result)
			return nil
		},
	}

	validateCmd.Flags().String("corpus", "", "JSON file with the existing bug corpus to deduplicate against.")
	return validateCmd
}

func init() {
	rootCmd.AddCommand(newValidateCmd())
}

func readBugReport(path string) (schemas.BugReport, error) {
	var bug schemas.BugReport
	data, err := os.ReadFile(path)
	if err != nil {
		return bug, fmt.Errorf("failed to read bug report: %w", err)
	}
	if err := json.Unmarshal(data, &bug); err != nil {
		return bug, fmt.Errorf("failed to parse bug report: %w", err)
	}
	return bug, nil
}

func readBugCorpus(path string) ([]schemas.BugReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bug corpus: %w", err)
	}
	var corpus []schemas.BugReport
	if err := json.Unmarshal(data, &corpus); err != nil {
		return nil, fmt.Errorf("failed to parse bug corpus: %w", err)
	}
	return corpus, nil
}

func printValidationResult(bug schemas.BugReport, result schemas.ValidationResult) {
	fmt.Printf("\nBug %s: %s\n", bug.ID, strings.ToUpper(string(result.Status)))
	fmt.Printf("  Score: %.2f\n", result.ValidationScore)
	fmt.Printf("  Valid: %t, Duplicate: %t\n", result.IsValid, result.IsDuplicate)
	if len(result.StepsCompleted) > 0 {
		fmt.Printf("  Steps: %s\n", strings.Join(result.StepsCompleted, ", "))
	}
	for _, issue := range result.Issues {
		fmt.Printf("  Issue: %s\n", issue)
	}
}
