package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/obsidiansec/bountyhound/api/schemas"
	"github.com/obsidiansec/bountyhound/internal/analysis"
	"github.com/obsidiansec/bountyhound/internal/backends"
	"github.com/obsidiansec/bountyhound/internal/config"
	"github.com/obsidiansec/bountyhound/internal/llmclient"
	"github.com/obsidiansec/bountyhound/internal/network"
	"github.com/obsidiansec/bountyhound/internal/observability"
	"github.com/obsidiansec/bountyhound/internal/orchestrator"
	"github.com/obsidiansec/bountyhound/internal/reporting"
	"github.com/obsidiansec/bountyhound/internal/scan"
)

// newScanCmd creates and configures the `scan` command.
func newScanCmd() *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan [target]",
		Short: "Runs the discovery pipeline against a target URL",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags so command-line values override config file and env
			// with the right precedence.
			if err := viper.BindPFlag("scanners.crawlscan.enabled", cmd.Flags().Lookup("crawlscan")); err != nil {
				return err
			}
			if err := viper.BindPFlag("scanners.sentrypro.enabled", cmd.Flags().Lookup("sentrypro")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Use the context passed from main (signal-aware).
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}

			target, err := buildTarget(args[0],
				viper.GetString("profile"),
				viper.GetStringSlice("focus"))
			if err != nil {
				return err
			}

			logger.Info("Starting discovery run",
				zap.String("target", target.URL),
				zap.String("profile", string(target.Profile.Kind)))

			orch, err := buildPipeline(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize pipeline: %w", err)
			}

			run := orch.RunDiscovery(ctx, target)

			if outputPath := viper.GetString("output"); outputPath != "" && run.Report != nil {
				data, err := reporting.ToJSON(run.Report)
				if err != nil {
					return fmt.Errorf("failed to serialize report: %w", err)
				}
				if err := os.WriteFile(outputPath, data, 0o644); err != nil {
					return fmt.Errorf("failed to write report: %w", err)
				}
				logger.Info("Report written", zap.String("path", outputPath))
			}

			printRunSummary(run)
			if !run.Success {
				return fmt.Errorf("discovery run %s: %s", run.State, run.Error)
			}
			return nil
		},
	}

	scanCmd.Flags().StringP("profile", "p", "quick", "Scan profile: 'quick' or 'deep'.")
	scanCmd.Flags().StringSlice("focus", nil, "Vulnerability classes to focus on (default: the profile's set).")
	scanCmd.Flags().StringP("output", "o", "", "Output file path for the JSON report. If unset, no report file is written.")
	scanCmd.Flags().Bool("crawlscan", false, "Enable the crawlscan remote backend. (Overrides config/env)")
	scanCmd.Flags().Bool("sentrypro", false, "Enable the sentrypro remote backend. (Overrides config/env)")

	return scanCmd
}

func init() {
	rootCmd.AddCommand(newScanCmd())
}

// buildTarget assembles the immutable run target from the CLI inputs.
func buildTarget(rawURL, profileName string, focus []string) (schemas.Target, error) {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}

	var profile schemas.ScanProfile
	switch strings.ToLower(profileName) {
	case "quick", "":
		profile = schemas.QuickProfile()
	case "deep":
		profile = schemas.DeepProfile()
	default:
		return schemas.Target{}, fmt.Errorf("unknown profile %q (expected 'quick' or 'deep')", profileName)
	}

	if len(focus) > 0 {
		classes := make([]schemas.VulnClass, 0, len(focus))
		for _, f := range focus {
			classes = append(classes, schemas.VulnClass(strings.ToLower(strings.TrimSpace(f))))
		}
		profile.Focus = classes
	}

	return schemas.Target{URL: rawURL, Profile: profile}, nil
}

// buildPipeline is the composition root: it wires the shared HTTP client, the
// enabled scanner backends and the three pipeline stages together.
func buildPipeline(cfg *config.Config, logger *zap.Logger) (*orchestrator.Orchestrator, error) {
	httpClient := network.NewClient(cfg.HTTP, logger)
	limiter := rate.NewLimiter(rate.Limit(cfg.HTTP.RequestsPerSecond), cfg.HTTP.Burst)

	var enabled []schemas.Backend
	if cfg.Scanners.Signature.Enabled {
		coordinator := scan.NewCoordinator(httpClient, limiter, logger)
		enabled = append(enabled, backends.NewSignatureBackend(coordinator, logger))
	}
	if cfg.Scanners.CrawlScan.Enabled {
		enabled = append(enabled, backends.NewCrawlScanBackend(httpClient, cfg.Scanners.CrawlScan, logger))
	}
	if cfg.Scanners.SentryPro.Enabled {
		enabled = append(enabled, backends.NewSentryProBackend(httpClient, cfg.Scanners.SentryPro, logger))
	}
	if cfg.Scanners.Heuristic.Enabled {
		enabled = append(enabled, backends.NewHeuristicBackend(httpClient, logger))
	}

	scanStage, err := backends.NewOrchestrator(logger, enabled...)
	if err != nil {
		return nil, err
	}

	summarizer, err := llmclient.NewFromConfig(cfg.LLM, logger)
	if err != nil {
		return nil, err
	}

	return orchestrator.New(
		scanStage,
		analysis.New(summarizer, logger),
		reporting.New(summarizer, logger),
		cfg.Pipeline,
		logger,
	)
}

// printRunSummary writes the human-facing run outcome to stdout.
func printRunSummary(run *schemas.DiscoveryRun) {
	fmt.Printf("\nDiscovery run %s finished: %s (%.1fs)\n", run.ID, run.State, run.Duration.Seconds())
	if run.Scan != nil {
		fmt.Printf("  Scanners: %s\n", strings.Join(run.Scan.ScannersUsed, ", "))
		fmt.Printf("  Findings: %d\n", len(run.Scan.Findings))
		for _, e := range run.Scan.Errors {
			fmt.Printf("  Scanner error: %s\n", e)
		}
		for _, n := range run.Scan.Notes {
			fmt.Printf("  Note: %s\n", n)
		}
	}
	if run.Analysis != nil {
		fmt.Printf("  Vulnerabilities: %d\n", len(run.Analysis.Vulnerabilities))
	}
	if run.Report != nil {
		fmt.Printf("  Risk level: %s\n", run.Report.RiskLevel)
		fmt.Printf("  Summary: %s\n", run.Report.ExecutiveSummary)
	}
	if run.Error != "" {
		fmt.Printf("  Error: %s\n", run.Error)
	}
}
