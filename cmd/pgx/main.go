package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pgx-risk-server/internal/domain"
	"github.com/pgx-risk-server/internal/reference"
	"github.com/pgx-risk-server/internal/service"
	"github.com/pgx-risk-server/internal/vcf"
	"github.com/pgx-risk-server/pkg/explain"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "pgx",
		Short: "CPIC-based pharmacogenomic drug risk annotation",
		Long: "Annotates drug risk from a patient VCF using CPIC star allele " +
			"definitions, diplotype to phenotype translation and guideline lookups.",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newAnalyzeCmd(&verbose))
	cmd.AddCommand(newDrugsCmd())
	return cmd
}

func newDrugsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drugs",
		Short: "List the drugs covered by the risk annotation tables",
		Run: func(cmd *cobra.Command, args []string) {
			for _, drug := range reference.SupportedDrugs() {
				fmt.Fprintln(cmd.OutOrStdout(), drug)
			}
		},
	}
}

func newAnalyzeCmd(verbose *bool) *cobra.Command {
	var (
		patientID  string
		coMeds     []string
		inhibitors []string
		renal      bool
		hepatic    bool
		age        int
		outputDir  string
		enableLLM  bool
		apiKey     string
	)

	cmd := &cobra.Command{
		Use:   "analyze <vcf-file> <drug> [drug...]",
		Short: "Annotate drug risk for a patient VCF",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logrus.New()
			logger.SetOutput(os.Stderr)
			if *verbose {
				logger.SetLevel(logrus.DebugLevel)
			} else {
				logger.SetLevel(logrus.WarnLevel)
			}

			vcfPath, drugs := args[0], args[1:]
			if patientID == "" {
				base := filepath.Base(vcfPath)
				patientID = strings.TrimSuffix(strings.TrimSuffix(base, ".gz"), ".vcf")
			}

			parser := vcf.NewParser(logger)
			table, err := parser.ParseFile(vcfPath)
			parseOK := err == nil
			if err != nil {
				logger.WithError(err).Warn("VCF parsing failed")
				table = domain.NewVariantTable()
			}

			pctx := &domain.PatientContext{
				CoMedications:            coMeds,
				StrongRelevantInhibitors: inhibitors,
				RenalImpairment:          renal,
				HepaticImpairment:        hepatic,
			}
			if cmd.Flags().Changed("age") {
				pctx.Age = &age
			}

			annotator := service.NewAnnotator(logger)
			results := annotator.Annotate(service.AnnotateParams{
				Table:     table,
				ParseOK:   parseOK,
				PatientID: patientID,
				Drugs:     drugs,
				Context:   pctx,
			})
			reports := make([]*domain.Report, len(results))
			for i := range results {
				reports[i] = &results[i]
			}

			if enableLLM {
				key := apiKey
				if key == "" {
					key = os.Getenv("GROQ_API_KEY")
				}
				client := explain.NewClient(explain.Config{APIKey: key}, logger)
				if client == nil {
					logger.Warn("LLM explanation requested but no API key configured")
				} else {
					for _, rpt := range reports {
						rpt.Explanation = client.Explain(context.Background(), rpt)
					}
				}
			}

			for _, rpt := range reports {
				rpt.Finalize()
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(reports); err != nil {
				return fmt.Errorf("failed to encode reports: %w", err)
			}

			if outputDir != "" {
				if err := saveReports(outputDir, reports); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&patientID, "patient", "p", "", "patient identifier")
	cmd.Flags().StringSliceVar(&coMeds, "co-med", nil, "co-medication (repeatable)")
	cmd.Flags().StringSliceVar(&inhibitors, "inhibitor", nil, "strong relevant inhibitor (repeatable)")
	cmd.Flags().BoolVar(&renal, "renal-impairment", false, "patient has renal impairment")
	cmd.Flags().BoolVar(&hepatic, "hepatic-impairment", false, "patient has hepatic impairment")
	cmd.Flags().IntVar(&age, "age", 0, "patient age in years")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "directory to write one report file per drug")
	cmd.Flags().BoolVar(&enableLLM, "llm", false, "attach an LLM generated explanation to each report")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Groq API key (defaults to GROQ_API_KEY)")
	return cmd
}

func saveReports(dir string, reports []*domain.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for _, rpt := range reports {
		path := filepath.Join(dir, reportFilename(rpt))
		payload, err := json.MarshalIndent(rpt, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report for %s: %w", rpt.Drug, err)
		}
		if err := os.WriteFile(path, payload, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}

// reportFilename builds <patient>_<drug>_<timestamp>.json with the timestamp
// sanitized for use in file names.
func reportFilename(rpt *domain.Report) string {
	ts := rpt.Timestamp
	ts = strings.ReplaceAll(ts, ":", "-")
	ts = strings.ReplaceAll(ts, "+", "_")
	ts = strings.ReplaceAll(ts, ".", "-")
	if len(ts) > 19 {
		ts = ts[:19]
	}
	return fmt.Sprintf("%s_%s_%s.json", rpt.PatientID, rpt.Drug, ts)
}
