package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/medsynth/medsynth/pkg/generator"
	"github.com/medsynth/medsynth/pkg/models"
)

func newGenerateCmd(ro *rootOptions) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate synthetic entities as JSON",
	}
	cmd.PersistentFlags().StringVarP(&outPath, "out", "o", "", "write JSON to this file instead of stdout")

	cmd.AddCommand(
		newGeneratePatientCmd(ro, &outPath),
		newGenerateProviderCmd(ro, &outPath),
		newGenerateInsuranceCmd(ro, &outPath),
		newGeneratePolicyCmd(ro, &outPath),
		newGenerateClaimCmd(ro, &outPath),
		newGenerateVisitsCmd(ro, &outPath),
		newGenerateHistoryCmd(ro, &outPath),
		newGenerateLabsCmd(ro, &outPath),
		newGenerateRecordCmd(ro, &outPath),
	)
	return cmd
}

// runGenerate wires the app, resolves the model config and writes the
// value produced by fn.
func runGenerate(ctx context.Context, ro *rootOptions, outPath string, fn func(context.Context, *app, models.ModelConfig) (any, error)) error {
	a, err := newApp(ctx, ro)
	if err != nil {
		return err
	}
	defer a.Close()

	mc, err := a.modelConfig(ctx)
	if err != nil {
		return err
	}
	v, err := fn(ctx, a, mc)
	if err != nil {
		return err
	}
	return writeJSON(outPath, v)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	data = append(data, '\n')
	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// readJSONFile decodes path into a new T. An empty path yields nil.
func readJSONFile[T any](path string) (*T, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &v, nil
}

func parseComplexity(s string) (models.Complexity, error) {
	switch c := models.Complexity(strings.ToLower(s)); c {
	case "", models.ComplexityLow, models.ComplexityMedium, models.ComplexityHigh:
		return c, nil
	}
	return "", fmt.Errorf("complexity must be low, medium or high, got %q", s)
}

func labTypes(raw []string) []models.LabTestType {
	out := make([]models.LabTestType, 0, len(raw))
	for _, r := range raw {
		for _, t := range strings.Split(r, ",") {
			if t = strings.TrimSpace(t); t != "" {
				out = append(out, models.LabTestType(strings.ToUpper(t)))
			}
		}
	}
	return out
}

func newGeneratePatientCmd(ro *rootOptions, outPath *string) *cobra.Command {
	var (
		opts       models.PatientOptions
		complexity string
	)
	cmd := &cobra.Command{
		Use:   "patient",
		Short: "Generate a patient demographic record",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := parseComplexity(complexity)
			if err != nil {
				return err
			}
			opts.Complexity = c
			return runGenerate(cmd.Context(), ro, *outPath, func(ctx context.Context, a *app, mc models.ModelConfig) (any, error) {
				return a.gen.GeneratePatient(ctx, mc, opts)
			})
		},
	}
	cmd.Flags().IntVar(&opts.AgeMin, "age-min", 0, "minimum age in years")
	cmd.Flags().IntVar(&opts.AgeMax, "age-max", 0, "maximum age in years")
	cmd.Flags().StringVar(&opts.Gender, "gender", "", "male, female or other")
	cmd.Flags().StringVar(&opts.State, "state", "", "two-letter US state")
	cmd.Flags().StringVar(&complexity, "complexity", "", "low, medium or high")
	return cmd
}

func newGenerateProviderCmd(ro *rootOptions, outPath *string) *cobra.Command {
	var opts models.ProviderOptions
	cmd := &cobra.Command{
		Use:   "provider",
		Short: "Generate a healthcare provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), ro, *outPath, func(ctx context.Context, a *app, mc models.ModelConfig) (any, error) {
				return a.gen.GenerateProvider(ctx, mc, opts)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Specialty, "specialty", "", "medical specialty")
	cmd.Flags().StringVar(&opts.State, "state", "", "two-letter US state")
	cmd.Flags().StringVar(&opts.FacilityType, "facility-type", "", "clinic, hospital, urgent care...")
	return cmd
}

func insuranceFlags(cmd *cobra.Command, opts *models.InsuranceOptions) {
	cmd.Flags().StringVar(&opts.PlanType, "plan-type", "", "HMO, PPO, EPO, POS, HDHP, Medicare, Medicaid or Tricare")
	cmd.Flags().StringVar(&opts.SubscriberName, "subscriber", "", "subscriber full name")
	cmd.Flags().StringVar(&opts.SubscriberDateOfBirth, "subscriber-dob", "", "subscriber date of birth (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.State, "state", "", "two-letter US state")
}

func newGenerateInsuranceCmd(ro *rootOptions, outPath *string) *cobra.Command {
	var opts models.InsuranceOptions
	cmd := &cobra.Command{
		Use:   "insurance",
		Short: "Generate primary and optional secondary coverage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), ro, *outPath, func(ctx context.Context, a *app, mc models.ModelConfig) (any, error) {
				return a.gen.GenerateInsurance(ctx, mc, opts)
			})
		},
	}
	insuranceFlags(cmd, &opts)
	cmd.Flags().BoolVar(&opts.IncludeSecondary, "secondary", false, "also generate a secondary policy")
	return cmd
}

func newGeneratePolicyCmd(ro *rootOptions, outPath *string) *cobra.Command {
	var opts models.InsuranceOptions
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Generate a single insurance policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), ro, *outPath, func(ctx context.Context, a *app, mc models.ModelConfig) (any, error) {
				return a.gen.GenerateInsurancePolicy(ctx, mc, opts)
			})
		},
	}
	insuranceFlags(cmd, &opts)
	return cmd
}

func newGenerateClaimCmd(ro *rootOptions, outPath *string) *cobra.Command {
	var (
		opts                                  models.ClaimOptions
		complexity                            string
		patientPath, providerPath, policyPath string
	)
	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Generate a CMS-1500 professional claim",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := parseComplexity(complexity)
			if err != nil {
				return err
			}
			opts.Complexity = c
			if opts.Patient, err = readJSONFile[models.Patient](patientPath); err != nil {
				return err
			}
			if opts.Provider, err = readJSONFile[models.Provider](providerPath); err != nil {
				return err
			}
			if opts.Insurance, err = readJSONFile[models.InsuranceInfo](policyPath); err != nil {
				return err
			}
			return runGenerate(cmd.Context(), ro, *outPath, func(ctx context.Context, a *app, mc models.ModelConfig) (any, error) {
				return a.gen.GenerateCMS1500(ctx, mc, opts)
			})
		},
	}
	cmd.Flags().IntVar(&opts.ServiceLineCount, "lines", 1, "number of service lines")
	cmd.Flags().StringVar(&opts.DateOfService, "date-of-service", "", "date of service (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&complexity, "complexity", "", "low, medium or high")
	cmd.Flags().StringVar(&patientPath, "patient", "", "patient JSON file to attach")
	cmd.Flags().StringVar(&providerPath, "provider", "", "provider JSON file to attach")
	cmd.Flags().StringVar(&policyPath, "insurance", "", "insurance JSON file to attach")
	return cmd
}

func newGenerateVisitsCmd(ro *rootOptions, outPath *string) *cobra.Command {
	var (
		opts                      models.VisitOptions
		complexity                string
		patientPath, providerPath string
	)
	cmd := &cobra.Command{
		Use:   "visits",
		Short: "Generate a chronological series of visit reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := parseComplexity(complexity)
			if err != nil {
				return err
			}
			opts.Complexity = c
			if opts.Patient, err = readJSONFile[models.Patient](patientPath); err != nil {
				return err
			}
			if opts.Provider, err = readJSONFile[models.Provider](providerPath); err != nil {
				return err
			}
			return runGenerate(cmd.Context(), ro, *outPath, func(ctx context.Context, a *app, mc models.ModelConfig) (any, error) {
				return a.gen.GenerateVisitReports(ctx, mc, opts, func(index int, _ *models.VisitReport, err error, current, total int) {
					reportProgress(current, total, fmt.Sprintf("visit %d", index+1), err)
				})
			})
		},
	}
	cmd.Flags().IntVar(&opts.Count, "count", 1, "number of visits")
	cmd.Flags().StringVar(&opts.VisitType, "visit-type", "", "e.g. annual physical, follow-up")
	cmd.Flags().StringVar(&opts.StartDate, "start-date", "", "date of the first visit (YYYY-MM-DD)")
	cmd.Flags().StringVar(&complexity, "complexity", "", "low, medium or high")
	cmd.Flags().StringVar(&patientPath, "patient", "", "patient JSON file for context")
	cmd.Flags().StringVar(&providerPath, "provider", "", "provider JSON file for context")
	return cmd
}

func newGenerateHistoryCmd(ro *rootOptions, outPath *string) *cobra.Command {
	var (
		opts        models.HistoryOptions
		complexity  string
		patientPath string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Generate a medical history",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := parseComplexity(complexity)
			if err != nil {
				return err
			}
			opts.Complexity = c
			if opts.Patient, err = readJSONFile[models.Patient](patientPath); err != nil {
				return err
			}
			return runGenerate(cmd.Context(), ro, *outPath, func(ctx context.Context, a *app, mc models.ModelConfig) (any, error) {
				return a.gen.GenerateMedicalHistory(ctx, mc, opts)
			})
		},
	}
	cmd.Flags().StringVar(&complexity, "complexity", "", "low, medium or high")
	cmd.Flags().StringVar(&patientPath, "patient", "", "patient JSON file for context")
	cmd.Flags().StringSliceVar(&opts.Conditions, "condition", nil, "condition to include (repeatable)")
	return cmd
}

func newGenerateLabsCmd(ro *rootOptions, outPath *string) *cobra.Command {
	var (
		opts                      models.LabOptions
		complexity                string
		tests                     []string
		patientPath, providerPath string
		listPanels                bool
	)
	cmd := &cobra.Command{
		Use:   "labs",
		Short: "Generate laboratory reports for one or more panels",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listPanels {
				for _, p := range generator.LabPanels() {
					fmt.Printf("%-6s %s (%s)\n", p.Type, p.Name, p.Specimen)
				}
				return nil
			}
			c, err := parseComplexity(complexity)
			if err != nil {
				return err
			}
			opts.Complexity = c
			if opts.Patient, err = readJSONFile[models.Patient](patientPath); err != nil {
				return err
			}
			if opts.Provider, err = readJSONFile[models.Provider](providerPath); err != nil {
				return err
			}
			types := labTypes(tests)
			if len(types) == 0 {
				return errors.New("at least one --test is required")
			}
			return runGenerate(cmd.Context(), ro, *outPath, func(ctx context.Context, a *app, mc models.ModelConfig) (any, error) {
				reports, err := a.gen.GenerateLaboratoryReports(ctx, mc, opts, types, func(t models.LabTestType, r *models.LaboratoryReport, current, total int) {
					var err error
					if r == nil {
						err = errors.New("failed")
					}
					reportProgress(current, total, string(t), err)
				})
				if err != nil {
					return nil, err
				}
				if len(reports) == 0 {
					return nil, errors.New("every requested panel failed")
				}
				return reports, nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&tests, "test", "t", []string{"CBC"}, "panel code (repeatable or comma-separated)")
	cmd.Flags().StringVar(&opts.CollectionDate, "collection-date", "", "collection date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&opts.IncludeAbnormal, "abnormal", false, "include some out-of-range results")
	cmd.Flags().StringVar(&complexity, "complexity", "", "low, medium or high")
	cmd.Flags().StringVar(&patientPath, "patient", "", "patient JSON file for context")
	cmd.Flags().StringVar(&providerPath, "provider", "", "ordering provider JSON file")
	cmd.Flags().BoolVar(&listPanels, "list", false, "list known panels and exit")
	return cmd
}

func newGenerateRecordCmd(ro *rootOptions, outPath *string) *cobra.Command {
	var (
		opts       models.RecordOptions
		complexity string
		tests      []string
	)
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Generate and assemble a complete patient record",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := parseComplexity(complexity)
			if err != nil {
				return err
			}
			opts.Complexity = c
			opts.LabTests = labTypes(tests)
			return runGenerate(cmd.Context(), ro, *outPath, func(ctx context.Context, a *app, mc models.ModelConfig) (any, error) {
				return a.gen.GenerateRecord(ctx, mc, opts, func(e generator.RecordEvent) {
					label := string(e.Kind)
					if e.Item != "" {
						label += " " + e.Item
					}
					reportProgress(e.Current, e.Total, label, e.Err)
				})
			})
		},
	}
	cmd.Flags().IntVar(&opts.Patient.AgeMin, "age-min", 0, "minimum patient age")
	cmd.Flags().IntVar(&opts.Patient.AgeMax, "age-max", 0, "maximum patient age")
	cmd.Flags().StringVar(&opts.Patient.Gender, "gender", "", "male, female or other")
	cmd.Flags().StringVar(&opts.Patient.State, "state", "", "two-letter US state")
	cmd.Flags().StringVar(&opts.Provider.Specialty, "specialty", "", "provider specialty")
	cmd.Flags().StringVar(&opts.Insurance.PlanType, "plan-type", "", "primary plan type")
	cmd.Flags().BoolVar(&opts.Insurance.IncludeSecondary, "secondary", false, "include secondary coverage")
	cmd.Flags().BoolVar(&opts.IncludeHistory, "history", true, "include a medical history")
	cmd.Flags().IntVar(&opts.VisitCount, "visits", 2, "number of visit reports")
	cmd.Flags().StringSliceVarP(&tests, "test", "t", []string{"CBC", "BMP"}, "lab panel code (repeatable or comma-separated)")
	cmd.Flags().StringVar(&complexity, "complexity", "", "low, medium or high")
	return cmd
}

func reportProgress(current, total int, label string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "[%d/%d] %s: failed (%v)\n", current, total, label, err)
		return
	}
	fmt.Fprintf(os.Stderr, "[%d/%d] %s: done\n", current, total, label)
}
