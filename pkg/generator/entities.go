package generator

import (
	"context"
	"fmt"

	"github.com/medsynth/medsynth/pkg/models"
)

// GeneratePatient generates one patient. The name is "Last, First" and the
// age is derived from the date of birth.
func (g *Generator) GeneratePatient(ctx context.Context, cfg models.ModelConfig, opts models.PatientOptions) (*models.Patient, error) {
	return generate(ctx, g, cfg, job{
		kind:   models.KindPatient,
		key:    []any{opts},
		prompt: g.patientPrompt(opts),
	}, g.normalizePatient, nil)
}

// GenerateProvider generates one provider.
func (g *Generator) GenerateProvider(ctx context.Context, cfg models.ModelConfig, opts models.ProviderOptions) (*models.Provider, error) {
	return generate(ctx, g, cfg, job{
		kind:   models.KindProvider,
		key:    []any{opts},
		prompt: providerPrompt(opts),
	}, g.normalizeProvider, nil)
}

// GenerateInsurancePolicy generates a single policy.
func (g *Generator) GenerateInsurancePolicy(ctx context.Context, cfg models.ModelConfig, opts models.InsuranceOptions) (*models.InsurancePolicy, error) {
	return generate(ctx, g, cfg, job{
		kind:   models.KindInsurancePolicy,
		key:    []any{opts},
		prompt: g.insurancePrompt(opts, true),
	}, func(p *models.InsurancePolicy) { normalizePolicy(g, p, opts) }, func(p *models.InsurancePolicy) []string {
		return checkPolicy(string(models.KindInsurancePolicy), p)
	})
}

// GenerateInsurance generates primary coverage and, when requested, a
// secondary policy.
func (g *Generator) GenerateInsurance(ctx context.Context, cfg models.ModelConfig, opts models.InsuranceOptions) (*models.InsuranceInfo, error) {
	return generate(ctx, g, cfg, job{
		kind:   models.KindInsurance,
		key:    []any{opts},
		prompt: g.insurancePrompt(opts, false),
	}, func(info *models.InsuranceInfo) { g.normalizeInsurance(info, opts) }, func(info *models.InsuranceInfo) []string {
		errs := checkPolicy("insurance.primary", &info.Primary)
		if info.Secondary != nil {
			errs = append(errs, checkPolicy("insurance.secondary", info.Secondary)...)
		}
		return errs
	})
}

// GenerateCMS1500 generates a claim. Patient, provider and insurance given
// in opts are attached as snapshots in place of anything the model wrote.
func (g *Generator) GenerateCMS1500(ctx context.Context, cfg models.ModelConfig, opts models.ClaimOptions) (*models.CMS1500Claim, error) {
	return generate(ctx, g, cfg, job{
		kind:   models.KindCMS1500,
		key:    []any{opts},
		prompt: g.claimPrompt(opts),
		prepare: func(data map[string]any) {
			if opts.Patient != nil {
				delete(data, "patient")
			}
			if opts.Provider != nil {
				delete(data, "provider")
			}
			if opts.Insurance != nil {
				delete(data, "insurance")
			}
		},
	}, func(c *models.CMS1500Claim) { g.normalizeClaim(c, opts) }, checkClaim)
}

// GenerateMedicalHistory generates a medical history.
func (g *Generator) GenerateMedicalHistory(ctx context.Context, cfg models.ModelConfig, opts models.HistoryOptions) (*models.MedicalHistory, error) {
	return generate(ctx, g, cfg, job{
		kind:   models.KindMedicalHistory,
		key:    []any{opts},
		prompt: g.historyPrompt(opts),
	}, g.normalizeHistory, nil)
}

func checkPolicy(path string, p *models.InsurancePolicy) []string {
	if p.ExpirationDate != "" && p.ExpirationDate < p.EffectiveDate {
		return []string{path + ".expirationDate: precedes effectiveDate"}
	}
	return nil
}

func checkClaim(c *models.CMS1500Claim) []string {
	var errs []string
	for i, l := range c.ServiceLines {
		if l.DateOfServiceTo < l.DateOfServiceFrom {
			errs = append(errs, fmt.Sprintf("cms1500.serviceLines[%d].dateOfServiceTo: precedes dateOfServiceFrom", i))
		}
	}
	return errs
}
