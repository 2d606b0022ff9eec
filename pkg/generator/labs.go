package generator

import (
	"context"

	"github.com/medsynth/medsynth/pkg/completion"
	"github.com/medsynth/medsynth/pkg/models"
)

// LabPanel describes a laboratory panel the model is asked to report.
type LabPanel struct {
	Type     models.LabTestType
	Name     string
	Specimen string
	Analytes []string
}

var labCatalog = []LabPanel{
	{"CBC", "Complete Blood Count", "Whole blood (EDTA)", []string{"WBC", "RBC", "Hemoglobin", "Hematocrit", "MCV", "MCH", "MCHC", "RDW", "Platelets"}},
	{"BMP", "Basic Metabolic Panel", "Serum", []string{"Glucose", "BUN", "Creatinine", "Sodium", "Potassium", "Chloride", "CO2", "Calcium"}},
	{"CMP", "Comprehensive Metabolic Panel", "Serum", []string{"Glucose", "BUN", "Creatinine", "Sodium", "Potassium", "Chloride", "CO2", "Calcium", "Total Protein", "Albumin", "Total Bilirubin", "Alkaline Phosphatase", "AST", "ALT"}},
	{"LIPID", "Lipid Panel", "Serum (fasting)", []string{"Total Cholesterol", "LDL Cholesterol", "HDL Cholesterol", "Triglycerides"}},
	{"TSH", "Thyroid Stimulating Hormone", "Serum", []string{"TSH", "Free T4"}},
	{"HBA1C", "Hemoglobin A1c", "Whole blood (EDTA)", []string{"Hemoglobin A1c", "Estimated Average Glucose"}},
	{"UA", "Urinalysis", "Urine (clean catch)", []string{"Color", "Clarity", "Specific Gravity", "pH", "Protein", "Glucose", "Ketones", "Blood", "Leukocyte Esterase", "Nitrite"}},
	{"LFT", "Liver Function Tests", "Serum", []string{"Total Bilirubin", "Direct Bilirubin", "Alkaline Phosphatase", "AST", "ALT", "Albumin", "Total Protein"}},
	{"COAG", "Coagulation Panel", "Plasma (citrate)", []string{"PT", "INR", "aPTT", "Fibrinogen"}},
}

// LabPanels returns the known panels in catalog order.
func LabPanels() []LabPanel {
	out := make([]LabPanel, len(labCatalog))
	copy(out, labCatalog)
	return out
}

// LookupLabPanel returns the catalog entry for t. Unknown types get a bare
// panel named after the type.
func LookupLabPanel(t models.LabTestType) (LabPanel, bool) {
	for _, p := range labCatalog {
		if p.Type == t {
			return p, true
		}
	}
	return LabPanel{Type: t, Name: string(t)}, false
}

// LabProgressFunc is called once per requested test type. report is nil when
// that panel failed. current counts from 1 to total.
type LabProgressFunc func(testType models.LabTestType, report *models.LaboratoryReport, current, total int)

// GenerateLaboratoryReport generates one panel.
func (g *Generator) GenerateLaboratoryReport(ctx context.Context, cfg models.ModelConfig, opts models.LabOptions, testType models.LabTestType) (*models.LaboratoryReport, error) {
	panel, _ := LookupLabPanel(testType)
	return generate(ctx, g, cfg, job{
		kind:   models.KindLabReport,
		key:    []any{opts, testType},
		prompt: g.labPrompt(opts, panel),
	}, func(r *models.LaboratoryReport) { g.normalizeLab(r, opts, testType) }, func(r *models.LaboratoryReport) []string {
		if r.ReportDate < r.CollectionDate {
			return []string{"lab_report.reportDate: precedes collectionDate"}
		}
		return nil
	})
}

// GenerateLaboratoryReports generates each panel in turn. A failing panel
// is reported through onProgress and left out of the result; it never
// stops the others. An unusable cfg fails the whole batch before any
// panel is attempted, and cancellation stops it between panels.
func (g *Generator) GenerateLaboratoryReports(ctx context.Context, cfg models.ModelConfig, opts models.LabOptions, testTypes []models.LabTestType, onProgress LabProgressFunc) (map[models.LabTestType]*models.LaboratoryReport, error) {
	if err := completion.ValidateConfig(cfg); err != nil {
		return nil, &GenerationError{Kind: models.KindLabReport, Err: err}
	}
	reports := make(map[models.LabTestType]*models.LaboratoryReport, len(testTypes))
	total := len(testTypes)
	for i, t := range testTypes {
		if err := ctx.Err(); err != nil {
			return nil, &GenerationError{Kind: models.KindLabReport, Err: err}
		}
		r, err := g.GenerateLaboratoryReport(ctx, cfg, opts, t)
		if err != nil {
			g.logger.Warn().Err(err).Str("test_type", string(t)).Msg("lab panel failed")
			r = nil
		} else {
			reports[t] = r
		}
		if onProgress != nil {
			onProgress(t, r, i+1, total)
		}
	}
	return reports, nil
}
