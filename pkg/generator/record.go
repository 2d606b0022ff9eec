package generator

import (
	"context"
	"fmt"

	"github.com/medsynth/medsynth/pkg/compose"
	"github.com/medsynth/medsynth/pkg/models"
)

// RecordEvent reports one step of GenerateRecord. Item names the visit or
// lab panel for batch steps.
type RecordEvent struct {
	Kind    models.EntityKind
	Item    string
	Err     error
	Current int
	Total   int
}

// RecordProgressFunc receives a RecordEvent after every step.
type RecordProgressFunc func(RecordEvent)

// GenerateRecord generates a patient, a provider and the patient's
// insurance, then the requested history, visits and lab panels, and
// assembles them. A failure in the first three aborts; a failed optional
// part is reported and left out.
func (g *Generator) GenerateRecord(ctx context.Context, cfg models.ModelConfig, opts models.RecordOptions, onProgress RecordProgressFunc) (*models.AssembledRecord, error) {
	total := 3 + opts.VisitCount + len(opts.LabTests)
	if opts.IncludeHistory {
		total++
	}
	step := 0
	emit := func(kind models.EntityKind, item string, err error) {
		step++
		if onProgress != nil {
			onProgress(RecordEvent{Kind: kind, Item: item, Err: err, Current: step, Total: total})
		}
	}

	patientOpts := opts.Patient
	if patientOpts.Complexity == "" {
		patientOpts.Complexity = opts.Complexity
	}
	patient, err := g.GeneratePatient(ctx, cfg, patientOpts)
	emit(models.KindPatient, "", err)
	if err != nil {
		return nil, err
	}

	providerOpts := opts.Provider
	if providerOpts.State == "" {
		providerOpts.State = patient.Address.State
	}
	provider, err := g.GenerateProvider(ctx, cfg, providerOpts)
	emit(models.KindProvider, "", err)
	if err != nil {
		return nil, err
	}

	insuranceOpts := opts.Insurance
	if insuranceOpts.SubscriberName == "" {
		insuranceOpts.SubscriberName = patient.FirstName + " " + patient.LastName
		insuranceOpts.SubscriberDateOfBirth = patient.DateOfBirth
	}
	if insuranceOpts.State == "" {
		insuranceOpts.State = patient.Address.State
	}
	insurance, err := g.GenerateInsurance(ctx, cfg, insuranceOpts)
	emit(models.KindInsurance, "", err)
	if err != nil {
		return nil, err
	}

	var extras compose.Extras
	if opts.IncludeHistory {
		history, err := g.GenerateMedicalHistory(ctx, cfg, models.HistoryOptions{Patient: patient, Complexity: opts.Complexity})
		emit(models.KindMedicalHistory, "", err)
		if err == nil {
			extras.MedicalHistory = history
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	if opts.VisitCount > 0 {
		visitOpts := models.VisitOptions{
			Count:      opts.VisitCount,
			Patient:    patient,
			Provider:   provider,
			History:    extras.MedicalHistory,
			Complexity: opts.Complexity,
		}
		visits, err := g.GenerateVisitReports(ctx, cfg, visitOpts, func(index int, _ *models.VisitReport, err error, _, _ int) {
			emit(models.KindVisitReport, fmt.Sprintf("visit %d", index+1), err)
		})
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			g.logger.Warn().Err(err).Msg("visit reports left out")
		}
		extras.VisitReports = visits
	}

	if len(opts.LabTests) > 0 {
		labOpts := models.LabOptions{Patient: patient, Provider: provider, Complexity: opts.Complexity}
		labs, err := g.GenerateLaboratoryReports(ctx, cfg, labOpts, opts.LabTests, func(t models.LabTestType, r *models.LaboratoryReport, _, _ int) {
			var err error
			if r == nil {
				err = fmt.Errorf("lab panel %s failed", t)
			}
			emit(models.KindLabReport, string(t), err)
		})
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			return nil, err
		}
		extras.LabReports = make(map[models.LabTestType]models.LaboratoryReport, len(labs))
		for t, r := range labs {
			extras.LabReports[t] = *r
		}
	}

	rec := compose.Assemble(*patient, *provider, *insurance, extras, g.now())
	return &rec, nil
}
