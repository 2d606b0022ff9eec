package generator

import (
	"context"
	"errors"
	"fmt"

	"github.com/medsynth/medsynth/pkg/compose"
	"github.com/medsynth/medsynth/pkg/completion"
	"github.com/medsynth/medsynth/pkg/models"
)

// VisitProgressFunc is called once per requested visit. report is nil and
// err is set when that visit failed. current counts from 1 to total.
type VisitProgressFunc func(index int, report *models.VisitReport, err error, current, total int)

// GenerateVisitReport generates one visit. When previous is set the visit
// follows it and must be dated after it.
func (g *Generator) GenerateVisitReport(ctx context.Context, cfg models.ModelConfig, opts models.VisitOptions, previous *models.VisitReport) (*models.VisitReport, error) {
	number := 1
	var prevKey any
	if previous != nil {
		number = previous.VisitNumber + 1
		prevKey = []string{previous.ID, previous.VisitDate}
	}
	return generate(ctx, g, cfg, job{
		kind:   models.KindVisitReport,
		key:    []any{opts, number, prevKey},
		prompt: g.visitPrompt(opts, previous, number),
	}, func(v *models.VisitReport) { g.normalizeVisit(v, opts, number) }, func(v *models.VisitReport) []string {
		if previous != nil && v.VisitDate <= previous.VisitDate {
			return []string{fmt.Sprintf("visit_report.visitDate: %s is not after previous visit %s", v.VisitDate, previous.VisitDate)}
		}
		return nil
	})
}

// GenerateVisitReports generates opts.Count visits one after another, each
// referencing the last one that succeeded. Failed visits are skipped and
// reported through onProgress. The result is in date order and numbered
// from 1. An error is returned only when no visit could be generated.
func (g *Generator) GenerateVisitReports(ctx context.Context, cfg models.ModelConfig, opts models.VisitOptions, onProgress VisitProgressFunc) ([]models.VisitReport, error) {
	if err := completion.ValidateConfig(cfg); err != nil {
		return nil, &GenerationError{Kind: models.KindVisitReport, Err: err}
	}
	total := opts.Count
	if total <= 0 {
		total = 1
	}

	var (
		visits   []models.VisitReport
		previous *models.VisitReport
		lastErr  error
	)
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, &GenerationError{Kind: models.KindVisitReport, Err: err}
		}
		v, err := g.GenerateVisitReport(ctx, cfg, opts, previous)
		if err != nil {
			lastErr = err
			g.logger.Warn().Err(err).Int("visit", i+1).Int("total", total).Msg("visit skipped")
		} else {
			visits = append(visits, *v)
			previous = v
		}
		if onProgress != nil {
			onProgress(i, v, err, i+1, total)
		}
	}

	if len(visits) == 0 {
		var ge *GenerationError
		if errors.As(lastErr, &ge) {
			lastErr = ge.Err
		}
		return nil, &GenerationError{Kind: models.KindVisitReport, Err: fmt.Errorf("all %d visits failed: %w", total, lastErr)}
	}
	compose.SortVisits(visits)
	return visits, nil
}
