// Package budget caps the tokens generations may spend per deployment.
package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/medsynth/medsynth/pkg/models"
	"github.com/medsynth/medsynth/pkg/tracker"
)

// ErrBudgetExceeded is returned when a generation would exceed the budget.
var ErrBudgetExceeded = errors.New("budget exceeded")

// Enforcer checks token usage against budget policies.
type Enforcer struct {
	policies []models.BudgetPolicy
	tracker  tracker.Tracker
	now      func() time.Time
}

// New creates an Enforcer with the given policies and tracker.
func New(policies []models.BudgetPolicy, t tracker.Tracker) *Enforcer {
	return &Enforcer{policies: policies, tracker: t, now: time.Now}
}

// Check returns ErrBudgetExceeded if the deployment has used up any policy
// that applies to kind.
func (e *Enforcer) Check(ctx context.Context, deployment string, kind models.EntityKind) error {
	for _, p := range e.applicablePolicies(deployment, kind) {
		used, err := e.tracker.TotalByDeployment(ctx, deployment, p.EntityKind, periodStart(p.Period, e.now()))
		if err != nil {
			return fmt.Errorf("budget check: %w", err)
		}
		if used >= p.MaxTokens {
			return fmt.Errorf("%w: %s used %d of %d %s tokens", ErrBudgetExceeded, deployment, used, p.MaxTokens, p.Period)
		}
	}
	return nil
}

// Status returns the budget status for a deployment across all of its
// policies.
func (e *Enforcer) Status(ctx context.Context, deployment string) ([]models.BudgetStatus, error) {
	policies := e.policiesForDeployment(deployment)
	statuses := make([]models.BudgetStatus, 0, len(policies))

	for _, p := range policies {
		used, err := e.tracker.TotalByDeployment(ctx, deployment, p.EntityKind, periodStart(p.Period, e.now()))
		if err != nil {
			return nil, fmt.Errorf("budget status: %w", err)
		}
		remaining := p.MaxTokens - used
		if remaining < 0 {
			remaining = 0
		}
		statuses = append(statuses, models.BudgetStatus{
			Policy:    p,
			Used:      used,
			Remaining: remaining,
		})
	}
	return statuses, nil
}

// Policies returns the configured policies.
func (e *Enforcer) Policies() []models.BudgetPolicy {
	return append([]models.BudgetPolicy(nil), e.policies...)
}

// policiesForDeployment returns all policies matching a deployment (ignoring
// the kind filter).
func (e *Enforcer) policiesForDeployment(deployment string) []models.BudgetPolicy {
	var result []models.BudgetPolicy
	for _, p := range e.policies {
		if p.Deployment == "*" || p.Deployment == deployment {
			result = append(result, p)
		}
	}
	return result
}

func (e *Enforcer) applicablePolicies(deployment string, kind models.EntityKind) []models.BudgetPolicy {
	var result []models.BudgetPolicy
	for _, p := range e.policiesForDeployment(deployment) {
		if p.EntityKind == "" || p.EntityKind == kind {
			result = append(result, p)
		}
	}
	return result
}

func periodStart(period models.BudgetPeriod, now time.Time) time.Time {
	now = now.UTC()
	switch period {
	case models.BudgetMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	default: // daily
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
}
