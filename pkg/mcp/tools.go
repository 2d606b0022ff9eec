package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/medsynth/medsynth/pkg/models"
)

// Tool argument structs.

type patientArgs struct {
	AgeMin     int    `json:"age_min"`
	AgeMax     int    `json:"age_max"`
	Gender     string `json:"gender"`
	State      string `json:"state"`
	Complexity string `json:"complexity"`
}

type providerArgs struct {
	Specialty    string `json:"specialty"`
	State        string `json:"state"`
	FacilityType string `json:"facility_type"`
}

type insuranceArgs struct {
	PlanType         string `json:"plan_type"`
	IncludeSecondary bool   `json:"include_secondary"`
	SubscriberName   string `json:"subscriber_name"`
	State            string `json:"state"`
}

type labsArgs struct {
	TestTypes       []string `json:"test_types"`
	CollectionDate  string   `json:"collection_date"`
	IncludeAbnormal bool     `json:"include_abnormal"`
}

type deploymentArgs struct {
	Deployment string `json:"deployment"`
}

// toolHandler is a function that handles a tool call.
type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

// toolHandlers maps tool names to their handlers.
var toolHandlers = map[string]toolHandler{
	"medsynth_generate_patient":   handleGeneratePatient,
	"medsynth_generate_provider":  handleGenerateProvider,
	"medsynth_generate_insurance": handleGenerateInsurance,
	"medsynth_generate_labs":      handleGenerateLabs,
	"medsynth_cache_stats":        handleCacheStats,
	"medsynth_usage_stats":        handleUsageStats,
	"medsynth_budget":             handleBudget,
}

var complexityProperty = map[string]any{
	"type":        "string",
	"enum":        []string{"low", "medium", "high"},
	"description": "Clinical complexity (optional)",
}

// allTools is the list of tool definitions exposed via tools/list.
var allTools = []ToolDefinition{
	{
		Name:        "medsynth_generate_patient",
		Description: "Generate one synthetic patient demographic record as JSON.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"age_min":    map[string]any{"type": "integer", "description": "Minimum age in years (optional)"},
				"age_max":    map[string]any{"type": "integer", "description": "Maximum age in years (optional)"},
				"gender":     map[string]any{"type": "string", "description": "male, female or other (optional)"},
				"state":      map[string]any{"type": "string", "description": "Two-letter US state (optional)"},
				"complexity": complexityProperty,
			},
		},
	},
	{
		Name:        "medsynth_generate_provider",
		Description: "Generate one synthetic healthcare provider with an NPI as JSON.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"specialty":     map[string]any{"type": "string", "description": "Medical specialty (optional)"},
				"state":         map[string]any{"type": "string", "description": "Two-letter US state (optional)"},
				"facility_type": map[string]any{"type": "string", "description": "e.g. clinic or hospital (optional)"},
			},
		},
	},
	{
		Name:        "medsynth_generate_insurance",
		Description: "Generate primary and optional secondary insurance coverage as JSON.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"plan_type":         map[string]any{"type": "string", "description": "HMO, PPO, EPO, POS, HDHP, Medicare, Medicaid or Tricare (optional)"},
				"include_secondary": map[string]any{"type": "boolean", "description": "Also generate a secondary policy"},
				"subscriber_name":   map[string]any{"type": "string", "description": "Subscriber full name (optional)"},
				"state":             map[string]any{"type": "string", "description": "Two-letter US state (optional)"},
			},
		},
	},
	{
		Name:        "medsynth_generate_labs",
		Description: "Generate laboratory reports for the given panels. Failed panels are listed and skipped.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"test_types"},
			"properties": map[string]any{
				"test_types": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Panel codes such as CBC, BMP, CMP, LIPID, TSH, HBA1C",
				},
				"collection_date":  map[string]any{"type": "string", "description": "Collection date in YYYY-MM-DD format (optional)"},
				"include_abnormal": map[string]any{"type": "boolean", "description": "Include some out-of-range results"},
			},
		},
	},
	{
		Name:        "medsynth_cache_stats",
		Description: "Show generation cache statistics (backend, entries, expired, hits, misses).",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
	{
		Name:        "medsynth_usage_stats",
		Description: "Show token usage by entity kind, optionally filtered by deployment.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"deployment": map[string]any{
					"type":        "string",
					"description": "Filter by deployment name (optional)",
				},
			},
		},
	},
	{
		Name:        "medsynth_budget",
		Description: "Show token budget usage vs limits for a deployment (defaults to the configured one).",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"deployment": map[string]any{
					"type":        "string",
					"description": "Deployment name (optional)",
				},
			},
		},
	},
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
}

func jsonResult(v any) ToolCallResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("Error encoding result: " + err.Error())
	}
	return textResult(string(data))
}

func decodeArgs(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func handleGeneratePatient(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args patientArgs
	if err := decodeArgs(rawArgs, &args); err != nil {
		return errorResult("Invalid arguments: " + err.Error())
	}
	p, err := s.gen.GeneratePatient(ctx, s.cfg, models.PatientOptions{
		AgeMin:     args.AgeMin,
		AgeMax:     args.AgeMax,
		Gender:     args.Gender,
		State:      args.State,
		Complexity: models.Complexity(args.Complexity),
	})
	if err != nil {
		return errorResult("Error generating patient: " + err.Error())
	}
	return jsonResult(p)
}

func handleGenerateProvider(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args providerArgs
	if err := decodeArgs(rawArgs, &args); err != nil {
		return errorResult("Invalid arguments: " + err.Error())
	}
	p, err := s.gen.GenerateProvider(ctx, s.cfg, models.ProviderOptions{
		Specialty:    args.Specialty,
		State:        args.State,
		FacilityType: args.FacilityType,
	})
	if err != nil {
		return errorResult("Error generating provider: " + err.Error())
	}
	return jsonResult(p)
}

func handleGenerateInsurance(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args insuranceArgs
	if err := decodeArgs(rawArgs, &args); err != nil {
		return errorResult("Invalid arguments: " + err.Error())
	}
	info, err := s.gen.GenerateInsurance(ctx, s.cfg, models.InsuranceOptions{
		PlanType:         args.PlanType,
		IncludeSecondary: args.IncludeSecondary,
		SubscriberName:   args.SubscriberName,
		State:            args.State,
	})
	if err != nil {
		return errorResult("Error generating insurance: " + err.Error())
	}
	return jsonResult(info)
}

// labsResult lists reports by panel and the panels that failed.
type labsResult struct {
	Reports map[models.LabTestType]*models.LaboratoryReport `json:"reports"`
	Failed  []models.LabTestType                            `json:"failed,omitempty"`
}

func handleGenerateLabs(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args labsArgs
	if err := decodeArgs(rawArgs, &args); err != nil {
		return errorResult("Invalid arguments: " + err.Error())
	}
	if len(args.TestTypes) == 0 {
		return errorResult("test_types is required")
	}

	types := make([]models.LabTestType, len(args.TestTypes))
	for i, t := range args.TestTypes {
		types[i] = models.LabTestType(strings.ToUpper(strings.TrimSpace(t)))
	}

	var res labsResult
	reports, err := s.gen.GenerateLaboratoryReports(ctx, s.cfg, models.LabOptions{
		CollectionDate:  args.CollectionDate,
		IncludeAbnormal: args.IncludeAbnormal,
	}, types, func(t models.LabTestType, r *models.LaboratoryReport, _, _ int) {
		if r == nil {
			res.Failed = append(res.Failed, t)
		}
	})
	if err != nil {
		return errorResult("Error generating lab reports: " + err.Error())
	}
	res.Reports = reports
	if len(res.Reports) == 0 {
		return errorResult("Every requested panel failed: " + joinTypes(res.Failed))
	}
	return jsonResult(res)
}

func handleCacheStats(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	if s.cache == nil {
		return textResult("Cache is not configured.")
	}
	return textResult(formatCacheStats(s.cache.Stats(ctx)))
}

func handleUsageStats(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.usage == nil {
		return textResult("Usage tracking is not configured.")
	}
	var args deploymentArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	rows, err := s.usage.Summary(ctx, args.Deployment)
	if err != nil {
		return errorResult("Error fetching usage stats: " + err.Error())
	}
	return textResult(formatSummary(rows))
}

func handleBudget(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.budget == nil {
		return textResult("Budget enforcement is not configured.")
	}
	var args deploymentArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	if args.Deployment == "" {
		args.Deployment = s.cfg.DeploymentName
	}
	statuses, err := s.budget.Status(ctx, args.Deployment)
	if err != nil {
		return errorResult("Error fetching budget status: " + err.Error())
	}
	return textResult(formatBudgetStatus(args.Deployment, statuses))
}
