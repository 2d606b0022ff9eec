package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/medsynth/medsynth/pkg/generator"
	"github.com/medsynth/medsynth/pkg/models"
)

// fakeGenerator implements EntityGenerator for testing.
type fakeGenerator struct {
	err         error
	failLabs    map[models.LabTestType]bool
	patientOpts models.PatientOptions
	cfg         models.ModelConfig
}

func (f *fakeGenerator) GeneratePatient(_ context.Context, cfg models.ModelConfig, opts models.PatientOptions) (*models.Patient, error) {
	f.cfg = cfg
	f.patientOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return &models.Patient{FirstName: "Jane", LastName: "Doe", Name: "Doe, Jane", DateOfBirth: "1980-01-01", Age: 44}, nil
}

func (f *fakeGenerator) GenerateProvider(_ context.Context, _ models.ModelConfig, opts models.ProviderOptions) (*models.Provider, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Provider{FirstName: "Alan", LastName: "Grant", Specialty: opts.Specialty, NPI: "1234567890"}, nil
}

func (f *fakeGenerator) GenerateInsurance(_ context.Context, _ models.ModelConfig, opts models.InsuranceOptions) (*models.InsuranceInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	info := &models.InsuranceInfo{Primary: models.InsurancePolicy{CompanyName: "Acme Health", PlanType: opts.PlanType}}
	if opts.IncludeSecondary {
		info.Secondary = &models.InsurancePolicy{CompanyName: "Second Mutual"}
	}
	return info, nil
}

func (f *fakeGenerator) GenerateLaboratoryReports(_ context.Context, _ models.ModelConfig, _ models.LabOptions, testTypes []models.LabTestType, onProgress generator.LabProgressFunc) (map[models.LabTestType]*models.LaboratoryReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[models.LabTestType]*models.LaboratoryReport)
	for i, t := range testTypes {
		var r *models.LaboratoryReport
		if !f.failLabs[t] {
			r = &models.LaboratoryReport{TestType: t, TestName: string(t)}
			out[t] = r
		}
		onProgress(t, r, i+1, len(testTypes))
	}
	return out, nil
}

// fakeCache implements CacheStatter for testing.
type fakeCache struct {
	stats models.CacheStats
}

func (f *fakeCache) Stats(context.Context) models.CacheStats { return f.stats }

// fakeUsage implements UsageSummarizer for testing.
type fakeUsage struct {
	summaries  []models.UsageSummary
	deployment string
}

func (f *fakeUsage) Summary(_ context.Context, deployment string) ([]models.UsageSummary, error) {
	f.deployment = deployment
	return f.summaries, nil
}

// fakeBudget implements BudgetStatuser for testing.
type fakeBudget struct {
	deployment string
}

func (f *fakeBudget) Status(_ context.Context, deployment string) ([]models.BudgetStatus, error) {
	f.deployment = deployment
	return []models.BudgetStatus{{
		Policy:    models.BudgetPolicy{Deployment: "*", MaxTokens: 1000, Period: models.BudgetDaily},
		Used:      250,
		Remaining: 750,
	}}, nil
}

var testCfg = models.ModelConfig{Endpoint: "https://example.openai.azure.com", APIKey: "k", DeploymentName: "gpt-4o"}

func newTestServer(gen EntityGenerator, cache CacheStatter, usage UsageSummarizer) *Server {
	return New(gen, testCfg, cache, usage, nil, zerolog.Nop(), "test")
}

func sendAndReceive(t *testing.T, srv *Server, req Request) Response {
	t.Helper()
	line, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	line = append(line, '\n')

	var out bytes.Buffer
	if err := srv.Run(context.Background(), bytes.NewReader(line), &out); err != nil {
		t.Fatal(err)
	}

	var resp Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nraw: %s", err, out.String())
	}
	return resp
}

func callTool(t *testing.T, srv *Server, name, args string) ToolCallResult {
	t.Helper()
	call := ToolCallParams{Name: name}
	if args != "" {
		call.Arguments = json.RawMessage(args)
	}
	params, _ := json.Marshal(call)
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`3`),
		Method:  "tools/call",
		Params:  params,
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result ToolCallResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Content) == 0 {
		t.Fatal("expected content")
	}
	return result
}

func TestInitialize(t *testing.T) {
	srv := newTestServer(&fakeGenerator{}, nil, nil)
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`1`),
		Method:  "initialize",
	})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result InitializeResult
	json.Unmarshal(data, &result)

	if result.ProtocolVersion != "2024-11-05" {
		t.Errorf("protocol version = %s, want 2024-11-05", result.ProtocolVersion)
	}
	if result.ServerInfo.Name != "medsynth" {
		t.Errorf("server name = %s, want medsynth", result.ServerInfo.Name)
	}
}

func TestToolsList(t *testing.T) {
	srv := newTestServer(&fakeGenerator{}, nil, nil)
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`2`),
		Method:  "tools/list",
	})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result ToolsListResult
	json.Unmarshal(data, &result)

	if len(result.Tools) != len(toolHandlers) {
		t.Errorf("got %d tools, want %d", len(result.Tools), len(toolHandlers))
	}
	for _, tool := range result.Tools {
		if _, ok := toolHandlers[tool.Name]; !ok {
			t.Errorf("tool %s has no handler", tool.Name)
		}
	}
}

func TestGeneratePatientTool(t *testing.T) {
	gen := &fakeGenerator{}
	srv := newTestServer(gen, nil, nil)

	result := callTool(t, srv, "medsynth_generate_patient", `{"age_min":40,"age_max":50,"complexity":"high"}`)
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", result.Content[0].Text)
	}

	var p models.Patient
	if err := json.Unmarshal([]byte(result.Content[0].Text), &p); err != nil {
		t.Fatalf("expected patient JSON: %v", err)
	}
	if p.Name != "Doe, Jane" {
		t.Errorf("expected Doe, Jane, got %q", p.Name)
	}
	if gen.patientOpts.AgeMin != 40 || gen.patientOpts.AgeMax != 50 || gen.patientOpts.Complexity != models.ComplexityHigh {
		t.Errorf("arguments not mapped: %+v", gen.patientOpts)
	}
	if gen.cfg.DeploymentName != "gpt-4o" {
		t.Errorf("expected server model config, got %+v", gen.cfg)
	}
}

func TestGenerateToolError(t *testing.T) {
	srv := newTestServer(&fakeGenerator{err: errors.New("generate provider: boom")}, nil, nil)

	result := callTool(t, srv, "medsynth_generate_provider", `{"specialty":"Cardiology"}`)
	if !result.IsError {
		t.Fatal("expected isError=true")
	}
	if !strings.Contains(result.Content[0].Text, "boom") {
		t.Errorf("expected cause in output, got: %s", result.Content[0].Text)
	}
}

func TestGenerateInsuranceTool(t *testing.T) {
	srv := newTestServer(&fakeGenerator{}, nil, nil)

	result := callTool(t, srv, "medsynth_generate_insurance", `{"plan_type":"PPO","include_secondary":true}`)
	var info models.InsuranceInfo
	if err := json.Unmarshal([]byte(result.Content[0].Text), &info); err != nil {
		t.Fatal(err)
	}
	if info.Primary.PlanType != "PPO" || info.Secondary == nil {
		t.Errorf("unexpected insurance: %+v", info)
	}
}

func TestGenerateLabsTool(t *testing.T) {
	srv := newTestServer(&fakeGenerator{failLabs: map[models.LabTestType]bool{"INVALID": true}}, nil, nil)

	result := callTool(t, srv, "medsynth_generate_labs", `{"test_types":["cbc"," BMP","INVALID"]}`)
	if result.IsError {
		t.Fatalf("partial failure should not be an error: %s", result.Content[0].Text)
	}
	var res labsResult
	if err := json.Unmarshal([]byte(result.Content[0].Text), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Reports) != 2 || res.Reports["CBC"] == nil || res.Reports["BMP"] == nil {
		t.Errorf("unexpected reports: %v", res.Reports)
	}
	if len(res.Failed) != 1 || res.Failed[0] != "INVALID" {
		t.Errorf("expected INVALID to be listed as failed, got %v", res.Failed)
	}
}

func TestGenerateLabsToolBatchError(t *testing.T) {
	srv := newTestServer(&fakeGenerator{err: errors.New("generate lab_report: endpoint is required")}, nil, nil)
	result := callTool(t, srv, "medsynth_generate_labs", `{"test_types":["CBC"]}`)
	if !result.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(result.Content[0].Text, "endpoint is required") {
		t.Errorf("expected cause in output, got: %s", result.Content[0].Text)
	}
}

func TestGenerateLabsToolValidation(t *testing.T) {
	srv := newTestServer(&fakeGenerator{failLabs: map[models.LabTestType]bool{"CBC": true}}, nil, nil)

	if result := callTool(t, srv, "medsynth_generate_labs", `{}`); !result.IsError {
		t.Error("expected isError=true for missing test_types")
	}
	result := callTool(t, srv, "medsynth_generate_labs", `{"test_types":["CBC"]}`)
	if !result.IsError || !strings.Contains(result.Content[0].Text, "CBC") {
		t.Errorf("expected all-failed error naming CBC, got: %+v", result)
	}
}

func TestToolCallCacheNotConfigured(t *testing.T) {
	srv := newTestServer(&fakeGenerator{}, nil, nil)

	result := callTool(t, srv, "medsynth_cache_stats", "")
	if !strings.Contains(result.Content[0].Text, "not configured") {
		t.Errorf("expected 'not configured', got: %s", result.Content[0].Text)
	}
}

func TestToolCallCacheStats(t *testing.T) {
	cache := &fakeCache{stats: models.CacheStats{Backend: "sqlite", Entries: 42, Valid: 40, Expired: 2, Hits: 10, Misses: 5}}
	srv := newTestServer(&fakeGenerator{}, cache, nil)

	text := callTool(t, srv, "medsynth_cache_stats", "").Content[0].Text
	for _, want := range []string{"sqlite", "42", "2 expired", "66.7%"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in cache stats output: %s", want, text)
		}
	}
}

func TestToolCallUsageStats(t *testing.T) {
	usage := &fakeUsage{
		summaries: []models.UsageSummary{
			{EntityKind: models.KindPatient, Deployment: "gpt-4o", RequestCount: 10, TotalAttempts: 12, TotalPrompt: 500, TotalCompletion: 200, TotalTokens: 700},
		},
	}
	srv := newTestServer(&fakeGenerator{}, nil, usage)

	text := callTool(t, srv, "medsynth_usage_stats", `{"deployment":"gpt-4o"}`).Content[0].Text
	if !strings.Contains(text, "patient") || !strings.Contains(text, "700") {
		t.Errorf("unexpected usage output: %s", text)
	}
	if usage.deployment != "gpt-4o" {
		t.Errorf("expected deployment filter to be passed, got %q", usage.deployment)
	}
}

func TestToolCallBudgetNotConfigured(t *testing.T) {
	srv := newTestServer(&fakeGenerator{}, nil, nil)
	text := callTool(t, srv, "medsynth_budget", "").Content[0].Text
	if !strings.Contains(text, "not configured") {
		t.Errorf("expected 'not configured', got: %s", text)
	}
}

func TestToolCallBudget(t *testing.T) {
	budget := &fakeBudget{}
	srv := New(&fakeGenerator{}, testCfg, nil, nil, budget, zerolog.Nop(), "test")

	text := callTool(t, srv, "medsynth_budget", "").Content[0].Text
	if budget.deployment != "gpt-4o" {
		t.Errorf("expected configured deployment, got %q", budget.deployment)
	}
	for _, want := range []string{"daily", "1000", "750", "25.0%"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output: %s", want, text)
		}
	}
}

func TestUnknownTool(t *testing.T) {
	srv := newTestServer(&fakeGenerator{}, nil, nil)

	result := callTool(t, srv, "medsynth_nonexistent", "")
	if !result.IsError {
		t.Error("expected isError=true for unknown tool")
	}
}

func TestNotificationNoResponse(t *testing.T) {
	srv := newTestServer(&fakeGenerator{}, nil, nil)

	line, _ := json.Marshal(Request{
		JSONRPC: "2.0",
		Method:  "notifications/initialized",
	})
	line = append(line, '\n')

	var out bytes.Buffer
	_ = srv.Run(context.Background(), bytes.NewReader(line), &out)

	if out.Len() != 0 {
		t.Errorf("expected no output for notification, got: %s", out.String())
	}
}

func TestPing(t *testing.T) {
	srv := newTestServer(&fakeGenerator{}, nil, nil)
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`8`),
		Method:  "ping",
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if string(resp.ID) != "8" {
		t.Errorf("expected id 8, got %s", resp.ID)
	}
}

func TestParseError(t *testing.T) {
	srv := newTestServer(&fakeGenerator{}, nil, nil)

	var out bytes.Buffer
	if err := srv.Run(context.Background(), strings.NewReader("{not json\n"), &out); err != nil {
		t.Fatal(err)
	}
	var resp Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error == nil || resp.Error.Code != CodeParseError {
		t.Errorf("expected parse error, got %+v", resp)
	}
}

func TestUnknownMethod(t *testing.T) {
	srv := newTestServer(&fakeGenerator{}, nil, nil)
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`9`),
		Method:  "unknown/method",
	})

	if resp.Error == nil {
		t.Fatal("expected error for unknown method")
	}
	if resp.Error.Code != CodeMethodNotFound {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeMethodNotFound)
	}
}
