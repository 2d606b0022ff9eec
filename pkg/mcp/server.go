package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medsynth/medsynth/pkg/generator"
	"github.com/medsynth/medsynth/pkg/models"
)

// EntityGenerator is the subset of the generator exposed as tools.
type EntityGenerator interface {
	GeneratePatient(ctx context.Context, cfg models.ModelConfig, opts models.PatientOptions) (*models.Patient, error)
	GenerateProvider(ctx context.Context, cfg models.ModelConfig, opts models.ProviderOptions) (*models.Provider, error)
	GenerateInsurance(ctx context.Context, cfg models.ModelConfig, opts models.InsuranceOptions) (*models.InsuranceInfo, error)
	GenerateLaboratoryReports(ctx context.Context, cfg models.ModelConfig, opts models.LabOptions, testTypes []models.LabTestType, onProgress generator.LabProgressFunc) (map[models.LabTestType]*models.LaboratoryReport, error)
}

// CacheStatter provides cache statistics without coupling to a concrete cache implementation.
type CacheStatter interface {
	Stats(ctx context.Context) models.CacheStats
}

// UsageSummarizer reports aggregated token usage.
type UsageSummarizer interface {
	Summary(ctx context.Context, deployment string) ([]models.UsageSummary, error)
}

// BudgetStatuser reports token budget usage for a deployment.
type BudgetStatuser interface {
	Status(ctx context.Context, deployment string) ([]models.BudgetStatus, error)
}

// Server is a minimal MCP server that communicates over stdio using JSON-RPC 2.0.
type Server struct {
	gen     EntityGenerator
	cfg     models.ModelConfig
	cache   CacheStatter
	usage   UsageSummarizer
	budget  BudgetStatuser
	logger  zerolog.Logger
	version string
}

// New creates a new MCP Server. Every generation tool uses cfg. cache, usage
// and budget may be nil.
func New(gen EntityGenerator, cfg models.ModelConfig, cache CacheStatter, usage UsageSummarizer, budget BudgetStatuser, logger zerolog.Logger, version string) *Server {
	return &Server{
		gen:     gen,
		cfg:     cfg,
		cache:   cache,
		usage:   usage,
		budget:  budget,
		logger:  logger,
		version: version,
	}
}

// Run reads JSON-RPC requests from r line-by-line and writes responses to w.
// It blocks until r is closed or ctx is cancelled.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(w, *rpcError(nil, CodeParseError, "parse error"))
			continue
		}

		resp := s.dispatch(ctx, &req)
		if resp == nil {
			// notification, no response
			continue
		}
		s.writeResponse(w, *resp)
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	if strings.HasPrefix(req.Method, "notifications/") {
		return nil
	}
	switch req.Method {
	case "initialize":
		return result(req.ID, InitializeResult{
			ProtocolVersion: ProtocolVersion,
			ServerInfo:      ServerInfo{Name: "medsynth", Version: s.version},
			Capabilities:    map[string]any{"tools": map[string]any{}},
		})
	case "ping":
		return result(req.ID, struct{}{})
	case "tools/list":
		return result(req.ID, ToolsListResult{Tools: allTools})
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	default:
		return rpcError(req.ID, CodeMethodNotFound, fmt.Sprintf("unknown method: %s", req.Method))
	}
}

func (s *Server) handleToolsCall(ctx context.Context, req *Request) *Response {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return rpcError(req.ID, CodeInvalidParams, "invalid params")
	}

	handler, ok := toolHandlers[params.Name]
	if !ok {
		return result(req.ID, errorResult(fmt.Sprintf("unknown tool: %s", params.Name)))
	}

	started := time.Now()
	res := handler(ctx, s, params.Arguments)
	ev := s.logger.Debug()
	if res.IsError {
		ev = s.logger.Warn()
	}
	ev.Str("tool", params.Name).Bool("error", res.IsError).Dur("took", time.Since(started)).Msg("tool call")
	return result(req.ID, res)
}

func (s *Server) writeResponse(w io.Writer, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error().Err(err).Msg("mcp: marshal response")
		return
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		s.logger.Error().Err(err).Msg("mcp: write response")
	}
}
