// Package mcpserver exposes the planner to agents as MCP tools.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	perrors "github.com/Iron-Ham/workplan/internal/errors"
	"github.com/Iron-Ham/workplan/internal/planner"
	"github.com/Iron-Ham/workplan/internal/render"
	"github.com/Iron-Ham/workplan/internal/risk"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

// PlanRunner produces plans; *planner.Planner satisfies it.
type PlanRunner interface {
	PlanParallelExecution(ctx context.Context, parentID string) (*planner.ExecutionPlan, error)
}

// Handlers provides MCP tool handlers
type Handlers struct {
	planner PlanRunner
	policy  risk.Policy
}

// NewHandlers creates a new Handlers instance
func NewHandlers(p PlanRunner, policy risk.Policy) *Handlers {
	return &Handlers{planner: p, policy: policy}
}

// RegisterTools registers the planning tools with the MCP server
func (h *Handlers) RegisterTools(s *server.MCPServer) {
	s.AddTool(
		mcp.NewTool("plan_parallel_execution",
			mcp.WithDescription("Plan the active children of a parent work item into ordered blocks of items that can run concurrently"),
			mcp.WithString("parent_id", mcp.Description("Parent work item id"), mcp.Required()),
			mcp.WithString("format", mcp.Description("Output format: json or markdown (default json)")),
		),
		h.HandlePlan,
	)

	s.AddTool(
		mcp.NewTool("explain_risk_policy",
			mcp.WithDescription("Describe the risk scoring weights, thresholds and decision table used to route items to AI or human execution"),
		),
		h.HandleExplainPolicy,
	)
}

// HandlePlan runs a planning invocation.
func (h *Handlers) HandlePlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	parentID := mcp.ParseString(req, "parent_id", "")
	if parentID == "" {
		return mcp.NewToolResultError("parent_id is required"), nil
	}
	format := render.Format(mcp.ParseString(req, "format", string(render.FormatJSON)))
	if format != render.FormatJSON && format != render.FormatMarkdown {
		return mcp.NewToolResultError("format must be json or markdown"), nil
	}

	plan, err := h.planner.PlanParallelExecution(ctx, parentID)
	if err != nil {
		return mcp.NewToolResultError(toolErrorText(err)), nil
	}

	var buf bytes.Buffer
	if err := render.Render(&buf, plan, format); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}

// toolErrorText labels planning errors with their severity so agents can
// tell a bad parent id from a tracker outage.
func toolErrorText(err error) string {
	if perrors.IsUserFacing(err) {
		return fmt.Sprintf("%s: %s", perrors.GetSeverity(err), err.Error())
	}
	return "planning failed: " + err.Error()
}

// PolicyDescription is the payload of explain_risk_policy.
type PolicyDescription struct {
	Version              string       `json:"version"`
	Weights              risk.Weights `json:"weights"`
	HumanThreshold       int          `json:"human_threshold"`
	SpotCheckThreshold   int          `json:"spot_check_threshold"`
	MaxHintDelta         int          `json:"max_hint_delta"`
	MinDescriptionLength int          `json:"min_description_length"`
	VagueTerms           []string     `json:"vague_terms"`
	SecurityKeywords     []string     `json:"security_keywords"`
	ApprovalTags         []string     `json:"approval_tags"`
	DecisionTable        []risk.Rule  `json:"decision_table"`
}

// DescribePolicy returns the description of p.
func DescribePolicy(p risk.Policy) PolicyDescription {
	return PolicyDescription{
		Version:              risk.PolicyVersion,
		Weights:              p.Weights,
		HumanThreshold:       risk.HumanThreshold,
		SpotCheckThreshold:   risk.SpotCheckThreshold,
		MaxHintDelta:         p.MaxHintDelta,
		MinDescriptionLength: p.MinDescriptionLength,
		VagueTerms:           p.VagueTerms,
		SecurityKeywords:     p.SecurityKeywords,
		ApprovalTags:         p.ApprovalTags,
		DecisionTable:        risk.DecisionTable(),
	}
}

// HandleExplainPolicy returns the active risk policy.
func (h *Handlers) HandleExplainPolicy(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(DescribePolicy(h.policy), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// NewServer creates an MCP server with the planning tools registered
func NewServer(p PlanRunner, policy risk.Policy) *server.MCPServer {
	s := server.NewMCPServer("workplan", Version)
	NewHandlers(p, policy).RegisterTools(s)
	return s
}
