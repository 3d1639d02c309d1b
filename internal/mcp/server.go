// Package mcp provides a Model Context Protocol server for Sentinel.
//
// It exposes the ranking pipeline (rank, classify, feedback, stats) as MCP
// tools, and behavior statistics as an MCP resource, over stdio transport.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/sentinelsearch/sentinel/internal/behavior"
	"github.com/sentinelsearch/sentinel/internal/corpus"
	"github.com/sentinelsearch/sentinel/internal/rank"
	"github.com/sentinelsearch/sentinel/internal/textutil"
)

// defaultRankLimit bounds how many candidates a rank call returns.
const defaultRankLimit = 10

// maxRankLimit caps the caller-supplied limit.
const maxRankLimit = 50

// ServerConfig holds the wiring for the MCP server.
type ServerConfig struct {
	Engine  *rank.Engine
	Corpus  *corpus.Corpus    // candidate source for sentinel_rank
	Tracker *behavior.Tracker // may be nil; feedback tools then report unavailable
	Version string
	Logger  *zap.Logger
}

// NewServer creates a configured MCP server with all Sentinel tools and
// resources. The mcp-go library dispatches handlers concurrently; the
// behavior tracker serializes its own mutations internally, and the scorers
// are pure, so no server-level locking is needed.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := server.NewMCPServer(
		"Sentinel",
		ver,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(true, false),
	)

	registerRankTool(s, cfg.Engine, cfg.Corpus, logger)
	registerClassifyTool(s, cfg.Engine)
	registerFeedbackTool(s, cfg.Tracker)
	registerStatsTool(s, cfg.Tracker)
	registerStatsResource(s, cfg.Tracker)

	return s
}

func registerRankTool(s *server.MCPServer, engine *rank.Engine, corp *corpus.Corpus, logger *zap.Logger) {
	tool := mcp.NewTool("sentinel_rank",
		mcp.WithDescription("Search the candidate corpus and rank results with trust, freshness, relevance, location and behavior signals. Classifies the query into standard or emergency mode."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query string"),
		),
		mcp.WithBoolean("force_emergency",
			mcp.Description("Force emergency mode regardless of classification (default: false)"),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum number of results (default: %d, max: %d)", defaultRankLimit, maxRankLimit)),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil || strings.TrimSpace(query) == "" {
			return mcp.NewToolResultError("query is required"), nil
		}

		limit := defaultRankLimit
		if v, err := req.RequireFloat("limit"); err == nil && int(v) > 0 {
			limit = int(v)
			if limit > maxRankLimit {
				limit = maxRankLimit
			}
		}

		opts := rank.Options{}
		if force, err := req.RequireBool("force_emergency"); err == nil {
			opts.ForceEmergency = force
		}

		var candidates []*rank.Result
		if corp != nil {
			candidates = rank.FromDocuments(corp.Search(query, 0))
		}

		resp, err := engine.Rank(ctx, query, candidates, opts)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("rank error: %v", err)), nil
		}
		if len(resp.Results) > limit {
			resp.Results = resp.Results[:limit]
		}

		logger.Debug("ranked query",
			zap.String("query", resp.Query),
			zap.String("mode", resp.Mode.Mode),
			zap.Int("results", len(resp.Results)))

		data, _ := json.MarshalIndent(resp, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerClassifyTool(s *server.MCPServer, engine *rank.Engine) {
	tool := mcp.NewTool("sentinel_classify",
		mcp.WithDescription("Classify a query into standard or emergency mode without ranking. Returns the decision, confidence, triggers, and any spell correction applied."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Query to classify"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil || strings.TrimSpace(query) == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		query = strings.TrimSpace(query)

		effective := query
		corrected := ""
		if engine.Speller != nil {
			// Surface only genuine corrections, not case/punctuation
			// normalization.
			if c := engine.Speller.CorrectSentence(query); c != strings.Join(textutil.Tokenize(query), " ") {
				corrected = c
				effective = c
			}
		}

		decision := engine.Detector.Classify(ctx, effective)

		payload := map[string]interface{}{
			"query":    query,
			"decision": decision,
		}
		if corrected != "" {
			payload["corrected_query"] = corrected
		}
		data, _ := json.MarshalIndent(payload, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerFeedbackTool(s *server.MCPServer, tracker *behavior.Tracker) {
	tool := mcp.NewTool("sentinel_feedback",
		mcp.WithDescription("Record user behavior feedback: a click on a result, or a return from it. Quick returns register as pogo-stick events and penalize the URL in future rankings."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Description("Feedback action"),
			mcp.Enum("click", "return"),
		),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Result URL the feedback refers to"),
		),
		mcp.WithString("query",
			mcp.Description("Query that produced the result (click only)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if tracker == nil {
			return mcp.NewToolResultError("behavior tracking is not enabled"), nil
		}

		action, err := req.RequireString("action")
		if err != nil {
			return mcp.NewToolResultError("action is required"), nil
		}
		url, err := req.RequireString("url")
		if err != nil || strings.TrimSpace(url) == "" {
			return mcp.NewToolResultError("url is required"), nil
		}

		query := ""
		if q, err := req.RequireString("query"); err == nil {
			query = q
		}

		var payload interface{}
		switch action {
		case "click":
			payload = tracker.RecordClick(url, query)
		case "return":
			payload = tracker.RecordReturn(url)
		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown action %q: want click or return", action)), nil
		}

		data, _ := json.MarshalIndent(payload, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerStatsTool(s *server.MCPServer, tracker *behavior.Tracker) {
	tool := mcp.NewTool("sentinel_stats",
		mcp.WithDescription("Report behavior-tracking statistics: URLs tracked, URLs with pogo events, URLs carrying a penalty, total pogo events."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if tracker == nil {
			return mcp.NewToolResultError("behavior tracking is not enabled"), nil
		}
		data, _ := json.MarshalIndent(tracker.Stats(), "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerStatsResource(s *server.MCPServer, tracker *behavior.Tracker) {
	resource := mcp.NewResource(
		"sentinel://stats",
		"Behavior Statistics",
		mcp.WithResourceDescription("Current behavior-tracking statistics."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		if tracker == nil {
			return nil, fmt.Errorf("behavior tracking is not enabled")
		}
		data, _ := json.MarshalIndent(tracker.Stats(), "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}
