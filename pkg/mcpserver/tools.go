package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	tenet "github.com/tenetdb/tenet"
	"github.com/tenetdb/tenet/pkg/recall"
	"github.com/tenetdb/tenet/pkg/types"
)

func (s *Server) registerTools() {
	s.registerRemember()
	s.registerRecall()
	s.registerRecallIndex()
	s.registerRecallDetails()
	s.registerExplain()
	s.registerChanges()
	s.registerSweep()
}

func scopeArg(req mcp.CallToolRequest) (types.Scope, error) {
	raw := req.GetString("scope", "")
	if raw == "" {
		return "", nil
	}
	sc := types.Scope(raw)
	if !sc.Valid() {
		return "", fmt.Errorf("invalid scope %q: must be project, global or all", raw)
	}
	return sc, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) registerRemember() {
	tool := mcp.NewTool(
		"remember",
		mcp.WithDescription(
			"Store durable facts from text. The text is distilled into atomic "+
				"claims (subject, predicate, object) which are merged into the "+
				"fact store: duplicates gain evidence, explicit changes supersede "+
				"old facts, contradictions are flagged as conflicts.",
		),
		mcp.WithString("text", mcp.Required(),
			mcp.Description("Text to distill facts from")),
		mcp.WithString("scope",
			mcp.Description("Write scope: project (default) or global")),
		mcp.WithString("session_id",
			mcp.Description("Session the text came from, for provenance")),
		mcp.WithIdempotentHintAnnotation(true),
	)

	s.mcp.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return nil, err
		}
		sc, err := scopeArg(req)
		if err != nil {
			return nil, err
		}
		if sc == types.ScopeAll {
			return nil, fmt.Errorf("scope all is not writable")
		}

		result, err := s.client.Remember(ctx, text, tenet.RememberOptions{
			SessionID: req.GetString("session_id", ""),
			Scope:     sc,
			Source:    "mcp",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to remember: %w", err)
		}
		return jsonResult(result)
	})
}

func (s *Server) registerRecall() {
	tool := mcp.NewTool(
		"recall",
		mcp.WithDescription(
			"Retrieve facts matching a query, with their provenance receipts. "+
				"For large result sets prefer recall_index followed by "+
				"recall_details on the ids you need.",
		),
		mcp.WithString("query", mcp.Required(),
			mcp.Description("Free-text query")),
		mcp.WithString("scope",
			mcp.Description("Read scope: project, global or all (default)")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results, default 10")),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.mcp.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return nil, err
		}
		sc, err := scopeArg(req)
		if err != nil {
			return nil, err
		}

		results, err := s.client.Recall(ctx, query, recall.Options{
			Scope: sc,
			Limit: req.GetInt("limit", 0),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to recall: %w", err)
		}
		return jsonResult(results)
	})
}

func (s *Server) registerRecallIndex() {
	tool := mcp.NewTool(
		"recall_index",
		mcp.WithDescription(
			"Retrieve a compact preview of facts matching a query: id, subject, "+
				"predicate, truncated object and a token estimate per entry. "+
				"Cheap enough to scan broadly; follow up with recall_details.",
		),
		mcp.WithString("query", mcp.Required(),
			mcp.Description("Free-text query")),
		mcp.WithString("scope",
			mcp.Description("Read scope: project, global or all (default)")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results, default 10")),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.mcp.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return nil, err
		}
		sc, err := scopeArg(req)
		if err != nil {
			return nil, err
		}

		previews, err := s.client.RecallIndex(ctx, query, recall.Options{
			Scope: sc,
			Limit: req.GetInt("limit", 0),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to recall index: %w", err)
		}
		return jsonResult(previews)
	})
}

func (s *Server) registerRecallDetails() {
	tool := mcp.NewTool(
		"recall_details",
		mcp.WithDescription(
			"Hydrate full facts with receipts for ids returned by recall_index. "+
				"Unknown ids are skipped.",
		),
		mcp.WithArray("ids", mcp.Required(),
			mcp.Description("Fact ids to hydrate")),
		mcp.WithString("scope",
			mcp.Description("Read scope: project, global or all (default)")),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.mcp.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, ok := req.Params.Arguments.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("invalid request arguments")
		}
		rawIDs, ok := args["ids"].([]any)
		if !ok || len(rawIDs) == 0 {
			return nil, fmt.Errorf("ids parameter is required and must be a non-empty array")
		}
		ids := make([]string, 0, len(rawIDs))
		for _, raw := range rawIDs {
			id, ok := raw.(string)
			if !ok || id == "" {
				return nil, fmt.Errorf("each id must be a non-empty string")
			}
			ids = append(ids, id)
		}
		sc, err := scopeArg(req)
		if err != nil {
			return nil, err
		}

		results, err := s.client.RecallDetails(ctx, ids, sc)
		if err != nil {
			return nil, fmt.Errorf("failed to recall details: %w", err)
		}
		return jsonResult(results)
	})
}

func (s *Server) registerExplain() {
	tool := mcp.NewTool(
		"explain",
		mcp.WithDescription(
			"Explain one fact: its receipts, what it superseded, what "+
				"superseded it, and any recorded conflicts. A missing id returns "+
				"present=false rather than an error.",
		),
		mcp.WithString("fact_id", mcp.Required(),
			mcp.Description("Fact id to explain")),
		mcp.WithString("scope",
			mcp.Description("Read scope: project, global or all (default)")),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.mcp.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		factID, err := req.RequireString("fact_id")
		if err != nil {
			return nil, err
		}
		sc, err := scopeArg(req)
		if err != nil {
			return nil, err
		}

		exp, err := s.client.Explain(ctx, factID, sc)
		if err != nil {
			return nil, fmt.Errorf("failed to explain: %w", err)
		}
		return jsonResult(exp)
	})
}

func (s *Server) registerChanges() {
	tool := mcp.NewTool(
		"changes",
		mcp.WithDescription(
			"List facts created since a timestamp, oldest first. Use for "+
				"catching up on what the store learned recently.",
		),
		mcp.WithString("since", mcp.Required(),
			mcp.Description("RFC3339 timestamp")),
		mcp.WithString("scope",
			mcp.Description("Read scope: project, global or all (default)")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results, default 100")),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.mcp.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := req.RequireString("since")
		if err != nil {
			return nil, err
		}
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid since timestamp: %w", err)
		}
		sc, err := scopeArg(req)
		if err != nil {
			return nil, err
		}

		facts, err := s.client.Changes(ctx, since, req.GetInt("limit", 0), sc)
		if err != nil {
			return nil, fmt.Errorf("failed to list changes: %w", err)
		}
		return jsonResult(facts)
	})
}

func (s *Server) registerSweep() {
	tool := mcp.NewTool(
		"sweep",
		mcp.WithDescription(
			"Run store maintenance under a time budget: expire stale proposed "+
				"facts, prune orphaned receipts, delete aged-out unreferenced "+
				"content.",
		),
		mcp.WithNumber("budget_ms",
			mcp.Description("Time budget in milliseconds, default 2000")),
		mcp.WithString("scope",
			mcp.Description("Scope to sweep: project, global or all (default)")),
	)

	s.mcp.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sc, err := scopeArg(req)
		if err != nil {
			return nil, err
		}
		budget := time.Duration(req.GetInt("budget_ms", 0)) * time.Millisecond

		report, err := s.client.Sweep(ctx, sc, budget)
		if err != nil {
			return nil, fmt.Errorf("failed to sweep: %w", err)
		}
		return jsonResult(report)
	})
}
