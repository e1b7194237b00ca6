package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/metrics"
	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/store"
	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/swarm"
)

// registerTools registers all polstress MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "polstress_run",
		Description: "Run a swarm evaluation: simulate a policy across many seeded worlds and compute robustness metrics",
	}, s.handleRun)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "polstress_report",
		Description: "Render the metrics report for a stored evaluation batch",
	}, s.handleReport)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "polstress_list",
		Description: "List stored evaluation batches, newest first",
	}, s.handleList)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "polstress_catalog",
		Description: "List the registered policy and world descriptors",
	}, s.handleCatalog)
}

// handleRun implements the polstress_run tool.
func (s *Server) handleRun(ctx context.Context, req *sdk.CallToolRequest, args RunInput) (*sdk.CallToolResult, RunOutput, error) {
	if args.World == "" {
		args.World = "project"
	}
	if args.NWorlds == 0 {
		args.NWorlds = 100
	}
	if args.BaseSeed == 0 {
		args.BaseSeed = 42
	}
	if args.MaxSteps == 0 {
		args.MaxSteps = 50
	}

	p, err := s.catalog.ResolvePolicy(args.Policy)
	if err != nil {
		return nil, RunOutput{}, err
	}
	factory, err := s.catalog.ResolveWorld(args.World)
	if err != nil {
		return nil, RunOutput{}, err
	}

	exec, err := swarm.NewExecutor(factory, swarm.Config{
		NWorlds:  args.NWorlds,
		BaseSeed: args.BaseSeed,
		MaxSteps: args.MaxSteps,
		Workers:  args.Workers,
	}, s.logger)
	if err != nil {
		return nil, RunOutput{}, err
	}

	result, err := exec.Run(ctx, p)
	if err != nil {
		return nil, RunOutput{}, err
	}

	report, err := metrics.Compute(result.Outcomes, args.MaxSteps)
	if err != nil {
		return nil, RunOutput{}, fmt.Errorf("computing metrics: %w", err)
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return nil, RunOutput{}, fmt.Errorf("encoding report: %w", err)
	}

	out := RunOutput{
		NRequested:   result.NRequested,
		NCompleted:   result.NCompleted,
		Errored:      result.Errored,
		SoftFailures: result.SoftFailures,
		ElapsedMS:    result.Elapsed.Milliseconds(),
		Report:       reportJSON,
		Summary:      report.Text(),
	}

	if args.Save {
		batch := &store.Batch{
			Policy:       args.Policy,
			World:        args.World,
			BaseSeed:     args.BaseSeed,
			MaxSteps:     args.MaxSteps,
			NRequested:   result.NRequested,
			NCompleted:   result.NCompleted,
			Errored:      result.Errored,
			SoftFailures: result.SoftFailures,
			Elapsed:      result.Elapsed,
			Report:       reportJSON,
		}
		id, err := s.store.SaveBatch(ctx, batch, result.Outcomes)
		if err != nil {
			return nil, RunOutput{}, fmt.Errorf("saving batch: %w", err)
		}
		out.BatchID = id
	}

	return nil, out, nil
}

// handleReport implements the polstress_report tool.
func (s *Server) handleReport(ctx context.Context, req *sdk.CallToolRequest, args ReportInput) (*sdk.CallToolResult, ReportOutput, error) {
	batch, err := s.store.GetBatch(ctx, args.BatchID)
	if err != nil {
		return nil, ReportOutput{}, err
	}

	var report *metrics.Report
	if len(batch.Report) > 0 {
		report = &metrics.Report{}
		if err := json.Unmarshal(batch.Report, report); err != nil {
			return nil, ReportOutput{}, fmt.Errorf("decoding stored report: %w", err)
		}
	} else {
		// Older batches saved without a report: recompute from outcomes.
		outcomes, err := s.store.LoadOutcomes(ctx, batch.ID)
		if err != nil {
			return nil, ReportOutput{}, err
		}
		report, err = metrics.Compute(outcomes, batch.MaxSteps)
		if err != nil {
			return nil, ReportOutput{}, err
		}
	}

	var rendered string
	switch args.Format {
	case "", "text":
		rendered = report.Text()
	case "markdown":
		rendered = report.Markdown()
	case "json":
		rendered, err = report.JSON()
		if err != nil {
			return nil, ReportOutput{}, err
		}
	default:
		return nil, ReportOutput{}, fmt.Errorf("unknown format %q (valid: text, markdown, json)", args.Format)
	}

	return nil, ReportOutput{
		BatchID: batch.ID,
		Policy:  batch.Policy,
		World:   batch.World,
		Report:  rendered,
	}, nil
}

// handleList implements the polstress_list tool.
func (s *Server) handleList(ctx context.Context, req *sdk.CallToolRequest, args ListInput) (*sdk.CallToolResult, ListOutput, error) {
	batches, err := s.store.ListBatches(ctx)
	if err != nil {
		return nil, ListOutput{}, err
	}
	if args.Limit > 0 && len(batches) > args.Limit {
		batches = batches[:args.Limit]
	}

	out := ListOutput{Count: len(batches)}
	for _, b := range batches {
		out.Batches = append(out.Batches, BatchSummary{
			ID:         b.ID,
			CreatedAt:  b.CreatedAt,
			Policy:     b.Policy,
			World:      b.World,
			NRequested: b.NRequested,
			NCompleted: b.NCompleted,
			Errored:    b.Errored,
		})
	}
	return nil, out, nil
}

// handleCatalog implements the polstress_catalog tool.
func (s *Server) handleCatalog(ctx context.Context, req *sdk.CallToolRequest, args CatalogInput) (*sdk.CallToolResult, CatalogOutput, error) {
	return nil, CatalogOutput{
		Policies: s.catalog.PolicyNames(),
		Worlds:   s.catalog.WorldNames(),
	}, nil
}
