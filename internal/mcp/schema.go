// Package mcp provides an MCP (Model Context Protocol) server for
// polstress.
package mcp

import (
	"encoding/json"
	"time"
)

// RunInput defines the input for the polstress_run tool.
type RunInput struct {
	Policy   string `json:"policy" jsonschema:"Policy to evaluate: aggressive profile or conservative or balanced or random or llm or hybrid"`
	World    string `json:"world,omitempty" jsonschema:"World definition to run against (default: project)"`
	NWorlds  int    `json:"n_worlds,omitempty" jsonschema:"Number of seeded runs (default: 100)"`
	BaseSeed uint64 `json:"base_seed,omitempty" jsonschema:"First seed of the range (default: 42)"`
	MaxSteps int    `json:"max_steps,omitempty" jsonschema:"Step bound per run; reaching it is a timeout terminal (default: 50)"`
	Workers  int    `json:"workers,omitempty" jsonschema:"Worker pool size (default: number of CPUs)"`
	Save     bool   `json:"save,omitempty" jsonschema:"Persist the batch to the local store (default: false)"`
}

// RunOutput defines the output for the polstress_run tool.
type RunOutput struct {
	BatchID      string          `json:"batch_id,omitempty" jsonschema:"Store ID of the saved batch (when save was requested)"`
	NRequested   int             `json:"n_requested" jsonschema:"Number of runs requested"`
	NCompleted   int             `json:"n_completed" jsonschema:"Number of runs completed"`
	Errored      int             `json:"errored" jsonschema:"Runs ended by contract violations, counted separately from domain failures"`
	SoftFailures int64           `json:"soft_failures" jsonschema:"Policy-level recoveries from bad external responses"`
	ElapsedMS    int64           `json:"elapsed_ms" jsonschema:"Wall-clock runtime in milliseconds"`
	Report       json.RawMessage `json:"report" jsonschema:"Full metrics report (survival, collapse, regret, brittleness)"`
	Summary      string          `json:"summary" jsonschema:"Human-readable report"`
}

// ReportInput defines the input for the polstress_report tool.
type ReportInput struct {
	BatchID string `json:"batch_id" jsonschema:"Store ID of the batch to report on"`
	Format  string `json:"format,omitempty" jsonschema:"Rendering: 'text' or 'markdown' or 'json' (default: text)"`
}

// ReportOutput defines the output for the polstress_report tool.
type ReportOutput struct {
	BatchID string `json:"batch_id"`
	Policy  string `json:"policy"`
	World   string `json:"world"`
	Report  string `json:"report" jsonschema:"Rendered metrics report"`
}

// ListInput defines the input for the polstress_list tool.
type ListInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of batches to return (default: all)"`
}

// ListOutput defines the output for the polstress_list tool.
type ListOutput struct {
	Batches []BatchSummary `json:"batches"`
	Count   int            `json:"count" jsonschema:"Number of batches returned"`
}

// BatchSummary provides a list view of a stored batch.
type BatchSummary struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Policy     string    `json:"policy"`
	World      string    `json:"world"`
	NRequested int       `json:"n_requested"`
	NCompleted int       `json:"n_completed"`
	Errored    int       `json:"errored"`
}

// CatalogInput defines the input for the polstress_catalog tool.
type CatalogInput struct{}

// CatalogOutput defines the output for the polstress_catalog tool.
type CatalogOutput struct {
	Policies []string `json:"policies" jsonschema:"Registered policy descriptors"`
	Worlds   []string `json:"worlds" jsonschema:"Registered world descriptors"`
}
