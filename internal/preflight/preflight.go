package preflight

import (
	"context"

	"shotscribe/internal/config"
	"shotscribe/internal/deps"
	"shotscribe/internal/services/llm"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional failures are shown but do not fail the run.
	Optional bool
}

// Failed reports whether any non-optional check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}

// RunAll executes every check for cfg: external tools, working directories
// and the chat endpoint.
func RunAll(ctx context.Context, cfg *config.Config, opts ...llm.Option) []Result {
	if cfg == nil {
		return nil
	}
	results := RunLocal(ctx, cfg)
	results = append(results, CheckAPI(ctx, cfg, opts...))
	if cfg.API.VisionProvider == "gemini" {
		results = append(results, CheckGeminiKey(cfg))
	}
	return results
}

// RunLocal executes the checks that need no network access.
func RunLocal(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, status := range CheckTools(ctx, cfg) {
		results = append(results, toolResult(status))
	}

	results = append(results, CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir))
	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	if cfg.Paths.TemplatesDir != "" {
		templates := CheckDirectoryAccess("Templates directory", cfg.Paths.TemplatesDir)
		templates.Optional = true
		results = append(results, templates)
	}
	return results
}

func toolResult(status deps.Status) Result {
	result := Result{Name: status.Name, Passed: status.Available, Optional: status.Optional}
	switch {
	case !status.Available:
		result.Detail = status.Detail
	case status.Version != "":
		result.Detail = status.Version
	default:
		result.Detail = status.Path
	}
	return result
}
