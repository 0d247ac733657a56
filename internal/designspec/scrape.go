package designspec

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/mcpclient"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/tools/figma"
)

// Source is the part of the Figma client a scrape needs.
type Source interface {
	GetDesignContext(ctx context.Context, params figma.GetDesignContextParams) (string, error)
	GetVariableDefs(ctx context.Context, params figma.GetVariableDefsParams) (map[string]any, error)
}

// Scrape fetches the generated code and variable definitions for a node and
// merges what both yield. Variables are optional: a tool error there is
// logged and the code-derived spec is still returned.
func Scrape(ctx context.Context, source Source, params figma.NodeParams, logger *slog.Logger) (*Spec, error) {
	params.NodeID = figma.NormalizeNodeID(params.NodeID)

	code, err := source.GetDesignContext(ctx, figma.GetDesignContextParams{NodeParams: params, ForceCode: true})
	if err != nil {
		return nil, fmt.Errorf("failed to get design context for %s: %w", params.NodeID, err)
	}
	spec := Extract(code)

	defs, err := source.GetVariableDefs(ctx, params)
	switch {
	case err == nil:
		spec = Merge(spec, ExtractVariables(defs))
	case mcpclient.IsToolError(err):
		logger.Warn("Variable definitions unavailable, using generated code only",
			"node_id", params.NodeID,
			"error", err)
	default:
		return nil, fmt.Errorf("failed to get variable definitions for %s: %w", params.NodeID, err)
	}

	spec.NodeID = params.NodeID
	return spec, nil
}
