package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/FranksOps/medguide/internal/guideline"
	"github.com/FranksOps/medguide/internal/pipeline"
)

// SearchInput is the input schema for search_medical_guidelines.
type SearchInput struct {
	Query      string   `json:"query" jsonschema:"search query for medical guidelines, e.g. 'asthma management'"`
	Domains    []string `json:"domains,omitempty" jsonschema:"guideline sites to search; all supported sites when omitted"`
	MaxResults int      `json:"max_results,omitempty" jsonschema:"maximum number of guidelines to return, 1 to 5 (default 3)"`
}

// SearchOutput is the structured result of search_medical_guidelines.
type SearchOutput struct {
	Documents []guideline.Document `json:"documents"`
	Count     int                  `json:"count"`
}

// ListSourcesInput is the empty input of list_guideline_sources.
type ListSourcesInput struct{}

// SourceInfo describes one supported guideline site.
type SourceInfo struct {
	Domain   string `json:"domain"`
	Name     string `json:"name"`
	Strategy string `json:"strategy"`
}

// ListSourcesOutput is the result of list_guideline_sources.
type ListSourcesOutput struct {
	Sources []SourceInfo `json:"sources"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_medical_guidelines",
		Description: "Search medical guidelines from authoritative sources and return their full text",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_guideline_sources",
		Description: "List the guideline sites that can be searched",
	}, s.handleListSources)
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	docs, err := s.searcher.Search(ctx, pipeline.Request{
		Query:      input.Query,
		Domains:    input.Domains,
		MaxResults: input.MaxResults,
	})
	if err != nil {
		s.logger.Warn("search_medical_guidelines failed", "query", input.Query, "err", err)
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{Documents: docs, Count: len(docs)}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: ResultText(input.Query, docs)}},
	}, output, nil
}

func (s *Server) handleListSources(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListSourcesInput,
) (*mcp.CallToolResult, ListSourcesOutput, error) {
	sources := s.searcher.Sources()
	output := ListSourcesOutput{Sources: make([]SourceInfo, len(sources))}
	for i, src := range sources {
		output.Sources[i] = SourceInfo{
			Domain:   src.Domain,
			Name:     src.Name,
			Strategy: string(src.Strategy),
		}
	}
	return nil, output, nil
}

// ResultText is the agent-facing text for a search: the rendered documents,
// or a hint when nothing was found.
func ResultText(query string, docs []guideline.Document) string {
	if len(docs) == 0 {
		return fmt.Sprintf("No medical guidelines found for '%s' in the specified domains. "+
			"Try searching for specific conditions like 'diabetes', 'hypertension', or 'fracture'.", query)
	}
	return guideline.RenderAll(docs)
}
