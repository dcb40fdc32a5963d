// Package tavily implements the web-search capability against the Tavily
// search API. Results feed scene keyword enrichment during image prompt
// construction; the pipeline works without them.
package tavily

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"tripkit/pkg/config"
	"tripkit/pkg/llm"
	"tripkit/pkg/request"
)

// Client implements llm.Searcher over the shared request client, so Tavily
// calls share its per-provider queue, response cache and usage tracking.
type Client struct {
	req        *request.Client
	endpoint   string
	key        string
	maxResults int
}

// NewClient creates a Tavily search client.
func NewClient(req *request.Client, cfg config.SearchConfig) *Client {
	return &Client{
		req:        req,
		endpoint:   cfg.Endpoint,
		key:        cfg.Key,
		maxResults: cfg.MaxResults,
	}
}

type searchRequest struct {
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search queries Tavily and returns up to maxResults hits. Identical queries
// hit the response cache instead of the network.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]llm.SearchResult, error) {
	if c.key == "" {
		return nil, fmt.Errorf("tavily: no api key configured")
	}
	if maxResults <= 0 || maxResults > c.maxResults {
		maxResults = c.maxResults
	}

	body, err := json.Marshal(searchRequest{
		Query:       query,
		MaxResults:  maxResults,
		SearchDepth: "basic",
	})
	if err != nil {
		return nil, fmt.Errorf("tavily: failed to encode request: %w", err)
	}

	headers := map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + c.key,
	}

	raw, err := c.req.PostWithCache(ctx, c.endpoint, body, headers, cacheKey(query, maxResults))
	if err != nil {
		return nil, fmt.Errorf("tavily: search failed: %w", err)
	}

	var resp searchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("tavily: failed to decode response: %w", err)
	}

	results := make([]llm.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, llm.SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
		})
		if len(results) == maxResults {
			break
		}
	}
	return results, nil
}

func cacheKey(query string, maxResults int) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "tavily:%s:%d", query, maxResults))
	return "search_" + hex.EncodeToString(sum[:16])
}
