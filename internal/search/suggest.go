package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const snippetLength = 100

// esSuggestResponse is the structure used to decode suggest responses.
type esSuggestResponse struct {
	Hits struct {
		Hits []struct {
			Source ProductDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Suggest returns autocomplete suggestions for the given prefix: unique
// product names paired with a short description snippet, active products only.
func (e *Engine) Suggest(ctx context.Context, prefix string, limit int) ([]Suggestion, error) {
	if limit <= 0 {
		limit = 10
	}

	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{
						"match": map[string]any{
							"name.autocomplete": prefix,
						},
					},
				},
				"filter": []any{
					map[string]any{
						"term": map[string]any{"active": true},
					},
				},
			},
		},
		"size":    limit,
		"_source": []string{"name", "description"},
		"sort": []any{
			map[string]any{"_score": "desc"},
		},
	}

	data, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch suggest: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch suggest: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch suggest: %s", e.decodeError(res.Body, res.Status()))
	}

	var esResp esSuggestResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch suggest: decode response: %w", err)
	}

	// Deduplicate names while preserving score order.
	seen := make(map[string]struct{})
	suggestions := make([]Suggestion, 0, len(esResp.Hits.Hits))
	for _, hit := range esResp.Hits.Hits {
		name := hit.Source.Name
		if _, exists := seen[name]; exists {
			continue
		}
		seen[name] = struct{}{}
		suggestions = append(suggestions, Suggestion{
			Name:    name,
			Snippet: snippet(hit.Source.Description, prefix),
		})
	}

	return suggestions, nil
}

// snippet returns a window of at most snippetLength runes from the
// description, centered on the first occurrence of term so the match is
// visible in the excerpt. Without a match the window starts at the front.
func snippet(description, term string) string {
	runes := []rune(description)
	if len(runes) <= snippetLength {
		return description
	}

	center := 0
	if term != "" {
		if byteIdx := strings.Index(strings.ToLower(description), strings.ToLower(term)); byteIdx >= 0 {
			center = len([]rune(description[:byteIdx]))
		}
	}

	start := center - snippetLength/2
	if start+snippetLength > len(runes) {
		start = len(runes) - snippetLength
	}
	if start < 0 {
		start = 0
	}
	return string(runes[start : start+snippetLength])
}
