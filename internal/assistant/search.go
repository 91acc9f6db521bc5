package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	braveEndpoint = "https://api.search.brave.com/res/v1/web/search"
	searchMaxHits = 5
	searchTimeout = 10 * time.Second
)

// BraveSearch implements Searcher against the Brave web search API. Every
// failure mode is folded into the returned string because the caller treats
// it as tool content regardless of success.
type BraveSearch struct {
	key      string
	endpoint string
	http     *http.Client
}

func NewBraveSearch(key string, endpoint ...string) *BraveSearch {
	ep := braveEndpoint
	if len(endpoint) != 0 && endpoint[0] != "" {
		ep = endpoint[0]
	}
	return &BraveSearch{
		key:      key,
		endpoint: ep,
		http:     &http.Client{Timeout: searchTimeout},
	}
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

func (s *BraveSearch) Search(ctx context.Context, query string) string {
	if s.key == "" {
		return "web search unavailable: no search API key configured"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.endpoint+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return "web search failed: " + err.Error()
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", s.key)

	resp, err := s.http.Do(req)
	if err != nil {
		return "web search failed: " + err.Error()
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("web search failed: status %d", resp.StatusCode)
	}

	var parsed braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "web search failed: unreadable response"
	}
	if len(parsed.Web.Results) == 0 {
		return "no results found for: " + query
	}

	var b strings.Builder
	for i, hit := range parsed.Web.Results {
		if i == searchMaxHits {
			break
		}
		fmt.Fprintf(&b, "%d. %s\n%s\n%s\n\n", i+1, hit.Title, hit.URL, hit.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}
