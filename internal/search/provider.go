package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/conceptmesh/conceptmesh-backend/internal/platform/logger"
	"github.com/conceptmesh/conceptmesh-backend/internal/types"
	"github.com/conceptmesh/conceptmesh-backend/internal/utils"
)

const userAgent = "conceptmesh-search/0.3"

// Provider executes one query against an external search backend. Safe for
// concurrent use. "No results" is an empty slice, never an error; errors mean
// transport failure and are isolated per query by the fan-out layer.
type Provider interface {
	Search(ctx context.Context, query string, maxResults int) ([]types.SearchItem, error)
}

// NewProviderFromEnv selects the provider named by SEARCH_PROVIDER
// (tavily | wikipedia | mock; default tavily, falling back to wikipedia when
// no Tavily key is configured).
func NewProviderFromEnv(log *logger.Logger) Provider {
	name := strings.ToLower(strings.TrimSpace(utils.GetEnv("SEARCH_PROVIDER", "tavily", log)))
	timeout := time.Duration(utils.GetEnvAsInt("HTTP_TIMEOUT_SECONDS", 30, log)) * time.Second
	httpClient := &http.Client{Timeout: timeout}

	switch name {
	case "mock":
		return &MockProvider{}
	case "wikipedia":
		return newWikipediaProvider(log, httpClient)
	default:
		key := strings.TrimSpace(utils.GetEnv("TAVILY_API_KEY", "", log))
		if key == "" {
			log.Warn("TAVILY_API_KEY not set, falling back to wikipedia provider")
			return newWikipediaProvider(log, httpClient)
		}
		return &TavilyProvider{
			log:        log.With("provider", "tavily"),
			apiKey:     key,
			httpClient: httpClient,
		}
	}
}

var wsRe = regexp.MustCompile(`\s+`)

// CleanText collapses all whitespace runs to single spaces and trims.
func CleanText(s string) string {
	return strings.TrimSpace(wsRe.ReplaceAllString(s, " "))
}

// HashText returns the hex SHA-256 of s; used as the content half of the
// dedup key.
func HashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

type TavilyProvider struct {
	log        *logger.Logger
	apiKey     string
	httpClient *http.Client
}

func (p *TavilyProvider) Search(ctx context.Context, query string, maxResults int) ([]types.SearchItem, error) {
	body := map[string]any{
		"api_key":             p.apiKey,
		"query":               query,
		"max_results":         maxResults,
		"include_answer":      false,
		"include_raw_content": false,
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.tavily.com/search", strings.NewReader(string(raw)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tavily http %d: %s", resp.StatusCode, string(data))
	}

	var parsed struct {
		Results []struct {
			URL     string `json:"url"`
			Title   string `json:"title"`
			Content string `json:"content"`
			Snippet string `json:"snippet"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("tavily decode: %w", err)
	}

	items := make([]types.SearchItem, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		content := r.Content
		if content == "" {
			content = r.Snippet
		}
		items = append(items, types.SearchItem{
			URL:     r.URL,
			Title:   r.Title,
			Content: CleanText(content),
		})
	}
	return items, nil
}

type WikipediaProvider struct {
	log        *logger.Logger
	lang       string
	httpClient *http.Client
}

func newWikipediaProvider(log *logger.Logger, httpClient *http.Client) *WikipediaProvider {
	lang := strings.ToLower(strings.TrimSpace(utils.GetEnv("WIKIPEDIA_LANG", "en", log)))
	if lang != "en" && lang != "zh" {
		lang = "en"
	}
	return &WikipediaProvider{
		log:        log.With("provider", "wikipedia"),
		lang:       lang,
		httpClient: httpClient,
	}
}

func (p *WikipediaProvider) Search(ctx context.Context, query string, maxResults int) ([]types.SearchItem, error) {
	limit := maxResults
	if limit < 1 {
		limit = 1
	}
	if limit > 10 {
		limit = 10
	}

	q := url.Values{}
	q.Set("action", "opensearch")
	q.Set("search", query)
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("namespace", "0")
	q.Set("format", "json")

	openURL := fmt.Sprintf("https://%s.wikipedia.org/w/api.php?%s", p.lang, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia opensearch http %d", resp.StatusCode)
	}

	// The opensearch payload is a positional array:
	// [query, titles[], descriptions[], urls[]].
	var payload []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("wikipedia decode: %w", err)
	}
	var titles, urls []string
	if len(payload) > 1 {
		_ = json.Unmarshal(payload[1], &titles)
	}
	if len(payload) > 3 {
		_ = json.Unmarshal(payload[3], &urls)
	}

	items := make([]types.SearchItem, 0, len(titles))
	for i, title := range titles {
		if i >= len(urls) || i >= maxResults {
			break
		}
		extract, err := p.fetchSummary(ctx, title)
		if err != nil || len(extract) < 80 {
			continue
		}
		items = append(items, types.SearchItem{URL: urls[i], Title: title, Content: extract})
	}
	return items, nil
}

func (p *WikipediaProvider) fetchSummary(ctx context.Context, title string) (string, error) {
	summaryURL := fmt.Sprintf("https://%s.wikipedia.org/api/rest_v1/page/summary/%s", p.lang, url.PathEscape(title))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, summaryURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wikipedia summary http %d", resp.StatusCode)
	}

	var parsed struct {
		Extract string `json:"extract"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	return CleanText(parsed.Extract), nil
}

// MockProvider returns deterministic offline results. Useful in development
// and in tests that exercise the pipeline end to end.
type MockProvider struct{}

func (p *MockProvider) Search(_ context.Context, query string, maxResults int) ([]types.SearchItem, error) {
	if maxResults < 1 {
		return nil, nil
	}
	base := fmt.Sprintf("Mock result for query=%q. This is offline demo text. It should be replaced by a real provider in production.", query)
	return []types.SearchItem{
		{
			URL:     "about:mock",
			Title:   "mock-search",
			Content: base + " " + strings.Repeat("More details. ", 20),
		},
	}, nil
}
