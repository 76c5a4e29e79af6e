package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iWorld-y/tee_radar/pkg/search"
)

const baseURL = "https://api.tavily.com/search"

// Client Tavily API 客户端
type Client struct {
	apiKey string
	client *http.Client
}

// NewClient 创建一个新的 Tavily 客户端
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey: apiKey,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Ensure Client implements search.Searcher
var _ search.Searcher = (*Client)(nil)

// SearchRequest Tavily 搜索请求参数
type SearchRequest struct {
	Query                 string `json:"query"`
	SearchDepth           string `json:"search_depth,omitempty"` // basic or advanced
	Topic                 string `json:"topic,omitempty"`        // general or news
	MaxResults            int    `json:"max_results,omitempty"`
	IncludeImages         bool   `json:"include_images,omitempty"`
	IncludeImageDescripts bool   `json:"include_image_descriptions,omitempty"`
	IncludeAnswer         bool   `json:"include_answer,omitempty"`
}

// SearchResponse Tavily 搜索响应
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Images  []SearchImage  `json:"images"`
}

// SearchResult 单条网页结果
type SearchResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"published_date"`
}

// SearchImage 单条图片结果
type SearchImage struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Search 执行搜索
func (c *Client) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	apiReq := SearchRequest{
		Query:                 req.Query,
		SearchDepth:           "basic",
		Topic:                 req.Topic,
		MaxResults:            req.MaxResults,
		IncludeImages:         req.IncludeImages,
		IncludeImageDescripts: req.IncludeImages,
	}
	if apiReq.Topic == "" {
		apiReq.Topic = "general"
	}
	if apiReq.MaxResults == 0 {
		apiReq.MaxResults = 5
	}

	payload, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}

	httpReq.Header.Add("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Add("Content-Type", "application/json")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily api error (status %d): %s", res.StatusCode, string(body))
	}

	var searchResp SearchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("unmarshal response failed: %w", err)
	}

	resp := &search.Response{}
	for _, r := range searchResp.Results {
		resp.Results = append(resp.Results, search.Result{
			Title:         r.Title,
			URL:           r.URL,
			Content:       r.Content,
			Score:         r.Score,
			PublishedDate: r.PublishedDate,
		})
	}
	for _, img := range searchResp.Images {
		resp.Images = append(resp.Images, search.Image{
			URL:         img.URL,
			Description: img.Description,
		})
	}

	return resp, nil
}
