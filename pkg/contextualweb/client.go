package contextualweb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/iWorld-y/news_gather/pkg/config"
	"github.com/iWorld-y/news_gather/pkg/logger"
	"github.com/iWorld-y/news_gather/pkg/model"
	"github.com/iWorld-y/news_gather/pkg/search"
)

// Name 数据源标识
const Name = "contextualweb"

// PageCount 每次检索固定请求的页数
const PageCount = 9

const searchPath = "/api/Search/NewsSearchAPI"

// Client ContextualWeb News Search (RapidAPI) 客户端
type Client struct {
	apiKey  string
	baseURL string
	host    string
	client  *http.Client
	limiter *rate.Limiter
}

// Option 客户端可选项
type Option func(*Client)

// WithHTTPClient 指定 HTTP 客户端
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithLimiter 指定请求限速器
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// NewClient 创建一个新的 ContextualWeb 客户端
func NewClient(cfg config.RapidAPIConfig, opts ...Option) *Client {
	c := &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		host:    cfg.Host,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ensure Client implements search.Strategy
var _ search.Strategy = (*Client)(nil)

// Name implements search.Strategy
func (c *Client) Name() string { return Name }

// Search 顺序请求 1..PageCount 页，pageSize 取请求的分页数
func (c *Client) Search(ctx context.Context, req *search.Request) (*model.Result, error) {
	pageSize := req.PageCount
	if pageSize <= 0 {
		pageSize = model.DefaultPageCount
	}

	result := &model.Result{
		Provider: Name,
		Query:    req.Query,
		Window:   req.Window,
	}

	for page := 1; page <= PageCount; page++ {
		logger.Log.Debugf("检索第二数据源第 %d 页: %s %s", page, req.Query, req.Window)

		params := url.Values{}
		if !req.Window.From.IsZero() {
			params.Set("fromPublishedDate", req.Window.From.Format(time.DateOnly))
		}
		if !req.Window.To.IsZero() {
			params.Set("toPublishedDate", req.Window.To.Format(time.DateOnly))
		}
		params.Set("autoCorrect", "false")
		params.Set("pageNumber", strconv.Itoa(page))
		params.Set("pageSize", strconv.Itoa(pageSize))
		params.Set("q", req.Query)
		params.Set("safeSearch", "false")

		resp, err := c.get(ctx, params, page)
		if err != nil {
			return nil, err
		}

		articles, err := Normalize(req.Query, resp)
		if err != nil {
			return nil, &search.NormalizeError{Provider: Name, Page: page, Err: err}
		}

		result.Pages = append(result.Pages, model.Page{
			Number:       page,
			TotalResults: resp.TotalCount,
			Articles:     articles,
		})
	}

	return result, nil
}

// get 发起请求，清理原始文本后解码 (Internal)
func (c *Client) get(ctx context.Context, params url.Values, page int) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	u := c.baseURL + searchPath + "?" + params.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Set("x-rapidapi-host", c.host)
	httpReq.Header.Set("x-rapidapi-key", c.apiKey)

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &search.TransportError{Provider: Name, URL: u, Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &search.TransportError{Provider: Name, URL: u, StatusCode: res.StatusCode, Err: fmt.Errorf("read body failed: %w", err)}
	}

	if res.StatusCode != http.StatusOK {
		return nil, &search.TransportError{Provider: Name, URL: u, StatusCode: res.StatusCode, Err: fmt.Errorf("rapidapi error: %s", CleanText(string(body)))}
	}

	var resp Response
	if err := json.Unmarshal([]byte(CleanText(string(body))), &resp); err != nil {
		return nil, &search.NormalizeError{Provider: Name, Page: page, Err: fmt.Errorf("unmarshal response failed: %w", err)}
	}

	return &resp, nil
}
