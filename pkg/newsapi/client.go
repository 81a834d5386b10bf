package newsapi

import (
	"context"
	"encoding/json"
	"errors"
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
const Name = "newsapi"

// ErrMaximumResultsReached 请求的页超出了账户可访问的结果上限
var ErrMaximumResultsReached = errors.New("newsapi maximum results reached")

const codeMaximumResultsReached = "maximumResultsReached"

// defaultPageSize 数据源在未指定 pageSize 时每页返回的条数
const defaultPageSize = 100

// Client NewsAPI 客户端，同时实现头条检索和全文检索两种策略
type Client struct {
	apiKey          string
	baseURL         string
	language        string
	country         string
	pageSize        int
	legacyPageBound bool
	client          *http.Client
	limiter         *rate.Limiter
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

// NewClient 创建一个新的 NewsAPI 客户端
func NewClient(cfg config.NewsAPIConfig, opts ...Option) *Client {
	c := &Client{
		apiKey:          cfg.APIKey,
		baseURL:         cfg.BaseURL,
		language:        cfg.Language,
		country:         cfg.Country,
		pageSize:        cfg.PageSize,
		legacyPageBound: cfg.LegacyPageBound,
		client:          &http.Client{Timeout: 30 * time.Second},
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

// Search implements search.Strategy
func (c *Client) Search(ctx context.Context, req *search.Request) (*model.Result, error) {
	if req.Mode == model.ModeEverything {
		return c.searchEverything(ctx, req)
	}
	return c.searchTop(ctx, req)
}

// searchTop 头条检索：单次请求，不分页，不限日期
func (c *Client) searchTop(ctx context.Context, req *search.Request) (*model.Result, error) {
	logger.Log.Debugf("检索头条新闻: %s", req.Query)

	params := url.Values{}
	params.Set("q", req.Query)
	params.Set("language", c.language)
	params.Set("country", c.country)

	resp, err := c.get(ctx, "/v2/top-headlines", params, 1)
	if err != nil {
		return nil, err
	}

	articles, err := Normalize(req.Query, resp)
	if err != nil {
		return nil, &search.NormalizeError{Provider: Name, Page: 1, Err: err}
	}

	return &model.Result{
		Provider: Name,
		Query:    req.Query,
		Pages: []model.Page{{
			Number:       1,
			Status:       resp.Status,
			TotalResults: resp.TotalResults,
			Articles:     articles,
		}},
	}, nil
}

// searchEverything 全文检索：按相关度排序，逐页顺序拉取
func (c *Client) searchEverything(ctx context.Context, req *search.Request) (*model.Result, error) {
	result := &model.Result{
		Provider: Name,
		Query:    req.Query,
		Window:   req.Window,
	}

	for page := 1; page <= c.lastPage(req.PageCount); page++ {
		logger.Log.Debugf("全文检索第 %d 页: %s %s", page, req.Query, req.Window)

		params := url.Values{}
		params.Set("q", req.Query)
		params.Set("language", c.language)
		params.Set("sortBy", "relevancy")
		params.Set("page", strconv.Itoa(page))
		if c.pageSize > 0 {
			params.Set("pageSize", strconv.Itoa(c.pageSize))
		}
		if !req.Window.From.IsZero() {
			params.Set("from", req.Window.From.Format(time.DateOnly))
		}
		if !req.Window.To.IsZero() {
			params.Set("to", req.Window.To.Format(time.DateOnly))
		}

		resp, err := c.get(ctx, "/v2/everything", params, page)
		if err != nil {
			// 结果上限只截断后续页，已取得的页照常返回
			if page > 1 && errors.Is(err, ErrMaximumResultsReached) {
				logger.Log.Warnf("全文检索在第 %d 页达到结果上限，保留前 %d 页: %s", page, len(result.Pages), req.Query)
				break
			}
			return nil, err
		}

		articles, err := Normalize(req.Query, resp)
		if err != nil {
			return nil, &search.NormalizeError{Provider: Name, Page: page, Err: err}
		}

		result.Pages = append(result.Pages, model.Page{
			Number:       page,
			Status:       resp.Status,
			TotalResults: resp.TotalResults,
			Articles:     articles,
		})

		// 超出结果窗口的页会被数据源拒绝
		if len(articles) == 0 || page*c.effectivePageSize() >= resp.TotalResults {
			break
		}
	}

	return result, nil
}

// lastPage 最后一页页码，legacy 模式不请求最后一页
func (c *Client) lastPage(pageCount int) int {
	if pageCount <= 0 {
		pageCount = model.DefaultPageCount
	}
	if c.legacyPageBound {
		return pageCount - 1
	}
	return pageCount
}

func (c *Client) effectivePageSize() int {
	if c.pageSize > 0 {
		return c.pageSize
	}
	return defaultPageSize
}

// get 发起 GET 请求并解码响应 (Internal)
func (c *Client) get(ctx context.Context, path string, params url.Values, page int) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	u := c.baseURL + path + "?" + params.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Set("X-Api-Key", c.apiKey)
	httpReq.Header.Set("Accept", "application/json")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &search.TransportError{Provider: Name, URL: redact(u), Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &search.TransportError{Provider: Name, URL: redact(u), StatusCode: res.StatusCode, Err: fmt.Errorf("read body failed: %w", err)}
	}

	var resp Response
	decodeErr := json.Unmarshal(body, &resp)

	if res.StatusCode != http.StatusOK {
		msg := string(body)
		if decodeErr == nil && resp.Message != "" {
			msg = resp.Code + ": " + resp.Message
		}
		err := fmt.Errorf("newsapi error: %s", msg)
		if decodeErr == nil && resp.Code == codeMaximumResultsReached {
			err = fmt.Errorf("%w: %s", ErrMaximumResultsReached, msg)
		}
		return nil, &search.TransportError{Provider: Name, URL: redact(u), StatusCode: res.StatusCode, Err: err}
	}

	if decodeErr != nil {
		return nil, &search.NormalizeError{Provider: Name, Page: page, Err: fmt.Errorf("unmarshal response failed: %w", decodeErr)}
	}

	if resp.Status == "error" {
		return nil, &search.TransportError{Provider: Name, URL: redact(u), StatusCode: res.StatusCode, Err: fmt.Errorf("newsapi error: %s: %s", resp.Code, resp.Message)}
	}

	return &resp, nil
}

// redact 去掉 URL 中可能出现的凭据参数
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Has("apiKey") {
		q.Set("apiKey", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
