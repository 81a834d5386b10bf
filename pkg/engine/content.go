package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/iWorld-y/news_gather/pkg/logger"
	"github.com/iWorld-y/news_gather/pkg/model"
	"github.com/iWorld-y/news_gather/pkg/storage"
)

// 数据源截断正文时追加的后缀，例如 "... [+1234 chars]"
var truncatedSuffix = regexp.MustCompile(`\[\+\d+ chars\]\s*$`)

// Fetcher 抓取文章页面并提取正文
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// ReadabilityFetcher 使用 readability 提取正文
type ReadabilityFetcher struct {
	client *http.Client
}

// NewReadabilityFetcher 创建正文抓取器，timeout 防止单个页面挂起
func NewReadabilityFetcher(timeout time.Duration) *ReadabilityFetcher {
	return &ReadabilityFetcher{client: &http.Client{Timeout: timeout}}
}

func (f *ReadabilityFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request failed: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, u)
	if err != nil {
		return "", fmt.Errorf("extract content failed: %w", err)
	}
	return strings.TrimSpace(article.TextContent), nil
}

// NeedsEnrichment 正文缺失或被数据源截断
func NeedsEnrichment(a model.Article) bool {
	return a.Content == nil || *a.Content == "" || truncatedSuffix.MatchString(*a.Content)
}

// Enrich 为缺失或被截断的正文抓取全文，抓取失败时保留原值，返回替换的篇数
func Enrich(ctx context.Context, f Fetcher, results []*model.Result) int {
	n := 0
	for _, r := range results {
		for i := range r.Pages {
			articles := r.Pages[i].Articles
			for j := range articles {
				a := &articles[j]
				if !NeedsEnrichment(*a) || a.URL == "" {
					continue
				}
				if ctx.Err() != nil {
					return n
				}

				text, err := f.Fetch(ctx, a.URL)
				if err != nil {
					logger.Log.Debugf("正文抓取失败 %s: %v", a.URL, err)
					continue
				}
				if a.Content != nil && len(text) <= len(*a.Content) {
					continue
				}
				a.Content = model.StringPtr(text)
				if a.Content != nil {
					n++
				}
			}
		}
	}
	return n
}

// CorpusEntry 一篇文档合并后的文本
type CorpusEntry struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// MasterContent 将每篇文档的 description、content、title 以空格连接为一段不含换行的文本
func MasterContent(docs []storage.Document) []CorpusEntry {
	entries := make([]CorpusEntry, 0, len(docs))
	for _, d := range docs {
		parts := make([]string, 0, 3)
		for _, p := range []string{d.Description, d.Content, d.Title} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		text := strings.Join(parts, " ")
		text = strings.ReplaceAll(text, "\r", "")
		text = strings.ReplaceAll(text, "\n", "")
		entries = append(entries, CorpusEntry{ID: d.ID, Text: text})
	}
	return entries
}
