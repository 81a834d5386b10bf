package contextualweb

import (
	"errors"
	"fmt"

	"github.com/iWorld-y/news_gather/pkg/model"
)

// 归一化错误
var (
	ErrMissingValue         = errors.New(`payload has no "value" key`)
	ErrMissingProvider      = errors.New(`article has no "provider" object`)
	ErrMissingDatePublished = errors.New(`article has no "datePublished"`)
)

// Response NewsSearchAPI 响应
type Response struct {
	Type       string     `json:"_type"`
	TotalCount int        `json:"totalCount"`
	Value      []RawValue `json:"value"`
	Message    string     `json:"message,omitempty"`
}

// RawValue 单条新闻
type RawValue struct {
	Title         string       `json:"title"`
	URL           string       `json:"url"`
	Description   *string      `json:"description"`
	Body          *string      `json:"body"`
	DatePublished string       `json:"datePublished"`
	Provider      *RawProvider `json:"provider"`
	Image         *RawImage    `json:"image"`
}

// RawProvider 新闻来源
type RawProvider struct {
	Name string `json:"name"`
}

// RawImage 配图
type RawImage struct {
	URL string `json:"url"`
}

// Normalize 将 value 列表转换为统一记录：provider 展平为名称，image 展平为地址
func Normalize(query string, resp *Response) ([]model.Article, error) {
	if resp.Value == nil {
		return nil, ErrMissingValue
	}

	articles := make([]model.Article, 0, len(resp.Value))
	for i, raw := range resp.Value {
		if raw.Provider == nil {
			return nil, fmt.Errorf("article %d: %w", i, ErrMissingProvider)
		}
		if raw.DatePublished == "" {
			return nil, fmt.Errorf("article %d: %w", i, ErrMissingDatePublished)
		}

		var image *string
		if raw.Image != nil {
			image = model.StringPtr(raw.Image.URL)
		}

		articles = append(articles, model.Article{
			Source:      raw.Provider.Name,
			Query:       query,
			Title:       raw.Title,
			Description: raw.Description,
			URL:         raw.URL,
			ImageURL:    image,
			PublishedAt: raw.DatePublished,
			Content:     raw.Body,
		})
	}

	return articles, nil
}
