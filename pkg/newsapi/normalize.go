package newsapi

import (
	"errors"
	"fmt"

	"github.com/iWorld-y/news_gather/pkg/model"
)

// 归一化错误
var (
	ErrMissingArticles    = errors.New(`payload has no "articles" key`)
	ErrMissingSource      = errors.New(`article has no "source" object`)
	ErrMissingPublishedAt = errors.New(`article has no "publishedAt"`)
)

// Response NewsAPI 响应
type Response struct {
	Status       string       `json:"status"`
	TotalResults int          `json:"totalResults"`
	Articles     []RawArticle `json:"articles"`
	Code         string       `json:"code,omitempty"`
	Message      string       `json:"message,omitempty"`
}

// RawArticle NewsAPI 单篇文章
type RawArticle struct {
	Source      *RawSource `json:"source"`
	Author      *string    `json:"author"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	URL         string     `json:"url"`
	URLToImage  *string    `json:"urlToImage"`
	PublishedAt string     `json:"publishedAt"`
	Content     *string    `json:"content"`
}

// RawSource 文章来源
type RawSource struct {
	ID   *string `json:"id"`
	Name string  `json:"name"`
}

// Normalize 将响应中的文章转换为统一记录，source 对象展平为名称
func Normalize(query string, resp *Response) ([]model.Article, error) {
	if resp.Articles == nil {
		return nil, ErrMissingArticles
	}

	articles := make([]model.Article, 0, len(resp.Articles))
	for i, raw := range resp.Articles {
		if raw.Source == nil {
			return nil, fmt.Errorf("article %d: %w", i, ErrMissingSource)
		}
		if raw.PublishedAt == "" {
			return nil, fmt.Errorf("article %d: %w", i, ErrMissingPublishedAt)
		}

		articles = append(articles, model.Article{
			Source:      raw.Source.Name,
			Query:       query,
			Author:      raw.Author,
			Title:       raw.Title,
			Description: raw.Description,
			URL:         raw.URL,
			ImageURL:    raw.URLToImage,
			PublishedAt: raw.PublishedAt,
			Content:     raw.Content,
		})
	}

	return articles, nil
}
