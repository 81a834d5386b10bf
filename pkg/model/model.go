package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DefaultPageCount 默认分页数
const DefaultPageCount = 10

// Mode 检索模式
type Mode string

const (
	// ModeTopHeadlines 头条检索，单页，不限日期
	ModeTopHeadlines Mode = "top_headlines"
	// ModeEverything 全文检索，按相关度排序并分页
	ModeEverything Mode = "everything"
	// ModeSecondary 仅使用第二数据源
	ModeSecondary Mode = "secondary"
)

// ParseMode 解析检索模式字符串
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeTopHeadlines, "top", "":
		return ModeTopHeadlines, nil
	case ModeEverything, "everywhere":
		return ModeEverything, nil
	case ModeSecondary, "rapid":
		return ModeSecondary, nil
	default:
		return "", fmt.Errorf("unknown search mode: %s", s)
	}
}

// Article 归一化后的文章记录，指针字段为 nil 表示缺失
type Article struct {
	Source      string  `json:"source"`
	Query       string  `json:"query"`
	Author      *string `json:"author"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	URL         string  `json:"url"`
	ImageURL    *string `json:"image_url"`
	PublishedAt string  `json:"published_at"`
	Content     *string `json:"content"`
}

// Window 半开时间区间 [From, To)，零值表示不限日期
type Window struct {
	From time.Time
	To   time.Time
}

// IsZero 是否为不限日期的窗口
func (w Window) IsZero() bool {
	return w.From.IsZero() && w.To.IsZero()
}

func (w Window) String() string {
	if w.IsZero() {
		return "all"
	}
	return fmt.Sprintf("[%s, %s)", w.From.Format(time.DateOnly), w.To.Format(time.DateOnly))
}

// MarshalJSON 零窗口输出 null
func (w Window) MarshalJSON() ([]byte, error) {
	if w.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(struct {
		From string `json:"from"`
		To   string `json:"to"`
	}{
		From: w.From.Format(time.DateOnly),
		To:   w.To.Format(time.DateOnly),
	})
}

// SearchRequest 一次检索请求
type SearchRequest struct {
	Query     string
	Mode      Mode
	Start     *time.Time
	End       *time.Time
	PageCount int
}

// Pages 返回分页数，未设置时使用默认值
func (r SearchRequest) Pages() int {
	if r.PageCount <= 0 {
		return DefaultPageCount
	}
	return r.PageCount
}

// HasRange 起止日期是否都已给出
func (r SearchRequest) HasRange() bool {
	return r.Start != nil && r.End != nil
}

// Window 请求对应的时间窗口
func (r SearchRequest) Window() Window {
	var w Window
	if r.Start != nil {
		w.From = *r.Start
	}
	if r.End != nil {
		w.To = *r.End
	}
	return w
}

// Page 数据源返回的一页结果（已归一化）
type Page struct {
	Number       int
	Status       string
	TotalResults int
	Articles     []Article
}

// Result 单个数据源一次检索的分页结果
type Result struct {
	Provider string
	Query    string
	Window   Window
	Pages    []Page
}

// Merged 合并后的结果，对应导出文件中的一条记录
type Merged struct {
	Provider     string    `json:"provider"`
	Status       string    `json:"status,omitempty"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
}

// Merge 合并所有分页：文章按页顺序拼接，相同 URL 只保留第一次出现；
// status 与 totalResults 以最后一页为准
func (r *Result) Merge() Merged {
	m := Merged{
		Provider: r.Provider,
		Articles: make([]Article, 0, r.Count()),
	}
	seen := make(map[string]struct{})
	for _, p := range r.Pages {
		m.Status = p.Status
		m.TotalResults = p.TotalResults
		for _, a := range p.Articles {
			if a.URL != "" {
				if _, ok := seen[a.URL]; ok {
					continue
				}
				seen[a.URL] = struct{}{}
			}
			m.Articles = append(m.Articles, a)
		}
	}
	return m
}

// Count 所有分页的文章总数（未去重）
func (r *Result) Count() int {
	n := 0
	for _, p := range r.Pages {
		n += len(p.Articles)
	}
	return n
}

// Articles 按页顺序返回全部文章（未去重）
func (r *Result) Articles() []Article {
	out := make([]Article, 0, r.Count())
	for _, p := range r.Pages {
		out = append(out, p.Articles...)
	}
	return out
}

// StringPtr 空字符串返回 nil
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
