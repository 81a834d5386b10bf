package search

import (
	"context"

	"github.com/iWorld-y/news_gather/pkg/model"
)

// Strategy 定义通用的检索策略接口，每个数据源实现一个
type Strategy interface {
	// Name 数据源标识，例如 "newsapi"
	Name() string
	// Search 按请求拉取全部分页，每页在返回前已完成归一化
	Search(ctx context.Context, req *Request) (*model.Result, error)
}

// Request 通用检索请求
type Request struct {
	Query     string
	Mode      model.Mode
	Window    model.Window
	PageCount int
}

// NewRequest 由 SearchRequest 和时间窗口构造检索请求
func NewRequest(sr model.SearchRequest, w model.Window) *Request {
	return &Request{
		Query:     sr.Query,
		Mode:      sr.Mode,
		Window:    w,
		PageCount: sr.Pages(),
	}
}
