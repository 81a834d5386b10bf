package sink

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/iWorld-y/news_gather/pkg/config"
	"github.com/iWorld-y/news_gather/pkg/logger"
	"github.com/iWorld-y/news_gather/pkg/model"
	"github.com/iWorld-y/news_gather/pkg/storage"
)

// ErrSinkUnresolved 输出开关已打开但没有可用的目标路径
var ErrSinkUnresolved = errors.New("sink enabled but no destination configured")

// 输出目标类型
const (
	KindDatabase = "database"
	KindJSON     = "json"
	KindTabular  = "tabular"
	KindMongo    = "mongo"
)

// DateToken 文件路径中的日期占位符
const DateToken = "{date}"

// Flags 单次调用的输出开关，路径字段非空时覆盖配置
type Flags struct {
	Database bool
	JSON     bool
	Tabular  bool
	Mongo    bool

	DatabasePath string
	JSONPath     string
	TabularPath  string
	MongoURI     string
}

// Any 是否至少打开了一个输出
func (f Flags) Any() bool {
	return f.Database || f.JSON || f.Tabular || f.Mongo
}

// Batch 一次检索调用产生的全部结果
type Batch struct {
	Query   string
	Window  model.Window
	Results []*model.Result
}

// Merged 每个数据源合并后的结果
func (b *Batch) Merged() []model.Merged {
	merged := make([]model.Merged, 0, len(b.Results))
	for _, r := range b.Results {
		merged = append(merged, r.Merge())
	}
	return merged
}

// Articles 所有数据源合并去重后的文章，按结果顺序拼接
func (b *Batch) Articles() []model.Article {
	var articles []model.Article
	for _, m := range b.Merged() {
		articles = append(articles, m.Articles...)
	}
	return articles
}

// Sink 输出目标
type Sink interface {
	// Write 写入一次调用的结果，返回写入的文章数
	Write(ctx context.Context, b *Batch) (int, error)
	Close() error
}

// Opener 按目标路径打开输出
type Opener func(ctx context.Context, dest string) (Sink, error)

// Report 一次路由的结果
type Report struct {
	Written map[string]int
	Skipped []string
}

// Router 将检索结果分发到已启用的输出，输出在首次使用时打开。
// 每类输出同时只保持一个打开的目标，路径变化时关闭旧目标
type Router struct {
	cfg     config.OutputConfig
	openers map[string]Opener
	sinks   map[string]Sink
	current map[string]string
	order   []string
}

// RouterOption 路由器可选项
type RouterOption func(*Router)

// WithOpener 替换某类输出的打开方式
func WithOpener(kind string, open Opener) RouterOption {
	return func(r *Router) { r.openers[kind] = open }
}

// NewRouter 创建输出路由器
func NewRouter(cfg config.OutputConfig, opts ...RouterOption) *Router {
	r := &Router{
		cfg:     cfg,
		sinks:   make(map[string]Sink),
		current: make(map[string]string),
		openers: map[string]Opener{
			KindDatabase: func(ctx context.Context, dest string) (Sink, error) {
				s, err := storage.Open(ctx, dest)
				if err != nil {
					return nil, err
				}
				return NewDatabaseSink(s), nil
			},
			KindJSON: func(_ context.Context, dest string) (Sink, error) {
				return NewJSONSink(dest), nil
			},
			KindTabular: func(_ context.Context, dest string) (Sink, error) {
				return NewTabularSink(dest), nil
			},
			KindMongo: func(ctx context.Context, dest string) (Sink, error) {
				return NewMongoSink(ctx, dest, cfg.Mongo.Database, cfg.Mongo.Collection)
			},
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type target struct {
	kind       string
	enabled    bool
	override   string
	configured string
	templated  bool
}

func (r *Router) targets(f Flags) []target {
	return []target{
		{KindDatabase, f.Database, f.DatabasePath, r.cfg.Database, true},
		{KindJSON, f.JSON, f.JSONPath, r.cfg.JSON, true},
		{KindTabular, f.Tabular, f.TabularPath, r.cfg.Tabular, true},
		{KindMongo, f.Mongo, f.MongoURI, r.cfg.Mongo.URI, false},
	}
}

// Route 将一次调用的结果写入所有已启用且可解析的输出。
// 无法解析路径的输出被跳过并记录在 Report.Skipped 中；写入失败不影响其他输出，错误合并返回。
func (r *Router) Route(ctx context.Context, flags Flags, b *Batch) (*Report, error) {
	report := &Report{Written: make(map[string]int)}
	var errs []error

	for _, t := range r.targets(flags) {
		if !t.enabled {
			continue
		}

		dest := t.override
		if dest == "" {
			dest = t.configured
		}
		if dest == "" {
			logger.Log.WithField("sink", t.kind).Warnf("跳过输出: %v", ErrSinkUnresolved)
			report.Skipped = append(report.Skipped, t.kind)
			continue
		}
		if t.templated {
			dest = ExpandPath(dest, b.Window)
		}

		s, err := r.sink(ctx, t.kind, dest)
		if err != nil {
			errs = append(errs, fmt.Errorf("open %s sink: %w", t.kind, err))
			continue
		}

		n, err := s.Write(ctx, b)
		if err != nil {
			errs = append(errs, fmt.Errorf("write %s sink: %w", t.kind, err))
			continue
		}
		report.Written[t.kind] += n
		logger.Log.WithField("sink", t.kind).Infof("已写入 %d 篇文章: %s", n, b.Window)
	}

	return report, errors.Join(errs...)
}

// sink 获取已打开的输出，不存在时打开 (Internal)
func (r *Router) sink(ctx context.Context, kind, dest string) (Sink, error) {
	key := kind + "|" + dest
	if s, ok := r.sinks[key]; ok {
		return s, nil
	}

	open, ok := r.openers[kind]
	if !ok {
		return nil, fmt.Errorf("unknown sink kind: %s", kind)
	}
	if err := r.release(kind); err != nil {
		logger.Log.WithField("sink", kind).Warnf("关闭旧输出失败: %v", err)
	}

	s, err := open(ctx, dest)
	if err != nil {
		return nil, err
	}
	r.sinks[key] = s
	r.current[kind] = key
	r.order = append(r.order, key)
	return s, nil
}

// release 关闭并移除某类输出当前打开的目标 (Internal)
func (r *Router) release(kind string) error {
	key, ok := r.current[kind]
	if !ok {
		return nil
	}
	delete(r.current, kind)

	s := r.sinks[key]
	delete(r.sinks, key)
	r.order = slices.DeleteFunc(r.order, func(k string) bool { return k == key })
	if err := s.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}
	return nil
}

// Close 关闭路由器打开的所有输出
func (r *Router) Close() error {
	var errs []error
	for _, key := range r.order {
		if err := r.sinks[key].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", key, err))
		}
	}
	r.sinks = make(map[string]Sink)
	r.current = make(map[string]string)
	r.order = nil
	return errors.Join(errs...)
}

// ExpandPath 将路径中的 {date} 替换为窗口起始日期，不限日期时替换为 all
func ExpandPath(path string, w model.Window) string {
	if !strings.Contains(path, DateToken) {
		return path
	}
	token := "all"
	if !w.From.IsZero() {
		token = w.From.Format(time.DateOnly)
	}
	return strings.ReplaceAll(path, DateToken, token)
}

// DatabaseSink 写入 documents 表
type DatabaseSink struct {
	store *storage.Storage
}

// NewDatabaseSink 使用已打开的存储创建输出
func NewDatabaseSink(store *storage.Storage) *DatabaseSink {
	return &DatabaseSink{store: store}
}

func (s *DatabaseSink) Write(ctx context.Context, b *Batch) (int, error) {
	return s.store.SaveArticles(ctx, b.Articles())
}

func (s *DatabaseSink) Close() error {
	return s.store.Close()
}
