package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/news_gather/pkg/config"
	"github.com/iWorld-y/news_gather/pkg/logger"
	"github.com/iWorld-y/news_gather/pkg/model"
	"github.com/iWorld-y/news_gather/pkg/search"
	"github.com/iWorld-y/news_gather/pkg/search/factory"
	"github.com/iWorld-y/news_gather/pkg/sink"
)

// Output 检索结果的输出端，通常是 *sink.Router
type Output interface {
	Route(ctx context.Context, flags sink.Flags, b *sink.Batch) (*sink.Report, error)
	Close() error
}

// Engine 检索、归一化、输出的调度器，创建后配置不可变
type Engine struct {
	cfg        *config.Config
	strategies *factory.Strategies
	out        Output
	fetcher    Fetcher
}

// Option 引擎可选项
type Option func(*Engine)

// WithFetcher 启用正文补全
func WithFetcher(f Fetcher) Option {
	return func(e *Engine) { e.fetcher = f }
}

// New 使用已创建的策略和输出创建引擎
func New(cfg *config.Config, strategies *factory.Strategies, out Output, opts ...Option) *Engine {
	e := &Engine{
		cfg:        cfg,
		strategies: strategies,
		out:        out,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewFromConfig 按配置创建策略、输出路由器和正文抓取器。
// 两个凭据都缺失时返回 config.ErrNoCredentials
func NewFromConfig(cfg *config.Config) (*Engine, error) {
	strategies, err := factory.NewStrategies(cfg)
	if err != nil {
		return nil, err
	}

	var opts []Option
	if cfg.Enrich.Enabled {
		opts = append(opts, WithFetcher(NewReadabilityFetcher(cfg.Enrich.Timeout())))
	}

	return New(cfg, strategies, sink.NewRouter(cfg.Output), opts...), nil
}

// Close 关闭引擎打开的输出
func (e *Engine) Close() error {
	return e.out.Close()
}

// Summary 一次运行的汇总
type Summary struct {
	RunID   string
	Windows int
	Failed  int
	Written map[string]int
	Skipped []string
}

func (s *Summary) add(r *sink.Report) {
	if r == nil {
		return
	}
	for k, n := range r.Written {
		s.Written[k] += n
	}
	for _, k := range r.Skipped {
		if !slices.Contains(s.Skipped, k) {
			s.Skipped = append(s.Skipped, k)
		}
	}
}

// Run 执行一次检索。起止日期都给出时按天拆分，否则直接检索一次
func (e *Engine) Run(ctx context.Context, req model.SearchRequest, flags sink.Flags) (*Summary, error) {
	summary := &Summary{
		RunID:   uuid.NewString(),
		Written: make(map[string]int),
	}
	log := logger.Log.WithField("run", summary.RunID)

	if !req.HasRange() {
		log.Infof("开始检索: %q mode=%s", req.Query, req.Mode)
		summary.Windows = 1
		report, err := e.searchWindow(ctx, log, req, req.Window(), flags)
		summary.add(report)
		if err != nil {
			summary.Failed = 1
		}
		return summary, err
	}

	windows := SplitDays(*req.Start, *req.End)
	log.Infof("开始按天检索: %q mode=%s, 共 %d 天", req.Query, req.Mode, len(windows))

	var errs []error
	for _, w := range windows {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Windows++

		log.Debugf("检索时间窗口 %s", w)
		report, err := e.searchWindow(ctx, log, req, w, flags)
		summary.add(report)
		if err == nil {
			continue
		}

		summary.Failed++
		err = fmt.Errorf("window %s: %w", w, err)
		if !e.cfg.Range.ContinueOnError {
			return summary, err
		}
		log.Errorf("时间窗口检索失败，继续下一天: %v", err)
		errs = append(errs, err)
	}

	log.Infof("检索完成: %d 个窗口, %d 个失败", summary.Windows, summary.Failed)
	return summary, errors.Join(errs...)
}

// SearchToOutput 按请求的时间窗口检索一次并写入输出
func (e *Engine) SearchToOutput(ctx context.Context, req model.SearchRequest, flags sink.Flags) (*sink.Report, error) {
	return e.searchWindow(ctx, logrus.NewEntry(logger.Log), req, req.Window(), flags)
}

// searchWindow 检索一个时间窗口：依次运行已选中的策略，全部成功后统一写入输出 (Internal)
func (e *Engine) searchWindow(ctx context.Context, log *logrus.Entry, req model.SearchRequest, w model.Window, flags sink.Flags) (*sink.Report, error) {
	if !flags.Any() {
		log.Debug("未启用任何输出，跳过检索")
		return &sink.Report{Written: map[string]int{}}, nil
	}

	strategies, err := e.selectStrategies(req.Mode)
	if err != nil {
		return nil, err
	}

	batch := &sink.Batch{Query: req.Query, Window: w}
	sreq := search.NewRequest(req, w)
	for _, s := range strategies {
		res, err := s.Search(ctx, sreq)
		if err != nil {
			return nil, err
		}
		log.WithField("provider", s.Name()).Infof("获取 %d 篇文章 (%d 页)", res.Count(), len(res.Pages))
		for _, a := range res.Articles() {
			log.Debugf("  - %s", logger.Title(a.Title))
		}
		batch.Results = append(batch.Results, res)
	}

	if e.fetcher != nil {
		n := Enrich(ctx, e.fetcher, batch.Results)
		log.Debugf("补全正文 %d 篇", n)
	}

	return e.out.Route(ctx, flags, batch)
}

// selectStrategies 按检索模式选出要运行的策略，主数据源在前
func (e *Engine) selectStrategies(mode model.Mode) ([]search.Strategy, error) {
	if mode == model.ModeSecondary {
		if e.strategies.Secondary == nil {
			return nil, fmt.Errorf("secondary mode: %w", search.ErrStrategyUnavailable)
		}
		return []search.Strategy{e.strategies.Secondary}, nil
	}

	var out []search.Strategy
	if e.strategies.Primary != nil {
		out = append(out, e.strategies.Primary)
	}
	if e.strategies.Secondary != nil {
		out = append(out, e.strategies.Secondary)
	}
	if len(out) == 0 {
		return nil, search.ErrStrategyUnavailable
	}
	return out, nil
}
