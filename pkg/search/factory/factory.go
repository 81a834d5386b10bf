package factory

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/iWorld-y/news_gather/pkg/config"
	"github.com/iWorld-y/news_gather/pkg/contextualweb"
	"github.com/iWorld-y/news_gather/pkg/logger"
	"github.com/iWorld-y/news_gather/pkg/newsapi"
	"github.com/iWorld-y/news_gather/pkg/search"
)

// Strategies 按凭据创建的检索策略，未配置的数据源为 nil
type Strategies struct {
	Primary   search.Strategy
	Secondary search.Strategy
}

// Len 已配置的策略数量
func (s *Strategies) Len() int {
	n := 0
	if s.Primary != nil {
		n++
	}
	if s.Secondary != nil {
		n++
	}
	return n
}

// NewStrategies 根据配置中的凭据创建检索策略，两个凭据都缺失时返回 config.ErrNoCredentials
func NewStrategies(cfg *config.Config) (*Strategies, error) {
	if !cfg.HasNewsAPI() && !cfg.HasRapidAPI() {
		return nil, config.ErrNoCredentials
	}

	hc := &http.Client{Timeout: cfg.HTTP.Timeout()}
	limiter := NewLimiter(cfg.Rate)

	s := &Strategies{}
	if cfg.HasNewsAPI() {
		opts := []newsapi.Option{newsapi.WithHTTPClient(hc)}
		if limiter != nil {
			opts = append(opts, newsapi.WithLimiter(limiter))
		}
		s.Primary = newsapi.NewClient(cfg.NewsAPI, opts...)
	} else {
		logger.Log.Warn("未配置 NewsAPI 密钥，仅使用第二数据源")
	}

	if cfg.HasRapidAPI() {
		opts := []contextualweb.Option{contextualweb.WithHTTPClient(hc)}
		if limiter != nil {
			opts = append(opts, contextualweb.WithLimiter(limiter))
		}
		s.Secondary = contextualweb.NewClient(cfg.RapidAPI, opts...)
	} else {
		logger.Log.Warn("未配置 RapidAPI 密钥，仅使用 NewsAPI")
	}

	return s, nil
}

// NewLimiter 按每分钟请求数创建限速器，RPM 为 0 时返回 nil
func NewLimiter(cfg config.RateConfig) *rate.Limiter {
	if cfg.RPM <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Limit(float64(cfg.RPM) / 60.0)
	return rate.NewLimiter(limit, burst)
}
