package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/iWorld-y/news_gather/pkg/config"
	"github.com/iWorld-y/news_gather/pkg/engine"
	"github.com/iWorld-y/news_gather/pkg/logger"
	"github.com/iWorld-y/news_gather/pkg/storage"
)

func main() {
	opts := &options{}
	flag.Var(&opts.start, "start", "Start date, YYYY-MM-DD or Y,M,D (enables per-day search)")
	flag.Var(&opts.end, "end", "End date, YYYY-MM-DD or Y,M,D (defaults to now)")
	flag.BoolVar(&opts.everywhere, "everywhere", false, "Search all articles instead of top headlines")
	flag.BoolVar(&opts.secondary, "secondary", false, "Search only the ContextualWeb provider")
	flag.IntVar(&opts.pages, "pages", 0, "Number of pages to fetch (default 10)")

	flag.BoolVar(&opts.sinks.Database, "database", false, "Write articles to the documents table")
	flag.BoolVar(&opts.sinks.JSON, "json", false, "Write results to a JSON file")
	flag.BoolVar(&opts.sinks.Tabular, "tabular", false, "Write articles to a parquet file")
	flag.BoolVar(&opts.sinks.Mongo, "mongo", false, "Write articles to MongoDB")
	flag.StringVar(&opts.sinks.DatabasePath, "database-path", "", "Database path or postgres:// DSN (overrides config)")
	flag.StringVar(&opts.sinks.JSONPath, "json-file", "", "JSON output path (overrides config)")
	flag.StringVar(&opts.sinks.TabularPath, "tabular-file", "", "Parquet output path (overrides config)")

	flag.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")
	flag.StringVar(&opts.configFile, "config", "", "Path to YAML configuration file (default config.yaml)")
	flag.StringVar(&opts.newsKey, "news-key", "", "NewsAPI key (overrides config)")
	flag.StringVar(&opts.rapidKey, "rapid-key", "", "RapidAPI key (overrides config)")
	flag.BoolVar(&opts.dumpCorpus, "dump-corpus", false, "Print stored documents as one text line each and exit")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <query>\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	opts.query = strings.TrimSpace(strings.Join(flag.Args(), " "))

	// 1. 加载配置
	cfg, err := loadConfig(opts)
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}

	// 2. 初始化日志
	if err := logger.InitLogger(cfg.Log.Level, cfg.Log.File, opts.verbose); err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}
	logger.Log.Debugf("配置: %s", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.dumpCorpus {
		if err := dumpCorpus(ctx, cfg, opts); err != nil {
			logger.Log.Fatalf("导出语料失败: %v", err)
		}
		return
	}

	if opts.query == "" {
		flag.Usage()
		os.Exit(2)
	}

	req, err := opts.searchRequest(time.Now())
	if err != nil {
		logger.Log.Fatalf("参数错误: %v", err)
	}
	if !opts.sinks.Any() {
		logger.Log.Warn("未启用任何输出 (-database, -json, -tabular, -mongo)，不执行检索")
		return
	}

	// 3. 初始化引擎
	eng, err := engine.NewFromConfig(cfg)
	if err != nil {
		if errors.Is(err, config.ErrNoCredentials) {
			logger.Log.Fatal("未配置任何 API 密钥，请设置 NEWSAPI_KEY 或 RAPIDAPI_KEY")
		}
		logger.Log.Fatalf("引擎初始化失败: %v", err)
	}

	// 4. 执行检索
	summary, runErr := eng.Run(ctx, req, opts.sinks)
	if err := eng.Close(); err != nil {
		logger.Log.Errorf("关闭输出失败: %v", err)
	}
	if summary != nil {
		logger.Log.Infof("运行 %s 结束: 窗口 %d, 失败 %d, 写入 %v, 跳过 %v",
			summary.RunID, summary.Windows, summary.Failed, summary.Written, summary.Skipped)
	}
	if runErr != nil {
		logger.Log.Fatalf("检索失败: %v", runErr)
	}
}

// loadConfig 依次应用配置文件、.env、环境变量和命令行参数
func loadConfig(opts *options) (*config.Config, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, err
	}

	path := opts.configFile
	if path == "" {
		path = config.DefaultPath
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		if opts.configFile != "" || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg = config.Default()
	}
	cfg.ApplyEnv()

	if opts.newsKey != "" {
		cfg.NewsAPI.APIKey = opts.newsKey
	}
	if opts.rapidKey != "" {
		cfg.RapidAPI.APIKey = opts.rapidKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// dumpCorpus 每篇文档输出一行 JSON: {"id":..,"text":..}
func dumpCorpus(ctx context.Context, cfg *config.Config, opts *options) error {
	path := opts.sinks.DatabasePath
	if path == "" {
		path = cfg.Output.Database
	}
	if path == "" {
		return errors.New("no database configured: set output.database or -database-path")
	}

	store, err := storage.Open(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()

	docs, err := store.Documents(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for _, entry := range engine.MasterContent(docs) {
		if err := enc.Encode(entry); err != nil {
			return err
		}
	}
	logger.Log.Infof("已导出 %d 篇文档", len(docs))
	return nil
}
