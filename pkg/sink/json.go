package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iWorld-y/news_gather/pkg/model"
)

// JSONSink 每次调用覆盖写入一个 JSON 文档
type JSONSink struct {
	path string
}

// Document JSON 输出的文档结构
type Document struct {
	Query   string         `json:"query"`
	Window  model.Window   `json:"window"`
	Results []model.Merged `json:"results"`
}

func NewJSONSink(path string) *JSONSink {
	return &JSONSink{path: path}
}

func (s *JSONSink) Write(_ context.Context, b *Batch) (int, error) {
	doc := Document{
		Query:   b.Query,
		Window:  b.Window,
		Results: b.Merged(),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("marshal json failed: %w", err)
	}

	if err := writeFile(s.path, data); err != nil {
		return 0, err
	}

	n := 0
	for _, m := range doc.Results {
		n += len(m.Articles)
	}
	return n, nil
}

func (s *JSONSink) Close() error { return nil }

// writeFile 创建父目录并覆盖写入
func writeFile(path string, data []byte) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func ensureDir(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	return nil
}
