package sink

import (
	"context"
	"fmt"

	"github.com/parquet-go/parquet-go"
)

// Row 表格输出的一行，字段与数据源原始字段同名
type Row struct {
	Source      string  `parquet:"source"`
	Author      *string `parquet:"author"`
	Title       string  `parquet:"title"`
	Description *string `parquet:"description"`
	URL         string  `parquet:"url"`
	URLToImage  *string `parquet:"urlToImage"`
	PublishedAt string  `parquet:"publishedAt"`
	Content     *string `parquet:"content"`
}

// TabularSink 每次调用覆盖写入一个 parquet 文件
type TabularSink struct {
	path string
}

func NewTabularSink(path string) *TabularSink {
	return &TabularSink{path: path}
}

func (s *TabularSink) Write(_ context.Context, b *Batch) (int, error) {
	articles := b.Articles()
	rows := make([]Row, 0, len(articles))
	for _, a := range articles {
		rows = append(rows, Row{
			Source:      a.Source,
			Author:      a.Author,
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			URLToImage:  a.ImageURL,
			PublishedAt: a.PublishedAt,
			Content:     a.Content,
		})
	}

	if err := ensureDir(s.path); err != nil {
		return 0, err
	}
	if err := parquet.WriteFile(s.path, rows); err != nil {
		return 0, fmt.Errorf("failed to write parquet file: %w", err)
	}
	return len(rows), nil
}

func (s *TabularSink) Close() error { return nil }

// ReadTabular 读取表格输出文件
func ReadTabular(path string) ([]Row, error) {
	rows, err := parquet.ReadFile[Row](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet file: %w", err)
	}
	return rows, nil
}
