package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/iWorld-y/news_gather/pkg/logger"
	"github.com/iWorld-y/news_gather/pkg/model"
)

// 支持的数据库驱动
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Storage documents 表的读写
type Storage struct {
	db     *sql.DB
	driver string
}

// Document 从 documents 表读回的文本字段，缺失值为空串
type Document struct {
	ID          int64
	Description string
	Content     string
	Title       string
}

// DriverFor 根据 DSN 选择驱动：postgres:// 或 postgresql:// 使用 PostgreSQL，其余视为 SQLite 文件路径
func DriverFor(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return DriverPostgres
	}
	return DriverSQLite
}

// Open 打开数据库并初始化表结构
func Open(ctx context.Context, dsn string) (*Storage, error) {
	driver := DriverFor(dsn)
	if driver == DriverSQLite {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if driver == DriverSQLite {
		// 单文件单写者
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Storage{db: db, driver: driver}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Log.Debugf("数据库已就绪: %s (%s)", redactDSN(dsn), driver)
	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// Driver 当前使用的驱动名
func (s *Storage) Driver() string {
	return s.driver
}

func (s *Storage) initSchema(ctx context.Context) error {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == DriverPostgres {
		idColumn = "id SERIAL PRIMARY KEY"
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			` + idColumn + `,
			source TEXT,
			query TEXT,
			author TEXT,
			title TEXT,
			description TEXT,
			url TEXT,
			url_to_image TEXT,
			published_at TEXT NOT NULL,
			content TEXT
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS documents_url_key ON documents (url)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}

	return nil
}

// SaveArticles 在一个事务中写入文章，url 已存在的记录被忽略，返回新写入的条数
func (s *Storage) SaveArticles(ctx context.Context, articles []model.Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.rebind(`
		INSERT INTO documents (source, query, author, title, description, url, url_to_image, published_at, content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (url) DO NOTHING`))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, a := range articles {
		res, err := stmt.ExecContext(ctx,
			s.text(a.Source),
			s.text(a.Query),
			s.nullable(a.Author),
			s.text(a.Title),
			s.nullable(a.Description),
			s.text(a.URL),
			s.nullable(a.ImageURL),
			a.PublishedAt,
			s.nullable(a.Content),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert article %s: %w", a.URL, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return inserted, nil
}

// Documents 读取全部文档的 id、description、content、title
func (s *Storage) Documents(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, description, content, title FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			d                           Document
			description, content, title sql.NullString
		)
		if err := rows.Scan(&d.ID, &description, &content, &title); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		d.Description = description.String
		d.Content = content.String
		d.Title = title.String
		docs = append(docs, d)
	}

	return docs, rows.Err()
}

// Count documents 表中的记录数
func (s *Storage) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// rebind 将 ? 占位符转换为当前驱动的格式
func (s *Storage) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}

	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// text PostgreSQL 文本字段不支持 NULL 字节和无效的 UTF-8
func (s *Storage) text(v string) string {
	if s.driver != DriverPostgres {
		return v
	}
	return removeNullBytes(strings.ToValidUTF8(v, ""))
}

func (s *Storage) nullable(v *string) any {
	if v == nil {
		return nil
	}
	return s.text(*v)
}

func removeNullBytes(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}

// redactDSN 隐藏 DSN 中的密码
func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	userinfo := dsn[scheme+3 : at]
	if colon := strings.Index(userinfo, ":"); colon >= 0 {
		return dsn[:scheme+3] + userinfo[:colon] + ":***" + dsn[at:]
	}
	return dsn
}
