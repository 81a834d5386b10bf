package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iWorld-y/news_gather/pkg/logger"
	"github.com/iWorld-y/news_gather/pkg/model"
)

const duplicateKeyCode = 11000

// MongoSink 写入 MongoDB 集合，url 唯一
type MongoSink struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// mongoDocument 集合中的文档结构
type mongoDocument struct {
	Provider    string  `bson:"provider"`
	Source      string  `bson:"source"`
	Query       string  `bson:"query"`
	Author      *string `bson:"author"`
	Title       string  `bson:"title"`
	Description *string `bson:"description"`
	URL         string  `bson:"url"`
	ImageURL    *string `bson:"url_to_image"`
	PublishedAt string  `bson:"published_at"`
	Content     *string `bson:"content"`
}

// NewMongoSink 连接 MongoDB 并确保 url 唯一索引存在
func NewMongoSink(ctx context.Context, uri, database, collection string) (*MongoSink, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(connectCtx, urlIndex())
	if err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create url index: %w", err)
	}

	return &MongoSink{client: client, coll: coll}, nil
}

// urlIndex url 唯一索引，只覆盖非空 url，缺少 url 的文章不会互相冲突
func urlIndex() mongo.IndexModel {
	return mongo.IndexModel{
		Keys: bson.D{{Key: "url", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.D{{Key: "url", Value: bson.D{{Key: "$gt", Value: ""}}}}),
	}
}

func (s *MongoSink) Write(ctx context.Context, b *Batch) (int, error) {
	var docs []interface{}
	for _, m := range b.Merged() {
		for _, a := range m.Articles {
			docs = append(docs, toMongoDocument(m.Provider, a))
		}
	}
	if len(docs) == 0 {
		return 0, nil
	}

	opts := options.InsertMany().SetOrdered(false)
	res, err := s.coll.InsertMany(ctx, docs, opts)
	if err != nil {
		dups, ok := duplicatesOnly(err)
		if !ok {
			return 0, fmt.Errorf("insert failed: %w", err)
		}
		logger.Log.Debugf("跳过 %d 篇重复文章", dups)
		return len(docs) - dups, nil
	}
	return len(res.InsertedIDs), nil
}

func (s *MongoSink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func toMongoDocument(provider string, a model.Article) mongoDocument {
	return mongoDocument{
		Provider:    provider,
		Source:      a.Source,
		Query:       a.Query,
		Author:      a.Author,
		Title:       a.Title,
		Description: a.Description,
		URL:         a.URL,
		ImageURL:    a.ImageURL,
		PublishedAt: a.PublishedAt,
		Content:     a.Content,
	}
}

// duplicatesOnly 错误是否只包含重复键冲突，是则返回冲突条数
func duplicatesOnly(err error) (int, bool) {
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || bwe.WriteConcernError != nil || len(bwe.WriteErrors) == 0 {
		return 0, false
	}
	for _, we := range bwe.WriteErrors {
		if we.Code != duplicateKeyCode {
			return 0, false
		}
	}
	return len(bwe.WriteErrors), true
}
