package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// MongoBootstrap は接続確立直後に1回だけ実行する初期化処理（インデックス作成など）。
type MongoBootstrap func(ctx context.Context, db *mongo.Database) error

// MongoStore はMongoDBへの遅延接続を管理する。
// 接続はHandleで1つに保たれ、最初の利用時にbootstrapが実行される。
type MongoStore struct {
	handle *Handle[*mongo.Client]
	dbName string
}

// NewMongoStore はMongoStoreを生成する。この時点では接続しない。
func NewMongoStore(uri, dbName string, bootstraps ...MongoBootstrap) *MongoStore {
	open := func(ctx context.Context) (*mongo.Client, error) {
		client, err := mongo.Connect(options.Client().
			ApplyURI(uri).
			SetConnectTimeout(10 * time.Second).
			SetServerSelectionTimeout(10 * time.Second))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
		}

		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("failed to ping mongodb: %w", err)
		}

		db := client.Database(dbName)
		for _, bootstrap := range bootstraps {
			if err := bootstrap(ctx, db); err != nil {
				_ = client.Disconnect(ctx)
				return nil, fmt.Errorf("failed to bootstrap mongodb: %w", err)
			}
		}

		return client, nil
	}

	closeFn := func(ctx context.Context, client *mongo.Client) error {
		return client.Disconnect(ctx)
	}

	return &MongoStore{
		handle: NewHandle(open, closeFn),
		dbName: dbName,
	}
}

// Database はデータベースを返す。未接続の場合は接続を確立する。
func (s *MongoStore) Database(ctx context.Context) (*mongo.Database, error) {
	client, err := s.handle.Get(ctx)
	if err != nil {
		return nil, err
	}
	return client.Database(s.dbName), nil
}

// Collection は指定名のコレクションを返す。
func (s *MongoStore) Collection(ctx context.Context, name string) (*mongo.Collection, error) {
	db, err := s.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}

// PingContext は接続の疎通を確認する。ヘルスチェックで使用する。
func (s *MongoStore) PingContext(ctx context.Context) error {
	client, err := s.handle.Get(ctx)
	if err != nil {
		return err
	}
	return client.Ping(ctx, readpref.Primary())
}

// Close は接続を閉じる。
func (s *MongoStore) Close(ctx context.Context) error {
	return s.handle.Close(ctx)
}
