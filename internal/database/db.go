package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PoolConfig はPostgreSQL接続プールの設定。
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration // 0は無制限
}

// DefaultPoolConfig はAPIサーバー1プロセスあたりの既定のプール設定を返す。
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

// Open はPostgreSQLの接続プールを開く。
// sql.Openは接続を試行しないため、最初のクエリまたはPingで実際に接続される。
// アイドル接続数は最大接続数を超えないよう切り詰める。
func Open(databaseURL string, pool PoolConfig) (*sql.DB, error) {
	if pool.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", pool.MaxOpenConns)
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(min(pool.MaxIdleConns, pool.MaxOpenConns))
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)

	return db, nil
}
