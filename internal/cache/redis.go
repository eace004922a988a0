package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/contractqa/backend-go/internal/config"
	"github.com/contractqa/backend-go/internal/logger"
)

// AnswerCache 问答结果的Redis缓存
// 缓存不可用时所有操作静默降级为miss，不影响主流程
type AnswerCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAnswerCache 按配置创建缓存，未启用或连接失败返回nil
func NewAnswerCache(cfg config.CacheConfig) *AnswerCache {
	if !cfg.Enabled {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		DB:   cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, answer cache disabled", zap.Error(err))
		rdb.Close()
		return nil
	}

	ttl := time.Duration(cfg.TTL) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	logger.Info("answer cache connected",
		zap.String("addr", fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)),
		zap.Duration("ttl", ttl))
	return &AnswerCache{client: rdb, ttl: ttl}
}

// key 问题文本归一化后做sha256，避免把原文塞进key
func key(question string) string {
	sum := sha256.Sum256([]byte(question))
	return "contractqa:answer:" + hex.EncodeToString(sum[:])
}

// Get 查询缓存，miss或任何错误返回false
func (c *AnswerCache) Get(ctx context.Context, question string, out interface{}) bool {
	if c == nil {
		return false
	}
	data, err := c.client.Get(ctx, key(question)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("cache get failed", zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		logger.Warn("cache entry corrupted, discarding", zap.Error(err))
		c.client.Del(ctx, key(question))
		return false
	}
	return true
}

// Set 写入缓存，失败只记日志
func (c *AnswerCache) Set(ctx context.Context, question string, value interface{}) {
	if c == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(question), data, c.ttl).Err(); err != nil {
		logger.Warn("cache set failed", zap.Error(err))
	}
}

// Flush 清空全部缓存答案，知识库重建后调用
func (c *AnswerCache) Flush(ctx context.Context) {
	if c == nil {
		return
	}
	iter := c.client.Scan(ctx, 0, "contractqa:answer:*", 0).Iterator()
	for iter.Next(ctx) {
		c.client.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.Warn("cache flush failed", zap.Error(err))
	}
}

// Close 关闭连接
func (c *AnswerCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
