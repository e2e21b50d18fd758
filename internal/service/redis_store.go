package service

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// ReanalysisGuard 保证同一文档同一时间只有一个重新分析任务。
type ReanalysisGuard interface {
	Acquire(ctx context.Context, documentID string) (bool, error)
	Release(ctx context.Context, documentID string) error
}

// TokenBlacklist 记录已登出的 token。
type TokenBlacklist interface {
	Add(ctx context.Context, tokenID string, ttl time.Duration) error
	Contains(ctx context.Context, tokenID string) (bool, error)
}

// ReanalysisGuardTTL 是互斥标记的过期时间，防止 worker 异常退出后永久锁定。
const ReanalysisGuardTTL = 10 * time.Minute

type redisReanalysisGuard struct {
	rdb *redis.Client
}

// NewReanalysisGuard 创建基于 Redis SETNX 的 ReanalysisGuard。
func NewReanalysisGuard(rdb *redis.Client) ReanalysisGuard {
	return &redisReanalysisGuard{rdb: rdb}
}

func reanalysisKey(documentID string) string {
	return "reanalysis:" + documentID
}

func (g *redisReanalysisGuard) Acquire(ctx context.Context, documentID string) (bool, error) {
	return g.rdb.SetNX(ctx, reanalysisKey(documentID), "1", ReanalysisGuardTTL).Result()
}

func (g *redisReanalysisGuard) Release(ctx context.Context, documentID string) error {
	return g.rdb.Del(ctx, reanalysisKey(documentID)).Err()
}

type redisTokenBlacklist struct {
	rdb *redis.Client
}

// NewTokenBlacklist 创建基于 Redis 的 token 黑名单。
func NewTokenBlacklist(rdb *redis.Client) TokenBlacklist {
	return &redisTokenBlacklist{rdb: rdb}
}

func blacklistKey(tokenID string) string {
	return "blacklist:" + tokenID
}

// Add 以 token 的剩余有效期作为 key 的过期时间。
func (b *redisTokenBlacklist) Add(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return b.rdb.Set(ctx, blacklistKey(tokenID), "true", ttl).Err()
}

func (b *redisTokenBlacklist) Contains(ctx context.Context, tokenID string) (bool, error) {
	n, err := b.rdb.Exists(ctx, blacklistKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
