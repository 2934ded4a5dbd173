// Package upload 管理上传后、确认前的待定数据集
package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ashwinyue/next-arena/internal/model"
)

const (
	// 默认保留时间
	defaultTTL = 30 * time.Minute
	// Redis key 前缀
	uploadKeyPrefix = "upload:"
)

// ErrUploadNotFound 令牌不存在、已过期、已使用或不属于当前用户
var ErrUploadNotFound = errors.New("pending upload not found")

// Pending 待确认的上传
type Pending struct {
	Token    string         `json:"token"`
	Owner    string         `json:"owner"`
	Filename string         `json:"filename"`
	Dataset  *model.Dataset `json:"dataset"`
	StagedAt time.Time      `json:"staged_at"`
}

// Manager 待确认上传管理器，配置了 Redis 时存入 Redis，否则保存在内存
type Manager struct {
	mu     sync.Mutex
	memory map[string]*Pending
	redis  *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewManager 创建上传管理器，redisClient 可以为 nil
func NewManager(redisClient *redis.Client, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Manager{
		memory: make(map[string]*Pending),
		redis:  redisClient,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Stage 暂存数据集并返回一次性令牌
func (m *Manager) Stage(ctx context.Context, owner, filename string, ds *model.Dataset) (*Pending, error) {
	p := &Pending{
		Token:    uuid.New().String(),
		Owner:    owner,
		Filename: filename,
		Dataset:  ds,
		StagedAt: m.now(),
	}
	if err := m.put(ctx, p, m.ttl); err != nil {
		return nil, err
	}
	return p, nil
}

// Restore 把取出后未能使用的上传按原令牌放回，保留原有的过期时间
func (m *Manager) Restore(ctx context.Context, p *Pending) error {
	remaining := m.ttl - m.now().Sub(p.StagedAt)
	if remaining <= 0 {
		return ErrUploadNotFound
	}
	return m.put(ctx, p, remaining)
}

func (m *Manager) put(ctx context.Context, p *Pending, ttl time.Duration) error {
	if m.redis != nil {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to encode upload: %w", err)
		}
		if err := m.redis.Set(ctx, uploadKeyPrefix+p.Token, data, ttl).Err(); err != nil {
			return fmt.Errorf("failed to save upload to redis: %w", err)
		}
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()
	m.memory[p.Token] = p
	return nil
}

// Take 取出并删除令牌对应的上传，只有暂存者本人可以取出
func (m *Manager) Take(ctx context.Context, owner, token string) (*Pending, error) {
	if token == "" {
		return nil, ErrUploadNotFound
	}

	if m.redis != nil {
		return m.takeFromRedis(ctx, owner, token)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()
	p, ok := m.memory[token]
	if !ok || p.Owner != owner {
		return nil, ErrUploadNotFound
	}
	delete(m.memory, token)
	return p, nil
}

// Discard 丢弃上传
func (m *Manager) Discard(ctx context.Context, owner, token string) error {
	_, err := m.Take(ctx, owner, token)
	return err
}

func (m *Manager) takeFromRedis(ctx context.Context, owner, token string) (*Pending, error) {
	key := uploadKeyPrefix + token
	data, err := m.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrUploadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load upload from redis: %w", err)
	}

	var p Pending
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode upload: %w", err)
	}
	if p.Owner != owner {
		return nil, ErrUploadNotFound
	}

	// 只有删除成功的一方拿到上传
	n, err := m.redis.Del(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to delete upload from redis: %w", err)
	}
	if n == 0 {
		return nil, ErrUploadNotFound
	}
	return &p, nil
}

// sweep 清理过期的内存上传，调用方持有锁
func (m *Manager) sweep() {
	cutoff := m.now().Add(-m.ttl)
	for token, p := range m.memory {
		if !p.StagedAt.After(cutoff) {
			delete(m.memory, token)
		}
	}
}

// Ping 检查 Redis 连接，未配置 Redis 时直接返回
func (m *Manager) Ping(ctx context.Context) error {
	if m.redis == nil {
		return nil
	}
	if err := m.redis.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: redis ping failed: %v", err)
		return err
	}
	return nil
}
