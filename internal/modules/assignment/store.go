// README: Open-job pool backed by a Redis set, with an in-memory variant.
package assignment

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	"lustre/internal/types"
)

const openJobsKey = "assignment:open_jobs"

// Pool is the worker-visible set of claimable booking ids. Membership is an
// index only; the booking store's status column stays authoritative.
type Pool interface {
	Add(ctx context.Context, id types.ID) error
	Remove(ctx context.Context, id types.ID) error
	List(ctx context.Context) ([]types.ID, error)
}

type RedisPool struct {
	redis *redis.Client
}

func NewRedisPool(rdb *redis.Client) *RedisPool {
	return &RedisPool{redis: rdb}
}

func (p *RedisPool) Add(ctx context.Context, id types.ID) error {
	return p.redis.SAdd(ctx, openJobsKey, string(id)).Err()
}

func (p *RedisPool) Remove(ctx context.Context, id types.ID) error {
	return p.redis.SRem(ctx, openJobsKey, string(id)).Err()
}

func (p *RedisPool) List(ctx context.Context) ([]types.ID, error) {
	members, err := p.redis.SMembers(ctx, openJobsKey).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]types.ID, len(members))
	for i, m := range members {
		ids[i] = types.ID(m)
	}
	return ids, nil
}

// MemPool backs tests and redis-less local runs.
type MemPool struct {
	mu  sync.Mutex
	set map[types.ID]struct{}
}

func NewMemPool() *MemPool {
	return &MemPool{set: make(map[types.ID]struct{})}
}

func (p *MemPool) Add(_ context.Context, id types.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.set[id] = struct{}{}
	return nil
}

func (p *MemPool) Remove(_ context.Context, id types.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.set, id)
	return nil
}

func (p *MemPool) List(_ context.Context) ([]types.ID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]types.ID, 0, len(p.set))
	for id := range p.set {
		ids = append(ids, id)
	}
	return ids, nil
}
