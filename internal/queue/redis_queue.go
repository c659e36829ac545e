// Package queue coordinates the ready, in-flight, and scheduled dispatch
// queues in Redis. Work items reference a persisted record by kind and id;
// the store row stays authoritative for status.
package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"rankpilot/internal/config"
)

// Work item kinds dispatched to the executor.
const (
	KindAgentRun  = "run"
	KindSiteAudit = "audit"
)

// Item identifies one dispatched unit of work.
type Item struct {
	Kind string
	ID   string
}

func (i Item) String() string {
	return i.Kind + ":" + i.ID
}

// ParseItem decodes a queue member back into an Item.
func ParseItem(member string) (Item, error) {
	kind, id, ok := strings.Cut(member, ":")
	if !ok || id == "" {
		return Item{}, fmt.Errorf("malformed work item %q", member)
	}
	switch kind {
	case KindAgentRun, KindSiteAudit:
		return Item{Kind: kind, ID: id}, nil
	default:
		return Item{}, fmt.Errorf("unknown work item kind %q", kind)
	}
}

// RedisQueue is the dispatch queue between the submission gateway and the
// executor.
type RedisQueue struct {
	client         *redis.Client
	priorityQueues []string
	inflightKey    string
	scheduledKey   string
	metaPrefix     string
	visibilityTTL  time.Duration
	dlqKey         string
}

// NewRedisQueue builds a queue client from config.
func NewRedisQueue(cfg config.Config) *RedisQueue {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return NewRedisQueueWithClient(client, cfg)
}

// NewRedisQueueWithClient builds a queue over an existing redis client.
func NewRedisQueueWithClient(client *redis.Client, cfg config.Config) *RedisQueue {
	priorities := cfg.PriorityQueues
	if len(priorities) == 0 {
		priorities = []string{"default"}
	}
	visibility := cfg.VisibilityTimeout
	if visibility == 0 {
		visibility = 30 * time.Second
	}
	dlq := cfg.DLQName
	if dlq == "" {
		dlq = "dispatch:dlq"
	}
	return &RedisQueue{
		client:         client,
		priorityQueues: priorities,
		inflightKey:    "dispatch:inflight",
		scheduledKey:   "dispatch:scheduled",
		metaPrefix:     "dispatch:meta:",
		visibilityTTL:  visibility,
		dlqKey:         dlq,
	}
}

func (q *RedisQueue) readyKey(priority string) string {
	return "dispatch:ready:" + priority
}

func (q *RedisQueue) metaKey(member string) string {
	return q.metaPrefix + member
}

// Enqueue places a work item on the ready queue, or the scheduled set when
// runAt is in the future.
func (q *RedisQueue) Enqueue(ctx context.Context, item Item, priority string, runAt time.Time) error {
	if priority == "" {
		priority = "default"
	}
	member := item.String()
	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, q.metaKey(member), "priority", priority)
	if runAt.After(time.Now()) {
		pipe.ZAdd(ctx, q.scheduledKey, redis.Z{Score: float64(runAt.UnixMilli()), Member: member})
	} else {
		pipe.RPush(ctx, q.readyKey(priority), member)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Schedule moves a work item into the scheduled set for deferred dispatch.
func (q *RedisQueue) Schedule(ctx context.Context, item Item, priority string, runAt time.Time) error {
	if priority == "" {
		priority = "default"
	}
	member := item.String()
	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, q.metaKey(member), "priority", priority)
	pipe.ZAdd(ctx, q.scheduledKey, redis.Z{Score: float64(runAt.UnixMilli()), Member: member})
	_, err := pipe.Exec(ctx)
	return err
}

// PromoteScheduled moves due scheduled items into ready queues. It returns
// how many were promoted.
func (q *RedisQueue) PromoteScheduled(ctx context.Context, now time.Time, limit int64) (int, error) {
	members, err := q.client.ZRangeByScore(ctx, q.scheduledKey, &redis.ZRangeBy{
		Min:    "-inf",
		Max:    fmt.Sprintf("%d", now.UnixMilli()),
		Offset: 0,
		Count:  limit,
	}).Result()
	if err != nil {
		return 0, err
	}
	if len(members) == 0 {
		return 0, nil
	}

	pipe := q.client.TxPipeline()
	for _, member := range members {
		pipe.ZRem(ctx, q.scheduledKey, member)
		pipe.RPush(ctx, q.readyKey(q.priorityOf(ctx, member)), member)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return len(members), nil
}

func (q *RedisQueue) priorityOf(ctx context.Context, member string) string {
	priority, err := q.client.HGet(ctx, q.metaKey(member), "priority").Result()
	if err != nil || priority == "" {
		return "default"
	}
	return priority
}

// DequeueWithLease pops a work item from the ready queues in priority order
// and places it into inflight with a visibility timeout. A zero Item means
// the queues are empty.
func (q *RedisQueue) DequeueWithLease(ctx context.Context) (Item, error) {
	keys := make([]string, 0, len(q.priorityQueues)+1)
	for _, p := range q.priorityQueues {
		keys = append(keys, q.readyKey(p))
	}
	keys = append(keys, q.inflightKey)

	res, err := dequeueScript.Run(ctx, q.client, keys, time.Now().Add(q.visibilityTTL).UnixMilli()).Result()
	if err == redis.Nil {
		return Item{}, nil
	}
	if err != nil {
		return Item{}, err
	}
	member, ok := res.(string)
	if !ok {
		return Item{}, fmt.Errorf("unexpected type from dequeue script: %T", res)
	}
	return ParseItem(member)
}

// ExtendLease pushes the visibility deadline forward for an in-flight item.
func (q *RedisQueue) ExtendLease(ctx context.Context, item Item, extension time.Duration) error {
	return q.client.ZAdd(ctx, q.inflightKey, redis.Z{
		Score:  float64(time.Now().Add(extension).UnixMilli()),
		Member: item.String(),
	}).Err()
}

// Ack removes a work item from in-flight tracking and its meta record.
func (q *RedisQueue) Ack(ctx context.Context, item Item) error {
	member := item.String()
	pipe := q.client.TxPipeline()
	pipe.ZRem(ctx, q.inflightKey, member)
	pipe.Del(ctx, q.metaKey(member))
	_, err := pipe.Exec(ctx)
	return err
}

// RequeueExpired reclaims leases that timed out, re-enqueuing the items.
func (q *RedisQueue) RequeueExpired(ctx context.Context, now time.Time, limit int64) ([]Item, error) {
	members, err := q.client.ZRangeByScore(ctx, q.inflightKey, &redis.ZRangeBy{
		Min:    "-inf",
		Max:    fmt.Sprintf("%d", now.UnixMilli()),
		Offset: 0,
		Count:  limit,
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	pipe := q.client.TxPipeline()
	items := make([]Item, 0, len(members))
	for _, member := range members {
		pipe.ZRem(ctx, q.inflightKey, member)
		pipe.RPush(ctx, q.readyKey(q.priorityOf(ctx, member)), member)
		if item, err := ParseItem(member); err == nil {
			items = append(items, item)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return items, nil
}

// DLQPush appends a work item to the dead-letter queue for operational
// inspection.
func (q *RedisQueue) DLQPush(ctx context.Context, item Item) error {
	return q.client.RPush(ctx, q.dlqKey, item.String()).Err()
}

// DLQPeek reads the oldest dead-lettered work items.
func (q *RedisQueue) DLQPeek(ctx context.Context, count int64) ([]string, error) {
	return q.client.LRange(ctx, q.dlqKey, 0, count-1).Result()
}

// ReadyDepth returns the total length of all ready queues.
func (q *RedisQueue) ReadyDepth(ctx context.Context) (int64, error) {
	pipe := q.client.Pipeline()
	cmds := make([]*redis.IntCmd, 0, len(q.priorityQueues))
	for _, p := range q.priorityQueues {
		cmds = append(cmds, pipe.LLen(ctx, q.readyKey(p)))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	var total int64
	for _, c := range cmds {
		total += c.Val()
	}
	return total, nil
}

var dequeueScript = redis.NewScript(`
local inflight = KEYS[#KEYS]
for i=1,#KEYS-1 do
  local item = redis.call('LPOP', KEYS[i])
  if item then
    redis.call('ZADD', inflight, ARGV[1], item)
    return item
  end
end
return nil
`)
