package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultStreamMaxLen приблизительный предел длины потока Redis
const DefaultStreamMaxLen = 1_000_000

// RedisStreamChannel добавляет задания в поток Redis командой XADD
type RedisStreamChannel struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

// NewRedisStreamChannel создаёт канал поверх готового клиента; жизненным циклом клиента управляет вызывающий
func NewRedisStreamChannel(client redis.Cmdable, stream string, maxLen int64) *RedisStreamChannel {
	if maxLen <= 0 {
		maxLen = DefaultStreamMaxLen
	}
	return &RedisStreamChannel{client: client, stream: stream, maxLen: maxLen}
}

// Enqueue выполняет XADD stream MAXLEN ~ n * job <job> data <payload>
func (c *RedisStreamChannel) Enqueue(ctx context.Context, job string, payload []byte) error {
	err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.stream,
		MaxLen: c.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"job":  job,
			"data": payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", c.stream, err)
	}
	return nil
}

// Close ничего не делает: клиент принадлежит вызывающему
func (c *RedisStreamChannel) Close() error {
	return nil
}
