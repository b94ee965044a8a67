// Package events публикует события переходов по коротким ссылкам во внешнюю очередь
package events

//go:generate mockgen -source=channel.go -destination=mock_channel.go -package=events

import (
	"context"

	"go.uber.org/zap"
)

// JobClick имя задания для события перехода
const JobClick = "click"

// EventChannel очередь, принимающая задания по принципу fire-and-forget
type EventChannel interface {
	// Enqueue ставит задание job с телом payload в очередь
	Enqueue(ctx context.Context, job string, payload []byte) error
	// Close освобождает соединение с очередью
	Close() error
}

// NopChannel отбрасывает задания; используется, когда очередь не настроена
type NopChannel struct {
	logger *zap.Logger
}

// NewNopChannel создаёт NopChannel
func NewNopChannel(logger *zap.Logger) *NopChannel {
	return &NopChannel{logger: logger}
}

// Enqueue записывает задание в отладочный лог и отбрасывает его
func (c *NopChannel) Enqueue(ctx context.Context, job string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.logger.Debug("Event dropped", zap.String("job", job), zap.ByteString("payload", payload))
	return nil
}

// Close ничего не делает
func (c *NopChannel) Close() error {
	return nil
}
