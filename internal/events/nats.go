package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSChannel публикует задания в поток JetStream; тема задания: <queue>.<job>
type NATSChannel struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	prefix string
	logger *zap.Logger
}

// NATSStreamMaxAge срок хранения событий в потоке
const NATSStreamMaxAge = 7 * 24 * time.Hour

// NewNATSChannel подключается к NATS и создаёт или обновляет поток с именем очереди
func NewNATSChannel(url, queue string, logger *zap.Logger) (*NATSChannel, error) {
	conn, err := nats.Connect(url,
		nats.Name("linkgate"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.PingInterval(20*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	c := &NATSChannel{
		conn:   conn,
		js:     js,
		prefix: subjectToken(queue),
		logger: logger,
	}
	if err := c.initStream(); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// subjectToken приводит имя очереди к допустимому токену темы и имени потока
func subjectToken(queue string) string {
	return strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(queue)
}

func (c *NATSChannel) initStream() error {
	cfg := &nats.StreamConfig{
		Name:     c.prefix,
		Subjects: []string{c.prefix + ".>"},
		Storage:  nats.FileStorage,
		MaxAge:   NATSStreamMaxAge,
		Replicas: 1,
	}

	_, err := c.js.StreamInfo(cfg.Name)
	if errors.Is(err, nats.ErrStreamNotFound) {
		if _, err := c.js.AddStream(cfg); err != nil {
			return fmt.Errorf("add stream: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("stream info: %w", err)
	}
	if _, err := c.js.UpdateStream(cfg); err != nil {
		return fmt.Errorf("update stream: %w", err)
	}
	return nil
}

// Subject возвращает тему, в которую публикуется задание
func (c *NATSChannel) Subject(job string) string {
	return c.prefix + "." + job
}

// Enqueue публикует задание и ждёт подтверждения JetStream
func (c *NATSChannel) Enqueue(ctx context.Context, job string, payload []byte) error {
	msg := nats.NewMsg(c.Subject(job))
	msg.Data = payload
	msg.Header.Set("Job", job)
	if _, err := c.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	return nil
}

// Close сбрасывает буфер и закрывает соединение
func (c *NATSChannel) Close() error {
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
		return err
	}
	return nil
}
