package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tempizhere/linkgate/internal/models"
)

// TimestampLayout формат метки времени события: ISO 8601 в UTC с миллисекундами
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// ClickPayload тело задания click
type ClickPayload struct {
	ShortCode string  `json:"shortCode"`
	DomainID  *string `json:"domainId"`
	IP        string  `json:"ip"`
	UserAgent string  `json:"userAgent"`
	Timestamp string  `json:"timestamp"`
}

// ClickEventPublisher формирует тело события перехода и ставит его в очередь
type ClickEventPublisher struct {
	channel EventChannel
	now     func() time.Time
}

// NewClickEventPublisher создаёт публикатор поверх канала
func NewClickEventPublisher(channel EventChannel) *ClickEventPublisher {
	return &ClickEventPublisher{channel: channel, now: time.Now}
}

// WithClock подменяет источник времени для событий без метки
func (p *ClickEventPublisher) WithClock(now func() time.Time) *ClickEventPublisher {
	p.now = now
	return p
}

// NewClickPayload строит тело задания; нулевая метка заменяется на now
func NewClickPayload(event models.ClickEvent, now time.Time) ClickPayload {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = now
	}
	return ClickPayload{
		ShortCode: event.ShortCode,
		DomainID:  event.DomainID,
		IP:        event.ClientIP,
		UserAgent: event.UserAgent,
		Timestamp: ts.UTC().Format(TimestampLayout),
	}
}

// Publish ставит событие в очередь один раз, без повторов
func (p *ClickEventPublisher) Publish(ctx context.Context, event models.ClickEvent) error {
	body, err := json.Marshal(NewClickPayload(event, p.now()))
	if err != nil {
		return fmt.Errorf("marshal click payload: %w", err)
	}
	return p.channel.Enqueue(ctx, JobClick, body)
}
