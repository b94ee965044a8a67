//go:build integration

package events

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tempizhere/linkgate/internal/models"
	"github.com/tempizhere/linkgate/internal/testutils"
	"go.uber.org/zap"
)

func TestRedisStreamChannel_Integration(t *testing.T) {
	client := testutils.StartRedis(t)
	ctx := context.Background()

	publisher := NewClickEventPublisher(NewRedisStreamChannel(client, "analytics-queue", 0))
	require.NoError(t, publisher.Publish(ctx, models.ClickEvent{ShortCode: "test123", ClientIP: "1.2.3.4", Timestamp: time.Now()}))

	entries, err := client.XRange(ctx, "analytics-queue", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, JobClick, entries[0].Values["job"])
	assert.Contains(t, entries[0].Values["data"], `"shortCode":"test123"`)
}

func TestNATSChannel_Integration(t *testing.T) {
	url := testutils.StartNATS(t)

	channel, err := NewNATSChannel(url, "analytics-queue", zap.NewNop())
	require.NoError(t, err)
	defer channel.Close()

	// повторная инициализация потока не должна падать
	again, err := NewNATSChannel(url, "analytics-queue", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, again.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, NewClickEventPublisher(channel).Publish(ctx, models.ClickEvent{ShortCode: "abc"}))

	info, err := channel.js.StreamInfo("analytics-queue")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.State.Msgs)

	sub, err := channel.js.SubscribeSync(channel.Subject(JobClick), nats.DeliverAll())
	require.NoError(t, err)
	msg, err := sub.NextMsg(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, JobClick, msg.Header.Get("Job"))
}
