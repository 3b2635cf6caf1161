package notify

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"triarb/internal/config"
	"triarb/internal/model"
)

func startRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container in short mode")
	}
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return host + ":" + port.Port()
}

func TestRedisPublisher_Publish(t *testing.T) {
	addr := startRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := config.RedisConfig{Enabled: true, Addr: addr, Channel: "triarb:test", LatestKey: "triarb:test:latest"}
	pub, err := NewRedisPublisher(ctx, cfg)
	require.NoError(t, err)
	defer pub.Close()

	sub := redis.NewClient(&redis.Options{Addr: addr}).Subscribe(ctx, cfg.Channel)
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	opp := model.Opportunity{
		Timestamp:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Coin:        "ETH",
		Triangle:    "ETH-BTC-USDT",
		Legs:        [3]string{"ETH/USDT", "ETH/BTC", "BTC/USDT"},
		TriggerPair: "ETH/BTC",
		Direction:   model.Reverse,
		Ratio:       0.0012,
		Amount:      0.5,
		Profit:      0.0000087,
		ProfitAsset: "BTC",
	}
	require.NoError(t, pub.Publish(ctx, opp))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Contains(t, msg.Payload, `"triangle":"ETH-BTC-USDT"`)
	assert.Contains(t, msg.Payload, `"direction":"reverse"`)

	latest, err := pub.Latest(ctx, "ETH-BTC-USDT")
	require.NoError(t, err)
	assert.Equal(t, NewMessage(opp), latest)
}

func TestNewRedisPublisher_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewRedisPublisher(ctx, config.RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
