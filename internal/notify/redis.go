// Package notify publishes opportunities to Redis.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sugawarayuuta/sonnet"
	"triarb/internal/config"
	"triarb/internal/model"
)

// Message is the JSON document published for each opportunity.
type Message struct {
	Timestamp        time.Time       `json:"timestamp"`
	Coin             string          `json:"coin"`
	Triangle         string          `json:"triangle"`
	Legs             [3]string       `json:"legs"`
	TriggerPair      string          `json:"trigger_pair"`
	Direction        model.Direction `json:"direction"`
	Ratio            float64         `json:"ratio"`
	Amount           float64         `json:"amount"`
	ExecutableAmount float64         `json:"executable_amount"`
	Profit           float64         `json:"profit"`
	ProfitAsset      string          `json:"profit_asset"`
}

// NewMessage builds the published form of opp.
func NewMessage(opp model.Opportunity) Message {
	return Message{
		Timestamp:        opp.Timestamp,
		Coin:             opp.Coin,
		Triangle:         opp.Triangle,
		Legs:             opp.Legs,
		TriggerPair:      opp.TriggerPair,
		Direction:        opp.Direction,
		Ratio:            opp.Ratio,
		Amount:           opp.Amount,
		ExecutableAmount: opp.ExecutableAmount,
		Profit:           opp.Profit,
		ProfitAsset:      opp.ProfitAsset,
	}
}

// RedisPublisher sends every opportunity to a pub/sub channel and keeps the
// latest one per triangle in a hash.
type RedisPublisher struct {
	client    *redis.Client
	channel   string
	latestKey string
}

// NewRedisPublisher connects to cfg.Addr and checks the connection.
func NewRedisPublisher(ctx context.Context, cfg config.RedisConfig) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return &RedisPublisher{client: client, channel: cfg.Channel, latestKey: cfg.LatestKey}, nil
}

// Publish sends opp on the channel and records it as the triangle's latest.
func (p *RedisPublisher) Publish(ctx context.Context, opp model.Opportunity) error {
	payload, err := sonnet.Marshal(NewMessage(opp))
	if err != nil {
		return fmt.Errorf("encode opportunity: %w", err)
	}
	pipe := p.client.TxPipeline()
	pipe.Publish(ctx, p.channel, payload)
	pipe.HSet(ctx, p.latestKey, opp.Triangle, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish error: %w", err)
	}
	return nil
}

// Latest returns the last published opportunity of a triangle.
func (p *RedisPublisher) Latest(ctx context.Context, triangle string) (Message, error) {
	var msg Message
	raw, err := p.client.HGet(ctx, p.latestKey, triangle).Bytes()
	if err != nil {
		return msg, fmt.Errorf("redis hget error: %w", err)
	}
	if err := sonnet.Unmarshal(raw, &msg); err != nil {
		return msg, fmt.Errorf("decode opportunity: %w", err)
	}
	return msg, nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
