package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/koios/lockscreenr/internal/config"
	"github.com/koios/lockscreenr/pkg/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// ImportStream carries configs pushed into running sessions
	ImportStream = "lockscreenr:imports"

	snapshotPrefix = "lockscreenr:snapshot:"
	channelPrefix  = "lockscreenr:session:"
)

// Channel returns the pub/sub channel for a session's config events
func Channel(sessionID string) string {
	return channelPrefix + sessionID
}

// Client wraps the Redis client for session snapshots, events and imports
type Client struct {
	client      *redis.Client
	config      config.RedisConfig
	snapshotTTL time.Duration
	logger      *zap.Logger
}

// NewClient connects to Redis and prepares the import consumer group
func NewClient(cfg config.RedisConfig, logger *zap.Logger) (*Client, error) {
	if cfg.ConsumerName == "" {
		hostname, _ := os.Hostname()
		if hostname == "" {
			hostname = "unknown"
		}
		cfg.ConsumerName = fmt.Sprintf("%s-%d", hostname, time.Now().UnixNano())
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		PoolTimeout:  30 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	client := &Client{
		client:      rdb,
		config:      cfg,
		snapshotTTL: time.Duration(cfg.SnapshotTTL) * time.Second,
		logger:      logger,
	}

	logger.Info("Connected to Redis",
		zap.String("addr", cfg.Addr),
		zap.String("consumer_group", cfg.ConsumerGroup),
		zap.String("consumer_name", cfg.ConsumerName))

	if err := client.initializeConsumerGroup(ctx); err != nil {
		logger.Warn("Failed to initialize consumer group", zap.Error(err))
	}

	return client, nil
}

// Raw exposes the underlying client for components that share the connection
func (c *Client) Raw() *redis.Client {
	return c.client
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// SaveSnapshot stores the latest config of a session
func (c *Client) SaveSnapshot(ctx context.Context, sessionID string, cfg models.LockScreenConfig) error {
	body, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := c.client.Set(ctx, snapshotPrefix+sessionID, body, c.snapshotTTL).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot for session %s: %w", sessionID, err)
	}
	return nil
}

// LoadSnapshot returns the stored config of a session, if any
func (c *Client) LoadSnapshot(ctx context.Context, sessionID string) (models.LockScreenConfig, bool, error) {
	body, err := c.client.Get(ctx, snapshotPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.LockScreenConfig{}, false, nil
		}
		return models.LockScreenConfig{}, false, fmt.Errorf("failed to load snapshot for session %s: %w", sessionID, err)
	}

	var cfg models.LockScreenConfig
	if err := json.Unmarshal(body, &cfg); err != nil {
		return models.LockScreenConfig{}, false, fmt.Errorf("failed to unmarshal snapshot for session %s: %w", sessionID, err)
	}
	return cfg.Clone(), true, nil
}

// DeleteSnapshot removes a session's stored config
func (c *Client) DeleteSnapshot(ctx context.Context, sessionID string) error {
	if err := c.client.Del(ctx, snapshotPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot for session %s: %w", sessionID, err)
	}
	return nil
}

// PublishEvent publishes a config event on the session's channel
func (c *Client) PublishEvent(ctx context.Context, event models.ConfigEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal config event: %w", err)
	}

	channel := Channel(event.SessionID)
	if err := c.client.Publish(ctx, channel, body).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis channel %s: %w", channel, err)
	}

	c.logger.Debug("Published config event",
		zap.String("channel", channel),
		zap.Uint64("revision", event.Revision))
	return nil
}

// Subscribe listens to a session's config events
func (c *Client) Subscribe(ctx context.Context, sessionID string) *redis.PubSub {
	return c.client.Subscribe(ctx, Channel(sessionID))
}

// EnqueueImport pushes a config document for a session onto the import stream
func (c *Client) EnqueueImport(ctx context.Context, sessionID string, payload []byte) (string, error) {
	id, err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: ImportStream,
		Values: map[string]interface{}{
			"session_id": sessionID,
			"payload":    string(payload),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to enqueue import: %w", err)
	}
	return id, nil
}

// initializeConsumerGroup creates the consumer group for the import stream
func (c *Client) initializeConsumerGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, ImportStream, c.config.ConsumerGroup, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("Consumer group initialized",
		zap.String("stream", ImportStream),
		zap.String("group", c.config.ConsumerGroup))
	return nil
}

// ReadImports reads undelivered import messages for this consumer
func (c *Client) ReadImports(ctx context.Context, count int64, block time.Duration) ([]redis.XStream, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.config.ConsumerGroup,
		Consumer: c.config.ConsumerName,
		Streams:  []string{ImportStream, ">"},
		Count:    count,
		Block:    block,
	}).Result()

	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}
	return streams, nil
}

// AcknowledgeImport acknowledges a message from the import stream
func (c *Client) AcknowledgeImport(ctx context.Context, messageID string) error {
	if err := c.client.XAck(ctx, ImportStream, c.config.ConsumerGroup, messageID).Err(); err != nil {
		return fmt.Errorf("failed to acknowledge message %s: %w", messageID, err)
	}
	return nil
}

// IsHealthy checks if the Redis connection is healthy
func (c *Client) IsHealthy() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.client.Ping(ctx).Err() == nil
}
